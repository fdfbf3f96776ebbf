package inode

import (
	"github.com/mit-pdos/go-inodefs/alloc"
	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/layout"
	"github.com/mit-pdos/go-inodefs/util"
)

// buildBitmap derives block occupancy from the inode table. The superblock
// and inode region are reserved; every valid inode contributes its indirect
// block and the data blocks within its size.
func (m *Manager) buildBitmap() (*alloc.Alloc, error) {
	a := alloc.MkAlloc(m.sb.DataStart(), m.sb.NBlocks)
	mark := func(inum common.Inum, bn common.Bnum) {
		if !m.isDataBlock(bn) {
			util.DPrintf(1, "buildBitmap: inum %d points at block %d outside data region\n",
				inum, bn)
			return
		}
		a.MarkUsed(bn)
	}
	err := m.Walk(func(inum common.Inum, ip *layout.Inode) error {
		if ip.Indirect != common.NULLBNUM {
			mark(inum, ip.Indirect)
		}
		blks, err := m.fileBlocks(ip)
		if err != nil {
			return err
		}
		for _, bn := range blks {
			mark(inum, bn)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	util.DPrintf(1, "buildBitmap: %d of %d blocks free\n", a.NumFree(), m.sb.NBlocks)
	return a, nil
}
