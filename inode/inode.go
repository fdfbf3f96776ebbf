// Package inode owns the inode table: it is the only code that writes inode
// records or the superblock's inode count, and it rebuilds the free-block
// bitmap from the table at mount.
package inode

import (
	"github.com/pkg/errors"

	"github.com/mit-pdos/go-inodefs/addr"
	"github.com/mit-pdos/go-inodefs/alloc"
	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/layout"
	"github.com/mit-pdos/go-inodefs/util"
)

type Manager struct {
	d     disk.Disk
	sb    *layout.Superblock
	alloc *alloc.Alloc
}

// Open attaches to a formatted volume whose superblock is sb and rebuilds the
// block bitmap from the inode table.
func Open(d disk.Disk, sb *layout.Superblock) (*Manager, error) {
	m := &Manager{d: d, sb: sb}
	a, err := m.buildBitmap()
	if err != nil {
		return nil, err
	}
	m.alloc = a
	return m, nil
}

func (m *Manager) Super() *layout.Superblock {
	return m.sb
}

func (m *Manager) Alloc() *alloc.Alloc {
	return m.alloc
}

func (m *Manager) readInodeBlock(blkno common.Bnum) (*layout.InodeBlock, error) {
	blk, err := m.d.Read(blkno)
	if err != nil {
		return nil, errors.Wrapf(err, "read inode block %d", blkno)
	}
	return layout.DecodeInodeBlock(blk)
}

func (m *Manager) writeInodeBlock(blkno common.Bnum, ib *layout.InodeBlock) error {
	if err := m.d.Write(blkno, ib.Encode()); err != nil {
		return errors.Wrapf(err, "write inode block %d", blkno)
	}
	return nil
}

func (m *Manager) writeSuper() error {
	if err := m.d.Write(common.SUPERBLK, m.sb.Encode()); err != nil {
		return errors.Wrap(err, "write superblock")
	}
	return nil
}

func (m *Manager) checkInum(inum common.Inum) error {
	if inum == common.NULLINUM || inum > m.sb.MaxInum() {
		return errors.Wrapf(common.ErrInvalidInode, "inum %d out of range [1, %d]",
			inum, m.sb.MaxInum())
	}
	return nil
}

// Lookup returns a copy of inum's record; the inode must be allocated.
func (m *Manager) Lookup(inum common.Inum) (layout.Inode, error) {
	if err := m.checkInum(inum); err != nil {
		return layout.Inode{}, err
	}
	a := addr.InodeAddr(inum)
	ib, err := m.readInodeBlock(a.Blkno)
	if err != nil {
		return layout.Inode{}, err
	}
	ip := ib[a.Slot]
	if !ip.Valid {
		return layout.Inode{}, errors.Wrapf(common.ErrInvalidInode, "inum %d not allocated", inum)
	}
	return ip, nil
}

func (m *Manager) GetSize(inum common.Inum) (uint64, error) {
	ip, err := m.Lookup(inum)
	if err != nil {
		return 0, err
	}
	return ip.Size, nil
}

// Put persists ip as inum's record.
func (m *Manager) Put(inum common.Inum, ip layout.Inode) error {
	if err := m.checkInum(inum); err != nil {
		return err
	}
	a := addr.InodeAddr(inum)
	ib, err := m.readInodeBlock(a.Blkno)
	if err != nil {
		return err
	}
	ib[a.Slot] = ip
	return m.writeInodeBlock(a.Blkno, ib)
}

// Create hands out the first free inode slot in (block, slot) order.
func (m *Manager) Create() (common.Inum, error) {
	for blkno := common.Bnum(1); blkno < m.sb.DataStart(); blkno++ {
		ib, err := m.readInodeBlock(blkno)
		if err != nil {
			return common.NULLINUM, err
		}
		for slot := range ib {
			if ib[slot].Valid {
				continue
			}
			ib[slot] = layout.Inode{Valid: true}
			if err := m.writeInodeBlock(blkno, ib); err != nil {
				return common.NULLINUM, err
			}
			m.sb.NInodes++
			if err := m.writeSuper(); err != nil {
				return common.NULLINUM, err
			}
			inum := addr.MkAddr(blkno, uint64(slot)).Inum()
			util.DPrintf(1, "Create: inum %d\n", inum)
			return inum, nil
		}
	}
	return common.NULLINUM, errors.Wrap(common.ErrNoSpace, "no free inode")
}

// Delete frees every block the file references, its indirect block included,
// and clears the record.
func (m *Manager) Delete(inum common.Inum) error {
	ip, err := m.Lookup(inum)
	if err != nil {
		return err
	}
	blks, err := m.fileBlocks(&ip)
	if err != nil {
		return err
	}
	for _, bn := range blks {
		m.alloc.FreeNum(bn)
	}
	if ip.Indirect != common.NULLBNUM {
		m.alloc.FreeNum(ip.Indirect)
	}
	util.DPrintf(1, "Delete: inum %d freed %d data blocks\n", inum, len(blks))
	return m.Put(inum, layout.Inode{})
}

func (m *Manager) isDataBlock(bn common.Bnum) bool {
	return bn >= m.sb.DataStart() && bn < m.sb.NBlocks
}

func (m *Manager) readPointers(bn common.Bnum) (*layout.Pointers, error) {
	blk, err := m.d.Read(bn)
	if err != nil {
		return nil, errors.Wrapf(err, "read indirect block %d", bn)
	}
	return layout.DecodePointers(blk)
}

// fileBlocks lists the non-zero data block pointers within the file's size,
// direct ones first.
func (m *Manager) fileBlocks(ip *layout.Inode) ([]common.Bnum, error) {
	var blks []common.Bnum
	n := util.Min(ip.NBlocks(), common.MAXFILEBLKS)
	for i := uint64(0); i < util.Min(n, common.NDIRECT); i++ {
		if ip.Direct[i] != common.NULLBNUM {
			blks = append(blks, ip.Direct[i])
		}
	}
	if n <= common.NDIRECT || !m.isDataBlock(ip.Indirect) {
		return blks, nil
	}
	ptrs, err := m.readPointers(ip.Indirect)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < n-common.NDIRECT; i++ {
		if ptrs[i] != common.NULLBNUM {
			blks = append(blks, ptrs[i])
		}
	}
	return blks, nil
}

// Walk calls f for every allocated inode in inumber order.
func (m *Manager) Walk(f func(inum common.Inum, ip *layout.Inode) error) error {
	for blkno := common.Bnum(1); blkno < m.sb.DataStart(); blkno++ {
		ib, err := m.readInodeBlock(blkno)
		if err != nil {
			return err
		}
		for slot := range ib {
			if !ib[slot].Valid {
				continue
			}
			inum := addr.MkAddr(blkno, uint64(slot)).Inum()
			if err := f(inum, &ib[slot]); err != nil {
				return err
			}
		}
	}
	return nil
}

// IndirectEntries lists the non-zero entries of an inode's indirect block.
func (m *Manager) IndirectEntries(ip *layout.Inode) ([]common.Bnum, error) {
	if !m.isDataBlock(ip.Indirect) {
		return nil, nil
	}
	ptrs, err := m.readPointers(ip.Indirect)
	if err != nil {
		return nil, err
	}
	var blks []common.Bnum
	for _, bn := range ptrs {
		if bn != common.NULLBNUM {
			blks = append(blks, bn)
		}
	}
	return blks, nil
}
