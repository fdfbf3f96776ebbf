package fs

import (
	"fmt"
	"io"

	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/layout"
)

type SuperReport struct {
	MagicValid   bool   `yaml:"magicValid"`
	NBlocks      uint64 `yaml:"blocks"`
	NInodeBlocks uint64 `yaml:"inodeBlocks"`
	NInodes      uint64 `yaml:"inodes"`
}

type InodeReport struct {
	Inum            common.Inum   `yaml:"inum"`
	Size            uint64        `yaml:"size"`
	Direct          []common.Bnum `yaml:"direct"`
	Indirect        common.Bnum   `yaml:"indirect,omitempty"`
	IndirectEntries []common.Bnum `yaml:"indirectEntries,omitempty"`
}

// Report describes the superblock and every allocated inode.
type Report struct {
	Super  SuperReport   `yaml:"superblock"`
	Inodes []InodeReport `yaml:"inodes"`
}

// Debug builds a Report from the mounted volume without modifying it.
func (fs *FileSys) Debug() (*Report, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return nil, err
	}
	sb := fs.inodes.Super()
	r := &Report{
		Super: SuperReport{
			MagicValid:   sb.Magic == common.MAGIC,
			NBlocks:      sb.NBlocks,
			NInodeBlocks: sb.NInodeBlocks,
			NInodes:      sb.NInodes,
		},
	}
	err := fs.inodes.Walk(func(inum common.Inum, ip *layout.Inode) error {
		ir := InodeReport{
			Inum:     inum,
			Size:     ip.Size,
			Indirect: ip.Indirect,
		}
		for _, bn := range ip.Direct {
			if bn != common.NULLBNUM {
				ir.Direct = append(ir.Direct, bn)
			}
		}
		ents, err := fs.inodes.IndirectEntries(ip)
		if err != nil {
			return err
		}
		ir.IndirectEntries = ents
		r.Inodes = append(r.Inodes, ir)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

func joinBnums(bns []common.Bnum) string {
	s := ""
	for _, bn := range bns {
		s += fmt.Sprintf("%d ", bn)
	}
	return s
}

// WriteText prints the report in the classic fs_debug layout.
func (r *Report) WriteText(w io.Writer) error {
	magic := "valid"
	if !r.Super.MagicValid {
		magic = "not valid"
	}
	_, err := fmt.Fprintf(w, "superblock:\n"+
		"    magic number is %s\n"+
		"    %d blocks on disk\n"+
		"    %d blocks for inodes\n"+
		"    %d inodes total\n",
		magic, r.Super.NBlocks, r.Super.NInodeBlocks, r.Super.NInodes)
	if err != nil {
		return err
	}
	for _, ir := range r.Inodes {
		_, err = fmt.Fprintf(w, "inode %d:\n"+
			"    size: %d bytes\n"+
			"    direct blocks: %s\n",
			ir.Inum, ir.Size, joinBnums(ir.Direct))
		if err != nil {
			return err
		}
		if ir.Indirect == common.NULLBNUM {
			continue
		}
		_, err = fmt.Fprintf(w, "    indirect block: %d\n"+
			"    indirect data blocks: %s\n",
			ir.Indirect, joinBnums(ir.IndirectEntries))
		if err != nil {
			return err
		}
	}
	return nil
}
