// Package fs is a flat, inode-numbered file system on a block device.
//
// Block 0 holds the superblock, the next tenth of the disk holds inode
// records, and the rest holds file data. Each file has NDIRECT direct block
// pointers and one indirect block of further pointers. Free space is tracked
// by an in-memory bitmap rebuilt from the inode table on every mount.
//
// A FileSys serializes all operations behind one lock. Independent FileSys
// values on different disks do not interact.
package fs

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/mit-pdos/go-inodefs/bmap"
	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/inode"
	"github.com/mit-pdos/go-inodefs/layout"
	"github.com/mit-pdos/go-inodefs/util"
)

type FileSys struct {
	mu *sync.Mutex
	d  disk.Disk

	// valid only while mounted
	inodes *inode.Manager
	bmap   *bmap.Mapper
}

func MkFileSys(d disk.Disk) *FileSys {
	return &FileSys{
		mu: new(sync.Mutex),
		d:  d,
	}
}

func (fs *FileSys) mounted() bool {
	return fs.inodes != nil
}

func (fs *FileSys) checkMounted() error {
	if !fs.mounted() {
		return common.ErrNotMounted
	}
	return nil
}

// Format writes a fresh superblock and an empty inode table sized to a tenth
// of the disk. Existing data blocks are left as they are; they become free.
func (fs *FileSys) Format() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.mounted() {
		return common.ErrAlreadyMounted
	}
	sz, err := fs.d.Size()
	if err != nil {
		return errors.Wrap(err, "disk size")
	}
	sb, err := layout.MkSuperblock(sz)
	if err != nil {
		return err
	}
	if err := fs.d.Write(common.SUPERBLK, sb.Encode()); err != nil {
		return errors.Wrap(err, "write superblock")
	}
	zero := make(disk.Block, disk.BlockSize)
	for bn := common.Bnum(1); bn < sb.DataStart(); bn++ {
		if err := fs.d.Write(bn, zero); err != nil {
			return errors.Wrapf(err, "clear inode block %d", bn)
		}
	}
	if err := fs.d.Barrier(); err != nil {
		return err
	}
	util.DPrintf(1, "Format: %d blocks, %d inode blocks\n", sb.NBlocks, sb.NInodeBlocks)
	return nil
}

// Mount checks the superblock and rebuilds the free-block bitmap.
func (fs *FileSys) Mount() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.mounted() {
		return common.ErrAlreadyMounted
	}
	blk, err := fs.d.Read(common.SUPERBLK)
	if err != nil {
		return errors.Wrap(err, "read superblock")
	}
	sb, err := layout.DecodeSuperblock(blk)
	if err != nil {
		return err
	}
	sz, err := fs.d.Size()
	if err != nil {
		return errors.Wrap(err, "disk size")
	}
	if sb.NBlocks > sz {
		return errors.Wrapf(common.ErrNotFormatted,
			"superblock claims %d blocks on a %d-block disk", sb.NBlocks, sz)
	}
	m, err := inode.Open(fs.d, sb)
	if err != nil {
		return err
	}
	fs.inodes = m
	fs.bmap = bmap.MkMapper(fs.d, m.Alloc(), sb)
	util.DPrintf(1, "Mount: %d inodes created, %d blocks free\n",
		sb.NInodes, m.Alloc().NumFree())
	return nil
}

// Unmount drops the in-memory bitmap; everything else is already on disk.
func (fs *FileSys) Unmount() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return err
	}
	fs.inodes = nil
	fs.bmap = nil
	return fs.d.Barrier()
}

func (fs *FileSys) Create() (common.Inum, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return common.NULLINUM, err
	}
	return fs.inodes.Create()
}

func (fs *FileSys) Delete(inum common.Inum) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return err
	}
	return fs.inodes.Delete(inum)
}

func (fs *FileSys) GetSize(inum common.Inum) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return 0, err
	}
	return fs.inodes.GetSize(inum)
}

// NumFree reports how many data blocks are unallocated.
func (fs *FileSys) NumFree() (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return 0, err
	}
	return fs.inodes.Alloc().NumFree(), nil
}
