package fs

import (
	"github.com/pkg/errors"

	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/util"
)

// Read copies up to len(data) bytes of inum starting at off into data and
// returns the count. Reading at or past the end of the file returns 0. Holes
// read as zeros.
func (fs *FileSys) Read(inum common.Inum, data []byte, off uint64) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return 0, err
	}
	ip, err := fs.inodes.Lookup(inum)
	if err != nil {
		return 0, err
	}
	if off >= ip.Size {
		return 0, nil
	}
	count := util.Min(uint64(len(data)), ip.Size-off)

	var n uint64
	for n < count {
		pos := off + n
		lbn := pos / disk.BlockSize
		boff := pos % disk.BlockSize
		nb := util.Min(disk.BlockSize-boff, count-n)
		bn, err := fs.bmap.ReadMap(&ip, lbn)
		if err != nil {
			return n, err
		}
		if bn == common.NULLBNUM {
			for i := n; i < n+nb; i++ {
				data[i] = 0
			}
		} else {
			blk, err := fs.d.Read(bn)
			if err != nil {
				return n, errors.Wrapf(err, "read data block %d", bn)
			}
			copy(data[n:n+nb], blk[boff:boff+nb])
		}
		util.DPrintf(10, "Read: inum %d lbn %d -> %d [%d, %d)\n", inum, lbn, bn, boff, boff+nb)
		n += nb
	}
	return n, nil
}

// Write copies data into inum at off, allocating blocks as needed, and
// returns the number of bytes written. The file size and pointers are
// persisted after every block, so if the disk fills up (or the file reaches
// its maximum size) Write returns a short count with a nil error and the
// file holds exactly the bytes reported.
func (fs *FileSys) Write(inum common.Inum, data []byte, off uint64) (uint64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.checkMounted(); err != nil {
		return 0, err
	}
	ip, err := fs.inodes.Lookup(inum)
	if err != nil {
		return 0, err
	}
	count := uint64(len(data))
	if util.SumOverflows(off, count) || off+count > common.MAXFILESZ {
		if off >= common.MAXFILESZ {
			count = 0
		} else {
			count = common.MAXFILESZ - off
		}
	}

	var n uint64
	for n < count {
		pos := off + n
		lbn := pos / disk.BlockSize
		boff := pos % disk.BlockSize
		nb := util.Min(disk.BlockSize-boff, count-n)
		bn, fresh, err := fs.bmap.WriteMap(&ip, lbn)
		if errors.Is(err, common.ErrNoSpace) {
			util.DPrintf(1, "Write: inum %d out of space after %d of %d bytes\n",
				inum, n, len(data))
			break
		}
		if err != nil {
			return n, err
		}

		var blk disk.Block
		if fresh || nb == disk.BlockSize {
			blk = make(disk.Block, disk.BlockSize)
		} else {
			blk, err = fs.d.Read(bn)
			if err != nil {
				return n, errors.Wrapf(err, "read data block %d", bn)
			}
		}
		copy(blk[boff:boff+nb], data[n:n+nb])
		if err := fs.d.Write(bn, blk); err != nil {
			return n, errors.Wrapf(err, "write data block %d", bn)
		}
		util.DPrintf(10, "Write: inum %d lbn %d -> %d [%d, %d)\n", inum, lbn, bn, boff, boff+nb)

		n += nb
		ip.Size = util.Max(ip.Size, off+n)
		if err := fs.inodes.Put(inum, ip); err != nil {
			return n, err
		}
	}
	return n, nil
}
