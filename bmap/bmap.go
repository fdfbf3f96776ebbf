// Package bmap translates logical file blocks into disk blocks through an
// inode's direct pointers and its single indirect block.
package bmap

import (
	"github.com/pkg/errors"

	"github.com/mit-pdos/go-inodefs/addr"
	"github.com/mit-pdos/go-inodefs/alloc"
	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/layout"
	"github.com/mit-pdos/go-inodefs/util"
)

type Mapper struct {
	d     disk.Disk
	alloc *alloc.Alloc
	start common.Bnum // first data block
	end   common.Bnum // one past the last block
}

func MkMapper(d disk.Disk, a *alloc.Alloc, sb *layout.Superblock) *Mapper {
	return &Mapper{
		d:     d,
		alloc: a,
		start: sb.DataStart(),
		end:   common.Bnum(sb.NBlocks),
	}
}

func (bm *Mapper) inDataRegion(bn common.Bnum) bool {
	return bn >= bm.start && bn < bm.end
}

// checkOwned rejects a pointer that does not name an allocated data block;
// writing through it could clobber metadata or another file.
func (bm *Mapper) checkOwned(bn common.Bnum, lbn uint64, k addr.Kind) error {
	if !bm.inDataRegion(bn) || !bm.alloc.IsUsed(bn) {
		return errors.Wrapf(common.ErrNotFormatted,
			"%v pointer for block %d names unowned block %d", k, lbn, bn)
	}
	return nil
}

func (bm *Mapper) readPointers(bn common.Bnum) (*layout.Pointers, error) {
	blk, err := bm.d.Read(bn)
	if err != nil {
		return nil, errors.Wrapf(err, "read indirect block %d", bn)
	}
	return layout.DecodePointers(blk)
}

// ReadMap returns the disk block backing logical block lbn of ip, or
// NULLBNUM if lbn is a hole. Pointers outside the data region read as holes.
func (bm *Mapper) ReadMap(ip *layout.Inode, lbn uint64) (common.Bnum, error) {
	p := addr.BlockPtr(lbn)
	var bn common.Bnum
	switch p.Kind {
	case addr.Direct:
		bn = ip.Direct[p.Index]
	case addr.Indirect:
		if !bm.inDataRegion(ip.Indirect) {
			break
		}
		ptrs, err := bm.readPointers(ip.Indirect)
		if err != nil {
			return common.NULLBNUM, err
		}
		bn = ptrs[p.Index]
	}
	if bn != common.NULLBNUM && !bm.inDataRegion(bn) {
		util.DPrintf(1, "ReadMap: %v pointer for block %d names block %d outside data region\n",
			p.Kind, lbn, bn)
		return common.NULLBNUM, nil
	}
	return bn, nil
}

// WriteMap returns the disk block backing logical block lbn of ip, allocating
// it (and the indirect block, first) if needed. New direct and indirect
// pointers are recorded in ip, which the caller must persist; indirect-block
// entries are written through to disk. fresh reports a newly allocated data
// block, whose on-disk contents are undefined.
//
// On ErrNoSpace ip is unchanged and nothing stays allocated. An existing
// pointer to a block the bitmap does not hold for file data fails with
// ErrNotFormatted.
func (bm *Mapper) WriteMap(ip *layout.Inode, lbn uint64) (bn common.Bnum, fresh bool, err error) {
	p := addr.BlockPtr(lbn)
	switch p.Kind {
	case addr.Direct:
		if bn = ip.Direct[p.Index]; bn != common.NULLBNUM {
			if err := bm.checkOwned(bn, lbn, p.Kind); err != nil {
				return common.NULLBNUM, false, err
			}
			return bn, false, nil
		}
		bn = bm.alloc.AllocNum()
		if bn == common.NULLBNUM {
			return common.NULLBNUM, false, errors.Wrapf(common.ErrNoSpace, "block %d", lbn)
		}
		ip.Direct[p.Index] = bn
		util.DPrintf(10, "WriteMap: lbn %d -> %v %d\n", lbn, p.Kind, bn)
		return bn, true, nil
	case addr.Indirect:
		return bm.writeMapIndirect(ip, lbn, p)
	}
	return common.NULLBNUM, false, errors.Wrapf(common.ErrFileTooBig, "block %d", lbn)
}

func (bm *Mapper) writeMapIndirect(ip *layout.Inode, lbn uint64, p addr.Ptr) (common.Bnum, bool, error) {
	ind := ip.Indirect
	var ptrs *layout.Pointers
	if ind == common.NULLBNUM {
		ind = bm.alloc.AllocNum()
		if ind == common.NULLBNUM {
			return common.NULLBNUM, false, errors.Wrapf(common.ErrNoSpace, "indirect block for %d", lbn)
		}
		// stale contents of a recycled block must not be read as pointers
		ptrs = new(layout.Pointers)
	} else {
		if err := bm.checkOwned(ind, lbn, p.Kind); err != nil {
			return common.NULLBNUM, false, err
		}
		var err error
		ptrs, err = bm.readPointers(ind)
		if err != nil {
			return common.NULLBNUM, false, err
		}
		if bn := ptrs[p.Index]; bn != common.NULLBNUM {
			if err := bm.checkOwned(bn, lbn, p.Kind); err != nil {
				return common.NULLBNUM, false, err
			}
			return bn, false, nil
		}
	}

	bn := bm.alloc.AllocNum()
	if bn == common.NULLBNUM {
		if ind != ip.Indirect {
			bm.alloc.FreeNum(ind)
		}
		return common.NULLBNUM, false, errors.Wrapf(common.ErrNoSpace, "block %d", lbn)
	}
	ptrs[p.Index] = bn
	if err := bm.d.Write(ind, ptrs.Encode()); err != nil {
		return common.NULLBNUM, false, errors.Wrapf(err, "write indirect block %d", ind)
	}
	ip.Indirect = ind
	util.DPrintf(10, "WriteMap: lbn %d -> %v %d[%d] = %d\n", lbn, p.Kind, ind, p.Index, bn)
	return bn, true, nil
}
