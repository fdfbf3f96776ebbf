package bmap

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-inodefs/alloc"
	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/layout"
)

// mkMapper sets up a volume whose data region is [start, nblocks).
func mkMapper(start, nblocks uint64) (*Mapper, *alloc.Alloc, disk.Disk) {
	d := disk.NewMemDisk(nblocks)
	a := alloc.MkAlloc(start, nblocks)
	sb := &layout.Superblock{Magic: common.MAGIC, NBlocks: nblocks, NInodeBlocks: start - 1}
	return MkMapper(d, a, sb), a, d
}

func TestReadMapHoles(t *testing.T) {
	bm, _, _ := mkMapper(2, 10)
	ip := &layout.Inode{Valid: true}
	for _, lbn := range []uint64{0, 4, 5, 100, common.MAXFILEBLKS} {
		bn, err := bm.ReadMap(ip, lbn)
		assert.NoError(t, err)
		assert.Equal(t, common.NULLBNUM, bn, "lbn %d", lbn)
	}
}

func TestWriteMapDirect(t *testing.T) {
	assert := assert.New(t)
	bm, _, _ := mkMapper(2, 10)
	ip := &layout.Inode{Valid: true}

	bn, fresh, err := bm.WriteMap(ip, 3)
	require.NoError(t, err)
	assert.True(fresh)
	assert.Equal(common.Bnum(2), bn)
	assert.Equal(common.Bnum(2), ip.Direct[3])

	bn, fresh, err = bm.WriteMap(ip, 3)
	require.NoError(t, err)
	assert.False(fresh, "second mapping reuses the block")
	assert.Equal(common.Bnum(2), bn)

	bn, err = bm.ReadMap(ip, 3)
	assert.NoError(err)
	assert.Equal(common.Bnum(2), bn)
}

func TestWriteMapIndirect(t *testing.T) {
	assert := assert.New(t)
	bm, _, d := mkMapper(2, 10)
	ip := &layout.Inode{Valid: true}

	bn, fresh, err := bm.WriteMap(ip, 7)
	require.NoError(t, err)
	assert.True(fresh)
	assert.Equal(common.Bnum(2), ip.Indirect, "indirect block comes first")
	assert.Equal(common.Bnum(3), bn)

	blk, _ := d.Read(ip.Indirect)
	ptrs, err := layout.DecodePointers(blk)
	require.NoError(t, err)
	assert.Equal(common.Bnum(3), ptrs[2])

	bn, err = bm.ReadMap(ip, 7)
	assert.NoError(err)
	assert.Equal(common.Bnum(3), bn)
	bn, err = bm.ReadMap(ip, 6)
	assert.NoError(err)
	assert.Equal(common.NULLBNUM, bn)

	bn, fresh, err = bm.WriteMap(ip, 5)
	require.NoError(t, err)
	assert.True(fresh)
	assert.Equal(common.Bnum(4), bn)
	assert.Equal(common.Bnum(2), ip.Indirect)
}

func TestWriteMapStaleIndirect(t *testing.T) {
	bm, _, d := mkMapper(2, 10)
	junk := make(disk.Block, disk.BlockSize)
	for i := range junk {
		junk[i] = 0xff
	}
	require.NoError(t, d.Write(2, junk))

	ip := &layout.Inode{Valid: true}
	_, _, err := bm.WriteMap(ip, 5)
	require.NoError(t, err)
	bn, err := bm.ReadMap(ip, 6)
	assert.NoError(t, err)
	assert.Equal(t, common.NULLBNUM, bn, "new indirect block starts out empty")
}

func TestWriteMapNoSpace(t *testing.T) {
	assert := assert.New(t)
	bm, a, _ := mkMapper(2, 3)
	ip := &layout.Inode{Valid: true}

	_, _, err := bm.WriteMap(ip, 5)
	assert.True(errors.Is(err, common.ErrNoSpace))
	assert.Equal(common.NULLBNUM, ip.Indirect, "indirect block is given back")
	assert.Equal(uint64(1), a.NumFree())

	_, _, err = bm.WriteMap(ip, 0)
	assert.NoError(err)
	_, _, err = bm.WriteMap(ip, 1)
	assert.True(errors.Is(err, common.ErrNoSpace))
	assert.Equal(common.NULLBNUM, ip.Direct[1])
}

func TestWriteMapTooBig(t *testing.T) {
	bm, _, _ := mkMapper(2, 10)
	ip := &layout.Inode{Valid: true}
	_, _, err := bm.WriteMap(ip, common.MAXFILEBLKS)
	assert.True(t, errors.Is(err, common.ErrFileTooBig))
}

func TestReadMapOutsideDataRegion(t *testing.T) {
	assert := assert.New(t)
	bm, _, d := mkMapper(2, 10)
	ptrs := new(layout.Pointers)
	ptrs[0] = 1
	ptrs[1] = 500
	ptrs[2] = 4
	require.NoError(t, d.Write(3, ptrs.Encode()))

	ip := &layout.Inode{Valid: true, Direct: [common.NDIRECT]common.Bnum{1000, 0, 1}, Indirect: 3}
	for lbn, want := range map[uint64]common.Bnum{0: 0, 2: 0, 5: 0, 6: 0, 7: 4} {
		bn, err := bm.ReadMap(ip, lbn)
		assert.NoError(err)
		assert.Equal(want, bn, "lbn %d", lbn)
	}

	ip = &layout.Inode{Valid: true, Indirect: 77}
	bn, err := bm.ReadMap(ip, 5)
	assert.NoError(err)
	assert.Equal(common.NULLBNUM, bn, "indirect block outside the disk reads as holes")
}

func TestWriteMapUnownedPointer(t *testing.T) {
	assert := assert.New(t)
	bm, a, d := mkMapper(2, 10)

	for _, bn := range []common.Bnum{1, 1000, 5} { // inode region, off disk, free
		ip := &layout.Inode{Valid: true, Direct: [common.NDIRECT]common.Bnum{bn}}
		_, _, err := bm.WriteMap(ip, 0)
		assert.True(errors.Is(err, common.ErrNotFormatted), "direct pointer %d", bn)
	}

	ip := &layout.Inode{Valid: true, Indirect: 1}
	_, _, err := bm.WriteMap(ip, 5)
	assert.True(errors.Is(err, common.ErrNotFormatted), "indirect block in inode region")

	ind := a.AllocNum()
	ptrs := new(layout.Pointers)
	ptrs[0] = 0
	ptrs[1] = 1
	require.NoError(t, d.Write(ind, ptrs.Encode()))
	ip = &layout.Inode{Valid: true, Indirect: ind}
	_, _, err = bm.WriteMap(ip, 6)
	assert.True(errors.Is(err, common.ErrNotFormatted), "indirect entry in inode region")
	assert.Contains(err.Error(), "indirect pointer for block 6")
	assert.Equal(uint64(7), a.NumFree(), "nothing allocated by rejected writes")
}
