package disk

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gdisk "github.com/tchajed/goose/machine/disk"
)

func block(b byte) Block {
	blk := make(Block, BlockSize)
	for i := range blk {
		blk[i] = b
	}
	return blk
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)
	sz, err := d.Size()
	assert.NoError(err)
	assert.Equal(uint64(8), sz)

	blk, err := d.Read(3)
	assert.NoError(err)
	assert.Equal(make(Block, BlockSize), blk, "fresh disk reads zero")

	assert.NoError(d.Write(3, block(0xab)))
	assert.NoError(d.Write(7, block(0x01)))
	assert.NoError(d.Barrier())

	blk, err = d.Read(3)
	assert.NoError(err)
	assert.Equal(block(0xab), blk)

	buf := make(Block, BlockSize)
	assert.NoError(d.ReadTo(7, buf))
	assert.Equal(block(0x01), buf)

	blk, _ = d.Read(2)
	assert.Equal(make(Block, BlockSize), blk, "neighbors untouched")
}

func TestMemDisk(t *testing.T) {
	testReadWrite(t, NewMemDisk(8))
}

func TestGooseDisk(t *testing.T) {
	testReadWrite(t, FromGoose(gdisk.NewMemDisk(8)))
}

func TestMemDiskOutOfBounds(t *testing.T) {
	d := NewMemDisk(2)
	assert.Panics(t, func() { d.Read(2) })
	assert.Panics(t, func() { d.Write(5, block(0)) })
	assert.Panics(t, func() { d.Write(0, make(Block, 10)) })
}

func TestFileDisk(t *testing.T) {
	dir, err := ioutil.TempDir("", "disk")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "disk.img")

	d, err := NewFileDisk(path, 8)
	require.NoError(t, err)
	testReadWrite(t, d)
	require.NoError(t, d.Close())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(8*BlockSize), fi.Size())

	d2, err := OpenFileDisk(path)
	require.NoError(t, err)
	defer d2.Close()
	sz, _ := d2.Size()
	assert.Equal(t, uint64(8), sz)
	blk, err := d2.Read(3)
	assert.NoError(t, err)
	assert.Equal(t, block(0xab), blk, "contents survive reopen")
}
