package common

import (
	"github.com/pkg/errors"

	"github.com/mit-pdos/go-inodefs/disk"
)

const (
	MAGIC uint32 = 0xf0f03410

	// On-disk integers are 32 bits wide.
	WORDSZ uint64 = 4

	NDIRECT   uint64 = 5
	INODESZ   uint64 = (3 + NDIRECT) * WORDSZ // valid, size, direct[], indirect
	INODEBLK  uint64 = disk.BlockSize / INODESZ
	NINDIRECT uint64 = disk.BlockSize / WORDSZ

	MAXFILEBLKS uint64 = NDIRECT + NINDIRECT
	MAXFILESZ   uint64 = MAXFILEBLKS * disk.BlockSize

	SUPERBLK Bnum = 0
)

type Inum uint64
type Bnum = uint64

const (
	NULLINUM Inum = 0
	NULLBNUM Bnum = 0
)

var (
	ErrAlreadyMounted = errors.New("file system already mounted")
	ErrNotMounted     = errors.New("file system not mounted")
	ErrNotFormatted   = errors.New("bad magic: disk not formatted")
	ErrInvalidInode   = errors.New("invalid inode")
	ErrNoSpace        = errors.New("no space left on device")
	ErrDiskTooSmall   = errors.New("disk too small to format")
	ErrFileTooBig     = errors.New("offset beyond maximum file size")
)
