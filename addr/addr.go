// Package addr maps file system identifiers onto disk locations: inumbers onto
// inode slots, and logical file blocks onto inode or indirect-block pointers.
package addr

import (
	"github.com/mit-pdos/go-inodefs/common"
)

// Addr identifies an inode record on disk.
//
// Blkno is the inode block holding the record and Slot its index within that
// block.
type Addr struct {
	Blkno common.Bnum
	Slot  uint64
}

// Flatid numbers inode slots from 0 in (block, slot) order.
func (a Addr) Flatid() uint64 {
	return (uint64(a.Blkno)-1)*common.INODEBLK + a.Slot
}

func MkAddr(blkno common.Bnum, slot uint64) Addr {
	return Addr{Blkno: blkno, Slot: slot}
}

// InodeAddr locates inum; inumbers are 1-based and inode blocks start right
// after the superblock.
func InodeAddr(inum common.Inum) Addr {
	n := uint64(inum) - 1
	return MkAddr(common.Bnum(n/common.INODEBLK+1), n%common.INODEBLK)
}

// Inum is the inverse of InodeAddr.
func (a Addr) Inum() common.Inum {
	return common.Inum(a.Flatid() + 1)
}

type Kind uint8

const (
	Direct Kind = iota
	Indirect
	OutOfRange
)

func (k Kind) String() string {
	switch k {
	case Direct:
		return "direct"
	case Indirect:
		return "indirect"
	}
	return "out-of-range"
}

// Ptr names the pointer that maps one logical file block: either
// direct[Index] in the inode or entry Index of the indirect block.
type Ptr struct {
	Kind  Kind
	Index uint64
}

// BlockPtr resolves logical block lbn of a file.
func BlockPtr(lbn uint64) Ptr {
	if lbn < common.NDIRECT {
		return Ptr{Kind: Direct, Index: lbn}
	}
	if lbn < common.MAXFILEBLKS {
		return Ptr{Kind: Indirect, Index: lbn - common.NDIRECT}
	}
	return Ptr{Kind: OutOfRange, Index: lbn}
}
