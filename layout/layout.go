// Package layout encodes the on-disk structures: the superblock in block 0,
// inode records packed into the inode region, and indirect pointer blocks.
//
// All fields are 32-bit little-endian words.
package layout

import (
	"github.com/pkg/errors"
	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-inodefs/common"
	"github.com/mit-pdos/go-inodefs/disk"
	"github.com/mit-pdos/go-inodefs/util"
)

type Superblock struct {
	Magic        uint32
	NBlocks      uint64
	NInodeBlocks uint64
	NInodes      uint64 // inode slots ever handed out by create
}

// MkSuperblock sizes a fresh volume: a tenth of the disk, rounded up, holds
// inodes.
func MkSuperblock(nblocks uint64) (*Superblock, error) {
	if nblocks < 2 {
		return nil, errors.Wrapf(common.ErrDiskTooSmall, "%d blocks", nblocks)
	}
	if nblocks > 1<<32-1 {
		return nil, errors.Errorf("%d blocks do not fit a 32-bit block number", nblocks)
	}
	return &Superblock{
		Magic:        common.MAGIC,
		NBlocks:      nblocks,
		NInodeBlocks: util.RoundUp(nblocks, 10),
		NInodes:      0,
	}, nil
}

func (sb *Superblock) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	enc.PutInt32(sb.Magic)
	enc.PutInt32(uint32(sb.NBlocks))
	enc.PutInt32(uint32(sb.NInodeBlocks))
	enc.PutInt32(uint32(sb.NInodes))
	return enc.Finish()
}

// DecodeSuperblock fails with ErrNotFormatted if the magic is wrong or the
// geometry is impossible.
func DecodeSuperblock(blk disk.Block) (*Superblock, error) {
	if uint64(len(blk)) != disk.BlockSize {
		return nil, errors.Errorf("superblock buffer is %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	sb := &Superblock{}
	sb.Magic = dec.GetInt32()
	sb.NBlocks = uint64(dec.GetInt32())
	sb.NInodeBlocks = uint64(dec.GetInt32())
	sb.NInodes = uint64(dec.GetInt32())
	if sb.Magic != common.MAGIC {
		return sb, errors.Wrapf(common.ErrNotFormatted, "magic 0x%x", sb.Magic)
	}
	if sb.NInodeBlocks == 0 || sb.NInodeBlocks >= sb.NBlocks {
		return sb, errors.Wrapf(common.ErrNotFormatted,
			"%d inode blocks on a %d-block disk", sb.NInodeBlocks, sb.NBlocks)
	}
	return sb, nil
}

// DataStart is the first block number past the inode region.
func (sb *Superblock) DataStart() common.Bnum {
	return common.Bnum(1 + sb.NInodeBlocks)
}

// MaxInum is the highest inumber the inode region can hold.
func (sb *Superblock) MaxInum() common.Inum {
	return common.Inum(sb.NInodeBlocks * common.INODEBLK)
}

type Inode struct {
	Valid    bool
	Size     uint64
	Direct   [common.NDIRECT]common.Bnum
	Indirect common.Bnum
}

// NBlocks is the number of logical blocks covered by the file's size.
func (ip *Inode) NBlocks() uint64 {
	return util.RoundUp(ip.Size, disk.BlockSize)
}

func (ip *Inode) encode(enc marshal.Enc) {
	var valid uint32
	if ip.Valid {
		valid = 1
	}
	enc.PutInt32(valid)
	enc.PutInt32(uint32(ip.Size))
	for _, bn := range ip.Direct {
		enc.PutInt32(uint32(bn))
	}
	enc.PutInt32(uint32(ip.Indirect))
}

func decodeInode(dec marshal.Dec) Inode {
	var ip Inode
	ip.Valid = dec.GetInt32() != 0
	ip.Size = uint64(dec.GetInt32())
	for i := range ip.Direct {
		ip.Direct[i] = common.Bnum(dec.GetInt32())
	}
	ip.Indirect = common.Bnum(dec.GetInt32())
	return ip
}

// InodeBlock is the decoded view of one block of the inode region.
type InodeBlock [common.INODEBLK]Inode

func (ib *InodeBlock) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	for i := range ib {
		ib[i].encode(enc)
	}
	return enc.Finish()
}

func DecodeInodeBlock(blk disk.Block) (*InodeBlock, error) {
	if uint64(len(blk)) != disk.BlockSize {
		return nil, errors.Errorf("inode block buffer is %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	ib := new(InodeBlock)
	for i := range ib {
		ib[i] = decodeInode(dec)
	}
	return ib, nil
}

// Pointers is the decoded view of an indirect block.
type Pointers [common.NINDIRECT]common.Bnum

func (p *Pointers) Encode() disk.Block {
	enc := marshal.NewEnc(disk.BlockSize)
	for _, bn := range p {
		enc.PutInt32(uint32(bn))
	}
	return enc.Finish()
}

func DecodePointers(blk disk.Block) (*Pointers, error) {
	if uint64(len(blk)) != disk.BlockSize {
		return nil, errors.Errorf("indirect block buffer is %d bytes", len(blk))
	}
	dec := marshal.NewDec(blk)
	p := new(Pointers)
	for i := range p {
		p[i] = common.Bnum(dec.GetInt32())
	}
	return p, nil
}
