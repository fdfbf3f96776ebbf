package alloc

import (
	"sync"

	"github.com/mit-pdos/go-inodefs/util"
)

// Alloc is an in-memory bitmap over the numbers [0, max). Numbers below
// start are reserved: they are always in use and never handed out or freed.
// A set bit means the number is in use.
type Alloc struct {
	lock   *sync.Mutex // protects bitmap
	start  uint64
	max    uint64
	bitmap []byte
}

func MkAlloc(start uint64, max uint64) *Alloc {
	if start > max {
		panic("MkAlloc")
	}
	a := &Alloc{
		lock:   new(sync.Mutex),
		start:  start,
		max:    max,
		bitmap: make([]byte, util.RoundUp(max, 8)),
	}
	for n := uint64(0); n < start; n++ {
		a.setBit(n)
	}
	return a
}

func (a *Alloc) setBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] | (1 << (n % 8))
}

func (a *Alloc) clearBit(n uint64) {
	a.bitmap[n/8] = a.bitmap[n/8] & ^(1 << (n % 8))
}

func (a *Alloc) isSet(n uint64) bool {
	return a.bitmap[n/8]&(1<<(n%8)) != 0
}

// MarkUsed records n as in use without allocating it; used while rebuilding
// the bitmap from the inode table.
func (a *Alloc) MarkUsed(n uint64) {
	if n >= a.max {
		panic("MarkUsed")
	}
	a.lock.Lock()
	a.setBit(n)
	a.lock.Unlock()
}

// AllocNum returns the lowest free number at or above start and marks it in
// use, or 0 if everything is in use.
func (a *Alloc) AllocNum() uint64 {
	var num uint64 = 0
	a.lock.Lock()
	for n := a.start; n < a.max; n++ {
		if !a.isSet(n) {
			a.setBit(n)
			num = n
			break
		}
	}
	a.lock.Unlock()
	util.DPrintf(5, "AllocNum: %d\n", num)
	return num
}

// FreeNum releases n. Reserved and out-of-range numbers are ignored.
func (a *Alloc) FreeNum(num uint64) {
	if num < a.start || num >= a.max {
		util.DPrintf(1, "FreeNum: ignoring reserved number %d\n", num)
		return
	}
	a.lock.Lock()
	a.clearBit(num)
	a.lock.Unlock()
	util.DPrintf(5, "FreeNum: %d\n", num)
}

// IsUsed reports whether n is in use; numbers past the end never are.
func (a *Alloc) IsUsed(n uint64) bool {
	if n >= a.max {
		return false
	}
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.isSet(n)
}

// Used lists every number in use, reserved ones included, in ascending order.
func (a *Alloc) Used() []uint64 {
	var used []uint64
	a.lock.Lock()
	for n := uint64(0); n < a.max; n++ {
		if a.isSet(n) {
			used = append(used, n)
		}
	}
	a.lock.Unlock()
	return used
}

func popCnt(b byte) uint64 {
	var count uint64
	var x = b
	for i := uint64(0); i < 8; i++ {
		count += uint64(x & 1)
		x = x >> 1
	}
	return count
}

func (a *Alloc) NumFree() uint64 {
	a.lock.Lock()
	total := a.max
	var used uint64
	for _, b := range a.bitmap {
		used += popCnt(b)
	}
	a.lock.Unlock()
	return total - used
}
