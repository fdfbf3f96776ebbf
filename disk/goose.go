package disk

import (
	gdisk "github.com/tchajed/goose/machine/disk"
)

// gooseDisk lets a goose machine disk serve as the file system's device.
// Goose disks panic on failure, so every method reports success.
type gooseDisk struct {
	d gdisk.Disk
}

var _ Disk = gooseDisk{}

// FromGoose wraps a goose disk. Goose uses the same 4096-byte block size.
func FromGoose(d gdisk.Disk) Disk {
	if gdisk.BlockSize != BlockSize {
		panic("goose block size mismatch")
	}
	return gooseDisk{d: d}
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	return g.d.Read(a), nil
}

func (g gooseDisk) ReadTo(a uint64, b Block) error {
	copy(b, g.d.Read(a))
	return nil
}

func (g gooseDisk) Write(a uint64, v Block) error {
	g.d.Write(a, v)
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size(), nil
}

func (g gooseDisk) Barrier() error {
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() error {
	g.d.Close()
	return nil
}
