package i2creg

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"

	"omibyte.io/bringup/hw"
)

var ErrNack = errors.New("no device acknowledged")

// Bus is an I2C bus of emulated register chips, each served from a backend
// with the same little-endian framing Device uses.
type Bus struct {
	chips map[uint16]chip
}

type chip struct {
	regs  hw.Backend
	width int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{chips: make(map[uint16]chip)}
}

// Attach puts a chip with width-byte registers at addr.
func (b *Bus) Attach(addr uint16, regs hw.Backend, width int) {
	b.chips[addr] = chip{regs: regs, width: New(nil, addr, width).width}
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	c, ok := b.chips[addr]
	if !ok || len(w) == 0 {
		return fmt.Errorf("%#02x: %w", addr, ErrNack)
	}
	reg := uint32(w[0])
	if len(r) > 0 {
		v, err := c.regs.Load(reg)
		if err != nil {
			return err
		}
		for i := range r {
			r[i] = byte(v >> (8 * i))
		}
		return nil
	}
	if len(w) == 1 {
		return nil
	}
	var v uint64
	for i := len(w) - 1; i >= 1; i-- {
		v = v<<8 | uint64(w[i])
	}
	return c.regs.Store(reg, v)
}

var _ drivers.I2C = (*Bus)(nil)
