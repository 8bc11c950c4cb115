// Package i2creg exposes the register file of an I2C peripheral as an
// hw.Backend. Registers are addressed by a one-byte pointer and hold
// little-endian words of a fixed size, as on SMBus chargers and monitors.
package i2creg

import (
	"errors"
	"fmt"

	"tinygo.org/x/drivers"

	"omibyte.io/bringup/hw"
)

var ErrAddress = errors.New("register pointer out of range")

// Device is a register file at one bus address.
type Device struct {
	bus   drivers.I2C
	addr  uint16
	width int // bytes per register
	w     [9]byte
	r     [8]byte
}

// New returns a backend for the device at addr with width-byte registers.
func New(bus drivers.I2C, addr uint16, width int) *Device {
	if width <= 0 || width > 8 {
		width = 2
	}
	return &Device{bus: bus, addr: addr, width: width}
}

func (d *Device) Load(reg uint32) (uint64, error) {
	if reg > 0xff {
		return 0, fmt.Errorf("%#x: %w", reg, ErrAddress)
	}
	d.w[0] = byte(reg)
	if err := d.bus.Tx(d.addr, d.w[:1], d.r[:d.width]); err != nil {
		return 0, fmt.Errorf("i2c %#02x read %#02x: %w", d.addr, reg, err)
	}
	var v uint64
	for i := d.width - 1; i >= 0; i-- {
		v = v<<8 | uint64(d.r[i])
	}
	return v, nil
}

func (d *Device) Store(reg uint32, value uint64) error {
	if reg > 0xff {
		return fmt.Errorf("%#x: %w", reg, ErrAddress)
	}
	d.w[0] = byte(reg)
	for i := 0; i < d.width; i++ {
		d.w[1+i] = byte(value >> (8 * i))
	}
	if err := d.bus.Tx(d.addr, d.w[:1+d.width], nil); err != nil {
		return fmt.Errorf("i2c %#02x write %#02x: %w", d.addr, reg, err)
	}
	return nil
}

var _ hw.Backend = (*Device)(nil)
