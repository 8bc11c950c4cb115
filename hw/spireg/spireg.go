// Package spireg exposes the register file of an SPI peripheral (radio,
// port expander) as an hw.Backend. Each access is one transaction: a command
// byte carrying the register number followed by the data bytes.
package spireg

import (
	"encoding/binary"
	"errors"
	"fmt"

	"tinygo.org/x/drivers"

	"omibyte.io/bringup/hw"
)

var ErrAddress = errors.New("register number out of range")

// Config describes the command framing.
type Config struct {
	ReadCmd  byte // ORed with the register number for reads
	WriteCmd byte // ORed with the register number for writes
	AddrMask byte // register number bits inside the command byte
	Width    int  // data bytes per register
	Order    binary.ByteOrder
}

// NRF24 is the nRF24L01 framing: R_REGISTER 000AAAAA, W_REGISTER 001AAAAA.
var NRF24 = Config{ReadCmd: 0x00, WriteCmd: 0x20, AddrMask: 0x1f, Width: 1, Order: binary.LittleEndian}

// Device is an SPI register file. Select, when set, drives chip select
// around each transaction.
type Device struct {
	bus    drivers.SPI
	cfg    Config
	Select func(active bool)
	w, r   [9]byte
}

// New returns a backend on bus.
func New(bus drivers.SPI, cfg Config) *Device {
	if cfg.Width <= 0 || cfg.Width > 8 {
		cfg.Width = 1
	}
	if cfg.Order == nil {
		cfg.Order = binary.LittleEndian
	}
	return &Device{bus: bus, cfg: cfg}
}

func (d *Device) command(base byte, addr uint32) (byte, error) {
	if addr > uint32(d.cfg.AddrMask) {
		return 0, fmt.Errorf("%#x: %w", addr, ErrAddress)
	}
	return base | byte(addr)&d.cfg.AddrMask, nil
}

func (d *Device) tx(n int) error {
	if d.Select != nil {
		d.Select(true)
		defer d.Select(false)
	}
	return d.bus.Tx(d.w[:n], d.r[:n])
}

func (d *Device) Load(addr uint32) (uint64, error) {
	cmd, err := d.command(d.cfg.ReadCmd, addr)
	if err != nil {
		return 0, err
	}
	n := 1 + d.cfg.Width
	d.w = [9]byte{cmd}
	if err := d.tx(n); err != nil {
		return 0, fmt.Errorf("spi read %#x: %w", addr, err)
	}
	return decode(d.cfg.Order, d.r[1:n]), nil
}

func (d *Device) Store(addr uint32, value uint64) error {
	cmd, err := d.command(d.cfg.WriteCmd, addr)
	if err != nil {
		return err
	}
	n := 1 + d.cfg.Width
	d.w[0] = cmd
	encode(d.cfg.Order, d.w[1:n], value)
	if err := d.tx(n); err != nil {
		return fmt.Errorf("spi write %#x: %w", addr, err)
	}
	return nil
}

func decode(order binary.ByteOrder, b []byte) uint64 {
	var buf [8]byte
	if order == binary.BigEndian {
		copy(buf[8-len(b):], b)
		return binary.BigEndian.Uint64(buf[:])
	}
	copy(buf[:], b)
	return binary.LittleEndian.Uint64(buf[:])
}

func encode(order binary.ByteOrder, b []byte, v uint64) {
	var buf [8]byte
	if order == binary.BigEndian {
		binary.BigEndian.PutUint64(buf[:], v)
		copy(b, buf[8-len(b):])
		return
	}
	binary.LittleEndian.PutUint64(buf[:], v)
	copy(b, buf[:len(b)])
}

var _ hw.Backend = (*Device)(nil)
