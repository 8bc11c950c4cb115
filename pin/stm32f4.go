package pin

import (
	"fmt"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/resource"
)

// GPIO register offsets from the port base.
const (
	offMODER   = 0x00
	offOTYPER  = 0x04
	offOSPEEDR = 0x08
	offPUPDR   = 0x0c
	offAFRL    = 0x20
	offAFRH    = 0x24
)

// Bank is one GPIO port: its register block and its clock-enable bit.
type Bank struct {
	Base  uint32
	Clock bitfield.Field
}

// Resolver finds the bank of a port letter.
type Resolver func(port byte) (Bank, error)

// STM32F4 resolves ports A-K on the AHB1 bus.
func STM32F4(port byte) (Bank, error) {
	if port < 'A' || port > 'K' {
		return Bank{}, fmt.Errorf("%w: %c", ErrPort, port)
	}
	i := uint(port - 'A')
	ahb1enr := bitfield.Register{Name: "RCC_AHB1ENR", Address: 0x40023830, Width: 32, Reset: 0x00100000}
	clk, err := bitfield.Define(ahb1enr, i, 1)
	if err != nil {
		return Bank{}, err
	}
	return Bank{Base: 0x40020000 + 0x400*uint32(i), Clock: clk}, nil
}

// Reset values of port A, which differ from the other ports because of the
// debug pins.
func resetValue(port byte, off uint32) uint64 {
	switch {
	case port == 'A' && off == offMODER:
		return 0xa8000000
	case port == 'A' && off == offOSPEEDR:
		return 0x0c000000
	case port == 'A' && off == offPUPDR:
		return 0x64000000
	case port == 'B' && off == offMODER:
		return 0x00000280
	case port == 'B' && off == offOSPEEDR:
		return 0x000000c0
	case port == 'B' && off == offPUPDR:
		return 0x00000100
	}
	return 0
}

var regNames = map[uint32]string{
	offMODER: "MODER", offOTYPER: "OTYPER", offOSPEEDR: "OSPEEDR",
	offPUPDR: "PUPDR", offAFRL: "AFRL", offAFRH: "AFRH",
}

// Registers returns the configuration registers of a port.
func Registers(port byte, bank Bank) []bitfield.Register {
	offs := []uint32{offMODER, offOTYPER, offOSPEEDR, offPUPDR, offAFRL, offAFRH}
	out := make([]bitfield.Register, len(offs))
	for i, off := range offs {
		out[i] = register(port, bank, off)
	}
	return out
}

func register(port byte, bank Bank, off uint32) bitfield.Register {
	return bitfield.Register{
		Name:    fmt.Sprintf("GPIO%c_%s", port, regNames[off]),
		Address: bank.Base + off,
		Width:   32,
		Reset:   resetValue(port, off),
	}
}

// Clocks declares the clock enable of the pin's port. Port registers ignore
// writes while the clock is off, so the set belongs in a phase before the
// one holding Resources.
func Clocks(c Config, resolve Resolver) (resource.Set, error) {
	bank, err := resolve(c.Port)
	if err != nil {
		return resource.Set{}, err
	}
	return resource.NewSet(c.Name(), resource.Write(bank.Clock.Set())), nil
}

// Resources declares the pin: its unique claim and the fields of the
// configuration registers its mode uses. The port clock is declared
// separately by Clocks.
func Resources(c Config, resolve Resolver) (resource.Set, error) {
	if c.Number > 15 {
		return resource.Set{}, fmt.Errorf("%w: %s", ErrName, c.Name())
	}
	if c.Mode > Analog || c.Type > OpenDrain || c.Speed > VeryHigh || c.Pull > PullDown || c.AF > 15 {
		return resource.Set{}, fmt.Errorf("%w: %s", ErrSetting, c.Name())
	}
	bank, err := resolve(c.Port)
	if err != nil {
		return resource.Set{}, err
	}

	set := resource.NewSet(c.Name(), resource.Unique{Tag: c.Tag()})
	field := func(off uint32, width uint, value uint64) error {
		n := c.Number
		if off == offAFRH {
			n -= 8
		}
		f, err := bitfield.Define(register(c.Port, bank, off), n*width, width)
		if err != nil {
			return err
		}
		m, err := f.WithValue(value)
		if err != nil {
			return err
		}
		set = set.Add(resource.Write(m))
		return nil
	}

	steps := []struct {
		off   uint32
		width uint
		value uint64
		when  bool
	}{
		{offMODER, 2, uint64(c.Mode), true},
		{offOTYPER, 1, uint64(c.Type), c.Mode == Output || c.Mode == Alternate},
		{offOSPEEDR, 2, uint64(c.Speed), c.Mode == Output || c.Mode == Alternate},
		{offPUPDR, 2, uint64(c.Pull), c.Mode != Analog},
		{offAFRL, 4, uint64(c.AF), c.Mode == Alternate && c.Number < 8},
		{offAFRH, 4, uint64(c.AF), c.Mode == Alternate && c.Number >= 8},
	}
	for _, s := range steps {
		if !s.when {
			continue
		}
		if err := field(s.off, s.width, s.value); err != nil {
			return resource.Set{}, fmt.Errorf("%s: %w", c.Name(), err)
		}
	}
	return set, nil
}
