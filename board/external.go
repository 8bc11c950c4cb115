package board

import (
	"errors"
	"fmt"
	"strings"

	"tinygo.org/x/drivers"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/device"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/hw/i2creg"
	"omibyte.io/bringup/hw/spireg"
)

var (
	ErrExternal = errors.New("bad external chip")
	ErrNoBus    = errors.New("no bus for external chip")
)

// External is a register chip outside the MCU, such as a radio on SPI or a
// monitor on I2C. Its registers are mapped at Base+offset so board writes
// name them like on-chip ones ("RADIO.CONFIG.PWR_UP") and the plan reaches
// them through a bus backend.
type External struct {
	Name      string             `yaml:"name"`
	Bus       string             `yaml:"bus"`     // spi or i2c
	Chip      string             `yaml:"chip"`    // spi framing preset
	Address   uint16             `yaml:"address"` // i2c bus address
	Width     int                `yaml:"width"`   // bytes per register
	Base      uint32             `yaml:"base"`
	Registers []ExternalRegister `yaml:"registers"`
}

// ExternalRegister is one register of an external chip. Offset is the
// register number on the bus.
type ExternalRegister struct {
	Name   string          `yaml:"name"`
	Offset uint32          `yaml:"offset"`
	Access string          `yaml:"access"`
	Reset  uint64          `yaml:"reset"`
	Fields []ExternalField `yaml:"fields"`
}

// ExternalField is a bit field of an external register.
type ExternalField struct {
	Name   string `yaml:"name"`
	Offset uint   `yaml:"offset"`
	Width  uint   `yaml:"width"`
}

// Buses carries the buses external chips hang off. SPI is keyed by chip
// name since each chip has its own select line.
type Buses struct {
	SPI map[string]drivers.SPI
	I2C drivers.I2C
}

func (e External) width() int {
	if e.Width > 0 {
		return e.Width
	}
	if strings.EqualFold(e.Bus, "i2c") {
		return 2
	}
	return 1
}

// span is the size of the address window, one past the highest offset.
func (e External) span() uint32 {
	var n uint32
	for _, r := range e.Registers {
		if r.Offset+1 > n {
			n = r.Offset + 1
		}
	}
	return n
}

// Contains reports whether addr falls in the chip's window.
func (e External) Contains(addr uint32) bool {
	return addr >= e.Base && addr-e.Base < e.span()
}

func (e External) peripheral() (*device.Peripheral, error) {
	p := &device.Peripheral{Name: e.Name, Group: "EXTERNAL", Base: e.Base}
	for _, er := range e.Registers {
		access, err := bitfield.ParseAccess(er.Access)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", e.Name, er.Name, err)
		}
		reg, err := bitfield.NewRegister(e.Name+"_"+er.Name, e.Base+er.Offset, uint(e.width())*8, access, er.Reset)
		if err != nil {
			return nil, err
		}
		dr := &device.Register{Register: reg}
		for _, ef := range er.Fields {
			f, err := bitfield.Define(reg, ef.Offset, ef.Width)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", reg.Name, ef.Name, err)
			}
			dr.Fields = append(dr.Fields, device.Field{Name: ef.Name, Field: f})
		}
		p.Registers = append(p.Registers, dr)
	}
	return p, nil
}

// registers returns the chip's registers at their bus offsets.
func (e External) registers() []bitfield.Register {
	regs := make([]bitfield.Register, 0, len(e.Registers))
	for _, er := range e.Registers {
		access, _ := bitfield.ParseAccess(er.Access)
		regs = append(regs, bitfield.Register{Name: er.Name, Address: er.Offset, Width: uint(e.width()) * 8, Access: access, Reset: er.Reset})
	}
	return regs
}

// Attach adds the board's external chips to dev as peripherals.
func (b *Board) Attach(dev *device.Device) error {
	for _, e := range b.External {
		if _, err := dev.Peripheral(e.Name); err == nil {
			return fmt.Errorf("%s: name taken by an on-chip peripheral: %w", e.Name, ErrExternal)
		}
		switch strings.ToLower(e.Bus) {
		case "spi", "i2c":
		default:
			return fmt.Errorf("%s: bus %q: %w", e.Name, e.Bus, ErrExternal)
		}
		p, err := e.peripheral()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExternal, err)
		}
		dev.Peripherals = append(dev.Peripherals, p)
	}
	return nil
}

// Backend returns onchip with every external chip's window routed to a
// register backend on its bus. Without external chips it returns onchip.
func (b *Board) Backend(onchip hw.Backend, buses Buses) (hw.Backend, error) {
	if len(b.External) == 0 {
		return onchip, nil
	}
	router := hw.NewRouter(onchip)
	for _, e := range b.External {
		var chip hw.Backend
		switch strings.ToLower(e.Bus) {
		case "spi":
			bus := buses.SPI[e.Name]
			if bus == nil {
				return nil, fmt.Errorf("%s: %w", e.Name, ErrNoBus)
			}
			cfg, err := spireg.Preset(e.Chip)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			cfg.Width = e.width()
			chip = spireg.New(bus, cfg)
		case "i2c":
			if buses.I2C == nil {
				return nil, fmt.Errorf("%s: %w", e.Name, ErrNoBus)
			}
			chip = i2creg.New(buses.I2C, e.Address, e.width())
		default:
			return nil, fmt.Errorf("%s: bus %q: %w", e.Name, e.Bus, ErrExternal)
		}
		if err := router.Map(e.Base, e.span(), chip); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return router, nil
}

// Emulate returns buses serving every external chip from a simulated
// register file, keyed by chip name in the second result.
func (b *Board) Emulate() (Buses, map[string]*hw.Memory, error) {
	buses := Buses{SPI: make(map[string]drivers.SPI)}
	files := make(map[string]*hw.Memory, len(b.External))
	var i2c *i2creg.Bus
	for _, e := range b.External {
		mem := hw.NewMemory(e.registers()...)
		mem.Strict = true
		files[e.Name] = mem
		switch strings.ToLower(e.Bus) {
		case "spi":
			cfg, err := spireg.Preset(e.Chip)
			if err != nil {
				return Buses{}, nil, fmt.Errorf("%s: %w", e.Name, err)
			}
			cfg.Width = e.width()
			buses.SPI[e.Name] = spireg.NewEmulator(cfg, mem)
		case "i2c":
			if i2c == nil {
				i2c = i2creg.NewBus()
				buses.I2C = i2c
			}
			i2c.Attach(e.Address, mem, e.width())
		}
	}
	return buses, files, nil
}
