// Package device is the resolved register model of a chip: absolute
// addresses, widths, access modes, reset values, fields and interrupts.
package device

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/svd"
	"omibyte.io/bringup/vector"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrDerivation = errors.New("bad derivedFrom")
)

// Device is a chip.
type Device struct {
	Name        string
	Series      string
	CPU         string
	Peripherals []*Peripheral
	Interrupts  []Interrupt
}

// Peripheral is a register block.
type Peripheral struct {
	Name      string
	Group     string
	Base      uint32
	Registers []*Register
}

// Register is a register with its named fields.
type Register struct {
	bitfield.Register
	Fields []Field
}

// Field is a named bit field.
type Field struct {
	Name string
	bitfield.Field
}

// Interrupt is a named peripheral interrupt number.
type Interrupt struct {
	Name string
	IRQ  int
}

// Peripheral returns the named peripheral.
func (d *Device) Peripheral(name string) (*Peripheral, error) {
	for _, p := range d.Peripherals {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("peripheral %s: %w", name, ErrNotFound)
}

// Register resolves "PERIPH.REG".
func (d *Device) Register(path string) (*Register, error) {
	pname, rname, ok := strings.Cut(path, ".")
	if !ok {
		return nil, fmt.Errorf("register %q: want PERIPHERAL.REGISTER: %w", path, ErrNotFound)
	}
	p, err := d.Peripheral(pname)
	if err != nil {
		return nil, err
	}
	return p.Register(rname)
}

// Field resolves "PERIPH.REG.FIELD".
func (d *Device) Field(path string) (bitfield.Field, error) {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return bitfield.Field{}, fmt.Errorf("field %q: %w", path, ErrNotFound)
	}
	r, err := d.Register(path[:i])
	if err != nil {
		return bitfield.Field{}, err
	}
	return r.Field(path[i+1:])
}

// Interrupt returns the number of the named interrupt.
func (d *Device) Interrupt(name string) (int, error) {
	for _, irq := range d.Interrupts {
		if strings.EqualFold(irq.Name, name) {
			return irq.IRQ, nil
		}
	}
	return 0, fmt.Errorf("interrupt %s: %w", name, ErrNotFound)
}

// Layout returns the Cortex-M vector layout sized for the device's highest
// interrupt number.
func (d *Device) Layout() vector.Layout {
	n := 0
	for _, irq := range d.Interrupts {
		if irq.IRQ+1 > n {
			n = irq.IRQ + 1
		}
	}
	return vector.CortexM(n)
}

// Registers returns every register of the device.
func (d *Device) Registers() []bitfield.Register {
	var out []bitfield.Register
	for _, p := range d.Peripherals {
		for _, r := range p.Registers {
			out = append(out, r.Register)
		}
	}
	return out
}

// Register returns the named register.
func (p *Peripheral) Register(name string) (*Register, error) {
	for _, r := range p.Registers {
		if strings.EqualFold(strings.TrimPrefix(r.Name, p.Name+"_"), name) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("register %s.%s: %w", p.Name, name, ErrNotFound)
}

// Field returns the named field.
func (r *Register) Field(name string) (bitfield.Field, error) {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Name, name) {
			return f.Field, nil
		}
	}
	return bitfield.Field{}, fmt.Errorf("field %s.%s: %w", r.Name, name, ErrNotFound)
}

// FromSVD resolves an SVD description.
func FromSVD(s *svd.Device) (*Device, error) {
	d := &Device{Name: s.Name, Series: s.Series, CPU: s.CPU.Name}
	defaults := properties{size: 32, access: s.Access, reset: uint64(s.ResetValue)}
	if s.Size != 0 {
		defaults.size = uint(s.Size)
	}

	for _, sp := range s.Peripherals.Elements {
		src := sp
		if sp.DerivedFrom != "" {
			i, ok := s.Peripherals.Find(sp.DerivedFrom)
			if !ok {
				return nil, fmt.Errorf("%s derived from %s: %w", sp.Name, sp.DerivedFrom, ErrDerivation)
			}
			base := s.Peripherals.Elements[i]
			if base.DerivedFrom != "" {
				return nil, fmt.Errorf("%s derived from derived %s: %w", sp.Name, base.Name, ErrDerivation)
			}
			if len(sp.Registers.Registers) == 0 && len(sp.Registers.Clusters) == 0 {
				src.Registers = base.Registers
				src.Size, src.Access, src.ResetValue = base.Size, base.Access, base.ResetValue
			}
			if sp.Group == "" {
				src.Group = base.Group
			}
		}

		p := &Peripheral{Name: sp.Name, Group: src.Group, Base: uint32(sp.BaseAddress)}
		pdef := defaults.inherit(src.Size, src.Access, src.ResetValue)
		for _, sr := range src.Registers.Registers {
			regs, err := resolve(p, "", p.Base, sr, pdef)
			if err != nil {
				return nil, err
			}
			p.Registers = append(p.Registers, regs...)
		}
		for _, c := range src.Registers.Clusters {
			n, inc := dims(c.Dim, c.DimIncrement)
			for i := 0; i < n; i++ {
				prefix := expand(c.Name, i, c.Dim) + "_"
				base := p.Base + uint32(c.AddressOffset) + uint32(i)*inc
				for _, sr := range c.Registers {
					regs, err := resolve(p, prefix, base, sr, pdef)
					if err != nil {
						return nil, err
					}
					p.Registers = append(p.Registers, regs...)
				}
			}
		}
		slices.SortStableFunc(p.Registers, func(a, b *Register) bool { return a.Address < b.Address })
		d.Peripherals = append(d.Peripherals, p)

		for _, irq := range sp.Interrupts {
			if !slices.ContainsFunc(d.Interrupts, func(x Interrupt) bool { return x.Name == irq.Name }) {
				d.Interrupts = append(d.Interrupts, Interrupt{Name: irq.Name, IRQ: int(irq.Value)})
			}
		}
	}
	slices.SortStableFunc(d.Interrupts, func(a, b Interrupt) bool { return a.IRQ < b.IRQ })
	return d, nil
}

type properties struct {
	size   uint
	access string
	reset  uint64
}

func (p properties) inherit(size svd.Integer, access string, reset *svd.Integer) properties {
	if size != 0 {
		p.size = uint(size)
	}
	if access != "" {
		p.access = access
	}
	if reset != nil {
		p.reset = uint64(*reset)
	}
	return p
}

func dims(dim, inc svd.Integer) (int, uint32) {
	if dim == 0 {
		return 1, 0
	}
	return int(dim), uint32(inc)
}

func expand(name string, i int, dim svd.Integer) string {
	if dim == 0 {
		return name
	}
	idx := fmt.Sprint(i)
	if strings.Contains(name, "[%s]") {
		return strings.Replace(name, "[%s]", idx, 1)
	}
	return strings.Replace(name, "%s", idx, 1)
}

func resolve(p *Peripheral, prefix string, base uint32, sr svd.Register, def properties) ([]*Register, error) {
	props := def.inherit(sr.Size, sr.Access, sr.ResetValue)
	access, err := bitfield.ParseAccess(props.access)
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", p.Name, sr.Name, err)
	}
	n, inc := dims(sr.Dim, sr.DimIncrement)
	out := make([]*Register, 0, n)
	for i := 0; i < n; i++ {
		name := p.Name + "_" + prefix + expand(sr.Name, i, sr.Dim)
		addr := base + uint32(sr.AddressOffset) + uint32(i)*inc
		reg, err := bitfield.NewRegister(name, addr, props.size, access, props.reset)
		if err != nil {
			return nil, err
		}
		r := &Register{Register: reg}
		for _, sf := range sr.Fields.Elements {
			off, width, err := sf.Bits()
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			f, err := bitfield.Define(reg, off, width)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", name, sf.Name, err)
			}
			r.Fields = append(r.Fields, Field{Name: sf.Name, Field: f})
		}
		out = append(out, r)
	}
	return out, nil
}
