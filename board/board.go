// Package board loads YAML board descriptions and resolves them against a
// device model into bring-up phases.
package board

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/configure"
	"omibyte.io/bringup/device"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/pin"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/targets"
	"omibyte.io/bringup/tick"
)

var (
	ErrNoPinLayout = errors.New("target has no pin layout")
	ErrWrite       = errors.New("write needs a field or a register")
)

// Board is a board description.
type Board struct {
	Chip     string           `yaml:"chip"`
	StackTop uint32           `yaml:"stackTop"`
	Default  resource.Handler `yaml:"defaultHandler"`
	Phases   []Phase          `yaml:"phases"`
	SysTick  *SysTick         `yaml:"systick"`
	External []External       `yaml:"external"`
}

// Phase is a named group of peripherals.
type Phase struct {
	Name        string       `yaml:"name"`
	After       []string     `yaml:"after"`
	Peripherals []Peripheral `yaml:"peripherals"`
}

// Peripheral declares what one peripheral module needs. Include nests other
// modules under it.
type Peripheral struct {
	Name    string       `yaml:"name"`
	Claims  []string     `yaml:"claims"`
	Pins    []Pin        `yaml:"pins"`
	Writes  []Write      `yaml:"writes"`
	IRQs    []IRQ        `yaml:"irqs"`
	Include []Peripheral `yaml:"include"`
}

// Pin is a pin.Config in YAML form.
type Pin struct {
	Pin    string         `yaml:"pin"`
	Mode   pin.Mode       `yaml:"mode"`
	Type   pin.OutputType `yaml:"type"`
	Speed  pin.Speed      `yaml:"speed"`
	Pull   pin.Pull       `yaml:"pull"`
	Active pin.Polarity   `yaml:"active"`
	AF     uint8          `yaml:"af"`
}

// Write is either a field value ("PERIPH.REG.FIELD", value) or a raw mask on
// a register ("PERIPH.REG", set, clear). A field without a value is set to
// all ones.
type Write struct {
	Field    string  `yaml:"field"`
	Value    *uint64 `yaml:"value"`
	Register string  `yaml:"register"`
	Set      uint64  `yaml:"set"`
	Clear    uint64  `yaml:"clear"`
}

func (w Write) target() string {
	if w.Field != "" {
		return w.Field
	}
	return w.Register
}

// IRQ binds a handler to an interrupt given by name or number.
type IRQ struct {
	IRQ     string           `yaml:"irq"`
	Handler resource.Handler `yaml:"handler"`
}

// SysTick adds the system timer to Phase and starts it in Start.
type SysTick struct {
	CoreClock uint32           `yaml:"coreClock"`
	Rate      uint32           `yaml:"rate"`
	Priority  uint8            `yaml:"priority"`
	Handler   resource.Handler `yaml:"handler"`
	Phase     string           `yaml:"phase"`
	Start     string           `yaml:"start"`
}

// Load decodes a board description. Unknown keys are errors.
func Load(r io.Reader) (*Board, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var b Board
	if err := dec.Decode(&b); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	return &b, nil
}

// Target looks up the board's chip in the catalogue.
func (b *Board) Target() (targets.TargetInfo, error) {
	return targets.All().FindByChip(b.Chip)
}

// Options returns driver options for the board. The vector layout comes
// from the catalogue when the chip is known and from the device otherwise.
func (b *Board) Options(dev *device.Device) configure.Options {
	opts := configure.Options{StackTop: b.StackTop, Default: b.Default, Layout: dev.Layout()}
	if info, err := b.Target(); err == nil {
		opts.Layout = info.Layout()
		if opts.StackTop == 0 {
			opts.StackTop = info.StackTop()
		}
	}
	return opts
}

// PinResolver returns the pin layout of the board's chip.
func (b *Board) PinResolver() (pin.Resolver, error) {
	info, err := b.Target()
	if err != nil {
		return nil, err
	}
	switch info.Pins {
	case "stm32f4":
		return pin.STM32F4, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoPinLayout, info.Series)
}

// PinClocks names the phase Resolve adds ahead of every phase that has no
// After list when pins are declared. It holds the port clock enables.
const PinClocks = "pin-clocks"

// Resolve turns the board into phases. pins may be nil when no peripheral
// declares pins. Values that do not fit their field are recorded as
// violations and resolution continues; the phases are then returned along
// with a *configure.ValidationError listing them.
func (b *Board) Resolve(dev *device.Device, pins pin.Resolver) ([]configure.Phase, error) {
	r := &resolver{dev: dev, pins: pins, clocks: resource.NewSet("")}
	phases := make([]configure.Phase, 0, len(b.Phases)+1)
	for _, ph := range b.Phases {
		set := resource.NewSet("")
		for _, p := range ph.Peripherals {
			s, err := r.peripheral(p, ph.Name)
			if err != nil {
				return nil, fmt.Errorf("phase %s: %w", ph.Name, err)
			}
			set = set.Add(s)
		}
		phases = append(phases, configure.Phase{Name: ph.Name, After: ph.After, Resources: set})
	}
	if len(r.clocks.Items) > 0 {
		for i := range phases {
			if len(phases[i].After) == 0 {
				phases[i].After = []string{PinClocks}
			}
		}
		phases = append([]configure.Phase{{Name: PinClocks, Resources: r.clocks}}, phases...)
	}
	if b.SysTick != nil {
		if err := b.addSysTick(phases); err != nil {
			return nil, err
		}
	}
	if !r.report.Valid() {
		return phases, &configure.ValidationError{Report: &r.report}
	}
	return phases, nil
}

func (b *Board) addSysTick(phases []configure.Phase) error {
	st := b.SysTick
	set, err := tick.Resources(tick.Config{CoreClock: st.CoreClock, Rate: st.Rate, Priority: st.Priority, Handler: st.Handler})
	if err != nil {
		return err
	}
	found := 0
	for i := range phases {
		switch phases[i].Name {
		case st.Phase:
			phases[i].Resources = phases[i].Resources.Add(set)
			found++
		case st.Start:
			phases[i].Resources = phases[i].Resources.Add(tick.Start())
			found++
		}
	}
	if found != 2 || st.Phase == st.Start {
		return fmt.Errorf("systick phases %q and %q: %w", st.Phase, st.Start, configure.ErrUnknownPhase)
	}
	return nil
}

type resolver struct {
	dev    *device.Device
	pins   pin.Resolver
	clocks resource.Set
	report diag.Report
}

// peripheral resolves p declared under path, the same slash-joined origin
// the validator reports.
func (r *resolver) peripheral(p Peripheral, path string) (resource.Set, error) {
	path += "/" + p.Name
	set := resource.NewSet(p.Name)
	for _, tag := range p.Claims {
		set = set.Add(resource.Unique{Tag: tag})
	}
	for _, pp := range p.Pins {
		s, err := r.pin(pp, path)
		if err != nil {
			return resource.Set{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		set = set.Add(s)
	}
	for _, w := range p.Writes {
		m, err := r.write(w)
		if code, ok := diag.Of(err); ok {
			r.report.Addf(code, w.target(), []string{path}, "%v", err)
			continue
		}
		if err != nil {
			return resource.Set{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		set = set.Add(resource.Write(m))
	}
	for _, irq := range p.IRQs {
		n, err := r.irq(irq.IRQ)
		if err != nil {
			return resource.Set{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		set = set.Add(resource.Bind(n, irq.Handler))
	}
	for _, inc := range p.Include {
		s, err := r.peripheral(inc, path)
		if err != nil {
			return resource.Set{}, fmt.Errorf("%s: %w", p.Name, err)
		}
		set = set.Add(s)
	}
	return set, nil
}

// pin returns the pin's configuration and files its port clock enable
// under path in the clocks set.
func (r *resolver) pin(p Pin, path string) (resource.Set, error) {
	if r.pins == nil {
		return resource.Set{}, ErrNoPinLayout
	}
	port, num, err := pin.ParseName(p.Pin)
	if err != nil {
		return resource.Set{}, err
	}
	cfg := pin.Config{
		Port: port, Number: num,
		Mode: p.Mode, Type: p.Type, Speed: p.Speed, Pull: p.Pull, Active: p.Active, AF: p.AF,
	}
	clk, err := pin.Clocks(cfg, r.pins)
	if err != nil {
		return resource.Set{}, err
	}
	r.clocks = r.clocks.Add(resource.NewSet(path, clk))
	return pin.Resources(cfg, r.pins)
}

func (r *resolver) write(w Write) (bitfield.Mask, error) {
	switch {
	case w.Field != "":
		f, err := r.dev.Field(w.Field)
		if err != nil {
			return bitfield.Mask{}, err
		}
		if w.Value == nil {
			return f.Set(), nil
		}
		return bitfield.Constant{Field: f, Value: *w.Value}.Mask()
	case w.Register != "":
		reg, err := r.dev.Register(w.Register)
		if err != nil {
			return bitfield.Mask{}, err
		}
		// Shape errors are left to the validator so they carry an origin.
		return bitfield.Mask{Reg: reg.Register, Set: w.Set, Clear: w.Clear}, nil
	}
	return bitfield.Mask{}, ErrWrite
}

func (r *resolver) irq(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	return r.dev.Interrupt(s)
}
