package hw

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"omibyte.io/bringup/bitfield"
)

// Memory is a simulated register file. Registers are seeded with their
// reset values; with Strict set, accesses to unseeded addresses fail.
type Memory struct {
	Strict bool
	regs   map[uint32]uint64
	widths map[uint32]uint
}

// NewMemory returns a memory holding regs at their reset values.
func NewMemory(regs ...bitfield.Register) *Memory {
	m := &Memory{regs: make(map[uint32]uint64), widths: make(map[uint32]uint)}
	m.Seed(regs...)
	return m
}

// Seed (re)sets regs to their reset values.
func (m *Memory) Seed(regs ...bitfield.Register) {
	for _, r := range regs {
		m.regs[r.Address] = r.Reset
		m.widths[r.Address] = r.Width
	}
}

// Poke sets a register without going through the engine.
func (m *Memory) Poke(addr uint32, value uint64) { m.regs[addr] = value }

func (m *Memory) Load(addr uint32) (uint64, error) {
	v, ok := m.regs[addr]
	if !ok && m.Strict {
		return 0, fmt.Errorf("load %#08x: %w", addr, ErrUnmapped)
	}
	return v, nil
}

func (m *Memory) Store(addr uint32, value uint64) error {
	w, ok := m.widths[addr]
	if !ok {
		if m.Strict {
			return fmt.Errorf("store %#08x: %w", addr, ErrUnmapped)
		}
		w = 64
	}
	if w < 64 {
		value &= uint64(1)<<w - 1
	}
	m.regs[addr] = value
	return nil
}

// Addresses returns every address holding a value, ascending.
func (m *Memory) Addresses() []uint32 {
	addrs := maps.Keys(m.regs)
	slices.Sort(addrs)
	return addrs
}

// Snapshot copies the current register contents.
func (m *Memory) Snapshot() map[uint32]uint64 { return maps.Clone(m.regs) }
