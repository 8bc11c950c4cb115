// Package vector builds the interrupt vector table: slot 0 holds the initial
// stack pointer, slots 1..E the core exceptions and slots E+1..E+I the
// peripheral interrupts.
package vector

import (
	"encoding/binary"
	"fmt"

	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/resource"
)

// Layout is the architecture-defined shape of the table.
type Layout struct {
	CoreExceptions int `yaml:"coreExceptions" cbor:"1,keyasint"`
	Interrupts     int `yaml:"interrupts" cbor:"2,keyasint"`
}

// CortexM returns the ARMv7-M layout with n peripheral interrupts.
func CortexM(n int) Layout { return Layout{CoreExceptions: 15, Interrupts: n} }

// Len returns the number of slots including the stack pointer.
func (l Layout) Len() int { return 1 + l.CoreExceptions + l.Interrupts }

// Slot returns the table index for an interrupt number. Core exceptions use
// negative numbers, counted back from the first peripheral interrupt.
func (l Layout) Slot(irq int) (int, bool) {
	slot := 1 + l.CoreExceptions + irq
	if slot < 1 || slot >= l.Len() {
		return 0, false
	}
	return slot, true
}

// IRQ is the inverse of Slot.
func (l Layout) IRQ(slot int) int { return slot - 1 - l.CoreExceptions }

func (l Layout) validate() error {
	if l.CoreExceptions < 0 || l.Interrupts < 0 {
		return fmt.Errorf("%w: %d core exceptions, %d interrupts", ErrInvalidLayout, l.CoreExceptions, l.Interrupts)
	}
	return nil
}

// Builder places handlers into a table under construction.
type Builder struct {
	layout   Layout
	stackTop uint32
	def      resource.Handler
	slots    []resource.Handler
	frozen   bool
}

// NewBuilder allocates a table with every slot holding def.
func NewBuilder(layout Layout, stackTop uint32, def resource.Handler) (*Builder, error) {
	if err := layout.validate(); err != nil {
		return nil, err
	}
	b := &Builder{
		layout:   layout,
		stackTop: stackTop,
		def:      def,
		slots:    make([]resource.Handler, layout.Len()),
	}
	for i := 1; i < len(b.slots); i++ {
		b.slots[i] = def
	}
	return b, nil
}

// Bind installs h for irq. Binding the same handler twice is a no-op.
func (b *Builder) Bind(irq int, h resource.Handler) error {
	if b.frozen {
		return ErrFrozen
	}
	slot, ok := b.layout.Slot(irq)
	if !ok {
		return fmt.Errorf("irq %d outside %d-slot table: %w", irq, b.layout.Len(), diag.ErrIrqOutOfRange)
	}
	cur := b.slots[slot]
	if cur != b.def && cur != h {
		return fmt.Errorf("irq %d: %s already bound, cannot bind %s: %w", irq, cur, h, diag.ErrIrqDuplicate)
	}
	b.slots[slot] = h
	return nil
}

// Freeze ends construction and returns the immutable table.
func (b *Builder) Freeze() *Table {
	b.frozen = true
	slots := make([]resource.Handler, len(b.slots))
	copy(slots, b.slots)
	return &Table{Layout: b.layout, StackTop: b.stackTop, Default: b.def, Handlers: slots}
}

// Table is a frozen vector table. Handlers[0] is unused; slot 0 is StackTop.
type Table struct {
	Layout   Layout             `cbor:"1,keyasint"`
	StackTop uint32             `cbor:"2,keyasint"`
	Default  resource.Handler   `cbor:"3,keyasint"`
	Handlers []resource.Handler `cbor:"4,keyasint"`
}

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.Handlers) }

// Handler returns the handler in slot i (i >= 1).
func (t *Table) Handler(i int) resource.Handler { return t.Handlers[i] }

// Bound reports whether slot i holds something other than the default.
func (t *Table) Bound(i int) bool { return i > 0 && t.Handlers[i] != t.Default }

// Words returns the table as the words the hardware reads.
func (t *Table) Words() []uint32 {
	words := make([]uint32, len(t.Handlers))
	words[0] = t.StackTop
	for i := 1; i < len(words); i++ {
		words[i] = t.Handlers[i].Addr
	}
	return words
}

// Bytes returns the flashable image of the table.
func (t *Table) Bytes(order binary.ByteOrder) []byte {
	words := t.Words()
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		order.PutUint32(buf[4*i:], w)
	}
	return buf
}
