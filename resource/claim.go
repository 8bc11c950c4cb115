// Package resource defines the declarations peripheral modules make about the
// hardware they need, and the aggregation pass that flattens and groups them.
package resource

import (
	"fmt"

	"omibyte.io/bringup/bitfield"
)

// Kind classifies a claim and its target.
type Kind uint8

const (
	KindUnique Kind = iota
	KindShared
	KindIrq
)

func (k Kind) String() string {
	switch k {
	case KindUnique:
		return "unique"
	case KindShared:
		return "shared"
	case KindIrq:
		return "irq"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

// Target identifies what a claim competes for: a unique tag, a register
// address or an interrupt number.
type Target struct {
	Kind Kind
	Tag  string
	Addr uint32
	IRQ  int
}

func (t Target) String() string {
	switch t.Kind {
	case KindUnique:
		return t.Tag
	case KindShared:
		return fmt.Sprintf("%#08x", t.Addr)
	default:
		return fmt.Sprintf("irq %d", t.IRQ)
	}
}

// Item is an element of a Set: a Claim or a nested Set.
type Item interface {
	isItem()
}

// Claim is a single declared requirement.
type Claim interface {
	Item
	Target() Target
}

// Unique claims exclusive ownership of Tag system-wide.
type Unique struct {
	Tag string
}

func (Unique) isItem()          {}
func (u Unique) Target() Target { return Target{Kind: KindUnique, Tag: u.Tag} }

// SharedWrite contributes a mask to its register's merged write.
type SharedWrite struct {
	Mask bitfield.Mask
}

func (SharedWrite) isItem()          {}
func (w SharedWrite) Target() Target { return Target{Kind: KindShared, Addr: w.Mask.Reg.Address} }

// Handler is the code address installed in a vector table slot.
type Handler struct {
	Symbol string `yaml:"symbol" cbor:"1,keyasint"`
	Addr   uint32 `yaml:"addr" cbor:"2,keyasint"`
}

func (h Handler) String() string { return fmt.Sprintf("%s@%#08x", h.Symbol, h.Addr) }

// IrqBinding binds Handler to interrupt number IRQ. Negative numbers address
// core exceptions (-1 is SysTick on Cortex-M).
type IrqBinding struct {
	IRQ     int
	Handler Handler
}

func (IrqBinding) isItem()          {}
func (b IrqBinding) Target() Target { return Target{Kind: KindIrq, IRQ: b.IRQ} }

// Write is shorthand for a SharedWrite of m.
func Write(m bitfield.Mask) SharedWrite { return SharedWrite{Mask: m} }

// Bind is shorthand for an IrqBinding.
func Bind(irq int, h Handler) IrqBinding { return IrqBinding{IRQ: irq, Handler: h} }
