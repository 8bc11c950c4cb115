package bitfield

import "fmt"

// OpKind is the kind of a lowered register operation.
type OpKind uint8

const (
	OpLoad     OpKind = iota // acc = load(addr)
	OpAnd                    // acc &= value
	OpOr                     // acc |= value
	OpStore                  // store(addr, acc)
	OpStoreImm               // store(addr, value)
)

func (k OpKind) String() string {
	switch k {
	case OpLoad:
		return "LOAD"
	case OpAnd:
		return "AND"
	case OpOr:
		return "OR"
	case OpStore:
		return "STORE"
	case OpStoreImm:
		return "STORE_IMM"
	default:
		return fmt.Sprintf("op(%d)", k)
	}
}

// Op is one step of a register write sequence. Sequences operate on a single
// accumulator.
type Op struct {
	Kind  OpKind `cbor:"1,keyasint"`
	Addr  uint32 `cbor:"2,keyasint"`
	Value uint64 `cbor:"3,keyasint,omitempty"`
}

func (o Op) String() string {
	switch o.Kind {
	case OpLoad, OpStore:
		return fmt.Sprintf("%-9s %#08x", o.Kind, o.Addr)
	default:
		return fmt.Sprintf("%-9s %#08x %#x", o.Kind, o.Addr, o.Value)
	}
}
