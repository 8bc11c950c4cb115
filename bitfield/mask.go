package bitfield

import (
	"fmt"

	"omibyte.io/bringup/diag"
)

// Mask describes the bits a declaration touches in one register: Clear is
// every touched bit, Set the touched bits that end up as one. Set is always a
// subset of Clear.
type Mask struct {
	Reg   Register
	Set   uint64
	Clear uint64
}

// NewMask validates and returns a mask for reg.
func NewMask(reg Register, set, clear uint64) (Mask, error) {
	if !reg.Fits(set | clear) {
		return Mask{}, fmt.Errorf("%s: mask set=%#x clear=%#x: %w", reg, set, clear, diag.ErrWidthOverflow)
	}
	if set&^clear != 0 {
		return Mask{}, fmt.Errorf("%s: set bits %#x not in clear mask %#x: %w", reg, set&^clear, clear, diag.ErrInvalidMask)
	}
	return Mask{Reg: reg, Set: set, Clear: clear}, nil
}

// Empty returns the neutral mask for reg.
func Empty(reg Register) Mask { return Mask{Reg: reg} }

// Conflicts returns the bits one mask sets while the other declares them
// cleared.
func Conflicts(a, b Mask) uint64 {
	return (a.Set & b.Clear &^ b.Set) | (b.Set & a.Clear &^ a.Set)
}

// Merge unions two masks of the same register. It fails when one side sets a
// bit the other side clears.
func (m Mask) Merge(o Mask) (Mask, error) {
	if m.Reg.Address != o.Reg.Address {
		return Mask{}, fmt.Errorf("%s and %s: %w", m.Reg, o.Reg, ErrRegisterMismatch)
	}
	if m.Reg.Width != o.Reg.Width {
		return Mask{}, fmt.Errorf("%s: widths %d and %d: %w", m.Reg, m.Reg.Width, o.Reg.Width, diag.ErrWidthMismatch)
	}
	if c := Conflicts(m, o); c != 0 {
		return Mask{}, fmt.Errorf("%s: bits %#x both set and cleared: %w", m.Reg, c, diag.ErrMaskConflict)
	}
	return Mask{Reg: m.Reg, Set: m.Set | o.Set, Clear: m.Clear | o.Clear}, nil
}

// CroppedClear returns the clear bits that are not also set. It only saves
// instructions in a load/clear/set/store sequence and must never drive a
// correctness decision.
func (m Mask) CroppedClear() uint64 { return m.Clear &^ m.Set }

// CoversRegister reports whether the clear mask spans the whole register.
func (m Mask) CoversRegister() bool { return m.Clear == m.Reg.Full() }

// Value returns the register value after applying m to old.
func (m Mask) Value(old uint64) uint64 { return (old &^ m.Clear) | m.Set }

// IsZero reports whether the mask touches no bits.
func (m Mask) IsZero() bool { return m.Set == 0 && m.Clear == 0 }

func (m Mask) String() string {
	return fmt.Sprintf("%s{set=%#x clear=%#x}", m.Reg, m.Set, m.Clear)
}
