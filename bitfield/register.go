// Package bitfield implements the register algebra used by bring-up: register
// definitions, bit fields, set/clear masks and the write operations a merged
// mask lowers to.
package bitfield

import (
	"fmt"
	"strings"

	"omibyte.io/bringup/diag"
)

// Access is the access mode of a register.
type Access uint8

const (
	ReadWrite Access = iota
	ReadOnly
	WriteOnly
)

func (a Access) String() string {
	switch a {
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	case WriteOnly:
		return "write-only"
	default:
		return fmt.Sprintf("access(%d)", a)
	}
}

func (a Access) CanRead() bool  { return a != WriteOnly }
func (a Access) CanWrite() bool { return a != ReadOnly }

// ParseAccess accepts the SVD access strings and their short forms. An empty
// string yields ReadWrite.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rw", "read-write", "read-writeonce":
		return ReadWrite, nil
	case "r", "ro", "read-only":
		return ReadOnly, nil
	case "w", "wo", "write-only", "writeonce":
		return WriteOnly, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAccess, s)
}

// Register describes one memory-mapped register. Its identity is the pair
// (Address, Width).
type Register struct {
	Name    string
	Address uint32
	Width   uint // bits: 8, 16, 32 or 64
	Access  Access
	Reset   uint64
}

// NewRegister validates and returns a register definition.
func NewRegister(name string, addr uint32, width uint, access Access, reset uint64) (Register, error) {
	r := Register{Name: name, Address: addr, Width: width, Access: access, Reset: reset}
	switch width {
	case 8, 16, 32, 64:
	default:
		return Register{}, fmt.Errorf("%s: %w: %d", r, ErrUnsupportedWidth, width)
	}
	if !r.Fits(reset) {
		return Register{}, fmt.Errorf("%s: reset value %#x: %w", r, reset, diag.ErrWidthOverflow)
	}
	return r, nil
}

// Full returns a value with every bit of the register set.
func (r Register) Full() uint64 { return ones(r.Width) }

// Fits reports whether v has no bits outside the register width.
func (r Register) Fits(v uint64) bool { return v&^r.Full() == 0 }

// Same reports whether r and o have the same identity.
func (r Register) Same(o Register) bool {
	return r.Address == o.Address && r.Width == o.Width
}

func (r Register) String() string {
	if r.Name == "" {
		return fmt.Sprintf("%#08x", r.Address)
	}
	return fmt.Sprintf("%s@%#08x", r.Name, r.Address)
}

// Apply lowers a mask to the write sequence for this register. A clear mask
// covering the whole width becomes a single store; anything else is a
// read-modify-write. The AND uses the cropped clear mask, which yields the
// same stored value with fewer cleared bits.
func (r Register) Apply(m Mask) []Op {
	if m.Clear == 0 && m.Set == 0 {
		return nil
	}
	if m.CoversRegister() {
		return []Op{{Kind: OpStoreImm, Addr: r.Address, Value: m.Set}}
	}
	ops := []Op{{Kind: OpLoad, Addr: r.Address}}
	if cc := m.CroppedClear(); cc != 0 {
		ops = append(ops, Op{Kind: OpAnd, Addr: r.Address, Value: r.Full() &^ cc})
	}
	if m.Set != 0 {
		ops = append(ops, Op{Kind: OpOr, Addr: r.Address, Value: m.Set})
	}
	return append(ops, Op{Kind: OpStore, Addr: r.Address})
}

// ResetTo lowers a mask to one store relative to the documented reset value.
// It is only correct while the register still holds that reset value.
func (r Register) ResetTo(m Mask) []Op { return r.StoreFrom(r.Reset, m) }

// StoreFrom lowers a mask to one store relative to base, the value the
// register is known to hold.
func (r Register) StoreFrom(base uint64, m Mask) []Op {
	return []Op{{Kind: OpStoreImm, Addr: r.Address, Value: m.Value(base)}}
}

// Test reports whether value carries every bit the mask describes.
func (r Register) Test(value uint64, m Mask) bool {
	if m.Clear == 0 {
		return m.Set == 0
	}
	return value&m.Clear == m.Set
}

func ones(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}
