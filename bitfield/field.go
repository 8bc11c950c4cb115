package bitfield

import (
	"fmt"

	"omibyte.io/bringup/diag"
)

// Field is a contiguous run of bits inside a register.
type Field struct {
	Reg    Register
	Offset uint
	Width  uint
}

// Define returns the field [offset, offset+width) of reg.
func Define(reg Register, offset, width uint) (Field, error) {
	if width == 0 || offset+width > reg.Width {
		return Field{}, fmt.Errorf("%s: field offset %d width %d: %w", reg, offset, width, diag.ErrWidthOverflow)
	}
	return Field{Reg: reg, Offset: offset, Width: width}, nil
}

// Bits returns the field's bits positioned inside the register.
func (f Field) Bits() uint64 { return ones(f.Width) << f.Offset }

// Max returns the largest value the field can hold.
func (f Field) Max() uint64 { return ones(f.Width) }

// Set returns the mask writing all ones into the field.
func (f Field) Set() Mask { return Mask{Reg: f.Reg, Set: f.Bits(), Clear: f.Bits()} }

// Clear returns the mask writing all zeros into the field.
func (f Field) Clear() Mask { return Mask{Reg: f.Reg, Clear: f.Bits()} }

// WithValue returns the mask writing v into the field.
func (f Field) WithValue(v uint64) (Mask, error) {
	if v > f.Max() {
		return Mask{}, fmt.Errorf("%s: value %#x does not fit %d-bit field at offset %d: %w",
			f.Reg, v, f.Width, f.Offset, diag.ErrWidthOverflow)
	}
	return Mask{Reg: f.Reg, Set: v << f.Offset, Clear: f.Bits()}, nil
}

// Bit returns the single-bit sub-field n of f.
func (f Field) Bit(n uint) (Field, error) {
	if n >= f.Width {
		return Field{}, fmt.Errorf("%s: bit %d of %d-bit field: %w", f.Reg, n, f.Width, diag.ErrWidthOverflow)
	}
	return Field{Reg: f.Reg, Offset: f.Offset + n, Width: 1}, nil
}

// Extract returns the field's value from a full register value.
func (f Field) Extract(value uint64) uint64 { return (value & f.Bits()) >> f.Offset }

// Insert returns value with the field replaced by v. Bits of v beyond the
// field width are dropped.
func (f Field) Insert(value, v uint64) uint64 {
	return value&^f.Bits() | (v<<f.Offset)&f.Bits()
}

// Constant is a value bound to a field.
type Constant struct {
	Field Field
	Value uint64
}

// Mask returns the mask writing the constant.
func (c Constant) Mask() (Mask, error) { return c.Field.WithValue(c.Value) }
