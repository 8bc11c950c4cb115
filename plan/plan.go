// Package plan merges the shared-register contributions of a validated
// declaration graph into one write per register and lowers them to ops.
package plan

import (
	"fmt"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/resource"
)

// Strategy is how a merged mask reaches its register.
type Strategy uint8

const (
	// ReadModifyWrite loads the register, clears and sets the touched bits
	// and stores it back.
	ReadModifyWrite Strategy = iota
	// Overwrite stores the set mask unconditionally. Only chosen when the
	// clear mask covers every bit of the register.
	Overwrite
	// ResetTo stores a value computed from the value the register is known
	// to hold: its documented reset value on first touch, otherwise what an
	// earlier phase stored.
	ResetTo
)

func (s Strategy) String() string {
	switch s {
	case ReadModifyWrite:
		return "read_modify_write"
	case Overwrite:
		return "overwrite"
	case ResetTo:
		return "reset_to"
	default:
		return fmt.Sprintf("strategy(%d)", s)
	}
}

// Options tunes synthesis.
type Options struct {
	// AssumeReset lowers partial writes with ResetTo instead of a
	// read-modify-write on registers no earlier phase has written.
	AssumeReset bool

	// Written maps the address of every register an earlier phase wrote to
	// the value it holds afterwards.
	Written map[uint32]uint64
}

// MergeGroup folds masks of one register into one.
func MergeGroup(masks []bitfield.Mask) (bitfield.Mask, error) {
	if len(masks) == 0 {
		return bitfield.Mask{}, ErrEmptyGroup
	}
	merged := masks[0]
	for _, m := range masks[1:] {
		var err error
		if merged, err = merged.Merge(m); err != nil {
			return bitfield.Mask{}, err
		}
	}
	return merged, nil
}

// ChooseStrategy picks Overwrite iff the full clear mask spans the register.
func ChooseStrategy(m bitfield.Mask) Strategy {
	if m.CoversRegister() {
		return Overwrite
	}
	return ReadModifyWrite
}

// RegisterPlan is the merged write for one register.
type RegisterPlan struct {
	Mask     bitfield.Mask `cbor:"1,keyasint"`
	Strategy Strategy      `cbor:"2,keyasint"`
	Origins  []string      `cbor:"3,keyasint,omitempty"`
	// Base is the value the register is assumed to hold before the write.
	Base uint64 `cbor:"4,keyasint,omitempty"`
}

// Register returns the target register.
func (rp RegisterPlan) Register() bitfield.Register { return rp.Mask.Reg }

// Ops lowers the plan.
func (rp RegisterPlan) Ops() []bitfield.Op {
	reg := rp.Mask.Reg
	if rp.Strategy == ResetTo {
		return reg.StoreFrom(rp.Base, rp.Mask)
	}
	return reg.Apply(rp.Mask)
}

// Value returns what the register holds after the write, given it held
// Base before.
func (rp RegisterPlan) Value() uint64 { return rp.Mask.Value(rp.Base) }

func (rp RegisterPlan) String() string {
	return fmt.Sprintf("%s %s [%s]", rp.Mask, rp.Strategy, strings.Join(rp.Origins, ", "))
}

// Plan is the ordered set of register writes of one phase.
type Plan struct {
	Phase     string         `cbor:"1,keyasint"`
	Registers []RegisterPlan `cbor:"2,keyasint"`
}

// Synthesize merges every shared-register group of g. g must have passed
// validation; a conflict found here is still returned as an error.
func Synthesize(phase string, g *resource.Groups, opts Options) (*Plan, error) {
	p := &Plan{Phase: phase}
	for _, t := range g.OfKind(resource.KindShared) {
		decls := g.Get(t)
		masks := make([]bitfield.Mask, 0, len(decls))
		for _, d := range decls {
			masks = append(masks, d.Claim.(resource.SharedWrite).Mask)
		}
		merged, err := MergeGroup(masks)
		if err != nil {
			return nil, fmt.Errorf("phase %s: %s: %w", phase, t, err)
		}
		if merged.IsZero() {
			continue
		}
		rp := RegisterPlan{Mask: merged, Strategy: ChooseStrategy(merged), Origins: resource.Origins(decls), Base: merged.Reg.Reset}
		prev, written := opts.Written[t.Addr]
		if written {
			rp.Base = prev
		}
		if rp.Strategy == ReadModifyWrite {
			switch {
			case !merged.Reg.Access.CanRead():
				rp.Strategy = ResetTo
			case opts.AssumeReset && !written:
				rp.Strategy = ResetTo
			}
		}
		p.Registers = append(p.Registers, rp)
	}
	slices.SortStableFunc(p.Registers, func(a, b RegisterPlan) bool {
		return a.Mask.Reg.Address < b.Mask.Reg.Address
	})
	return p, nil
}

// Emit returns the ops of every register in address order.
func (p *Plan) Emit() []bitfield.Op {
	var ops []bitfield.Op
	for _, rp := range p.Registers {
		ops = append(ops, rp.Ops()...)
	}
	return ops
}

// Find returns the plan for the register at addr.
func (p *Plan) Find(addr uint32) (RegisterPlan, bool) {
	i := slices.IndexFunc(p.Registers, func(rp RegisterPlan) bool { return rp.Mask.Reg.Address == addr })
	if i < 0 {
		return RegisterPlan{}, false
	}
	return p.Registers[i], true
}
