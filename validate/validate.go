// Package validate checks grouped resource declarations for conflicts before
// anything is written to hardware.
package validate

import (
	"fmt"

	"golang.org/x/exp/slices"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/vector"
)

// Options controls validation.
type Options struct {
	// Layout enables the irq range check when non-nil.
	Layout *vector.Layout

	// FailFast stops after the first rule that reports a violation. The
	// default collects every violation.
	FailFast bool
}

// Rule is one class of check over the grouped declarations.
type Rule interface {
	// Name is a short identifier used in logs.
	Name() string
	Check(g *resource.Groups, r *diag.Report)
}

// Validator runs rules in order.
type Validator struct {
	opts  Options
	rules []Rule
}

// New returns a validator with the default rule set.
func New(opts Options) *Validator {
	v := &Validator{opts: opts}
	v.rules = []Rule{
		registerIdentity{},
		maskShape{},
		readOnly{},
		maskConflicts{},
		uniqueClaims{},
		irqBindings{layout: opts.Layout},
	}
	return v
}

// Rules returns the rules in evaluation order.
func (v *Validator) Rules() []Rule { return slices.Clone(v.rules) }

// Validate checks g and returns the report.
func (v *Validator) Validate(g *resource.Groups) *diag.Report {
	r := &diag.Report{}
	for _, rule := range v.rules {
		before := len(r.Violations)
		rule.Check(g, r)
		if v.opts.FailFast && len(r.Violations) > before {
			break
		}
	}
	return r
}

// Declarations flattens and groups root, then validates it.
func Declarations(root resource.Set, opts Options) *diag.Report {
	return New(opts).Validate(resource.GroupByTarget(resource.Flatten(root)))
}

func masksOf(decls []resource.Declared) []bitfield.Mask {
	out := make([]bitfield.Mask, 0, len(decls))
	for _, d := range decls {
		if w, ok := d.Claim.(resource.SharedWrite); ok {
			out = append(out, w.Mask)
		}
	}
	return out
}

// registerIdentity requires every declaration on an address to agree on
// width, access mode and reset value.
type registerIdentity struct{}

func (registerIdentity) Name() string { return "register-identity" }

func (registerIdentity) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindShared) {
		decls := g.Get(t)
		first := decls[0].Claim.(resource.SharedWrite).Mask.Reg
		for _, d := range decls[1:] {
			reg := d.Claim.(resource.SharedWrite).Mask.Reg
			if reg.Width != first.Width {
				r.Addf(diag.WidthMismatch, t.String(), []string{decls[0].Origin, d.Origin},
					"%s declared %d-bit and %d-bit", first, first.Width, reg.Width)
			}
			if reg.Access != first.Access {
				r.Addf(diag.AccessMismatch, t.String(), []string{decls[0].Origin, d.Origin},
					"%s declared %s and %s", first, first.Access, reg.Access)
			}
			if reg.Reset != first.Reset {
				r.Addf(diag.ResetMismatch, t.String(), []string{decls[0].Origin, d.Origin},
					"%s declared with reset %#x and %#x", first, first.Reset, reg.Reset)
			}
		}
	}
}

// maskShape checks each mask on its own: bits inside the width and set bits
// covered by the clear mask.
type maskShape struct{}

func (maskShape) Name() string { return "mask-shape" }

func (maskShape) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindShared) {
		for _, d := range g.Get(t) {
			m := d.Claim.(resource.SharedWrite).Mask
			if !m.Reg.Fits(m.Set | m.Clear) {
				r.Addf(diag.WidthOverflow, t.String(), []string{d.Origin},
					"%s has bits outside %d-bit register", m, m.Reg.Width)
			}
			if m.Set&^m.Clear != 0 {
				r.Addf(diag.InvalidMask, t.String(), []string{d.Origin},
					"%s sets bits %#x it does not declare touched", m, m.Set&^m.Clear)
			}
		}
	}
}

// readOnly rejects writes to read-only registers.
type readOnly struct{}

func (readOnly) Name() string { return "read-only" }

func (readOnly) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindShared) {
		for _, d := range g.Get(t) {
			m := d.Claim.(resource.SharedWrite).Mask
			if !m.Reg.Access.CanWrite() && !m.IsZero() {
				r.Addf(diag.ReadOnlyWrite, t.String(), []string{d.Origin}, "%s is read-only", m.Reg)
			}
		}
	}
}

// maskConflicts reports every pair of same-register masks where one sets a
// bit the other clears.
type maskConflicts struct{}

func (maskConflicts) Name() string { return "mask-conflicts" }

func (maskConflicts) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindShared) {
		decls := g.Get(t)
		masks := masksOf(decls)
		for i := 0; i < len(masks); i++ {
			for j := i + 1; j < len(masks); j++ {
				if masks[i].Reg.Width != masks[j].Reg.Width {
					continue
				}
				if c := bitfield.Conflicts(masks[i], masks[j]); c != 0 {
					r.Addf(diag.MaskConflict, t.String(), []string{decls[i].Origin, decls[j].Origin},
						"%s: bits %#x set by one declaration and cleared by the other", masks[i].Reg, c)
				}
			}
		}
	}
}

// uniqueClaims allows at most one claimant per tag.
type uniqueClaims struct{}

func (uniqueClaims) Name() string { return "unique-claims" }

func (uniqueClaims) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindUnique) {
		if decls := g.Get(t); len(decls) > 1 {
			r.Addf(diag.UniqueClaimViolation, t.String(), resource.Origins(decls),
				"%d claimants", len(decls))
		}
	}
}

// irqBindings allows one handler per interrupt number and, given a layout,
// checks the number has a slot.
type irqBindings struct {
	layout *vector.Layout
}

func (irqBindings) Name() string { return "irq-bindings" }

func (c irqBindings) Check(g *resource.Groups, r *diag.Report) {
	for _, t := range g.OfKind(resource.KindIrq) {
		decls := g.Get(t)
		if c.layout != nil {
			if _, ok := c.layout.Slot(t.IRQ); !ok {
				r.Addf(diag.IrqOutOfRange, t.String(), resource.Origins(decls),
					"no slot in %d-slot vector table", c.layout.Len())
			}
		}
		first := decls[0].Claim.(resource.IrqBinding).Handler
		var origins []string
		var handlers []string
		for _, d := range decls[1:] {
			h := d.Claim.(resource.IrqBinding).Handler
			if h != first {
				origins = append(origins, d.Origin)
				handlers = append(handlers, h.String())
			}
		}
		if len(origins) > 0 {
			r.Addf(diag.IrqDuplicate, t.String(), append([]string{decls[0].Origin}, origins...),
				"bound to %s and %v", first, handlers)
		}
	}
}

// Describe renders a rule list for help output.
func Describe(rules []Rule) []string {
	out := make([]string, len(rules))
	for i, rule := range rules {
		out[i] = fmt.Sprintf("%d. %s", i+1, rule.Name())
	}
	return out
}
