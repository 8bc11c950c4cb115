// Package diag defines the configuration defect taxonomy shared by the
// bring-up pipeline: stable codes, one sentinel error per code, and the
// violation/report types used to surface them.
package diag

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// Code is a stable identifier for a class of configuration defect.
type Code string

const (
	WidthOverflow        Code = "width_overflow"
	WidthMismatch        Code = "width_mismatch"
	AccessMismatch       Code = "access_mismatch"
	ResetMismatch        Code = "reset_mismatch"
	UniqueClaimViolation Code = "unique_claim_violation"
	MaskConflict         Code = "mask_conflict"
	InvalidMask          Code = "invalid_mask"
	ReadOnlyWrite        Code = "read_only_write"
	IrqDuplicate         Code = "irq_duplicate"
	IrqOutOfRange        Code = "irq_out_of_range"
)

var (
	ErrWidthOverflow        = errors.New(string(WidthOverflow))
	ErrWidthMismatch        = errors.New(string(WidthMismatch))
	ErrAccessMismatch       = errors.New(string(AccessMismatch))
	ErrResetMismatch        = errors.New(string(ResetMismatch))
	ErrUniqueClaimViolation = errors.New(string(UniqueClaimViolation))
	ErrMaskConflict         = errors.New(string(MaskConflict))
	ErrInvalidMask          = errors.New(string(InvalidMask))
	ErrReadOnlyWrite        = errors.New(string(ReadOnlyWrite))
	ErrIrqDuplicate         = errors.New(string(IrqDuplicate))
	ErrIrqOutOfRange        = errors.New(string(IrqOutOfRange))
)

var sentinels = map[Code]error{
	WidthOverflow:        ErrWidthOverflow,
	WidthMismatch:        ErrWidthMismatch,
	AccessMismatch:       ErrAccessMismatch,
	ResetMismatch:        ErrResetMismatch,
	UniqueClaimViolation: ErrUniqueClaimViolation,
	MaskConflict:         ErrMaskConflict,
	InvalidMask:          ErrInvalidMask,
	ReadOnlyWrite:        ErrReadOnlyWrite,
	IrqDuplicate:         ErrIrqDuplicate,
	IrqOutOfRange:        ErrIrqOutOfRange,
}

// Err returns the sentinel error for c, or nil for an unknown code.
func (c Code) Err() error { return sentinels[c] }

// Of extracts the Code from err. The second result is false when err does
// not wrap any of the taxonomy sentinels.
func Of(err error) (Code, bool) {
	if err == nil {
		return "", false
	}
	var v *Violation
	if errors.As(err, &v) {
		return v.Code, true
	}
	for c, s := range sentinels {
		if errors.Is(err, s) {
			return c, true
		}
	}
	return "", false
}

// Violation is one detected configuration defect.
type Violation struct {
	Code    Code
	Target  string   // register address, unique tag or irq number
	Origins []string // declaring resource set paths, in declaration order
	Message string
}

func (v *Violation) Error() string {
	var sb strings.Builder
	sb.WriteString(string(v.Code))
	if v.Target != "" {
		sb.WriteString(" at ")
		sb.WriteString(v.Target)
	}
	if v.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(v.Message)
	}
	if len(v.Origins) > 0 {
		fmt.Fprintf(&sb, " (declared by %s)", strings.Join(v.Origins, ", "))
	}
	return sb.String()
}

func (v *Violation) Unwrap() error { return v.Code.Err() }

// Report accumulates violations. The zero value is an empty, valid report.
type Report struct {
	Violations []*Violation
}

// Add appends a violation.
func (r *Report) Add(v *Violation) {
	r.Violations = append(r.Violations, v)
}

// Addf appends a violation built from its parts.
func (r *Report) Addf(code Code, target string, origins []string, format string, args ...any) {
	r.Add(&Violation{
		Code:    code,
		Target:  target,
		Origins: origins,
		Message: fmt.Sprintf(format, args...),
	})
}

// Valid reports whether no violation was recorded.
func (r *Report) Valid() bool { return len(r.Violations) == 0 }

// Has reports whether at least one violation of code c was recorded.
func (r *Report) Has(c Code) bool {
	return slices.IndexFunc(r.Violations, func(v *Violation) bool { return v.Code == c }) >= 0
}

// Codes returns the distinct codes in first-seen order.
func (r *Report) Codes() []Code {
	var codes []Code
	for _, v := range r.Violations {
		if !slices.Contains(codes, v.Code) {
			codes = append(codes, v.Code)
		}
	}
	return codes
}

// Err joins all violations into one error, or returns nil for a valid report.
func (r *Report) Err() error {
	if r.Valid() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return errors.Join(errs...)
}

// String renders one violation per line.
func (r *Report) String() string {
	var sb strings.Builder
	for _, v := range r.Violations {
		sb.WriteString(v.Error())
		sb.WriteByte('\n')
	}
	return sb.String()
}
