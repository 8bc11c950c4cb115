package configure

import (
	"errors"
	"fmt"

	"omibyte.io/bringup/diag"
)

var (
	ErrAlreadyConfigured = errors.New("already configured")
	ErrNoBackend         = errors.New("no register backend")
	ErrDuplicatePhase    = errors.New("duplicate phase")
	ErrUnknownPhase      = errors.New("unknown phase")
	ErrPhaseCycle        = errors.New("phase dependency cycle")
)

// ValidationError carries the full report of a failed validation. It unwraps
// to every violation, so errors.Is matches any diag sentinel.
type ValidationError struct {
	Report *diag.Report
}

func (e *ValidationError) Error() string {
	n := len(e.Report.Violations)
	if n == 1 {
		return "validation failed: " + e.Report.Violations[0].Error()
	}
	return fmt.Sprintf("validation failed: %d violations: %v", n, e.Report.Codes())
}

func (e *ValidationError) Unwrap() []error {
	errs := make([]error, len(e.Report.Violations))
	for i, v := range e.Report.Violations {
		errs[i] = v
	}
	return errs
}
