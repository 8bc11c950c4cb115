package main

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/exp/slices"

	"omibyte.io/bringup/board"
	"omibyte.io/bringup/configure"
	"omibyte.io/bringup/device"
	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/plan"
	"omibyte.io/bringup/svd"
)

var errMissingInput = errors.New("both --svd and --board are required")

// project is a board resolved against its device. resolved holds the
// violations found while resolving the board.
type project struct {
	dev      *device.Device
	board    *board.Board
	phases   []configure.Phase
	opts     configure.Options
	resolved diag.Report
}

func loadProject() (*project, error) {
	if rootOpts.svd == "" || rootOpts.board == "" {
		return nil, errMissingInput
	}

	dev, err := loadDevice(rootOpts.svd)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(rootOpts.board)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := board.Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rootOpts.board, err)
	}

	if err := b.Attach(dev); err != nil {
		return nil, fmt.Errorf("%s: %w", rootOpts.board, err)
	}

	// Boards without pins do not need a pin layout; Resolve reports the
	// missing layout otherwise.
	pins, _ := b.PinResolver()
	p := &project{dev: dev, board: b}
	p.phases, err = b.Resolve(dev, pins)
	var verr *configure.ValidationError
	switch {
	case errors.As(err, &verr):
		p.resolved = *verr.Report
	case err != nil:
		return nil, fmt.Errorf("%s: %w", rootOpts.board, err)
	}

	p.opts = b.Options(dev)
	p.opts.FailFast = rootOpts.failFast
	p.opts.AssumeReset = rootOpts.assumeReset
	return p, nil
}

func loadDevice(path string) (*device.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := svd.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return device.FromSVD(s)
}

// driver returns a fresh driver for the project.
func (p *project) driver() *configure.Driver {
	return configure.New(p.opts, p.phases...)
}

// validate returns the resolution violations followed by the driver's.
func (p *project) validate() *diag.Report {
	r := &diag.Report{Violations: slices.Clone(p.resolved.Violations)}
	r.Violations = append(r.Violations, p.driver().Validate().Violations...)
	return r
}

// compile compiles the project, refusing boards that failed to resolve.
func (p *project) compile() (*plan.Program, error) {
	if err := p.check(); err != nil {
		return nil, err
	}
	return p.driver().Compile()
}

// check fails with every violation when the board did not resolve cleanly.
func (p *project) check() error {
	if p.resolved.Valid() {
		return nil
	}
	return &configure.ValidationError{Report: p.validate()}
}
