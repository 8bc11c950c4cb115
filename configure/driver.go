// Package configure is the execution driver: it validates the complete
// declaration graph, synthesizes the per-phase write plans, issues them
// through a register backend and freezes the vector table. It runs once,
// before interrupts are unmasked.
package configure

import (
	"context"
	"fmt"
	"log/slog"

	"omibyte.io/bringup/diag"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/plan"
	"omibyte.io/bringup/resource"
	"omibyte.io/bringup/validate"
	"omibyte.io/bringup/vector"
)

// Options configures a Driver.
type Options struct {
	Layout   vector.Layout
	StackTop uint32
	Default  resource.Handler

	// Backend receives the register writes. Only Configure needs it.
	Backend hw.Backend

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	FailFast    bool
	AssumeReset bool
}

// Driver runs bring-up for a fixed list of phases.
type Driver struct {
	opts       Options
	phases     []Phase
	configured bool
	program    *plan.Program
}

// New returns a driver for phases.
func New(opts Options, phases ...Phase) *Driver {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Driver{opts: opts, phases: phases}
}

// Declarations returns every phase as one set, each phase nested under its
// name.
func (d *Driver) Declarations() resource.Set {
	root := resource.NewSet("")
	for _, ph := range d.phases {
		root = root.Add(ph.set())
	}
	return root
}

// Validate checks the declarations of all phases together.
func (d *Driver) Validate() *diag.Report {
	layout := d.opts.Layout
	return validate.Declarations(d.Declarations(), validate.Options{Layout: &layout, FailFast: d.opts.FailFast})
}

// Compile validates and synthesizes without touching hardware.
func (d *Driver) Compile() (*plan.Program, error) {
	if report := d.Validate(); !report.Valid() {
		return nil, &ValidationError{Report: report}
	}
	ordered, err := Order(d.phases)
	if err != nil {
		return nil, err
	}

	prog := &plan.Program{}
	vb, err := vector.NewBuilder(d.opts.Layout, d.opts.StackTop, d.opts.Default)
	if err != nil {
		return nil, err
	}
	popts := plan.Options{AssumeReset: d.opts.AssumeReset, Written: make(map[uint32]uint64)}
	for _, ph := range ordered {
		decls := resource.Flatten(ph.set())
		p, err := plan.Synthesize(ph.Name, resource.GroupByTarget(decls), popts)
		if err != nil {
			return nil, err
		}
		prog.Phases = append(prog.Phases, p)
		for _, rp := range p.Registers {
			popts.Written[rp.Register().Address] = rp.Value()
		}

		for _, decl := range decls {
			if b, ok := decl.Claim.(resource.IrqBinding); ok {
				if err := vb.Bind(b.IRQ, b.Handler); err != nil {
					return nil, fmt.Errorf("%s: %w", decl.Origin, err)
				}
			}
		}
	}
	prog.Table = vb.Freeze()
	return prog, nil
}

// Configure compiles and executes bring-up. It runs at most once; a failed
// attempt also counts. On a validation failure nothing is written.
func (d *Driver) Configure(ctx context.Context) error {
	if d.configured {
		return ErrAlreadyConfigured
	}
	d.configured = true
	if d.opts.Backend == nil {
		return ErrNoBackend
	}

	prog, err := d.Compile()
	if err != nil {
		return err
	}
	if err := Execute(ctx, prog, d.opts.Backend, d.opts.Logger); err != nil {
		return err
	}
	d.program = prog
	d.opts.Logger.Info("configured",
		slog.Int("phases", len(prog.Phases)),
		slog.Int("registers", prog.Registers()),
		slog.Int("vectors", prog.Table.Len()))
	return nil
}

// Program returns the program Configure executed, or nil.
func (d *Driver) Program() *plan.Program { return d.program }

// Execute issues the writes of a compiled program phase by phase. ctx is
// checked between phases only.
func Execute(ctx context.Context, prog *plan.Program, b hw.Backend, logger *slog.Logger) error {
	if b == nil {
		return ErrNoBackend
	}
	if logger == nil {
		logger = slog.Default()
	}
	for _, ph := range prog.Phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("phase", slog.String("name", ph.Phase), slog.Int("registers", len(ph.Registers)))
		if err := hw.Exec(ph.Emit(), b); err != nil {
			return fmt.Errorf("phase %s: %w", ph.Phase, err)
		}
	}
	return nil
}
