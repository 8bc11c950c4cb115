package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"omibyte.io/bringup/configure"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/plan"
	"omibyte.io/bringup/startup"
	"omibyte.io/bringup/tick"
)

var (
	simOpts = struct {
		program     string
		strict      bool
		interactive bool
	}{}

	simCmd = &cobra.Command{
		Use:   "sim",
		Short: "Run bring-up against simulated registers",
		Long: `Run bring-up against a register file seeded with the device's reset values
and print every store. External chips are emulated behind their SPI or I2C
framing. With --program a previously generated program.cbor is
executed instead of compiling the board.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			if err := p.check(); err != nil {
				return err
			}

			mem := hw.NewMemory(tick.CSR, tick.RVR, tick.SHPR3)
			mem.Seed(p.dev.Registers()...)
			mem.Strict = simOpts.strict
			buses, _, err := p.board.Emulate()
			if err != nil {
				return err
			}
			regs, err := p.board.Backend(mem, buses)
			if err != nil {
				return err
			}
			trace := hw.NewTrace(regs, slog.Default())

			var (
				cfg     startup.Configurer
				program func() *plan.Program
			)
			if simOpts.program != "" {
				cached, err := readProgram(simOpts.program)
				if err != nil {
					return err
				}
				cfg = cachedProgram{prog: cached, backend: trace}
				program = func() *plan.Program { return cached }
			} else {
				p.opts.Backend = trace
				d := p.driver()
				cfg = d
				program = d.Program
			}

			gate := &startup.Gate{}
			h := startup.Harness{Config: cfg, Interrupts: gate}
			if err := h.Boot(cmd.Context(), nil); err != nil {
				return err
			}

			in := newInspector(p.dev, regs, trace, program())
			out := cmd.OutOrStdout()
			in.printTrace(out)
			fmt.Fprintf(out, "%d stores, interrupts enabled: %t\n", len(trace.Stores()), gate.Enabled())
			if !simOpts.interactive {
				return nil
			}

			rl, err := readline.NewEx(&readline.Config{
				Prompt:          "bringup> ",
				InterruptPrompt: "^C",
				EOFPrompt:       "exit",
			})
			if err != nil {
				return fmt.Errorf("failed to create readline: %w", err)
			}
			return in.run(cmd.Context(), rl)
		},
	}
)

func init() {
	simCmd.Flags().StringVar(&simOpts.program, "program", "", "execute a compiled program instead of the board")
	simCmd.Flags().BoolVar(&simOpts.strict, "strict", false, "fail on accesses to registers the device does not define")
	simCmd.Flags().BoolVarP(&simOpts.interactive, "interactive", "i", false, "inspect the result interactively")
}

func readProgram(path string) (*plan.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	prog, err := plan.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// cachedProgram replays a compiled program.
type cachedProgram struct {
	prog    *plan.Program
	backend hw.Backend
}

func (c cachedProgram) Configure(ctx context.Context) error {
	return configure.Execute(ctx, c.prog, c.backend, nil)
}
