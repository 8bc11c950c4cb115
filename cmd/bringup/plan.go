package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"omibyte.io/bringup/plan"
)

var (
	planOpts = struct {
		ops bool
	}{}

	planCmd = &cobra.Command{
		Use:   "plan",
		Short: "Print the register write plan",
		Long:  "Validate the board and print the merged writes of every phase in execution order, followed by the bound vector table slots.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			prog, err := p.compile()
			if err != nil {
				return err
			}
			return printProgram(cmd.OutOrStdout(), prog, planOpts.ops)
		},
	}
)

func init() {
	planCmd.Flags().BoolVar(&planOpts.ops, "ops", false, "print the lowered operations of each register")
}

func printProgram(w io.Writer, prog *plan.Program, ops bool) error {
	id, err := prog.ID()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "program %s\n", id)
	for _, ph := range prog.Phases {
		fmt.Fprintf(w, "phase %s\n", ph.Phase)
		for _, rp := range ph.Registers {
			fmt.Fprintf(w, "  %s\n", rp)
			if !ops {
				continue
			}
			for _, op := range rp.Ops() {
				fmt.Fprintf(w, "    %s %#08x %#x\n", op.Kind, op.Addr, op.Value)
			}
		}
	}
	if t := prog.Table; t != nil {
		fmt.Fprintf(w, "vectors %d, stack %#08x, default %s\n", t.Len(), t.StackTop, t.Default)
		for i := 1; i < t.Len(); i++ {
			if t.Bound(i) {
				fmt.Fprintf(w, "  %3d irq %3d %s\n", i, t.Layout.IRQ(i), t.Handler(i))
			}
		}
	}
	return nil
}
