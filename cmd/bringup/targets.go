package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"omibyte.io/bringup/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported chip series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
		fmt.Fprintln(w, "SERIES\tCPU\tIRQS\tSTACK\tCHIPS")
		for _, t := range targets.All() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%#08x\t%s\n", t.Series, t.Cpu, t.Interrupts, t.StackTop(), strings.Join(t.Chips, ","))
		}
		return w.Flush()
	},
}
