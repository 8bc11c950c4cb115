package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a board's declarations",
	Long:  "Check every declaration of the board against the device and report all violations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProject()
		if err != nil {
			return err
		}
		report := p.validate()
		if report.Valid() {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}
		fmt.Fprint(cmd.OutOrStdout(), report.String())
		return fmt.Errorf("%d violations", len(report.Violations))
	},
}
