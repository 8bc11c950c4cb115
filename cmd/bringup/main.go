package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	rootOpts = struct {
		svd         string
		board       string
		logLevel    string
		failFast    bool
		assumeReset bool
	}{}

	rootCmd = &cobra.Command{
		Use:   "bringup",
		Short: "Static peripheral bring-up for microcontrollers",
		Long: `bringup validates a board's peripheral declarations against a device
description, merges them into minimal register write sequences and builds
the interrupt vector table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := parseLevel(rootOpts.logLevel)
			if err != nil {
				return err
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&rootOpts.svd, "svd", "", "CMSIS-SVD device description")
	rootCmd.PersistentFlags().StringVar(&rootOpts.board, "board", "", "board description (YAML)")
	rootCmd.PersistentFlags().StringVar(&rootOpts.logLevel, "log-level", "info", "log level (=debug, =info, =warn, =error)")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.failFast, "fail-fast", false, "stop validation at the first violation")
	rootCmd.PersistentFlags().BoolVar(&rootOpts.assumeReset, "assume-reset", false, "lower partial writes against reset values")

	rootCmd.AddCommand(validateCmd, planCmd, genCmd, simCmd, targetsCmd)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
