package main

import (
	"bytes"
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slices"

	"omibyte.io/bringup/board"
	"omibyte.io/bringup/codegen"
	"omibyte.io/bringup/plan"
)

var (
	genOpts = struct {
		output string
		pkg    string
	}{}

	genCmd = &cobra.Command{
		Use:   "gen",
		Short: "Generate bring-up artifacts",
		Long: `Compile the board and write the artifacts a firmware build links in:

  program.cbor     the compiled program
  <pkg>_bringup.go Configure() and the vector table words as Go source;
                   writes to external chips are left out, they need a bus
  isr_vector.s     the .isr_vector section
  vectors.bin      the flashable vector table image`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject()
			if err != nil {
				return err
			}
			prog, err := p.compile()
			if err != nil {
				return err
			}

			var order binary.ByteOrder = binary.LittleEndian
			if info, err := p.board.Target(); err == nil {
				order = info.ByteOrder()
			}
			return generate(genOpts.output, genOpts.pkg, prog, order, p.board.External)
		},
	}
)

func init() {
	genCmd.Flags().StringVarP(&genOpts.output, "output", "o", ".", "output directory")
	genCmd.Flags().StringVarP(&genOpts.pkg, "package", "p", "bringup", "package name of the generated Go source")
}

func generate(dir, pkg string, prog *plan.Program, order binary.ByteOrder, external []board.External) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	encoded, err := prog.Marshal()
	if err != nil {
		return err
	}
	src, err := codegen.GoSource(pkg, onChip(prog, external))
	if err != nil {
		return err
	}
	var asm bytes.Buffer
	if err := codegen.ISRVector(&asm, prog.Table); err != nil {
		return err
	}

	files := []struct {
		name string
		data []byte
	}{
		{"program.cbor", encoded},
		{pkg + "_bringup.go", src},
		{"isr_vector.s", asm.Bytes()},
		{"vectors.bin", prog.Table.Bytes(order)},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return err
		}
		slog.Info("wrote", slog.String("file", path), slog.Int("bytes", len(f.data)))
	}
	return nil
}

// onChip returns prog without the writes that land in an external chip's
// window.
func onChip(prog *plan.Program, external []board.External) *plan.Program {
	if len(external) == 0 {
		return prog
	}
	out := &plan.Program{Table: prog.Table, Phases: make([]*plan.Plan, 0, len(prog.Phases))}
	for _, ph := range prog.Phases {
		kept := &plan.Plan{Phase: ph.Phase}
		for _, rp := range ph.Registers {
			addr := rp.Register().Address
			if slices.ContainsFunc(external, func(e board.External) bool { return e.Contains(addr) }) {
				slog.Warn("left out of Go source", slog.String("phase", ph.Phase), slog.String("register", rp.Register().Name))
				continue
			}
			kept.Registers = append(kept.Registers, rp)
		}
		out.Phases = append(out.Phases, kept)
	}
	return out
}
