package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/device"
	"omibyte.io/bringup/hw"
	"omibyte.io/bringup/plan"
	"omibyte.io/bringup/tick"
)

// inspector is a read-only shell over a simulated bring-up result.
type inspector struct {
	dev   *device.Device
	regs  hw.Backend
	trace *hw.Trace
	prog  *plan.Program
	names map[uint32]string
}

func newInspector(dev *device.Device, regs hw.Backend, trace *hw.Trace, prog *plan.Program) *inspector {
	in := &inspector{dev: dev, regs: regs, trace: trace, prog: prog, names: make(map[uint32]string)}
	for _, r := range dev.Registers() {
		in.names[r.Address] = r.Name
	}
	for _, r := range []bitfield.Register{tick.CSR, tick.RVR, tick.SHPR3} {
		in.names[r.Address] = r.Name
	}
	return in
}

func (in *inspector) run(ctx context.Context, rl *readline.Instance) error {
	defer rl.Close()

	in.printHelp(rl.Stdout())
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			return nil
		}
		if in.exec(rl.Stdout(), line) {
			return nil
		}
	}
}

// exec runs one command line and reports whether the shell should exit.
func (in *inspector) exec(w io.Writer, line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	switch cmd {
	case "help", "?":
		in.printHelp(w)
	case "regs":
		in.cmdRegs(w)
	case "read", "r":
		in.cmdRead(w, args)
	case "phases":
		in.cmdPhases(w, args)
	case "vectors", "v":
		in.cmdVectors(w)
	case "trace", "t":
		in.printTrace(w)
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(w, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (in *inspector) printHelp(w io.Writer) {
	fmt.Fprintln(w, `
Commands:
  regs              - Registers written by the program
  read <reg|addr>   - Current value of a register, with fields
  phases [name]     - Phases in execution order (or one phase's writes)
  vectors           - Bound vector table slots
  trace             - Every store in order
  quit              - Exit`)
}

func (in *inspector) name(addr uint32) string {
	if n, ok := in.names[addr]; ok {
		return n
	}
	return "?"
}

func (in *inspector) cmdRegs(w io.Writer) {
	if in.prog == nil {
		return
	}
	seen := make(map[uint32]bool)
	for _, ph := range in.prog.Phases {
		for _, rp := range ph.Registers {
			addr := rp.Register().Address
			if seen[addr] {
				continue
			}
			seen[addr] = true
			v, err := in.regs.Load(addr)
			if err != nil {
				fmt.Fprintf(w, "%#08x %-16s Error: %v\n", addr, in.name(addr), err)
				continue
			}
			fmt.Fprintf(w, "%#08x %-16s %#x\n", addr, in.name(addr), v)
		}
	}
}

func (in *inspector) cmdRead(w io.Writer, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(w, "Usage: read <PERIPHERAL.REGISTER|address>")
		return
	}

	if addr, err := strconv.ParseUint(args[0], 0, 32); err == nil {
		v, err := in.regs.Load(uint32(addr))
		if err != nil {
			fmt.Fprintf(w, "Error: %v\n", err)
			return
		}
		fmt.Fprintf(w, "%#08x %s = %#x\n", addr, in.name(uint32(addr)), v)
		return
	}

	reg, err := in.dev.Register(args[0])
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	v, err := in.regs.Load(reg.Address)
	if err != nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%s = %#x (reset %#x)\n", reg.Register, v, reg.Reset)
	for _, f := range reg.Fields {
		fmt.Fprintf(w, "  %-12s [%d:%d] = %#x\n", f.Name, f.Offset+f.Width-1, f.Offset, f.Extract(v))
	}
}

func (in *inspector) cmdPhases(w io.Writer, args []string) {
	if in.prog == nil {
		return
	}
	for _, ph := range in.prog.Phases {
		if len(args) == 0 {
			fmt.Fprintf(w, "%-12s %d registers\n", ph.Phase, len(ph.Registers))
			continue
		}
		if ph.Phase != args[0] {
			continue
		}
		for _, rp := range ph.Registers {
			fmt.Fprintf(w, "%s\n", rp)
		}
		return
	}
	if len(args) > 0 {
		fmt.Fprintf(w, "Unknown phase: %s\n", args[0])
	}
}

func (in *inspector) cmdVectors(w io.Writer) {
	if in.prog == nil || in.prog.Table == nil {
		return
	}
	t := in.prog.Table
	fmt.Fprintf(w, "stack %#08x, default %s\n", t.StackTop, t.Default)
	for i := 1; i < t.Len(); i++ {
		if t.Bound(i) {
			fmt.Fprintf(w, "%3d irq %3d %s\n", i, t.Layout.IRQ(i), t.Handler(i))
		}
	}
}

func (in *inspector) printTrace(w io.Writer) {
	for _, a := range in.trace.Stores() {
		fmt.Fprintf(w, "store %#08x %-16s %#x\n", a.Addr, in.name(a.Addr), a.Value)
	}
}
