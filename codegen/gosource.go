// Package codegen writes a compiled bring-up program out as source so the
// target runs the merged writes without repeating any of the analysis.
package codegen

import (
	"fmt"
	"strings"

	"golang.org/x/tools/imports"

	"omibyte.io/bringup/bitfield"
	"omibyte.io/bringup/plan"
)

// GoSource returns a Go file for package pkg holding Configure, which issues
// the program's writes as direct pointer stores, and Vectors, the vector
// table words.
func GoSource(pkg string, prog *plan.Program) ([]byte, error) {
	var w strings.Builder

	id, err := prog.ID()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(&w, "// Code generated by bringup. DO NOT EDIT.")
	fmt.Fprintln(&w)
	fmt.Fprintf(&w, "package %s\n\n", pkg)
	fmt.Fprintln(&w, "import (")
	fmt.Fprintln(&w, `"unsafe"`)
	fmt.Fprintln(&w, ")")
	fmt.Fprintln(&w)
	fmt.Fprintf(&w, "// ProgramID identifies the bring-up program this file was generated from.\n")
	fmt.Fprintf(&w, "const ProgramID = %q\n\n", id.String())

	fmt.Fprintln(&w, "// Configure performs bring-up. Call it once, before enabling interrupts.")
	fmt.Fprintln(&w, "func Configure() {")
	for _, ph := range prog.Phases {
		if len(ph.Registers) == 0 {
			continue
		}
		fmt.Fprintf(&w, "// %s\n", ph.Phase)
		for _, rp := range ph.Registers {
			writeRegister(&w, rp)
		}
	}
	fmt.Fprintln(&w, "}")

	if prog.Table != nil {
		words := prog.Table.Words()
		fmt.Fprintln(&w)
		fmt.Fprintln(&w, "// Vectors is the interrupt vector table. Slot 0 is the initial stack pointer.")
		fmt.Fprintf(&w, "var Vectors = [%d]uint32{\n", len(words))
		for i, word := range words {
			comment := "stack top"
			if i > 0 {
				comment = prog.Table.Handler(i).Symbol
			}
			fmt.Fprintf(&w, "%#08x, // %d: %s\n", word, i, comment)
		}
		fmt.Fprintln(&w, "}")
	}

	buf, err := imports.Process(pkg+"_bringup.go", []byte(w.String()), nil)
	if err != nil {
		return nil, fmt.Errorf("error formatting generated source: %w", err)
	}
	return buf, nil
}

func goType(width uint) string {
	return fmt.Sprintf("uint%d", width)
}

func writeRegister(w *strings.Builder, rp plan.RegisterPlan) {
	reg := rp.Register()
	ptr := fmt.Sprintf("(*%s)(unsafe.Pointer(uintptr(%#08x)))", goType(reg.Width), reg.Address)
	fmt.Fprintf(w, "// %s %s\n", reg, rp.Strategy)

	expr := "*" + ptr
	for _, op := range rp.Ops() {
		switch op.Kind {
		case bitfield.OpStoreImm:
			expr = fmt.Sprintf("%#x", op.Value)
		case bitfield.OpAnd:
			expr = fmt.Sprintf("%s&^%#x", expr, reg.Full()&^op.Value)
		case bitfield.OpOr:
			expr = fmt.Sprintf("(%s)|%#x", expr, op.Value)
		}
	}
	fmt.Fprintf(w, "*%s = %s\n", ptr, expr)
}
