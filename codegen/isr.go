package codegen

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"

	"omibyte.io/bringup/vector"
)

// cortexM names the ARMv7-M core exception slots 1-15.
var cortexM = []string{
	"Reset", "NMI", "HardFault", "MemManage", "BusFault", "UsageFault",
	"", "", "", "", "SVCall", "DebugMonitor", "", "PendSV", "SysTick",
}

// ISRVector writes the .isr_vector section of t as GNU assembly. Every
// handler symbol is declared weak and aliased to the default handler, so a
// table naming an undefined handler still links.
func ISRVector(out io.Writer, t *vector.Table) error {
	var w strings.Builder

	def := t.Default.Symbol
	w.WriteString(".syntax unified\n\n")
	fmt.Fprintf(&w, `// Default handler for interrupts without a handler of their own.
.section .text.%[1]s
.global  %[1]s
.type    %[1]s, %%function
%[1]s:
    wfe
    b    %[1]s
.size %[1]s, .-%[1]s

.macro IRQ handler
    .weak  \handler
    .set   \handler, %[1]s
.endm

`, def)

	var symbols []string
	for i := 1; i < t.Len(); i++ {
		if s := t.Handler(i).Symbol; s != def && !slices.Contains(symbols, s) {
			symbols = append(symbols, s)
		}
	}
	for _, s := range symbols {
		fmt.Fprintf(&w, "IRQ %s\n", s)
	}

	fmt.Fprintf(&w, `
.section .isr_vector, "a", %%progbits
.global  __isr_vector
__isr_vector:
    .long %#08x
`, t.StackTop)
	for i := 1; i < t.Len(); i++ {
		fmt.Fprintf(&w, "    .long %s /* %s */\n", t.Handler(i).Symbol, slotName(t.Layout, i))
	}

	_, err := io.WriteString(out, w.String())
	return err
}

func slotName(l vector.Layout, slot int) string {
	irq := l.IRQ(slot)
	if irq >= 0 {
		return fmt.Sprintf("IRQ %d", irq)
	}
	core := slot - 1
	if l.CoreExceptions == len(cortexM) && cortexM[core] != "" {
		return cortexM[core]
	}
	return fmt.Sprintf("exception %d", slot)
}
