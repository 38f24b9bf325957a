package codegen

import (
	"fmt"
	"strings"
)

// AssemblyItem is one line of the emitted listing: a label, a directive,
// or a machine instruction. Grounded on original_source's AssemblyItem
// variant, expressed as a Go interface rather than std::variant.
type AssemblyItem interface {
	Render() string
}

// Label marks a jump target or function entry point.
type Label struct{ Name string }

func (l Label) Render() string { return l.Name + ":" }

// Directive is an assembler directive emitted verbatim (`.text`, `global
// main`, a `.rodata` data definition, …).
type Directive struct{ Text string }

func (d Directive) Render() string { return d.Text }

// Inst is one machine instruction: a mnemonic plus its operands in
// assembler order.
type Inst struct {
	Mnemonic string
	Operands []Operand
}

func (i Inst) Render() string {
	if len(i.Operands) == 0 {
		return "\t" + i.Mnemonic
	}
	parts := make([]string, len(i.Operands))
	for idx, op := range i.Operands {
		parts[idx] = op.String()
	}
	return fmt.Sprintf("\t%s %s", i.Mnemonic, strings.Join(parts, ", "))
}

func inst(mnemonic string, ops ...Operand) Inst { return Inst{Mnemonic: mnemonic, Operands: ops} }

// Render joins items into a final assembly text listing, one item per
// line, blank lines dropped between sections by the caller's own
// structure rather than this helper's.
func Render(items []AssemblyItem) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString(item.Render())
		b.WriteString("\n")
	}
	return b.String()
}
