package ir

import (
	"fmt"
	"html"
	"strings"
)

// Dot renders mod as a Graphviz DOT document (spec.md §6 "Debug artifacts"):
// one cluster per function, one node per block whose HTML-like label holds
// the block's IL text, and edges labeled "next"/"branch" matching the
// BasicBlock next/branch fields. Grounded in original_source's
// cfg_printer.hpp.
func Dot(mod *Module) string {
	var b strings.Builder
	b.WriteString("digraph arkoi {\n")
	b.WriteString("  node [shape=box, fontname=\"monospace\"];\n")
	for i, fn := range mod.Functions {
		dotFunction(&b, fn, i)
	}
	b.WriteString("}\n")
	return b.String()
}

func dotFunction(b *strings.Builder, fn *Function, index int) {
	fmt.Fprintf(b, "  subgraph cluster_%d {\n", index)
	fmt.Fprintf(b, "    label=%q;\n", fmt.Sprintf("%s @%s", fn.Name, fn.ReturnType))

	nodeID := func(blk *BasicBlock) string { return fmt.Sprintf("f%d_%s", index, blk.Label) }

	for _, blk := range fn.Blocks {
		var body strings.Builder
		body.WriteString("<b>")
		body.WriteString(html.EscapeString(blk.Label))
		body.WriteString(":</b><br/>")
		for _, inst := range blk.Instructions {
			body.WriteString(html.EscapeString(printInstruction(inst)))
			body.WriteString("<br/>")
		}
		fmt.Fprintf(b, "    %s [label=<%s>];\n", nodeID(blk), body.String())
	}

	for _, blk := range fn.Blocks {
		if n := blk.Next(); n != nil {
			fmt.Fprintf(b, "    %s -> %s [label=%q];\n", nodeID(blk), nodeID(n), "next")
		}
		if br := blk.Branch(); br != nil && br != blk.Next() {
			fmt.Fprintf(b, "    %s -> %s [label=%q];\n", nodeID(blk), nodeID(br), "branch")
		}
	}

	b.WriteString("  }\n")
}
