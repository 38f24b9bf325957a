package codegen

import (
	"arkoi/internal/ir"
	"arkoi/internal/regalloc"
)

// Generate lowers an entire module to a single NASM-syntax x86-64 text
// listing: a `.text` section with one label per function followed by its
// instructions, then a trailing `.rodata` section holding every float
// constant referenced along the way. allocs supplies each function's
// already-run register allocation (spec.md §4.6 must have produced its
// final Mapping before this runs; phis must already be lowered).
func Generate(mod *ir.Module, allocs map[string]regalloc.Mapping) string {
	pool := NewRODataPool()
	var items []AssemblyItem
	items = append(items, Directive{Text: "section .text"}, Directive{Text: "global main"})

	for _, fn := range mod.Functions {
		frame := BuildFrameLayout(fn)
		resolver := NewResolver(fn, allocs[fn.Name], frame, pool)
		gen := NewGenerator(fn, resolver, frame)
		items = append(items, gen.Generate()...)
	}

	items = append(items, pool.Directives()...)
	return Render(items)
}
