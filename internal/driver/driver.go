// Package driver coordinates the whole Arkoi pipeline — parse, resolve,
// build IR, optimize, allocate registers, lower phis, generate assembly —
// behind the single entry point cmd/arkoic drives. Grounded on
// original_source's utils/driver.hpp ("compile coordinates the front-end,
// IR generation, optimizations, and back-end").
package driver

import (
	"arkoi/grammar"
	"arkoi/internal/codegen"
	"arkoi/internal/diagnostics"
	"arkoi/internal/ir"
	"arkoi/internal/opt"
	"arkoi/internal/regalloc"
	"arkoi/internal/sem"
	"arkoi/internal/ssa"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"
)

// OptLevel selects how much of internal/opt's pass pipeline runs, mirroring
// the teacher's -O0/-O1 CLI convention (SPEC_FULL.md's CLI section).
type OptLevel int

const (
	O0 OptLevel = iota
	O1
)

// Options configures one Compile call.
type Options struct {
	Filename string
	Source   string
	Opt      OptLevel
}

// Result carries every artifact a caller might want to emit, so cmd/arkoic
// can select IL/CFG/assembly output with a single -emit flag without
// re-running the pipeline per format.
type Result struct {
	Module *ir.Module
	IL     string
	CFG    string
	Asm    string
}

// Compile runs the full pipeline over one source unit. Front-end
// diagnostics (parse errors, name/type errors) are returned rather than
// panicking — spec.md §5 treats those as ordinary, expected outcomes, not
// bugs. A core-stage contract violation panics as a diagnostics.BugError;
// Compile recovers it at this single stage boundary (spec.md §7) and
// reports it as err instead of letting it unwind into the caller.
func Compile(opts Options) (res *Result, diags *diagnostics.Collector, err error) {
	defer func() {
		if r := recover(); r != nil {
			if be, ok := asBugError(r); ok {
				err = be
				return
			}
			panic(r)
		}
	}()

	tree, perr := grammar.Parse(opts.Filename, opts.Source)
	if perr != nil {
		diags = diagnostics.NewCollector(opts.Filename, opts.Source)
		pos := diagnostics.Position{Filename: opts.Filename}
		msg := perr.Error()
		if pe, ok := perr.(participle.Error); ok {
			pp := pe.Position()
			pos = diagnostics.Position{Filename: pp.Filename, Line: pp.Line, Column: pp.Column}
			msg = pe.Message()
		}
		diags.Report(diagnostics.Error, pos, "%s", msg)
		return nil, diags, nil
	}

	prog, diags := sem.Resolve(tree, opts.Filename, opts.Source)
	if diags.HasErrors() {
		return nil, diags, nil
	}

	mod := ir.Build(prog)

	for _, fn := range mod.Functions {
		ssa.Promote(fn)
	}

	if opts.Opt == O1 {
		opt.Standard().Run(mod)
	}

	allocs := make(map[string]regalloc.Mapping, len(mod.Functions))
	for _, fn := range mod.Functions {
		alloc := regalloc.NewAllocator(fn)
		alloc.Run()
		allocs[fn.Name] = alloc.Assigned
		ssa.LowerPhis(fn)
	}

	res = &Result{
		Module: mod,
		IL:     ir.Print(mod),
		CFG:    ir.Dot(mod),
		Asm:    codegen.Generate(mod, allocs),
	}
	return res, diags, nil
}

func asBugError(r interface{}) (*diagnostics.BugError, bool) {
	if err, ok := r.(error); ok {
		var be *diagnostics.BugError
		if errors.As(err, &be) {
			return be, true
		}
	}
	if be, ok := r.(*diagnostics.BugError); ok {
		return be, true
	}
	return nil, false
}
