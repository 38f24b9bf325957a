// Package opt implements the optimization pass manager of spec.md §4.3:
// constant folding, constant propagation, copy propagation, dead-code
// elimination, and CFG simplification, run to a fixed point. Grounded on
// original_source's opt/pass.hpp (the four-hook Pass interface) and the
// per-pass headers under opt/.
package opt

import "arkoi/internal/ir"

// Pass is the five-hook interface every optimization implements. Any hook
// may be a no-op; each reports whether it modified its argument.
type Pass interface {
	EnterModule(m *ir.Module) bool
	ExitModule(m *ir.Module) bool
	EnterFunction(f *ir.Function) bool
	ExitFunction(f *ir.Function) bool
	OnBlock(b *ir.BasicBlock) bool
}

// BasePass gives every concrete pass a no-op default for hooks it does not
// use, so each pass only overrides what it needs (embedding, not
// inheritance, since Go has no v-tables to spare).
type BasePass struct{}

func (BasePass) EnterModule(*ir.Module) bool      { return false }
func (BasePass) ExitModule(*ir.Module) bool       { return false }
func (BasePass) EnterFunction(*ir.Function) bool  { return false }
func (BasePass) ExitFunction(*ir.Function) bool   { return false }
func (BasePass) OnBlock(*ir.BasicBlock) bool      { return false }

// PassManager runs a fixed sequence of passes to a fixed point over a
// module: every pass runs once per round, in order; if any pass in the
// round reported a change, the manager runs another round.
type PassManager struct {
	passes []Pass
}

func NewPassManager(passes ...Pass) *PassManager {
	return &PassManager{passes: passes}
}

func (pm *PassManager) Add(p Pass) { pm.passes = append(pm.passes, p) }

// Run drives every pass over module to a fixed point, per spec.md §4.3.
// Termination is guaranteed because each required pass is monotone: the
// product of instruction count and immediate-constant count strictly
// decreases whenever a pass reports a change.
func (pm *PassManager) Run(m *ir.Module) {
	for {
		changed := false
		for _, p := range pm.passes {
			if pm.runOnce(p, m) {
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (pm *PassManager) runOnce(p Pass, m *ir.Module) bool {
	changed := false
	if p.EnterModule(m) {
		changed = true
	}
	for _, fn := range m.Functions {
		if p.EnterFunction(fn) {
			changed = true
		}
		for _, b := range fn.Blocks {
			if p.OnBlock(b) {
				changed = true
			}
		}
		if p.ExitFunction(fn) {
			changed = true
		}
	}
	if p.ExitModule(m) {
		changed = true
	}
	return changed
}

// Standard returns the pass manager required by spec.md §4.3, in source
// order: fold, propagate constants, propagate copies, eliminate dead code,
// simplify the CFG.
func Standard() *PassManager {
	return NewPassManager(
		&ConstantFolding{},
		&ConstantPropagation{},
		&CopyPropagation{},
		&DeadCodeElimination{},
		&SimplifyCFG{},
	)
}
