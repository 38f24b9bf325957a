package opt

import "arkoi/internal/ir"

// DeadCodeElimination is function-wide: it collects every operand used by
// a non-side-effecting instruction or by any control-flow/store/call/
// argument instruction, then deletes any instruction whose defined operand
// is absent from that set — except the side-effecting kinds themselves,
// per spec.md §4.3.
type DeadCodeElimination struct{ BasePass }

func isSideEffecting(inst ir.Instruction) bool {
	switch inst.(type) {
	case *ir.Call, *ir.Store, *ir.Argument, *ir.Return, *ir.Goto, *ir.If, *ir.Phi:
		return true
	default:
		return false
	}
}

func (DeadCodeElimination) ExitFunction(fn *ir.Function) bool {
	used := make(map[ir.VarKey]bool)
	usedMem := make(map[string]bool)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			for _, u := range inst.Uses() {
				switch u := u.(type) {
				case ir.Variable:
					used[u.Key()] = true
				case ir.Memory:
					usedMem[u.Name] = true
				}
			}
		}
	}

	changed := false
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if isSideEffecting(inst) {
				kept = append(kept, inst)
				continue
			}
			live := false
			for _, d := range inst.Defs() {
				switch d := d.(type) {
				case ir.Variable:
					if used[d.Key()] {
						live = true
					}
				case ir.Memory:
					if usedMem[d.Name] {
						live = true
					}
				}
			}
			if live || len(inst.Defs()) == 0 {
				kept = append(kept, inst)
			} else {
				changed = true
			}
		}
		b.Instructions = kept
	}
	return changed
}
