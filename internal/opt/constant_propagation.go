package opt

import "arkoi/internal/ir"

// ConstantPropagation walks each block top-down, tracking known immediate
// values per variable (scoped to the block) and rewriting uses to those
// immediates, per spec.md §4.3.
type ConstantPropagation struct{ BasePass }

func (ConstantPropagation) OnBlock(b *ir.BasicBlock) bool {
	changed := false
	known := make(map[ir.VarKey]ir.Immediate)

	rewrite := func(op ir.Operand) ir.Operand {
		v, ok := op.(ir.Variable)
		if !ok {
			return op
		}
		if imm, ok := known[v.Key()]; ok {
			changed = true
			return imm
		}
		return op
	}

	for _, inst := range b.Instructions {
		switch inst := inst.(type) {
		case *ir.Constant:
			known[inst.Dst.Key()] = inst.Imm

		case *ir.Assign:
			inst.Src = rewrite(inst.Src)
			if imm, ok := inst.Src.(ir.Immediate); ok {
				known[inst.Dst.Key()] = imm
			} else {
				delete(known, inst.Dst.Key())
			}

		case *ir.Binary:
			inst.Left = rewrite(inst.Left)
			inst.Right = rewrite(inst.Right)

		case *ir.Cast:
			inst.Src = rewrite(inst.Src)

		case *ir.Store:
			inst.Src = rewrite(inst.Src)

		case *ir.Argument:
			inst.Src = rewrite(inst.Src)

		case *ir.Return:
			inst.Value = rewrite(inst.Value)

		case *ir.If:
			inst.Cond = rewrite(inst.Cond)
		}
	}
	return changed
}
