package opt

import "arkoi/internal/ir"

// CopyPropagation walks each block top-down, tracking the root variable
// each variable was last copied from via Assign (transitively closed on
// insert), and rewrites uses to that root, per spec.md §4.3.
type CopyPropagation struct{ BasePass }

func (CopyPropagation) OnBlock(b *ir.BasicBlock) bool {
	changed := false
	root := make(map[ir.VarKey]ir.Variable)

	resolve := func(v ir.Variable) ir.Variable {
		for {
			r, ok := root[v.Key()]
			if !ok {
				return v
			}
			v = r
		}
	}

	rewrite := func(op ir.Operand) ir.Operand {
		v, ok := op.(ir.Variable)
		if !ok {
			return op
		}
		r := resolve(v)
		if r.Key() != v.Key() {
			changed = true
			return r
		}
		return op
	}

	for _, inst := range b.Instructions {
		switch inst := inst.(type) {
		case *ir.Assign:
			inst.Src = rewrite(inst.Src)
			if src, ok := inst.Src.(ir.Variable); ok {
				root[inst.Dst.Key()] = resolve(src)
			} else {
				delete(root, inst.Dst.Key())
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
