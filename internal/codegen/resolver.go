package codegen

import (
	"arkoi/internal/diagnostics"
	"arkoi/internal/ir"
	"arkoi/internal/regalloc"
)

// Resolver maps every IL operand of one function to a machine operand,
// per spec.md §4.8: a register color resolves to the physical register of
// the right width, a spilled variable or local resolves to a frame-
// relative Memory, and an immediate resolves to a literal or (for floats)
// a RODataRef into the constant pool.
type Resolver struct {
	fn     *ir.Function
	assign regalloc.Mapping
	frame  *FrameLayout
	pool   *RODataPool
}

func NewResolver(fn *ir.Function, assign regalloc.Mapping, frame *FrameLayout, pool *RODataPool) *Resolver {
	return &Resolver{fn: fn, assign: assign, frame: frame, pool: pool}
}

// Resolve maps op to its machine operand.
func (r *Resolver) Resolve(op ir.Operand) Operand {
	switch v := op.(type) {
	case ir.Immediate:
		if v.Typ.IsFloating() {
			return RODataRef{Label: r.pool.Label(v)}
		}
		return Immediate{Text: v.String()}

	case ir.Variable:
		return r.resolveVariable(v)

	case ir.Memory:
		return r.resolveMemory(v)

	default:
		diagnostics.Bug(r.fn.Name, "", "resolver: unhandled operand kind %T", op)
		return nil
	}
}

func (r *Resolver) resolveVariable(v ir.Variable) Operand {
	if reg, ok := r.assign[v.Key()]; ok {
		return Register{Name: RegisterName(reg, v.Type.Size)}
	}
	return r.resolveMemory(ir.Memory{Name: v.Name, Type: v.Type})
}

func (r *Resolver) resolveMemory(m ir.Memory) Operand {
	off, ok := r.frame.Offset(m.Name)
	if !ok {
		diagnostics.Bug(r.fn.Name, "", "resolver: memory operand %q has no frame slot", m.Name)
	}
	base := r.frame.Base()
	if base == "rbp" {
		return Memory{Base: base, Offset: -off}
	}
	// Red-zone functions index downward from rsp exactly like rbp-relative
	// frames, just without the enter/leave pair establishing rbp.
	return Memory{Base: base, Offset: -off}
}
