package opt

import (
	"arkoi/internal/ir"
	"arkoi/internal/types"
)

// ConstantFolding evaluates Binary and Cast instructions whose operands
// are all Immediate and replaces them with a Constant, per spec.md §4.3.
// Integer division by zero is left intact (folding opportunity dropped)
// so the runtime trap behavior is preserved.
type ConstantFolding struct{ BasePass }

func (ConstantFolding) OnBlock(b *ir.BasicBlock) bool {
	changed := false
	for i, inst := range b.Instructions {
		switch inst := inst.(type) {
		case *ir.Binary:
			if folded, ok := foldBinary(inst); ok {
				b.Instructions[i] = folded
				changed = true
			}
		case *ir.Cast:
			if folded, ok := foldCast(inst); ok {
				b.Instructions[i] = folded
				changed = true
			}
		}
	}
	return changed
}

func foldBinary(b *ir.Binary) (*ir.Constant, bool) {
	lhs, ok := b.Left.(ir.Immediate)
	if !ok {
		return nil, false
	}
	rhs, ok := b.Right.(ir.Immediate)
	if !ok {
		return nil, false
	}

	if b.OpType.IsFloating() {
		l, r := lhs.Float(), rhs.Float()
		var result float64
		switch b.Op {
		case ir.Add:
			result = l + r
		case ir.Sub:
			result = l - r
		case ir.Mul:
			result = l * r
		case ir.Div:
			result = l / r
		case ir.GreaterThan:
			return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l > r)}, true
		case ir.LessThan:
			return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l < r)}, true
		}
		return &ir.Constant{Dst: b.Dst, Imm: ir.NewFloat(b.Dst.Type, result)}, true
	}

	if b.OpType.Signed {
		l, r := lhs.Int(), rhs.Int()
		switch b.Op {
		case ir.Add:
			return &ir.Constant{Dst: b.Dst, Imm: wrapInt(b.Dst.Type, l+r)}, true
		case ir.Sub:
			return &ir.Constant{Dst: b.Dst, Imm: wrapInt(b.Dst.Type, l-r)}, true
		case ir.Mul:
			return &ir.Constant{Dst: b.Dst, Imm: wrapInt(b.Dst.Type, l*r)}, true
		case ir.Div:
			if r == 0 {
				return nil, false
			}
			return &ir.Constant{Dst: b.Dst, Imm: wrapInt(b.Dst.Type, l/r)}, true
		case ir.GreaterThan:
			return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l > r)}, true
		case ir.LessThan:
			return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l < r)}, true
		}
	}

	l, r := lhs.Uint(), rhs.Uint()
	switch b.Op {
	case ir.Add:
		return &ir.Constant{Dst: b.Dst, Imm: wrapUint(b.Dst.Type, l+r)}, true
	case ir.Sub:
		return &ir.Constant{Dst: b.Dst, Imm: wrapUint(b.Dst.Type, l-r)}, true
	case ir.Mul:
		return &ir.Constant{Dst: b.Dst, Imm: wrapUint(b.Dst.Type, l*r)}, true
	case ir.Div:
		if r == 0 {
			return nil, false
		}
		return &ir.Constant{Dst: b.Dst, Imm: wrapUint(b.Dst.Type, l/r)}, true
	case ir.GreaterThan:
		return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l > r)}, true
	case ir.LessThan:
		return &ir.Constant{Dst: b.Dst, Imm: ir.NewBool(l < r)}, true
	}
	return nil, false
}

// wrapInt produces a signed immediate whose bit pattern has already been
// masked/sign-extended to the destination width, giving two's-complement
// wraparound on overflow.
func wrapInt(t types.Type, v int64) ir.Immediate {
	imm := ir.NewInt(t, v)
	return ir.NewInt(t, imm.Int())
}

func wrapUint(t types.Type, v uint64) ir.Immediate {
	imm := ir.NewUint(t, v)
	return ir.NewUint(t, imm.Uint())
}

func foldCast(c *ir.Cast) (*ir.Constant, bool) {
	src, ok := c.Src.(ir.Immediate)
	if !ok {
		return nil, false
	}

	dstType := c.Dst.Type
	switch {
	case c.From.IsFloating() && dstType.IsFloating():
		return &ir.Constant{Dst: c.Dst, Imm: ir.NewFloat(dstType, src.Float())}, true
	case c.From.IsFloating() && dstType.IsIntegral():
		if dstType.Signed {
			return &ir.Constant{Dst: c.Dst, Imm: ir.NewInt(dstType, int64(src.Float()))}, true
		}
		return &ir.Constant{Dst: c.Dst, Imm: ir.NewUint(dstType, uint64(src.Float()))}, true
	case c.From.IsIntegral() && dstType.IsFloating():
		if c.From.Signed {
			return &ir.Constant{Dst: c.Dst, Imm: ir.NewFloat(dstType, float64(src.Int()))}, true
		}
		return &ir.Constant{Dst: c.Dst, Imm: ir.NewFloat(dstType, float64(src.Uint()))}, true
	case c.From.IsIntegral() && dstType.IsIntegral():
		if dstType.Signed {
			return &ir.Constant{Dst: c.Dst, Imm: ir.NewInt(dstType, src.Int())}, true
		}
		return &ir.Constant{Dst: c.Dst, Imm: ir.NewUint(dstType, src.Uint())}, true
	case dstType.IsBoolean():
		return &ir.Constant{Dst: c.Dst, Imm: ir.NewBool(src.Bool())}, true
	default:
		return nil, false
	}
}
