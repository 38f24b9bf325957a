package codegen

import (
	"fmt"

	"arkoi/internal/diagnostics"
	"arkoi/internal/ir"
	"arkoi/internal/regalloc"
	"arkoi/internal/types"
)

// Generator lowers one allocated, phi-free ir.Function to a flat sequence
// of AssemblyItems, per spec.md §4.8. It is the Go-idiomatic counterpart
// of original_source's x86_64::Generator: a type switch over instruction
// kind instead of a visitor override per kind.
type Generator struct {
	fn       *ir.Function
	resolver *Resolver
	frame    *FrameLayout
	items    []AssemblyItem
}

func NewGenerator(fn *ir.Function, resolver *Resolver, frame *FrameLayout) *Generator {
	return &Generator{fn: fn, resolver: resolver, frame: frame}
}

// Generate lowers the whole function, including prologue/epilogue.
func (g *Generator) Generate() []AssemblyItem {
	g.emit(Label{Name: g.fn.Name})
	if !g.frame.UsesRedZone() {
		g.emit(inst("enter", Immediate{Text: fmt.Sprintf("%d", g.frame.Size())}, Immediate{Text: "0"}))
	} else if g.frame.Size() > 0 {
		g.emit(inst("sub", Register{Name: "rsp"}, Immediate{Text: fmt.Sprintf("%d", g.frame.Size())}))
	}

	for i, b := range g.fn.Blocks {
		if b != g.fn.Entry {
			g.emit(Label{Name: g.blockLabel(b)})
		}
		var fallthroughTo *ir.BasicBlock
		if i+1 < len(g.fn.Blocks) {
			fallthroughTo = g.fn.Blocks[i+1]
		}
		g.genBlock(b, fallthroughTo)
	}

	return g.items
}

func (g *Generator) blockLabel(b *ir.BasicBlock) string {
	return g.fn.Name + "_" + b.Label
}

func (g *Generator) emit(item AssemblyItem) { g.items = append(g.items, item) }

func (g *Generator) genBlock(b *ir.BasicBlock, fallthroughTo *ir.BasicBlock) {
	for _, inst := range b.Instructions {
		g.genInstruction(inst, fallthroughTo)
	}
	if b == g.fn.Exit {
		g.genEpilogue()
	}
}

func (g *Generator) genEpilogue() {
	if !g.frame.UsesRedZone() {
		g.emit(inst("leave"))
	} else if g.frame.Size() > 0 {
		g.emit(inst("add", Register{Name: "rsp"}, Immediate{Text: fmt.Sprintf("%d", g.frame.Size())}))
	}
	g.emit(inst("ret"))
}

func (g *Generator) genInstruction(i ir.Instruction, fallthroughTo *ir.BasicBlock) {
	switch inst := i.(type) {
	case *ir.Constant:
		g.genConstant(inst)
	case *ir.Assign:
		g.genAssign(inst)
	case *ir.Binary:
		g.genBinary(inst)
	case *ir.Cast:
		g.genCast(inst)
	case *ir.Alloca:
		// No-op: the slot is assigned at frame-layout time.
	case *ir.Load:
		g.genLoad(inst)
	case *ir.Store:
		g.genStore(inst)
	case *ir.Argument:
		g.genArgument(inst)
	case *ir.Call:
		g.genCall(inst)
	case *ir.Goto:
		g.genGoto(inst, fallthroughTo)
	case *ir.If:
		g.genIf(inst, fallthroughTo)
	case *ir.Return:
		g.genReturn(inst)
	case *ir.Phi:
		diagnostics.Bug(g.fn.Name, "phi", "phi reached code generation; LowerPhis must run first")
	default:
		diagnostics.Bug(g.fn.Name, "", "codegen: unhandled instruction kind %T", i)
	}
}

func isFloat(t types.Type) bool { return t.IsFloating() }

func (g *Generator) movMnemonic(t types.Type) string {
	if !isFloat(t) {
		return "mov"
	}
	if t.Size == 4 {
		return "movss"
	}
	return "movsd"
}

func (g *Generator) genMove(dst, src Operand, t types.Type) {
	if dst == src {
		return
	}
	g.emit(inst(g.movMnemonic(t), dst, src))
}

func (g *Generator) genConstant(c *ir.Constant) {
	dst := g.resolver.Resolve(c.Dst)
	src := g.resolver.Resolve(c.Imm)
	if isFloat(c.Dst.Type) {
		// movss/movsd cannot target a plain memory destination directly
		// from a RODataRef source in one instruction on every assembler
		// convention, so stage through a scratch XMM register when dst is
		// itself memory.
		if _, memDst := dst.(Memory); memDst {
			scratch := Register{Name: regalloc.ScratchFloat[0].Name}
			g.emit(inst(g.movMnemonic(c.Dst.Type), scratch, src))
			g.emit(inst(g.movMnemonic(c.Dst.Type), dst, scratch))
			return
		}
	}
	g.genMove(dst, src, c.Dst.Type)
}

func (g *Generator) genAssign(a *ir.Assign) {
	dst := g.resolver.Resolve(a.Dst)
	src := g.resolver.Resolve(a.Src)
	g.genMoveThroughScratch(dst, src, a.Dst.Type)
}

// genMoveThroughScratch emits dst <- src, staging through the class's
// first scratch register when both operands are memory (x86-64 forbids
// memory-to-memory moves).
func (g *Generator) genMoveThroughScratch(dst, src Operand, t types.Type) {
	_, dstMem := dst.(Memory)
	_, srcMem := src.(Memory)
	if dstMem && srcMem {
		scratch := g.scratch(t)
		g.emit(inst(g.movMnemonic(t), scratch, src))
		g.emit(inst(g.movMnemonic(t), dst, scratch))
		return
	}
	g.genMove(dst, src, t)
}

func (g *Generator) scratch(t types.Type) Register {
	if isFloat(t) {
		return Register{Name: regalloc.ScratchFloat[0].Name}
	}
	return Register{Name: RegisterName(regalloc.ScratchInt[0], t.Size)}
}

func (g *Generator) scratch2(t types.Type) Register {
	if isFloat(t) {
		return Register{Name: regalloc.ScratchFloat[1].Name}
	}
	return Register{Name: RegisterName(regalloc.ScratchInt[1], t.Size)}
}

// adjustToReg ensures op is in a register, staging through a scratch
// register when it is memory or an immediate that the target mnemonic
// cannot take directly.
func (g *Generator) adjustToReg(op Operand, t types.Type, scratch Register) Operand {
	if _, ok := op.(Register); ok {
		return op
	}
	g.emit(inst(g.movMnemonic(t), scratch, op))
	return scratch
}

func (g *Generator) genBinary(b *ir.Binary) {
	dst := g.resolver.Resolve(b.Dst)
	left := g.resolver.Resolve(b.Left)
	right := g.resolver.Resolve(b.Right)

	if b.Op.IsComparison() {
		g.genComparison(b, dst, left, right)
		return
	}
	if isFloat(b.OpType) {
		g.genFloatArith(b, dst, left, right)
		return
	}
	g.genIntArith(b, dst, left, right)
}

func (g *Generator) genIntArith(b *ir.Binary, dst, left, right Operand) {
	if b.Op == ir.Div {
		g.genIntDiv(b, dst, left, right)
		return
	}
	mnemonic := map[ir.BinaryOp]string{ir.Add: "add", ir.Sub: "sub", ir.Mul: "imul"}[b.Op]

	// Two-operand imul never accepts a memory destination, unlike add/sub;
	// stage the whole computation through a register and store back.
	if _, dstMem := dst.(Memory); dstMem && b.Op == ir.Mul {
		acc := g.scratch(b.OpType)
		g.emit(inst(g.movMnemonic(b.OpType), acc, left))
		g.emit(inst(mnemonic, acc, right))
		g.genMove(dst, acc, b.OpType)
		return
	}

	g.genMoveThroughScratch(dst, left, b.OpType)
	if _, dstMem := dst.(Memory); dstMem {
		if _, rightMem := right.(Memory); rightMem {
			scratch := g.scratch2(b.OpType)
			g.emit(inst(g.movMnemonic(b.OpType), scratch, right))
			right = scratch
		}
	}
	g.emit(inst(mnemonic, dst, right))
}

// genIntDiv stages the dividend into rax, sign/zero-extends into rdx, and
// divides by the divisor's register or memory operand (an immediate divisor
// is first moved into a scratch register), per spec.md §4.8: "idiv/div,
// which requires rax to hold the dividend and clobbers rdx."
func (g *Generator) genIntDiv(b *ir.Binary, dst, left, right Operand) {
	width := b.OpType.Size
	rax := Register{Name: RegisterName(regalloc.Register{Name: "rax", Cls: regalloc.IntClass}, width)}
	rdx := Register{Name: RegisterName(regalloc.Register{Name: "rdx", Cls: regalloc.IntClass}, width)}

	g.emit(inst(g.movMnemonic(b.OpType), rax, left))
	if b.OpType.Signed {
		g.emit(inst(signExtendMnemonic(width), rdx))
	} else {
		g.emit(inst("xor", rdx, rdx))
	}

	divisor := right
	if _, mem := right.(Memory); !mem {
		if _, imm := right.(Immediate); imm {
			scratch := g.scratch2(b.OpType)
			g.emit(inst(g.movMnemonic(b.OpType), scratch, right))
			divisor = scratch
		}
	}
	mnemonic := "idiv"
	if !b.OpType.Signed {
		mnemonic = "div"
	}
	g.emit(inst(mnemonic, divisor))
	g.genMove(dst, rax, b.OpType)
}

// signExtendMnemonic picks the width-appropriate sign-extend-into-rdx
// opcode (cqo/cdq/cwd) for a dividend already staged in rax.
func signExtendMnemonic(width int) string {
	switch width {
	case 8:
		return "cqo"
	case 2:
		return "cwd"
	default:
		return "cdq"
	}
}

func (g *Generator) genFloatArith(b *ir.Binary, dst, left, right Operand) {
	suffix := "ss"
	if b.OpType.Size == 8 {
		suffix = "sd"
	}
	mnemonic := map[ir.BinaryOp]string{ir.Add: "add" + suffix, ir.Sub: "sub" + suffix, ir.Mul: "mul" + suffix, ir.Div: "div" + suffix}[b.Op]

	// SSE arithmetic always writes its destination operand to an XMM
	// register, never memory; stage through scratch when dst spilled.
	if _, dstMem := dst.(Memory); dstMem {
		acc := g.scratch(b.OpType)
		g.emit(inst(g.movMnemonic(b.OpType), acc, left))
		g.emit(inst(mnemonic, acc, right))
		g.genMove(dst, acc, b.OpType)
		return
	}
	g.genMove(dst, left, b.OpType)
	g.emit(inst(mnemonic, dst, right))
}

func (g *Generator) genComparison(b *ir.Binary, dst, left, right Operand) {
	if isFloat(b.OpType) {
		cmp := "ucomiss"
		if b.OpType.Size == 8 {
			cmp = "ucomisd"
		}
		g.emit(inst(cmp, g.adjustToReg(left, b.OpType, g.scratch(b.OpType)), right))
	} else {
		g.emit(inst("cmp", g.adjustToReg(left, b.OpType, g.scratch(b.OpType)), right))
	}

	setcc := comparisonSetcc(b.Op, b.OpType)
	low8 := Register{Name: RegisterName(regalloc.ScratchInt[0], 1)}
	g.emit(inst(setcc, low8))

	// A comparison's result is always a 1-byte bool (spec.md §3), so the
	// setcc byte can move straight into dst without a widening step.
	g.genMove(dst, low8, types.Bool)
}

func comparisonSetcc(op ir.BinaryOp, t types.Type) string {
	if isFloat(t) {
		if op == ir.GreaterThan {
			return "seta"
		}
		return "setb"
	}
	if t.Signed {
		if op == ir.GreaterThan {
			return "setg"
		}
		return "setl"
	}
	if op == ir.GreaterThan {
		return "seta"
	}
	return "setb"
}

func (g *Generator) genCast(c *ir.Cast) {
	dst := g.resolver.Resolve(c.Dst)
	src := g.resolver.Resolve(c.Src)
	from, to := c.From, c.Dst.Type

	switch {
	case to.IsBoolean():
		g.genCastToBool(dst, src, from)
	case from.IsIntegral() && to.IsIntegral():
		g.genIntToInt(dst, src, from, to)
	case from.IsFloating() && to.IsFloating():
		g.genFloatToFloat(dst, src, from, to)
	case from.IsIntegral() && to.IsFloating():
		g.emitRegDst(to, dst, func(reg Register) { g.emit(inst(cvtIntToFloat(to), reg, g.adjustToReg(src, from, g.scratch(from)))) })
	case from.IsFloating() && to.IsIntegral():
		g.emitRegDst(to, dst, func(reg Register) { g.emit(inst(cvtFloatToInt(from), reg, src)) })
	case from.IsBoolean() && to.IsFloating():
		g.emitRegDst(to, dst, func(reg Register) { g.emit(inst(cvtIntToFloat(to), reg, g.adjustToReg(src, from, g.scratch(from)))) })
	case from.IsBoolean() && to.IsIntegral():
		g.emitRegDst(to, dst, func(reg Register) { g.emit(inst("movzx", reg, g.adjustToReg(src, from, g.scratch(from)))) })
	default:
		diagnostics.Bug(g.fn.Name, "cast", "unhandled cast from %s to %s", from, to)
	}
}

// emitRegDst runs body against a register guaranteed to hold t's value —
// dst itself when dst is already a register, a scratch register (stored
// back to dst afterward) when dst is memory. Several SSE and sign/zero-
// extension opcodes require a register destination and reject memory.
func (g *Generator) emitRegDst(t types.Type, dst Operand, body func(reg Register)) {
	if reg, ok := dst.(Register); ok {
		body(reg)
		return
	}
	scratch := g.scratch(t)
	body(scratch)
	g.genMove(dst, scratch, t)
}

func (g *Generator) genCastToBool(dst, src Operand, from types.Type) {
	if isFloat(from) {
		zero := g.scratch(from)
		g.emit(inst("xorps", zero, zero))
		cmp := "ucomiss"
		if from.Size == 8 {
			cmp = "ucomisd"
		}
		g.emit(inst(cmp, g.adjustToReg(src, from, g.scratch(from)), zero))
	} else {
		reg := g.adjustToReg(src, from, g.scratch(from))
		g.emit(inst("test", reg, reg))
	}
	low8 := Register{Name: RegisterName(regalloc.ScratchInt[0], 1)}
	g.emit(inst("setne", low8))
	g.genMove(dst, low8, types.Bool)
}

func (g *Generator) genIntToInt(dst, src Operand, from, to types.Type) {
	if to.Size <= from.Size {
		g.genMoveThroughScratch(dst, src, to)
		return
	}
	mnemonic := "movzx"
	if from.Signed {
		mnemonic = "movsx"
		if from.Size == 4 && to.Size == 8 {
			mnemonic = "movsxd"
		}
	}
	g.emitRegDst(to, dst, func(reg Register) { g.emit(inst(mnemonic, reg, src)) })
}

func (g *Generator) genFloatToFloat(dst, src Operand, from, to types.Type) {
	if from.Size == to.Size {
		g.genMove(dst, src, to)
		return
	}
	mnemonic := "cvtss2sd"
	if from.Size == 8 {
		mnemonic = "cvtsd2ss"
	}
	g.emitRegDst(to, dst, func(reg Register) { g.emit(inst(mnemonic, reg, src)) })
}

func cvtIntToFloat(to types.Type) string {
	if to.Size == 4 {
		return "cvtsi2ss"
	}
	return "cvtsi2sd"
}

func cvtFloatToInt(from types.Type) string {
	if from.Size == 4 {
		return "cvttss2si"
	}
	return "cvttsd2si"
}

func (g *Generator) genLoad(l *ir.Load) {
	dst := g.resolver.Resolve(l.Dst)
	mem := g.resolver.Resolve(l.Mem)
	g.genMove(dst, mem, l.Dst.Type)
}

func (g *Generator) genStore(s *ir.Store) {
	mem := g.resolver.Resolve(s.Mem)
	src := g.resolver.Resolve(s.Src)
	g.genMoveThroughScratch(mem, src, s.Mem.Type)
}

// argClassifier reproduces the pre-colorer's ABI counters (spec.md §4.6)
// so codegen can tell, per Argument instruction, which class and slot it
// was assigned to — counters reset at each Call, exactly like
// regalloc.PreColorer.
type argClassifier struct{ intIdx, floatIdx int }

func (c *argClassifier) classify(t types.Type) (class regalloc.Class, slot int, stackPassed bool) {
	if regalloc.ClassOf(t) == regalloc.FloatClass {
		if c.floatIdx < len(regalloc.FloatArgRegs) {
			slot = c.floatIdx
			c.floatIdx++
			return regalloc.FloatClass, slot, false
		}
		return regalloc.FloatClass, 0, true
	}
	if c.intIdx < len(regalloc.IntArgRegs) {
		slot = c.intIdx
		c.intIdx++
		return regalloc.IntClass, slot, false
	}
	return regalloc.IntClass, 0, true
}

func (g *Generator) genArgument(a *ir.Argument) {
	// Moves the argument value into the Argument's destination, which the
	// pre-colorer pinned to the ABI register for its slot. genCall then
	// re-derives each argument's ABI slot the same way the pre-colorer did
	// and moves the value there, which is a no-op when the locations match.
	dst := g.resolver.Resolve(a.Dst)
	src := g.resolver.Resolve(a.Src)
	g.genMoveThroughScratch(dst, src, a.Dst.Type)
}

func (g *Generator) genCall(c *ir.Call) {
	classifier := &argClassifier{}
	var stackArgs []ir.Operand

	for _, argOp := range c.Args {
		v, ok := argOp.(ir.Variable)
		if !ok {
			continue
		}
		class, slot, stackPassed := classifier.classify(v.Type)
		if stackPassed {
			stackArgs = append(stackArgs, argOp)
			continue
		}
		var reg regalloc.Register
		if class == regalloc.FloatClass {
			reg = regalloc.FloatArgRegs[slot]
		} else {
			reg = regalloc.IntArgRegs[slot]
		}
		target := Register{Name: RegisterName(reg, v.Type.Size)}
		g.genMove(target, g.resolver.Resolve(argOp), v.Type)
	}

	// Stack arguments are pushed right-to-left, per spec.md §4.8.
	for i := len(stackArgs) - 1; i >= 0; i-- {
		g.emit(inst("push", g.resolver.Resolve(stackArgs[i])))
	}
	if odd := len(stackArgs)%2 != 0; odd {
		g.emit(inst("push", Register{Name: "rax"}))
	}

	g.emit(inst("call", Symbol{Name: c.Name}))

	if len(stackArgs) > 0 {
		cleanup := len(stackArgs) * 8
		if len(stackArgs)%2 != 0 {
			cleanup += 8
		}
		g.emit(inst("add", Register{Name: "rsp"}, Immediate{Text: fmt.Sprintf("%d", cleanup)}))
	}

	dst := g.resolver.Resolve(c.Dst)
	returnReg := regalloc.ReturnRegister(c.Dst.Type)
	g.genMove(dst, Register{Name: RegisterName(returnReg, c.Dst.Type.Size)}, c.Dst.Type)
}

func (g *Generator) genGoto(gt *ir.Goto, fallthroughTo *ir.BasicBlock) {
	if fallthroughTo != nil && fallthroughTo.Label == gt.Label {
		return
	}
	g.emit(inst("jmp", Symbol{Name: g.fn.Name + "_" + gt.Label}))
}

func (g *Generator) genIf(i *ir.If, fallthroughTo *ir.BasicBlock) {
	cond := g.resolver.Resolve(i.Cond)
	condReg := g.adjustToReg(cond, types.Bool, g.scratch(types.Bool))
	g.emit(inst("test", condReg, condReg))
	g.emit(inst("jnz", Symbol{Name: g.fn.Name + "_" + i.Branch}))
	if fallthroughTo == nil || fallthroughTo.Label != i.Next {
		g.emit(inst("jmp", Symbol{Name: g.fn.Name + "_" + i.Next}))
	}
}

func (g *Generator) genReturn(r *ir.Return) {
	// Return's operand is always a Variable the pre-colorer already pinned
	// to the ABI return register (regalloc.PreColorer.Run's Return case),
	// so the instruction that defines it already materialized the value there;
	// Return itself contributes no instruction beyond Exit's epilogue.
	_ = r
}
