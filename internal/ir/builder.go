package ir

import (
	"fmt"

	"github.com/iancoleman/strcase"

	"arkoi/internal/ast"
	"arkoi/internal/types"
)

// Builder lowers a resolved ast.Program into a Module of TAC functions,
// implementing spec.md §4.1. Fresh temporary and label names draw from two
// monotone counters per function, matching the teacher's counter-based
// naming scheme in its own internal/ir/builder.go.
type Builder struct {
	module  *Module
	fn      *Function
	current *BasicBlock
	tempNo  int
	labelNo int
	memNo   int
	slots   map[*ast.Symbol]Memory
}

func NewBuilder() *Builder { return &Builder{module: &Module{}} }

// Build lowers every function declaration of prog.
func Build(prog *ast.Program) *Module {
	b := NewBuilder()
	for _, fn := range prog.Functions {
		b.buildFunction(fn)
	}
	return b.module
}

func (b *Builder) freshTemp(t types.Type) Variable {
	b.tempNo++
	return Variable{Name: fmt.Sprintf("$%d", b.tempNo), Type: t}
}

func (b *Builder) freshLabel() string {
	b.labelNo++
	return fmt.Sprintf("L%d", b.labelNo)
}

// freshSlot names a stack slot after the user identifier it holds,
// normalized to snake_case so slot names stay readable and stable
// regardless of the source's own identifier casing (the source language
// has no casing convention of its own).
func (b *Builder) freshSlot(name string, t types.Type) Memory {
	b.memNo++
	return Memory{Name: fmt.Sprintf("%%%s.%d", strcase.ToSnake(name), b.memNo), Type: t}
}

func (b *Builder) buildFunction(decl *ast.Function) {
	fn := NewFunction(decl.Name, decl.ReturnType)
	b.fn = fn
	b.slots = make(map[*ast.Symbol]Memory)
	b.tempNo, b.labelNo, b.memNo = 0, 0, 0
	b.current = fn.Entry

	// Return slot, allocated at entry per spec.md §4.1.
	retSlot := b.freshSlot("ret", decl.ReturnType)
	fn.ReturnSlot = retSlot
	b.current.Emit(&Alloca{Mem: retSlot})

	// Parameters: each gets a synthetic input variable and an entry-block
	// Store into its own stack slot, so reads go through Load uniformly
	// with locals. The input variable is what the allocator's pre-colorer
	// later pins to the parameter's ABI register.
	for _, p := range decl.Params {
		paramVar := Variable{Name: "%" + p.Name, Type: p.Type}
		fn.Params = append(fn.Params, paramVar)
		fn.ParamTypes = append(fn.ParamTypes, p.Type)

		slot := b.freshSlot(p.Name, p.Type)
		b.slots[p.Symbol] = slot
		b.current.Emit(&Alloca{Mem: slot})
		b.current.Emit(&Store{Mem: slot, Src: paramVar})
	}

	// Pre-scan: allocate every declared local's stack slot in the entry
	// block before any statement is built, per spec.md §4.1.
	b.collectLocals(decl.Body)

	b.buildStmts(decl.Body)

	if b.current.Terminator() == nil {
		b.current.Emit(&Goto{Label: fn.Exit.Label})
		b.current.SetNext(fn.Exit)
	}

	// Exit block: load the return slot and return it, keeping every
	// function single-exit.
	retVal := b.freshTemp(decl.ReturnType)
	fn.Exit.Emit(&Load{Dst: retVal, Mem: retSlot})
	fn.Exit.Emit(&Return{Value: retVal})

	b.module.Functions = append(b.module.Functions, fn)
}

func (b *Builder) collectLocals(stmts []ast.Stmt) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *ast.LetStmt:
			slot := b.freshSlot(s.Name, s.Type)
			b.slots[s.Symbol] = slot
			b.fn.Entry.Emit(&Alloca{Mem: slot})
		case *ast.IfStmt:
			b.collectLocals(s.ThenArm)
			b.collectLocals(s.ElseArm)
		case *ast.WhileStmt:
			b.collectLocals(s.Body)
		}
	}
}

func (b *Builder) buildStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		b.buildStmt(s)
	}
}

func (b *Builder) buildStmt(s ast.Stmt) {
	switch s := s.(type) {
	case *ast.LetStmt:
		val := b.buildExpr(s.Value)
		b.current.Emit(&Store{Mem: b.slots[s.Symbol], Src: val})

	case *ast.AssignStmt:
		val := b.buildExpr(s.Value)
		b.current.Emit(&Store{Mem: b.slots[s.Symbol], Src: val})

	case *ast.ReturnStmt:
		val := b.buildExpr(s.Value)
		b.current.Emit(&Store{Mem: b.fn.ReturnSlot, Src: val})
		b.current.Emit(&Goto{Label: b.fn.Exit.Label})
		b.current.SetNext(b.fn.Exit)
		// Statements textually following a return are unreachable; park
		// them in a fresh, predecessor-less block so CFG simplification
		// discards them cleanly later.
		b.current = b.fn.AddBlock(b.freshLabel())

	case *ast.ExprStmt:
		b.buildExpr(s.Value)

	case *ast.IfStmt:
		b.buildIf(s)

	case *ast.WhileStmt:
		b.buildWhile(s)

	default:
		panic(fmt.Sprintf("ir: unhandled statement %T", s))
	}
}

func (b *Builder) buildIf(s *ast.IfStmt) {
	cond := b.buildExpr(s.Cond)

	thenBB := b.fn.AddBlock(b.freshLabel())
	joinBB := b.fn.AddBlock(b.freshLabel())

	var elseBB *BasicBlock
	falseTarget := joinBB
	if len(s.ElseArm) > 0 {
		elseBB = b.fn.AddBlock(b.freshLabel())
		falseTarget = elseBB
	}

	b.current.Emit(&If{Cond: cond, Branch: thenBB.Label, Next: falseTarget.Label})
	b.current.SetBranch(thenBB)
	b.current.SetNext(falseTarget)

	b.current = thenBB
	b.buildStmts(s.ThenArm)
	if b.current.Terminator() == nil {
		b.current.Emit(&Goto{Label: joinBB.Label})
		b.current.SetNext(joinBB)
	}

	if elseBB != nil {
		b.current = elseBB
		b.buildStmts(s.ElseArm)
		if b.current.Terminator() == nil {
			b.current.Emit(&Goto{Label: joinBB.Label})
			b.current.SetNext(joinBB)
		}
	}

	b.current = joinBB
}

func (b *Builder) buildWhile(s *ast.WhileStmt) {
	header := b.fn.AddBlock(b.freshLabel())
	body := b.fn.AddBlock(b.freshLabel())
	exit := b.fn.AddBlock(b.freshLabel())

	b.current.Emit(&Goto{Label: header.Label})
	b.current.SetNext(header)

	b.current = header
	cond := b.buildExpr(s.Cond)
	header.Emit(&If{Cond: cond, Branch: body.Label, Next: exit.Label})
	header.SetBranch(body)
	header.SetNext(exit)

	b.current = body
	b.buildStmts(s.Body)
	if b.current.Terminator() == nil {
		b.current.Emit(&Goto{Label: header.Label})
		b.current.SetNext(header)
	}

	b.current = exit
}

// buildExpr lowers e left-to-right, leaving the result in a freshly minted
// single-use temporary, per spec.md §4.1.
func (b *Builder) buildExpr(e ast.Expr) Operand {
	switch e := e.(type) {
	case *ast.IntLiteral:
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Constant{Dst: dst, Imm: NewInt(e.Type(), e.Value)})
		return dst

	case *ast.FloatLiteral:
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Constant{Dst: dst, Imm: NewFloat(e.Type(), e.Value)})
		return dst

	case *ast.BoolLiteral:
		dst := b.freshTemp(types.Bool)
		b.current.Emit(&Constant{Dst: dst, Imm: NewBool(e.Value)})
		return dst

	case *ast.Ident:
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Load{Dst: dst, Mem: b.slots[e.Symbol]})
		return dst

	case *ast.Binary:
		left := b.buildExpr(e.Left)
		right := b.buildExpr(e.Right)
		op := toIROp(e.Op)
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Binary{Dst: dst, Op: op, Left: left, Right: right, OpType: e.Left.Type()})
		return dst

	case *ast.Cast:
		src := b.buildExpr(e.Value)
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Cast{Dst: dst, Src: src, From: e.From})
		return dst

	case *ast.Call:
		args := make([]Operand, len(e.Args))
		for i, a := range e.Args {
			v := b.buildExpr(a)
			argDst := b.freshTemp(v.OperandType())
			b.current.Emit(&Argument{Dst: argDst, Src: v})
			args[i] = argDst
		}
		dst := b.freshTemp(e.Type())
		b.current.Emit(&Call{Dst: dst, Name: e.Name, Args: args})
		return dst

	default:
		panic(fmt.Sprintf("ir: unhandled expression %T", e))
	}
}

func toIROp(op ast.BinaryOp) BinaryOp {
	switch op {
	case ast.OpAdd:
		return Add
	case ast.OpSub:
		return Sub
	case ast.OpMul:
		return Mul
	case ast.OpDiv:
		return Div
	case ast.OpLess:
		return LessThan
	case ast.OpGreater:
		return GreaterThan
	default:
		panic("ir: unknown ast.BinaryOp")
	}
}
