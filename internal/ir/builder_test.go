package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ast"
	"arkoi/internal/ir"
	"arkoi/internal/types"
)

func sym(name string, t types.Type) *ast.Symbol {
	return &ast.Symbol{Name: name, Type: t, Kind: ast.SymVariable}
}

func TestBuildReturnsConstant(t *testing.T) {
	prog := &ast.Program{Functions: []*ast.Function{{
		Name:       "main",
		ReturnType: types.S32,
		Body: []ast.Stmt{
			&ast.ReturnStmt{Value: &ast.IntLiteral{Value: 0}},
		},
	}}}
	prog.Functions[0].Body[0].(*ast.ReturnStmt).Value.SetType(types.S32)

	mod := ir.Build(prog)
	require.Len(t, mod.Functions, 1)
	fn := mod.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.NotNil(t, fn.Entry)
	assert.NotNil(t, fn.Exit)

	// Entry must contain the return-slot alloca and a store, then a goto.
	var sawAlloca, sawStore, sawGoto bool
	for _, inst := range fn.Entry.Instructions {
		switch inst.(type) {
		case *ir.Alloca:
			sawAlloca = true
		case *ir.Store:
			sawStore = true
		case *ir.Goto:
			sawGoto = true
		}
	}
	assert.True(t, sawAlloca)
	assert.True(t, sawStore)
	assert.True(t, sawGoto)

	// Exit loads the return slot and returns it.
	require.Len(t, fn.Exit.Instructions, 2)
	_, ok := fn.Exit.Instructions[0].(*ir.Load)
	assert.True(t, ok)
	_, ok = fn.Exit.Instructions[1].(*ir.Return)
	assert.True(t, ok)
}

func TestBuildIfElseJoinsBlocks(t *testing.T) {
	xSym := sym("x", types.S32)
	cond := &ast.Binary{Op: ast.OpGreater, Left: &ast.Ident{Name: "x", Symbol: xSym}, Right: &ast.IntLiteral{Value: 0}}
	cond.Left.SetType(types.S32)
	cond.Right.SetType(types.S32)
	cond.SetType(types.Bool)

	thenRet := &ast.ReturnStmt{Value: &ast.IntLiteral{Value: 1}}
	thenRet.Value.SetType(types.S32)
	elseRet := &ast.ReturnStmt{Value: &ast.IntLiteral{Value: 2}}
	elseRet.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name:       "f",
		Params:     []*ast.Param{{Name: "x", Type: types.S32, Symbol: xSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			&ast.IfStmt{
				Cond:    cond,
				ThenArm: []ast.Stmt{thenRet},
				ElseArm: []ast.Stmt{elseRet},
			},
		},
	}
	prog := &ast.Program{Functions: []*ast.Function{fnDecl}}

	mod := ir.Build(prog)
	fn := mod.Functions[0]

	// entry, exit, then, join, else = 5 blocks minimum (plus the fresh,
	// unreachable block the builder opens after each arm's return).
	assert.GreaterOrEqual(t, len(fn.Blocks), 5)

	term := fn.Entry.Terminator()
	ifInst, ok := term.(*ir.If)
	require.True(t, ok)
	assert.Equal(t, fn.Entry.Branch().Label, ifInst.Branch)
	assert.Equal(t, fn.Entry.Next().Label, ifInst.Next)
}

func TestBuildWhileLoopsBackToHeader(t *testing.T) {
	xSym := sym("x", types.S32)
	cond := &ast.Binary{Op: ast.OpLess, Left: &ast.Ident{Name: "x", Symbol: xSym}, Right: &ast.IntLiteral{Value: 10}}
	cond.Left.SetType(types.S32)
	cond.Right.SetType(types.S32)
	cond.SetType(types.Bool)

	assign := &ast.AssignStmt{Name: "x", Symbol: xSym, Value: &ast.Binary{
		Op:    ast.OpAdd,
		Left:  &ast.Ident{Name: "x", Symbol: xSym},
		Right: &ast.IntLiteral{Value: 1},
	}}
	assign.Value.SetType(types.S32)
	assign.Value.(*ast.Binary).Left.SetType(types.S32)
	assign.Value.(*ast.Binary).Right.SetType(types.S32)

	ret := &ast.ReturnStmt{Value: &ast.Ident{Name: "x", Symbol: xSym}}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name:       "loop",
		Params:     []*ast.Param{{Name: "x", Type: types.S32, Symbol: xSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			&ast.WhileStmt{Cond: cond, Body: []ast.Stmt{assign}},
			ret,
		},
	}
	prog := &ast.Program{Functions: []*ast.Function{fnDecl}}

	mod := ir.Build(prog)
	fn := mod.Functions[0]

	var header *ir.BasicBlock
	for _, b := range fn.Blocks {
		if _, ok := b.Terminator().(*ir.If); ok && b != fn.Entry {
			header = b
			break
		}
	}
	require.NotNil(t, header)
	body := header.Branch()
	require.NotNil(t, body)
	assert.Equal(t, header, body.Next(), "loop body must branch back to header")
}
