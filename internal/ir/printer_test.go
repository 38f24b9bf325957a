package ir_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ast"
	"arkoi/internal/ir"
	"arkoi/internal/ssa"
	"arkoi/internal/types"
)

func buildAddModule(t *testing.T) *ir.Module {
	t.Helper()
	aSym := sym("a", types.S32)
	bSym := sym("b", types.S32)
	add := &ast.Binary{
		Op:    ast.OpAdd,
		Left:  &ast.Ident{Name: "a", Symbol: aSym},
		Right: &ast.Ident{Name: "b", Symbol: bSym},
	}
	add.Left.SetType(types.S32)
	add.Right.SetType(types.S32)
	add.SetType(types.S32)

	prog := &ast.Program{Functions: []*ast.Function{{
		Name:       "add",
		Params:     []*ast.Param{{Name: "a", Type: types.S32, Symbol: aSym}, {Name: "b", Type: types.S32, Symbol: bSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			&ast.ReturnStmt{Value: add},
		},
	}}}
	return ir.Build(prog)
}

func TestPrintRendersOneLinePerInstruction(t *testing.T) {
	mod := buildAddModule(t)
	text := ir.Print(mod)
	assert.Contains(t, text, "fun add(")
	assert.Contains(t, text, "entry:")
	assert.Contains(t, text, "exit:")
}

func TestPrintParseRoundTrip(t *testing.T) {
	mod := buildAddModule(t)
	text := ir.Print(mod)

	reparsed, err := ir.Parse(text)
	require.NoError(t, err)

	assert.Equal(t, text, ir.Print(reparsed), "printing a parsed module must reproduce the original text exactly")
}

func TestPrintParseRoundTripWithBranchesAndPhis(t *testing.T) {
	xSym := sym("x", types.S32)
	cond := &ast.Binary{Op: ast.OpGreater, Left: &ast.Ident{Name: "x", Symbol: xSym}, Right: &ast.IntLiteral{Value: 0}}
	cond.Left.SetType(types.S32)
	cond.Right.SetType(types.S32)
	cond.SetType(types.Bool)

	ySym := &ast.Symbol{Name: "y", Type: types.S32}
	letY := &ast.LetStmt{Name: "y", Type: types.S32, Value: &ast.IntLiteral{Value: 1}, Symbol: ySym}
	letY.Value.SetType(types.S32)

	thenAssign := &ast.AssignStmt{Name: "y", Symbol: ySym, Value: &ast.IntLiteral{Value: 2}}
	thenAssign.Value.SetType(types.S32)
	elseAssign := &ast.AssignStmt{Name: "y", Symbol: ySym, Value: &ast.IntLiteral{Value: 3}}
	elseAssign.Value.SetType(types.S32)

	ret := &ast.ReturnStmt{Value: &ast.Ident{Name: "y", Symbol: ySym}}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name:       "branchy",
		Params:     []*ast.Param{{Name: "x", Type: types.S32, Symbol: xSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			letY,
			&ast.IfStmt{Cond: cond, ThenArm: []ast.Stmt{thenAssign}, ElseArm: []ast.Stmt{elseAssign}},
			ret,
		},
	}
	mod := ir.Build(&ast.Program{Functions: []*ast.Function{fnDecl}})
	ssa.Promote(mod.Functions[0])

	text := ir.Print(mod)
	reparsed, err := ir.Parse(text)
	require.NoError(t, err)
	assert.Equal(t, text, ir.Print(reparsed))
}
