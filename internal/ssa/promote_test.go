package ssa_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ast"
	"arkoi/internal/ir"
	"arkoi/internal/ssa"
	"arkoi/internal/types"
)

func buildIfMerge(t *testing.T) *ir.Function {
	t.Helper()
	xSym := &ast.Symbol{Name: "x", Type: types.S32}
	cond := &ast.Binary{Op: ast.OpGreater, Left: &ast.Ident{Name: "x", Symbol: xSym}, Right: &ast.IntLiteral{Value: 0}}
	cond.Left.SetType(types.S32)
	cond.Right.SetType(types.S32)
	cond.SetType(types.Bool)

	letY := &ast.LetStmt{Name: "y", Type: types.S32, Value: &ast.IntLiteral{Value: 1}, Symbol: &ast.Symbol{Name: "y", Type: types.S32}}
	letY.Value.SetType(types.S32)

	thenAssign := &ast.AssignStmt{Name: "y", Symbol: letY.Symbol, Value: &ast.IntLiteral{Value: 2}}
	thenAssign.Value.SetType(types.S32)
	elseAssign := &ast.AssignStmt{Name: "y", Symbol: letY.Symbol, Value: &ast.IntLiteral{Value: 3}}
	elseAssign.Value.SetType(types.S32)

	ret := &ast.ReturnStmt{Value: &ast.Ident{Name: "y", Symbol: letY.Symbol}}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name:       "f",
		Params:     []*ast.Param{{Name: "x", Type: types.S32, Symbol: xSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			letY,
			&ast.IfStmt{
				Cond:    cond,
				ThenArm: []ast.Stmt{thenAssign},
				ElseArm: []ast.Stmt{elseAssign},
			},
			ret,
		},
	}
	mod := ir.Build(&ast.Program{Functions: []*ast.Function{fnDecl}})
	return mod.Functions[0]
}

func TestPromoteInsertsPhiAtJoin(t *testing.T) {
	fn := buildIfMerge(t)
	ssa.Promote(fn)

	var sawPhi bool
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if p, ok := inst.(*ir.Phi); ok {
				sawPhi = true
				assert.Len(t, p.Incoming, 2)
			}
		}
	}
	assert.True(t, sawPhi, "join block after if/else assigning the same local must carry a phi")

	// No Alloca/Load/Store should remain for the promoted local "y"
	// (the parameter's own slot is also promoted, since it has no
	// address-of use).
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			switch inst.(type) {
			case *ir.Alloca, *ir.Load, *ir.Store:
				t.Fatalf("unexpected %T survives promotion: %s", inst, inst)
			}
		}
	}
}

func TestPromotePrunesUnusedPhi(t *testing.T) {
	// fn g(x s32) s32 {
	//   y @s32 = 0
	//   if x > 0 then y = 1 else y = 2   // y merges at the join...
	//   return 9                          // ...but is never read afterward.
	// }
	xSym := &ast.Symbol{Name: "x", Type: types.S32}
	cond := &ast.Binary{Op: ast.OpGreater, Left: &ast.Ident{Name: "x", Symbol: xSym}, Right: &ast.IntLiteral{Value: 0}}
	cond.Left.SetType(types.S32)
	cond.Right.SetType(types.S32)
	cond.SetType(types.Bool)

	ySym := &ast.Symbol{Name: "y", Type: types.S32}
	letY := &ast.LetStmt{Name: "y", Type: types.S32, Value: &ast.IntLiteral{Value: 0}, Symbol: ySym}
	letY.Value.SetType(types.S32)

	thenAssign := &ast.AssignStmt{Name: "y", Symbol: ySym, Value: &ast.IntLiteral{Value: 1}}
	thenAssign.Value.SetType(types.S32)
	elseAssign := &ast.AssignStmt{Name: "y", Symbol: ySym, Value: &ast.IntLiteral{Value: 2}}
	elseAssign.Value.SetType(types.S32)

	ret := &ast.ReturnStmt{Value: &ast.IntLiteral{Value: 9}}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name:       "g",
		Params:     []*ast.Param{{Name: "x", Type: types.S32, Symbol: xSym}},
		ReturnType: types.S32,
		Body: []ast.Stmt{
			letY,
			&ast.IfStmt{
				Cond:    cond,
				ThenArm: []ast.Stmt{thenAssign},
				ElseArm: []ast.Stmt{elseAssign},
			},
			ret,
		},
	}
	mod := ir.Build(&ast.Program{Functions: []*ast.Function{fnDecl}})
	fn := mod.Functions[0]

	ssa.Promote(fn)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if phi, ok := inst.(*ir.Phi); ok && strings.HasPrefix(phi.Dst.Name, "%y.") {
				t.Fatalf("phi for unused local y must be pruned, found: %s", phi)
			}
		}
	}
}

func TestLowerPhisRemovesPhiInstructions(t *testing.T) {
	fn := buildIfMerge(t)
	ssa.Promote(fn)
	ssa.LowerPhis(fn)

	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			_, ok := inst.(*ir.Phi)
			require.False(t, ok, "phi lowering must remove all Phi instructions")
		}
	}
}
