package opt_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ast"
	"arkoi/internal/ir"
	"arkoi/internal/opt"
	"arkoi/internal/types"
)

func TestConstantFoldingArithmetic(t *testing.T) {
	// return 2 + 3 * 4
	mul := &ast.Binary{Op: ast.OpMul, Left: &ast.IntLiteral{Value: 3}, Right: &ast.IntLiteral{Value: 4}}
	mul.Left.SetType(types.S32)
	mul.Right.SetType(types.S32)
	mul.SetType(types.S32)
	add := &ast.Binary{Op: ast.OpAdd, Left: &ast.IntLiteral{Value: 2}, Right: mul}
	add.Left.SetType(types.S32)
	add.SetType(types.S32)
	ret := &ast.ReturnStmt{Value: add}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{Name: "main", ReturnType: types.S32, Body: []ast.Stmt{ret}}
	mod := ir.Build(&ast.Program{Functions: []*ast.Function{fnDecl}})

	opt.Standard().Run(mod)

	fn := mod.Functions[0]
	var constants []*ir.Constant
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if c, ok := inst.(*ir.Constant); ok {
				constants = append(constants, c)
			}
		}
	}
	require.NotEmpty(t, constants)
	found := false
	for _, c := range constants {
		if c.Imm.Int() == 14 {
			found = true
		}
	}
	assert.True(t, found, "2 + 3*4 must fold to 14")
}

func TestConstantFoldingSkipsDivisionByZero(t *testing.T) {
	div := &ir.Binary{
		Dst:    ir.Variable{Name: "$1", Type: types.S32},
		Op:     ir.Div,
		Left:   ir.NewInt(types.S32, 10),
		Right:  ir.NewInt(types.S32, 0),
		OpType: types.S32,
	}
	b := ir.NewBasicBlock("entry")
	b.Emit(div)

	pass := opt.ConstantFolding{}
	changed := pass.OnBlock(b)
	assert.False(t, changed)
	_, stillBinary := b.Instructions[0].(*ir.Binary)
	assert.True(t, stillBinary, "division by zero must not be folded away")
}

func TestDeadCodeEliminationDropsUnusedConstant(t *testing.T) {
	b := ir.NewBasicBlock("entry")
	unused := ir.Variable{Name: "$dead", Type: types.S32}
	b.Emit(&ir.Constant{Dst: unused, Imm: ir.NewInt(types.S32, 99)})
	b.Emit(&ir.Return{Value: ir.NewInt(types.S32, 0)})

	fn := &ir.Function{Name: "f", Entry: b, Exit: b, Blocks: []*ir.BasicBlock{b}}

	pass := opt.DeadCodeElimination{}
	changed := pass.ExitFunction(fn)
	assert.True(t, changed)
	assert.Len(t, b.Instructions, 1)
}
