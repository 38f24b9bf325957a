package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ast"
	"arkoi/internal/codegen"
	"arkoi/internal/ir"
	"arkoi/internal/regalloc"
	"arkoi/internal/ssa"
	"arkoi/internal/types"
)

func buildAddFunction(t *testing.T) *ir.Function {
	t.Helper()
	aSym := &ast.Symbol{Name: "a", Type: types.S32}
	bSym := &ast.Symbol{Name: "b", Type: types.S32}
	bin := &ast.Binary{Op: ast.OpAdd, Left: &ast.Ident{Name: "a", Symbol: aSym}, Right: &ast.Ident{Name: "b", Symbol: bSym}}
	bin.Left.SetType(types.S32)
	bin.Right.SetType(types.S32)
	bin.SetType(types.S32)
	ret := &ast.ReturnStmt{Value: bin}
	ret.Value.SetType(types.S32)

	fnDecl := &ast.Function{
		Name: "add",
		Params: []*ast.Param{
			{Name: "a", Type: types.S32, Symbol: aSym},
			{Name: "b", Type: types.S32, Symbol: bSym},
		},
		ReturnType: types.S32,
		Body:       []ast.Stmt{ret},
	}
	mod := ir.Build(&ast.Program{Functions: []*ast.Function{fnDecl}})
	return mod.Functions[0]
}

func generate(t *testing.T, fn *ir.Function) string {
	t.Helper()
	ssa.Promote(fn)
	alloc := regalloc.NewAllocator(fn)
	alloc.Run()
	ssa.LowerPhis(fn)

	frame := codegen.BuildFrameLayout(fn)
	pool := codegen.NewRODataPool()
	resolver := codegen.NewResolver(fn, alloc.Assigned, frame, pool)
	gen := codegen.NewGenerator(fn, resolver, frame)
	return codegen.Render(gen.Generate())
}

func TestGenerateAddFunctionEmitsLabelAndReturn(t *testing.T) {
	fn := buildAddFunction(t)
	text := generate(t, fn)

	assert.Contains(t, text, "add:")
	assert.Contains(t, text, "add_exit:")
	assert.Contains(t, text, "ret")
}

func TestGenerateLeafFunctionUsesRedZone(t *testing.T) {
	fn := buildAddFunction(t)
	frame := codegen.BuildFrameLayout(fn)

	require.True(t, frame.IsLeaf())
	assert.True(t, frame.UsesRedZone())
	assert.Equal(t, "rsp", frame.Base())
}

func TestRegisterNameNarrowsByWidth(t *testing.T) {
	assert.Equal(t, "eax", codegen.RegisterName(regalloc.Register{Name: "rax", Cls: regalloc.IntClass}, 4))
	assert.Equal(t, "al", codegen.RegisterName(regalloc.Register{Name: "rax", Cls: regalloc.IntClass}, 1))
	assert.Equal(t, "xmm0", codegen.RegisterName(regalloc.Register{Name: "xmm0", Cls: regalloc.FloatClass}, 4))
}

func TestRODataPoolLabelIsStableAndDeterministic(t *testing.T) {
	pool := codegen.NewRODataPool()
	imm := ir.NewFloat(types.F64, 2.5)

	first := pool.Label(imm)
	second := pool.Label(imm)
	assert.Equal(t, first, second)
	assert.Contains(t, first, ".LC_")

	items := pool.Directives()
	require.NotEmpty(t, items)
	assert.Equal(t, "section .rodata", items[0].Render())
}
