package sem_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/grammar"
	"arkoi/internal/ast"
	"arkoi/internal/sem"
	"arkoi/internal/types"
)

func mustParse(t *testing.T, source string) *grammar.Program {
	t.Helper()
	prog, err := grammar.Parse("test.ark", source)
	require.NoError(t, err)
	return prog
}

func TestResolveAddFunction(t *testing.T) {
	prog := mustParse(t, `fun add(a @s32, b @s32) @s32: return a + b;`)
	out, diags := sem.Resolve(prog, "test.ark", `fun add(a @s32, b @s32) @s32: return a + b;`)
	require.False(t, diags.HasErrors(), diags.Render())
	require.Len(t, out.Functions, 1)

	fn := out.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Body, 1)
	ret, ok := fn.Body[0].(*ast.ReturnStmt)
	require.True(t, ok)
	bin, ok := ret.Value.(*ast.Binary)
	require.True(t, ok)
	assert.Equal(t, ast.OpAdd, bin.Op)
	assert.Equal(t, types.S32, bin.Type())

	left, ok := bin.Left.(*ast.Ident)
	require.True(t, ok)
	require.NotNil(t, left.Symbol)
	assert.Equal(t, ast.SymParameter, left.Symbol.Kind)
}

func TestResolveUndefinedVariableReportsError(t *testing.T) {
	source := `fun f() @s32: return x;`
	prog := mustParse(t, source)
	_, diags := sem.Resolve(prog, "test.ark", source)
	assert.True(t, diags.HasErrors())
}

func TestResolveIfElseFlattensBracedBlocks(t *testing.T) {
	source := `fun f(x @s32) @s32: y @s32 = 0; if x > 0 then { y = 1; } else { y = 2; }; return y;`
	prog := mustParse(t, source)
	out, diags := sem.Resolve(prog, "test.ark", source)
	require.False(t, diags.HasErrors(), diags.Render())

	fn := out.Functions[0]
	require.Len(t, fn.Body, 3)
	ifStmt, ok := fn.Body[1].(*ast.IfStmt)
	require.True(t, ok)
	assert.Len(t, ifStmt.ThenArm, 1)
	assert.Len(t, ifStmt.ElseArm, 1)
}

func TestResolveForwardCallReference(t *testing.T) {
	source := `fun main() @s32: return helper(); fun helper() @s32: return 42;`
	prog := mustParse(t, source)
	out, diags := sem.Resolve(prog, "test.ark", source)
	require.False(t, diags.HasErrors(), diags.Render())

	main := out.Functions[0]
	ret := main.Body[0].(*ast.ReturnStmt)
	call, ok := ret.Value.(*ast.Call)
	require.True(t, ok)
	require.NotNil(t, call.Callee)
	assert.Equal(t, ast.SymFunction, call.Callee.Kind)
}

func TestResolveCallArgumentCountMismatch(t *testing.T) {
	source := `fun f(a @s32) @s32: return f(); fun g() @s32: return 1;`
	prog := mustParse(t, source)
	_, diags := sem.Resolve(prog, "test.ark", source)
	assert.True(t, diags.HasErrors())
}
