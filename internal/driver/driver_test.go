package driver_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/driver"
)

func TestCompileAddFunctionProducesAssembly(t *testing.T) {
	source := `fun add(a @s32, b @s32) @s32: return a + b;`
	res, diags, err := driver.Compile(driver.Options{Filename: "add.ark", Source: source, Opt: driver.O0})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), diags.Render())
	require.NotNil(t, res)

	assert.Contains(t, res.Asm, "add:")
	assert.Contains(t, res.Asm, "ret")
	assert.Contains(t, res.IL, "add")
}

func TestCompileWithOptimizationStillProducesAssembly(t *testing.T) {
	source := `fun f(x @s32) @s32: y @s32 = 0; if x > 0 then { y = 1; } else { y = 2; }; return y;`
	res, diags, err := driver.Compile(driver.Options{Filename: "f.ark", Source: source, Opt: driver.O1})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), diags.Render())
	assert.Contains(t, res.Asm, "f:")
}

func TestCompileReportsUndefinedVariable(t *testing.T) {
	source := `fun f() @s32: return x;`
	res, diags, err := driver.Compile(driver.Options{Filename: "f.ark", Source: source})
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.True(t, diags.HasErrors())
}

func TestCompileFloatCastAndCall(t *testing.T) {
	source := `fun scale(x @s32) @f64: return x as @f64 * 2.5;
fun main() @f64: return scale(3);`
	res, diags, err := driver.Compile(driver.Options{Filename: "scale.ark", Source: source, Opt: driver.O0})
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), diags.Render())

	assert.Contains(t, res.Asm, "scale:")
	assert.Contains(t, res.Asm, "main:")
	assert.Contains(t, res.Asm, "cvtsi2sd")
	assert.Contains(t, res.Asm, "mulsd")
	assert.Contains(t, res.Asm, "call")
	assert.Contains(t, res.Asm, "section .rodata")
}

func TestCompileReportsSyntaxError(t *testing.T) {
	source := `fun f( @s32: return 0;`
	res, diags, err := driver.Compile(driver.Options{Filename: "f.ark", Source: source})
	require.NoError(t, err)
	assert.Nil(t, res)
	require.True(t, diags.HasErrors())
	assert.True(t, strings.Contains(diags.Render(), "f.ark"))
}
