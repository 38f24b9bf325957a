package regalloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/ir"
	"arkoi/internal/regalloc"
	"arkoi/internal/types"
)

// buildAddFunction builds: fn add(a s32, b s32) s32 { return a + b }
// directly at the IR level, bypassing the AST builder.
func buildAddFunction() *ir.Function {
	fn := ir.NewFunction("add", types.S32)

	a := ir.Variable{Name: "a", Type: types.S32}
	b := ir.Variable{Name: "b", Type: types.S32}
	fn.Params = []ir.Variable{a, b}
	fn.ParamTypes = []types.Type{types.S32, types.S32}

	sum := ir.Variable{Name: "$1", Type: types.S32}
	fn.Entry.Emit(&ir.Binary{Dst: sum, Op: ir.Add, Left: a, Right: b, OpType: types.S32})
	fn.Entry.Emit(&ir.Return{Value: sum})
	return fn
}

func TestAllocatorColorsParamsToABIRegisters(t *testing.T) {
	fn := buildAddFunction()

	alloc := regalloc.NewAllocator(fn)
	alloc.Run()

	aReg, ok := alloc.Assigned[fn.Params[0].Key()]
	require.True(t, ok)
	assert.Equal(t, "rdi", aReg.Name)

	bReg, ok := alloc.Assigned[fn.Params[1].Key()]
	require.True(t, ok)
	assert.Equal(t, "rsi", bReg.Name)
}

func TestAllocatorColorsReturnValueToRAX(t *testing.T) {
	fn := buildAddFunction()

	alloc := regalloc.NewAllocator(fn)
	alloc.Run()

	var sumKey ir.VarKey
	for _, b := range fn.Blocks {
		for _, inst := range b.Instructions {
			if bin, ok := inst.(*ir.Binary); ok {
				sumKey = bin.Dst.Key()
			}
		}
	}

	reg, ok := alloc.Assigned[sumKey]
	require.True(t, ok)
	assert.Equal(t, "rax", reg.Name)
}

func TestAllocatorGivesInterferingVariablesDistinctColors(t *testing.T) {
	// fn f(a s32, b s32, c s32) s32 {
	//   t1 = a + b   // t1 and c both live into the second add
	//   t2 = t1 + c
	//   return t2
	// }
	fn := ir.NewFunction("f", types.S32)

	a := ir.Variable{Name: "a", Type: types.S32}
	b := ir.Variable{Name: "b", Type: types.S32}
	c := ir.Variable{Name: "c", Type: types.S32}
	fn.Params = []ir.Variable{a, b, c}
	fn.ParamTypes = []types.Type{types.S32, types.S32, types.S32}

	t1 := ir.Variable{Name: "$1", Type: types.S32}
	t2 := ir.Variable{Name: "$2", Type: types.S32}

	fn.Entry.Emit(&ir.Binary{Dst: t1, Op: ir.Add, Left: a, Right: b, OpType: types.S32})
	fn.Entry.Emit(&ir.Binary{Dst: t2, Op: ir.Add, Left: t1, Right: c, OpType: types.S32})
	fn.Entry.Emit(&ir.Return{Value: t2})

	alloc := regalloc.NewAllocator(fn)
	alloc.Run()

	t1Reg, ok1 := alloc.Assigned[t1.Key()]
	cReg, ok2 := alloc.Assigned[c.Key()]
	require.True(t, ok1)
	require.True(t, ok2)
	assert.NotEqual(t, t1Reg.Name, cReg.Name, "t1 and c interfere at the second add and must not share a register")
}
