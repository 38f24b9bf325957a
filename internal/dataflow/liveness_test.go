package dataflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arkoi/internal/dataflow"
	"arkoi/internal/ir"
	"arkoi/internal/types"
)

func TestBlockLivenessSimpleChain(t *testing.T) {
	entry := ir.NewBasicBlock("entry")
	exit := ir.NewBasicBlock("exit")

	x := ir.Variable{Name: "x", Type: types.S32}
	entry.Emit(&ir.Constant{Dst: x, Imm: ir.NewInt(types.S32, 1)})
	entry.Emit(&ir.Goto{Label: "exit"})
	entry.SetNext(exit)

	exit.Emit(&ir.Return{Value: x})

	fn := &ir.Function{Name: "f", Entry: entry, Exit: exit, Blocks: []*ir.BasicBlock{entry, exit}}

	live := dataflow.ComputeBlockLiveness(fn)
	_, xLiveOutOfEntry := live.Out[entry][x.Key()]
	assert.True(t, xLiveOutOfEntry, "x must be live out of entry since exit uses it")

	_, xLiveInEntry := live.In[entry][x.Key()]
	assert.False(t, xLiveInEntry, "x is defined in entry so cannot be live-in to entry")
}

func TestInstructionLivenessRecordsLiveAcrossCalls(t *testing.T) {
	b := ir.NewBasicBlock("entry")
	x := ir.Variable{Name: "x", Type: types.S32}
	arg := ir.Variable{Name: "$arg", Type: types.S32}
	result := ir.Variable{Name: "$r", Type: types.S32}

	b.Emit(&ir.Constant{Dst: x, Imm: ir.NewInt(types.S32, 5)})
	b.Emit(&ir.Argument{Dst: arg, Src: ir.NewInt(types.S32, 1)})
	b.Emit(&ir.Call{Dst: result, Name: "f", Args: []ir.Operand{arg}})
	b.Emit(&ir.Binary{Dst: ir.Variable{Name: "$s", Type: types.S32}, Op: ir.Add, Left: result, Right: x, OpType: types.S32})
	b.Emit(&ir.Return{Value: ir.Variable{Name: "$s", Type: types.S32}})

	fn := &ir.Function{Name: "f", Entry: b, Exit: b, Blocks: []*ir.BasicBlock{b}}

	blockLive := dataflow.ComputeBlockLiveness(fn)
	instLive := dataflow.ComputeInstructionLiveness(fn, blockLive)

	_, across := instLive.LiveAcrossCalls[x.Key()]
	assert.True(t, across, "x is defined before the call and used after, so it is live across the call")

	_, resultAcross := instLive.LiveAcrossCalls[result.Key()]
	assert.False(t, resultAcross, "the call's own result must not count as live across its own call")
	require.NotNil(t, instLive.In)
}
