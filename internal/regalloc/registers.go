// Package regalloc implements the Chaitin-style graph-coloring register
// allocator of spec.md §4.6: ABI pre-coloring, interference-graph build,
// simplify/select with spill heuristic, and spill rewrite. Grounded on
// original_source's x86_64/allocator.hpp (PreColorer, RegisterAllocator)
// and utils/interference_graph.hpp.
package regalloc

import "arkoi/internal/types"

// Class is one of the two register classes spec.md §4.6 distinguishes.
type Class int

const (
	IntClass Class = iota
	FloatClass
)

func ClassOf(t types.Type) Class {
	if t.IsFloating() {
		return FloatClass
	}
	return IntClass
}

// Register is a physical machine register, identified by its 64-bit name;
// the code generator resolves the correctly sized sub-register per
// spec.md §4.8.
type Register struct {
	Name string
	Cls  Class
}

// System V AMD64 integer argument and return registers (spec.md §4.6).
var (
	IntArgRegs = []Register{{Name: "rdi", Cls: IntClass}, {Name: "rsi", Cls: IntClass}, {Name: "rdx", Cls: IntClass}, {Name: "rcx", Cls: IntClass}, {Name: "r8", Cls: IntClass}, {Name: "r9", Cls: IntClass}}
	FloatArgRegs = []Register{
		{Name: "xmm0", Cls: FloatClass}, {Name: "xmm1", Cls: FloatClass}, {Name: "xmm2", Cls: FloatClass}, {Name: "xmm3", Cls: FloatClass},
		{Name: "xmm4", Cls: FloatClass}, {Name: "xmm5", Cls: FloatClass}, {Name: "xmm6", Cls: FloatClass}, {Name: "xmm7", Cls: FloatClass},
	}
	IntReturnReg   = Register{Name: "rax", Cls: IntClass}
	FloatReturnReg = Register{Name: "xmm0", Cls: FloatClass}
)

// Reserved registers never participate in allocation: rsp is the stack
// pointer; r10/r11 and xmm14/xmm15 are scratch for the code generator's
// own operand shuffling (spill loads/stores, phi-copy breaking).
//
// CalleeSavedInt/CallerSavedInt split the remaining integer class per
// spec.md §4.6's list ("rbx, rbp, r12..r15" callee-saved, all others
// caller-saved), except that rbp is not allocatable: the code generator
// uses it as the frame base of every function outside the red-zone
// small-leaf-frame case (see DESIGN.md), and those are exactly the
// functions with calls, whose live-across-call variables draw on the
// callee-saved palette.
var (
	CalleeSavedInt = []Register{{Name: "rbx", Cls: IntClass}, {Name: "r12", Cls: IntClass}, {Name: "r13", Cls: IntClass}, {Name: "r14", Cls: IntClass}, {Name: "r15", Cls: IntClass}}
	CallerSavedInt = []Register{{Name: "rax", Cls: IntClass}, {Name: "rcx", Cls: IntClass}, {Name: "rdx", Cls: IntClass}, {Name: "rsi", Cls: IntClass}, {Name: "rdi", Cls: IntClass}, {Name: "r8", Cls: IntClass}, {Name: "r9", Cls: IntClass}}

	// AllFloat is the full XMM class minus the two scratch registers.
	AllFloat = []Register{
		{Name: "xmm0", Cls: FloatClass}, {Name: "xmm1", Cls: FloatClass}, {Name: "xmm2", Cls: FloatClass}, {Name: "xmm3", Cls: FloatClass},
		{Name: "xmm4", Cls: FloatClass}, {Name: "xmm5", Cls: FloatClass}, {Name: "xmm6", Cls: FloatClass}, {Name: "xmm7", Cls: FloatClass},
		{Name: "xmm8", Cls: FloatClass}, {Name: "xmm9", Cls: FloatClass}, {Name: "xmm10", Cls: FloatClass}, {Name: "xmm11", Cls: FloatClass},
		{Name: "xmm12", Cls: FloatClass}, {Name: "xmm13", Cls: FloatClass},
	}

	ScratchInt   = []Register{{Name: "r10", Cls: IntClass}, {Name: "r11", Cls: IntClass}}
	ScratchFloat = []Register{{Name: "xmm14", Cls: FloatClass}, {Name: "xmm15", Cls: FloatClass}}
)

// AllInt is the union of callee- and caller-saved integer registers.
func AllInt() []Register {
	return append(append([]Register(nil), CallerSavedInt...), CalleeSavedInt...)
}
