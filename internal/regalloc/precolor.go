package regalloc

import (
	"arkoi/internal/ir"
	"arkoi/internal/types"
)

// Mapping is a virtual-variable-to-physical-register assignment.
type Mapping map[ir.VarKey]Register

// StackPassed records the variables pre-coloring determined must be
// passed/returned on the stack rather than in a register, because their
// class's argument-register file was exhausted (spec.md §4.6).
type StackPassed map[ir.VarKey]bool

// PreColorer assigns fixed ABI registers to parameters, Argument
// destinations, and Return values before the interference graph is even
// built, per spec.md §4.6 and original_source's PreColorer.
type PreColorer struct {
	fn          *ir.Function
	Assigned    Mapping
	StackPassed StackPassed
}

func NewPreColorer(fn *ir.Function) *PreColorer {
	return &PreColorer{fn: fn, Assigned: Mapping{}, StackPassed: StackPassed{}}
}

func (p *PreColorer) Run() {
	p.colorParams()

	intArg, floatArg := 0, 0
	for _, b := range p.fn.Blocks {
		for _, inst := range b.Instructions {
			switch inst := inst.(type) {
			case *ir.Argument:
				cls := ClassOf(inst.Dst.Type)
				if cls == IntClass {
					if intArg < len(IntArgRegs) {
						p.Assigned[inst.Dst.Key()] = IntArgRegs[intArg]
						intArg++
					} else {
						p.StackPassed[inst.Dst.Key()] = true
					}
				} else {
					if floatArg < len(FloatArgRegs) {
						p.Assigned[inst.Dst.Key()] = FloatArgRegs[floatArg]
						floatArg++
					} else {
						p.StackPassed[inst.Dst.Key()] = true
					}
				}

			case *ir.Call:
				// Counters reset at each call (spec.md §4.6).
				intArg, floatArg = 0, 0

			case *ir.Return:
				if v, ok := inst.Value.(ir.Variable); ok {
					p.Assigned[v.Key()] = ReturnRegister(v.Type)
				}
			}
		}
	}
}

func (p *PreColorer) colorParams() {
	intIdx, floatIdx := 0, 0
	for _, param := range p.fn.Params {
		if ClassOf(param.Type) == IntClass {
			if intIdx < len(IntArgRegs) {
				p.Assigned[param.Key()] = IntArgRegs[intIdx]
				intIdx++
			} else {
				p.StackPassed[param.Key()] = true
			}
		} else {
			if floatIdx < len(FloatArgRegs) {
				p.Assigned[param.Key()] = FloatArgRegs[floatIdx]
				floatIdx++
			} else {
				p.StackPassed[param.Key()] = true
			}
		}
	}
}

// ReturnRegister is the fixed ABI register a value of type t is returned
// in: rax for integer/boolean, xmm0 for floating.
func ReturnRegister(t types.Type) Register {
	if t.IsFloating() {
		return FloatReturnReg
	}
	return IntReturnReg
}
