package dataflow

import "arkoi/internal/ir"

// BlockLiveness holds per-block live-in/live-out variable sets, per
// spec.md §4.5: backward, block granularity, transfer walks instructions
// in reverse removing defs and adding uses, immediates never added.
//
// Phi handling needs a per-predecessor edge, not a single successor-wide
// merge, so liveness drives its own specialized worklist instead of going
// through the generic BlockPass/RunBlock merge hook (spec.md §4.5: "phis
// do not contribute uses to their own block; instead each phi incoming
// (pred, var) contributes a use of var at the end of pred").
type BlockLiveness struct {
	In, Out map[*ir.BasicBlock]Set[ir.VarKey]
}

func ComputeBlockLiveness(fn *ir.Function) *BlockLiveness {
	res := &BlockLiveness{In: map[*ir.BasicBlock]Set[ir.VarKey]{}, Out: map[*ir.BasicBlock]Set[ir.VarKey]{}}

	order := fn.RPO()
	for _, b := range order {
		res.In[b] = Set[ir.VarKey]{}
		res.Out[b] = Set[ir.VarKey]{}
	}

	phiDefs := make(map[*ir.BasicBlock]Set[ir.VarKey])
	for _, b := range order {
		phiDefs[b] = phiDestinations(b)
	}

	queue := append([]*ir.BasicBlock(nil), order...)
	inQueue := make(map[*ir.BasicBlock]bool, len(order))
	for _, b := range order {
		inQueue[b] = true
	}

	iterations := 0
	for len(queue) > 0 {
		iterations++
		if iterations > maxIterations {
			panic("dataflow: liveness exceeded iteration bound")
		}
		b := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		inQueue[b] = false

		out := Set[ir.VarKey]{}
		for _, succ := range b.Successors() {
			for k := range res.In[succ] {
				if _, isPhiDef := phiDefs[succ][k]; !isPhiDef {
					out[k] = struct{}{}
				}
			}
			for k := range phiEdgeUses(succ, b) {
				out[k] = struct{}{}
			}
		}
		res.Out[b] = out

		in := transferBlockBackward(b, out)
		if !in.Equal(res.In[b]) {
			res.In[b] = in
			for _, pred := range b.Predecessors() {
				if !inQueue[pred] {
					queue = append(queue, pred)
					inQueue[pred] = true
				}
			}
		}
	}
	return res
}

func phiDestinations(b *ir.BasicBlock) Set[ir.VarKey] {
	s := Set[ir.VarKey]{}
	for _, inst := range b.Instructions {
		phi, ok := inst.(*ir.Phi)
		if !ok {
			break
		}
		s[phi.Dst.Key()] = struct{}{}
	}
	return s
}

func phiEdgeUses(succ, pred *ir.BasicBlock) Set[ir.VarKey] {
	s := Set[ir.VarKey]{}
	for _, inst := range succ.Instructions {
		phi, ok := inst.(*ir.Phi)
		if !ok {
			break
		}
		for _, edge := range phi.Incoming {
			if edge.Pred == pred {
				s[edge.Value.Key()] = struct{}{}
			}
		}
	}
	return s
}

// transferBlockBackward applies the per-instruction kill/gen walk in
// reverse, starting from out, skipping a Phi's own Incoming uses (handled
// above as edge-specific contributions to the predecessor's out-state).
func transferBlockBackward(b *ir.BasicBlock, out Set[ir.VarKey]) Set[ir.VarKey] {
	state := out.Clone()
	for i := len(b.Instructions) - 1; i >= 0; i-- {
		inst := b.Instructions[i]
		for _, d := range inst.Defs() {
			if v, ok := d.(ir.Variable); ok {
				delete(state, v.Key())
			}
		}
		if _, isPhi := inst.(*ir.Phi); isPhi {
			continue
		}
		for _, u := range inst.Uses() {
			if v, ok := u.(ir.Variable); ok {
				state[v.Key()] = struct{}{}
			}
		}
	}
	return state
}

// InstructionLiveness holds per-instruction live-in/live-out sets, derived
// by threading BlockLiveness's out-state backward through each block's
// instructions (spec.md §4.4: "Instruction-granularity threads the state
// through successive instructions within a block, using the block's edge
// state as the boundary").
type InstructionLiveness struct {
	In, Out map[ir.Instruction]Set[ir.VarKey]
	// LiveAcrossCalls is the union, over every Call in the function, of the
	// state live immediately after the call (its Out set) minus that call's
	// own defs —
	// the set that must survive in a callee-saved register or a spill slot
	// across the call (spec.md §4.5).
	LiveAcrossCalls Set[ir.VarKey]
}

func ComputeInstructionLiveness(fn *ir.Function, blocks *BlockLiveness) *InstructionLiveness {
	res := &InstructionLiveness{
		In:              map[ir.Instruction]Set[ir.VarKey]{},
		Out:             map[ir.Instruction]Set[ir.VarKey]{},
		LiveAcrossCalls: Set[ir.VarKey]{},
	}

	for _, b := range fn.Blocks {
		state := blocks.Out[b].Clone()
		for i := len(b.Instructions) - 1; i >= 0; i-- {
			inst := b.Instructions[i]
			res.Out[inst] = state.Clone()

			for _, d := range inst.Defs() {
				if v, ok := d.(ir.Variable); ok {
					delete(state, v.Key())
				}
			}
			if _, isPhi := inst.(*ir.Phi); !isPhi {
				for _, u := range inst.Uses() {
					if v, ok := u.(ir.Variable); ok {
						state[v.Key()] = struct{}{}
					}
				}
			}
			res.In[inst] = state.Clone()

			if call, ok := inst.(*ir.Call); ok {
				acrossCall := res.Out[inst].Clone()
				for _, d := range call.Defs() {
					if v, ok := d.(ir.Variable); ok {
						delete(acrossCall, v.Key())
					}
				}
				for k := range acrossCall {
					res.LiveAcrossCalls[k] = struct{}{}
				}
			}
		}
	}
	return res
}
