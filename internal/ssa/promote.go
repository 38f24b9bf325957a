package ssa

import (
	"arkoi/internal/diagnostics"
	"arkoi/internal/ir"
)

// Promoter promotes a single function's Alloca-backed locals to pruned SSA,
// grounded on original_source's SSAPromoter: collect candidates, place phi
// nodes at iterated dominance frontiers of each candidate's definition
// sites, then rename in a preorder walk of the dominator tree.
type Promoter struct {
	fn         *ir.Function
	dt         *DominatorTree
	candidates map[string]bool
	counters   map[string]int
	stacks     map[string][]int
}

// Promote rewrites fn in place: every Alloca/Load/Store triple whose Memory
// slot is never address-taken (true of every slot the builder emits, since
// the source language has no address-of operator) becomes SSA Variable
// defs and uses, with Phi instructions inserted where control flow merges.
func Promote(fn *ir.Function) {
	p := &Promoter{fn: fn, counters: make(map[string]int), stacks: make(map[string][]int)}
	p.dt = ComputeDominance(fn)
	if p.dt.Root() == nil {
		return
	}

	candidates := p.collectCandidates()
	p.candidates = make(map[string]bool, len(candidates))
	for name := range candidates {
		p.candidates[name] = true
	}
	for name, mem := range candidates {
		p.placePhis(name, mem)
	}

	p.rename(p.dt.Root(), make(map[*ir.BasicBlock]bool))
	p.prune()
	p.verifyPhis()
	p.removeAllocas(candidates)
}

// prune removes phis whose destination feeds no use, directly or
// transitively, per spec.md §4.2 ("phis must be pruned... implementations
// must assert this before returning"). Iterated to a fixed point because
// removing one dead phi can make operands it used dead in turn.
func (p *Promoter) prune() {
	for {
		used := make(map[ir.VarKey]bool)
		for _, b := range p.fn.Blocks {
			for _, inst := range b.Instructions {
				for _, u := range inst.Uses() {
					if v, ok := u.(ir.Variable); ok {
						used[v.Key()] = true
					}
				}
			}
		}

		changed := false
		for _, b := range p.fn.Blocks {
			kept := b.Instructions[:0]
			for _, inst := range b.Instructions {
				if phi, ok := inst.(*ir.Phi); ok && !used[phi.Dst.Key()] {
					changed = true
					continue
				}
				kept = append(kept, inst)
			}
			b.Instructions = kept
		}
		if !changed {
			return
		}
	}
}

// verifyPhis asserts that every surviving phi has exactly one incoming
// entry per live predecessor, per spec.md §4.2: "a phi with an unfilled
// incoming slot for any live predecessor is a bug; implementations must
// assert this before returning."
func (p *Promoter) verifyPhis() {
	for _, b := range p.fn.Blocks {
		var preds []*ir.BasicBlock
		for _, pred := range b.Predecessors() {
			if _, live := p.dt.index[pred]; live {
				preds = append(preds, pred)
			}
		}
		for _, inst := range b.Instructions {
			phi, ok := inst.(*ir.Phi)
			if !ok {
				break // phis are always first
			}
			seen := make(map[*ir.BasicBlock]bool, len(phi.Incoming))
			for _, edge := range phi.Incoming {
				seen[edge.Pred] = true
			}
			for _, pred := range preds {
				if !seen[pred] {
					diagnostics.Bug(p.fn.Name, phi.String(), "phi in block %s has no incoming value for live predecessor %s", b.Label, pred.Label)
				}
			}
			if len(phi.Incoming) != len(preds) {
				diagnostics.Bug(p.fn.Name, phi.String(), "phi in block %s has %d incoming entries but block has %d predecessors", b.Label, len(phi.Incoming), len(preds))
			}
		}
	}
}

// collectCandidates returns, for every Memory slot name, its declared type
// (first Alloca's) keyed by name, restricted to slots that are exclusively
// read and written via Load/Store (every slot the builder produces).
func (p *Promoter) collectCandidates() map[string]ir.Memory {
	out := make(map[string]ir.Memory)
	for _, b := range p.fn.Blocks {
		for _, inst := range b.Instructions {
			if a, ok := inst.(*ir.Alloca); ok {
				out[a.Mem.Name] = a.Mem
			}
		}
	}
	return out
}

// placePhis inserts an empty Phi for mem at every block in the iterated
// dominance frontier of mem's definition sites (blocks containing a Store
// or the Alloca itself).
func (p *Promoter) placePhis(name string, mem ir.Memory) {
	defBlocks := make(map[*ir.BasicBlock]bool)
	for _, b := range p.fn.Blocks {
		for _, inst := range b.Instructions {
			if s, ok := inst.(*ir.Store); ok && s.Mem.Name == name {
				defBlocks[b] = true
			}
			if a, ok := inst.(*ir.Alloca); ok && a.Mem.Name == name {
				defBlocks[b] = true
			}
		}
	}

	worklist := make([]*ir.BasicBlock, 0, len(defBlocks))
	for b := range defBlocks {
		worklist = append(worklist, b)
	}

	inserted := make(map[*ir.BasicBlock]bool)
	for len(worklist) > 0 {
		b := worklist[0]
		worklist = worklist[1:]

		for _, front := range p.dt.Frontier(b) {
			if inserted[front] {
				continue
			}
			inserted[front] = true

			phi := &ir.Phi{Dst: ir.Variable{Name: mem.Name, Type: mem.Type}}
			front.Instructions = append([]ir.Instruction{phi}, front.Instructions...)

			if !defBlocks[front] {
				defBlocks[front] = true
				worklist = append(worklist, front)
			}
		}
	}
}

func (p *Promoter) fresh(name string) ir.Variable {
	p.counters[name]++
	v := p.counters[name]
	p.stacks[name] = append(p.stacks[name], v)
	return ir.Variable{Version: v}
}

func (p *Promoter) current(name string) int {
	stack := p.stacks[name]
	if len(stack) == 0 {
		return 0
	}
	return stack[len(stack)-1]
}

// rename performs the dominator-tree preorder walk, rewriting Alloca-slot
// Loads/Stores into versioned Variable defs/uses and filling in Phi
// operands along successor edges.
func (p *Promoter) rename(b *ir.BasicBlock, visited map[*ir.BasicBlock]bool) {
	if visited[b] {
		return
	}
	visited[b] = true

	pushed := make(map[string]int) // name -> count pushed in this block, for popping on exit

	newInsts := make([]ir.Instruction, 0, len(b.Instructions))
	for _, inst := range b.Instructions {
		switch inst := inst.(type) {
		case *ir.Alloca:
			// dropped once promotion completes; keep for now so later
			// blocks' Load/Store rewriting of the same name still sees
			// a consistent candidate set. Removed in removeAllocas.
			newInsts = append(newInsts, inst)

		case *ir.Phi:
			name := inst.Dst.Name
			typ := inst.Dst.Type
			fresh := p.fresh(name)
			fresh.Name, fresh.Type = name, typ
			inst.Dst = fresh
			pushed[name]++
			newInsts = append(newInsts, inst)

		case *ir.Load:
			name := inst.Mem.Name
			if !p.candidates[name] {
				newInsts = append(newInsts, inst)
				continue
			}
			version := p.current(name)
			rewritten := &ir.Assign{
				Dst: inst.Dst,
				Src: ir.Variable{Name: name, Type: inst.Mem.Type, Version: version},
			}
			newInsts = append(newInsts, rewritten)

		case *ir.Store:
			name := inst.Mem.Name
			if !p.candidates[name] {
				newInsts = append(newInsts, inst)
				continue
			}
			fresh := p.fresh(name)
			fresh.Name, fresh.Type = name, inst.Mem.Type
			pushed[name]++
			newInsts = append(newInsts, &ir.Assign{Dst: fresh, Src: inst.Src})

		default:
			newInsts = append(newInsts, inst)
		}
	}
	b.Instructions = newInsts

	for _, succ := range b.Successors() {
		for _, inst := range succ.Instructions {
			phi, ok := inst.(*ir.Phi)
			if !ok {
				break // phis are always first
			}
			name := phi.Dst.Name
			version := p.current(name)
			phi.Incoming = append(phi.Incoming, ir.PhiEdge{
				Pred:  b,
				Value: ir.Variable{Name: name, Type: phi.Dst.Type, Version: version},
			})
		}
	}

	for _, child := range p.dt.Children(b) {
		p.rename(child, visited)
	}

	for name, n := range pushed {
		stack := p.stacks[name]
		p.stacks[name] = stack[:len(stack)-n]
	}
}

// removeAllocas drops every promoted candidate's Alloca instruction, now
// that all its Loads/Stores have become SSA defs/uses.
func (p *Promoter) removeAllocas(candidates map[string]ir.Memory) {
	for _, b := range p.fn.Blocks {
		kept := b.Instructions[:0]
		for _, inst := range b.Instructions {
			if a, ok := inst.(*ir.Alloca); ok {
				if _, isCandidate := candidates[a.Mem.Name]; isCandidate {
					continue
				}
			}
			kept = append(kept, inst)
		}
		b.Instructions = kept
	}
}
