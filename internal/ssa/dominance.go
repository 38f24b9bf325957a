// Package ssa promotes a Function's stack-allocated locals into pruned SSA
// form and lowers phis back out afterward, implementing spec.md §4.2-§4.5.
// Grounded on original_source's il/ssa.hpp + il/ssa.cpp (SSAPromoter,
// PhiLowerer) and il/cfg.cpp's DominatorTree (Cooper-Harvey-Kennedy
// iterative dominance over a reverse-postorder block order).
package ssa

import "arkoi/internal/ir"

// DominatorTree holds each block's immediate dominator and dominance
// frontier, computed once per function and reused by phi placement.
type DominatorTree struct {
	order   []*ir.BasicBlock
	index   map[*ir.BasicBlock]int
	idom    map[*ir.BasicBlock]*ir.BasicBlock
	frontier map[*ir.BasicBlock][]*ir.BasicBlock
}

// ComputeDominance builds the dominator tree and dominance frontiers of fn,
// following Cooper, Harvey & Kennedy's "A Simple, Fast Dominance Algorithm".
func ComputeDominance(fn *ir.Function) *DominatorTree {
	dt := &DominatorTree{
		index:    make(map[*ir.BasicBlock]int),
		idom:     make(map[*ir.BasicBlock]*ir.BasicBlock),
		frontier: make(map[*ir.BasicBlock][]*ir.BasicBlock),
	}
	dt.order = fn.RPO()
	if len(dt.order) == 0 {
		return dt
	}
	for i, b := range dt.order {
		dt.index[b] = i
	}

	entry := dt.order[0]
	dt.idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range dt.order[1:] {
			var newIdom *ir.BasicBlock
			for _, p := range b.Predecessors() {
				if dt.idom[p] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = dt.intersect(p, newIdom)
			}
			if newIdom != nil && dt.idom[b] != newIdom {
				dt.idom[b] = newIdom
				changed = true
			}
		}
	}
	dt.idom[entry] = nil // entry has no dominator, by convention

	dt.computeFrontiers()
	return dt
}

func (dt *DominatorTree) intersect(u, v *ir.BasicBlock) *ir.BasicBlock {
	for u != v {
		for dt.index[u] > dt.index[v] {
			u = dt.idom[u]
		}
		for dt.index[v] > dt.index[u] {
			v = dt.idom[v]
		}
	}
	return u
}

func (dt *DominatorTree) computeFrontiers() {
	entry := dt.order[0]
	for _, b := range dt.order {
		dt.frontier[b] = nil
	}
	for _, b := range dt.order {
		preds := b.Predecessors()
		if len(preds) < 2 {
			continue
		}
		idomB := dt.idom[b]
		if b == entry {
			idomB = entry
		}
		for _, p := range preds {
			runner := p
			for runner != idomB && runner != nil {
				dt.frontier[runner] = append(dt.frontier[runner], b)
				runner = dt.idom[runner]
			}
		}
	}
}

// IDom returns b's immediate dominator, or nil for the entry block.
func (dt *DominatorTree) IDom(b *ir.BasicBlock) *ir.BasicBlock { return dt.idom[b] }

// Frontier returns b's dominance frontier.
func (dt *DominatorTree) Frontier(b *ir.BasicBlock) []*ir.BasicBlock { return dt.frontier[b] }

// Children returns the blocks whose immediate dominator is b, used by the
// renaming pass's preorder walk of the dominator tree.
func (dt *DominatorTree) Children(b *ir.BasicBlock) []*ir.BasicBlock {
	var out []*ir.BasicBlock
	for _, c := range dt.order {
		if dt.idom[c] == b && c != b {
			out = append(out, c)
		}
	}
	return out
}

// Root returns the function's entry block in RPO order, or nil if the
// function has no reachable blocks.
func (dt *DominatorTree) Root() *ir.BasicBlock {
	if len(dt.order) == 0 {
		return nil
	}
	return dt.order[0]
}
