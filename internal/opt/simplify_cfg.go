package opt

import "arkoi/internal/ir"

// SimplifyCFG iteratively (a) removes unreachable blocks, (b) merges a
// block into its sole predecessor when that predecessor ends in a Goto to
// it and no other block targets it, and (c) elides single-Goto proxy
// blocks by rewriting predecessors' edges to the proxy's target, per
// spec.md §4.3. All edge rewrites go through SetNext/SetBranch.
type SimplifyCFG struct{ BasePass }

func (SimplifyCFG) ExitFunction(fn *ir.Function) bool {
	changed := false
	if removeUnreachable(fn) {
		changed = true
	}
	if mergeSolePredecessors(fn) {
		changed = true
	}
	if elideProxyBlocks(fn) {
		changed = true
	}
	return changed
}

func removeUnreachable(fn *ir.Function) bool {
	changed := false
	for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		if b == fn.Entry {
			continue
		}
		if len(b.Predecessors()) == 0 {
			b.Disconnect()
			fn.RemoveBlock(b)
			changed = true
		}
	}
	return changed
}

// mergeSolePredecessors merges succ into its sole predecessor pred when
// succ's only predecessor is pred and pred ends with an unconditional
// Goto to succ (succ is not Entry or Exit, which are fixed reference
// points other passes rely on).
func mergeSolePredecessors(fn *ir.Function) bool {
	changed := false
	for _, succ := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		if succ == fn.Entry || succ == fn.Exit {
			continue
		}
		preds := succ.Predecessors()
		if len(preds) != 1 {
			continue
		}
		pred := preds[0]
		if pred == succ {
			continue
		}
		g, ok := pred.Terminator().(*ir.Goto)
		if !ok || g.Label != succ.Label {
			continue
		}
		if pred.Next() != succ || pred.Branch() != nil && pred.Branch() != succ {
			continue
		}

		pred.Instructions = pred.Instructions[:len(pred.Instructions)-1]
		pred.Instructions = append(pred.Instructions, succ.Instructions...)
		pred.SetNext(succ.Next())
		pred.SetBranch(succ.Branch())
		succ.Disconnect()
		fn.RemoveBlock(succ)
		changed = true
	}
	return changed
}

// elideProxyBlocks rewrites any predecessor of a block consisting only of
// a single unconditional Goto to instead target that proxy's destination
// directly.
func elideProxyBlocks(fn *ir.Function) bool {
	changed := false
	for _, proxy := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		if proxy == fn.Entry || proxy == fn.Exit {
			continue
		}
		if len(proxy.Instructions) != 1 {
			continue
		}
		g, ok := proxy.Instructions[0].(*ir.Goto)
		if !ok {
			continue
		}
		target := proxy.Next()
		if target == nil || target == proxy {
			continue
		}
		_ = g

		for _, pred := range append([]*ir.BasicBlock(nil), proxy.Predecessors()...) {
			if pred == proxy {
				continue
			}
			if pred.Next() == proxy {
				pred.SetNext(target)
			}
			if pred.Branch() == proxy {
				pred.SetBranch(target)
			}
			retargetTerminator(pred.Terminator(), proxy.Label, target.Label)
			changed = true
		}

		if len(proxy.Predecessors()) == 0 {
			proxy.Disconnect()
			fn.RemoveBlock(proxy)
			changed = true
		}
	}
	return changed
}

func retargetTerminator(term ir.Instruction, from, to string) {
	switch t := term.(type) {
	case *ir.Goto:
		if t.Label == from {
			t.Label = to
		}
	case *ir.If:
		if t.Branch == from {
			t.Branch = to
		}
		if t.Next == from {
			t.Next = to
		}
	}
}
