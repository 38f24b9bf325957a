package ssa

import (
	"fmt"

	"arkoi/internal/ir"
)

// LowerPhis eliminates every Phi in fn via the standard critical-edge-safe
// scheme (spec.md §4.7): for each predecessor of a block with phis, the
// incoming values are serialized into parallel Assign copies, inserted on
// a synthetic block on the edge if that edge is critical (the predecessor
// has more than one successor), or directly before the predecessor's
// terminator otherwise.
func LowerPhis(fn *ir.Function) {
	labelNo := 0
	freshLabel := func() string {
		labelNo++
		return fmt.Sprintf("L.phi%d", labelNo)
	}

	for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		phis := collectPhis(b)
		if len(phis) == 0 {
			continue
		}
		stripPhis(b, len(phis))

		for _, pred := range append([]*ir.BasicBlock(nil), b.Predecessors()...) {
			copies := copiesFor(phis, pred)
			serialized := serializeCopies(copies)

			if len(pred.Successors()) > 1 {
				insertOnCriticalEdge(fn, pred, b, serialized, freshLabel)
			} else {
				insertBeforeTerminator(pred, serialized)
			}
		}
	}
}

type pendingCopy struct {
	dst ir.Variable
	src ir.Variable
}

func collectPhis(b *ir.BasicBlock) []*ir.Phi {
	var phis []*ir.Phi
	for _, inst := range b.Instructions {
		if p, ok := inst.(*ir.Phi); ok {
			phis = append(phis, p)
			continue
		}
		break
	}
	return phis
}

func stripPhis(b *ir.BasicBlock, n int) {
	b.Instructions = b.Instructions[n:]
}

func copiesFor(phis []*ir.Phi, pred *ir.BasicBlock) []pendingCopy {
	var copies []pendingCopy
	for _, phi := range phis {
		for _, edge := range phi.Incoming {
			if edge.Pred == pred {
				copies = append(copies, pendingCopy{dst: phi.Dst, src: edge.Value})
				break
			}
		}
	}
	return copies
}

// serializeCopies breaks the dependency graph among a set of parallel
// copies into a sequence of ordinary Assigns, per spec.md §4.7: a copy
// whose destination no other pending copy still reads goes first; any
// remaining cycle is broken with one temporary of the cycle element's type.
func serializeCopies(copies []pendingCopy) []ir.Instruction {
	if len(copies) == 0 {
		return nil
	}

	remaining := append([]pendingCopy(nil), copies...)
	var out []ir.Instruction
	tempNo := 0

	readByOther := func(key ir.VarKey, set []pendingCopy, self int) bool {
		for j, c := range set {
			if j != self && c.src.Key() == key {
				return true
			}
		}
		return false
	}

	for len(remaining) > 0 {
		progressed := false
		for i := 0; i < len(remaining); i++ {
			c := remaining[i]
			if !readByOther(c.dst.Key(), remaining, i) {
				out = append(out, &ir.Assign{Dst: c.dst, Src: c.src})
				remaining = append(remaining[:i], remaining[i+1:]...)
				progressed = true
				break
			}
		}
		if !progressed {
			// A genuine cycle: break it with a temporary holding one
			// element's source value, so that source is no longer read by
			// a pending copy and the copy overwriting it becomes free.
			c := remaining[0]
			tempNo++
			tmp := ir.Variable{Name: ir.FreshSpillName("phi.tmp", tempNo, 0), Type: c.src.Type}
			out = append(out, &ir.Assign{Dst: tmp, Src: c.src})
			remaining[0].src = tmp
		}
	}
	return out
}

func insertBeforeTerminator(b *ir.BasicBlock, copies []ir.Instruction) {
	if len(copies) == 0 {
		return
	}
	n := len(b.Instructions)
	if n == 0 {
		b.Instructions = copies
		return
	}
	head := append([]ir.Instruction(nil), b.Instructions[:n-1]...)
	head = append(head, copies...)
	head = append(head, b.Instructions[n-1])
	b.Instructions = head
}

// insertOnCriticalEdge splits the edge pred->succ with a fresh block
// carrying the serialized copies, since pred has other successors and the
// copies must run only when control actually flows to succ.
func insertOnCriticalEdge(fn *ir.Function, pred, succ *ir.BasicBlock, copies []ir.Instruction, freshLabel func() string) {
	edge := fn.AddBlock(freshLabel())
	edge.Instructions = append(edge.Instructions, copies...)
	edge.Emit(&ir.Goto{Label: succ.Label})
	edge.SetNext(succ)

	if pred.Next() == succ {
		pred.SetNext(edge)
	}
	if pred.Branch() == succ {
		pred.SetBranch(edge)
	}
	retarget(pred.Terminator(), succ.Label, edge.Label)
}

func retarget(term ir.Instruction, from, to string) {
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
