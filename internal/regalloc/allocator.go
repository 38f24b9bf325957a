package regalloc

import (
	"sort"

	"arkoi/internal/dataflow"
	"arkoi/internal/diagnostics"
	"arkoi/internal/ir"
)

// Allocator runs the build/simplify/select/rewrite pipeline of spec.md
// §4.6 over a single function, re-running from the top whenever a spill
// rewrite introduces new short-lived variables.
type Allocator struct {
	fn *ir.Function

	graph       *InterferenceGraph[ir.VarKey]
	varType     map[ir.VarKey]ir.Variable
	liveAcross  dataflow.Set[ir.VarKey]
	preassigned Mapping
	stackPassed StackPassed

	Assigned Mapping
	Spilled  map[ir.VarKey]bool

	spillRound  int
	spillTempNo int
}

func NewAllocator(fn *ir.Function) *Allocator {
	return &Allocator{fn: fn, Assigned: Mapping{}, Spilled: map[ir.VarKey]bool{}}
}

// Run executes allocation to completion, rewriting fn in place on every
// spill until no spills remain.
func (a *Allocator) Run() {
	for {
		pre := NewPreColorer(a.fn)
		pre.Run()
		a.preassigned = pre.Assigned
		a.stackPassed = pre.StackPassed

		a.build()
		stack, spillCandidates := a.simplify()
		assigned, spilled := a.select_(stack)

		if len(spilled) == 0 {
			for k, v := range a.preassigned {
				assigned[k] = v
			}
			a.Assigned = assigned
			return
		}

		a.spillRound++
		a.rewrite(spilled, spillCandidates)
		// loop: renumber happens implicitly since build() recomputes the
		// variable/liveness universe fresh from the rewritten function.
	}
}

func (a *Allocator) build() {
	a.graph = NewInterferenceGraph[ir.VarKey]()
	a.varType = map[ir.VarKey]ir.Variable{}

	blockLive := dataflow.ComputeBlockLiveness(a.fn)
	instLive := dataflow.ComputeInstructionLiveness(a.fn, blockLive)
	a.liveAcross = instLive.LiveAcrossCalls

	record := func(v ir.Variable) { a.varType[v.Key()] = v; a.graph.AddNode(v.Key()) }

	for _, b := range a.fn.Blocks {
		for _, inst := range b.Instructions {
			for _, d := range inst.Defs() {
				if v, ok := d.(ir.Variable); ok {
					record(v)
				}
			}
			for _, u := range inst.Uses() {
				if v, ok := u.(ir.Variable); ok {
					record(v)
				}
			}
		}
	}

	for _, b := range a.fn.Blocks {
		for _, inst := range b.Instructions {
			defs := varOperands(inst.Defs())
			uses := varOperands(inst.Uses())

			for i := 0; i < len(uses); i++ {
				for j := i + 1; j < len(uses); j++ {
					a.graph.AddEdge(uses[i].Key(), uses[j].Key())
				}
			}
			for i := 0; i < len(defs); i++ {
				for j := i + 1; j < len(defs); j++ {
					a.graph.AddEdge(defs[i].Key(), defs[j].Key())
				}
			}

			out := instLive.Out[inst]
			for vk := range out {
				for _, d := range defs {
					if d.Key() != vk {
						a.graph.AddEdge(d.Key(), vk)
					}
				}
			}
		}
	}
}

func varOperands(ops []ir.Operand) []ir.Variable {
	var out []ir.Variable
	for _, op := range ops {
		if v, ok := op.(ir.Variable); ok {
			out = append(out, v)
		}
	}
	return out
}

func (a *Allocator) classSize(vk ir.VarKey) int {
	v := a.varType[vk]
	if ClassOf(v.Type) == FloatClass {
		return len(AllFloat)
	}
	if _, ok := a.liveAcross[vk]; ok {
		return len(CalleeSavedInt)
	}
	return len(CallerSavedInt)
}

// simplify repeatedly removes a node whose current degree is below its
// class's k, pushing it to the stack; when none qualifies, it pushes the
// node maximizing degree*k as a potential spill, per spec.md §4.6.
// Pre-colored nodes are never pushed: their color is already fixed.
func (a *Allocator) simplify() ([]ir.VarKey, map[ir.VarKey]bool) {
	degree := map[ir.VarKey]int{}
	var nodes []ir.VarKey
	for _, n := range a.graph.Nodes() {
		if _, pre := a.preassigned[n]; pre {
			continue
		}
		nodes = append(nodes, n)
		degree[n] = a.graph.Degree(n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].Version < nodes[j].Version
	})

	removed := map[ir.VarKey]bool{}
	var stack []ir.VarKey
	spillCandidates := map[ir.VarKey]bool{}

	remaining := append([]ir.VarKey(nil), nodes...)
	for len(remaining) > 0 {
		pickedIdx := -1
		for i, n := range remaining {
			if degree[n] < a.classSize(n) {
				pickedIdx = i
				break
			}
		}
		if pickedIdx == -1 {
			// Spill heuristic: degree * k, maximized.
			best := 0
			bestScore := -1
			for i, n := range remaining {
				score := degree[n] * a.classSize(n)
				if score > bestScore {
					bestScore = score
					best = i
				}
			}
			pickedIdx = best
			spillCandidates[remaining[pickedIdx]] = true
		}

		n := remaining[pickedIdx]
		remaining = append(remaining[:pickedIdx], remaining[pickedIdx+1:]...)
		stack = append(stack, n)
		removed[n] = true
		for _, nb := range a.graph.Interferences(n) {
			if !removed[nb] {
				degree[nb]--
			}
		}
	}
	return stack, spillCandidates
}

// select_ pops the stack and assigns each node the lowest-indexed color
// in its class not used by any already-colored neighbor, per spec.md
// §4.6. Nodes that cannot be colored are reported as spilled.
func (a *Allocator) select_(stack []ir.VarKey) (Mapping, map[ir.VarKey]bool) {
	assigned := Mapping{}
	for k, v := range a.preassigned {
		assigned[k] = v
	}
	spilled := map[ir.VarKey]bool{}

	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		palette := a.palette(n)
		used := map[string]bool{}
		for _, nb := range a.graph.Interferences(n) {
			if reg, ok := assigned[nb]; ok {
				used[reg.Name] = true
			}
		}

		colored := false
		for _, reg := range palette {
			if !used[reg.Name] {
				assigned[n] = reg
				colored = true
				break
			}
		}
		if !colored {
			spilled[n] = true
		}
	}
	return assigned, spilled
}

func (a *Allocator) palette(vk ir.VarKey) []Register {
	v := a.varType[vk]
	if ClassOf(v.Type) == FloatClass {
		return AllFloat
	}
	if _, ok := a.liveAcross[vk]; ok {
		return CalleeSavedInt
	}
	return CallerSavedInt
}

// rewrite implements the spill-rewrite step: every def of a spilled
// variable gets a fresh stack slot and writes through a fresh short-lived
// temporary; every use loads from the slot into a fresh temporary, per
// spec.md §4.6. Strictly smaller live ranges of the new temporaries
// guarantee the re-run terminates.
func (a *Allocator) rewrite(spilled map[ir.VarKey]bool, _ map[ir.VarKey]bool) {
	slots := map[ir.VarKey]ir.Memory{}
	round := a.spillRound
	freshName := func() string { a.spillTempNo++; return ir.FreshSpillName("spill", a.spillTempNo, round) }

	for vk := range spilled {
		v := a.varType[vk]
		slots[vk] = ir.Memory{Name: spillSlotName(v, round), Type: v.Type}
	}

	a.fn.Entry.Instructions = prepend(a.fn.Entry.Instructions, allocasFor(slots))

	for _, b := range a.fn.Blocks {
		var out []ir.Instruction
		for _, inst := range b.Instructions {
			out = append(out, rewriteUses(inst, spilled, slots, freshName)...)
		}
		b.Instructions = out
	}

	if len(slots) == 0 {
		diagnostics.Bug("regalloc", "rewrite", "rewrite invoked with no spilled variables")
	}
}

// spillSlotName names a spilled variable's stack slot. It reuses
// FreshSpillName's round-gated KSUID suffix so a variable spilled again in
// a later round never collides with its own earlier slot.
func spillSlotName(v ir.Variable, round int) string {
	return ir.FreshSpillName("spill_"+v.Name, v.Version, round)
}

func allocasFor(slots map[ir.VarKey]ir.Memory) []ir.Instruction {
	var out []ir.Instruction
	for _, mem := range slots {
		out = append(out, &ir.Alloca{Mem: mem})
	}
	return out
}

func prepend(insts []ir.Instruction, head []ir.Instruction) []ir.Instruction {
	out := make([]ir.Instruction, 0, len(head)+len(insts))
	out = append(out, head...)
	return append(out, insts...)
}

// insertBeforeTerminator inserts insts immediately before b's terminator,
// so Loads feeding a phi land before the edge is taken rather than after.
func insertBeforeTerminator(b *ir.BasicBlock, insts ...ir.Instruction) {
	if len(b.Instructions) == 0 {
		b.Instructions = insts
		return
	}
	last := len(b.Instructions) - 1
	if !b.Instructions[last].IsTerminator() {
		b.Instructions = append(b.Instructions, insts...)
		return
	}
	term := b.Instructions[last]
	b.Instructions = append(append(b.Instructions[:last:last], insts...), term)
}

// rewriteUses replaces every def/use of a spilled variable in inst with a
// fresh temporary plus a Store (after a def) or a Load (before a use),
// returning the instruction sequence that replaces inst.
func rewriteUses(inst ir.Instruction, spilled map[ir.VarKey]bool, slots map[ir.VarKey]ir.Memory, fresh func() string) []ir.Instruction {
	var pre []ir.Instruction
	var post []ir.Instruction

	remapOperand := func(op ir.Operand) ir.Operand {
		v, ok := op.(ir.Variable)
		if !ok || !spilled[v.Key()] {
			return op
		}
		tmp := ir.Variable{Name: fresh(), Type: v.Type}
		pre = append(pre, &ir.Load{Dst: tmp, Mem: slots[v.Key()]})
		return tmp
	}

	remapDef := func(v ir.Variable) ir.Variable {
		if !spilled[v.Key()] {
			return v
		}
		tmp := ir.Variable{Name: fresh(), Type: v.Type}
		post = append(post, &ir.Store{Mem: slots[v.Key()], Src: tmp})
		return tmp
	}

	switch inst := inst.(type) {
	case *ir.Constant:
		inst.Dst = remapDef(inst.Dst)
	case *ir.Assign:
		inst.Src = remapOperand(inst.Src)
		inst.Dst = remapDef(inst.Dst)
	case *ir.Binary:
		inst.Left = remapOperand(inst.Left)
		inst.Right = remapOperand(inst.Right)
		inst.Dst = remapDef(inst.Dst)
	case *ir.Cast:
		inst.Src = remapOperand(inst.Src)
		inst.Dst = remapDef(inst.Dst)
	case *ir.Load:
		inst.Dst = remapDef(inst.Dst)
	case *ir.Store:
		inst.Src = remapOperand(inst.Src)
	case *ir.Argument:
		inst.Src = remapOperand(inst.Src)
		inst.Dst = remapDef(inst.Dst)
	case *ir.Call:
		for i, arg := range inst.Args {
			inst.Args[i] = remapOperand(arg)
		}
		inst.Dst = remapDef(inst.Dst)
	case *ir.Return:
		inst.Value = remapOperand(inst.Value)
	case *ir.If:
		inst.Cond = remapOperand(inst.Cond)
	case *ir.Phi:
		for i, edge := range inst.Incoming {
			if spilled[edge.Value.Key()] {
				tmp := ir.Variable{Name: fresh(), Type: edge.Value.Type}
				insertBeforeTerminator(edge.Pred, &ir.Load{Dst: tmp, Mem: slots[edge.Value.Key()]})
				inst.Incoming[i].Value = tmp
			}
		}
		inst.Dst = remapDef(inst.Dst)
	}

	out := append(pre, inst)
	out = append(out, post...)
	return out
}
