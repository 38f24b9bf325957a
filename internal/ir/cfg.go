package ir

import (
	"arkoi/internal/orderedset"
	"arkoi/internal/types"
)

// BasicBlock is a straight-line instruction sequence with two possible
// outgoing edges (spec.md §3). Predecessors are a derived, always-consistent
// index maintained only through SetNext/SetBranch — never mutated directly,
// per spec.md §9.
type BasicBlock struct {
	Label        string
	Instructions []Instruction
	next, branch *BasicBlock
	preds        *orderedset.Set[*BasicBlock]
}

func NewBasicBlock(label string) *BasicBlock {
	return &BasicBlock{Label: label, preds: orderedset.New[*BasicBlock]()}
}

func (b *BasicBlock) Next() *BasicBlock   { return b.next }
func (b *BasicBlock) Branch() *BasicBlock { return b.branch }

// Predecessors returns the blocks with an edge into b, in the order those
// edges were established.
func (b *BasicBlock) Predecessors() []*BasicBlock { return b.preds.Values() }

func (b *BasicBlock) pointsTo(target *BasicBlock) bool {
	return b.next == target || b.branch == target
}

// SetNext sets the fall-through/unconditional edge, updating both sides'
// predecessor sets.
func (b *BasicBlock) SetNext(target *BasicBlock) {
	if b.next == target {
		return
	}
	old := b.next
	b.next = target
	if old != nil && !b.pointsTo(old) {
		old.preds.Erase(b)
	}
	if target != nil {
		target.preds.Insert(b)
	}
}

// SetBranch sets the taken-side edge of a conditional, updating both
// sides' predecessor sets.
func (b *BasicBlock) SetBranch(target *BasicBlock) {
	if b.branch == target {
		return
	}
	old := b.branch
	b.branch = target
	if old != nil && !b.pointsTo(old) {
		old.preds.Erase(b)
	}
	if target != nil {
		target.preds.Insert(b)
	}
}

// Disconnect clears both outgoing edges, removing b from both targets'
// predecessor sets. Required before a block can be removed from its
// function's pool (spec.md §3: "removal is only permitted when the block
// has no predecessors, and edges must be disconnected first").
func (b *BasicBlock) Disconnect() {
	b.SetNext(nil)
	b.SetBranch(nil)
}

// Successors returns the block's outgoing targets, next first.
func (b *BasicBlock) Successors() []*BasicBlock {
	var out []*BasicBlock
	if b.next != nil {
		out = append(out, b.next)
	}
	if b.branch != nil && b.branch != b.next {
		out = append(out, b.branch)
	}
	return out
}

// Terminator returns the block's last instruction, or nil if the block is
// empty. Per spec.md §3 it is always a Goto, If or Return for any
// non-terminal block.
func (b *BasicBlock) Terminator() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[len(b.Instructions)-1]
}

func (b *BasicBlock) Emit(inst Instruction) {
	b.Instructions = append(b.Instructions, inst)
}

// Function owns a pool of basic blocks with two distinguished blocks:
// Entry and Exit.
type Function struct {
	Name       string
	Params     []Variable // synthetic per-parameter input variables, in order
	ParamTypes []types.Type
	ReturnType types.Type
	ReturnSlot Memory
	Entry      *BasicBlock
	Exit       *BasicBlock
	Blocks     []*BasicBlock // owned pool, insertion order
}

// NewFunction constructs a function with freshly allocated, wired entry
// and exit blocks.
func NewFunction(name string, returnType types.Type) *Function {
	fn := &Function{Name: name, ReturnType: returnType}
	fn.Entry = fn.AddBlock("entry")
	fn.Exit = fn.AddBlock("exit")
	return fn
}

// AddBlock creates a new block, adds it to the pool, and returns it.
func (f *Function) AddBlock(label string) *BasicBlock {
	b := NewBasicBlock(label)
	f.Blocks = append(f.Blocks, b)
	return b
}

// RemoveBlock deletes b from the pool. b must already have no predecessors
// and both outgoing edges disconnected (spec.md §3 lifecycle rule).
func (f *Function) RemoveBlock(b *BasicBlock) {
	for i, x := range f.Blocks {
		if x == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			return
		}
	}
}

// RPO returns the function's blocks in reverse postorder from Entry, the
// traversal order spec.md §4.2 and §4.4 require for dominance computation
// and forward dataflow scheduling. Unreachable blocks are omitted.
func RPO(entry *BasicBlock) []*BasicBlock {
	visited := make(map[*BasicBlock]bool)
	var post []*BasicBlock
	var visit func(b *BasicBlock)
	visit = func(b *BasicBlock) {
		if b == nil || visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Successors() {
			visit(s)
		}
		post = append(post, b)
	}
	visit(entry)
	rpo := make([]*BasicBlock, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

// RPO returns f's blocks in reverse postorder from its entry block.
func (f *Function) RPO() []*BasicBlock { return RPO(f.Entry) }

// Module owns an ordered list of functions (spec.md §3).
type Module struct {
	Functions []*Function
}
