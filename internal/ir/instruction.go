package ir

import (
	"fmt"
	"strings"

	"arkoi/internal/types"
)

// BinaryOp enumerates the IL binary operators (spec.md §3 table), grounded
// on original_source's il::Binary::Operator.
type BinaryOp int

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	GreaterThan
	LessThan
)

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	default:
		return "?"
	}
}

// IsComparison reports whether op produces a bool result instead of a
// value of op's operand type.
func (op BinaryOp) IsComparison() bool { return op == GreaterThan || op == LessThan }

// Instruction is the sum type of spec.md §3's instruction table. Each
// concrete kind below is a distinct Go struct implementing this interface;
// the pattern-match surface (defs/uses/terminator-ness) lives per struct to
// keep dispatch a type switch rather than a v-table, per spec.md §9's
// "cheap to pattern-match" design note.
type Instruction interface {
	// Defs returns the operands this instruction defines (always Variable
	// or Memory, never Immediate).
	Defs() []Operand
	// Uses returns the operands this instruction reads.
	Uses() []Operand
	// IsTerminator reports whether this instruction may only appear last
	// in a block (Goto, If, Return).
	IsTerminator() bool
	String() string
}

// Constant assigns an immediate to a fresh variable.
type Constant struct {
	Dst Variable
	Imm Immediate
}

func (c *Constant) Defs() []Operand   { return []Operand{c.Dst} }
func (c *Constant) Uses() []Operand   { return nil }
func (c *Constant) IsTerminator() bool { return false }
func (c *Constant) String() string {
	return fmt.Sprintf("%s @%s = %s", c.Dst, c.Dst.Type, c.Imm)
}

// Assign copies src into dst, used both by the front end's copy-like
// assignments and by phi lowering's parallel copies (spec.md §3: "the
// Assign instruction carries the meaning previously carried by phi
// destinations" once phis are lowered).
type Assign struct {
	Dst Variable
	Src Operand
}

func (a *Assign) Defs() []Operand    { return []Operand{a.Dst} }
func (a *Assign) Uses() []Operand    { return []Operand{a.Src} }
func (a *Assign) IsTerminator() bool { return false }
func (a *Assign) String() string {
	return fmt.Sprintf("%s @%s = %s", a.Dst, a.Dst.Type, a.Src)
}

// Binary computes a dyadic arithmetic or comparison operation.
type Binary struct {
	Dst         Variable
	Op          BinaryOp
	Left, Right Operand
	OpType      types.Type
}

func (b *Binary) Defs() []Operand    { return []Operand{b.Dst} }
func (b *Binary) Uses() []Operand    { return []Operand{b.Left, b.Right} }
func (b *Binary) IsTerminator() bool { return false }
func (b *Binary) String() string {
	return fmt.Sprintf("%s @%s = %s %s %s", b.Dst, b.Dst.Type, b.Left, b.Op, b.Right)
}

// Cast converts src (of type From) to Dst's declared type.
type Cast struct {
	Dst  Variable
	Src  Operand
	From types.Type
}

func (c *Cast) Defs() []Operand    { return []Operand{c.Dst} }
func (c *Cast) Uses() []Operand    { return []Operand{c.Src} }
func (c *Cast) IsTerminator() bool { return false }
func (c *Cast) String() string {
	return fmt.Sprintf("%s @%s = cast %s @%s", c.Dst, c.Dst.Type, c.Src, c.From)
}

// Alloca reserves a stack slot; code generation resolves it at frame-layout
// time and emits no code for it.
type Alloca struct {
	Mem Memory
}

func (a *Alloca) Defs() []Operand    { return []Operand{a.Mem} }
func (a *Alloca) Uses() []Operand    { return nil }
func (a *Alloca) IsTerminator() bool { return false }
func (a *Alloca) String() string     { return fmt.Sprintf("%s @%s = alloca", a.Mem, a.Mem.Type) }

// Load reads the scalar value stored at Mem into Dst.
type Load struct {
	Dst Variable
	Mem Memory
}

func (l *Load) Defs() []Operand    { return []Operand{l.Dst} }
func (l *Load) Uses() []Operand    { return []Operand{l.Mem} }
func (l *Load) IsTerminator() bool { return false }
func (l *Load) String() string {
	return fmt.Sprintf("%s @%s = load %s", l.Dst, l.Dst.Type, l.Mem)
}

// Store writes Src to Mem.
type Store struct {
	Mem Memory
	Src Operand
}

func (s *Store) Defs() []Operand    { return nil }
func (s *Store) Uses() []Operand    { return []Operand{s.Mem, s.Src} }
func (s *Store) IsTerminator() bool { return false }
func (s *Store) String() string     { return fmt.Sprintf("store %s, %s", s.Mem, s.Src) }

// Argument orders one call argument ahead of the Call that consumes it,
// giving the register allocator's pre-colorer a fixed point at which to
// assign the next ABI argument register (spec.md §4.6).
type Argument struct {
	Dst Variable
	Src Operand
}

func (a *Argument) Defs() []Operand    { return []Operand{a.Dst} }
func (a *Argument) Uses() []Operand    { return []Operand{a.Src} }
func (a *Argument) IsTerminator() bool { return false }
func (a *Argument) String() string {
	return fmt.Sprintf("%s @%s = arg %s", a.Dst, a.Dst.Type, a.Src)
}

// Call invokes Name with Args (each the Dst of a preceding Argument) and
// stores the result in Dst. It may observe all memory, so DCE, constant
// propagation and copy propagation never reorder past it.
type Call struct {
	Dst  Variable
	Name string
	Args []Operand
}

func (c *Call) Defs() []Operand    { return []Operand{c.Dst} }
func (c *Call) Uses() []Operand    { return c.Args }
func (c *Call) IsTerminator() bool { return false }
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s @%s = call %s(%s)", c.Dst, c.Dst.Type, c.Name, strings.Join(args, ", "))
}

// Goto is an unconditional transfer; it sets the block's `next` edge.
type Goto struct {
	Label string
}

func (g *Goto) Defs() []Operand    { return nil }
func (g *Goto) Uses() []Operand    { return nil }
func (g *Goto) IsTerminator() bool { return true }
func (g *Goto) String() string     { return fmt.Sprintf("goto %s", g.Label) }

// If is a conditional transfer; Branch is the taken (true) side, Next the
// fall-through (false) side, matching BasicBlock's next/branch edges.
type If struct {
	Cond         Operand
	Next, Branch string
}

func (i *If) Defs() []Operand    { return nil }
func (i *If) Uses() []Operand    { return []Operand{i.Cond} }
func (i *If) IsTerminator() bool { return true }
func (i *If) String() string {
	return fmt.Sprintf("if %s then %s else %s", i.Cond, i.Branch, i.Next)
}

// Return reads Value and transfers to the function's single exit block.
type Return struct {
	Value Operand
}

func (r *Return) Defs() []Operand    { return nil }
func (r *Return) Uses() []Operand    { return []Operand{r.Value} }
func (r *Return) IsTerminator() bool { return true }
func (r *Return) String() string     { return fmt.Sprintf("ret %s", r.Value) }

// PhiEdge is one incoming (predecessor, value) pair of a Phi. A slice of
// these (rather than a map) keeps iteration order deterministic, matching
// the predecessor block order the CFG already maintains.
type PhiEdge struct {
	Pred  *BasicBlock
	Value Variable
}

// Phi merges values along incoming edges; it may only appear first in a
// block and contributes no uses to its own block (spec.md §4.5: phi
// operands are uses at the end of the corresponding predecessor).
type Phi struct {
	Dst      Variable
	Incoming []PhiEdge
}

func (p *Phi) Defs() []Operand { return []Operand{p.Dst} }
func (p *Phi) Uses() []Operand {
	uses := make([]Operand, len(p.Incoming))
	for i, e := range p.Incoming {
		uses[i] = e.Value
	}
	return uses
}
func (p *Phi) IsTerminator() bool { return false }
func (p *Phi) String() string {
	parts := make([]string, len(p.Incoming))
	for i, e := range p.Incoming {
		parts[i] = fmt.Sprintf("[%s: %s]", e.Pred.Label, e.Value)
	}
	return fmt.Sprintf("%s @%s = phi %s", p.Dst, p.Dst.Type, strings.Join(parts, ", "))
}
