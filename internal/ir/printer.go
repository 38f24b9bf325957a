package ir

import (
	"fmt"
	"strings"
)

// Print renders mod as the IL text format of spec.md §6: one function per
// stanza ("fun name(params) @returnType:"), each block as a "label:" line
// followed by one instruction per line. Every operand is rendered as
// "value@type" (no space) so internal/ir/ilparse.go can tokenize a line by
// whitespace alone and still recover each operand's exact type, making the
// format losslessly round-trippable (spec.md §8). Grounded on
// original_source's il_printer.hpp.
func Print(mod *Module) string {
	var b strings.Builder
	for i, fn := range mod.Functions {
		if i > 0 {
			b.WriteString("\n")
		}
		printFunction(&b, fn)
	}
	return b.String()
}

func operandToken(op Operand) string {
	return fmt.Sprintf("%s@%s", op.String(), op.OperandType())
}

func printFunction(b *strings.Builder, fn *Function) {
	params := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = operandToken(p)
	}
	fmt.Fprintf(b, "fun %s(%s) @%s:\n", fn.Name, strings.Join(params, ", "), fn.ReturnType)

	for _, blk := range fn.Blocks {
		fmt.Fprintf(b, "%s:\n", blk.Label)
		for _, inst := range blk.Instructions {
			fmt.Fprintf(b, "  %s\n", printInstruction(inst))
		}
	}
}

func printInstruction(inst Instruction) string {
	switch inst := inst.(type) {
	case *Constant:
		return fmt.Sprintf("%s = %s", operandToken(inst.Dst), operandToken(inst.Imm))
	case *Assign:
		return fmt.Sprintf("%s = %s", operandToken(inst.Dst), operandToken(inst.Src))
	case *Binary:
		return fmt.Sprintf("%s = %s %s %s", operandToken(inst.Dst), operandToken(inst.Left), inst.Op, operandToken(inst.Right))
	case *Cast:
		return fmt.Sprintf("%s = cast %s from @%s", operandToken(inst.Dst), operandToken(inst.Src), inst.From)
	case *Alloca:
		return fmt.Sprintf("%s = alloca", operandToken(inst.Mem))
	case *Load:
		return fmt.Sprintf("%s = load %s", operandToken(inst.Dst), operandToken(inst.Mem))
	case *Store:
		return fmt.Sprintf("store %s, %s", operandToken(inst.Mem), operandToken(inst.Src))
	case *Argument:
		return fmt.Sprintf("%s = arg %s", operandToken(inst.Dst), operandToken(inst.Src))
	case *Call:
		args := make([]string, len(inst.Args))
		for i, a := range inst.Args {
			args[i] = operandToken(a)
		}
		return fmt.Sprintf("%s = call %s(%s)", operandToken(inst.Dst), inst.Name, strings.Join(args, ", "))
	case *Goto:
		return fmt.Sprintf("goto %s", inst.Label)
	case *If:
		return fmt.Sprintf("if %s then %s else %s", operandToken(inst.Cond), inst.Branch, inst.Next)
	case *Return:
		return fmt.Sprintf("ret %s", operandToken(inst.Value))
	case *Phi:
		edges := make([]string, len(inst.Incoming))
		for i, e := range inst.Incoming {
			edges[i] = fmt.Sprintf("[%s: %s]", e.Pred.Label, operandToken(e.Value))
		}
		return fmt.Sprintf("%s = phi %s", operandToken(inst.Dst), strings.Join(edges, ", "))
	default:
		panic(fmt.Sprintf("ir: printer has no case for %T", inst))
	}
}
