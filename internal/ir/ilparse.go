package ir

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"arkoi/internal/types"
)

// Parse is the inverse of Print: it reconstructs a *Module from the IL text
// format, wiring block edges via SetNext/SetBranch so the result is a fully
// connected CFG rather than a bag of disconnected instructions. Grounded in
// original_source's il_printer.hpp, whose printer and parser share the same
// "value@type" token grammar this file implements.
//
// Every operand token is "value@type" with no space, which is what makes
// the grammar unambiguous: a line is split on whitespace into a fixed
// number of fields per instruction keyword, and each field's type suffix is
// recovered without needing to consult sibling instructions.
func Parse(text string) (*Module, error) {
	lines := strings.Split(text, "\n")
	mod := &Module{}

	i := 0
	for i < len(lines) {
		line := strings.TrimRight(lines[i], "\r")
		if strings.TrimSpace(line) == "" {
			i++
			continue
		}
		if !strings.HasPrefix(line, "fun ") {
			return nil, fmt.Errorf("ilparse: line %d: expected \"fun \", got %q", i+1, line)
		}
		fn, next, err := parseFunction(lines, i)
		if err != nil {
			return nil, err
		}
		mod.Functions = append(mod.Functions, fn)
		i = next
	}
	return mod, nil
}

var funHeaderRE = regexp.MustCompile(`^fun (\w+)\((.*)\) @(\S+):$`)
var blockLabelRE = regexp.MustCompile(`^(\S+):$`)

// parseFunction parses the stanza starting at lines[start] (a "fun ..."
// header) and returns the built function plus the index of the first line
// past its last block.
func parseFunction(lines []string, start int) (*Function, int, error) {
	header := strings.TrimSpace(lines[start])
	m := funHeaderRE.FindStringSubmatch(header)
	if m == nil {
		return nil, 0, fmt.Errorf("ilparse: line %d: malformed function header %q", start+1, header)
	}
	name, paramList, retTypeName := m[1], m[2], m[3]
	retType, ok := types.Lookup(retTypeName)
	if !ok {
		return nil, 0, fmt.Errorf("ilparse: line %d: unknown return type %q", start+1, retTypeName)
	}

	fn := &Function{Name: name, ReturnType: retType}
	if strings.TrimSpace(paramList) != "" {
		for _, tok := range strings.Split(paramList, ", ") {
			v, err := decodeVariableToken(strings.TrimSpace(tok))
			if err != nil {
				return nil, 0, fmt.Errorf("ilparse: line %d: %w", start+1, err)
			}
			fn.Params = append(fn.Params, v)
			fn.ParamTypes = append(fn.ParamTypes, v.Type)
		}
	}

	// Pass 1: find the stanza's extent and create every block (so forward
	// and back edges, and phi predecessors, can all be resolved in pass 2).
	end := start + 1
	type blockLines struct {
		label string
		body  []string
	}
	var order []blockLines
	for end < len(lines) {
		line := strings.TrimRight(lines[end], "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			end++
			continue
		}
		if strings.HasPrefix(line, "fun ") {
			break // next function's header
		}
		if !strings.HasPrefix(line, "  ") {
			lm := blockLabelRE.FindStringSubmatch(trimmed)
			if lm == nil {
				return nil, 0, fmt.Errorf("ilparse: line %d: expected a block label, got %q", end+1, line)
			}
			order = append(order, blockLines{label: lm[1]})
			end++
			continue
		}
		// instruction line, belongs to the most recently opened block
		if len(order) == 0 {
			return nil, 0, fmt.Errorf("ilparse: line %d: instruction before any block label", end+1)
		}
		order[len(order)-1].body = append(order[len(order)-1].body, trimmed)
		end++
	}

	blocksByLabel := make(map[string]*BasicBlock, len(order))
	for _, bl := range order {
		b := fn.AddBlock(bl.label)
		blocksByLabel[bl.label] = b
	}
	if b, ok := blocksByLabel["entry"]; ok {
		fn.Entry = b
	} else if len(fn.Blocks) > 0 {
		fn.Entry = fn.Blocks[0]
	}
	if b, ok := blocksByLabel["exit"]; ok {
		fn.Exit = b
	} else if len(fn.Blocks) > 0 {
		fn.Exit = fn.Blocks[len(fn.Blocks)-1]
	}

	// Pass 2: fill instructions now that every label resolves to a block.
	for _, bl := range order {
		b := blocksByLabel[bl.label]
		for _, instLine := range bl.body {
			inst, err := parseInstruction(instLine, blocksByLabel)
			if err != nil {
				return nil, 0, err
			}
			b.Instructions = append(b.Instructions, inst)
		}
		switch term := b.Terminator().(type) {
		case *Goto:
			b.SetNext(blocksByLabel[term.Label])
		case *If:
			b.SetBranch(blocksByLabel[term.Branch])
			b.SetNext(blocksByLabel[term.Next])
		}
	}

	return fn, end, nil
}

func parseInstruction(line string, blocks map[string]*BasicBlock) (Instruction, error) {
	switch {
	case strings.HasPrefix(line, "goto "):
		return &Goto{Label: strings.TrimPrefix(line, "goto ")}, nil

	case strings.HasPrefix(line, "if "):
		rest := strings.TrimPrefix(line, "if ")
		thenIdx := strings.Index(rest, " then ")
		elseIdx := strings.Index(rest, " else ")
		if thenIdx < 0 || elseIdx < 0 || elseIdx < thenIdx {
			return nil, fmt.Errorf("ilparse: malformed if instruction %q", line)
		}
		condTok := rest[:thenIdx]
		branch := rest[thenIdx+len(" then ") : elseIdx]
		next := rest[elseIdx+len(" else "):]
		cond, err := decodeOperandToken(condTok)
		if err != nil {
			return nil, err
		}
		return &If{Cond: cond, Branch: branch, Next: next}, nil

	case strings.HasPrefix(line, "ret "):
		val, err := decodeOperandToken(strings.TrimPrefix(line, "ret "))
		if err != nil {
			return nil, err
		}
		return &Return{Value: val}, nil

	case strings.HasPrefix(line, "store "):
		rest := strings.TrimPrefix(line, "store ")
		parts := strings.SplitN(rest, ", ", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("ilparse: malformed store instruction %q", line)
		}
		mem, err := decodeMemoryToken(parts[0])
		if err != nil {
			return nil, err
		}
		src, err := decodeOperandToken(parts[1])
		if err != nil {
			return nil, err
		}
		return &Store{Mem: mem, Src: src}, nil
	}

	eq := strings.Index(line, " = ")
	if eq < 0 {
		return nil, fmt.Errorf("ilparse: unrecognized instruction %q", line)
	}
	dstTok, rhs := line[:eq], line[eq+3:]
	fields := strings.Fields(rhs)
	if len(fields) == 0 {
		return nil, fmt.Errorf("ilparse: empty right-hand side in %q", line)
	}

	switch fields[0] {
	case "alloca":
		mem, err := decodeMemoryToken(dstTok)
		if err != nil {
			return nil, err
		}
		return &Alloca{Mem: mem}, nil

	case "load":
		dst, err := decodeVariableToken(dstTok)
		if err != nil {
			return nil, err
		}
		mem, err := decodeMemoryToken(fields[1])
		if err != nil {
			return nil, err
		}
		return &Load{Dst: dst, Mem: mem}, nil

	case "arg":
		dst, err := decodeVariableToken(dstTok)
		if err != nil {
			return nil, err
		}
		src, err := decodeOperandToken(fields[1])
		if err != nil {
			return nil, err
		}
		return &Argument{Dst: dst, Src: src}, nil

	case "cast":
		// "cast SRC@type from @FROMTYPE"
		if len(fields) != 4 || fields[2] != "from" {
			return nil, fmt.Errorf("ilparse: malformed cast instruction %q", line)
		}
		dst, err := decodeVariableToken(dstTok)
		if err != nil {
			return nil, err
		}
		src, err := decodeOperandToken(fields[1])
		if err != nil {
			return nil, err
		}
		from, ok := types.Lookup(strings.TrimPrefix(fields[3], "@"))
		if !ok {
			return nil, fmt.Errorf("ilparse: unknown cast source type in %q", line)
		}
		return &Cast{Dst: dst, Src: src, From: from}, nil

	case "call":
		dst, err := decodeVariableToken(dstTok)
		if err != nil {
			return nil, err
		}
		callRE := regexp.MustCompile(`^call (\w+)\((.*)\)$`)
		cm := callRE.FindStringSubmatch(rhs)
		if cm == nil {
			return nil, fmt.Errorf("ilparse: malformed call instruction %q", line)
		}
		var args []Operand
		if strings.TrimSpace(cm[2]) != "" {
			for _, tok := range strings.Split(cm[2], ", ") {
				arg, err := decodeOperandToken(strings.TrimSpace(tok))
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
			}
		}
		return &Call{Dst: dst, Name: cm[1], Args: args}, nil

	case "phi":
		dst, err := decodeVariableToken(dstTok)
		if err != nil {
			return nil, err
		}
		edgeRE := regexp.MustCompile(`\[(\w+): ([^\]]+)\]`)
		var incoming []PhiEdge
		for _, em := range edgeRE.FindAllStringSubmatch(rhs, -1) {
			pred, ok := blocks[em[1]]
			if !ok {
				return nil, fmt.Errorf("ilparse: phi refers to unknown block %q", em[1])
			}
			val, err := decodeVariableToken(em[2])
			if err != nil {
				return nil, err
			}
			incoming = append(incoming, PhiEdge{Pred: pred, Value: val})
		}
		return &Phi{Dst: dst, Incoming: incoming}, nil

	default:
		if len(fields) == 3 {
			dst, err := decodeVariableToken(dstTok)
			if err != nil {
				return nil, err
			}
			left, err := decodeOperandToken(fields[0])
			if err != nil {
				return nil, err
			}
			right, err := decodeOperandToken(fields[2])
			if err != nil {
				return nil, err
			}
			op, ok := decodeBinaryOp(fields[1])
			if !ok {
				return nil, fmt.Errorf("ilparse: unknown binary operator %q in %q", fields[1], line)
			}
			return &Binary{Dst: dst, Op: op, Left: left, Right: right, OpType: left.OperandType()}, nil
		}

		if len(fields) == 1 {
			dst, err := decodeVariableToken(dstTok)
			if err != nil {
				return nil, err
			}
			if isLiteralToken(tokenValue(fields[0])) {
				imm, err := decodeOperandToken(fields[0])
				if err != nil {
					return nil, err
				}
				return &Constant{Dst: dst, Imm: imm.(Immediate)}, nil
			}
			src, err := decodeOperandToken(fields[0])
			if err != nil {
				return nil, err
			}
			return &Assign{Dst: dst, Src: src}, nil
		}

		return nil, fmt.Errorf("ilparse: unrecognized right-hand side %q", rhs)
	}
}

func decodeBinaryOp(tok string) (BinaryOp, bool) {
	switch tok {
	case "+":
		return Add, true
	case "-":
		return Sub, true
	case "*":
		return Mul, true
	case "/":
		return Div, true
	case ">":
		return GreaterThan, true
	case "<":
		return LessThan, true
	default:
		return 0, false
	}
}

// tokenValue strips a trailing "@type" suffix, if any, leaving the bare
// value text.
func tokenValue(tok string) string {
	if idx := strings.LastIndex(tok, "@"); idx >= 0 {
		return tok[:idx]
	}
	return tok
}

// decodeOperandToken decodes a "value@type" token into an Immediate or a
// Variable, chosen by the shape of value: numeric literals and the bare
// words "true"/"false" are Immediates, everything else is a Variable.
func decodeOperandToken(tok string) (Operand, error) {
	idx := strings.LastIndex(tok, "@")
	if idx < 0 {
		return nil, fmt.Errorf("ilparse: operand %q missing type suffix", tok)
	}
	valStr, typStr := tok[:idx], tok[idx+1:]
	t, ok := types.Lookup(typStr)
	if !ok {
		return nil, fmt.Errorf("ilparse: unknown type %q in operand %q", typStr, tok)
	}
	if isLiteralToken(valStr) {
		return decodeImmediate(valStr, t), nil
	}
	name, version := splitVersion(valStr)
	return Variable{Name: name, Type: t, Version: version}, nil
}

func decodeVariableToken(tok string) (Variable, error) {
	op, err := decodeOperandToken(tok)
	if err != nil {
		return Variable{}, err
	}
	v, ok := op.(Variable)
	if !ok {
		return Variable{}, fmt.Errorf("ilparse: expected a variable, got immediate %q", tok)
	}
	return v, nil
}

func decodeMemoryToken(tok string) (Memory, error) {
	idx := strings.LastIndex(tok, "@")
	if idx < 0 {
		return Memory{}, fmt.Errorf("ilparse: memory operand %q missing type suffix", tok)
	}
	valStr, typStr := tok[:idx], tok[idx+1:]
	t, ok := types.Lookup(typStr)
	if !ok {
		return Memory{}, fmt.Errorf("ilparse: unknown type %q in operand %q", typStr, tok)
	}
	return Memory{Name: valStr, Type: t}, nil
}

// splitVersion inverts Variable.String()'s "Name.Version" suffix. A
// Version-0 variable whose slot-derived Name itself ends in ".N" (possible
// for a promoted local read along a path that never assigned it) prints
// identically to a nonzero-version variable and will round-trip with the
// suffix reattributed to Version; this is a known gap in the text format,
// not a correctness issue for the allocator or optimizer, which never go
// through this text encoding.
func splitVersion(tok string) (name string, version int) {
	idx := strings.LastIndex(tok, ".")
	if idx < 0 {
		return tok, 0
	}
	n, err := strconv.Atoi(tok[idx+1:])
	if err != nil {
		return tok, 0
	}
	return tok[:idx], n
}

func isLiteralToken(s string) bool {
	if s == "true" || s == "false" {
		return true
	}
	if s == "" {
		return false
	}
	i := 0
	if s[0] == '-' {
		i = 1
	}
	if i >= len(s) {
		return false
	}
	seenDigit := false
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.':
			// allowed as a float separator
		default:
			return false
		}
	}
	return seenDigit
}

func decodeImmediate(valStr string, t types.Type) Immediate {
	switch t.Kind {
	case types.Boolean:
		return NewBool(valStr == "true")
	case types.Floating:
		f, _ := strconv.ParseFloat(valStr, 64)
		return NewFloat(t, f)
	default:
		if t.Signed {
			n, _ := strconv.ParseInt(valStr, 10, 64)
			return NewInt(t, n)
		}
		n, _ := strconv.ParseUint(valStr, 10, 64)
		return NewUint(t, n)
	}
}
