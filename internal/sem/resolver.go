// Package sem performs name and type resolution, turning the participle
// parse tree in package grammar into the typed, Symbol-resolved
// internal/ast.Program that spec.md §6 names as the IR builder's external
// contract. Grounded on the teacher's internal/semantic (symbols.go,
// context.go: a SymbolTable-per-scope walk over an untyped tree) and on
// original_source's sem/name_resolver.hpp + sem/type_resolver.hpp, which
// this package compresses into a single pass since the source language has
// no overloads and no implicit coercions beyond an explicit "as @type" cast.
package sem

import (
	"github.com/alecthomas/participle/v2/lexer"

	"arkoi/grammar"
	"arkoi/internal/ast"
	"arkoi/internal/diagnostics"
	"arkoi/internal/types"
)

// funcSig is the resolver's own bookkeeping for a function prototype,
// registered in a first pass so calls may forward-reference functions
// declared later in the file (original_source's name_resolver does the same
// via visit_as_prototype).
type funcSig struct {
	paramTypes []types.Type
	returnType types.Type
	symbol     *ast.Symbol
}

// Resolver walks one compilation unit. Use Resolve rather than constructing
// one directly.
type Resolver struct {
	diags     *diagnostics.Collector
	funcs     map[string]*funcSig
	global    *scope
	currentFn *funcSig
}

// Resolve name- and type-resolves prog, returning the typed AST and the
// diagnostics collected along the way. Callers must check
// diags.HasErrors() before handing the result to ir.Build: a program with
// resolution errors may contain nil Symbols and stray fallback types.
func Resolve(prog *grammar.Program, filename, source string) (*ast.Program, *diagnostics.Collector) {
	r := &Resolver{
		diags:  diagnostics.NewCollector(filename, source),
		funcs:  make(map[string]*funcSig),
		global: newScope(nil),
	}

	for _, fn := range prog.Functions {
		r.registerPrototype(fn)
	}

	out := &ast.Program{}
	for _, fn := range prog.Functions {
		out.Functions = append(out.Functions, r.resolveFunction(fn))
	}
	return out, r.diags
}

func toPos(p lexer.Position) ast.Position {
	return ast.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

func toDiagPos(p ast.Position) diagnostics.Position {
	return diagnostics.Position{Filename: p.Filename, Line: p.Line, Column: p.Column}
}

func (r *Resolver) errorf(pos ast.Position, format string, args ...interface{}) {
	r.diags.Report(diagnostics.Error, toDiagPos(pos), format, args...)
}

func (r *Resolver) lookupType(pos ast.Position, name string) types.Type {
	t, ok := types.Lookup(name)
	if !ok {
		r.errorf(pos, "unknown type %q", name)
		return types.S32
	}
	return t
}

func (r *Resolver) registerPrototype(fn *grammar.Function) {
	if _, exists := r.funcs[fn.Name]; exists {
		r.errorf(toPos(fn.Pos), "function %q redeclared", fn.Name)
		return
	}

	returnType := r.lookupType(toPos(fn.Pos), fn.ReturnType)
	paramTypes := make([]types.Type, len(fn.Params))
	for i, p := range fn.Params {
		paramTypes[i] = r.lookupType(toPos(p.Pos), p.Type)
	}

	sym := &ast.Symbol{Name: fn.Name, Type: returnType, Kind: ast.SymFunction}
	r.funcs[fn.Name] = &funcSig{paramTypes: paramTypes, returnType: returnType, symbol: sym}
	r.global.define(sym)
}

func (r *Resolver) resolveFunction(fn *grammar.Function) *ast.Function {
	sig := r.funcs[fn.Name]
	if sig == nil {
		// registerPrototype already reported the redeclaration; fall back
		// to a throwaway signature so the body can still be walked for
		// further diagnostics.
		sig = &funcSig{returnType: types.S32, symbol: &ast.Symbol{Name: fn.Name, Kind: ast.SymFunction}}
	}
	prevFn := r.currentFn
	r.currentFn = sig
	defer func() { r.currentFn = prevFn }()

	fnScope := newScope(r.global)
	params := make([]*ast.Param, len(fn.Params))
	for i, p := range fn.Params {
		t := types.S32
		if i < len(sig.paramTypes) {
			t = sig.paramTypes[i]
		}
		psym := &ast.Symbol{Name: p.Name, Type: t, Kind: ast.SymParameter}
		fnScope.define(psym)
		params[i] = &ast.Param{Pos: toPos(p.Pos), Name: p.Name, Type: t, Symbol: psym}
	}

	body := r.resolveStmts(fn.Body, fnScope)
	return &ast.Function{Pos: toPos(fn.Pos), Name: fn.Name, Params: params, ReturnType: sig.returnType, Body: body, Symbol: sig.symbol}
}

// resolveStmts resolves a statement list, flattening every grammar.BlockStmt
// (the only way the grammar lets an if/while arm hold more than one
// statement) into the flat []ast.Stmt shape internal/ast.IfStmt/WhileStmt
// expect.
func (r *Resolver) resolveStmts(stmts []*grammar.Stmt, sc *scope) []ast.Stmt {
	var out []ast.Stmt
	for _, s := range stmts {
		out = append(out, r.resolveStmt(s, sc)...)
	}
	return out
}

// resolveArm resolves a single if/while arm, which the grammar represents
// as one *grammar.Stmt — either a bare statement or a braced BlockStmt —
// always within its own child scope so a Let inside the arm doesn't leak
// past it.
func (r *Resolver) resolveArm(s *grammar.Stmt, parent *scope) []ast.Stmt {
	armScope := newScope(parent)
	if s.Block != nil {
		return r.resolveStmts(s.Block.Stmts, armScope)
	}
	return r.resolveStmt(s, armScope)
}

func (r *Resolver) resolveStmt(s *grammar.Stmt, sc *scope) []ast.Stmt {
	switch {
	case s.Let != nil:
		return []ast.Stmt{r.resolveLet(toPos(s.Pos), s.Let, sc)}
	case s.Assign != nil:
		return []ast.Stmt{r.resolveAssign(toPos(s.Pos), s.Assign, sc)}
	case s.If != nil:
		return []ast.Stmt{r.resolveIf(toPos(s.Pos), s.If, sc)}
	case s.While != nil:
		return []ast.Stmt{r.resolveWhile(toPos(s.Pos), s.While, sc)}
	case s.Return != nil:
		return []ast.Stmt{r.resolveReturn(toPos(s.Pos), s.Return, sc)}
	case s.Block != nil:
		return r.resolveStmts(s.Block.Stmts, newScope(sc))
	case s.Expr != nil:
		return []ast.Stmt{&ast.ExprStmt{Pos: toPos(s.Pos), Value: r.resolveExpr(s.Expr.Value, sc)}}
	default:
		r.errorf(toPos(s.Pos), "empty statement")
		return nil
	}
}

func (r *Resolver) resolveLet(pos ast.Position, let *grammar.LetStmt, sc *scope) ast.Stmt {
	declType := r.lookupType(pos, let.Type)
	value := r.resolveExpr(let.Value, sc)
	if !value.Type().Equal(declType) {
		r.errorf(pos, "cannot initialize %q of type %s with value of type %s", let.Name, declType, value.Type())
	}
	if sc.lookupLocal(let.Name) != nil {
		r.errorf(pos, "%q redeclared in this scope", let.Name)
	}

	sym := &ast.Symbol{Name: let.Name, Type: declType, Kind: ast.SymVariable}
	sc.define(sym)
	return &ast.LetStmt{Pos: pos, Name: let.Name, Type: declType, Value: value, Symbol: sym}
}

func (r *Resolver) resolveAssign(pos ast.Position, as *grammar.AssignStmt, sc *scope) ast.Stmt {
	sym := sc.lookup(as.Name)
	value := r.resolveExpr(as.Value, sc)

	switch {
	case sym == nil:
		r.errorf(pos, "undefined variable %q", as.Name)
	case sym.Kind == ast.SymFunction:
		r.errorf(pos, "%q is a function, not a variable", as.Name)
	default:
		sym.Mutable = true
		if !value.Type().Equal(sym.Type) {
			r.errorf(pos, "cannot assign value of type %s to %q of type %s", value.Type(), as.Name, sym.Type)
		}
	}
	return &ast.AssignStmt{Pos: pos, Name: as.Name, Value: value, Symbol: sym}
}

func (r *Resolver) resolveIf(pos ast.Position, is *grammar.IfStmt, sc *scope) ast.Stmt {
	cond := r.resolveExpr(is.Cond, sc)
	if !cond.Type().Equal(types.Bool) {
		r.errorf(pos, "if condition must be bool, got %s", cond.Type())
	}

	thenArm := r.resolveArm(is.Then, sc)
	var elseArm []ast.Stmt
	if is.Else != nil {
		elseArm = r.resolveArm(is.Else, sc)
	}
	return &ast.IfStmt{Pos: pos, Cond: cond, ThenArm: thenArm, ElseArm: elseArm}
}

func (r *Resolver) resolveWhile(pos ast.Position, ws *grammar.WhileStmt, sc *scope) ast.Stmt {
	cond := r.resolveExpr(ws.Cond, sc)
	if !cond.Type().Equal(types.Bool) {
		r.errorf(pos, "while condition must be bool, got %s", cond.Type())
	}
	body := r.resolveArm(ws.Body, sc)
	return &ast.WhileStmt{Pos: pos, Cond: cond, Body: body}
}

func (r *Resolver) resolveReturn(pos ast.Position, rs *grammar.ReturnStmt, sc *scope) ast.Stmt {
	value := r.resolveExpr(rs.Value, sc)
	if r.currentFn != nil && !value.Type().Equal(r.currentFn.returnType) {
		r.errorf(pos, "return type mismatch: function returns %s, got %s", r.currentFn.returnType, value.Type())
	}
	return &ast.ReturnStmt{Pos: pos, Value: value}
}

// ---- Expressions ----

func (r *Resolver) resolveExpr(e *grammar.Expr, sc *scope) ast.Expr {
	return r.resolveComparison(e.Comparison, sc)
}

func (r *Resolver) resolveComparison(c *grammar.Comparison, sc *scope) ast.Expr {
	left := r.resolveAdditive(c.Left, sc)
	if c.Op == "" {
		return left
	}
	right := r.resolveAdditive(c.Right, sc)
	if !left.Type().Equal(right.Type()) {
		r.errorf(left.NodePos(), "comparison operands have mismatched types %s and %s", left.Type(), right.Type())
	}
	op := ast.OpLess
	if c.Op == ">" {
		op = ast.OpGreater
	}
	bin := &ast.Binary{Op: op, Left: left, Right: right}
	bin.Pos = left.NodePos()
	bin.SetType(types.Bool)
	return bin
}

func (r *Resolver) resolveAdditive(a *grammar.Additive, sc *scope) ast.Expr {
	left := r.resolveMultiplicative(a.Left, sc)
	for _, rhs := range a.Rest {
		right := r.resolveMultiplicative(rhs.Right, sc)
		if !left.Type().Equal(right.Type()) {
			r.errorf(left.NodePos(), "arithmetic operands have mismatched types %s and %s", left.Type(), right.Type())
		}
		op := ast.OpAdd
		if rhs.Op == "-" {
			op = ast.OpSub
		}
		bin := &ast.Binary{Op: op, Left: left, Right: right}
		bin.Pos = left.NodePos()
		bin.SetType(left.Type())
		left = bin
	}
	return left
}

func (r *Resolver) resolveMultiplicative(m *grammar.Multiplicative, sc *scope) ast.Expr {
	left := r.resolveCast(m.Left, sc)
	for _, rhs := range m.Rest {
		right := r.resolveCast(rhs.Right, sc)
		if !left.Type().Equal(right.Type()) {
			r.errorf(left.NodePos(), "arithmetic operands have mismatched types %s and %s", left.Type(), right.Type())
		}
		op := ast.OpMul
		if rhs.Op == "/" {
			op = ast.OpDiv
		}
		bin := &ast.Binary{Op: op, Left: left, Right: right}
		bin.Pos = left.NodePos()
		bin.SetType(left.Type())
		left = bin
	}
	return left
}

func (r *Resolver) resolveCast(c *grammar.CastExpr, sc *scope) ast.Expr {
	value := r.resolvePrimary(c.Primary, sc)
	if c.CastTo == "" {
		return value
	}
	target := r.lookupType(toPos(c.Pos), c.CastTo)
	cast := &ast.Cast{Value: value, From: value.Type()}
	cast.Pos = toPos(c.Pos)
	cast.SetType(target)
	return cast
}

func (r *Resolver) resolvePrimary(p *grammar.Primary, sc *scope) ast.Expr {
	pos := toPos(p.Pos)
	switch {
	case p.Float != nil:
		lit := &ast.FloatLiteral{Value: *p.Float}
		lit.Pos = pos
		lit.SetType(types.F64)
		return lit

	case p.Int != nil:
		lit := &ast.IntLiteral{Value: *p.Int}
		lit.Pos = pos
		lit.SetType(types.S32)
		return lit

	case p.Bool != nil:
		lit := &ast.BoolLiteral{Value: *p.Bool == "true"}
		lit.Pos = pos
		lit.SetType(types.Bool)
		return lit

	case p.Call != nil:
		return r.resolveCall(toPos(p.Pos), p.Call, sc)

	case p.Ident != nil:
		sym := sc.lookup(*p.Ident)
		ident := &ast.Ident{Name: *p.Ident, Symbol: sym}
		ident.Pos = pos
		if sym == nil {
			r.errorf(pos, "undefined variable %q", *p.Ident)
			ident.SetType(types.S32)
		} else {
			ident.SetType(sym.Type)
		}
		return ident

	case p.Paren != nil:
		return r.resolveExpr(p.Paren, sc)

	default:
		r.errorf(pos, "empty expression")
		lit := &ast.IntLiteral{Value: 0}
		lit.Pos = pos
		lit.SetType(types.S32)
		return lit
	}
}

func (r *Resolver) resolveCall(pos ast.Position, c *grammar.CallExpr, sc *scope) ast.Expr {
	args := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		args[i] = r.resolveExpr(a, sc)
	}

	sig, ok := r.funcs[c.Name]
	if !ok {
		r.errorf(pos, "call to undefined function %q", c.Name)
		call := &ast.Call{Name: c.Name, Args: args}
		call.Pos = pos
		call.SetType(types.S32)
		return call
	}

	if len(args) != len(sig.paramTypes) {
		r.errorf(pos, "%q expects %d argument(s), got %d", c.Name, len(sig.paramTypes), len(args))
	}
	for i, a := range args {
		if i >= len(sig.paramTypes) {
			break
		}
		if !a.Type().Equal(sig.paramTypes[i]) {
			r.errorf(pos, "argument %d to %q has type %s, want %s", i+1, c.Name, a.Type(), sig.paramTypes[i])
		}
	}

	call := &ast.Call{Name: c.Name, Args: args, Callee: sig.symbol}
	call.Pos = pos
	call.SetType(sig.returnType)
	return call
}
