// Package grammar holds the participle struct-tag grammar for Arkoi's
// source language, in the same declarative style as the teacher's
// grammar/grammar.go. It produces an untyped parse tree; internal/sem
// walks it to build the resolved, typed internal/ast.Program that the IR
// builder (spec.md §6's external interface) requires.
package grammar

import "github.com/alecthomas/participle/v2/lexer"

type Program struct {
	Pos       lexer.Position
	Functions []*Function `@@*`
}

type Function struct {
	Pos        lexer.Position
	Name       string       `"fun" @Ident`
	Params     []*Param     `"(" [ @@ { "," @@ } ] ")"`
	ReturnType string       `"@" @Ident`
	Body       []*Stmt      `":" @@ { ";" @@ } [ ";" ]`
}

type Param struct {
	Pos  lexer.Position
	Name string `@Ident`
	Type string `"@" @Ident`
}

type Stmt struct {
	Pos    lexer.Position
	Let    *LetStmt    `(  @@`
	Assign *AssignStmt ` | @@`
	If     *IfStmt     ` | @@`
	While  *WhileStmt  ` | @@`
	Return *ReturnStmt ` | @@`
	Block  *BlockStmt  ` | @@`
	Expr   *ExprStmt   ` | @@ )`
}

// BlockStmt lets an if/while arm hold more than one statement, braced.
type BlockStmt struct {
	Stmts []*Stmt `"{" @@ { ";" @@ } [ ";" ] "}"`
}

type LetStmt struct {
	Name  string `@Ident "@"`
	Type  string `@Ident "="`
	Value *Expr  `@@`
}

type AssignStmt struct {
	Name  string `@Ident "="`
	Value *Expr  `@@`
}

type IfStmt struct {
	Cond *Expr `"if" @@`
	Then *Stmt `"then" @@`
	Else *Stmt `[ "else" @@ ]`
}

type WhileStmt struct {
	Cond *Expr `"while" @@`
	Body *Stmt `"do" @@`
}

type ReturnStmt struct {
	Value *Expr `"return" @@`
}

type ExprStmt struct {
	Value *Expr `@@`
}

// ---- Expressions, by precedence (lowest to highest):
// comparison < additive < multiplicative < cast < primary ----

type Expr struct {
	Comparison *Comparison `@@`
}

type Comparison struct {
	Left  *Additive `@@`
	Op    string    `[ @( "<" | ">" )`
	Right *Additive `  @@ ]`
}

type Additive struct {
	Left  *Multiplicative   `@@`
	Rest  []*AdditiveRHS    `@@*`
}

type AdditiveRHS struct {
	Op    string          `@( "+" | "-" )`
	Right *Multiplicative `@@`
}

type Multiplicative struct {
	Left *CastExpr             `@@`
	Rest []*MultiplicativeRHS `@@*`
}

type MultiplicativeRHS struct {
	Op    string   `@( "*" | "/" )`
	Right *CastExpr `@@`
}

type CastExpr struct {
	Pos     lexer.Position
	Primary *Primary `@@`
	CastTo  string   `[ "as" "@" @Ident ]`
}

type Primary struct {
	Pos     lexer.Position
	Float   *float64 `(  @Float`
	Int     *int64   ` | @Integer`
	Bool    *string  ` | @( "true" | "false" )`
	Call    *CallExpr ` | @@`
	Ident   *string  ` | @Ident`
	Paren   *Expr    ` | "(" @@ ")" )`
}

type CallExpr struct {
	Name string  `@Ident "("`
	Args []*Expr `[ @@ { "," @@ } ] ")"`
}
