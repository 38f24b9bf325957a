package grammar

import (
	"github.com/alecthomas/participle/v2"
)

// NewParser builds the participle parser for Program, mirroring the
// teacher's main.go: a stateful lexer, whitespace elision, and lookahead
// deep enough to disambiguate `ident @ type =` (LetStmt) from `ident =`
// (AssignStmt) and `ident` from `ident (`  (CallExpr) without backtracking
// blowing up.
func NewParser() (*participle.Parser[Program], error) {
	return participle.Build[Program](
		participle.Lexer(ArkoiLexer),
		participle.Elide("Whitespace", "Comment", "DocComment"),
		participle.UseLookahead(4),
	)
}

// Parse parses a named source string into a raw Program parse tree.
func Parse(filename, source string) (*Program, error) {
	parser, err := NewParser()
	if err != nil {
		return nil, err
	}
	return parser.ParseString(filename, source)
}
