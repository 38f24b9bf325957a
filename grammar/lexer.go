package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// ArkoiLexer tokenizes the small source language of spec.md §6: functions,
// scalar locals, if/while, return, arithmetic, comparisons, calls, casts.
// Modeled directly on the teacher's stateful lexer (grammar/lexer.go),
// trimmed to the tokens this language's surface actually needs.
var ArkoiLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"DocComment", `///[^\n]*`, nil},
		{"Comment", `//[^\n]*`, nil},

		// Floats must be matched before Integer so "2.5" isn't split.
		{"Float", `[0-9]+\.[0-9]+`, nil},
		{"Integer", `0x[0-9a-fA-F]+|[0-9]+`, nil},

		// Keywords must be matched before Ident so they never lex as names.
		{"Keyword", `(fun|if|then|else|while|do|return|as|true|false)\b`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		{"Operator", `(==|!=|<=|>=|[-+*/<>=])`, nil},
		{"Punctuation", `[(){},:;@]`, nil},

		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
