package textio

import "github.com/alecthomas/participle/v2/lexer"

// IRLexer tokenizes the canonical text IR format of spec.md §6.2. It is
// grounded directly on grammar.KansoLexer's stateful-rule style from the
// teacher, narrowed to the tokens Baa's text IR actually needs.
var IRLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `;;[^\n]*`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"StrRef", `\.Lstr_[0-9]+`, nil},
		{"Arrow", `->`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Int", `[0-9]+`, nil},
		{"Punct", `[%@.,:;(){}\[\]=<>\-]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
