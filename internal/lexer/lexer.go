// Package lexer supplies the stateful token rules the parser's grammar is
// built against (§1, §6: peripheral scanner plumbing). It mirrors the
// teacher's participle-based lexer rather than a bespoke regex table, so the
// grammar package's struct tags can match literal keywords against Ident
// tokens the same way the teacher's grammar does.
package lexer

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SabyLexer tokenizes Saby source. Rule order matters: Decimal must precede
// Number (otherwise "1.5" scans as Number("1") then stray "."), and within
// Operator the longest operators must be tried before their prefixes.
var SabyLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"DocComment", `///[^\n]*`, nil},
		{"Comment", `//[^\n]*`, nil},
		{"Decimal", `[0-9]+\.[0-9]+`, nil},
		{"Number", `0x[0-9a-fA-F]+|[0-9]+`, nil},
		{"String", `"(\\.|[^"\\])*"`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Operator", `\*\*=|<<=|>>=|&=|\|=|\^=|\+=|-=|\*=|/=|%=|==|!=|<=|>=|\+\+|--|\*\*|<<|>>|[-+*/%&|^~<>=]`, nil},
		{"Punctuation", `[{}()\[\],;:.]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
