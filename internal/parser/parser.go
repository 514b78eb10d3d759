package parser

import (
	"fmt"
	"os"

	"github.com/alecthomas/participle/v2"

	"saby/internal/ast"
	"saby/internal/lexer"
)

var parser = buildParser()

func buildParser() *participle.Parser[Program] {
	p, err := participle.Build[Program](
		participle.Lexer(lexer.SabyLexer),
		participle.Elide("Whitespace", "Comment", "DocComment"),
		// CallExpr vs a bare Ident both start with @Ident; lookahead lets
		// the parser see the "(" before committing, same reason the
		// teacher's grammar parser carries UseLookahead(3).
		participle.UseLookahead(3),
	)
	if err != nil {
		panic(fmt.Errorf("failed to build parser: %w", err))
	}
	return p
}

// ParseFile reads path and parses it into the §6 AST contract.
func ParseFile(path string) ([]ast.Node, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSource(path, string(source))
}

// ParseSource parses source (named sourceName for diagnostics) into the
// top-level node list BuildProgram and the analyzer both expect.
func ParseSource(sourceName string, source string) ([]ast.Node, error) {
	prog, err := parser.ParseString(sourceName, source)
	if err != nil {
		return nil, err
	}
	return lowerProgram(prog), nil
}
