package parser

import "github.com/alecthomas/participle/v2/lexer"

// The types below are participle's struct-tag grammar for Saby: the
// contract-only scanner/parser surface of §1/§6. Binary expressions stay a
// flat Left + []BinOp list, same as the teacher's grammar package; turning
// that list into a precedence tree is lower.go's job, not the grammar's.

type Program struct {
	Pos   lexer.Position
	Items []*TopLevel `@@*`
}

type TopLevel struct {
	Pos      lexer.Position
	External *External    `  @@`
	Function *Function    `| @@`
	VarDecl  *VarDeclStmt `| @@`
	Asm      *AsmStmt     `| @@`
}

// External is `import a, b;`, `export a, b;`, or `export *;`.
type External struct {
	Pos  lexer.Position
	Kind string   `@("import" | "export")`
	Libs []string `@(Ident | "*") { "," @(Ident | "*") } ";"`
}

type Function struct {
	Pos    lexer.Position
	Name   string   `"function" @Ident "("`
	Params []*Param `[ @@ { "," @@ } ] ")"`
	Return *string  `[ ":" @("number" | "float" | "string" | "list" | "void" | "var" | "function") ]`
	Body   *Block   `@@`
}

type Param struct {
	Type string `@("number" | "float" | "string" | "list" | "void" | "var" | "function")`
	Name string `@Ident`
}

type Block struct {
	Pos   lexer.Position
	Stmts []*Stmt `"{" @@* "}"`
}

type Stmt struct {
	Pos      lexer.Position
	VarDecl  *VarDeclStmt `  @@`
	If       *IfStmt      `| @@`
	While    *WhileStmt   `| @@`
	Ctrl     *CtrlStmt    `| @@`
	Asm      *AsmStmt     `| @@`
	Nested   *Block       `| @@`
	ExprStmt *ExprStmt    `| @@`
}

type VarDeclStmt struct {
	Pos  lexer.Position
	Type string     `@("number" | "float" | "string" | "list" | "void" | "var" | "function")`
	Defs []*VarDef  `@@ { "," @@ } ";"`
}

type VarDef struct {
	Name string `@Ident "="`
	Init *Expr  `@@`
}

type IfStmt struct {
	Pos  lexer.Position
	Cond *Expr       `"if" "(" @@ ")"`
	Then *Block      `@@`
	Else *ElseClause `[ "else" @@ ]`
}

type ElseClause struct {
	If    *IfStmt `  @@`
	Block *Block  `| @@`
}

type WhileStmt struct {
	Pos  lexer.Position
	Cond *Expr  `"while" "(" @@ ")"`
	Body *Block `@@`
}

// CtrlStmt is `return [expr];`, `break;`, or `continue;`. The grammar
// accepts an optional value after any of the three; lowerCtrl keeps it
// only for "return" and drops it for break/continue.
type CtrlStmt struct {
	Pos   lexer.Position
	Kind  string `@("return" | "break" | "continue")`
	Value *Expr  `[ @@ ] ";"`
}

type AsmStmt struct {
	Pos  lexer.Position
	Text string `"asm" @String ";"`
}

type ExprStmt struct {
	Pos  lexer.Position
	Expr *Expr `@@ ";"`
}

// Expr is a flat operand/operator list; lower.go climbs it into an
// ast.Binary tree by precedence, the same split the teacher's
// grammar.go/parser_pratt.go pair uses.
type Expr struct {
	Left *UnaryExpr `@@`
	Ops  []*BinOp   `{ @@ }`
}

type BinOp struct {
	Operator string     `@("**=" | "<<=" | ">>=" | "&=" | "|=" | "^=" | "+=" | "-=" | "*=" | "/=" | "%=" | "==" | "!=" | "<=" | ">=" | "**" | "<<" | ">>" | "=" | "<" | ">" | "+" | "-" | "*" | "/" | "%" | "&" | "|" | "^")`
	Right    *UnaryExpr `@@`
}

type UnaryExpr struct {
	Pos     lexer.Position
	Prefix  string       `[ @("-" | "~" | "++" | "--") ]`
	Operand *PostfixExpr `@@`
}

type PostfixExpr struct {
	Primary *PrimaryExpr `@@`
	Postfix *string      `[ @("++" | "--") ]`
}

type PrimaryExpr struct {
	Pos     lexer.Position
	Call    *CallExpr `  @@`
	Number  *string   `| @Number`
	Decimal *string   `| @Decimal`
	Str     *string   `| @String`
	Ident   *string   `| @Ident`
	Paren   *Expr     `| "(" @@ ")"`
}

type CallExpr struct {
	Pos    lexer.Position
	Callee string  `@Ident "("`
	Args   []*Expr `[ @@ { "," @@ } ] ")"`
}
