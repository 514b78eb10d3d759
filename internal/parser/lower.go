package parser

import (
	"strconv"
	"strings"

	plexer "github.com/alecthomas/participle/v2/lexer"

	"saby/internal/ast"
	"saby/internal/types"
)

// lower.go turns the flat grammar tree into the §6 AST contract C5/C6
// consume. The grammar keeps binary expressions as a flat operand/operator
// list (grammar.go); climbExpr below is the hand-written precedence climb
// that shapes it into an ast.Binary tree, mirroring the split between the
// teacher's struct-tag grammar and its separate parser_pratt.go.

func pos(p plexer.Position) ast.Position {
	return ast.Position{Line: p.Line, Column: p.Column}
}

var declTypes = map[string]types.Value{
	"number":   types.Number,
	"float":    types.Float,
	"string":   types.String,
	"list":     types.List,
	"void":     types.Void,
	"var":      types.Var,
	"function": types.Function,
}

func lowerProgram(prog *Program) []ast.Node {
	var nodes []ast.Node
	for _, item := range prog.Items {
		switch {
		case item.External != nil:
			nodes = append(nodes, lowerExternal(item.External))
		case item.Function != nil:
			nodes = append(nodes, lowerFunction(item.Function))
		case item.VarDecl != nil:
			nodes = append(nodes, lowerVarDecl(item.VarDecl))
		case item.Asm != nil:
			nodes = append(nodes, lowerAsm(item.Asm))
		}
	}
	return nodes
}

func lowerExternal(e *External) *ast.External {
	kind := ast.ExternImport
	if e.Kind == "export" {
		kind = ast.ExternExport
	}
	return &ast.External{Pos: pos(e.Pos), Kind: kind, Libs: e.Libs}
}

func lowerAsm(a *AsmStmt) *ast.Asm {
	return &ast.Asm{Pos: pos(a.Pos), Text: unquote(a.Text)}
}

func lowerFunction(f *Function) *ast.Function {
	args := make([]*ast.Ident, len(f.Params))
	for i, p := range f.Params {
		args[i] = &ast.Ident{Name: p.Name, ArgDecl: true, ArgType: declTypes[p.Type]}
	}
	ret := types.Void
	if f.Return != nil {
		ret = declTypes[*f.Return]
	}
	return &ast.Function{
		Pos:        pos(f.Pos),
		Name:       f.Name,
		Args:       args,
		ReturnType: ret,
		Body:       lowerBlock(f.Body),
	}
}

func lowerBlock(b *Block) *ast.Block {
	out := &ast.Block{Pos: pos(b.Pos)}
	for _, s := range b.Stmts {
		out.Stmts = append(out.Stmts, lowerStmt(s))
	}
	return out
}

func lowerStmt(s *Stmt) ast.Node {
	switch {
	case s.VarDecl != nil:
		return lowerVarDecl(s.VarDecl)
	case s.If != nil:
		return lowerIf(s.If)
	case s.While != nil:
		return lowerWhile(s.While)
	case s.Ctrl != nil:
		return lowerCtrl(s.Ctrl)
	case s.Asm != nil:
		return lowerAsm(s.Asm)
	case s.Nested != nil:
		return lowerBlock(s.Nested)
	default:
		return lowerExpr(s.ExprStmt.Expr)
	}
}

func lowerVarDecl(v *VarDeclStmt) *ast.Variable {
	out := &ast.Variable{Pos: pos(v.Pos), DeclType: declTypes[v.Type]}
	for _, d := range v.Defs {
		out.Defs = append(out.Defs, ast.VarDef{Name: d.Name, Init: lowerExpr(d.Init)})
	}
	return out
}

func lowerIf(i *IfStmt) *ast.If {
	out := &ast.If{Pos: pos(i.Pos), Cond: lowerExpr(i.Cond), Then: lowerBlock(i.Then)}
	if i.Else != nil {
		switch {
		case i.Else.If != nil:
			out.Else = lowerIf(i.Else.If)
		case i.Else.Block != nil:
			out.Else = lowerBlock(i.Else.Block)
		}
	}
	return out
}

func lowerWhile(w *WhileStmt) *ast.While {
	return &ast.While{Pos: pos(w.Pos), Cond: lowerExpr(w.Cond), Body: lowerBlock(w.Body)}
}

func lowerCtrl(c *CtrlStmt) *ast.ControlFlow {
	out := &ast.ControlFlow{Pos: pos(c.Pos)}
	switch c.Kind {
	case "return":
		out.Kind = ast.CtrlReturn
		if c.Value != nil {
			out.Value = lowerExpr(c.Value)
		}
	case "break":
		out.Kind = ast.CtrlBreak
	case "continue":
		out.Kind = ast.CtrlContinue
	}
	return out
}

// --- expressions ---

var binOps = map[string]ast.Op{
	"=": ast.OpAssign,
	"+=": ast.OpAddAssign, "-=": ast.OpSubAssign, "*=": ast.OpMulAssign,
	"/=": ast.OpDivAssign, "%=": ast.OpModAssign, "**=": ast.OpPowAssign,
	"&=": ast.OpAndAssign, "|=": ast.OpOrAssign, "^=": ast.OpXorAssign,
	"<<=": ast.OpShlAssign, ">>=": ast.OpShrAssign,
	"==": ast.OpEqual, "!=": ast.OpNotEqual,
	"<": ast.OpLess, "<=": ast.OpLessEq, ">": ast.OpGreater, ">=": ast.OpGreaterEq,
	"|": ast.OpOr, "^": ast.OpXor, "&": ast.OpAnd,
	"<<": ast.OpShl, ">>": ast.OpShr,
	"+": ast.OpAdd, "-": ast.OpSub,
	"*": ast.OpMul, "/": ast.OpDiv, "%": ast.OpMod,
	"**": ast.OpPow,
}

// precedence returns the binding power of a binary operator and whether it
// associates to the right, lowest (assignment) to highest (**).
func precedence(op string) (int, bool) {
	switch op {
	case "=", "+=", "-=", "*=", "/=", "%=", "**=", "&=", "|=", "^=", "<<=", ">>=":
		return 1, true
	case "==", "!=":
		return 2, false
	case "<", "<=", ">", ">=":
		return 3, false
	case "|":
		return 4, false
	case "^":
		return 5, false
	case "&":
		return 6, false
	case "<<", ">>":
		return 7, false
	case "+", "-":
		return 8, false
	case "*", "/", "%":
		return 9, false
	case "**":
		return 10, true
	default:
		return 0, false
	}
}

func lowerExpr(e *Expr) ast.Expr {
	left := lowerUnary(e.Left)
	idx := 0
	return climb(left, e.Ops, &idx, 0)
}

// climb is the standard precedence-climbing algorithm: ops is the flat
// right-hand operand list the grammar produced, idx tracks how far it's
// been consumed across recursive calls.
func climb(left ast.Expr, ops []*BinOp, idx *int, minPrec int) ast.Expr {
	for *idx < len(ops) {
		prec, _ := precedence(ops[*idx].Operator)
		if prec < minPrec {
			break
		}
		op := ops[*idx]
		opPrec, rightAssoc := precedence(op.Operator)
		*idx++
		right := lowerUnary(op.Right)

		for *idx < len(ops) {
			nextPrec, _ := precedence(ops[*idx].Operator)
			if nextPrec > opPrec || (rightAssoc && nextPrec == opPrec) {
				right = climb(right, ops, idx, nextPrec)
			} else {
				break
			}
		}

		left = &ast.Binary{Pos: left.NodePos(), Op: binOps[op.Operator], Left: left, Right: right}
	}
	return left
}

func lowerUnary(u *UnaryExpr) ast.Expr {
	operand := lowerPostfix(u.Operand)
	switch u.Prefix {
	case "-":
		return &ast.Unary{Pos: pos(u.Pos), Op: ast.OpSub, Operand: operand}
	case "~":
		return &ast.Unary{Pos: pos(u.Pos), Op: ast.OpNot, Operand: operand}
	case "++":
		return &ast.Unary{Pos: pos(u.Pos), Op: ast.OpInc, Operand: operand}
	case "--":
		return &ast.Unary{Pos: pos(u.Pos), Op: ast.OpDec, Operand: operand}
	default:
		return operand
	}
}

func lowerPostfix(p *PostfixExpr) ast.Expr {
	primary := lowerPrimary(p.Primary)
	if p.Postfix == nil {
		return primary
	}
	op := ast.OpInc
	if *p.Postfix == "--" {
		op = ast.OpDec
	}
	return &ast.Unary{Pos: primary.NodePos(), Op: op, Operand: primary}
}

var castOps = map[string]ast.Op{
	"number": ast.OpConvNum,
	"float":  ast.OpConvDec,
	"string": ast.OpConvStr,
}

func lowerPrimary(p *PrimaryExpr) ast.Expr {
	switch {
	case p.Call != nil:
		return lowerCall(p.Call)
	case p.Number != nil:
		return &ast.Number{Pos: pos(p.Pos), Value: parseInt(*p.Number)}
	case p.Decimal != nil:
		return &ast.Decimal{Pos: pos(p.Pos), Value: parseFloat(*p.Decimal)}
	case p.Str != nil:
		return &ast.String{Pos: pos(p.Pos), Value: unquote(*p.Str)}
	case p.Ident != nil:
		return &ast.Ident{Pos: pos(p.Pos), Name: *p.Ident}
	default: // Paren
		return lowerExpr(p.Paren)
	}
}

// lowerCall special-cases a call whose callee names a primitive type as a
// conversion cast (`number(x)`, `float(x)`, `string(x)`), per the unary
// Conv ops C5/C7 expect; every other callee lowers to a genuine Call.
func lowerCall(c *CallExpr) ast.Expr {
	if op, ok := castOps[c.Callee]; ok && len(c.Args) == 1 {
		return &ast.Unary{Pos: pos(c.Pos), Op: op, Operand: lowerExpr(c.Args[0])}
	}
	args := make([]ast.Expr, len(c.Args))
	for i, a := range c.Args {
		args[i] = lowerExpr(a)
	}
	return &ast.Call{
		Pos:    pos(c.Pos),
		Callee: &ast.Ident{Pos: pos(c.Pos), Name: c.Callee},
		Args:   args,
	}
}

// parseInt accepts both decimal and the lexer's "0x..." hex form.
func parseInt(s string) int64 {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, _ := strconv.ParseInt(s[2:], 16, 64)
		return v
	}
	v, _ := strconv.ParseInt(s, 10, 64)
	return v
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

// unquote strips the surrounding quotes and resolves backslash escapes the
// String token rule admits (`\"`, `\\`, and friends).
func unquote(s string) string {
	if v, err := strconv.Unquote(s); err == nil {
		return v
	}
	return strings.Trim(s, `"`)
}
