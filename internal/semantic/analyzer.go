package semantic

import (
	"saby/internal/ast"
	"saby/internal/errors"
	"saby/internal/types"
)

// Analyzer walks the AST post-order (C5), computing each node's TypeValue,
// enforcing Table T1, resolving identifiers through the Environment, and
// dispatching import/export directives to the symbol serializer.
type Analyzer struct {
	scope     *Scope
	reporter  *errors.Reporter
	hasReturn bool // whether the function currently being analyzed saw a return

	libPath string // directory beside the binary, absolute, trailing '/'
	symPath string // this module's own absolute .sym path
}

func NewAnalyzer(reporter *errors.Reporter, libPath, symPath string) *Analyzer {
	return &Analyzer{scope: NewRootScope(), reporter: reporter, libPath: libPath, symPath: symPath}
}

// Scope exposes the analyzer's current scope, mainly for tests.
func (a *Analyzer) Scope() *Scope { return a.scope }

func (a *Analyzer) errorf(pos ast.Position, ident, format string, args ...any) types.Value {
	a.reporter.Error(pos, ident, format, args...)
	return types.Error
}

// AnalyzeProgram runs the analyzer over every top-level node in order.
func (a *Analyzer) AnalyzeProgram(nodes []ast.Node) {
	for _, n := range nodes {
		a.AnalyzeNode(n)
	}
}

// AnalyzeNode dispatches a statement-level node, mirroring the teacher's
// switch-on-concrete-type idiom rather than a double-dispatch visitor.
func (a *Analyzer) AnalyzeNode(n ast.Node) types.Value {
	switch node := n.(type) {
	case *ast.Variable:
		return a.analyzeVariable(node)
	case *ast.Function:
		return a.analyzeFunction(node)
	case *ast.Block:
		return a.analyzeBlock(node)
	case *ast.If:
		return a.analyzeIf(node)
	case *ast.While:
		return a.analyzeWhile(node)
	case *ast.ControlFlow:
		return a.analyzeControlFlow(node)
	case *ast.External:
		return a.analyzeExternal(node)
	case *ast.Asm:
		node.SetEnv(a.scope)
		node.SetType(types.Void)
		return types.Void
	case ast.Expr:
		return a.AnalyzeExpr(node)
	default:
		return types.Void
	}
}

// AnalyzeExpr dispatches an expression-level node.
func (a *Analyzer) AnalyzeExpr(e ast.Expr) types.Value {
	switch node := e.(type) {
	case *ast.Ident:
		return a.analyzeIdent(node)
	case *ast.Number:
		node.SetEnv(a.scope)
		node.SetType(types.Number)
		return types.Number
	case *ast.Decimal:
		node.SetEnv(a.scope)
		node.SetType(types.Float)
		return types.Float
	case *ast.String:
		node.SetEnv(a.scope)
		node.SetType(types.String)
		return types.String
	case *ast.Binary:
		return a.analyzeBinary(node)
	case *ast.Unary:
		return a.analyzeUnary(node)
	case *ast.Call:
		return a.analyzeCall(node)
	default:
		return types.Error
	}
}

func (a *Analyzer) analyzeIdent(id *ast.Ident) types.Value {
	id.SetEnv(a.scope)
	if id.ArgDecl {
		// function argument list: bind it into the current (function-body)
		// scope at its declared type.
		a.scope.Insert(id.Name, id.ArgType)
		id.SetType(id.ArgType)
		return id.ArgType
	}
	// identifier reference
	t := a.scope.Lookup(id.Name, true)
	if t == types.Error {
		return a.errorf(id.Pos, id.Name, "has not been defined")
	}
	id.SetType(t)
	return t
}

func (a *Analyzer) analyzeVariable(v *ast.Variable) types.Value {
	v.SetEnv(a.scope)
	declType := v.DeclType
	deduced := false
	for i := range v.Defs {
		def := &v.Defs[i]
		if def.Name == "@" {
			return a.errorf(v.Pos, def.Name, "invalid variable name '@'")
		}
		if a.scope.Lookup(def.Name, false) != types.Error {
			return a.errorf(v.Pos, def.Name, "has already been defined")
		}
		initType := a.AnalyzeExpr(def.Init)
		if initType == types.Error {
			return types.Error
		}
		switch {
		case declType == types.Var && !deduced:
			if initType == types.Var || initType == types.Void {
				return a.errorf(v.Pos, def.Name,
					"cannot deduce the type of a expression with a uncertain type")
			}
			declType = initType
			deduced = true
		case types.IsFunction(initType) && declType == types.Function:
			declType = initType
		case initType != types.Var && initType != declType:
			return a.errorf(v.Pos, def.Name, "type mismatch when initializing a variable")
		}
		a.scope.Insert(def.Name, declType)
	}
	v.SetType(types.Void)
	return types.Void
}

func (a *Analyzer) analyzeBinary(b *ast.Binary) types.Value {
	b.SetEnv(a.scope)
	lType := a.AnalyzeExpr(b.Left)
	rType := a.AnalyzeExpr(b.Right)
	if lType == types.Error || rType == types.Error {
		return types.Error
	}

	op := b.Op
	if !op.IsBinary() {
		return a.errorf(b.Pos, "", "invalid binary operator")
	}
	if rType == types.Var && op == ast.OpAssign {
		rType = lType // implicit conversion of an uncertain type; unsafe but convenient
	} else if lType != rType {
		return a.errorf(b.Pos, "", "type mismatch between lhs and rhs")
	}
	if !a.checkType(op, lType) {
		return a.errorf(b.Pos, "", "invalid operand type in binary expression")
	}
	if (op == ast.OpAssign || ast.IsCompoundAssign(op)) && !isLvalue(b.Left) {
		return a.errorf(b.Pos, "", "assignment operator must be applied to lvalue")
	}

	var result types.Value
	switch op {
	case ast.OpLess, ast.OpLessEq, ast.OpGreater, ast.OpGreaterEq, ast.OpEqual, ast.OpNotEqual:
		result = types.Number
	default:
		result = lType
	}
	b.SetType(result)
	return result
}

func (a *Analyzer) analyzeUnary(u *ast.Unary) types.Value {
	u.SetEnv(a.scope)
	opType := a.AnalyzeExpr(u.Operand)
	if opType == types.Error {
		return types.Error
	}
	op := u.Op
	if op != ast.OpSub && op.IsBinary() {
		return a.errorf(u.Pos, "", "invalid unary operator")
	}
	if !a.checkType(op, opType) {
		return a.errorf(u.Pos, "", "invalid operand type in unary expression")
	}
	if (op == ast.OpInc || op == ast.OpDec) && !isLvalue(u.Operand) {
		return a.errorf(u.Pos, "", "inc/dec operator must be applied to lvalue")
	}

	var result types.Value
	switch op {
	case ast.OpConvNum:
		result = types.Number
	case ast.OpConvDec:
		result = types.Float
	case ast.OpConvStr:
		result = types.String
	default:
		result = opType
	}
	u.SetType(result)
	return result
}

func (a *Analyzer) analyzeCall(c *ast.Call) types.Value {
	c.SetEnv(a.scope)
	calleeType := a.AnalyzeExpr(c.Callee)
	if calleeType == types.Error {
		return types.Error
	}
	if !types.IsFunction(calleeType) && calleeType != types.Function && calleeType != types.Var {
		return a.errorf(c.Pos, "", "callee is not a function")
	}

	argTypes := make([]types.Value, len(c.Args))
	for i, arg := range c.Args {
		argTypes[i] = a.AnalyzeExpr(arg)
		if argTypes[i] == types.Error {
			return types.Error
		}
	}

	// Open question (documented in SPEC_FULL.md/DESIGN.md): calling through
	// an opaque `function`/Var callee is accepted silently; the result type
	// is Var and there is no static rejection.
	if calleeType == types.Function || calleeType == types.Var {
		c.SetType(types.Var)
		return types.Var
	}

	retType := types.RetOf(calleeType)
	if types.HashArgs(argTypes) != types.ArgsOf(calleeType) {
		return a.errorf(c.Pos, "", "invalid function call")
	}
	c.SetType(retType)
	return retType
}

func (a *Analyzer) analyzeFunction(f *ast.Function) types.Value {
	f.SetEnv(a.scope)
	if len(f.Args) > types.MaxArgs {
		return a.errorf(f.Pos, f.Name, "the number of arguments exceeds the limit")
	}

	argTypes := make([]types.Value, len(f.Args))
	for i, arg := range f.Args {
		argTypes[i] = arg.ArgType
	}
	funcType := types.Encode(argTypes, f.ReturnType)
	if funcType == types.Error {
		return a.errorf(f.Pos, f.Name, "invalid function definition")
	}
	a.scope.Insert(f.Name, funcType)

	outer := a.scope
	a.scope = outer.NewChild()
	a.scope.Insert("@", funcType)
	for _, arg := range f.Args {
		a.analyzeIdent(arg)
	}

	savedHasReturn := a.hasReturn
	a.hasReturn = false
	a.analyzeBlockBody(f.Body)
	if f.ReturnType != types.Void && !a.hasReturn {
		a.errorf(f.Pos, f.Name, "non-void function must have a return value")
	}
	a.hasReturn = savedHasReturn
	a.scope = outer

	f.SetType(funcType)
	return funcType
}

func (a *Analyzer) analyzeBlock(b *ast.Block) types.Value {
	outer := a.scope
	a.scope = outer.NewChild()
	a.analyzeBlockBody(b)
	a.scope = outer
	b.SetType(types.Void)
	return types.Void
}

// analyzeBlockBody analyzes a block's statements in the *current* scope
// (the caller has already pushed/popped it); used directly by function
// bodies, which share their scope with the parameter bindings.
func (a *Analyzer) analyzeBlockBody(b *ast.Block) {
	b.SetEnv(a.scope)
	for _, stmt := range b.Stmts {
		a.AnalyzeNode(stmt)
	}
}

func (a *Analyzer) analyzeIf(i *ast.If) types.Value {
	i.SetEnv(a.scope)
	a.AnalyzeExpr(i.Cond)
	a.analyzeBlock(i.Then)
	if i.Else != nil {
		a.AnalyzeNode(i.Else)
	}
	i.SetType(types.Void)
	return types.Void
}

func (a *Analyzer) analyzeWhile(w *ast.While) types.Value {
	w.SetEnv(a.scope)
	a.AnalyzeExpr(w.Cond)
	a.analyzeBlock(w.Body)
	w.SetType(types.Void)
	return types.Void
}

func (a *Analyzer) analyzeControlFlow(c *ast.ControlFlow) types.Value {
	c.SetEnv(a.scope)
	if c.Kind == ast.CtrlReturn {
		a.hasReturn = true
		funcType := a.scope.Lookup("@", true)
		if funcType == types.Error {
			return a.errorf(c.Pos, "", "cannot return outside the function")
		}
		retType := types.RetOf(funcType)
		value := types.Void
		if c.Value != nil {
			value = a.AnalyzeExpr(c.Value)
			if types.IsFunction(value) {
				value = types.Function
			}
		}
		if retType != value {
			return a.errorf(c.Pos, "", "type mismatch when return from function")
		}
	}
	// break/continue legality (outside a loop) is checked later, at IR
	// construction (§4.4): the analyzer only records the kind here.
	c.SetType(types.Void)
	return types.Void
}

// checkType implements Table T1.
func (a *Analyzer) checkType(op ast.Op, t types.Value) bool {
	switch op {
	case ast.OpConvNum:
		return t == types.Float || t == types.String || t == types.Var
	case ast.OpConvDec:
		return t == types.Number || t == types.String || t == types.Var
	case ast.OpConvStr:
		return t == types.Number || t == types.Float || t == types.Var
	case ast.OpAnd, ast.OpXor, ast.OpOr, ast.OpNot, ast.OpShl, ast.OpShr, ast.OpMod:
		return t == types.Number
	case ast.OpAdd, ast.OpEqual, ast.OpNotEqual:
		return t == types.Number || t == types.Float || t == types.String || t == types.List
	case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpInc, ast.OpDec,
		ast.OpLess, ast.OpLessEq, ast.OpGreater, ast.OpGreaterEq:
		return t == types.Number || t == types.Float
	case ast.OpPow:
		return t == types.Float
	case ast.OpAssign:
		return true
	default:
		if base, ok := ast.UnderlyingOp(op); ok {
			return a.checkType(base, t)
		}
		return false
	}
}

// isLvalue reports whether e is an Identifier AST node, the only lvalue
// shape in this language.
func isLvalue(e ast.Expr) bool {
	_, ok := e.(*ast.Ident)
	return ok
}
