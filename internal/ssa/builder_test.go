package ssa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saby/internal/ast"
	"saby/internal/semantic"
	"saby/internal/types"
)

func num(n int64) *ast.Number { return &ast.Number{Value: n} }

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func bin(op ast.Op, l, r ast.Expr, t types.Value) *ast.Binary {
	return &ast.Binary{Annotated: ast.Annotated{ResolvedType: t}, Op: op, Left: l, Right: r}
}

func varDecl(name string, init ast.Expr) *ast.Variable {
	return &ast.Variable{Defs: []ast.VarDef{{Name: name, Init: init}}}
}

// S1: a fully foldable constant expression binds its Variable directly to
// the folded Literal, with no surviving Quad.
func TestBuildProgramFoldsConstantExpression(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	inner := bin(ast.OpMul, num(3), num(4), types.Number)
	outer := bin(ast.OpAdd, num(2), inner, types.Number)
	b.LowerNode(varDecl("a", outer))

	a := b.currentDef[top]["a"].(*Variable)
	lit := nodeOf(a.Definition().Value()).(*Literal)
	assert.Equal(t, int64(14), lit.Num)

	for _, instr := range top.Instrs {
		_, isQuad := instr.(*Quad)
		assert.False(t, isQuad, "no Quad should survive a fully foldable expression")
	}
}

// S2: copy propagation across two assignments lets constant folding see
// fully-collapsed literal operands.
func TestBuildProgramPropagatesCopiesAcrossAssignments(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	b.LowerNode(varDecl("a", num(7)))
	b.LowerNode(varDecl("b", ident("a")))
	b.LowerNode(varDecl("c", bin(ast.OpAdd, ident("b"), num(1), types.Number)))

	c := b.currentDef[top]["c"].(*Variable)
	lit := nodeOf(c.Definition().Value()).(*Literal)
	assert.Equal(t, int64(8), lit.Num)

	for _, instr := range top.Instrs {
		_, isQuad := instr.(*Quad)
		assert.False(t, isQuad, "no Quad should survive when every read propagates to a literal")
	}
}

// S3: a while loop with a break wires the loop-stack target and pops it
// back off once the body is lowered; entry is sealed only once the back
// edge from the body is known.
func TestLowerWhileWiresLoopTargetsAndPopsStack(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	w := &ast.While{
		Cond: num(1),
		Body: &ast.Block{Stmts: []ast.Node{&ast.ControlFlow{Kind: ast.CtrlBreak}}},
	}
	b.LowerNode(w)

	assert.Empty(t, b.loopStack, "loop stack must be popped after the while is lowered")
	end := b.curBlock
	assert.NotEmpty(t, end.Preds, "loop end block must have at least the fallthrough predecessor")
}

// S4: a variable left unmodified on both arms of an if/else collapses its
// join-block phi to the single incoming value, and the phi is spliced out
// of the block's instruction list entirely.
func TestLowerIfEliminatesTrivialPhiInDiamond(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	b.LowerNode(varDecl("a", num(5)))
	b.LowerNode(&ast.If{Cond: num(1), Then: &ast.Block{}, Else: &ast.Block{}})

	end := b.curBlock
	result := b.readVariable("a", end)

	for _, instr := range end.Instrs {
		_, isPhi := instr.(*Phi)
		assert.False(t, isPhi, "a trivial phi must not survive in the join block")
	}
	_, isPhi := result.(*Phi)
	assert.False(t, isPhi, "reading the variable after the join must not yield a phi either")
}

// S4b: a variable reassigned on only one arm produces a genuine (non
// trivial) phi whose operand count matches the join block's predecessor
// count.
func TestLowerIfProducesGenuinePhiWithMatchingOperandCount(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	b.LowerNode(varDecl("a", num(5)))
	ifNode := &ast.If{
		Cond: num(1),
		Then: &ast.Block{Stmts: []ast.Node{
			&ast.Binary{Op: ast.OpAssign, Left: ident("a"), Right: num(9)},
		}},
		Else: &ast.Block{},
	}
	b.LowerNode(ifNode)

	end := b.curBlock
	result := b.readVariable("a", end)
	phi, ok := result.(*Phi)
	require.True(t, ok, "reassignment on only one arm must leave a real phi")
	assert.Equal(t, len(end.Preds), phi.OperandCount())
	assert.Contains(t, end.Instrs, Node(phi))
}

// S5: an import materialises an ExternFunc-backed Variable under the
// symbol's short name, and a call against it appends an ArgSetter, a Call
// and a RtnGetter to the block.
func TestLowerExternalThenCallWiresArgSettersAndReturn(t *testing.T) {
	root := semantic.NewRootScope()
	fnType := types.Encode([]types.Value{types.Number}, types.Number)
	root.Insert("math.sqrt", fnType)

	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	imp := &ast.External{Kind: ast.ExternImport, Libs: []string{"math"}}
	imp.Env = root
	b.LowerNode(imp)

	sqrtVar, ok := b.currentDef[top]["sqrt"].(*Variable)
	require.True(t, ok, "import must bind the short name")
	extern, ok := nodeOf(sqrtVar.Definition().Value()).(*ExternFunc)
	require.True(t, ok)
	assert.Equal(t, "math.sqrt", extern.Qualified)

	call := &ast.Call{
		Annotated: ast.Annotated{ResolvedType: types.Number},
		Callee:    ident("sqrt"),
		Args:      []ast.Expr{num(4)},
	}
	result := b.LowerNode(call)
	require.NotNil(t, result)

	var sawSetter, sawCall, sawRtn bool
	for _, instr := range top.Instrs {
		switch instr.(type) {
		case *ArgSetter:
			sawSetter = true
		case *Call:
			sawCall = true
		case *RtnGetter:
			sawRtn = true
		}
	}
	assert.True(t, sawSetter)
	assert.True(t, sawCall)
	assert.True(t, sawRtn)
}

// S6: BuildProgram copies the root scope's export list verbatim onto the
// module, including a wildcard export's already-expanded name list.
func TestBuildProgramCarriesExports(t *testing.T) {
	root := semantic.NewRootScope()
	root.AddExports([]string{"foo", "bar"})

	b := NewBuilder()
	mod := b.BuildProgram(nil, root)

	assert.Equal(t, []string{"foo", "bar"}, mod.Exports)
	assert.Empty(t, mod.Functions)
}

// Invariant: sealing an already-sealed block is a no-op.
func TestSealBlockIsIdempotent(t *testing.T) {
	b := NewBuilder()
	blk := b.newBlock()
	b.sealBlock(blk)
	assert.True(t, b.sealed[blk])
	b.sealBlock(blk)
	assert.True(t, b.sealed[blk])
}

// Invariant: every Variable's definition operand is non-nil (no variable is
// ever bound to a null SSA value).
func TestEveryVariableHasADefinition(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	b.LowerNode(varDecl("a", num(1)))
	for _, instr := range top.Instrs {
		if v, ok := instr.(*Variable); ok {
			assert.NotNil(t, nodeOf(v.Definition().Value()))
		}
	}
}

// Invariant: Release clears every builder-local map and counter.
func TestReleaseResetsBuilderState(t *testing.T) {
	b := NewBuilder()
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top
	b.LowerNode(varDecl("a", num(1)))

	b.Release()
	assert.Empty(t, b.currentDef)
	assert.Empty(t, b.incompletePhis)
	assert.Empty(t, b.sealed)
	assert.Nil(t, b.curBlock)
	assert.Equal(t, 0, b.nextBlockID)
}
