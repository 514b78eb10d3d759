package ssa

import (
	"fmt"
	"sort"
	"strings"

	"saby/internal/ast"
	"saby/internal/semantic"
	"saby/internal/types"
)

// Module is the output of a compilation unit: every top-level function's
// entry block, plus the names the unit's export directives made visible.
type Module struct {
	Functions []*Block
	Exports   []string
}

type loopTarget struct {
	end   *Block
	entry *Block
}

// Builder implements Braun et al.'s on-the-fly SSA construction (C6): no
// separate mem2reg pass exists. current_def and incomplete_phis are
// builder-local maps threaded through generation rather than fields stashed
// on the blocks themselves, per the "explicit builder state" design note.
type Builder struct {
	opt *Optimizer

	nextBlockID int
	nextTemp    int
	curBlock    *Block

	currentDef     map[*Block]map[string]Node
	incompletePhis map[*Block]map[string]*Phi
	sealed         map[*Block]bool

	loopStack []loopTarget
}

func NewBuilder() *Builder {
	return &Builder{
		opt:            NewOptimizer(),
		currentDef:     make(map[*Block]map[string]Node),
		incompletePhis: make(map[*Block]map[string]*Phi),
		sealed:         make(map[*Block]bool),
	}
}

// Release drops every builder-local map and resets the block-id counter,
// per §5 ("released explicitly at teardown to break any residual cycles
// before the block registry is dropped").
func (b *Builder) Release() {
	b.currentDef = make(map[*Block]map[string]Node)
	b.incompletePhis = make(map[*Block]map[string]*Phi)
	b.sealed = make(map[*Block]bool)
	b.loopStack = nil
	b.nextBlockID = 0
	b.nextTemp = 0
	b.curBlock = nil
}

func (b *Builder) newBlock() *Block {
	blk := NewBlock(b.nextBlockID)
	b.nextBlockID++
	return blk
}

// --- variable read/write (Braun et al.) ---

func (b *Builder) writeVariable(name string, block *Block, value Node) {
	defs := b.currentDef[block]
	if defs == nil {
		defs = make(map[string]Node)
		b.currentDef[block] = defs
	}
	defs[name] = value
}

func (b *Builder) readVariable(name string, block *Block) Node {
	if defs, ok := b.currentDef[block]; ok {
		if v, ok2 := defs[name]; ok2 {
			return v
		}
	}
	return b.readVariableRecursive(name, block)
}

func (b *Builder) readVariableRecursive(name string, block *Block) Node {
	if !b.sealed[block] {
		phis := b.incompletePhis[block]
		if phis == nil {
			phis = make(map[string]*Phi)
			b.incompletePhis[block] = phis
		}
		if existing, ok := phis[name]; ok {
			b.writeVariable(name, block, existing)
			return existing
		}
		phi := NewPhi(block)
		phis[name] = phi
		b.writeVariable(name, block, phi)
		return phi
	}

	if len(block.Preds) == 1 {
		value := b.readVariable(name, block.Preds[0])
		b.writeVariable(name, block, value)
		return value
	}

	// Multiple predecessors: install the placeholder before descending so
	// a cycle back through this variable sees itself, not infinite
	// recursion.
	phi := NewPhi(block)
	b.writeVariable(name, block, phi)
	return b.addPhiOperands(name, phi, block)
}

func (b *Builder) addPhiOperands(name string, phi *Phi, block *Block) Node {
	for _, pred := range block.Preds {
		phi.AddOperand(b.readVariable(name, pred))
	}
	result := b.tryRemoveTrivialPhi(phi)
	b.writeVariable(name, block, result)
	return result
}

// tryRemoveTrivialPhi is Braun et al.'s trivial-phi elimination: a phi
// whose operands (ignoring self-references) collapse to a single distinct
// value is replaced by that value everywhere it's used.
func (b *Builder) tryRemoveTrivialPhi(phi *Phi) Node {
	var same Node
	for _, use := range phi.Operands() {
		op := nodeOf(use.Value())
		if op == nil || op == Node(phi) || op == Node(phi.Self()) {
			continue
		}
		if same != nil && op == same {
			continue
		}
		if same != nil {
			return phi // merges at least two distinct values: non-trivial
		}
		same = op
	}

	var result Node
	if same == nil {
		result = NewUndef() // unreachable block, or the first def of a variable
	} else {
		result = same
	}

	users := phi.AsValue().Uses() // snapshot before rerouting
	phi.AsValue().ReplaceAllUsesWith(result.AsValue())
	removeInstr(phi.OwnerBlock, phi)

	for _, use := range users {
		if owner := nodeOf(&use.User().Value); owner != nil {
			if userPhi, ok := owner.(*Phi); ok && userPhi != phi {
				b.tryRemoveTrivialPhi(userPhi.Self())
			}
		}
	}
	return result
}

// removeInstr splices n out of block's instruction list by identity. Used
// to drop a phi once it's been proven trivial and rerouted.
func removeInstr(block *Block, n Node) {
	for i, instr := range block.Instrs {
		if instr == n {
			block.Instrs = append(block.Instrs[:i], block.Instrs[i+1:]...)
			return
		}
	}
}

// sealBlock finalises block's incomplete phis once its predecessor set is
// known. Idempotent: sealing an already-sealed block is a no-op.
func (b *Builder) sealBlock(block *Block) {
	if b.sealed[block] {
		return
	}
	phis := b.incompletePhis[block]
	if len(phis) > 0 {
		names := make([]string, 0, len(phis))
		for name := range phis {
			names = append(names, name)
		}
		sort.Strings(names) // deterministic finishing order
		for _, name := range names {
			b.addPhiOperands(name, phis[name], block)
		}
	}
	delete(b.incompletePhis, block)
	b.sealed[block] = true
}

// propagate chases a Variable's definition chain through copy propagation;
// it is the "use site" half of the optimizer's OptAssign, consulted every
// time a name is read so the chain collapses incrementally rather than all
// at once.
func (b *Builder) propagate(n Node) Node {
	if sub := b.opt.OptAssign(n); sub != nil {
		return sub
	}
	return n
}

func (b *Builder) newVariable(name string, definition Node) *Variable {
	definition = b.propagate(definition)
	v := NewVariable(name, definition)
	b.curBlock.Append(v)
	b.writeVariable(name, b.curBlock, v)
	return v
}

func (b *Builder) newTemp(val Node) *Variable {
	name := fmt.Sprintf("%%t%d", b.nextTemp)
	b.nextTemp++
	return b.newVariable(name, val)
}

// emitBinary consults the optimizer before attaching a Quad; the returned
// bool reports whether a substitute was used in place of a raw Quad.
func (b *Builder) emitBinary(op ast.Op, lhs, rhs Node, resultType types.Value) (Node, bool) {
	if sub := b.opt.OptBinary(op, lhs, rhs, resultType); sub != nil {
		return sub, true
	}
	q := NewQuad(op, lhs, rhs)
	b.curBlock.Append(q)
	return q, false
}

func zeroLiteralFor(t types.Value) Node {
	if t == types.Float {
		return NewFloat(0)
	}
	return NewNumber(0)
}

// --- AST -> SSA dispatch ---

// BuildProgram lowers every top-level node in order, returning the
// compiled module. root is the outermost scope the analyzer populated;
// its export list becomes the module's.
func (b *Builder) BuildProgram(nodes []ast.Node, root *semantic.Scope) *Module {
	top := b.newBlock()
	b.sealBlock(top)
	b.curBlock = top

	var fns []*Block
	for _, n := range nodes {
		if fn, ok := n.(*ast.Function); ok {
			fns = append(fns, b.lowerFunction(fn))
			continue
		}
		b.LowerNode(n)
	}

	return &Module{Functions: fns, Exports: root.Exports()}
}

func (b *Builder) LowerNode(n ast.Node) Node {
	switch node := n.(type) {
	case *ast.Variable:
		b.lowerVariable(node)
		return nil
	case *ast.Function:
		return b.lowerFunction(node)
	case *ast.Block:
		head, _ := b.lowerBlock(node, b.curBlock)
		return head
	case *ast.If:
		return b.lowerIf(node)
	case *ast.While:
		return b.lowerWhile(node)
	case *ast.ControlFlow:
		return b.lowerControlFlow(node)
	case *ast.External:
		b.lowerExternal(node)
		return nil
	case *ast.Asm:
		a := NewAsm(node.Text)
		b.curBlock.Append(a)
		return a
	case ast.Expr:
		return b.LowerExpr(node)
	default:
		return nil
	}
}

func (b *Builder) LowerExpr(e ast.Expr) Node {
	switch node := e.(type) {
	case *ast.Ident:
		return b.propagate(b.readVariable(node.Name, b.curBlock))
	case *ast.Number:
		return NewNumber(node.Value)
	case *ast.Decimal:
		return NewFloat(node.Value)
	case *ast.String:
		return NewString(node.Value)
	case *ast.Binary:
		return b.lowerBinary(node)
	case *ast.Unary:
		return b.lowerUnary(node)
	case *ast.Call:
		return b.lowerCall(node)
	default:
		return nil
	}
}

func (b *Builder) lowerVariable(v *ast.Variable) {
	for _, def := range v.Defs {
		val := b.LowerExpr(def.Init)
		b.newVariable(def.Name, val)
	}
}

func (b *Builder) lowerBinary(bin *ast.Binary) Node {
	switch {
	case bin.Op == ast.OpAssign:
		return b.lowerBinaryAssign(bin)
	case ast.IsCompoundAssign(bin.Op):
		return b.lowerBinaryCompound(bin)
	default:
		return b.lowerBinaryPure(bin)
	}
}

func (b *Builder) lowerBinaryAssign(bin *ast.Binary) Node {
	rhs := b.LowerExpr(bin.Right)
	name := bin.Left.(*ast.Ident).Name
	return b.newVariable(name, rhs)
}

func (b *Builder) lowerBinaryCompound(bin *ast.Binary) Node {
	name := bin.Left.(*ast.Ident).Name
	old := b.readVariable(name, b.curBlock)
	rhs := b.LowerExpr(bin.Right)
	base, _ := ast.UnderlyingOp(bin.Op)
	val, _ := b.emitBinary(base, old, rhs, bin.ResolvedType)
	return b.newVariable(name, val)
}

func (b *Builder) lowerBinaryPure(bin *ast.Binary) Node {
	lhs := b.LowerExpr(bin.Left)
	rhs := b.LowerExpr(bin.Right)
	val, folded := b.emitBinary(bin.Op, lhs, rhs, bin.ResolvedType)
	if folded {
		return val
	}
	return b.newTemp(val)
}

func (b *Builder) lowerUnary(u *ast.Unary) Node {
	switch u.Op {
	case ast.OpSub:
		operand := b.LowerExpr(u.Operand)
		val, folded := b.emitBinary(ast.OpSub, zeroLiteralFor(u.ResolvedType), operand, u.ResolvedType)
		if folded {
			return val
		}
		return b.newTemp(val)
	case ast.OpInc, ast.OpDec:
		name := u.Operand.(*ast.Ident).Name
		old := b.readVariable(name, b.curBlock)
		base := ast.OpAdd
		if u.Op == ast.OpDec {
			base = ast.OpSub
		}
		val, _ := b.emitBinary(base, old, NewNumber(1), u.ResolvedType)
		return b.newVariable(name, val)
	default: // ConvNum, ConvDec, ConvStr, Not
		operand := b.LowerExpr(u.Operand)
		if sub := b.opt.OptUnary(u.Op, operand); sub != nil {
			return sub
		}
		q := NewQuad(u.Op, operand, nil)
		b.curBlock.Append(q)
		return b.newTemp(q)
	}
}

func (b *Builder) lowerCall(c *ast.Call) Node {
	callee := b.LowerExpr(c.Callee)
	setters := make([]*ArgSetter, len(c.Args))
	for i, arg := range c.Args {
		av := b.LowerExpr(arg)
		as := NewArgSetter(i, av)
		b.curBlock.Append(as)
		setters[i] = as
	}
	call := NewCall(callee, setters)
	b.curBlock.Append(call)
	if c.ResolvedType == types.Void {
		return call
	}
	rg := NewRtnGetter(call)
	b.curBlock.Append(rg)
	return b.newTemp(rg)
}

// lowerBlock opens a fresh block, wires it to pred if one is given (the
// "pred_value channel" of the dispatch table, modelled as an explicit
// parameter rather than builder-global state), seals it when the
// predecessor is final on entry, and lowers its statements. It returns
// both the newly opened head and the block active once lowering finishes
// (they differ when the body itself contains nested control flow).
func (b *Builder) lowerBlock(blk *ast.Block, pred *Block) (head, tail *Block) {
	nb := b.newBlock()
	if pred != nil {
		nb.AddPred(pred)
		b.sealBlock(nb)
	}
	b.curBlock = nb
	for _, stmt := range blk.Stmts {
		b.LowerNode(stmt)
	}
	return nb, b.curBlock
}

func (b *Builder) lowerFunction(f *ast.Function) *Block {
	outer := b.curBlock
	entry := b.newBlock()
	b.sealBlock(entry)
	b.curBlock = entry

	for i, arg := range f.Args {
		ag := NewArgGetter(i)
		entry.Append(ag)
		b.newVariable(arg.Name, ag)
	}
	b.writeVariable("@", entry, entry)

	_, tail := b.lowerBlock(f.Body, entry)
	tail.Append(NewReturn(nil))

	entry.IsFunction = true
	b.curBlock = outer
	return entry
}

type ifArm struct {
	entry    *Block
	cond     Node
	thenHead *Block
	thenTail *Block
}

func (b *Builder) lowerIf(i *ast.If) Node {
	var arms []ifArm
	var tailElse *ast.Block

	entry := b.curBlock
	cur := i
	for {
		cond := b.LowerExpr(cur.Cond)
		thenHead, thenTail := b.lowerBlock(cur.Then, entry)
		arms = append(arms, ifArm{entry: entry, cond: cond, thenHead: thenHead, thenTail: thenTail})

		if nextIf, ok := cur.Else.(*ast.If); ok {
			// Synthesise an intermediate sealed block so the else-if
			// chain gets its own CFG node instead of inlining into entry.
			mid := b.newBlock()
			mid.AddPred(entry)
			b.sealBlock(mid)
			entry = mid
			b.curBlock = mid
			cur = nextIf
			continue
		}
		if cur.Else != nil {
			tailElse = cur.Else.(*ast.Block)
		}
		break
	}

	var elseHead, elseTail *Block
	if tailElse != nil {
		elseHead, elseTail = b.lowerBlock(tailElse, entry)
	}

	end := b.newBlock()
	for _, a := range arms {
		end.AddPred(a.thenTail)
	}
	if tailElse != nil {
		end.AddPred(elseTail)
	} else {
		end.AddPred(entry)
	}

	for idx, a := range arms {
		var falseTarget *Block
		switch {
		case idx+1 < len(arms):
			falseTarget = arms[idx+1].entry
		case tailElse != nil:
			falseTarget = elseHead
		default:
			falseTarget = end
		}
		a.entry.Append(NewCondJump(a.thenHead, a.cond))
		a.entry.Append(NewJump(falseTarget))
		a.thenTail.Append(NewJump(end))
	}
	if tailElse != nil {
		elseTail.Append(NewJump(end))
	}

	b.sealBlock(end)
	b.curBlock = end
	return nil
}

func (b *Builder) lowerWhile(w *ast.While) Node {
	current := b.curBlock
	entry := b.newBlock()
	entry.AddPred(current)
	b.curBlock = entry
	cond := b.LowerExpr(w.Cond)

	end := b.newBlock()
	end.AddPred(entry)

	b.loopStack = append(b.loopStack, loopTarget{end: end, entry: entry})
	bodyHead, bodyTail := b.lowerBlock(w.Body, entry)
	b.loopStack = b.loopStack[:len(b.loopStack)-1]

	entry.AddPred(bodyTail)
	b.sealBlock(entry) // only now is entry's predecessor set final

	entry.Append(NewCondJump(bodyHead, cond))
	entry.Append(NewJump(end))
	bodyTail.Append(NewJump(entry))

	b.sealBlock(end)
	b.curBlock = end
	return nil
}

func (b *Builder) lowerControlFlow(c *ast.ControlFlow) Node {
	switch c.Kind {
	case ast.CtrlReturn:
		var val Node
		if c.Value != nil {
			val = b.LowerExpr(c.Value)
		}
		ret := NewReturn(val)
		b.curBlock.Append(ret)
		return ret
	case ast.CtrlBreak:
		top := b.loopStack[len(b.loopStack)-1]
		top.end.AddPred(b.curBlock)
		j := NewJump(top.end)
		b.curBlock.Append(j)
		return j
	case ast.CtrlContinue:
		top := b.loopStack[len(b.loopStack)-1]
		top.entry.AddPred(b.curBlock)
		j := NewJump(top.entry)
		b.curBlock.Append(j)
		return j
	default:
		return nil
	}
}

// lowerExternal handles import/export at SSA level. Imports were already
// validated and inserted into the outermost scope by the analyzer; the
// builder's job is purely to materialise an ExternFunc-backed Variable
// under each symbol's short name. Exports need no SSA instructions — the
// module's export list is copied from the scope once, in BuildProgram.
func (b *Builder) lowerExternal(e *ast.External) {
	if e.Kind != ast.ExternImport {
		return
	}
	scope := e.Env.(*semantic.Scope)
	root := scope.Outermost()

	var qualified []string
	for name := range root.Symbols() {
		for _, lib := range e.Libs {
			if strings.HasPrefix(name, lib+".") {
				qualified = append(qualified, name)
				break
			}
		}
	}
	sort.Strings(qualified) // deterministic emission order

	for _, q := range qualified {
		idx := strings.Index(q, ".")
		short := q[idx+1:]
		b.newVariable(short, NewExternFunc(q))
	}
}
