// Package ssa implements the closed SSA value-variant set (C4), the Braun
// et al. SSA builder (C6), and the inline peephole optimizer (C7).
package ssa

import (
	"saby/internal/ast"
	"saby/internal/usedef"
)

// Kind tags the closed sum type (§3, §9: "Deep class hierarchy... becomes a
// closed sum type with an op_kind tag").
type Kind int

const (
	KindLiteral Kind = iota
	KindArgGetter
	KindArgSetter
	KindExternFunc
	KindPhi
	KindBlock
	KindJump
	KindCall
	KindRtnGetter
	KindReturn
	KindQuad
	KindVariable
	KindAsm
	KindUndef
)

// Node is the common surface of every SSA variant.
type Node interface {
	Kind() Kind
	AsValue() *usedef.Value
}

// nodeOf recovers the concrete Node that owns v — the inverse of AsValue,
// used whenever the builder or optimizer only has a *usedef.Value (e.g.
// from a Use) and needs to dispatch on the producing node's kind.
func nodeOf(v *usedef.Value) Node {
	if v == nil || v.Owner == nil {
		return nil
	}
	return v.Owner.(Node)
}

// LitKind distinguishes the three literal payloads a Literal node can hold.
type LitKind int

const (
	LitNumber LitKind = iota
	LitFloat
	LitString
)

// Literal is an immediate; it is never block-resident (§3: "literals are
// immediates, not block-resident").
type Literal struct {
	usedef.Value
	LitKind LitKind
	Num     int64
	Dec     float64
	Str     string
}

func NewNumber(n int64) *Literal {
	l := &Literal{LitKind: LitNumber, Num: n}
	l.Owner = l
	return l
}
func NewFloat(d float64) *Literal {
	l := &Literal{LitKind: LitFloat, Dec: d}
	l.Owner = l
	return l
}
func NewString(s string) *Literal {
	l := &Literal{LitKind: LitString, Str: s}
	l.Owner = l
	return l
}
func (l *Literal) Kind() Kind             { return KindLiteral }
func (l *Literal) AsValue() *usedef.Value { return &l.Value }

// ArgGetter transports a function argument's value into the entry block.
type ArgGetter struct {
	usedef.Value
	Index int
}

func NewArgGetter(index int) *ArgGetter {
	a := &ArgGetter{Index: index}
	a.Owner = a
	return a
}
func (a *ArgGetter) Kind() Kind             { return KindArgGetter }
func (a *ArgGetter) AsValue() *usedef.Value { return &a.Value }

// ArgSetter transports an argument value out at a call site.
type ArgSetter struct {
	usedef.User
	Index int
}

func NewArgSetter(index int, value Node) *ArgSetter {
	a := &ArgSetter{Index: index}
	a.Owner = a
	a.PushOperand(value.AsValue())
	return a
}
func (a *ArgSetter) Kind() Kind             { return KindArgSetter }
func (a *ArgSetter) AsValue() *usedef.Value { return &a.User.Value }
func (a *ArgSetter) Operand() *usedef.Use   { return a.User.Operand(0) }

// ExternFunc is a symbolic reference to an imported function.
type ExternFunc struct {
	usedef.Value
	Qualified string
}

func NewExternFunc(qualified string) *ExternFunc {
	e := &ExternFunc{Qualified: qualified}
	e.Owner = e
	return e
}
func (e *ExternFunc) Kind() Kind             { return KindExternFunc }
func (e *ExternFunc) AsValue() *usedef.Value { return &e.Value }

// Phi is a merge point; operands parallel its block's predecessor list.
// self is the weak back-handle trivial-phi elimination uses to relocate
// the shared node from a detached reference (§3, §4.5). OwnerBlock lets
// the builder splice a phi proven trivial back out of its block's
// instruction list.
type Phi struct {
	usedef.User
	BlockID    int
	OwnerBlock *Block
	self       *Phi
}

// NewPhi creates a phi attached to block's header: it is inserted into the
// block's instruction list right after any phis already there, ahead of
// every other instruction.
func NewPhi(block *Block) *Phi {
	p := &Phi{BlockID: block.ID, OwnerBlock: block}
	p.Owner = p
	p.self = p
	i := 0
	for i < len(block.Instrs) {
		if _, ok := block.Instrs[i].(*Phi); !ok {
			break
		}
		i++
	}
	block.Instrs = append(block.Instrs, nil)
	copy(block.Instrs[i+1:], block.Instrs[i:])
	block.Instrs[i] = p
	return p
}
func (p *Phi) Kind() Kind              { return KindPhi }
func (p *Phi) AsValue() *usedef.Value  { return &p.User.Value }
func (p *Phi) Self() *Phi              { return p.self }
func (p *Phi) AddOperand(value Node)   { p.PushOperand(value.AsValue()) }

// Block is a basic block: preds carry control, Instrs carry data, in
// insertion order. Phis live at the head of Instrs.
type Block struct {
	usedef.Value
	ID         int
	IsFunction bool
	Preds      []*Block
	Instrs     []Node
}

func NewBlock(id int) *Block {
	b := &Block{ID: id}
	b.Owner = b
	return b
}
func (b *Block) Kind() Kind             { return KindBlock }
func (b *Block) AsValue() *usedef.Value { return &b.Value }
func (b *Block) AddPred(p *Block)       { b.Preds = append(b.Preds, p) }
func (b *Block) Append(n Node)          { b.Instrs = append(b.Instrs, n) }

// Jump is an unconditional branch (Cond == nil) or a conditional one.
type Jump struct {
	usedef.User
	Target *Block
}

func NewJump(target *Block) *Jump {
	j := &Jump{Target: target}
	j.Owner = j
	return j
}

func NewCondJump(target *Block, cond Node) *Jump {
	j := &Jump{Target: target}
	j.Owner = j
	j.PushOperand(cond.AsValue())
	return j
}
func (j *Jump) Kind() Kind             { return KindJump }
func (j *Jump) AsValue() *usedef.Value { return &j.User.Value }
func (j *Jump) Conditional() bool      { return j.OperandCount() > 0 }
func (j *Jump) Cond() *usedef.Use {
	if j.OperandCount() == 0 {
		return nil
	}
	return j.Operand(0)
}

// Call invokes callee (operand 0) with the ArgSetters already appended to
// the current block.
type Call struct {
	usedef.User
	ArgSetters []*ArgSetter
}

func NewCall(callee Node, argSetters []*ArgSetter) *Call {
	c := &Call{ArgSetters: argSetters}
	c.Owner = c
	c.PushOperand(callee.AsValue())
	return c
}
func (c *Call) Kind() Kind             { return KindCall }
func (c *Call) AsValue() *usedef.Value { return &c.User.Value }
func (c *Call) Callee() *usedef.Use    { return c.Operand(0) }

// RtnGetter retrieves a call's return value.
type RtnGetter struct {
	usedef.User
}

func NewRtnGetter(call *Call) *RtnGetter {
	r := &RtnGetter{}
	r.Owner = r
	r.PushOperand(call.AsValue())
	return r
}
func (r *RtnGetter) Kind() Kind             { return KindRtnGetter }
func (r *RtnGetter) AsValue() *usedef.Value { return &r.User.Value }

// Return ends a function body; Value is nil for a void return.
type Return struct {
	usedef.User
	hasValue bool
}

func NewReturn(value Node) *Return {
	r := &Return{hasValue: value != nil}
	r.Owner = r
	if value != nil {
		r.PushOperand(value.AsValue())
	}
	return r
}
func (r *Return) Kind() Kind             { return KindReturn }
func (r *Return) AsValue() *usedef.Value { return &r.User.Value }
func (r *Return) HasValue() bool         { return r.hasValue }
func (r *Return) Value() *usedef.Use {
	if !r.hasValue {
		return nil
	}
	return r.Operand(0)
}

// Quad is a computed value: `op left right?`. Right is nil for a unary op.
type Quad struct {
	usedef.User
	Op      ast.Op
	HasRHS  bool
}

func NewQuad(op ast.Op, left, right Node) *Quad {
	q := &Quad{Op: op, HasRHS: right != nil}
	q.Owner = q
	q.PushOperand(left.AsValue())
	if right != nil {
		q.PushOperand(right.AsValue())
	}
	return q
}
func (q *Quad) Kind() Kind             { return KindQuad }
func (q *Quad) AsValue() *usedef.Value { return &q.User.Value }
func (q *Quad) Left() *usedef.Use      { return q.Operand(0) }
func (q *Quad) Right() *usedef.Use {
	if !q.HasRHS {
		return nil
	}
	return q.Operand(1)
}

// Variable is a named SSA binding handle, distinct from a source variable:
// the same source name produces many Variables across its lifetime as it
// is rebound.
type Variable struct {
	usedef.User
	Name string
}

func NewVariable(name string, definition Node) *Variable {
	v := &Variable{Name: name}
	v.Owner = v
	v.PushOperand(definition.AsValue())
	return v
}
func (v *Variable) Kind() Kind             { return KindVariable }
func (v *Variable) AsValue() *usedef.Value { return &v.User.Value }
func (v *Variable) Definition() *usedef.Use { return v.Operand(0) }

// Asm is opaque inline assembly text; the optimizer never inspects or
// removes it.
type Asm struct {
	usedef.Value
	Text string
}

func NewAsm(text string) *Asm {
	a := &Asm{Text: text}
	a.Owner = a
	return a
}
func (a *Asm) Kind() Kind             { return KindAsm }
func (a *Asm) AsValue() *usedef.Value { return &a.Value }

// Undef is produced only when a phi is proven trivial with no reachable
// operand (unreachable block, or the very first definition of a variable).
type Undef struct {
	usedef.Value
}

func NewUndef() *Undef {
	u := &Undef{}
	u.Owner = u
	return u
}
func (u *Undef) Kind() Kind             { return KindUndef }
func (u *Undef) AsValue() *usedef.Value { return &u.Value }
