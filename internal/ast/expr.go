package ast

import (
	"fmt"

	"saby/internal/types"
)

// Ident is both a reference ("read this identifier") and, in function
// parameter position, a binding site — the analyzer tells the two apart by
// ArgDecl, per §6 ("Identifier(name, type-slot)").
type Ident struct {
	Annotated
	Pos     Position
	Name    string
	ArgDecl bool        // true when this Ident sits in a function's argument list
	ArgType types.Value // declared type, meaningful only when ArgDecl
}

func (i *Ident) NodePos() Position { return i.Pos }
func (i *Ident) String() string    { return i.Name }
func (*Ident) exprNode()           {}

type Number struct {
	Annotated
	Pos   Position
	Value int64
}

func (n *Number) NodePos() Position { return n.Pos }
func (n *Number) String() string    { return fmt.Sprintf("%d", n.Value) }
func (*Number) exprNode()           {}

type Decimal struct {
	Annotated
	Pos   Position
	Value float64
}

func (d *Decimal) NodePos() Position { return d.Pos }
func (d *Decimal) String() string    { return fmt.Sprintf("%g", d.Value) }
func (*Decimal) exprNode()           {}

type String struct {
	Annotated
	Pos   Position
	Value string
}

func (s *String) NodePos() Position { return s.Pos }
func (s *String) String() string    { return fmt.Sprintf("%q", s.Value) }
func (*String) exprNode()           {}

type Binary struct {
	Annotated
	Pos         Position
	Op          Op
	Left, Right Expr
}

func (b *Binary) NodePos() Position { return b.Pos }
func (b *Binary) String() string    { return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right) }
func (*Binary) exprNode()           {}

// Unary's own resolved type can differ from its operand's (conversion
// operators change type across the operator). Unary has no separate slot
// for the operand's type; that type is recorded only on the Operand node.
type Unary struct {
	Annotated
	Pos         Position
	Op          Op
	Operand     Expr
}

func (u *Unary) NodePos() Position { return u.Pos }
func (u *Unary) String() string    { return fmt.Sprintf("(%s%s)", u.Op, u.Operand) }
func (*Unary) exprNode()           {}

type Call struct {
	Annotated
	Pos    Position
	Callee Expr
	Args   []Expr
}

func (c *Call) NodePos() Position { return c.Pos }
func (c *Call) String() string    { return fmt.Sprintf("%s(...)", c.Callee) }
func (*Call) exprNode()           {}
