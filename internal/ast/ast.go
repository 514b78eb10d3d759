// Package ast defines the AST contract consumed by the semantic analyzer
// (C5) and the SSA builder (C6), per spec §6. The scanner/parser that
// produce these nodes are peripheral plumbing; this package only fixes the
// shape both later phases agree on.
package ast

import "saby/internal/types"

// Position locates a node in its source file.
type Position struct {
	Line   int
	Column int
}

// Node is the common surface every AST node implements. Analyze and
// IRGenerate are implemented by the semantic analyzer and the SSA builder
// respectively (as type switches, not double-dispatch methods), so Node
// itself stays a plain data carrier.
type Node interface {
	NodePos() Position
	String() string
}

// Expr is any node that can appear in expression position.
type Expr interface {
	Node
	exprNode()
}

// Annotated is embedded by every node the analyzer annotates: its resolved
// TypeValue and the environment in effect when it was visited. Env is typed
// as any to avoid an import cycle back to internal/semantic; the builder
// type-asserts it to *semantic.Scope.
type Annotated struct {
	ResolvedType types.Value
	Env          any
}

func (a *Annotated) SetType(t types.Value) { a.ResolvedType = t }
func (a *Annotated) Type() types.Value     { return a.ResolvedType }
func (a *Annotated) SetEnv(e any)          { a.Env = e }
