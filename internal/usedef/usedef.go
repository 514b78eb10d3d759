// Package usedef implements the use-def graph (C3): Values carry back-links
// to every Use that references them, Users own an ordered vector of Use
// operand slots, and rerouting a Value empties its use list in one pass.
//
// The mutation path is guarded by a go-deadlock RWMutex rather than a plain
// sync.RWMutex. §5 fixes the compiler itself as single-threaded, but this
// is the one structure §9 calls out as reusable by a concurrent
// implementer ("Manual pointer-heavy use-def lists may be replaced by an
// arena...") — so the graph is built lock-safe even though cmd/sabyc only
// ever drives it from one goroutine.
package usedef

import (
	deadlock "github.com/sasha-s/go-deadlock"
)

// Value is anything that can be referenced by a Use: an SSA node. Owner
// points back at the concrete SSA node embedding this Value — Go gives no
// way to recover that from the embedding alone, so every ssa-package
// constructor sets it explicitly; code that walks a Use back to the
// producing or consuming node reads Use.Value().Owner / Use.User().Owner.
type Value struct {
	mu    deadlock.RWMutex
	uses  []*Use
	Owner any
}

// Use records one `(value, user)` edge: user's operand slot points at value.
type Use struct {
	value *Value
	user  *User
}

func (u *Use) Value() *Value { return u.value }
func (u *Use) User() *User   { return u.user }

// AddUse registers u against v.
func (v *Value) AddUse(u *Use) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.uses = append(v.uses, u)
}

// RemoveUse de-registers u from v, if present.
func (v *Value) RemoveUse(u *Use) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i, existing := range v.uses {
		if existing == u {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
}

// Uses returns a snapshot of the Uses currently referencing v — safe for the
// caller to range over even if it goes on to mutate v's use list, because
// the underlying slice is copied, not aliased.
func (v *Value) Uses() []*Use {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]*Use, len(v.uses))
	copy(out, v.uses)
	return out
}

// ReplaceAllUsesWith reroutes every existing Use of v to point at v2
// instead, per Invariant 3 (§8): v.uses is empty afterward and every prior
// user now references v2. The use list is snapshotted before rewriting so
// this remains correct even if rerouting one use causes a caller to touch
// v's list concurrently (e.g. a trivial-phi elimination that recurses into
// a user while the outer loop is still iterating).
func (v *Value) ReplaceAllUsesWith(v2 *Value) {
	uses := v.Uses()
	for _, u := range uses {
		u.setValue(v2)
	}
}

// setValue reroutes a single Use from its current value to v2: removes
// itself from the old value's use list, points at v2, and registers with
// v2. Mirrors def_use.cpp's `Use::set_value`.
func (u *Use) setValue(v2 *Value) {
	if u.value != nil {
		u.value.RemoveUse(u)
	}
	u.value = v2
	if v2 != nil {
		v2.AddUse(u)
	}
}

// User is a Value that owns an ordered vector of operand Use slots.
type User struct {
	Value
	operands []*Use
}

// PushOperand appends a new operand pointing at value, wiring the Use up on
// both sides.
func (u *User) PushOperand(value *Value) *Use {
	use := &Use{user: u}
	u.operands = append(u.operands, use)
	use.setValue(value)
	return use
}

func (u *User) Operand(i int) *Use     { return u.operands[i] }
func (u *User) OperandCount() int      { return len(u.operands) }
func (u *User) Operands() []*Use       { return u.operands }

// SetOperand rewrites operand i in place (used by trivial-phi elimination
// to swap out an operand without disturbing operand order/count).
func (u *User) SetOperand(i int, value *Value) {
	u.operands[i].setValue(value)
}
