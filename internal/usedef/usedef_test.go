package usedef

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushOperandRegistersUse(t *testing.T) {
	v := &Value{}
	u := &User{}
	use := u.PushOperand(v)

	assert.Len(t, v.Uses(), 1)
	assert.Same(t, use, v.Uses()[0])
	assert.Same(t, v, use.Value())
}

func TestReplaceAllUsesWithEmptiesAndReroutes(t *testing.T) {
	v := &Value{}
	v2 := &Value{}
	u1, u2 := &User{}, &User{}
	u1.PushOperand(v)
	u2.PushOperand(v)

	v.ReplaceAllUsesWith(v2)

	assert.Empty(t, v.Uses())
	assert.Len(t, v2.Uses(), 2)
	assert.Same(t, v2, u1.Operand(0).Value())
	assert.Same(t, v2, u2.Operand(0).Value())
}

func TestReplaceAllUsesWithIsStableUnderMutationDuringIteration(t *testing.T) {
	// Regression for the exact hazard def_use.cpp's ReplaceBy guards
	// against: rerouting one use must not perturb iteration over the rest,
	// because the use list was snapshotted up front.
	v := &Value{}
	v2 := &Value{}
	var users []*User
	for i := 0; i < 5; i++ {
		u := &User{}
		u.PushOperand(v)
		users = append(users, u)
	}

	v.ReplaceAllUsesWith(v2)

	assert.Empty(t, v.Uses())
	for _, u := range users {
		assert.Same(t, v2, u.Operand(0).Value())
	}
}

func TestSetOperandRerouteSingleSlot(t *testing.T) {
	v1, v2 := &Value{}, &Value{}
	u := &User{}
	u.PushOperand(v1)
	u.SetOperand(0, v2)

	assert.Empty(t, v1.Uses())
	assert.Len(t, v2.Uses(), 1)
}

func TestUserOwnerRecoversConcreteNode(t *testing.T) {
	type fakeNode struct {
		User
		Tag string
	}
	n := &fakeNode{Tag: "phi-0"}
	n.Owner = n

	v := &Value{}
	n.PushOperand(v)
	owner := v.Uses()[0].User().Owner.(*fakeNode)
	assert.Equal(t, "phi-0", owner.Tag)
}
