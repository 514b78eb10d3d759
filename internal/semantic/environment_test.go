package semantic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"saby/internal/types"
)

func TestScopeLookupRecursesToParent(t *testing.T) {
	root := NewRootScope()
	root.Insert("a", types.Number)
	child := root.NewChild()

	assert.Equal(t, types.Error, child.Lookup("a", false))
	assert.Equal(t, types.Number, child.Lookup("a", true))
}

func TestScopeInsertShadowsOuter(t *testing.T) {
	root := NewRootScope()
	root.Insert("a", types.Number)
	child := root.NewChild()
	child.Insert("a", types.String)

	assert.Equal(t, types.String, child.Lookup("a", true))
	assert.Equal(t, types.Number, root.Lookup("a", true))
}

func TestScopeAssignUpdatesNearestOwner(t *testing.T) {
	root := NewRootScope()
	root.Insert("a", types.Number)
	child := root.NewChild()

	child.Assign("a", types.Float)
	assert.Equal(t, types.Float, root.Lookup("a", true))
}

func TestScopeAssignIsNoOpWhenUnbound(t *testing.T) {
	root := NewRootScope()
	child := root.NewChild()
	child.Assign("missing", types.Float) // must not panic or create a binding
	assert.Equal(t, types.Error, child.Lookup("missing", true))
}

func TestScopeOutermost(t *testing.T) {
	root := NewRootScope()
	mid := root.NewChild()
	leaf := mid.NewChild()
	assert.Same(t, root, leaf.Outermost())
	assert.Same(t, root, root.Outermost())
}
