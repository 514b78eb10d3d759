package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeRoundTrip(t *testing.T) {
	cases := [][]Value{
		{},
		{Number},
		{Number, Float, String},
		{Var, List, Void, Number, Float, String},
	}
	for _, args := range cases {
		for _, ret := range []Value{Number, Float, String, List, Void, Var, Function} {
			ft := Encode(args, ret)
			assert.True(t, IsFunction(ft))
			assert.Equal(t, ret, RetOf(ft))
			assert.Equal(t, HashArgs(args), ArgsOf(ft))
		}
	}
}

func TestEncodeErrorPropagates(t *testing.T) {
	assert.Equal(t, Error, Encode([]Value{Number, Error}, Void))
	assert.Equal(t, Error, Encode([]Value{Number}, Error))
}

func TestHashArgsCollapsesFunctionTypes(t *testing.T) {
	concrete := Encode([]Value{Number}, Void)
	assert.Equal(t, HashArgs([]Value{Function}), HashArgs([]Value{concrete}))
}

func TestMaxArgsFitsInSignedInt64(t *testing.T) {
	args := make([]Value, MaxArgs)
	for i := range args {
		args[i] = Function // the largest primitive sentinel
	}
	ft := Encode(args, Function)
	assert.True(t, ft > 0, "encoded signature must not overflow into the sign bit")
}
