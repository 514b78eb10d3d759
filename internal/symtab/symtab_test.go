package symtab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saby/internal/types"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "io.saby.sym")

	records := []Record{
		{Name: "print", Type: types.Encode(Value1(types.String), types.Void)},
		{Name: "read", Type: types.Encode(nil, types.String)},
	}
	require.NoError(t, Write(path, records))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

// Value1 is a tiny test-local helper turning a single type into a slice,
// avoiding a `[]types.Value{...}` literal repeated at every call site.
func Value1(v types.Value) []types.Value { return []types.Value{v} }

func TestReadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.sym")
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644))

	_, err := Read(path)
	assert.Error(t, err)
}

func TestPathHashStableAndDistinct(t *testing.T) {
	a := PathHash("/a/b.saby.sym")
	b := PathHash("/a/b.saby.sym")
	c := PathHash("/a/c.saby.sym")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
