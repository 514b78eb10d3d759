package semantic

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saby/internal/ast"
	"saby/internal/errors"
	"saby/internal/types"
)

func newAnalyzer(t *testing.T) (*Analyzer, *errors.Reporter) {
	t.Helper()
	rep := errors.New()
	return NewAnalyzer(rep, "/tmp/lib/", "/tmp/main.saby.sym"), rep
}

func TestAnalyzeVariableDeducesFromInitializer(t *testing.T) {
	a, rep := newAnalyzer(t)
	v := &ast.Variable{
		DeclType: types.Var,
		Defs:     []ast.VarDef{{Name: "a", Init: &ast.Number{Value: 2}}},
	}
	a.AnalyzeNode(v)
	require.False(t, rep.HasErrors())
	assert.Equal(t, types.Number, a.scope.Lookup("a", true))
}

func TestAnalyzeVariableRejectsRedefinition(t *testing.T) {
	a, rep := newAnalyzer(t)
	a.scope.Insert("a", types.Number)
	v := &ast.Variable{
		DeclType: types.Number,
		Defs:     []ast.VarDef{{Name: "a", Init: &ast.Number{Value: 2}}},
	}
	a.AnalyzeNode(v)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeVariableRejectsAtName(t *testing.T) {
	a, rep := newAnalyzer(t)
	v := &ast.Variable{
		DeclType: types.Number,
		Defs:     []ast.VarDef{{Name: "@", Init: &ast.Number{Value: 2}}},
	}
	a.AnalyzeNode(v)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeBinaryAssignAdoptsLhsTypeFromVar(t *testing.T) {
	a, rep := newAnalyzer(t)
	a.scope.Insert("a", types.Number)
	a.scope.Insert("b", types.Var)
	bin := &ast.Binary{Op: ast.OpAssign, Left: &ast.Ident{Name: "a"}, Right: &ast.Ident{Name: "b"}}
	got := a.AnalyzeExpr(bin)
	require.False(t, rep.HasErrors())
	assert.Equal(t, types.Number, got)
}

func TestAnalyzeBinaryAssignRequiresLvalue(t *testing.T) {
	a, rep := newAnalyzer(t)
	bin := &ast.Binary{Op: ast.OpAssign, Left: &ast.Number{Value: 1}, Right: &ast.Number{Value: 2}}
	a.AnalyzeExpr(bin)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeBinaryComparisonYieldsNumber(t *testing.T) {
	a, rep := newAnalyzer(t)
	bin := &ast.Binary{Op: ast.OpLess, Left: &ast.Number{Value: 1}, Right: &ast.Number{Value: 2}}
	got := a.AnalyzeExpr(bin)
	require.False(t, rep.HasErrors())
	assert.Equal(t, types.Number, got)
}

func TestAnalyzePowRequiresFloat(t *testing.T) {
	a, rep := newAnalyzer(t)
	bin := &ast.Binary{Op: ast.OpPow, Left: &ast.Number{Value: 1}, Right: &ast.Number{Value: 2}}
	a.AnalyzeExpr(bin)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeCallThroughVarYieldsVarWithoutError(t *testing.T) {
	a, rep := newAnalyzer(t)
	a.scope.Insert("f", types.Var)
	call := &ast.Call{Callee: &ast.Ident{Name: "f"}}
	got := a.AnalyzeExpr(call)
	require.False(t, rep.HasErrors())
	assert.Equal(t, types.Var, got)
}

func TestAnalyzeCallChecksArgumentHash(t *testing.T) {
	a, rep := newAnalyzer(t)
	ft := types.Encode([]types.Value{types.Number}, types.Void)
	a.scope.Insert("f", ft)
	call := &ast.Call{Callee: &ast.Ident{Name: "f"}, Args: []ast.Expr{&ast.String{Value: "x"}}}
	a.AnalyzeExpr(call)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeFunctionRequiresReturnWhenNonVoid(t *testing.T) {
	a, rep := newAnalyzer(t)
	fn := &ast.Function{
		Name:       "f",
		ReturnType: types.Number,
		Args:       nil,
		Body:       &ast.Block{},
	}
	a.AnalyzeNode(fn)
	assert.True(t, rep.HasErrors())
}

func TestAnalyzeFunctionAcceptsMatchingReturn(t *testing.T) {
	a, rep := newAnalyzer(t)
	fn := &ast.Function{
		Name:       "f",
		ReturnType: types.Number,
		Body: &ast.Block{Stmts: []ast.Node{
			&ast.ControlFlow{Kind: ast.CtrlReturn, Value: &ast.Number{Value: 1}},
		}},
	}
	a.AnalyzeNode(fn)
	assert.False(t, rep.HasErrors())
}

func TestAnalyzeExternImportExportRoundTrip(t *testing.T) {
	dir := t.TempDir()
	libPath := dir + string(filepath.Separator)

	// First compile and export "io" with one function.
	exporter, rep1 := NewAnalyzer(errors.New(), libPath, filepath.Join(dir, "io.saby.sym")), errors.New()
	_ = rep1
	ft := types.Encode([]types.Value{types.String}, types.Void)
	exporter.Scope().Insert("print", ft)
	ext := &ast.External{Kind: ast.ExternExport, Libs: []string{"*"}}
	exporter.AnalyzeNode(ext)
	require.False(t, exporter.reporter.HasErrors())

	// Then import it from a different module.
	importer, _ := newAnalyzer(t)
	importer.libPath = libPath
	importer.symPath = filepath.Join(dir, "main.saby.sym")
	imp := &ast.External{Kind: ast.ExternImport, Libs: []string{"io"}}
	importer.AnalyzeNode(imp)
	require.False(t, importer.reporter.HasErrors())
	assert.Equal(t, ft, importer.scope.Lookup("io.print", true))
}

func TestAnalyzeExternSelfImportWarns(t *testing.T) {
	dir := t.TempDir()
	libPath := dir + string(filepath.Separator)
	symPath, err := filepath.Abs(filepath.Join(dir, "io.saby.sym"))
	require.NoError(t, err)

	a := NewAnalyzer(errors.New(), libPath, symPath)
	ext := &ast.External{Kind: ast.ExternImport, Libs: []string{"io"}}
	a.AnalyzeNode(ext)
	assert.False(t, a.reporter.HasErrors())
	assert.Equal(t, 1, a.reporter.WarningCount())
}
