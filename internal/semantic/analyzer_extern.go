package semantic

import (
	"path/filepath"

	"saby/internal/ast"
	"saby/internal/types"
)

// analyzeExternal implements `import`/`export` (§4.4, supplemented by
// analyzer.cpp's AnalyzeExtern). Both directives are only legal at the
// outermost scope.
func (a *Analyzer) analyzeExternal(e *ast.External) types.Value {
	e.SetEnv(a.scope)
	if a.scope.Outer() != nil {
		return a.errorf(e.Pos, "", "cannot import/export libraries in nested block")
	}

	if e.Kind == ast.ExternImport {
		for _, lib := range e.Libs {
			candidate := filepath.Join(a.libPath, lib+".saby.sym")
			absCandidate, err := filepath.Abs(candidate)
			if err == nil && absCandidate == a.symPath {
				a.reporter.Warning(e.Pos, lib, "was skipped, self-importing is not allowed")
				continue
			}
			switch a.scope.LoadSymbols(candidate, lib) {
			case LoadFileError:
				a.errorf(e.Pos, lib, "cannot be imported")
			case LoadLibConflicted:
				a.reporter.Warning(e.Pos, lib, "has already been imported")
			case LoadFuncConflicted:
				a.reporter.Warning(e.Pos, lib, "has some functions conflicts with existing id")
			}
		}
	} else {
		if !a.scope.SaveSymbols(a.symPath, e.Libs) {
			return a.errorf(e.Pos, "", "cannot export symbol table")
		}
		a.scope.AddExports(e.Libs)
	}
	e.SetType(types.Void)
	return types.Void
}
