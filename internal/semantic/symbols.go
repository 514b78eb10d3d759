package semantic

import (
	"saby/internal/symtab"
	"saby/internal/types"
)

// LoadResult is the four-way outcome of loading a `.sym` file into an
// environment (symbol.cpp's `Environment::LoadEnvReturn`).
type LoadResult int

const (
	LoadSuccess LoadResult = iota
	LoadFileError
	LoadLibConflicted
	LoadFuncConflicted
)

// SaveSymbols writes the outermost scope's exported bindings to path. names
// is either an explicit export list, or the single wildcard entry "*"
// meaning every binding in the scope whose type is a concrete function
// signature (>= Base).
func (s *Scope) SaveSymbols(path string, names []string) bool {
	root := s.Outermost()

	var records []symtab.Record
	if len(names) == 1 && names[0] == "*" {
		for name, t := range root.symbols {
			if types.IsFunction(t) {
				records = append(records, symtab.Record{Name: name, Type: t})
			}
		}
	} else {
		for _, name := range names {
			t, ok := root.symbols[name]
			if !ok {
				return false
			}
			records = append(records, symtab.Record{Name: name, Type: t})
		}
	}
	return symtab.Write(path, records) == nil
}

// LoadSymbols loads path's records into the outermost scope under the
// qualified namespace "libName.<symbol>". Re-importing an already-loaded
// file (by absolute-path hash) is rejected before the file is even opened;
// a per-symbol name collision is reported but does not abort the load.
func (s *Scope) LoadSymbols(absPath, libName string) LoadResult {
	root := s.Outermost()

	h := symtab.PathHash(absPath)
	if root.HasImportedHash(h) {
		return LoadLibConflicted
	}
	root.MarkImportedHash(h)

	records, err := symtab.Read(absPath)
	if err != nil {
		return LoadFileError
	}

	conflicted := false
	for _, rec := range records {
		qualified := libName + "." + rec.Name
		if _, exists := root.symbols[qualified]; exists {
			conflicted = true
		}
		root.Insert(qualified, rec.Type)
		root.AddImport(qualified)
	}
	if conflicted {
		return LoadFuncConflicted
	}
	return LoadSuccess
}
