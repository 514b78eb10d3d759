// Package errors accumulates and renders the compiler's diagnostics (§7):
// lexical, syntactic, semantic, and I/O/module errors, plus warnings that
// never abort compilation.
package errors

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"saby/internal/ast"
)

type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Diagnostic is one reported error or warning.
type Diagnostic struct {
	Level    Level
	Message  string
	Position ast.Position
	Ident    string // the offending identifier, when relevant
}

// Reporter accumulates diagnostics the way the original analyzer's
// PrintError/PrintWarning did, and renders them Rust-style the way the
// teacher's reporter does.
type Reporter struct {
	diags    []Diagnostic
	errorN   int
	warningN int
}

func New() *Reporter { return &Reporter{} }

// Error records an error diagnostic. It returns nothing; callers that need
// the TypeValue error sentinel (types.Error) return it themselves.
func (r *Reporter) Error(pos ast.Position, ident, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Level: LevelError, Position: pos, Ident: ident,
		Message: fmt.Sprintf(format, args...),
	})
	r.errorN++
}

func (r *Reporter) Warning(pos ast.Position, ident, format string, args ...any) {
	r.diags = append(r.diags, Diagnostic{
		Level: LevelWarning, Position: pos, Ident: ident,
		Message: fmt.Sprintf(format, args...),
	})
	r.warningN++
}

func (r *Reporter) ErrorCount() int   { return r.errorN }
func (r *Reporter) WarningCount() int { return r.warningN }
func (r *Reporter) HasErrors() bool   { return r.errorN > 0 }
func (r *Reporter) Diagnostics() []Diagnostic { return r.diags }

// Emit renders every accumulated diagnostic to w, colored by level.
func (r *Reporter) Emit(w io.Writer) {
	bold := color.New(color.Bold).SprintFunc()
	errColor := color.New(color.FgRed, color.Bold).SprintFunc()
	warnColor := color.New(color.FgYellow, color.Bold).SprintFunc()

	for _, d := range r.diags {
		tag := errColor(string(d.Level))
		if d.Level == LevelWarning {
			tag = warnColor(string(d.Level))
		}
		if d.Ident != "" {
			fmt.Fprintf(w, "%s(before line %d): %s: id %s %s\n",
				bold("analyzer"), d.Position.Line, tag, bold(fmt.Sprintf("%q", d.Ident)), d.Message)
		} else {
			fmt.Fprintf(w, "%s(before line %d): %s: %s\n",
				bold("analyzer"), d.Position.Line, tag, d.Message)
		}
	}
}
