// Package main is the §6 command-line driver: `compiler <input> [-o <output>]`,
// wiring the parser, analyzer, and SSA builder together the way the
// original main.cpp does.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"
	"github.com/iancoleman/strcase"

	"saby/internal/errors"
	"saby/internal/parser"
	"saby/internal/semantic"
	"saby/internal/ssa"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	input, output, ok := parseArgs(args)
	if !ok {
		fmt.Println("Usage: compiler <input> [-o <output>]")
		return 1
	}

	source, err := os.ReadFile(input)
	if err != nil {
		color.Red("cannot read %s: %s", input, err)
		return 1
	}

	nodes, err := parser.ParseSource(input, string(source))
	if err != nil {
		reportParseError(string(source), err)
		return 1
	}

	libPath, symPath, err := resolvePaths(input)
	if err != nil {
		color.Red("%s", err)
		return 1
	}

	reporter := errors.New()
	analyzer := semantic.NewAnalyzer(reporter, libPath, symPath)
	analyzer.AnalyzeProgram(nodes)
	reporter.Emit(os.Stderr)

	if reporter.HasErrors() {
		return reporter.ErrorCount()
	}

	builder := ssa.NewBuilder()
	defer builder.Release()
	mod := builder.BuildProgram(nodes, analyzer.Scope())

	if output == "" {
		output = strcase.ToScreamingSnake(qualifiedStem(input)) + ".ir"
	}
	color.Green("compiled %s -> %s (%d functions, %d exports)",
		input, output, len(mod.Functions), len(mod.Exports))
	return 0
}

// parseArgs reads `<input> [-o <output>]`; anything else is a usage error.
func parseArgs(args []string) (input, output string, ok bool) {
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-o":
			if i+1 >= len(args) {
				return "", "", false
			}
			output = args[i+1]
			i++
		default:
			if input != "" {
				return "", "", false
			}
			input = args[i]
		}
	}
	return input, output, input != ""
}

// resolvePaths derives lib_path (directory beside the binary named "lib/",
// absolute, trailing slash) and sym_path (the input's absolute path with
// suffix ".sym"), per §6.
func resolvePaths(input string) (libPath, symPath string, err error) {
	exe, err := os.Executable()
	if err != nil {
		return "", "", fmt.Errorf("cannot resolve executable path: %w", err)
	}
	libPath = filepath.Join(filepath.Dir(exe), "lib") + string(filepath.Separator)

	absInput, err := filepath.Abs(input)
	if err != nil {
		return "", "", fmt.Errorf("cannot resolve input path: %w", err)
	}
	symPath = absInput + ".sym"
	return libPath, symPath, nil
}

// qualifiedStem strips the directory and extension from input, giving the
// bare name strcase turns into the default output stem.
func qualifiedStem(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("-> %s\n", pe.Message())
}
