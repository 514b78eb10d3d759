package ssa

import (
	"fmt"
	"io"
	"strings"
)

// Print renders a module in a debug-only textual form; it is not a
// supported serialization format, only a tool for reading a compilation by
// eye while working on the builder or optimizer.
func Print(w io.Writer, m *Module) {
	for _, fn := range m.Functions {
		printFunction(w, fn)
	}
	if len(m.Exports) > 0 {
		fmt.Fprintf(w, "export %s\n", strings.Join(m.Exports, ", "))
	}
}

func printFunction(w io.Writer, entry *Block) {
	seen := make(map[int]bool)
	var walk func(*Block)
	walk = func(blk *Block) {
		if seen[blk.ID] {
			return
		}
		seen[blk.ID] = true
		printBlock(w, blk)
		for _, instr := range blk.Instrs {
			if j, ok := instr.(*Jump); ok {
				walk(j.Target)
			}
		}
	}
	walk(entry)
}

func printBlock(w io.Writer, blk *Block) {
	preds := make([]string, len(blk.Preds))
	for i, p := range blk.Preds {
		preds[i] = fmt.Sprintf("b%d", p.ID)
	}
	fmt.Fprintf(w, "b%d: ; preds = %s\n", blk.ID, strings.Join(preds, ", "))
	for _, instr := range blk.Instrs {
		fmt.Fprintf(w, "  %s\n", printInstr(instr))
	}
}

func printInstr(n Node) string {
	switch v := n.(type) {
	case *Literal:
		switch v.LitKind {
		case LitNumber:
			return fmt.Sprintf("%d", v.Num)
		case LitFloat:
			return fmt.Sprintf("%g", v.Dec)
		default:
			return fmt.Sprintf("%q", v.Str)
		}
	case *ArgGetter:
		return fmt.Sprintf("argget %d", v.Index)
	case *ExternFunc:
		return fmt.Sprintf("extern %s", v.Qualified)
	case *Phi:
		parts := make([]string, v.OperandCount())
		for i, use := range v.Operands() {
			parts[i] = printInstr(nodeOf(use.Value()))
		}
		return fmt.Sprintf("phi [%s]", strings.Join(parts, ", "))
	case *Jump:
		if v.Conditional() {
			return fmt.Sprintf("jmp b%d if %s", v.Target.ID, printInstr(nodeOf(v.Cond().Value())))
		}
		return fmt.Sprintf("jmp b%d", v.Target.ID)
	case *Call:
		return fmt.Sprintf("call %s", printInstr(nodeOf(v.Callee().Value())))
	case *RtnGetter:
		return "rtnget"
	case *Return:
		if v.HasValue() {
			return fmt.Sprintf("ret %s", printInstr(nodeOf(v.Value().Value())))
		}
		return "ret"
	case *Quad:
		if v.HasRHS {
			return fmt.Sprintf("%s %s, %s", v.Op, printInstr(nodeOf(v.Left().Value())), printInstr(nodeOf(v.Right().Value())))
		}
		return fmt.Sprintf("%s %s", v.Op, printInstr(nodeOf(v.Left().Value())))
	case *Variable:
		return fmt.Sprintf("%s = %s", v.Name, printInstr(nodeOf(v.Definition().Value())))
	case *Asm:
		return fmt.Sprintf("asm %q", v.Text)
	case *Undef:
		return "undef"
	case *ArgSetter:
		return fmt.Sprintf("argset %d, %s", v.Index, printInstr(nodeOf(v.Operand().Value())))
	default:
		return "?"
	}
}
