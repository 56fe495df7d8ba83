// Package textio implements spec.md §4.6 / §6.2: a deterministic,
// line-oriented text serialization of an *ir.Module and a participle
// grammar that parses it back, satisfying the P4 round-trip property
// (write(read(write(m))) == write(m) byte-for-byte).
package textio

import (
	"fmt"
	"strings"

	"github.com/OmarAglan/baa/internal/ir"
)

// Write renders m in the canonical text IR format of spec.md §6.2.
// Output is fully deterministic: functions, globals and blocks are
// walked in the module's own stable slice order (spec.md §5).
func Write(m *ir.Module) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q\n", m.Name)

	for _, g := range m.Globals {
		fmt.Fprintf(&sb, "global @%s : %s", g.Name, g.Type)
		if g.Init != nil {
			fmt.Fprintf(&sb, " = %s", writeValue(g.Init))
		}
		sb.WriteByte('\n')
	}

	for id, s := range m.Strings() {
		fmt.Fprintf(&sb, "string .Lstr_%d %s\n", id, quoteEscape(s))
	}

	for _, f := range m.Functions {
		sb.WriteByte('\n')
		writeFunction(&sb, f)
	}

	return sb.String()
}

func writeFunction(sb *strings.Builder, f *ir.Function) {
	sb.WriteString("func @")
	sb.WriteString(f.Name)
	sb.WriteByte('(')
	for i, p := range f.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s %%%d", p.Type, p.Reg)
	}
	sb.WriteByte(')')
	fmt.Fprintf(sb, " -> %s", f.RetType)
	if f.External {
		sb.WriteString(";\n")
		return
	}
	sb.WriteString(" {\n")
	for _, b := range f.Blocks {
		fmt.Fprintf(sb, "block %%%s:\n", b.Label)
		for i := b.First; i != nil; i = i.Next {
			sb.WriteString("    ")
			writeInst(sb, i)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("}\n")
}

func writeInst(sb *strings.Builder, i *ir.Inst) {
	prefix := ""
	if i.HasResult() {
		prefix = fmt.Sprintf("%%%d = ", i.Dest)
	}
	switch i.Op {
	case ir.OpPhi:
		fmt.Fprintf(sb, "%sphi %s ", prefix, i.ResType)
		for idx, e := range i.PhiEntries {
			if idx > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(sb, "[ %s, %%%s ]", writeValue(e.Value), e.Pred.Label)
		}
	case ir.OpCall:
		fmt.Fprintf(sb, "%scall @%s(", prefix, i.CallTarget)
		for idx, a := range i.CallArgs {
			if idx > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(writeValue(a))
		}
		sb.WriteString(")")
	case ir.OpCmp:
		fmt.Fprintf(sb, "%scmp %s %s %s, %s", prefix, i.CmpPred, i.ResType, writeValue(i.Operands[0]), writeValue(i.Operands[1]))
	case ir.OpAlloca:
		fmt.Fprintf(sb, "%salloca %s", prefix, i.AllocaType)
	case ir.OpLoad:
		fmt.Fprintf(sb, "%sload %s %s", prefix, i.ResType, writeValue(i.Operands[0]))
	case ir.OpStore:
		fmt.Fprintf(sb, "store %s, %s", writeValue(i.Operands[1]), writeValue(i.Operands[0]))
	case ir.OpBr:
		fmt.Fprintf(sb, "br %%%s", i.BrTarget.Label)
	case ir.OpBrCond:
		fmt.Fprintf(sb, "br_cond %s, %%%s, %%%s", writeValue(i.Operands[0]), i.BrTrue.Label, i.BrFalse.Label)
	case ir.OpRet:
		if len(i.Operands) == 0 {
			sb.WriteString("ret void")
		} else {
			fmt.Fprintf(sb, "ret %s %s", i.ResType, writeValue(i.Operands[0]))
		}
	case ir.OpCopy:
		fmt.Fprintf(sb, "%scopy %s %s", prefix, i.ResType, writeValue(i.Operands[0]))
	default:
		fmt.Fprintf(sb, "%s%s %s", prefix, i.Op, i.ResType)
		for idx, o := range i.Operands {
			if idx > 0 {
				sb.WriteString(",")
			}
			sb.WriteByte(' ')
			sb.WriteString(writeValue(o))
		}
	}
}

func writeValue(v *ir.Value) string {
	switch v.Kind {
	case ir.ValConstInt:
		return fmt.Sprintf("%d", v.IntVal)
	case ir.ValConstStr:
		return fmt.Sprintf(".Lstr_%d", v.StrID)
	case ir.ValReg:
		return fmt.Sprintf("%%%d", v.Reg)
	case ir.ValGlobal:
		return fmt.Sprintf("@%s", v.Name)
	case ir.ValFuncRef:
		return fmt.Sprintf("@%s", v.Name)
	case ir.ValBlockRef:
		return fmt.Sprintf("%%%s", v.Block.Label)
	default:
		return "?"
	}
}

// quoteEscape implements spec.md §6.2's C-style escaping for `"`, `\`,
// `\n`, `\t`, `\r` inside a double-quoted string literal.
func quoteEscape(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
