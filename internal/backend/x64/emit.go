package x64

import (
	"fmt"
	"strings"

	"github.com/OmarAglan/baa/internal/ir"
)

// EmitModule lowers and allocates every function in m, then renders the
// whole module as AT&T-syntax assembly for GAS on Windows (spec.md
// §4.5.3 / §6.3).
func EmitModule(m *ir.Module) (string, error) {
	type lowered struct {
		mf    *MFunction
		alloc map[int]string
	}
	var fns []lowered
	for _, f := range m.Functions {
		mf, err := Lower(f, m.Layout)
		if err != nil {
			return "", err
		}
		var alloc map[int]string
		if !mf.External {
			alloc = Allocate(mf)
		}
		fns = append(fns, lowered{mf: mf, alloc: alloc})
	}

	var b strings.Builder
	emitRData(&b, m)
	emitData(&b, m)
	b.WriteString("\n.text\n")
	b.WriteString(".global main\n")
	for _, fn := range fns {
		if fn.mf.External {
			continue
		}
		emitFunction(&b, fn.mf, fn.alloc)
	}
	return b.String(), nil
}

// emitRData writes the .rdata section: the two fixed printf-style format
// strings every Baa program's PRINT lowering calls into, plus every
// interned string literal (spec.md §4.5.3 step 1).
func emitRData(b *strings.Builder, m *ir.Module) {
	b.WriteString(".section .rdata\n")
	b.WriteString("fmt_int: .asciz \"%lld\\n\"\n")
	b.WriteString("fmt_str: .asciz \"%s\\n\"\n")
	for i, s := range m.Strings() {
		fmt.Fprintf(b, ".Lstr_%d: .asciz %q\n", i, s)
	}
}

// emitData writes the .data section: one entry per module global,
// zero-initialized unless Init is set (spec.md §4.5.3 step 2).
func emitData(b *strings.Builder, m *ir.Module) {
	b.WriteString("\n.data\n")
	for _, g := range m.Globals {
		sz := m.Layout.SizeOf(g.Type)
		fmt.Fprintf(b, "%s:\n", g.Name)
		if g.Init != nil && g.Init.Kind == ir.ValConstInt {
			fmt.Fprintf(b, "  .quad %d\n", g.Init.IntVal)
		} else {
			fmt.Fprintf(b, "  .zero %d\n", sz)
		}
	}
}

// emitFunction writes one function's label, prologue, body, and (per
// return point) epilogue.
func emitFunction(b *strings.Builder, mf *MFunction, alloc map[int]string) {
	fmt.Fprintf(b, "\n%s:\n", mf.Name)
	fmt.Fprintf(b, "  push %%rbp\n")
	fmt.Fprintf(b, "  mov %%rsp, %%rbp\n")
	if mf.FrameSize > 0 {
		fmt.Fprintf(b, "  sub $%d, %%rsp\n", mf.FrameSize)
	}
	for _, r := range mf.CalleeSaved {
		fmt.Fprintf(b, "  push %%%s\n", r)
	}

	for _, mb := range mf.Blocks {
		fmt.Fprintf(b, ".Lblock_%s_%d:\n", mf.Name, mb.ID)
		for _, inst := range mb.Insts {
			emitInst(b, mf, alloc, inst)
		}
	}
}

func emitInst(b *strings.Builder, mf *MFunction, alloc map[int]string, inst *MInst) {
	operand := func(o *Operand) string { return formatOperand(o, alloc) }

	switch inst.Op {
	case MMov:
		fmt.Fprintf(b, "  mov %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MLea:
		fmt.Fprintf(b, "  lea %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MAdd:
		fmt.Fprintf(b, "  add %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MSub:
		fmt.Fprintf(b, "  sub %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MImul:
		fmt.Fprintf(b, "  imul %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MAnd:
		fmt.Fprintf(b, "  and %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MOr:
		fmt.Fprintf(b, "  or %s, %s\n", operand(inst.Src1), operand(inst.Dst))
	case MNot:
		fmt.Fprintf(b, "  not %s\n", operand(inst.Dst))
	case MNeg:
		fmt.Fprintf(b, "  neg %s\n", operand(inst.Dst))
	case MCqo:
		b.WriteString("  cqo\n")
	case MIdiv:
		fmt.Fprintf(b, "  idiv %s\n", operand(inst.Src1))
	case MCmp:
		fmt.Fprintf(b, "  cmp %s, %s\n", operand(inst.Src1), operand(inst.Src2))
	case MSetCC:
		fmt.Fprintf(b, "  %s %%al\n", inst.Pred.setcc())
	case MMovzx:
		b.WriteString("  movzx %al, %rax\n")
	case MTest:
		fmt.Fprintf(b, "  test %s, %s\n", operand(inst.Src1), operand(inst.Src2))
	case MJmp:
		fmt.Fprintf(b, "  jmp %s\n", inst.Target)
	case MJne:
		fmt.Fprintf(b, "  jne %s\n", inst.Target)
	case MCall:
		fmt.Fprintf(b, "  call %s\n", inst.Target)
	case MAdjustSP:
		delta := inst.Src1.Imm
		if delta < 0 {
			fmt.Fprintf(b, "  sub $%d, %%rsp\n", -delta)
		} else {
			fmt.Fprintf(b, "  add $%d, %%rsp\n", delta)
		}
	case MRet:
		emitEpilogue(b, mf)
	}
}

// emitEpilogue writes the per-return-point tail spec.md §4.5.1's RET rule
// and §4.5.3 step 3 both call for: restore callee-saves, tear down the
// frame, pop the saved rbp, ret.
func emitEpilogue(b *strings.Builder, mf *MFunction) {
	for i := len(mf.CalleeSaved) - 1; i >= 0; i-- {
		fmt.Fprintf(b, "  pop %%%s\n", mf.CalleeSaved[i])
	}
	b.WriteString("  mov %rbp, %rsp\n")
	b.WriteString("  pop %rbp\n")
	b.WriteString("  ret\n")
}

// formatOperand renders o in AT&T syntax, resolving any register operand
// through alloc.
func formatOperand(o *Operand, alloc map[int]string) string {
	if o == nil {
		return ""
	}
	switch o.Kind {
	case OKReg:
		return "%" + physOf(o.Reg, alloc)
	case OKImm:
		return fmt.Sprintf("$%d", o.Imm)
	case OKMem:
		switch o.MemBase {
		case MemRBP:
			return fmt.Sprintf("-%d(%%rbp)", o.Offset)
		case MemRSP:
			return fmt.Sprintf("%d(%%rsp)", o.Offset)
		default:
			return fmt.Sprintf("(%%%s)", physOf(o.Reg, alloc))
		}
	case OKLabel:
		return o.Label + "(%rip)"
	default:
		return "?"
	}
}

func physOf(v int, alloc map[int]string) string {
	if p, ok := alloc[v]; ok {
		return p
	}
	return fmt.Sprintf("v%d", v)
}
