package x64

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
)

// Lower translates one IR function into its machine-instruction form
// (spec.md §4.5.1). Virtual registers in the result reuse the IR's own
// dense register numbers for every value that isn't a short-lived ABI
// scratch, so operand translation is a direct rename rather than a
// separate numbering pass; scratch and pinned vregs are minted above that
// range via NewVReg/NewPinned.
func Lower(f *ir.Function, layout *ir.DataLayout) (*MFunction, error) {
	mf := NewMFunction(f.Name)
	mf.External = f.External
	if f.External {
		return mf, nil
	}

	mf.nextVReg = maxReg(f) + 1

	for _, b := range f.Blocks {
		mf.Blocks = append(mf.Blocks, &MBlock{Label: b.Label, ID: b.ID})
	}
	layoutAllocas(mf, f, layout)

	sel := &selector{mf: mf, f: f, layout: layout}
	for bi, b := range f.Blocks {
		mb := mf.Blocks[bi]
		for i := b.First; i != nil; i = i.Next {
			if err := sel.lower(mb, i); err != nil {
				return nil, fmt.Errorf("function %s, block %s, inst %d (%s): %w", f.Name, b.Label, i.ID, i.Op, err)
			}
		}
	}
	return mf, nil
}

// maxReg finds the highest register number used anywhere in f, so isel's
// scratch vregs never collide with a real IR value.
func maxReg(f *ir.Function) int {
	max := -1
	bump := func(r int) {
		if r > max {
			max = r
		}
	}
	for _, p := range f.Params {
		bump(p.Reg)
	}
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.HasResult() {
				bump(i.Dest)
			}
			for _, o := range i.Operands {
				if o != nil && o.Kind == ir.ValReg {
					bump(o.Reg)
				}
			}
		}
	}
	return max
}

// layoutAllocas assigns every ALLOCA a frame slot up front (spec.md
// §4.5.1: "record a frame slot of sizeof(T) bytes at a negative rbp
// offset"), since the offset must be known before the lea that materializes
// it is translated.
func layoutAllocas(mf *MFunction, f *ir.Function, layout *ir.DataLayout) {
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.Op != ir.OpAlloca {
				continue
			}
			sz := layout.SizeOf(i.AllocaType)
			al := layout.AlignOf(i.AllocaType)
			if rem := mf.frameCursor % al; rem != 0 {
				mf.frameCursor += al - rem
			}
			mf.frameCursor += sz
			mf.AllocaOffsets[i.Dest] = mf.frameCursor
		}
	}
}

type selector struct {
	mf     *MFunction
	f      *ir.Function
	layout *ir.DataLayout
}

func (s *selector) emit(mb *MBlock, inst *MInst) {
	mb.Insts = append(mb.Insts, inst)
}

// valOp translates an ir.Value operand into a machine Operand. Registers
// and immediates translate directly; a global or function address must be
// materialized into a fresh vreg via rip-relative lea first, since none of
// this backend's instruction forms accept a bare symbol as an arithmetic
// or memory-base operand (spec.md §4.5.1 lists only register and
// immediate operand forms).
func (s *selector) valOp(mb *MBlock, v *ir.Value) Operand {
	switch v.Kind {
	case ir.ValConstInt:
		return ImmOp(v.IntVal)
	case ir.ValReg:
		return RegOp(v.Reg)
	case ir.ValGlobal, ir.ValFuncRef, ir.ValConstStr:
		return RegOp(s.materializeAddr(mb, v))
	default:
		return ImmOp(0)
	}
}

// materializeAddr loads the rip-relative address of a symbol into a fresh
// vreg via lea, for use as a load/store/call base or argument value.
func (s *selector) materializeAddr(mb *MBlock, v *ir.Value) int {
	dst := s.mf.NewVReg()
	label := symbolLabel(v)
	s.emit(mb, &MInst{Op: MLea, Dst: regPtr(RegOp(dst)), Src1: regPtr(LabelOp(label))})
	return dst
}

func symbolLabel(v *ir.Value) string {
	switch v.Kind {
	case ir.ValGlobal, ir.ValFuncRef:
		return v.Name
	case ir.ValConstStr:
		return fmt.Sprintf(".Lstr_%d", v.StrID)
	default:
		return ""
	}
}

func regPtr(o Operand) *Operand { return &o }

// blockLabel renders the `.Lblock_<fn>_<id>` assembly symbol spec.md
// §6.3 specifies for b, within the function currently being lowered.
func (s *selector) blockLabel(b *ir.Block) string {
	return fmt.Sprintf(".Lblock_%s_%d", s.f.Name, b.ID)
}

func (s *selector) lower(mb *MBlock, i *ir.Inst) error {
	switch i.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul:
		return s.lowerArith(mb, i)
	case ir.OpDiv, ir.OpMod:
		return s.lowerDivMod(mb, i)
	case ir.OpCmp:
		return s.lowerCmp(mb, i)
	case ir.OpAnd, ir.OpOr:
		return s.lowerBitwise(mb, i)
	case ir.OpNot, ir.OpNeg:
		return s.lowerUnary(mb, i)
	case ir.OpCopy:
		s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})
		return nil
	case ir.OpAlloca:
		off := s.mf.AllocaOffsets[i.Dest]
		s.emit(mb, &MInst{Op: MLea, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(FrameOp(off))})
		return nil
	case ir.OpLoad:
		ptr := s.addrReg(mb, i.Operands[0])
		s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(MemRegOp(ptr))})
		return nil
	case ir.OpStore:
		ptr := s.addrReg(mb, i.Operands[0])
		val := s.valOp(mb, i.Operands[1])
		s.emit(mb, &MInst{Op: MMov, Dst: regPtr(MemRegOp(ptr)), Src1: regPtr(val)})
		return nil
	case ir.OpBr:
		s.emit(mb, &MInst{Op: MJmp, Target: s.blockLabel(i.BrTarget)})
		return nil
	case ir.OpBrCond:
		cond := s.valOp(mb, i.Operands[0])
		s.emit(mb, &MInst{Op: MTest, Src1: regPtr(cond), Src2: regPtr(cond)})
		s.emit(mb, &MInst{Op: MJne, Target: s.blockLabel(i.BrTrue)})
		s.emit(mb, &MInst{Op: MJmp, Target: s.blockLabel(i.BrFalse)})
		return nil
	case ir.OpRet:
		if len(i.Operands) == 1 {
			raxV := s.mf.NewPinned("rax")
			s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})
		}
		s.emit(mb, &MInst{Op: MRet})
		return nil
	case ir.OpCall:
		return s.lowerCall(mb, i)
	case ir.OpPhi:
		return fmt.Errorf("phi survived to isel: run out-of-SSA first")
	default:
		return fmt.Errorf("unsupported opcode for isel")
	}
}

// addrReg resolves ptr to the vreg holding its address: a register
// operand passes through, any other kind (global/func/string) is
// materialized first.
func (s *selector) addrReg(mb *MBlock, ptr *ir.Value) int {
	if ptr.Kind == ir.ValReg {
		return ptr.Reg
	}
	return s.materializeAddr(mb, ptr)
}

// lowerArith implements spec.md §4.5.1's "mov lhs→rax; op rhs, rax" rule
// for ADD/SUB/MUL, with the result copied out of rax into dest.
func (s *selector) lowerArith(mb *MBlock, i *ir.Inst) error {
	raxV := s.mf.NewPinned("rax")
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})
	op := map[ir.Opcode]MOp{ir.OpAdd: MAdd, ir.OpSub: MSub, ir.OpMul: MImul}[i.Op]
	s.emit(mb, &MInst{Op: op, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[1]))})
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(raxV))})
	return nil
}

// lowerBitwise implements the AND/OR half of spec.md §4.5.1's "AND/OR/NOT
// → bitwise variants".
func (s *selector) lowerBitwise(mb *MBlock, i *ir.Inst) error {
	raxV := s.mf.NewPinned("rax")
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})
	op := map[ir.Opcode]MOp{ir.OpAnd: MAnd, ir.OpOr: MOr}[i.Op]
	s.emit(mb, &MInst{Op: op, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[1]))})
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(raxV))})
	return nil
}

// lowerUnary covers NOT (spec.md §4.5.1) and NEG, which the bullet list
// omits; NEG follows the same single-operand rax pattern as NOT since
// spec.md gives no separate rule for it.
func (s *selector) lowerUnary(mb *MBlock, i *ir.Inst) error {
	raxV := s.mf.NewPinned("rax")
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})
	op := MNot
	if i.Op == ir.OpNeg {
		op = MNeg
	}
	s.emit(mb, &MInst{Op: op, Dst: regPtr(RegOp(raxV))})
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(raxV))})
	return nil
}

// lowerDivMod implements spec.md §4.5.1's "mov lhs→rax; cqo; idiv
// rhs_reg; mov rax→dest (or rdx→dest for MOD)", materializing an
// immediate RHS into a scratch vreg first since idiv has no immediate
// form.
func (s *selector) lowerDivMod(mb *MBlock, i *ir.Inst) error {
	raxV := s.mf.NewPinned("rax")
	rdxV := s.mf.NewPinned("rdx")
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(raxV)), Src1: regPtr(s.valOp(mb, i.Operands[0]))})

	rhs := i.Operands[1]
	var rhsReg int
	if rhs.Kind == ir.ValConstInt {
		rhsReg = s.mf.NewVReg()
		s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(rhsReg)), Src1: regPtr(ImmOp(rhs.IntVal))})
	} else {
		rhsReg = rhs.Reg
	}

	s.emit(mb, &MInst{Op: MCqo, ImplicitUses: []int{raxV}, ImplicitDefs: []int{rdxV}})
	s.emit(mb, &MInst{
		Op:           MIdiv,
		Src1:         regPtr(RegOp(rhsReg)),
		ImplicitUses: []int{raxV, rdxV},
		ImplicitDefs: []int{raxV, rdxV},
	})

	src := raxV
	if i.Op == ir.OpMod {
		src = rdxV
	}
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(src))})
	return nil
}

// lowerCmp implements spec.md §4.5.1's "cmp rhs, lhs; setCC %al; movzx
// %al, %rax".
func (s *selector) lowerCmp(mb *MBlock, i *ir.Inst) error {
	lhs := s.valOp(mb, i.Operands[0])
	rhs := s.valOp(mb, i.Operands[1])
	s.emit(mb, &MInst{Op: MCmp, Src1: regPtr(rhs), Src2: regPtr(lhs)})

	raxV := s.mf.NewPinned("rax")
	s.emit(mb, &MInst{Op: MSetCC, Dst: regPtr(RegOp(raxV)), Pred: toCmpPred(i.CmpPred), ImplicitDefs: []int{raxV}})
	s.emit(mb, &MInst{Op: MMovzx, Dst: regPtr(RegOp(raxV)), Src1: regPtr(RegOp(raxV))})
	s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(raxV))})
	return nil
}

func toCmpPred(p ir.Pred) cmpPred {
	switch p {
	case ir.PredEQ:
		return predEQ
	case ir.PredNE:
		return predNE
	case ir.PredLT:
		return predLT
	case ir.PredLE:
		return predLE
	case ir.PredGT:
		return predGT
	case ir.PredGE:
		return predGE
	default:
		return predEQ
	}
}

// argGPRs is the Windows x64 integer-argument register order (spec.md
// §4.5.1 CALL rule).
var argGPRs = []string{"rcx", "rdx", "r8", "r9"}

// lowerCall implements spec.md §4.5.1's CALL rule: first four args in
// rcx/rdx/r8/r9, remaining on a 16-byte-aligned stack reservation that
// also covers the mandatory 32-byte shadow space.
func (s *selector) lowerCall(mb *MBlock, i *ir.Inst) error {
	stackArgs := 0
	if len(i.CallArgs) > 4 {
		stackArgs = len(i.CallArgs) - 4
	}
	reserve := int64(32 + stackArgs*8)
	if rem := reserve % 16; rem != 0 {
		reserve += 16 - rem
	}
	if reserve > 0 {
		s.emit(mb, &MInst{Op: MAdjustSP, Src1: regPtr(ImmOp(-reserve))})
	}

	for idx, a := range i.CallArgs {
		val := s.valOp(mb, a)
		if idx < 4 {
			p := s.mf.NewPinned(argGPRs[idx])
			s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(p)), Src1: regPtr(val)})
		} else {
			off := int64(32 + (idx-4)*8)
			s.emit(mb, &MInst{Op: MMov, Dst: regPtr(StackArgOp(off)), Src1: regPtr(val)})
		}
	}

	s.emit(mb, &MInst{Op: MCall, Target: i.CallTarget})

	if reserve > 0 {
		s.emit(mb, &MInst{Op: MAdjustSP, Src1: regPtr(ImmOp(reserve))})
	}

	if i.HasResult() {
		raxV := s.mf.NewPinned("rax")
		s.emit(mb, &MInst{Op: MMov, Dst: regPtr(RegOp(i.Dest)), Src1: regPtr(RegOp(raxV)), ImplicitUses: []int{raxV}})
	}
	return nil
}
