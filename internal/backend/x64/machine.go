// Package x64 implements spec.md §4.5: lowering the IR into a separate
// MachineInst representation (isel), linear-scan register allocation, and
// AT&T-syntax emission targeting the Windows x64 ABI.
package x64

import "fmt"

// MOp enumerates the machine opcodes this backend emits. Unlike ir.Opcode,
// an MOp is already target-specific: there is no generic "binary op", only
// the concrete x86-64 instruction.
type MOp int

const (
	MMov MOp = iota
	MLea
	MAdd
	MSub
	MImul
	MAnd
	MOr
	MNot
	MNeg
	MCqo
	MIdiv
	MCmp
	MSetCC
	MMovzx
	MTest
	MJmp
	MJne
	MCall
	MAdjustSP // sub/add rsp, delta (delta may be negative)
	MRet      // sentinel: emit prints the function's epilogue, then `ret`
)

func (op MOp) String() string {
	switch op {
	case MMov:
		return "mov"
	case MLea:
		return "lea"
	case MAdd:
		return "add"
	case MSub:
		return "sub"
	case MImul:
		return "imul"
	case MAnd:
		return "and"
	case MOr:
		return "or"
	case MNot:
		return "not"
	case MNeg:
		return "neg"
	case MCqo:
		return "cqo"
	case MIdiv:
		return "idiv"
	case MCmp:
		return "cmp"
	case MSetCC:
		return "setcc"
	case MMovzx:
		return "movzx"
	case MTest:
		return "test"
	case MJmp:
		return "jmp"
	case MJne:
		return "jne"
	case MCall:
		return "call"
	case MAdjustSP:
		return "adjustsp"
	case MRet:
		return "ret"
	default:
		return "?"
	}
}

// OperandKind tags the variant held by an Operand.
type OperandKind int

const (
	OKReg   OperandKind = iota // virtual register, pre-allocation
	OKImm                      // signed immediate
	OKMem                      // memory reference, see MemBase
	OKLabel                    // block/function/string-table label
)

// MemBase distinguishes the three addressing modes isel produces. Every
// memory reference the back-end needs reduces to one of these: a frame
// slot (alloca or spill), a stack argument slot at a fixed offset from
// rsp at a call site, or a pointer value already resident in a register.
type MemBase int

const (
	MemRBP MemBase = iota // [rbp - Offset]: alloca and spill slots
	MemRSP                // [rsp + Offset]: outgoing stack arguments
	MemReg                // [Reg]: a pointer value held in a register
)

// Operand is a machine operand. Before register allocation, Reg holds a
// virtual register id (or, for OKMem/MemReg, the vreg holding the base
// pointer); emit.go resolves Reg through the allocation's
// vreg->physical-name map. The only in-place change Allocate makes is
// rewriting a spilled vreg's Reg to its pinned scratch vreg.
type Operand struct {
	Kind    OperandKind
	Reg     int
	Imm     int64
	MemBase MemBase
	Offset  int64
	Label   string
}

// RegOp references the virtual register v.
func RegOp(v int) Operand { return Operand{Kind: OKReg, Reg: v} }

// ImmOp is a signed immediate.
func ImmOp(n int64) Operand { return Operand{Kind: OKImm, Imm: n} }

// FrameOp references a frame-relative slot at rbp-off.
func FrameOp(off int64) Operand { return Operand{Kind: OKMem, MemBase: MemRBP, Offset: off} }

// StackArgOp references an outgoing call argument slot at rsp+off.
func StackArgOp(off int64) Operand { return Operand{Kind: OKMem, MemBase: MemRSP, Offset: off} }

// MemRegOp dereferences the pointer value held in vreg base: [base].
func MemRegOp(base int) Operand { return Operand{Kind: OKMem, MemBase: MemReg, Reg: base} }

// LabelOp is a symbolic target (jump, call, or rip-relative address).
func LabelOp(name string) Operand { return Operand{Kind: OKLabel, Label: name} }

func (o Operand) String() string {
	switch o.Kind {
	case OKReg:
		return fmt.Sprintf("v%d", o.Reg)
	case OKImm:
		return fmt.Sprintf("$%d", o.Imm)
	case OKMem:
		switch o.MemBase {
		case MemRBP:
			return fmt.Sprintf("%d(rbp)", -o.Offset)
		case MemRSP:
			return fmt.Sprintf("%d(rsp)", o.Offset)
		default:
			return fmt.Sprintf("(v%d)", o.Reg)
		}
	case OKLabel:
		return o.Label
	default:
		return "?"
	}
}

// MInst is one machine instruction. Dst/Src1/Src2 carry the operands that
// AT&T emission needs directly; ImplicitUses/ImplicitDefs record registers
// an instruction touches without naming them as an operand (cqo's
// rax->rdx:rax extension, idiv's implicit rax/rdx), purely so liveness
// analysis in RegAlloc sees the whole truth.
type MInst struct {
	Op      MOp
	Dst     *Operand
	Src1    *Operand
	Src2    *Operand
	Pred    cmpPred // MSetCC
	Target  string  // MJmp/MJne/MCall
	Comment string

	ImplicitUses []int
	ImplicitDefs []int
}

// cmpPred mirrors ir.Pred without importing ir into the operand-rendering
// path; isel.go converts from ir.Pred at lowering time.
type cmpPred int

const (
	predEQ cmpPred = iota
	predNE
	predLT
	predLE
	predGT
	predGE
)

func (p cmpPred) setcc() string {
	switch p {
	case predEQ:
		return "sete"
	case predNE:
		return "setne"
	case predLT:
		return "setl"
	case predLE:
		return "setle"
	case predGT:
		return "setg"
	case predGE:
		return "setge"
	default:
		return "sete"
	}
}

// MBlock is a labeled run of machine instructions, mirroring ir.Block.
// Label is the source IR block label (MFunction.block looks a block up by
// it); ID is the function-unique block number that isel's jump/branch
// targets and emission's block labels both use to build the
// `.Lblock_<fn>_<id>` symbol spec.md §6.3 requires.
type MBlock struct {
	Label string
	ID    int
	Insts []*MInst
}

// MFunction is the machine-level counterpart of ir.Function (spec.md
// §4.5: "a separate MachineInst representation, not IR").
type MFunction struct {
	Name     string
	External bool
	Blocks   []*MBlock

	nextVReg int
	Pinned   map[int]string // vreg -> forced physical register name

	AllocaOffsets map[int]int64 // alloca dest vreg -> rbp-relative offset (positive)
	frameCursor   int64         // running alloca allocation cursor

	FrameSize   int64    // finalized by RegAlloc once spill slots are known
	CalleeSaved []string // callee-saved physical regs actually assigned, filled by RegAlloc
}

// NewMFunction creates an empty machine function.
func NewMFunction(name string) *MFunction {
	return &MFunction{
		Name:          name,
		Pinned:        map[int]string{},
		AllocaOffsets: map[int]int64{},
	}
}

// NewVReg mints a fresh, unpinned virtual register.
func (mf *MFunction) NewVReg() int {
	v := mf.nextVReg
	mf.nextVReg++
	return v
}

// NewPinned mints a fresh virtual register forced to physical register
// name phys at allocation time (spec.md §4.5.1 "reserved special vreg
// ids that the allocator pins").
func (mf *MFunction) NewPinned(phys string) int {
	v := mf.NewVReg()
	mf.Pinned[v] = phys
	return v
}

// block looks up (creating if absent is never needed: isel pre-creates
// every block up front) the MBlock for label.
func (mf *MFunction) block(label string) *MBlock {
	for _, b := range mf.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// AllInsts returns every instruction across every block in emission
// order, paired with its flat index — the numbering RegAlloc's
// linear-scan operates over (spec.md §4.5.2 step 1).
func (mf *MFunction) AllInsts() []*MInst {
	var out []*MInst
	for _, b := range mf.Blocks {
		out = append(out, b.Insts...)
	}
	return out
}

// GeneralPool is the set of physical general-purpose registers the linear
// scan allocator may assign to an unpinned vreg (spec.md §4.5.2 step 4).
// rax, rcx, rdx, r8, r9 are reserved for ABI/semantic pins; rbp and rsp
// are never allocated; r10 and r11 are reserved as dedicated spill-fixup
// scratch registers (see regalloc.go) rather than joining the general
// pool, so a spilled value's reload can never collide with a live
// allocation even when two spilled operands appear in the same
// instruction (CMP's lhs/rhs).
var GeneralPool = []string{"rbx", "r12", "r13", "r14", "r15"}

// CalleeSavedRegs is the subset of GeneralPool that must be saved/restored
// around the function body if the allocator assigns it (Windows x64 ABI).
// Every member of GeneralPool happens to be callee-saved, which is why
// CALL needs no implicit-clobber bookkeeping for allocated values.
var CalleeSavedRegs = map[string]bool{
	"rbx": true, "r12": true, "r13": true, "r14": true, "r15": true,
}

// SpillScratch holds the two physical registers reserved exclusively for
// reload/spill fixup code inserted by RegAlloc.
var SpillScratch = [2]string{"r11", "r10"}
