package ir

// Builder provides a convenience API for emitting instructions into a
// function's current block. It owns none of the SSA-construction
// policy — AST lowering (internal/lower) and the mem2reg pass build SSA
// form on top of this; Builder only guarantees that every emitted
// instruction gets a fresh id/register and is appended in order.
type Builder struct {
	Func *Function
	cur  *Block
}

// NewBuilder returns a builder positioned at no block; call SetBlock or
// create one with Func.NewBlock first.
func NewBuilder(f *Function) *Builder { return &Builder{Func: f} }

// SetBlock repositions the builder's insertion point.
func (b *Builder) SetBlock(blk *Block) { b.cur = blk }

// Block returns the builder's current insertion point.
func (b *Builder) Block() *Block { return b.cur }

func (b *Builder) emit(inst *Inst) *Inst {
	b.cur.Append(inst)
	b.Func.Touch()
	return inst
}

// Binary emits a binary arithmetic/logical instruction and returns its
// result value.
func (b *Builder) Binary(op Opcode, t *Type, lhs, rhs *Value) *Value {
	i := b.Func.NewInst(op, t)
	i.Operands = []*Value{lhs, rhs}
	b.emit(i)
	return RegVal(i.Dest, t)
}

// Neg/Not are unary; the spec models them with a single operand slot.
func (b *Builder) Unary(op Opcode, t *Type, v *Value) *Value {
	i := b.Func.NewInst(op, t)
	i.Operands = []*Value{v}
	b.emit(i)
	return RegVal(i.Dest, t)
}

// Cmp emits a CMP(pred) instruction; its result type is always i1.
func (b *Builder) Cmp(pred Pred, lhs, rhs *Value) *Value {
	i := b.Func.NewInst(OpCmp, I1Type)
	i.CmpPred = pred
	i.Operands = []*Value{lhs, rhs}
	b.emit(i)
	return RegVal(i.Dest, I1Type)
}

// Copy emits a COPY of v.
func (b *Builder) Copy(v *Value) *Value {
	i := b.Func.NewInst(OpCopy, v.Type)
	i.Operands = []*Value{v}
	b.emit(i)
	return RegVal(i.Dest, v.Type)
}

// Alloca emits a stack-slot allocation of type t, producing ptr<t>.
func (b *Builder) Alloca(t *Type) *Value {
	i := b.Func.NewInst(OpAlloca, PtrType(t))
	i.AllocaType = t
	b.emit(i)
	return RegVal(i.Dest, PtrType(t))
}

// Load emits a LOAD from ptr, whose result type is the pointee type.
func (b *Builder) Load(ptr *Value) *Value {
	resType := ptr.Type.Elem
	i := b.Func.NewInst(OpLoad, resType)
	i.Operands = []*Value{ptr}
	b.emit(i)
	return RegVal(i.Dest, resType)
}

// Store emits a STORE of val into ptr.
func (b *Builder) Store(val, ptr *Value) {
	i := b.Func.NewInst(OpStore, VoidType)
	i.Operands = []*Value{ptr, val}
	b.emit(i)
}

// Br emits an unconditional branch.
func (b *Builder) Br(target *Block) {
	i := b.Func.NewInst(OpBr, VoidType)
	i.BrTarget = target
	b.emit(i)
}

// BrCond emits a conditional branch.
func (b *Builder) BrCond(cond *Value, trueB, falseB *Block) {
	i := b.Func.NewInst(OpBrCond, VoidType)
	i.Operands = []*Value{cond}
	i.BrTrue, i.BrFalse = trueB, falseB
	b.emit(i)
}

// Ret emits a return; pass nil for a void return.
func (b *Builder) Ret(v *Value) {
	t := VoidType
	var ops []*Value
	if v != nil {
		t = v.Type
		ops = []*Value{v}
	}
	i := b.Func.NewInst(OpRet, t)
	i.Operands = ops
	b.emit(i)
}

// Call emits a CALL and returns its result value, or nil if retType is nil
// or void.
func (b *Builder) Call(target string, args []*Value, retType *Type) *Value {
	i := b.Func.NewInst(OpCall, retType)
	i.CallTarget = target
	i.CallArgs = args
	b.emit(i)
	if retType == nil || retType.Kind == TypeVoid {
		return nil
	}
	return RegVal(i.Dest, retType)
}

// Phi emits an (initially empty) PHI at the top of the current block and
// returns the PHI instruction itself (its result register is Dest);
// incoming entries are filled in separately
// (mem2reg phase 3, spec.md §4.3.1).
func (b *Builder) Phi(t *Type) *Inst {
	i := b.Func.NewInst(OpPhi, t)
	b.cur.Prepend(i)
	b.Func.Touch()
	return i
}
