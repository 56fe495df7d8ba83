// Package pipeline implements spec.md §4.4: the fixpoint pass manager
// that sequences internal/ir/passes under an optimization level, and the
// IR/SSA verifiers that the manager can run after every iteration under
// the debug gate.
package pipeline

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// VerifyIR checks the structural invariants of spec.md §3.8 that do not
// require SSA form: every block ends in exactly one terminator and
// branches only to blocks of the same function, operand counts match the
// opcode's arity, and the result type of an instruction whose operands
// are typed integers agrees with its operand types.
func VerifyIR(f *ir.Function) error {
	if err := analysis.ValidateCFG(f); err != nil {
		return err
	}
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if err := verifyInst(f, b, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func verifyInst(f *ir.Function, b *ir.Block, i *ir.Inst) error {
	ctx := fmt.Sprintf("function %s, block %s, inst %d (%s)", f.Name, b.Label, i.ID, i.Op)

	switch i.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpAnd, ir.OpOr:
		if err := wantOperands(ctx, i, 2); err != nil {
			return err
		}
		if !i.ResType.IsInt() {
			return fmt.Errorf("%s: result type %s is not an integer type", ctx, i.ResType)
		}
		for idx, o := range i.Operands {
			if !o.Type.Equal(i.ResType) {
				return fmt.Errorf("%s: operand %d has type %s, expected %s", ctx, idx, o.Type, i.ResType)
			}
		}
	case ir.OpNeg, ir.OpNot:
		if err := wantOperands(ctx, i, 1); err != nil {
			return err
		}
		if !i.Operands[0].Type.Equal(i.ResType) {
			return fmt.Errorf("%s: operand type %s does not match result type %s", ctx, i.Operands[0].Type, i.ResType)
		}
	case ir.OpCmp:
		if err := wantOperands(ctx, i, 2); err != nil {
			return err
		}
		if !i.ResType.Equal(ir.I1Type) {
			return fmt.Errorf("%s: cmp result type must be i1, got %s", ctx, i.ResType)
		}
		if !i.Operands[0].Type.Equal(i.Operands[1].Type) {
			return fmt.Errorf("%s: cmp operands have mismatched types %s/%s", ctx, i.Operands[0].Type, i.Operands[1].Type)
		}
	case ir.OpCopy:
		if err := wantOperands(ctx, i, 1); err != nil {
			return err
		}
		if !i.Operands[0].Type.Equal(i.ResType) {
			return fmt.Errorf("%s: copy source type %s does not match result type %s", ctx, i.Operands[0].Type, i.ResType)
		}
	case ir.OpAlloca:
		if i.AllocaType == nil {
			return fmt.Errorf("%s: alloca missing pointee type", ctx)
		}
		if !i.ResType.Equal(ir.PtrType(i.AllocaType)) {
			return fmt.Errorf("%s: alloca result type does not wrap its pointee type", ctx)
		}
	case ir.OpLoad:
		if err := wantOperands(ctx, i, 1); err != nil {
			return err
		}
		if i.Operands[0].Type.Kind != ir.TypePtr {
			return fmt.Errorf("%s: load operand is not a pointer", ctx)
		}
		if !i.Operands[0].Type.Elem.Equal(i.ResType) {
			return fmt.Errorf("%s: load result type does not match pointee", ctx)
		}
	case ir.OpStore:
		if err := wantOperands(ctx, i, 2); err != nil {
			return err
		}
		if i.Operands[0].Type.Kind != ir.TypePtr {
			return fmt.Errorf("%s: store destination is not a pointer", ctx)
		}
		if !i.Operands[0].Type.Elem.Equal(i.Operands[1].Type) {
			return fmt.Errorf("%s: stored value type does not match pointee", ctx)
		}
	case ir.OpBrCond:
		if err := wantOperands(ctx, i, 1); err != nil {
			return err
		}
		if !i.Operands[0].Type.Equal(ir.I1Type) {
			return fmt.Errorf("%s: branch condition must be i1", ctx)
		}
		if i.BrTrue == nil || i.BrFalse == nil {
			return fmt.Errorf("%s: conditional branch missing a target", ctx)
		}
	case ir.OpBr:
		if i.BrTarget == nil {
			return fmt.Errorf("%s: unconditional branch missing a target", ctx)
		}
	case ir.OpRet:
		if f.RetType.Kind == ir.TypeVoid {
			if len(i.Operands) != 0 {
				return fmt.Errorf("%s: void function returns a value", ctx)
			}
		} else {
			if err := wantOperands(ctx, i, 1); err != nil {
				return err
			}
			if !i.Operands[0].Type.Equal(f.RetType) {
				return fmt.Errorf("%s: return type %s does not match function return type %s", ctx, i.Operands[0].Type, f.RetType)
			}
		}
	case ir.OpCall:
		for idx, a := range i.CallArgs {
			if a == nil {
				return fmt.Errorf("%s: call argument %d is nil", ctx, idx)
			}
		}
	case ir.OpPhi:
		if len(i.PhiEntries) == 0 {
			return fmt.Errorf("%s: phi has no incoming entries", ctx)
		}
		for _, e := range i.PhiEntries {
			if !e.Value.Type.Equal(i.ResType) {
				return fmt.Errorf("%s: phi entry from %%%s has type %s, expected %s", ctx, e.Pred.Label, e.Value.Type, i.ResType)
			}
		}
	}
	return nil
}

func wantOperands(ctx string, i *ir.Inst, n int) error {
	if len(i.Operands) != n {
		return fmt.Errorf("%s: expected %d operands, got %d", ctx, n, len(i.Operands))
	}
	return nil
}
