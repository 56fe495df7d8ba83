package passes

import (
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// ConstFold implements spec.md §4.3.2: folds arithmetic/comparison
// instructions whose operands are all ConstInt, two's-complement wrap on
// overflow, truncating division/modulo, INT64_MIN/-1 safe-wrapped,
// division/modulo by zero left unfolded.
type ConstFold struct{}

func (ConstFold) Name() string       { return "constfold" }
func (ConstFold) ArabicName() string { return "طي_الثوابت" }

func (ConstFold) Run(f *ir.Function) bool {
	du := analysis.BuildDefUse(f)
	changed := false
	var toDelete []*ir.Inst

	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			folded, ok := tryFold(i)
			if !ok {
				continue
			}
			du.ReplaceAllUses(i.Dest, folded)
			toDelete = append(toDelete, i)
			changed = true
		}
	}
	for _, i := range toDelete {
		i.Block.Remove(i)
	}
	if changed {
		f.Touch()
	}
	return changed
}

func tryFold(i *ir.Inst) (*ir.Value, bool) {
	switch i.Op {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpMod, ir.OpAnd, ir.OpOr:
		if !i.Operands[0].IsConst() || !i.Operands[1].IsConst() {
			return nil, false
		}
		return foldBinary(i.Op, i.Operands[0].IntVal, i.Operands[1].IntVal, i.ResType)
	case ir.OpNeg, ir.OpNot:
		if !i.Operands[0].IsConst() {
			return nil, false
		}
		return foldUnary(i.Op, i.Operands[0].IntVal, i.ResType)
	case ir.OpCmp:
		if !i.Operands[0].IsConst() || !i.Operands[1].IsConst() {
			return nil, false
		}
		return foldCmp(i.CmpPred, i.Operands[0].IntVal, i.Operands[1].IntVal)
	default:
		return nil, false
	}
}

func foldBinary(op ir.Opcode, a, b int64, t *ir.Type) (*ir.Value, bool) {
	ua, ub := uint64(a), uint64(b)
	var res int64
	switch op {
	case ir.OpAdd:
		res = int64(ua + ub)
	case ir.OpSub:
		res = int64(ua - ub)
	case ir.OpMul:
		res = int64(ua * ub)
	case ir.OpDiv:
		if b == 0 {
			return nil, false // not folded (spec.md §4.3.2)
		}
		if a == minInt64 && b == -1 {
			res = minInt64 // safe wrap, not UB
		} else {
			res = a / b // truncation toward zero (Go's / already does this)
		}
	case ir.OpMod:
		if b == 0 {
			return nil, false
		}
		if a == minInt64 && b == -1 {
			res = 0
		} else {
			res = a % b
		}
	case ir.OpAnd:
		res = int64(ua & ub)
	case ir.OpOr:
		res = int64(ua | ub)
	default:
		return nil, false
	}
	return ir.ConstInt(truncSext(res, t), t), true
}

func foldUnary(op ir.Opcode, a int64, t *ir.Type) (*ir.Value, bool) {
	switch op {
	case ir.OpNeg:
		return ir.ConstInt(truncSext(int64(-uint64(a)), t), t), true
	case ir.OpNot:
		return ir.ConstInt(truncSext(^a, t), t), true
	default:
		return nil, false
	}
}

func foldCmp(pred ir.Pred, a, b int64) (*ir.Value, bool) {
	var res bool
	switch pred {
	case ir.PredEQ:
		res = a == b
	case ir.PredNE:
		res = a != b
	case ir.PredLT:
		res = a < b
	case ir.PredLE:
		res = a <= b
	case ir.PredGT:
		res = a > b
	case ir.PredGE:
		res = a >= b
	}
	if res {
		return ir.ConstInt(1, ir.I1Type), true
	}
	return ir.ConstInt(0, ir.I1Type), true
}

const minInt64 = int64(-1) << 63

// truncSext implements spec.md §4.3.2's "i1 normalization" and
// truncate-and-sign-extend rule: i1 is never sign-extended (any non-zero
// becomes 1), every other integer type is masked to its width and then
// sign-extended.
func truncSext(v int64, t *ir.Type) int64 {
	if t.Kind == ir.TypeI1 {
		if v != 0 {
			return 1
		}
		return 0
	}
	bits := t.Bits()
	if bits <= 0 || bits >= 64 {
		return v
	}
	mask := uint64(1)<<uint(bits) - 1
	u := uint64(v) & mask
	signBit := uint64(1) << uint(bits-1)
	if u&signBit != 0 {
		u |= ^mask
	}
	return int64(u)
}
