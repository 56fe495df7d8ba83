package passes

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// CSE implements spec.md §4.3.4: common-subexpression elimination keyed
// on (opcode, cmp predicate, result type, operand signature). Only pure
// instructions (IsPure) participate; the first-seen instruction of a
// given key in dominator-tree preorder wins and later equivalents are
// rewritten to its result.
type CSE struct{}

func (CSE) Name() string       { return "cse" }
func (CSE) ArabicName() string { return "حذف_المكرر" }

func (CSE) Run(f *ir.Function) bool {
	refreshCFGAnalyses(f)
	du := analysis.BuildDefUse(f)
	children := domChildren(f)

	seen := map[string]*ir.Inst{}
	var toDelete []*ir.Inst
	changed := false

	var walk func(b *ir.Block)
	walk = func(b *ir.Block) {
		for i := b.First; i != nil; i = i.Next {
			if !i.IsPure() || !i.HasResult() {
				continue
			}
			key := cseKey(i)
			if prior, ok := seen[key]; ok {
				du.ReplaceAllUses(i.Dest, ir.RegVal(prior.Dest, prior.ResType))
				toDelete = append(toDelete, i)
				changed = true
				continue
			}
			seen[key] = i
		}
		for _, c := range children[b] {
			walk(c)
		}
	}
	walk(f.Entry())

	for _, i := range toDelete {
		i.Block.Remove(i)
	}
	if changed {
		f.Touch()
	}
	return changed
}

// cseKey canonicalizes commutative operand order before hashing, so that
// `add a,b` and `add b,a` collide (spec.md §4.3.6 interacts with §4.3.4).
func cseKey(i *ir.Inst) string {
	ops := make([]*ir.Value, len(i.Operands))
	copy(ops, i.Operands)
	if i.IsCommutative() && len(ops) == 2 && operandLess(ops[1], ops[0]) {
		ops[0], ops[1] = ops[1], ops[0]
	}
	key := fmt.Sprintf("%d|%d|%s", i.Op, i.CmpPred, i.ResType)
	for _, o := range ops {
		key += "|" + operandSig(o)
	}
	return key
}

func operandSig(v *ir.Value) string {
	switch v.Kind {
	case ir.ValConstInt:
		return fmt.Sprintf("c%d", v.IntVal)
	case ir.ValConstStr:
		return fmt.Sprintf("s%d", v.StrID)
	case ir.ValReg:
		return fmt.Sprintf("r%d", v.Reg)
	case ir.ValGlobal:
		return "g" + v.Name
	case ir.ValFuncRef:
		return "f" + v.Name
	default:
		return "?"
	}
}

// operandLess gives a stable ordering used only to canonicalize
// commutative operand pairs; it has no semantic meaning beyond that.
func operandLess(a, b *ir.Value) bool {
	return operandSig(a) < operandSig(b)
}
