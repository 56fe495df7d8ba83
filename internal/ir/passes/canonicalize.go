package passes

import "github.com/OmarAglan/baa/internal/ir"

// Canonicalize implements spec.md §4.3.6: puts commutative operands and
// CMP predicates into a single canonical form so that later CSE sees the
// same key for semantically identical expressions regardless of the
// order the front end emitted them in. A constant operand is always
// moved to the right-hand side; ties are broken by register number so
// the relation stays deterministic.
type Canonicalize struct{}

func (Canonicalize) Name() string       { return "canonicalize" }
func (Canonicalize) ArabicName() string { return "توحيد_الـIR" }

func (Canonicalize) Run(f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if canonicalizeInst(i) {
				changed = true
			}
		}
	}
	if changed {
		f.Touch()
	}
	return changed
}

func canonicalizeInst(i *ir.Inst) bool {
	switch {
	case i.IsCommutative() && len(i.Operands) == 2:
		if shouldSwap(i.Operands[0], i.Operands[1]) {
			i.Operands[0], i.Operands[1] = i.Operands[1], i.Operands[0]
			return true
		}
	case i.Op == ir.OpCmp && len(i.Operands) == 2:
		// spec.md §4.3.6: only a constant-LHS/register-RHS CMP is
		// canonicalized; register/register order is left alone.
		if i.Operands[0].IsConst() && !i.Operands[1].IsConst() {
			i.Operands[0], i.Operands[1] = i.Operands[1], i.Operands[0]
			i.CmpPred = i.CmpPred.Swap()
			return true
		}
	}
	return false
}

// shouldSwap reports whether lhs/rhs are out of canonical order: a
// constant must never precede a register, and among two registers the
// lower-numbered one comes first.
func shouldSwap(lhs, rhs *ir.Value) bool {
	lRank, rRank := rank(lhs), rank(rhs)
	if lRank != rRank {
		return lRank > rRank
	}
	if lhs.Kind == ir.ValReg && rhs.Kind == ir.ValReg {
		return lhs.Reg > rhs.Reg
	}
	return false
}

// rank orders operand kinds for canonical placement: registers first,
// then constants, so that `add %r, 5` is preferred over `add 5, %r`.
func rank(v *ir.Value) int {
	if v.Kind == ir.ValReg {
		return 0
	}
	return 1
}
