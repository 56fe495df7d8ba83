// Package analysis implements the IR analyses of spec.md §4.2: CFG
// validation, predecessor/successor rebuild, dominator trees, dominance
// frontiers and def-use chains.
package analysis

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
)

// RebuildPreds recomputes block.Preds/Succs from terminators. Idempotent;
// must be called after any CFG edit (spec.md §4.2).
func RebuildPreds(f *ir.Function) {
	for _, b := range f.Blocks {
		b.Preds = nil
		b.Succs = nil
	}
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil {
			continue
		}
		for _, s := range successorsOf(term) {
			b.Succs = append(b.Succs, s)
			s.Preds = append(s.Preds, b)
		}
	}
}

func successorsOf(term *ir.Inst) []*ir.Block {
	switch term.Op {
	case ir.OpBr:
		return []*ir.Block{term.BrTarget}
	case ir.OpBrCond:
		return []*ir.Block{term.BrTrue, term.BrFalse}
	default: // OpRet
		return nil
	}
}

// ValidateCFG checks: every block has a terminator which is its sole
// terminator, and every branch target is a block of the same function
// (spec.md §4.2, §3.8 invariant 1).
func ValidateCFG(f *ir.Function) error {
	blockSet := map[*ir.Block]bool{}
	for _, b := range f.Blocks {
		blockSet[b] = true
	}
	for _, b := range f.Blocks {
		if len(b.Insts()) == 0 {
			return fmt.Errorf("function %s: block %s has no instructions (missing terminator)", f.Name, b.Label)
		}
		term := b.Terminator()
		if term == nil {
			return fmt.Errorf("function %s: block %s does not end with a terminator", f.Name, b.Label)
		}
		for i := b.First; i != nil; i = i.Next {
			if i != term && i.IsTerminator() {
				return fmt.Errorf("function %s: block %s has a non-final terminator (inst %d)", f.Name, b.Label, i.ID)
			}
		}
		for _, s := range successorsOf(term) {
			if s == nil || !blockSet[s] {
				return fmt.Errorf("function %s: block %s branches to a block outside the function", f.Name, b.Label)
			}
		}
	}
	return nil
}
