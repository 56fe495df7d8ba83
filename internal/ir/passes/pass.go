// Package passes implements the SPEC_FULL.md §D optimizer transformations:
// mem2reg, const-fold, copy-prop, CSE, DCE, canonicalization, CFG
// simplification and out-of-SSA (spec.md §4.3). Every pass implements
// ir.Pass; ordering and fixpoint iteration live in internal/ir/pipeline.
package passes

import (
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// domChildren builds the dominator-tree children map from Block.Idom,
// which ComputeDominators must have already populated.
func domChildren(f *ir.Function) map[*ir.Block][]*ir.Block {
	children := map[*ir.Block][]*ir.Block{}
	entry := f.Entry()
	for _, b := range f.Blocks {
		if b.Idom == nil || b == entry {
			continue
		}
		children[b.Idom] = append(children[b.Idom], b)
	}
	return children
}

// defBlocks returns every block containing at least one instruction
// matching pred, in function block order (deterministic, per spec.md §5).
func defBlocks(f *ir.Function, pred func(*ir.Inst) bool) []*ir.Block {
	var out []*ir.Block
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if pred(i) {
				out = append(out, b)
				break
			}
		}
	}
	return out
}

// refreshCFGAnalyses runs RebuildPreds/ComputeDominators/ComputeDominanceFrontier, the
// three analyses most passes need fresh before they run.
func refreshCFGAnalyses(f *ir.Function) {
	analysis.RebuildPreds(f)
	analysis.ComputeDominators(f)
	analysis.ComputeDominanceFrontier(f)
}
