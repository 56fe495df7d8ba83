package passes

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// CFGSimplify implements spec.md §4.3.7: dissolves trivial blocks (a
// single unconditional BR and no phis) by retargeting their predecessors
// to the successor, and splits critical edges so that later phi placement and out-of-SSA copy
// insertion always have a private block to land copies in.
type CFGSimplify struct{}

func (CFGSimplify) Name() string       { return "cfgsimplify" }
func (CFGSimplify) ArabicName() string { return "تبسيط_CFG" }

func (CFGSimplify) Run(f *ir.Function) bool {
	changed := false
	if collapseSameTargetBrCond(f) {
		changed = true
	}
	if dissolveTrivialBlocks(f) {
		changed = true
	}
	if splitCriticalEdges(f) {
		changed = true
	}
	if changed {
		f.Touch()
	}
	return changed
}

// collapseSameTargetBrCond rewrites `br_cond cond, X, X` into `br X`
// (spec.md §4.3.7): the condition is dead once both arms agree, so the
// branch itself degenerates into an unconditional jump.
func collapseSameTargetBrCond(f *ir.Function) bool {
	changed := false
	for _, b := range f.Blocks {
		term := b.Terminator()
		if term == nil || term.Op != ir.OpBrCond {
			continue
		}
		if term.BrTrue != term.BrFalse {
			continue
		}
		target := term.BrTrue
		term.Op = ir.OpBr
		term.Operands = nil
		term.BrTarget = target
		term.BrTrue, term.BrFalse = nil, nil
		changed = true
	}
	if changed {
		analysis.RebuildPreds(f)
	}
	return changed
}

// dissolveTrivialBlocks removes a block B that contains only an
// unconditional BR to successor S and has no phis of its own, by
// retargeting every predecessor's branch straight to S. The entry block
// is never dissolved. If S has phis, dissolving B would merge B's
// incoming edge into whichever predecessor replaces it; that is only
// sound when B has exactly one predecessor, in which case S's phi
// entries naming B are retargeted to that predecessor (spec.md §4.3.7,
// §3.8 invariant 6 "exactly one incoming entry per predecessor"). With
// more than one predecessor, dissolving would collapse several distinct
// incoming edges into one phi entry, so B is left in place instead.
func dissolveTrivialBlocks(f *ir.Function) bool {
	analysis.RebuildPreds(f)
	changed := false

	for {
		progressed := false
		for _, b := range f.Blocks {
			if b == f.Entry() {
				continue
			}
			if len(b.Phis()) != 0 {
				continue
			}
			if b.First == nil || b.First != b.Last || b.First.Op != ir.OpBr {
				continue
			}
			target := b.First.BrTarget
			if target == b {
				continue
			}
			targetPhis := target.Phis()
			if len(targetPhis) != 0 && len(b.Preds) != 1 {
				continue
			}
			if len(targetPhis) != 0 {
				pred := b.Preds[0]
				for _, phi := range targetPhis {
					for _, e := range phi.PhiEntries {
						if e.Pred == b {
							e.Pred = pred
						}
					}
				}
			}
			for _, pred := range append([]*ir.Block{}, b.Preds...) {
				retarget(pred, b, target)
			}
			f.RemoveBlock(b)
			progressed = true
			changed = true
			break
		}
		if !progressed {
			break
		}
		analysis.RebuildPreds(f)
	}
	return changed
}

func retarget(pred, from, to *ir.Block) {
	term := pred.Terminator()
	if term == nil {
		return
	}
	switch term.Op {
	case ir.OpBr:
		if term.BrTarget == from {
			term.BrTarget = to
		}
	case ir.OpBrCond:
		if term.BrTrue == from {
			term.BrTrue = to
		}
		if term.BrFalse == from {
			term.BrFalse = to
		}
	}
}

// splitCriticalEdges inserts an empty block on every edge whose source
// has multiple successors and whose destination has multiple
// predecessors, so later passes (phi renaming, out-of-SSA parallel-copy
// insertion) always have a safe place to insert code for that edge
// alone (spec.md §4.3.7, §4.3.8).
func splitCriticalEdges(f *ir.Function) bool {
	analysis.RebuildPreds(f)
	changed := false
	n := 0

	for {
		var critical *ir.Inst
		var from, to *ir.Block
		var isTrue bool
		for _, b := range f.Blocks {
			term := b.Terminator()
			if term == nil || term.Op != ir.OpBrCond {
				continue
			}
			if len(term.BrTrue.Preds) > 1 {
				critical, from, to, isTrue = term, b, term.BrTrue, true
				break
			}
			if len(term.BrFalse.Preds) > 1 {
				critical, from, to, isTrue = term, b, term.BrFalse, false
				break
			}
		}
		if critical == nil {
			break
		}

		n++
		split := f.NewBlock(fmt.Sprintf("critedge_%d", n))
		bld := ir.NewBuilder(f)
		bld.SetBlock(split)
		bld.Br(to)

		if isTrue {
			critical.BrTrue = split
		} else {
			critical.BrFalse = split
		}

		for i := to.First; i != nil && i.Op == ir.OpPhi; i = i.Next {
			for _, e := range i.PhiEntries {
				if e.Pred == from {
					e.Pred = split
				}
			}
		}

		changed = true
		analysis.RebuildPreds(f)
	}
	return changed
}
