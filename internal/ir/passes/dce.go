package passes

import (
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// DCE implements spec.md §4.3.5: deletes instructions that define a
// register with zero remaining uses and have no side effects, plus whole
// blocks that are unreachable from the entry block after CFG-mutating
// passes have run. Dead-code deletion is iterated to a local fixpoint
// within one Run, since deleting a use can make its def dead in turn.
type DCE struct{}

func (DCE) Name() string       { return "dce" }
func (DCE) ArabicName() string { return "حذف_الميت" }

func (DCE) Run(f *ir.Function) bool {
	changed := false

	if removeUnreachableBlocks(f) {
		changed = true
	}

	for {
		du := analysis.BuildDefUse(f)
		var toDelete []*ir.Inst
		for _, b := range f.Blocks {
			for i := b.First; i != nil; i = i.Next {
				if i.HasSideEffects() || !i.HasResult() {
					continue
				}
				if du.NumUses(i.Dest) == 0 {
					toDelete = append(toDelete, i)
				}
			}
		}
		if len(toDelete) == 0 {
			break
		}
		for _, i := range toDelete {
			i.Block.Remove(i)
		}
		changed = true
	}

	if changed {
		f.Touch()
	}
	return changed
}

// removeUnreachableBlocks drops every block not reachable from the entry
// block by a forward CFG walk, and scrubs their entries out of any
// surviving successor's phi nodes and predecessor lists.
func removeUnreachableBlocks(f *ir.Function) bool {
	analysis.RebuildPreds(f)
	entry := f.Entry()
	if entry == nil {
		return false
	}

	reachable := map[*ir.Block]bool{entry: true}
	worklist := []*ir.Block{entry}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, s := range b.Succs {
			if !reachable[s] {
				reachable[s] = true
				worklist = append(worklist, s)
			}
		}
	}

	var dead []*ir.Block
	for _, b := range f.Blocks {
		if !reachable[b] {
			dead = append(dead, b)
		}
	}
	if len(dead) == 0 {
		return false
	}

	for _, b := range f.Blocks {
		if !reachable[b] {
			continue
		}
		for i := b.First; i != nil; i = i.Next {
			if i.Op != ir.OpPhi {
				continue
			}
			kept := i.PhiEntries[:0]
			for _, e := range i.PhiEntries {
				if reachable[e.Pred] {
					kept = append(kept, e)
				}
			}
			i.PhiEntries = kept
		}
	}

	for _, b := range dead {
		f.RemoveBlock(b)
	}
	analysis.RebuildPreds(f)
	return true
}
