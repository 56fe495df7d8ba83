package analysis

import "github.com/OmarAglan/baa/internal/ir"

// postorder returns blocks in postorder DFS from entry, along with a
// reverse-postorder index map used by the Cooper/Harvey/Kennedy dominator
// algorithm below.
func postorder(entry *ir.Block) ([]*ir.Block, map[*ir.Block]int) {
	var order []*ir.Block
	visited := map[*ir.Block]bool{}
	var visit func(b *ir.Block)
	visit = func(b *ir.Block) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range b.Succs {
			visit(s)
		}
		order = append(order, b)
	}
	visit(entry)

	// Reverse-postorder index: entry is 0, and a lower index means earlier
	// in reverse postorder (closer to entry).
	rpoIndex := map[*ir.Block]int{}
	n := len(order)
	for i, b := range order {
		rpoIndex[b] = n - 1 - i
	}
	return order, rpoIndex
}

// ComputeDominators implements the iterative data-flow algorithm of
// spec.md §4.2 (Cooper/Harvey/Kennedy): seeds idom(entry)=entry, iterates
// in reverse postorder intersecting processed-predecessor idoms until
// convergence. Requires RebuildPreds to have been called already. Sets
// Block.Idom on every reachable block; unreachable blocks are left with a
// nil Idom.
func ComputeDominators(f *ir.Function) {
	entry := f.Entry()
	if entry == nil {
		return
	}
	postorderBlocks, rpoIndex := postorder(entry)

	// Process in reverse postorder (i.e. the reverse of the postorder
	// slice, which is itself already "last visited first").
	rpo := make([]*ir.Block, len(postorderBlocks))
	for i, b := range postorderBlocks {
		rpo[len(postorderBlocks)-1-i] = b
	}

	for _, b := range f.Blocks {
		b.Idom = nil
	}
	entry.Idom = entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == entry {
				continue
			}
			var newIdom *ir.Block
			for _, p := range b.Preds {
				if p.Idom == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, rpoIndex)
			}
			if newIdom == nil {
				continue
			}
			if b.Idom != newIdom {
				b.Idom = newIdom
				changed = true
			}
		}
	}
}

func intersect(a, b *ir.Block, rpoIndex map[*ir.Block]int) *ir.Block {
	for a != b {
		for rpoIndex[a] > rpoIndex[b] {
			a = a.Idom
		}
		for rpoIndex[b] > rpoIndex[a] {
			b = b.Idom
		}
	}
	return a
}

// Dominates reports whether a dominates b (every path from entry to b
// passes through a). a dominates itself.
func Dominates(a, b *ir.Block) bool {
	cur := b
	for {
		if cur == a {
			return true
		}
		if cur.Idom == nil || cur.Idom == cur {
			return false // reached entry without matching a
		}
		cur = cur.Idom
	}
}

// ComputeDominanceFrontier implements spec.md §4.2: for each block b with
// >=2 preds, walk each predecessor up the idom chain until reaching
// idom(b), adding b to every walked block's DF. Requires ComputeDominators
// to have run already.
func ComputeDominanceFrontier(f *ir.Function) {
	for _, b := range f.Blocks {
		b.DomFrontier = nil
	}
	for _, b := range f.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != nil && runner != b.Idom {
				if !containsBlock(runner.DomFrontier, b) {
					runner.DomFrontier = append(runner.DomFrontier, b)
				}
				if runner.Idom == runner {
					break // reached entry
				}
				runner = runner.Idom
			}
		}
	}
}

func containsBlock(list []*ir.Block, b *ir.Block) bool {
	for _, x := range list {
		if x == b {
			return true
		}
	}
	return false
}

// IteratedDominanceFrontier computes DF+(defs): repeatedly add DF(b) for
// every b already in the set until fixpoint (spec.md §4.3.1 phase 2).
func IteratedDominanceFrontier(defs []*ir.Block) []*ir.Block {
	inSet := map[*ir.Block]bool{}
	var worklist []*ir.Block
	for _, d := range defs {
		if !inSet[d] {
			inSet[d] = true
			worklist = append(worklist, d)
		}
	}
	var result []*ir.Block
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, df := range b.DomFrontier {
			if !containsBlock(result, df) {
				result = append(result, df)
			}
			if !inSet[df] {
				inSet[df] = true
				worklist = append(worklist, df)
			}
		}
	}
	return result
}
