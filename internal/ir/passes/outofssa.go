package passes

import "github.com/OmarAglan/baa/internal/ir"

// OutOfSSA implements spec.md §4.3.8: replaces every PHI with parallel
// copies inserted at the end of each predecessor block (just before its
// terminator), so the program no longer needs SSA form to execute
// correctly on a register machine. Requires critical edges to already be
// split (CFGSimplify must run first in the pipeline) so that a copy
// inserted for one predecessor can never be observed along an edge that
// also reaches a different successor.
type OutOfSSA struct{}

func (OutOfSSA) Name() string       { return "out_of_ssa" }
func (OutOfSSA) ArabicName() string { return "خروج_من_SSA" }

func (OutOfSSA) Run(f *ir.Function) bool {
	changed := false

	for _, b := range f.Blocks {
		phis := b.Phis()
		if len(phis) == 0 {
			continue
		}
		changed = true

		byPred := map[*ir.Block][]copyMove{}
		for _, phi := range phis {
			for _, e := range phi.PhiEntries {
				byPred[e.Pred] = append(byPred[e.Pred], copyMove{
					dstReg:  phi.Dest,
					dstType: phi.ResType,
					src:     e.Value,
				})
			}
		}

		for pred, moves := range byPred {
			insertParallelCopies(f, pred, moves)
		}

		for i := b.First; i != nil && i.Op == ir.OpPhi; {
			next := i.Next
			b.Remove(i)
			i = next
		}
	}

	if changed {
		f.Touch()
	}
	return changed
}

type copyMove struct {
	dstReg  int
	dstType *ir.Type
	src     *ir.Value
}

// insertParallelCopies schedules moves so that a destination which is
// also a source of another pending move is never clobbered before it is
// read (spec.md §4.3.8 "parallel-copy scheduling"). Cycles (two or more
// registers that mutually depend on one another) are broken with a
// scratch register holding one member's original value.
func insertParallelCopies(f *ir.Function, pred *ir.Block, moves []copyMove) {
	term := pred.Terminator()

	pending := make([]copyMove, len(moves))
	copy(pending, moves)

	srcIsReg := func(m copyMove) (int, bool) {
		if m.src.Kind == ir.ValReg {
			return m.src.Reg, true
		}
		return 0, false
	}

	destRegs := map[int]bool{}
	for _, m := range pending {
		destRegs[m.dstReg] = true
	}

	emit := func(dstReg int, dstType *ir.Type, src *ir.Value) {
		i := f.NewInst(ir.OpCopy, dstType)
		i.Dest = dstReg
		i.Operands = []*ir.Value{src.Clone()}
		pred.InsertBefore(term, i)
	}

	scratch := map[int]int{} // original reg -> scratch reg holding saved value
	for len(pending) > 0 {
		progressed := false
		for idx := 0; idx < len(pending); idx++ {
			m := pending[idx]
			srcReg, isReg := srcIsReg(m)
			_, saved := scratch[srcReg]
			blocked := isReg && !saved && destRegs[srcReg] && stillPending(pending, srcReg)
			if blocked {
				continue
			}
			src := m.src
			if isReg {
				if s, ok := scratch[srcReg]; ok {
					src = ir.RegVal(s, m.dstType)
				}
			}
			emit(m.dstReg, m.dstType, src)
			delete(destRegs, m.dstReg)
			pending = append(pending[:idx], pending[idx+1:]...)
			progressed = true
			break
		}
		if !progressed && len(pending) > 0 {
			// A cycle remains: save the victim's destination's current
			// value to a scratch register (T = dest), then perform the
			// victim's own copy immediately. Any other pending move that
			// reads dest as its source picks up the scratch register
			// instead, via the scratch lookup above, since dest no longer
			// holds its original value.
			victim := pending[0]
			dstReg := victim.dstReg
			s := f.NewReg()
			emit(s, victim.dstType, ir.RegVal(dstReg, victim.dstType))
			scratch[dstReg] = s

			srcReg, isReg := srcIsReg(victim)
			src := victim.src
			if isReg {
				if ss, ok := scratch[srcReg]; ok {
					src = ir.RegVal(ss, victim.dstType)
				}
			}
			emit(dstReg, victim.dstType, src)
			delete(destRegs, dstReg)
			pending = pending[1:]
		}
	}
}

func stillPending(pending []copyMove, reg int) bool {
	for _, m := range pending {
		if m.dstReg == reg {
			return true
		}
	}
	return false
}
