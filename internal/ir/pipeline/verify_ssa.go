package pipeline

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// VerifySSA checks the SSA-form invariants of spec.md §3.8: every
// register has exactly one defining instruction (or is a parameter), and
// every use of a register is dominated by its definition — for an
// ordinary operand, the defining block must dominate the using block (or
// precede it within the same block); for a phi incoming value, the
// defining block must dominate the corresponding predecessor block.
// Requires dominators to already be computed.
func VerifySSA(f *ir.Function) error {
	defBlock := map[int]*ir.Block{}
	defOrder := map[int]int{}
	order := 0
	for _, p := range f.Params {
		defBlock[p.Reg] = f.Entry()
		defOrder[p.Reg] = -1 // parameters dominate every in-block use
	}
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if !i.HasResult() {
				continue
			}
			if prior, ok := defBlock[i.Dest]; ok {
				return fmt.Errorf("function %s: register %%%d redefined in block %s (already defined in %s)",
					f.Name, i.Dest, b.Label, prior.Label)
			}
			defBlock[i.Dest] = b
			defOrder[i.Dest] = order
			order++
		}
	}

	pos := map[*ir.Inst]int{}
	n := 0
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			pos[i] = n
			n++
		}
	}

	check := func(v *ir.Value, useBlock *ir.Block, useInst *ir.Inst) error {
		if v == nil || v.Kind != ir.ValReg {
			return nil
		}
		db, ok := defBlock[v.Reg]
		if !ok {
			return fmt.Errorf("function %s: use of undefined register %%%d in block %s", f.Name, v.Reg, useBlock.Label)
		}
		if db == useBlock {
			if defOrder[v.Reg] == -1 {
				return nil
			}
			if pos[findDef(f, v.Reg)] >= pos[useInst] {
				return fmt.Errorf("function %s: register %%%d used in block %s before its definition", f.Name, v.Reg, useBlock.Label)
			}
			return nil
		}
		if !analysis.Dominates(db, useBlock) {
			return fmt.Errorf("function %s: definition of %%%d in block %s does not dominate use in block %s",
				f.Name, v.Reg, db.Label, useBlock.Label)
		}
		return nil
	}

	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.Op == ir.OpPhi {
				for _, e := range i.PhiEntries {
					if e.Value == nil || e.Value.Kind != ir.ValReg {
						continue
					}
					db, ok := defBlock[e.Value.Reg]
					if !ok {
						return fmt.Errorf("function %s: phi in block %s uses undefined register %%%d", f.Name, b.Label, e.Value.Reg)
					}
					if defOrder[e.Value.Reg] != -1 && !analysis.Dominates(db, e.Pred) {
						return fmt.Errorf("function %s: phi incoming value %%%d from %s is not dominated by its definition in %s",
							f.Name, e.Value.Reg, e.Pred.Label, db.Label)
					}
				}
				continue
			}
			for _, o := range i.Operands {
				if err := check(o, b, i); err != nil {
					return err
				}
			}
			for _, a := range i.CallArgs {
				if err := check(a, b, i); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func findDef(f *ir.Function, reg int) *ir.Inst {
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.HasResult() && i.Dest == reg {
				return i
			}
		}
	}
	return nil
}
