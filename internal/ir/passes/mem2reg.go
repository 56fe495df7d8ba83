package passes

import (
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// Mem2Reg implements spec.md §4.3.1: replaces promotable stack variables
// with SSA registers via phi insertion at the iterated dominance frontier
// and dominator-tree-order renaming.
type Mem2Reg struct{}

func (Mem2Reg) Name() string       { return "mem2reg" }
func (Mem2Reg) ArabicName() string { return "رفع_إلى_SSA" }

func (m Mem2Reg) Run(f *ir.Function) bool {
	refreshCFGAnalyses(f)
	du := analysis.BuildDefUse(f)

	allocas := promotableAllocas(f, du)
	if len(allocas) == 0 {
		return false
	}

	phisOf := map[*ir.Inst]map[*ir.Block]*ir.Inst{} // alloca -> block -> phi inst
	for _, a := range allocas {
		pointee := a.AllocaType
		defs := defBlocks(f, func(i *ir.Inst) bool {
			return i.Op == ir.OpStore && sameReg(i.Operands[0], a)
		})
		sites := analysis.IteratedDominanceFrontier(defs)
		phisOf[a] = map[*ir.Block]*ir.Inst{}
		for _, site := range sites {
			phi := f.NewInst(ir.OpPhi, pointee)
			site.Prepend(phi)
			phisOf[a][site] = phi
		}
	}

	children := domChildren(f)
	stacks := map[*ir.Inst][]*ir.Value{}
	toDelete := map[*ir.Inst]bool{}

	var rename func(b *ir.Block)
	rename = func(b *ir.Block) {
		pushed := map[*ir.Inst]int{} // alloca -> number of pushes made here

		for _, a := range allocas {
			if phi, ok := phisOf[a][b]; ok {
				stacks[a] = append(stacks[a], ir.RegVal(phi.Dest, a.AllocaType))
				pushed[a]++
			}
		}

		for i := b.First; i != nil; i = i.Next {
			if i.Op == ir.OpStore {
				if a := allocaOperand(i.Operands[0], allocas); a != nil {
					stacks[a][len(stacks[a])-1] = i.Operands[1].Clone()
					toDelete[i] = true
					continue
				}
			}
			if i.Op == ir.OpLoad {
				if a := allocaOperand(i.Operands[0], allocas); a != nil {
					i.Op = ir.OpCopy
					i.Operands = []*ir.Value{top(stacks, a).Clone()}
				}
			}
		}

		for _, s := range b.Succs {
			for _, a := range allocas {
				if phi, ok := phisOf[a][s]; ok {
					phi.PhiEntries = append(phi.PhiEntries, &ir.PhiEntry{
						Value: top(stacks, a).Clone(),
						Pred:  b,
					})
				}
			}
		}

		for _, c := range children[b] {
			rename(c)
		}

		for a, n := range pushed {
			stacks[a] = stacks[a][:len(stacks[a])-n]
		}
	}

	for _, a := range allocas {
		stacks[a] = []*ir.Value{undefOf(a.AllocaType)}
	}
	rename(f.Entry())

	for _, a := range allocas {
		toDelete[a] = true
	}
	for _, b := range f.Blocks {
		for i := b.First; i != nil; {
			next := i.Next
			if toDelete[i] {
				b.Remove(i)
			}
			i = next
		}
	}

	f.Touch()
	return true
}

func top(stacks map[*ir.Inst][]*ir.Value, a *ir.Inst) *ir.Value {
	s := stacks[a]
	return s[len(s)-1]
}

func undefOf(t *ir.Type) *ir.Value {
	if t.IsInt() {
		return ir.ConstInt(0, t)
	}
	return ir.ConstInt(0, t)
}

func sameReg(v *ir.Value, a *ir.Inst) bool {
	return v != nil && v.Kind == ir.ValReg && v.Reg == a.Dest
}

func allocaOperand(v *ir.Value, allocas []*ir.Inst) *ir.Inst {
	for _, a := range allocas {
		if sameReg(v, a) {
			return a
		}
	}
	return nil
}

// promotableAllocas implements spec.md §4.3.1 phase 1: an alloca is
// promotable iff every use is a load from it, or a store into it as the
// destination (never as the stored value, a call argument or a phi
// incoming).
func promotableAllocas(f *ir.Function, du *analysis.DefUse) []*ir.Inst {
	var out []*ir.Inst
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.Op != ir.OpAlloca {
				continue
			}
			if isPromotable(i, du) {
				out = append(out, i)
			}
		}
	}
	return out
}

func isPromotable(a *ir.Inst, du *analysis.DefUse) bool {
	for _, u := range du.UsesOf[a.Dest] {
		switch u.Kind {
		case analysis.SlotCallArg, analysis.SlotPhiEntry:
			return false
		case analysis.SlotOperand:
			switch u.Inst.Op {
			case ir.OpLoad:
				if u.Idx != 0 {
					return false
				}
			case ir.OpStore:
				if u.Idx != 0 {
					return false // used as the stored value, or shadowed slot
				}
			default:
				return false
			}
		}
	}
	return true
}
