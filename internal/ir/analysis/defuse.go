package analysis

import "github.com/OmarAglan/baa/internal/ir"

// Use is a single use of a register: the instruction reading it and the
// operand slot index within that instruction's operand array, phi entry
// list, or call argument list (spec.md §9 "Def-use as indices"). Slot
// rewrites are therefore array-index updates, immune to relocation.
type Use struct {
	Inst *ir.Inst
	Kind SlotKind
	Idx  int
}

// SlotKind distinguishes which array the use lives in, since an Inst has
// up to three independent operand-like arrays.
type SlotKind int

const (
	SlotOperand SlotKind = iota
	SlotCallArg
	SlotPhiEntry
)

// Get returns the current value at this use site.
func (u Use) Get() *ir.Value {
	switch u.Kind {
	case SlotCallArg:
		return u.Inst.CallArgs[u.Idx]
	case SlotPhiEntry:
		return u.Inst.PhiEntries[u.Idx].Value
	default:
		return u.Inst.Operands[u.Idx]
	}
}

// Set rewrites the value at this use site in place.
func (u Use) Set(v *ir.Value) {
	switch u.Kind {
	case SlotCallArg:
		u.Inst.CallArgs[u.Idx] = v
	case SlotPhiEntry:
		u.Inst.PhiEntries[u.Idx].Value = v
	default:
		u.Inst.Operands[u.Idx] = v
	}
}

// Def describes how a register is defined: either by an instruction, or
// (IsParam) as one of the function's incoming parameters.
type Def struct {
	Inst    *ir.Inst
	IsParam bool
}

// DefUse is the def-use chain cache for one function, built once per
// epoch (spec.md §4.2, §9): def_inst_by_reg and uses_by_reg. All Use
// values are produced by walking the function once; each register's uses
// are kept in their own slice in UsesOf, not in one shared backing array.
type DefUse struct {
	Epoch int
	DefOf map[int]Def
	UsesOf map[int][]Use
}

// BuildDefUse walks every instruction of f once and returns a fresh
// DefUse chain stamped with f's current epoch.
func BuildDefUse(f *ir.Function) *DefUse {
	du := &DefUse{
		Epoch:  f.Epoch,
		DefOf:  map[int]Def{},
		UsesOf: map[int][]Use{},
	}
	for _, p := range f.Params {
		du.DefOf[p.Reg] = Def{IsParam: true}
	}
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			if i.HasResult() {
				du.DefOf[i.Dest] = Def{Inst: i}
			}
			for idx, v := range i.Operands {
				if v != nil && v.Kind == ir.ValReg {
					du.UsesOf[v.Reg] = append(du.UsesOf[v.Reg], Use{Inst: i, Kind: SlotOperand, Idx: idx})
				}
			}
			for idx, v := range i.CallArgs {
				if v != nil && v.Kind == ir.ValReg {
					du.UsesOf[v.Reg] = append(du.UsesOf[v.Reg], Use{Inst: i, Kind: SlotCallArg, Idx: idx})
				}
			}
			for idx, e := range i.PhiEntries {
				if e.Value != nil && e.Value.Kind == ir.ValReg {
					du.UsesOf[e.Value.Reg] = append(du.UsesOf[e.Value.Reg], Use{Inst: i, Kind: SlotPhiEntry, Idx: idx})
				}
			}
		}
	}
	return du
}

// Stale reports whether du was built against an epoch that no longer
// matches f's current epoch and must be rebuilt (spec.md §9).
func (du *DefUse) Stale(f *ir.Function) bool { return du == nil || du.Epoch != f.Epoch }

// ReplaceAllUses rewrites every use of oldReg to newVal and clears the
// chain's record for oldReg (the caller is expected to then delete the
// defining instruction).
func (du *DefUse) ReplaceAllUses(oldReg int, newVal *ir.Value) {
	for _, u := range du.UsesOf[oldReg] {
		u.Set(newVal.Clone())
	}
	delete(du.UsesOf, oldReg)
}

// NumUses returns the number of remaining uses of reg.
func (du *DefUse) NumUses(reg int) int { return len(du.UsesOf[reg]) }
