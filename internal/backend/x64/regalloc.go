package x64

import "sort"

// interval is a vreg's live range, built as the min/max instruction index
// at which it appears in use or def (spec.md §4.5.2 step 3).
type interval struct {
	VReg  int
	Start int
	End   int
}

// active is one currently-live allocation the scan tracks while sweeping
// intervals in start order.
type active struct {
	VReg int
	End  int
	Phys string
}

// Allocate runs linear-scan register allocation over mf (spec.md §4.5.2),
// rewriting spilled vreg references in place and filling in
// mf.FrameSize/mf.CalleeSaved. It returns the final vreg->physical-register
// map that emit.go resolves every operand through.
func Allocate(mf *MFunction) map[int]string {
	insts := mf.AllInsts()
	intervals := buildIntervals(insts, mf.Pinned)

	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })

	alloc := map[int]string{}
	for v, phys := range mf.Pinned {
		alloc[v] = phys
	}
	spillOffsets := map[int]int64{}

	free := make([]string, len(GeneralPool))
	copy(free, GeneralPool)
	var live []active

	popFree := func() string {
		p := free[0]
		free = free[1:]
		return p
	}
	pushFree := func(p string) { free = append(free, p) }

	expire := func(start int) {
		kept := live[:0]
		for _, a := range live {
			if a.End < start {
				pushFree(a.Phys)
				continue
			}
			kept = append(kept, a)
		}
		live = kept
	}

	spillSlot := func(v int) int64 {
		mf.frameCursor += 8
		return mf.frameCursor
	}

	for _, iv := range intervals {
		expire(iv.Start)
		if len(free) > 0 {
			p := popFree()
			alloc[iv.VReg] = p
			live = append(live, active{VReg: iv.VReg, End: iv.End, Phys: p})
			continue
		}

		worstIdx, worst := -1, -1
		for idx, a := range live {
			if a.End > worst {
				worst, worstIdx = a.End, idx
			}
		}
		if worstIdx >= 0 && live[worstIdx].End > iv.End {
			evicted := live[worstIdx]
			spillOffsets[evicted.VReg] = spillSlot(evicted.VReg)
			delete(alloc, evicted.VReg)
			alloc[iv.VReg] = evicted.Phys
			live[worstIdx] = active{VReg: iv.VReg, End: iv.End, Phys: evicted.Phys}
		} else {
			spillOffsets[iv.VReg] = spillSlot(iv.VReg)
		}
	}

	rewriteSpills(mf, alloc, spillOffsets)

	mf.FrameSize = align16(mf.frameCursor)
	mf.CalleeSaved = calleeSavedUsed(alloc)
	return alloc
}

// buildIntervals scans every instruction once, tracking each unpinned
// vreg's first and last occurrence index across Dst/Src1/Src2 register
// operands, memory-base registers, and implicit uses/defs.
func buildIntervals(insts []*MInst, pinned map[int]string) []interval {
	bounds := map[int][2]int{}
	touch := func(v, idx int) {
		if b, ok := bounds[v]; ok {
			if idx < b[0] {
				b[0] = idx
			}
			if idx > b[1] {
				b[1] = idx
			}
			bounds[v] = b
		} else {
			bounds[v] = [2]int{idx, idx}
		}
	}

	for idx, inst := range insts {
		for _, sl := range regSlots(inst) {
			if sl.Operand.Kind == OKReg || (sl.Operand.Kind == OKMem && sl.Operand.MemBase == MemReg) {
				if _, isPinned := pinned[sl.Operand.Reg]; !isPinned {
					touch(sl.Operand.Reg, idx)
				}
			}
		}
		for _, v := range inst.ImplicitUses {
			if _, isPinned := pinned[v]; !isPinned {
				touch(v, idx)
			}
		}
		for _, v := range inst.ImplicitDefs {
			if _, isPinned := pinned[v]; !isPinned {
				touch(v, idx)
			}
		}
	}

	vregs := make([]int, 0, len(bounds))
	for v := range bounds {
		vregs = append(vregs, v)
	}
	sort.Ints(vregs)

	out := make([]interval, 0, len(vregs))
	for _, v := range vregs {
		b := bounds[v]
		out = append(out, interval{VReg: v, Start: b[0], End: b[1]})
	}
	return out
}

// regSlot is one register-valued operand position within an instruction,
// tagged with whether that position defines and/or uses the register it
// names (spec.md §4.5.2's liveness step operates on exactly this data).
type regSlot struct {
	Operand *Operand
	Def     bool
	Use     bool
}

// regSlots enumerates inst's register-valued operand positions. The
// opcode set is closed (MOp has no extension point), so this is a direct
// case analysis rather than a generic walk.
func regSlots(inst *MInst) []regSlot {
	var out []regSlot
	add := func(o *Operand, def, use bool) {
		if o == nil {
			return
		}
		if o.Kind == OKReg {
			out = append(out, regSlot{Operand: o, Def: def, Use: use})
		} else if o.Kind == OKMem && o.MemBase == MemReg {
			out = append(out, regSlot{Operand: o, Use: true})
		}
	}

	switch inst.Op {
	case MMov:
		add(inst.Dst, true, false)
		add(inst.Src1, false, true)
	case MLea:
		add(inst.Dst, true, false)
	case MAdd, MSub, MImul, MAnd, MOr:
		add(inst.Dst, true, true)
		add(inst.Src1, false, true)
	case MNot, MNeg:
		add(inst.Dst, true, true)
	case MIdiv:
		add(inst.Src1, false, true)
	case MCmp, MTest:
		add(inst.Src1, false, true)
		add(inst.Src2, false, true)
	case MSetCC:
		add(inst.Dst, true, false)
	case MMovzx:
		add(inst.Dst, true, false)
		add(inst.Src1, false, true)
	}
	return out
}

// rewriteSpills replaces every operand referencing a spilled vreg with a
// fresh scratch vreg pinned to one of SpillScratch, inserting a reload
// MMov before the instruction for a use and a store MMov after it for a
// def (spec.md §4.5.2 step 5: "insert STORE at each def and LOAD before
// each use, each using a scratch reg").
func rewriteSpills(mf *MFunction, alloc map[int]string, spillOffsets map[int]int64) {
	if len(spillOffsets) == 0 {
		return
	}
	for _, mb := range mf.Blocks {
		out := make([]*MInst, 0, len(mb.Insts))
		for _, inst := range mb.Insts {
			scratchFor := map[int]int{}
			next := 0
			var before, after []*MInst

			for _, sl := range regSlots(inst) {
				off, spilled := spillOffsets[sl.Operand.Reg]
				if !spilled {
					continue
				}
				scratch, seen := scratchFor[sl.Operand.Reg]
				if !seen {
					name := SpillScratch[next%len(SpillScratch)]
					next++
					scratch = mf.NewPinned(name)
					alloc[scratch] = name
					scratchFor[sl.Operand.Reg] = scratch
					if sl.Use {
						before = append(before, &MInst{Op: MMov, Dst: regPtr(RegOp(scratch)), Src1: regPtr(FrameOp(off))})
					}
				}
				sl.Operand.Reg = scratch
				if sl.Def {
					after = append(after, &MInst{Op: MMov, Dst: regPtr(FrameOp(off)), Src1: regPtr(RegOp(scratch))})
				}
			}

			out = append(out, before...)
			out = append(out, inst)
			out = append(out, after...)
		}
		mb.Insts = out
	}
}

// calleeSavedUsed returns, in GeneralPool order, every callee-saved
// physical register that alloc actually assigned to some vreg.
func calleeSavedUsed(alloc map[int]string) []string {
	used := map[string]bool{}
	for _, phys := range alloc {
		if CalleeSavedRegs[phys] {
			used[phys] = true
		}
	}
	var out []string
	for _, p := range GeneralPool {
		if used[p] {
			out = append(out, p)
		}
	}
	return out
}

func align16(n int64) int64 {
	if rem := n % 16; rem != 0 {
		n += 16 - rem
	}
	return n
}
