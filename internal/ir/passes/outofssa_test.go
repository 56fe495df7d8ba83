package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
	"github.com/OmarAglan/baa/internal/ir/passes"
)

func TestOutOfSSALowersDiamondPhi(t *testing.T) {
	f := buildDiamond()
	require.True(t, passes.Mem2Reg{}.Run(f))
	require.NoError(t, analysis.ValidateCFG(f))

	changed := passes.OutOfSSA{}.Run(f)
	require.True(t, changed)

	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			assert.NotEqual(t, ir.OpPhi, i.Op)
		}
	}

	thenB, elseB := f.Blocks[1], f.Blocks[2]
	assert.Equal(t, ir.OpCopy, thenB.Last.Prev.Op)
	assert.Equal(t, ir.OpCopy, elseB.Last.Prev.Op)
}

func TestOutOfSSABreaksCycle(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	loop := f.NewBlock("loop")
	exit := f.NewBlock("exit")

	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	b.Br(loop)

	b.SetBlock(loop)
	r1 := ir.RegVal(f.NewReg(), ir.I64Type)
	r2 := ir.RegVal(f.NewReg(), ir.I64Type)
	phi1 := f.NewInst(ir.OpPhi, ir.I64Type)
	phi1.Dest = r1.Reg
	loop.Append(phi1)
	phi2 := f.NewInst(ir.OpPhi, ir.I64Type)
	phi2.Dest = r2.Reg
	loop.Append(phi2)
	// swap: r1 <- r2, r2 <- r1 around the back edge.
	phi1.PhiEntries = append(phi1.PhiEntries,
		&ir.PhiEntry{Value: ir.ConstInt(0, ir.I64Type), Pred: entry},
		&ir.PhiEntry{Value: r2, Pred: loop},
	)
	phi2.PhiEntries = append(phi2.PhiEntries,
		&ir.PhiEntry{Value: ir.ConstInt(1, ir.I64Type), Pred: entry},
		&ir.PhiEntry{Value: r1, Pred: loop},
	)
	b.SetBlock(loop)
	b.BrCond(ir.ConstInt(1, ir.I1Type), loop, exit)

	b.SetBlock(exit)
	b.Ret(ir.ConstInt(0, ir.I64Type))

	changed := passes.OutOfSSA{}.Run(f)
	require.True(t, changed)

	type copyRec struct {
		dst     int
		src     int
		isConst bool
	}
	var seq []copyRec
	for i := loop.First; i != nil; i = i.Next {
		if i.Op != ir.OpCopy {
			continue
		}
		rec := copyRec{dst: i.Dest}
		if i.Operands[0].Kind == ir.ValReg {
			rec.src = i.Operands[0].Reg
		} else {
			rec.isConst = true
		}
		seq = append(seq, rec)
	}
	require.Len(t, seq, 3) // scratch save + two moves

	// Replay the emitted copies in order and confirm they actually
	// perform a swap: r1 must end up holding r2's incoming value and
	// vice versa, not both ending up with the same value.
	state := map[int]int{}
	origin := func(reg int) int {
		if v, ok := state[reg]; ok {
			return v
		}
		return reg
	}
	for _, rec := range seq {
		if rec.isConst {
			continue
		}
		state[rec.dst] = origin(rec.src)
	}
	assert.Equal(t, r2.Reg, origin(r1.Reg))
	assert.Equal(t, r1.Reg, origin(r2.Reg))
}
