package analysis_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// buildDiamond constructs the spec.md §8.3 diamond CFG:
// entry -> {then, else} -> merge.
func buildDiamond() *ir.Function {
	f := &ir.Function{Name: "diamond", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	thenB := f.NewBlock("then")
	elseB := f.NewBlock("else")
	merge := f.NewBlock("merge")

	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	p := b.Alloca(ir.I64Type)
	b.Store(ir.ConstInt(0, ir.I64Type), p)
	b.BrCond(ir.ConstInt(1, ir.I1Type), thenB, elseB)

	b.SetBlock(thenB)
	b.Store(ir.ConstInt(1, ir.I64Type), p)
	b.Br(merge)

	b.SetBlock(elseB)
	b.Store(ir.ConstInt(2, ir.I64Type), p)
	b.Br(merge)

	b.SetBlock(merge)
	x := b.Load(p)
	b.Ret(x)

	analysis.RebuildPreds(f)
	return f
}

func TestRebuildPredsAndValidateCFG(t *testing.T) {
	f := buildDiamond()
	require.NoError(t, analysis.ValidateCFG(f))

	entry, thenB, elseB, merge := f.Blocks[0], f.Blocks[1], f.Blocks[2], f.Blocks[3]
	assert.Equal(t, []*ir.Block{thenB, elseB}, entry.Succs)
	assert.Equal(t, []*ir.Block{entry}, thenB.Preds)
	assert.ElementsMatch(t, []*ir.Block{thenB, elseB}, merge.Preds)
}

func TestValidateCFGRejectsMissingTerminator(t *testing.T) {
	f := &ir.Function{Name: "bad"}
	b := f.NewBlock("entry")
	b.Append(f.NewInst(ir.OpAdd, ir.I64Type))
	assert.Error(t, analysis.ValidateCFG(f))
}

func TestDominatorsOnDiamond(t *testing.T) {
	f := buildDiamond()
	analysis.ComputeDominators(f)

	entry, thenB, elseB, merge := f.Blocks[0], f.Blocks[1], f.Blocks[2], f.Blocks[3]
	assert.Equal(t, entry, entry.Idom)
	assert.Equal(t, entry, thenB.Idom)
	assert.Equal(t, entry, elseB.Idom)
	assert.Equal(t, entry, merge.Idom)

	assert.True(t, analysis.Dominates(entry, merge))
	assert.False(t, analysis.Dominates(thenB, merge))
}

func TestDominanceFrontier(t *testing.T) {
	f := buildDiamond()
	analysis.ComputeDominators(f)
	analysis.ComputeDominanceFrontier(f)

	thenB, elseB, merge := f.Blocks[1], f.Blocks[2], f.Blocks[3]
	assert.Equal(t, []*ir.Block{merge}, thenB.DomFrontier)
	assert.Equal(t, []*ir.Block{merge}, elseB.DomFrontier)
	assert.Empty(t, merge.DomFrontier)
}

func TestIteratedDominanceFrontier(t *testing.T) {
	f := buildDiamond()
	analysis.ComputeDominators(f)
	analysis.ComputeDominanceFrontier(f)

	thenB, elseB, merge := f.Blocks[1], f.Blocks[2], f.Blocks[3]
	idf := analysis.IteratedDominanceFrontier([]*ir.Block{thenB, elseB})
	assert.Equal(t, []*ir.Block{merge}, idf)
}

func TestBuildDefUse(t *testing.T) {
	f := buildDiamond()
	du := analysis.BuildDefUse(f)

	// The alloca's destination register is used by all three stores (as
	// the destination operand) and the final load.
	entry := f.Blocks[0]
	alloca := entry.First
	require.True(t, alloca.HasResult())
	uses := du.UsesOf[alloca.Dest]
	assert.Len(t, uses, 4)

	assert.False(t, du.Stale(f))
	f.Touch()
	assert.True(t, du.Stale(f))
}

func TestDefUseReplaceAllUses(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	c := b.Binary(ir.OpAdd, ir.I64Type, ir.ConstInt(1, ir.I64Type), ir.ConstInt(2, ir.I64Type))
	b.Ret(c)

	du := analysis.BuildDefUse(f)
	du.ReplaceAllUses(c.Reg, ir.ConstInt(3, ir.I64Type))

	ret := entry.Last
	assert.Equal(t, ir.ValConstInt, ret.Operands[0].Kind)
	assert.Equal(t, int64(3), ret.Operands[0].IntVal)
	assert.Equal(t, 0, du.NumUses(c.Reg))
}
