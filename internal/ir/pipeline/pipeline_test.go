package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
	"github.com/OmarAglan/baa/internal/ir/pipeline"
)

// buildScenario1 reproduces spec.md §8 scenario 1 through a promotable
// stack slot, so mem2reg, constfold and copyprop all have work to do.
func buildScenario1() *ir.Function {
	f := &ir.Function{Name: "scenario1", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)

	p := b.Alloca(ir.I64Type)
	sum := b.Binary(ir.OpAdd, ir.I64Type, ir.ConstInt(5, ir.I64Type), ir.ConstInt(3, ir.I64Type))
	b.Store(sum, p)
	loaded := b.Load(p)
	diff := b.Binary(ir.OpSub, ir.I64Type, loaded, ir.ConstInt(1, ir.I64Type))
	b.Ret(diff)

	return f
}

func TestPipelineO2FoldsToConstant(t *testing.T) {
	f := buildScenario1()
	res, err := pipeline.Run(f, pipeline.Options{Level: pipeline.O2, VerifyIR: true})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	term := f.Blocks[len(f.Blocks)-1].Terminator()
	require.NotNil(t, term)
	require.Equal(t, ir.OpRet, term.Op)
	require.Equal(t, ir.ValConstInt, term.Operands[0].Kind)
	assert.Equal(t, int64(7), term.Operands[0].IntVal)
}

func TestPipelineO0OnlyPromotesToSSA(t *testing.T) {
	f := buildScenario1()
	res, err := pipeline.Run(f, pipeline.Options{Level: pipeline.O0, VerifyIR: true})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	foundAdd := false
	for _, b := range f.Blocks {
		for i := b.First; i != nil; i = i.Next {
			assert.NotEqual(t, ir.OpAlloca, i.Op)
			if i.Op == ir.OpAdd {
				foundAdd = true
			}
		}
	}
	assert.True(t, foundAdd, "O0 must not constant-fold")
}

func TestPipelineDiamondEndToEnd(t *testing.T) {
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

	res, err := pipeline.Run(f, pipeline.Options{Level: pipeline.O2, VerifyIR: true})
	require.NoError(t, err)
	assert.True(t, res.Converged)

	analysis.RebuildPreds(f)
	require.NoError(t, analysis.ValidateCFG(f))
	for _, blk := range f.Blocks {
		for i := blk.First; i != nil; i = i.Next {
			assert.NotEqual(t, ir.OpPhi, i.Op)
			assert.NotEqual(t, ir.OpAlloca, i.Op)
		}
	}
}
