package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/passes"
)

func TestDCERemovesDeadPureInst(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	b.Binary(ir.OpAdd, ir.I64Type, ir.ConstInt(1, ir.I64Type), ir.ConstInt(2, ir.I64Type))
	b.Ret(ir.ConstInt(0, ir.I64Type))

	changed := passes.DCE{}.Run(f)
	require.True(t, changed)

	count := 0
	for i := entry.First; i != nil; i = i.Next {
		count++
	}
	assert.Equal(t, 1, count) // only ret remains
}

func TestDCEKeepsSideEffectingInsts(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	p := b.Alloca(ir.I64Type)
	b.Store(ir.ConstInt(1, ir.I64Type), p)
	b.Call("side_effect", nil, nil)
	b.Ret(ir.ConstInt(0, ir.I64Type))

	changed := passes.DCE{}.Run(f)
	assert.False(t, changed)
}

func TestDCERemovesUnreachableBlock(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	dead := f.NewBlock("dead")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	b.Ret(ir.ConstInt(1, ir.I64Type))

	b.SetBlock(dead)
	b.Ret(ir.ConstInt(2, ir.I64Type))

	changed := passes.DCE{}.Run(f)
	require.True(t, changed)
	for _, blk := range f.Blocks {
		assert.NotEqual(t, dead, blk)
	}
}

func TestDCEChainedDeadDefs(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	a := b.Binary(ir.OpAdd, ir.I64Type, ir.ConstInt(1, ir.I64Type), ir.ConstInt(2, ir.I64Type))
	b.Binary(ir.OpMul, ir.I64Type, a, ir.ConstInt(3, ir.I64Type))
	b.Ret(ir.ConstInt(0, ir.I64Type))

	changed := passes.DCE{}.Run(f)
	require.True(t, changed)
	count := 0
	for i := entry.First; i != nil; i = i.Next {
		count++
	}
	assert.Equal(t, 1, count)
}
