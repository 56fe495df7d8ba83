package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/passes"
)

func TestCSEEliminatesDuplicateAdd(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	x := b.Load(ir.GlobalVal("g", ir.I64Type))
	a1 := b.Binary(ir.OpAdd, ir.I64Type, x, ir.ConstInt(1, ir.I64Type))
	a2 := b.Binary(ir.OpAdd, ir.I64Type, x, ir.ConstInt(1, ir.I64Type))
	sum := b.Binary(ir.OpAdd, ir.I64Type, a1, a2)
	b.Ret(sum)

	changed := passes.CSE{}.Run(f)
	require.True(t, changed)

	ret := entry.Last
	sumInst := findDef(entry, ret.Operands[0].Reg)
	require.NotNil(t, sumInst)
	require.Equal(t, 2, len(sumInst.Operands))
	assert.Equal(t, sumInst.Operands[0].Reg, sumInst.Operands[1].Reg)
}

func TestCSECommutativeOrderIndifferent(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	x := b.Load(ir.GlobalVal("g", ir.I64Type))
	y := b.Load(ir.GlobalVal("h", ir.I64Type))
	a1 := b.Binary(ir.OpAdd, ir.I64Type, x, y)
	a2 := b.Binary(ir.OpAdd, ir.I64Type, y, x)
	sum := b.Binary(ir.OpAdd, ir.I64Type, a1, a2)
	b.Ret(sum)

	changed := passes.CSE{}.Run(f)
	require.True(t, changed)
}

func TestCSEDoesNotMergeImpureOps(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	p := b.Alloca(ir.I64Type)
	b.Load(p)
	b.Load(p)
	b.Ret(ir.ConstInt(0, ir.I64Type))

	changed := passes.CSE{}.Run(f)
	assert.False(t, changed)
}

func findDef(b *ir.Block, reg int) *ir.Inst {
	for i := b.First; i != nil; i = i.Next {
		if i.HasResult() && i.Dest == reg {
			return i
		}
	}
	return nil
}
