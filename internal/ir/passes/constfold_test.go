package passes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/passes"
)

// TestConstFoldScenario1 reproduces spec.md §8 scenario 1:
//
//	%r0 = add i64 5, 3
//	%r1 = sub i64 %r0, 1
//	%r2 = cmp gt i64 10, 5
//	%r3 = and i1 %r2, 1
//	ret i64 %r1
func TestConstFoldScenario1(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)

	r0 := b.Binary(ir.OpAdd, ir.I64Type, ir.ConstInt(5, ir.I64Type), ir.ConstInt(3, ir.I64Type))
	r1 := b.Binary(ir.OpSub, ir.I64Type, r0, ir.ConstInt(1, ir.I64Type))
	r2 := b.Cmp(ir.PredGT, ir.ConstInt(10, ir.I64Type), ir.ConstInt(5, ir.I64Type))
	_ = b.Binary(ir.OpAnd, ir.I1Type, r2, ir.ConstInt(1, ir.I1Type))
	b.Ret(r1)

	changed := passes.ConstFold{}.Run(f)
	require.True(t, changed)

	ret := entry.Last
	require.Equal(t, ir.OpRet, ret.Op)
	require.Equal(t, ir.ValConstInt, ret.Operands[0].Kind)
	assert.Equal(t, int64(7), ret.Operands[0].IntVal)
}

func TestConstFoldDivByZeroNotFolded(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	r := b.Binary(ir.OpDiv, ir.I64Type, ir.ConstInt(1, ir.I64Type), ir.ConstInt(0, ir.I64Type))
	b.Ret(r)

	changed := passes.ConstFold{}.Run(f)
	assert.False(t, changed)

	ret := entry.Last
	assert.Equal(t, ir.ValReg, ret.Operands[0].Kind)
}

func TestConstFoldIntMinDivNegOne(t *testing.T) {
	const minInt64 = int64(-1) << 63
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	r := b.Binary(ir.OpDiv, ir.I64Type, ir.ConstInt(minInt64, ir.I64Type), ir.ConstInt(-1, ir.I64Type))
	b.Ret(r)

	changed := passes.ConstFold{}.Run(f)
	require.True(t, changed)
	ret := entry.Last
	assert.Equal(t, minInt64, ret.Operands[0].IntVal)
}

func TestConstFoldIntMinModNegOne(t *testing.T) {
	const minInt64 = int64(-1) << 63
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	r := b.Binary(ir.OpMod, ir.I64Type, ir.ConstInt(minInt64, ir.I64Type), ir.ConstInt(-1, ir.I64Type))
	b.Ret(r)

	changed := passes.ConstFold{}.Run(f)
	require.True(t, changed)
	ret := entry.Last
	assert.Equal(t, int64(0), ret.Operands[0].IntVal)
}

func TestConstFoldI1NeverSignExtends(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I1Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	cmp := b.Cmp(ir.PredEQ, ir.ConstInt(1, ir.I64Type), ir.ConstInt(1, ir.I64Type))
	b.Ret(cmp)

	changed := passes.ConstFold{}.Run(f)
	require.True(t, changed)
	ret := entry.Last
	assert.Equal(t, int64(1), ret.Operands[0].IntVal)
}

func TestConstFoldNonConstOperandSkipped(t *testing.T) {
	f := &ir.Function{Name: "f", RetType: ir.I64Type}
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)
	x := b.Load(ir.GlobalVal("g", ir.I64Type))
	r := b.Binary(ir.OpAdd, ir.I64Type, x, ir.ConstInt(1, ir.I64Type))
	b.Ret(r)

	changed := passes.ConstFold{}.Run(f)
	assert.False(t, changed)
}
