package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockAppendPrependInsertRemove(t *testing.T) {
	f := &Function{}
	b := &Block{Label: "entry", Func: f}

	i1 := f.NewInst(OpAdd, I64Type)
	i2 := f.NewInst(OpSub, I64Type)
	i3 := f.NewInst(OpMul, I64Type)
	b.Append(i1)
	b.Append(i3)
	b.InsertBefore(i3, i2)

	got := b.Insts()
	assert.Equal(t, []*Inst{i1, i2, i3}, got)

	phi := f.NewInst(OpPhi, I64Type)
	b.Prepend(phi)
	assert.Equal(t, phi, b.First)
	assert.Equal(t, []*Inst{phi}, b.Phis())

	b.Remove(i2)
	assert.Equal(t, []*Inst{phi, i1, i3}, b.Insts())
	assert.Nil(t, i2.Block)
}

func TestBlockTerminator(t *testing.T) {
	f := &Function{}
	b := &Block{Label: "entry", Func: f}
	assert.Nil(t, b.Terminator())

	ret := f.NewInst(OpRet, I64Type)
	b.Append(ret)
	assert.Equal(t, ret, b.Terminator())
}
