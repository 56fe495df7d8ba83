package textio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/textio"
)

func buildSampleModule() *ir.Module {
	m := ir.NewModule("sample")
	m.AddGlobal(&ir.Global{Name: "counter", Type: ir.I64Type, Init: ir.ConstInt(0, ir.I64Type)})
	m.InternString("hello\n")

	fn := &ir.Function{Name: "add", RetType: ir.I64Type}
	fn.Params = []*ir.Parameter{{Type: ir.I64Type, Reg: 0}, {Type: ir.I64Type, Reg: 1}}
	fn.AdoptReg(1)
	entry := fn.NewBlock("entry")
	b := ir.NewBuilder(fn)
	b.SetBlock(entry)
	sum := b.Binary(ir.OpAdd, ir.I64Type, ir.RegVal(0, ir.I64Type), ir.RegVal(1, ir.I64Type))
	b.Ret(sum)
	m.AddFunction(fn)

	ext := &ir.Function{Name: "puts", RetType: ir.VoidType, External: true}
	ext.Params = []*ir.Parameter{{Type: ir.PtrType(ir.I8Type), Reg: 0}}
	m.AddFunction(ext)

	return m
}

func buildDiamondModule() *ir.Module {
	m := ir.NewModule("diamond")
	fn := &ir.Function{Name: "pick", RetType: ir.I64Type}
	fn.Params = []*ir.Parameter{{Type: ir.I64Type, Reg: 0}}
	fn.AdoptReg(0)
	entry := fn.NewBlock("entry")
	thenB := fn.NewBlock("then")
	elseB := fn.NewBlock("else")
	merge := fn.NewBlock("merge")

	b := ir.NewBuilder(fn)
	b.SetBlock(entry)
	cond := b.Cmp(ir.PredEQ, ir.RegVal(0, ir.I64Type), ir.ConstInt(0, ir.I64Type))
	b.BrCond(cond, thenB, elseB)

	b.SetBlock(thenB)
	one := ir.ConstInt(1, ir.I64Type)
	b.Br(merge)

	b.SetBlock(elseB)
	two := ir.ConstInt(2, ir.I64Type)
	b.Br(merge)

	b.SetBlock(merge)
	phi := b.Phi(ir.I64Type)
	phi.PhiEntries = []*ir.PhiEntry{{Value: one, Pred: thenB}, {Value: two, Pred: elseB}}
	b.Ret(ir.RegVal(phi.Dest, ir.I64Type))

	m.AddFunction(fn)
	return m
}

func TestWriteReadRoundTrip(t *testing.T) {
	for _, m := range []*ir.Module{buildSampleModule(), buildDiamondModule()} {
		text1 := textio.Write(m)
		parsed, err := textio.Read(text1)
		require.NoError(t, err)
		text2 := textio.Write(parsed)
		assert.Equal(t, text1, text2)
	}
}

func TestReadRejectsUnknownSymbol(t *testing.T) {
	src := "module \"bad\"\n\nfunc @f() -> i64 {\nblock %entry:\n    %0 = load i64 @missing\n    ret i64 %0\n}\n"
	_, err := textio.Read(src)
	assert.Error(t, err)
}

func TestWriteProducesParsableGlobal(t *testing.T) {
	m := ir.NewModule("g")
	m.AddGlobal(&ir.Global{Name: "x", Type: ir.I32Type})
	text := textio.Write(m)
	parsed, err := textio.Read(text)
	require.NoError(t, err)
	require.Len(t, parsed.Globals, 1)
	assert.Equal(t, "x", parsed.Globals[0].Name)
	assert.True(t, parsed.Globals[0].Type.Equal(ir.I32Type))
}
