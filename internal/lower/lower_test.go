package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OmarAglan/baa/internal/ast"
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
	"github.com/OmarAglan/baa/internal/ir/pipeline"
	"github.com/OmarAglan/baa/internal/lower"
)

func pos(line int) ast.Position { return ast.Position{Filename: "t.baa", Line: line, Column: 1} }

// verify runs the structural and SSA verifiers lowered code must satisfy
// before any optimization pass sees it; both require dominators, which a
// real pipeline run computes as part of CFG analysis (internal/ir/passes).
func verify(t *testing.T, f *ir.Function) {
	t.Helper()
	analysis.RebuildPreds(f)
	analysis.ComputeDominators(f)
	require.NoError(t, pipeline.VerifyIR(f))
	require.NoError(t, pipeline.VerifySSA(f))
}

func TestLowerArithmeticFunction(t *testing.T) {
	// fn add(a i64, b i64) i64 { return a + b }
	params := []*ast.Param{
		{Pos: pos(1), EndPos: pos(1), Name: "a", TypeName: "i64"},
		{Pos: pos(1), EndPos: pos(1), Name: "b", TypeName: "i64"},
	}
	sum := ast.NewBinExpr(pos(1), pos(1), ast.ADD, ast.NewVarRef(pos(1), pos(1), "a"), ast.NewVarRef(pos(1), pos(1), "b"))
	body := ast.NewBlock(pos(1), pos(1), ast.NewReturnStmt(pos(1), pos(1), sum))
	fn := ast.NewFuncDef(pos(1), pos(1), "add", params, "i64", body)
	mod := ast.NewModule("prog", fn)

	m, err := lower.Lower(mod)
	require.NoError(t, err)

	f := m.FuncByName("add")
	require.NotNil(t, f)
	assert.False(t, f.External)
	verify(t, f)
}

func TestLowerGlobalAndPrint(t *testing.T) {
	// var counter i64 = 0
	// fn main() void { print(counter) }
	global := ast.NewVarDecl(pos(1), pos(1), "counter", "i64", ast.NewIntLit(pos(1), pos(1), 0, "i64"), true)
	printStmt := ast.NewPrintStmt(pos(2), pos(2), ast.NewVarRef(pos(2), pos(2), "counter"))
	body := ast.NewBlock(pos(2), pos(2), printStmt)
	main := ast.NewFuncDef(pos(2), pos(2), "main", nil, "void", body)
	global.SetNext(main)
	mod := ast.NewModule("prog", global)

	m, err := lower.Lower(mod)
	require.NoError(t, err)

	require.Len(t, m.Globals, 1)
	assert.Equal(t, "counter", m.Globals[0].Name)

	printf := m.FuncByName("printf")
	require.NotNil(t, printf)
	assert.True(t, printf.External)

	f := m.FuncByName("main")
	require.NotNil(t, f)
	verify(t, f)

	var sawCall bool
	for _, inst := range f.Entry().Insts() {
		if inst.Op == ir.OpCall && inst.CallTarget == "printf" {
			sawCall = true
			require.Len(t, inst.CallArgs, 2)
			assert.Equal(t, "fmt_int", inst.CallArgs[0].Name)
		}
	}
	assert.True(t, sawCall, "expected a printf call in main")
}

func TestLowerWhileLoopProducesWellFormedCFG(t *testing.T) {
	// fn loopUntil(n i64) i64 {
	//   while (n < 10) { n = n + 1 }
	//   return n
	// }
	params := []*ast.Param{{Pos: pos(1), EndPos: pos(1), Name: "n", TypeName: "i64"}}
	cond := ast.NewBinExpr(pos(2), pos(2), ast.LT, ast.NewVarRef(pos(2), pos(2), "n"), ast.NewIntLit(pos(2), pos(2), 10, "i64"))
	incr := ast.NewAssignStmt(pos(3), pos(3), "n",
		ast.NewBinExpr(pos(3), pos(3), ast.ADD, ast.NewVarRef(pos(3), pos(3), "n"), ast.NewIntLit(pos(3), pos(3), 1, "i64")))
	loopBody := ast.NewBlock(pos(3), pos(3), incr)
	loop := ast.NewWhileStmt(pos(2), pos(4), cond, loopBody)
	ret := ast.NewReturnStmt(pos(5), pos(5), ast.NewVarRef(pos(5), pos(5), "n"))
	loop.SetNext(ret)
	body := ast.NewBlock(pos(2), pos(5), loop)
	fn := ast.NewFuncDef(pos(1), pos(5), "loopUntil", params, "i64", body)
	mod := ast.NewModule("prog", fn)

	m, err := lower.Lower(mod)
	require.NoError(t, err)

	f := m.FuncByName("loopUntil")
	require.NotNil(t, f)
	verify(t, f)

	// entry -> while_cond -> {while_body, while_after}; while_body -> while_cond
	assert.Len(t, f.Blocks, 4)
	analysis.RebuildPreds(f)
	cond2 := f.Blocks[1]
	assert.Len(t, cond2.Preds, 2) // entry, and the loop body closing the back edge
}

func TestLowerIfWithBothBranchesReturningLeavesUnreachableMerge(t *testing.T) {
	// fn sign(n i64) i64 {
	//   if (n < 0) { return 0 - n } else { return n }
	// }
	params := []*ast.Param{{Pos: pos(1), EndPos: pos(1), Name: "n", TypeName: "i64"}}
	cond := ast.NewBinExpr(pos(2), pos(2), ast.LT, ast.NewVarRef(pos(2), pos(2), "n"), ast.NewIntLit(pos(2), pos(2), 0, "i64"))
	neg := ast.NewBinExpr(pos(2), pos(2), ast.SUB, ast.NewIntLit(pos(2), pos(2), 0, "i64"), ast.NewVarRef(pos(2), pos(2), "n"))
	thenB := ast.NewBlock(pos(2), pos(2), ast.NewReturnStmt(pos(2), pos(2), neg))
	elseB := ast.NewBlock(pos(2), pos(2), ast.NewReturnStmt(pos(2), pos(2), ast.NewVarRef(pos(2), pos(2), "n")))
	ifs := ast.NewIfStmt(pos(2), pos(2), cond, thenB, elseB)
	body := ast.NewBlock(pos(2), pos(2), ifs)
	fn := ast.NewFuncDef(pos(1), pos(2), "sign", params, "i64", body)
	mod := ast.NewModule("prog", fn)

	m, err := lower.Lower(mod)
	require.NoError(t, err)

	f := m.FuncByName("sign")
	require.NotNil(t, f)
	verify(t, f)

	analysis.RebuildPreds(f)
	var merge *ir.Block
	for _, b := range f.Blocks {
		if b.Label == "if_merge" {
			merge = b
		}
	}
	require.NotNil(t, merge)
	assert.Empty(t, merge.Preds, "both branches return, so the merge block is unreachable")
}

func TestLowerRejectsMissingReturn(t *testing.T) {
	body := ast.NewBlock(pos(1), pos(1), ast.NewPrintStmt(pos(1), pos(1), ast.NewIntLit(pos(1), pos(1), 1, "i64")))
	fn := ast.NewFuncDef(pos(1), pos(1), "f", nil, "i64", body)
	mod := ast.NewModule("prog", fn)

	_, err := lower.Lower(mod)
	assert.Error(t, err)
}

func TestLowerRejectsUnknownType(t *testing.T) {
	fn := ast.NewFuncDef(pos(1), pos(1), "f", nil, "bogus",
		ast.NewBlock(pos(1), pos(1), ast.NewReturnStmt(pos(1), pos(1), nil)))
	mod := ast.NewModule("prog", fn)

	_, err := lower.Lower(mod)
	assert.Error(t, err)
}
