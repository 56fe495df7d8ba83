package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OmarAglan/baa/internal/ast"
)

func pos(line int) ast.Position { return ast.Position{Filename: "t.baa", Line: line, Column: 1} }

func TestNodesWalksNextChain(t *testing.T) {
	a := ast.NewIntLit(pos(1), pos(1), 1, "i64")
	b := ast.NewIntLit(pos(2), pos(2), 2, "i64")
	c := ast.NewIntLit(pos(3), pos(3), 3, "i64")
	a.SetNext(b)
	b.SetNext(c)

	got := ast.Nodes(a)
	assert.Len(t, got, 3)
	assert.Equal(t, int64(1), got[0].(*ast.IntLit).Value)
	assert.Equal(t, int64(3), got[2].(*ast.IntLit).Value)
	assert.Nil(t, got[2].NodeNext())
}

func TestFuncDefWithWhileBody(t *testing.T) {
	cond := ast.NewBinExpr(pos(2), pos(2), ast.LT, ast.NewVarRef(pos(2), pos(2), "n"), ast.NewIntLit(pos(2), pos(2), 10, "i64"))
	ret := ast.NewReturnStmt(pos(3), pos(3), ast.NewVarRef(pos(3), pos(3), "n"))
	then := ast.NewBlock(pos(3), pos(3), ret)
	loop := ast.NewWhileStmt(pos(2), pos(4), cond, then)
	body := ast.NewBlock(pos(1), pos(5), loop)

	params := []*ast.Param{{Pos: pos(1), EndPos: pos(1), Name: "n", TypeName: "i64"}}
	fn := ast.NewFuncDef(pos(1), pos(5), "loopUntil", params, "i64", body)

	assert.Equal(t, ast.FUNC_DEF, fn.NodeType())
	assert.Equal(t, "loopUntil", fn.Name)
	assert.Same(t, body, fn.Body)
	assert.Equal(t, ast.WHILE, body.Body.NodeType())
}

func TestVarDeclDistinguishesGlobalFromLocal(t *testing.T) {
	global := ast.NewVarDecl(pos(1), pos(1), "counter", "i64", ast.NewIntLit(pos(1), pos(1), 0, "i64"), true)
	local := ast.NewVarDecl(pos(2), pos(2), "tmp", "i64", nil, false)

	assert.True(t, global.Global)
	assert.False(t, local.Global)
	assert.Equal(t, ast.VAR_DECL, global.NodeType())
	assert.Equal(t, ast.VAR_DECL, local.NodeType())
}

func TestPrintRendersModuleTree(t *testing.T) {
	fn := ast.NewFuncDef(pos(1), pos(2), "main", nil, "i64",
		ast.NewBlock(pos(1), pos(2), ast.NewReturnStmt(pos(2), pos(2), ast.NewIntLit(pos(2), pos(2), 0, "i64"))))
	global := ast.NewVarDecl(pos(1), pos(1), "g", "i64", nil, true)
	global.SetNext(fn)

	out := ast.Print(ast.NewModule("prog", global))
	assert.Contains(t, out, `module "prog"`)
	assert.Contains(t, out, "VAR_DECL VarDecl(g)")
	assert.Contains(t, out, "FUNC_DEF FuncDef(main)")
	assert.Contains(t, out, "RETURN ReturnStmt")
}
