// Package lower implements the minimal, direct AST to ir.Module lowering
// SPEC_FULL.md §C calls for: enough to drive internal/ir's optimizer core
// end to end from a hand-built internal/ast tree, without claiming to
// implement Baa's own lexer/parser/semantic analyzer (out of scope).
//
// Every local variable and parameter lowers to an entry-style ALLOCA plus
// LOAD/STORE pairs rather than directly to SSA registers, mirroring
// _examples/original_source/src/ir_mem2reg.c's documented assumption that
// a naive lowering feeds it alloca-based code for promotion; Mem2Reg
// (internal/ir/passes) is what turns this into real SSA form, inserting
// phis at the dominance frontier for anything IF/WHILE reassigns across
// blocks.
package lower

import (
	"fmt"

	"github.com/OmarAglan/baa/internal/ast"
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// Lower translates an *ast.Module into an *ir.Module. Declarations are
// resolved in two passes: first every global and function signature (so
// forward references — a function calling one declared later in the
// file — resolve), then every function body.
func Lower(m *ast.Module) (*ir.Module, error) {
	l := &lowering{
		mod:         ir.NewModule(m.Name),
		globalTypes: map[string]*ir.Type{},
		funcs:       map[string]*ir.Function{},
	}

	decls := ast.Nodes(m.Decls)
	for _, d := range decls {
		switch v := d.(type) {
		case *ast.VarDecl:
			if !v.Global {
				return nil, fmt.Errorf("lower: top-level VAR_DECL %q must be global", v.Name)
			}
			if err := l.declareGlobal(v); err != nil {
				return nil, err
			}
		case *ast.FuncDef:
			if err := l.declareFunc(v); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("lower: unexpected top-level node %s", d.NodeType())
		}
	}

	for _, d := range decls {
		fn, ok := d.(*ast.FuncDef)
		if !ok || fn.Body == nil {
			continue
		}
		if err := l.lowerFuncBody(fn, l.funcs[fn.Name]); err != nil {
			return nil, err
		}
	}

	return l.mod, nil
}

// lowering holds module-wide state shared across every function body.
type lowering struct {
	mod         *ir.Module
	globalTypes map[string]*ir.Type
	funcs       map[string]*ir.Function
}

func resolveType(name string) (*ir.Type, error) {
	switch name {
	case "void":
		return ir.VoidType, nil
	case "i1":
		return ir.I1Type, nil
	case "i8":
		return ir.I8Type, nil
	case "i16":
		return ir.I16Type, nil
	case "i32":
		return ir.I32Type, nil
	case "i64":
		return ir.I64Type, nil
	default:
		return nil, fmt.Errorf("lower: unknown type name %q", name)
	}
}

func (l *lowering) declareGlobal(v *ast.VarDecl) error {
	t, err := resolveType(v.TypeName)
	if err != nil {
		return err
	}
	g := &ir.Global{Name: v.Name, Type: t}
	if v.Init != nil {
		switch lit := v.Init.(type) {
		case *ast.IntLit:
			g.Init = ir.ConstInt(lit.Value, t)
		case *ast.CharLit:
			g.Init = ir.ConstInt(int64(lit.Value), t)
		default:
			return fmt.Errorf("lower: global %q initializer must be an integer or character constant", v.Name)
		}
	}
	l.mod.AddGlobal(g)
	l.globalTypes[v.Name] = t
	return nil
}

func (l *lowering) declareFunc(v *ast.FuncDef) error {
	if _, exists := l.funcs[v.Name]; exists {
		return fmt.Errorf("lower: function %q redeclared", v.Name)
	}
	rt, err := resolveType(v.ReturnType)
	if err != nil {
		return err
	}
	f := &ir.Function{Name: v.Name, RetType: rt, External: v.Body == nil}
	for _, p := range v.Params {
		pt, err := resolveType(p.TypeName)
		if err != nil {
			return err
		}
		f.Params = append(f.Params, &ir.Parameter{Name: p.Name, Type: pt, Reg: f.NewReg()})
	}
	l.mod.AddFunction(f)
	l.funcs[v.Name] = f
	return nil
}

// ensurePrintf lazily declares the external printf Baa's PRINT statement
// lowers into, grounded on internal/backend/x64/emit.go's fmt_int/fmt_str
// .rdata labels. It is a no-op once printf has a declaration, whether
// this lowering added it or the source itself declares a function of
// that name.
func (l *lowering) ensurePrintf() {
	if _, exists := l.funcs["printf"]; exists {
		return
	}
	f := &ir.Function{Name: "printf", RetType: ir.I32Type, External: true}
	l.mod.AddFunction(f)
	l.funcs["printf"] = f
}

// varSlot is a lowered local or parameter: the ALLOCA producing its
// address and the pointee type, so loads/stores and type checks don't
// need to re-derive the pointee from the pointer type each time.
type varSlot struct {
	ptr *ir.Value
	typ *ir.Type
}

// funcLowering holds the per-function state used while walking one
// FuncDef's body.
type funcLowering struct {
	l    *lowering
	f    *ir.Function
	b    *ir.Builder
	vars map[string]*varSlot
}

func (l *lowering) lowerFuncBody(fn *ast.FuncDef, f *ir.Function) error {
	entry := f.NewBlock("entry")
	b := ir.NewBuilder(f)
	b.SetBlock(entry)

	fl := &funcLowering{l: l, f: f, b: b, vars: map[string]*varSlot{}}
	for _, p := range f.Params {
		ptr := b.Alloca(p.Type)
		b.Store(ir.RegVal(p.Reg, p.Type), ptr)
		fl.vars[p.Name] = &varSlot{ptr: ptr, typ: p.Type}
	}

	if err := fl.lowerBlock(fn.Body); err != nil {
		return err
	}

	if cur := fl.b.Block(); cur.Terminator() == nil {
		if f.RetType.Kind == ir.TypeVoid {
			b.Ret(nil)
		} else {
			analysis.RebuildPreds(f)
			seen := map[*ir.Block]bool{f.Entry(): true}
			for work := []*ir.Block{f.Entry()}; len(work) > 0; work = work[1:] {
				for _, s := range work[0].Succs {
					if !seen[s] {
						seen[s] = true
						work = append(work, s)
					}
				}
			}
			if seen[cur] {
				return fmt.Errorf("lower: function %q: missing return on a control path", fn.Name)
			}
			b.Ret(ir.ConstInt(0, f.RetType)) // cur is unreachable from entry
		}
	}
	return nil
}

// lookup resolves name against the local scope, then the module's
// globals, returning a freshly cloned address value each time: a *Value
// is never shared across two operand slots (ir.Value.Clone), and a local's
// alloca pointer is read here on every load and store of that variable.
func (fl *funcLowering) lookup(name string) (*ir.Value, *ir.Type, bool) {
	if s, ok := fl.vars[name]; ok {
		return s.ptr.Clone(), s.typ, true
	}
	if t, ok := fl.l.globalTypes[name]; ok {
		return ir.GlobalVal(name, t), t, true
	}
	return nil, nil, false
}

// lowerBlock lowers blk's statements in order, stopping once the current
// block already has a terminator (code after RETURN/IF/WHILE-with-no-
// fallthrough is unreachable and never reached at runtime; CFGSimplify
// and DCE remove it from the eventual pipeline output regardless).
func (fl *funcLowering) lowerBlock(blk *ast.Block) error {
	for _, s := range ast.Nodes(blk.Body) {
		if fl.b.Block().Terminator() != nil {
			break
		}
		if err := fl.lowerStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (fl *funcLowering) lowerStmt(n ast.Node) error {
	switch v := n.(type) {
	case *ast.VarDecl:
		return fl.lowerVarDecl(v)
	case *ast.AssignStmt:
		return fl.lowerAssign(v)
	case *ast.CallStmt:
		_, err := fl.lowerCall(v.Call)
		return err
	case *ast.ReturnStmt:
		return fl.lowerReturn(v)
	case *ast.PrintStmt:
		return fl.lowerPrint(v)
	case *ast.IfStmt:
		return fl.lowerIf(v)
	case *ast.WhileStmt:
		return fl.lowerWhile(v)
	default:
		return fmt.Errorf("lower: unsupported statement %s", n.NodeType())
	}
}

func (fl *funcLowering) lowerVarDecl(v *ast.VarDecl) error {
	t, err := resolveType(v.TypeName)
	if err != nil {
		return err
	}
	ptr := fl.b.Alloca(t)
	fl.vars[v.Name] = &varSlot{ptr: ptr, typ: t}
	if v.Init == nil {
		return nil
	}
	val, err := fl.lowerExpr(v.Init)
	if err != nil {
		return err
	}
	if !val.Type.Equal(t) {
		return fmt.Errorf("lower: variable %q declared %s, initializer is %s", v.Name, t, val.Type)
	}
	fl.b.Store(val, ptr)
	return nil
}

func (fl *funcLowering) lowerAssign(v *ast.AssignStmt) error {
	ptr, t, ok := fl.lookup(v.Name)
	if !ok {
		return fmt.Errorf("lower: assignment to undeclared variable %q", v.Name)
	}
	val, err := fl.lowerExpr(v.Value)
	if err != nil {
		return err
	}
	if !val.Type.Equal(t) {
		return fmt.Errorf("lower: variable %q is %s, assigned value is %s", v.Name, t, val.Type)
	}
	fl.b.Store(val, ptr)
	return nil
}

func (fl *funcLowering) lowerReturn(v *ast.ReturnStmt) error {
	if v.Value == nil {
		if fl.f.RetType.Kind != ir.TypeVoid {
			return fmt.Errorf("lower: function %q: bare return, expected a %s value", fl.f.Name, fl.f.RetType)
		}
		fl.b.Ret(nil)
		return nil
	}
	val, err := fl.lowerExpr(v.Value)
	if err != nil {
		return err
	}
	if !val.Type.Equal(fl.f.RetType) {
		return fmt.Errorf("lower: function %q: returns %s, value is %s", fl.f.Name, fl.f.RetType, val.Type)
	}
	fl.b.Ret(val)
	return nil
}

func (fl *funcLowering) lowerPrint(v *ast.PrintStmt) error {
	val, err := fl.lowerExpr(v.Value)
	if err != nil {
		return err
	}
	fl.l.ensurePrintf()
	sym := "fmt_int"
	if val.Type.Kind == ir.TypePtr {
		sym = "fmt_str"
	}
	fl.b.Call("printf", []*ir.Value{ir.GlobalVal(sym, ir.I8Type), val}, nil)
	return nil
}

func (fl *funcLowering) lowerIf(v *ast.IfStmt) error {
	cond, err := fl.lowerExpr(v.Cond)
	if err != nil {
		return err
	}
	thenB := fl.f.NewBlock("if_then")
	var elseB *ir.Block
	if v.Else != nil {
		elseB = fl.f.NewBlock("if_else")
	}
	mergeB := fl.f.NewBlock("if_merge")

	falseTarget := mergeB
	if elseB != nil {
		falseTarget = elseB
	}
	fl.b.BrCond(cond, thenB, falseTarget)

	fl.b.SetBlock(thenB)
	if err := fl.lowerBlock(v.Then); err != nil {
		return err
	}
	if fl.b.Block().Terminator() == nil {
		fl.b.Br(mergeB)
	}

	if elseB != nil {
		fl.b.SetBlock(elseB)
		if err := fl.lowerBlock(v.Else); err != nil {
			return err
		}
		if fl.b.Block().Terminator() == nil {
			fl.b.Br(mergeB)
		}
	}

	fl.b.SetBlock(mergeB)
	return nil
}

func (fl *funcLowering) lowerWhile(v *ast.WhileStmt) error {
	condB := fl.f.NewBlock("while_cond")
	bodyB := fl.f.NewBlock("while_body")
	afterB := fl.f.NewBlock("while_after")

	fl.b.Br(condB)

	fl.b.SetBlock(condB)
	cond, err := fl.lowerExpr(v.Cond)
	if err != nil {
		return err
	}
	fl.b.BrCond(cond, bodyB, afterB)

	fl.b.SetBlock(bodyB)
	if err := fl.lowerBlock(v.Body); err != nil {
		return err
	}
	if fl.b.Block().Terminator() == nil {
		fl.b.Br(condB)
	}

	fl.b.SetBlock(afterB)
	return nil
}

var cmpPreds = map[ast.BinOp]ir.Pred{
	ast.EQ: ir.PredEQ, ast.NE: ir.PredNE,
	ast.LT: ir.PredLT, ast.LE: ir.PredLE,
	ast.GT: ir.PredGT, ast.GE: ir.PredGE,
}

var arithOps = map[ast.BinOp]ir.Opcode{
	ast.ADD: ir.OpAdd, ast.SUB: ir.OpSub, ast.MUL: ir.OpMul,
	ast.DIV: ir.OpDiv, ast.MOD: ir.OpMod,
	ast.AND: ir.OpAnd, ast.OR: ir.OpOr,
}

func (fl *funcLowering) lowerExpr(n ast.Node) (*ir.Value, error) {
	switch v := n.(type) {
	case *ast.IntLit:
		t, err := resolveType(v.TypeName)
		if err != nil {
			return nil, err
		}
		return ir.ConstInt(v.Value, t), nil
	case *ast.CharLit:
		return ir.ConstInt(int64(v.Value), ir.I8Type), nil
	case *ast.StringLit:
		return ir.ConstStr(fl.l.mod.InternString(v.Value)), nil
	case *ast.VarRef:
		ptr, _, ok := fl.lookup(v.Name)
		if !ok {
			return nil, fmt.Errorf("lower: reference to undeclared variable %q", v.Name)
		}
		return fl.b.Load(ptr), nil
	case *ast.UnaryExpr:
		return fl.lowerUnary(v)
	case *ast.BinExpr:
		return fl.lowerBin(v)
	case *ast.CallExpr:
		return fl.lowerCall(v)
	default:
		return nil, fmt.Errorf("lower: unsupported expression %s", n.NodeType())
	}
}

func (fl *funcLowering) lowerUnary(v *ast.UnaryExpr) (*ir.Value, error) {
	operand, err := fl.lowerExpr(v.Operand)
	if err != nil {
		return nil, err
	}
	op := ir.OpNot
	if v.Op == ast.NEG {
		op = ir.OpNeg
	}
	return fl.b.Unary(op, operand.Type, operand), nil
}

func (fl *funcLowering) lowerBin(v *ast.BinExpr) (*ir.Value, error) {
	lhs, err := fl.lowerExpr(v.Left)
	if err != nil {
		return nil, err
	}
	rhs, err := fl.lowerExpr(v.Right)
	if err != nil {
		return nil, err
	}
	if !lhs.Type.Equal(rhs.Type) {
		return nil, fmt.Errorf("lower: binary %s operand type mismatch: %s vs %s", v.Op, lhs.Type, rhs.Type)
	}
	if pred, ok := cmpPreds[v.Op]; ok {
		return fl.b.Cmp(pred, lhs, rhs), nil
	}
	op, ok := arithOps[v.Op]
	if !ok {
		return nil, fmt.Errorf("lower: unsupported binary operator %s", v.Op)
	}
	return fl.b.Binary(op, lhs.Type, lhs, rhs), nil
}

func (fl *funcLowering) lowerCall(c *ast.CallExpr) (*ir.Value, error) {
	f, ok := fl.l.funcs[c.Callee]
	if !ok {
		return nil, fmt.Errorf("lower: call to undeclared function %q", c.Callee)
	}
	var args []*ir.Value
	for _, a := range ast.Nodes(c.Args) {
		val, err := fl.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}
	return fl.b.Call(c.Callee, args, f.RetType), nil
}
