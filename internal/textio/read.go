package textio

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/pkg/errors"

	"github.com/OmarAglan/baa/internal/ir"
)

var parser = participle.MustBuild[File](
	participle.Lexer(IRLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

// Read parses the canonical text IR format (spec.md §6.2) into a live
// *ir.Module, the inverse of Write. It satisfies the P4 round-trip
// property together with Write: Write(Read(Write(m))) == Write(m).
func Read(src string) (*ir.Module, error) {
	file, err := parser.ParseString("", src)
	if err != nil {
		return nil, errors.Wrap(err, "textio: parse")
	}
	return build(file)
}

// pendingInst bundles a parsed instruction node with the *ir.Inst skeleton
// built for it in pass one, so pass two can fill in operands once every
// register, block and symbol in the function is known.
type pendingInst struct {
	raw   *Inst
	inst  *ir.Inst
	block *ir.Block
}

func build(file *File) (*ir.Module, error) {
	m := ir.NewModule(file.ModuleName)

	for _, s := range file.Strings {
		m.InternString(s.Text)
	}

	globalTypes := make(map[string]*ir.Type, len(file.Globals))
	for _, g := range file.Globals {
		globalTypes[g.Name] = convertType(g.Type)
	}
	funcTypes := make(map[string]*ir.Type, len(file.Funcs))
	for _, fd := range file.Funcs {
		funcTypes[fd.Name] = funcDeclType(fd)
	}

	for _, g := range file.Globals {
		global := &ir.Global{Name: g.Name, Type: globalTypes[g.Name]}
		if g.Init != nil {
			v, err := resolveValue(g.Init, globalTypes[g.Name], nil, nil, globalTypes, funcTypes)
			if err != nil {
				return nil, errors.Wrapf(err, "global @%s", g.Name)
			}
			global.Init = v
		}
		m.AddGlobal(global)
	}

	for _, fd := range file.Funcs {
		f, err := buildFunction(fd, globalTypes, funcTypes)
		if err != nil {
			return nil, errors.Wrapf(err, "func @%s", fd.Name)
		}
		m.AddFunction(f)
	}

	return m, nil
}

func funcDeclType(fd *FuncDecl) *ir.Type {
	params := make([]*ir.Type, len(fd.Params))
	for i, p := range fd.Params {
		params[i] = convertType(p.Type)
	}
	return ir.FuncType(params, convertType(fd.RetType))
}

func buildFunction(fd *FuncDecl, globalTypes, funcTypes map[string]*ir.Type) (*ir.Function, error) {
	f := &ir.Function{Name: fd.Name, RetType: convertType(fd.RetType), External: fd.External}
	for _, p := range fd.Params {
		t := convertType(p.Type)
		f.Params = append(f.Params, &ir.Parameter{Type: t, Reg: p.Reg})
		f.AdoptReg(p.Reg)
	}

	if fd.External {
		return f, nil
	}

	blocks := make(map[string]*ir.Block, len(fd.Blocks))
	for _, bn := range fd.Blocks {
		blocks[bn.Label] = f.NewBlock(bn.Label)
	}

	var pending []*pendingInst
	regType := map[int]*ir.Type{}
	for _, p := range fd.Params {
		regType[p.Reg] = convertType(p.Type)
	}

	for _, bn := range fd.Blocks {
		blk := blocks[bn.Label]
		for _, in := range bn.Insts {
			inst, err := buildSkeleton(f, in, funcTypes)
			if err != nil {
				return nil, errors.Wrapf(err, "block %%%s", bn.Label)
			}
			if inst.HasResult() {
				regType[inst.Dest] = inst.ResType
			}
			pending = append(pending, &pendingInst{raw: in, inst: inst, block: blk})
		}
	}

	for _, p := range pending {
		if err := fillOperands(p, regType, blocks, globalTypes, funcTypes); err != nil {
			return nil, errors.Wrapf(err, "block %%%s", p.block.Label)
		}
		p.block.Append(p.inst)
	}

	return f, nil
}

func buildSkeleton(f *ir.Function, in *Inst, funcTypes map[string]*ir.Type) (*ir.Inst, error) {
	dest := -1
	if in.Dest != nil {
		dest = *in.Dest
	}
	body := in.Body
	switch {
	case body.Binary != nil:
		op, err := binaryOp(body.Binary.Op)
		if err != nil {
			return nil, err
		}
		return f.NewRawInst(op, dest, convertType(body.Binary.Type)), nil
	case body.Unary != nil:
		op, err := unaryOp(body.Unary.Op)
		if err != nil {
			return nil, err
		}
		return f.NewRawInst(op, dest, convertType(body.Unary.Type)), nil
	case body.Cmp != nil:
		inst := f.NewRawInst(ir.OpCmp, dest, convertType(body.Cmp.Type))
		pred, err := cmpPred(body.Cmp.Pred)
		if err != nil {
			return nil, err
		}
		inst.CmpPred = pred
		return inst, nil
	case body.Copy != nil:
		return f.NewRawInst(ir.OpCopy, dest, convertType(body.Copy.Type)), nil
	case body.Alloca != nil:
		pointee := convertType(body.Alloca.Type)
		inst := f.NewRawInst(ir.OpAlloca, dest, ir.PtrType(pointee))
		inst.AllocaType = pointee
		return inst, nil
	case body.Load != nil:
		return f.NewRawInst(ir.OpLoad, dest, convertType(body.Load.Type)), nil
	case body.Store != nil:
		return f.NewRawInst(ir.OpStore, -1, ir.VoidType), nil
	case body.Br != nil:
		return f.NewRawInst(ir.OpBr, -1, ir.VoidType), nil
	case body.BrCond != nil:
		return f.NewRawInst(ir.OpBrCond, -1, ir.VoidType), nil
	case body.Ret != nil:
		if body.Ret.Void {
			return f.NewRawInst(ir.OpRet, -1, ir.VoidType), nil
		}
		return f.NewRawInst(ir.OpRet, -1, convertType(body.Ret.NonVoid.Type)), nil
	case body.Call != nil:
		retType := ir.VoidType
		if t, ok := funcTypes[body.Call.Target]; ok {
			retType = t.Ret
		}
		if dest < 0 {
			retType = ir.VoidType
		}
		inst := f.NewRawInst(ir.OpCall, dest, retType)
		inst.CallTarget = body.Call.Target
		return inst, nil
	case body.Phi != nil:
		return f.NewRawInst(ir.OpPhi, dest, convertType(body.Phi.Type)), nil
	default:
		return nil, errors.New("textio: instruction with no recognized body")
	}
}

func fillOperands(p *pendingInst, regType map[int]*ir.Type, blocks map[string]*ir.Block, globalTypes, funcTypes map[string]*ir.Type) error {
	inst := p.inst
	body := p.raw.Body
	resolve := func(n *ValueNode, t *ir.Type) (*ir.Value, error) {
		return resolveValue(n, t, regType, blocks, globalTypes, funcTypes)
	}

	switch {
	case body.Binary != nil:
		lhs, err := resolve(body.Binary.Lhs, inst.ResType)
		if err != nil {
			return err
		}
		rhs, err := resolve(body.Binary.Rhs, inst.ResType)
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{lhs, rhs}
	case body.Unary != nil:
		v, err := resolve(body.Unary.Val, inst.ResType)
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{v}
	case body.Cmp != nil:
		// Text form only records the i1 result type, not the compared
		// operand width; fall back to i64 for bare constant operands.
		lhs, err := resolve(body.Cmp.Lhs, ir.I64Type)
		if err != nil {
			return err
		}
		rhs, err := resolve(body.Cmp.Rhs, ir.I64Type)
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{lhs, rhs}
	case body.Copy != nil:
		v, err := resolve(body.Copy.Val, inst.ResType)
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{v}
	case body.Alloca != nil:
		// no operands
	case body.Load != nil:
		ptr, err := resolve(body.Load.Ptr, ir.PtrType(inst.ResType))
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{ptr}
	case body.Store != nil:
		ptr, err := resolve(body.Store.Ptr, nil)
		if err != nil {
			return err
		}
		valType := ir.I64Type
		if ptr.Type != nil && ptr.Type.Kind == ir.TypePtr {
			valType = ptr.Type.Elem
		}
		val, err := resolve(body.Store.Val, valType)
		if err != nil {
			return err
		}
		inst.Operands = []*ir.Value{ptr, val}
	case body.Br != nil:
		b, ok := blocks[body.Br.Target]
		if !ok {
			return errors.Errorf("textio: br to unknown block %%%s", body.Br.Target)
		}
		inst.BrTarget = b
	case body.BrCond != nil:
		cond, err := resolve(body.BrCond.Cond, ir.I1Type)
		if err != nil {
			return err
		}
		trueB, ok := blocks[body.BrCond.True]
		if !ok {
			return errors.Errorf("textio: br_cond true target %%%s unknown", body.BrCond.True)
		}
		falseB, ok := blocks[body.BrCond.False]
		if !ok {
			return errors.Errorf("textio: br_cond false target %%%s unknown", body.BrCond.False)
		}
		inst.Operands = []*ir.Value{cond}
		inst.BrTrue, inst.BrFalse = trueB, falseB
	case body.Ret != nil:
		if !body.Ret.Void {
			v, err := resolve(body.Ret.NonVoid.Val, inst.ResType)
			if err != nil {
				return err
			}
			inst.Operands = []*ir.Value{v}
		}
	case body.Call != nil:
		args := make([]*ir.Value, len(body.Call.Args))
		for i, a := range body.Call.Args {
			v, err := resolve(a, ir.I64Type)
			if err != nil {
				return err
			}
			args[i] = v
		}
		inst.CallArgs = args
	case body.Phi != nil:
		entries := make([]*ir.PhiEntry, len(body.Phi.Entries))
		for i, e := range body.Phi.Entries {
			v, err := resolve(e.Val, inst.ResType)
			if err != nil {
				return err
			}
			pred, ok := blocks[e.Label]
			if !ok {
				return errors.Errorf("textio: phi entry references unknown block %%%s", e.Label)
			}
			entries[i] = &ir.PhiEntry{Value: v, Pred: pred}
		}
		inst.PhiEntries = entries
	}
	return nil
}

func resolveValue(n *ValueNode, fallback *ir.Type, regType map[int]*ir.Type, blocks map[string]*ir.Block, globalTypes, funcTypes map[string]*ir.Type) (*ir.Value, error) {
	switch {
	case n.Int != nil:
		v := int64(n.Int.Val)
		if n.Int.Neg {
			v = -v
		}
		t := fallback
		if t == nil {
			t = ir.I64Type
		}
		return ir.ConstInt(v, t), nil
	case n.StrRef != "":
		id, err := strconv.Atoi(strings.TrimPrefix(n.StrRef, ".Lstr_"))
		if err != nil {
			return nil, errors.Wrapf(err, "textio: bad string ref %s", n.StrRef)
		}
		return ir.ConstStr(id), nil
	case n.Reg != nil:
		t, ok := regType[n.Reg.Reg]
		if !ok {
			return nil, errors.Errorf("textio: undefined register %%%d", n.Reg.Reg)
		}
		return ir.RegVal(n.Reg.Reg, t), nil
	case n.Block != nil:
		b, ok := blocks[n.Block.Label]
		if !ok {
			return nil, errors.Errorf("textio: reference to unknown block %%%s", n.Block.Label)
		}
		return ir.BlockRefVal(b), nil
	case n.Symbol != nil:
		if t, ok := globalTypes[n.Symbol.Name]; ok {
			return ir.GlobalVal(n.Symbol.Name, t), nil
		}
		if t, ok := funcTypes[n.Symbol.Name]; ok {
			return ir.FuncRefVal(n.Symbol.Name, t), nil
		}
		return nil, errors.Errorf("textio: unknown symbol @%s", n.Symbol.Name)
	default:
		return nil, errors.New("textio: empty value node")
	}
}

func binaryOp(s string) (ir.Opcode, error) {
	switch s {
	case "add":
		return ir.OpAdd, nil
	case "sub":
		return ir.OpSub, nil
	case "mul":
		return ir.OpMul, nil
	case "div":
		return ir.OpDiv, nil
	case "mod":
		return ir.OpMod, nil
	case "and":
		return ir.OpAnd, nil
	case "or":
		return ir.OpOr, nil
	default:
		return 0, errors.Errorf("textio: unknown binary opcode %q", s)
	}
}

func unaryOp(s string) (ir.Opcode, error) {
	switch s {
	case "neg":
		return ir.OpNeg, nil
	case "not":
		return ir.OpNot, nil
	default:
		return 0, errors.Errorf("textio: unknown unary opcode %q", s)
	}
}

func cmpPred(s string) (ir.Pred, error) {
	switch s {
	case "eq":
		return ir.PredEQ, nil
	case "ne":
		return ir.PredNE, nil
	case "lt":
		return ir.PredLT, nil
	case "le":
		return ir.PredLE, nil
	case "gt":
		return ir.PredGT, nil
	case "ge":
		return ir.PredGE, nil
	default:
		return 0, errors.Errorf("textio: unknown cmp predicate %q", s)
	}
}

func convertType(n *TypeNode) *ir.Type {
	switch {
	case n.Ptr != nil:
		return ir.PtrType(convertType(n.Ptr.Elem))
	case n.Array != nil:
		return ir.ArrayType(convertType(n.Array.Elem), int64(n.Array.Len))
	case n.Func != nil:
		params := make([]*ir.Type, len(n.Func.Params))
		for i, p := range n.Func.Params {
			params[i] = convertType(p)
		}
		return ir.FuncType(params, convertType(n.Func.Ret))
	default:
		switch n.Base {
		case "i1":
			return ir.I1Type
		case "i8":
			return ir.I8Type
		case "i16":
			return ir.I16Type
		case "i32":
			return ir.I32Type
		case "i64":
			return ir.I64Type
		default:
			return ir.VoidType
		}
	}
}
