package ast

// VarDecl declares a variable of TypeName named Name, with an optional
// initializer (VAR_DECL). The same tag serves both a local declaration
// inside a function body and a module-level global (spec.md §6.1: "VAR_DECL
// global"); Global distinguishes the two and internal/lower routes the
// node accordingly (an ir.Function's entry-block ALLOCA vs. an ir.Global).
type VarDecl struct {
	base
	Name     string
	TypeName string
	Init     Node // nil when uninitialized
	Global   bool
}

func NewVarDecl(pos, end Position, name, typeName string, init Node, global bool) *VarDecl {
	return &VarDecl{base: base{Pos: pos, EndPos: end, Typ: VAR_DECL}, Name: name, TypeName: typeName, Init: init, Global: global}
}

func (n *VarDecl) String() string { return "VarDecl(" + n.Name + ")" }

// Param is a function parameter. It is not independently tagged in
// spec.md §6.1 — a parameter list is FUNC_DEF payload, not its own node
// variant — but carries Position like every other piece of source the
// front end would eventually need to point diagnostics at.
type Param struct {
	Pos      Position
	EndPos   Position
	Name     string
	TypeName string
}

// FuncDef declares a function (FUNC_DEF): a name, parameter list, return
// type, and body. Body is nil for an external (no-body) declaration,
// matching ir.Function.External.
type FuncDef struct {
	base
	Name       string
	Params     []*Param
	ReturnType string
	Body       *Block
}

func NewFuncDef(pos, end Position, name string, params []*Param, returnType string, body *Block) *FuncDef {
	return &FuncDef{base: base{Pos: pos, EndPos: end, Typ: FUNC_DEF}, Name: name, Params: params, ReturnType: returnType, Body: body}
}

func (n *FuncDef) String() string { return "FuncDef(" + n.Name + ")" }

// Module is the AST root: a compilation unit's top-level declarations
// (global VAR_DECLs and FUNC_DEFs), in source order via the shared
// next-link chain (Decls is the head).
type Module struct {
	Name  string
	Decls Node
}

func NewModule(name string, decls Node) *Module {
	return &Module{Name: name, Decls: decls}
}
