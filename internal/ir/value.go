package ir

import "fmt"

// ValueKind tags the variant held by a Value (spec.md §3.3).
type ValueKind int

const (
	ValConstInt ValueKind = iota
	ValConstStr
	ValReg
	ValGlobal
	ValFuncRef
	ValBlockRef
)

// Value is a tagged variant referenced from operand slots. Per §3.3, a
// Value is never shared by two operand slots: Clone must be used whenever
// the same logical value is needed in more than one slot.
type Value struct {
	Kind    ValueKind
	Type    *Type
	IntVal  int64  // ValConstInt
	StrID   int    // ValConstStr: index into the module string table
	Reg     int    // ValReg: dense per-function register number
	Name    string // ValGlobal / ValFuncRef: symbol name
	Block   *Block // ValBlockRef: branch target
}

// ConstInt builds an immediate integer value of the given type.
func ConstInt(v int64, t *Type) *Value { return &Value{Kind: ValConstInt, Type: t, IntVal: v} }

// ConstStr builds a pointer value to an interned module string.
func ConstStr(id int) *Value { return &Value{Kind: ValConstStr, Type: PtrType(I8Type), StrID: id} }

// RegVal builds a reference to an SSA virtual register.
func RegVal(reg int, t *Type) *Value { return &Value{Kind: ValReg, Type: t, Reg: reg} }

// GlobalVal builds the address of a global variable.
func GlobalVal(name string, pointee *Type) *Value {
	return &Value{Kind: ValGlobal, Type: PtrType(pointee), Name: name}
}

// FuncRefVal builds the address of a function.
func FuncRefVal(name string, t *Type) *Value { return &Value{Kind: ValFuncRef, Type: t, Name: name} }

// BlockRefVal builds a branch target reference.
func BlockRefVal(b *Block) *Value { return &Value{Kind: ValBlockRef, Type: VoidType, Block: b} }

// Clone returns an independently owned copy of v, satisfying the §3.3/§3.8
// "operand slots are uniquely owned" invariant whenever the same logical
// value must be installed into a second slot.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// IsConst reports whether v is a compile-time constant integer.
func (v *Value) IsConst() bool { return v != nil && v.Kind == ValConstInt }

func (v *Value) String() string {
	if v == nil {
		return "<nil>"
	}
	switch v.Kind {
	case ValConstInt:
		return fmt.Sprintf("%d", v.IntVal)
	case ValConstStr:
		return fmt.Sprintf(".Lstr_%d", v.StrID)
	case ValReg:
		return fmt.Sprintf("%%%d", v.Reg)
	case ValGlobal:
		return fmt.Sprintf("@%s", v.Name)
	case ValFuncRef:
		return fmt.Sprintf("@%s", v.Name)
	case ValBlockRef:
		if v.Block != nil {
			return fmt.Sprintf("%%%s", v.Block.Label)
		}
		return "%<block>"
	default:
		return "?"
	}
}
