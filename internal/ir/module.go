package ir

// Global represents a module-level global variable; Init is its optional
// initializer value.
type Global struct {
	Name    string
	Type    *Type // pointee type
	Init    *Value
}

// Module owns the function list, global list, data layout and
// deduplicated string table for one compilation unit (spec.md §3.7); it
// holds no arena.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global
	Layout    *DataLayout

	strings   []string
	strIndex  map[string]int
}

// NewModule creates an empty module targeting the Windows x64 layout.
func NewModule(name string) *Module {
	return &Module{Name: name, Layout: WindowsX64, strIndex: map[string]int{}}
}

// InternString deduplicates s into the module string table and returns
// its id.
func (m *Module) InternString(s string) int {
	if id, ok := m.strIndex[s]; ok {
		return id
	}
	id := len(m.strings)
	m.strings = append(m.strings, s)
	m.strIndex[s] = id
	return id
}

// String returns the interned string for id.
func (m *Module) String(id int) string {
	if id < 0 || id >= len(m.strings) {
		return ""
	}
	return m.strings[id]
}

// Strings returns the string table in insertion order (deterministic, per
// spec.md §5 "Ordering").
func (m *Module) Strings() []string { return m.strings }

// NewFunction creates, appends and returns a new function.
func (m *Module) NewFunction(name string, paramTypes []string, retType *Type) *Function {
	f := &Function{Name: name, Module: m, RetType: retType}
	m.Functions = append(m.Functions, f)
	return f
}

// AddFunction appends an already-constructed function (used by lowering,
// which builds params/blocks itself before registering the function).
func (m *Module) AddFunction(f *Function) {
	f.Module = m
	m.Functions = append(m.Functions, f)
}

// AddGlobal appends a global variable declaration.
func (m *Module) AddGlobal(g *Global) { m.Globals = append(m.Globals, g) }

// FuncByName looks up a function by name.
func (m *Module) FuncByName(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}
