package ir

import (
	"fmt"
	"strings"
)

// Printer renders a quick, human-oriented dump of a module for use in
// diagnostics (block labels, one instruction per line). It is not the
// canonical, round-trip-exact serialization — that is internal/textio,
// which this type intentionally does not duplicate.
type Printer struct {
	indent int
	output strings.Builder
}

// NewPrinter creates a new dump printer.
func NewPrinter() *Printer { return &Printer{} }

// Dump returns a debug rendering of m.
func Dump(m *Module) string {
	p := NewPrinter()
	p.printModule(m)
	return p.output.String()
}

func (p *Printer) writeIndent() {
	for i := 0; i < p.indent; i++ {
		p.output.WriteString("  ")
	}
}

func (p *Printer) writeLine(format string, args ...interface{}) {
	p.writeIndent()
	p.output.WriteString(fmt.Sprintf(format, args...))
	p.output.WriteString("\n")
}

func (p *Printer) printModule(m *Module) {
	p.writeLine("module %q", m.Name)
	for _, g := range m.Globals {
		if g.Init != nil {
			p.writeLine("global @%s : %s = %s", g.Name, g.Type, g.Init)
		} else {
			p.writeLine("global @%s : %s", g.Name, g.Type)
		}
	}
	for _, f := range m.Functions {
		p.printFunction(f)
	}
}

func (p *Printer) printFunction(f *Function) {
	params := make([]string, len(f.Params))
	for i, param := range f.Params {
		params[i] = fmt.Sprintf("%s %%%d", param.Type, param.Reg)
	}
	p.writeLine("func @%s(%s) -> %s {", f.Name, strings.Join(params, ", "), f.RetType)
	p.indent++
	for _, b := range f.Blocks {
		p.writeLine("block %%%s:", b.Label)
		p.indent++
		for _, inst := range b.Insts() {
			p.writeLine("%s", inst)
		}
		p.indent--
	}
	p.indent--
	p.writeLine("}")
}
