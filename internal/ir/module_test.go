package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleInternStringDeduplicates(t *testing.T) {
	m := NewModule("m")
	id1 := m.InternString("hello")
	id2 := m.InternString("world")
	id3 := m.InternString("hello")
	assert.Equal(t, id1, id3)
	assert.NotEqual(t, id1, id2)
	assert.Equal(t, "hello", m.String(id1))
	assert.Equal(t, []string{"hello", "world"}, m.Strings())
}

func TestModuleFuncByName(t *testing.T) {
	m := NewModule("m")
	f := &Function{Name: "main"}
	m.AddFunction(f)
	assert.Same(t, f, m.FuncByName("main"))
	assert.Nil(t, m.FuncByName("missing"))
	assert.Same(t, m, f.Module)
}
