package ir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDumpModuleContainsStructure(t *testing.T) {
	m := NewModule("demo")
	f := buildDiamond()
	m.AddFunction(f)

	out := Dump(m)
	assert.True(t, strings.Contains(out, `module "demo"`))
	assert.True(t, strings.Contains(out, "func @diamond"))
	assert.True(t, strings.Contains(out, "block %entry:"))
	assert.True(t, strings.Contains(out, "ret"))
}
