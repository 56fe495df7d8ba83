package passes

import (
	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
)

// CopyProp implements spec.md §4.3.3: replaces every use of a COPY's
// result with the copied value directly, then deletes the now-dead COPY.
// Chains of copies (copy of a copy) are collapsed by repeated application
// within a single Run, since each rewrite exposes the next copy's uses.
type CopyProp struct{}

func (CopyProp) Name() string       { return "copyprop" }
func (CopyProp) ArabicName() string { return "نشر_النسخ" }

func (CopyProp) Run(f *ir.Function) bool {
	du := analysis.BuildDefUse(f)
	changed := false

	for {
		progressed := false
		var toDelete []*ir.Inst
		for _, b := range f.Blocks {
			for i := b.First; i != nil; i = i.Next {
				if i.Op != ir.OpCopy {
					continue
				}
				src := i.Operands[0]
				du.ReplaceAllUses(i.Dest, src)
				toDelete = append(toDelete, i)
				progressed = true
			}
		}
		for _, i := range toDelete {
			i.Block.Remove(i)
		}
		if !progressed {
			break
		}
		changed = true
		du = analysis.BuildDefUse(f)
	}

	if changed {
		f.Touch()
	}
	return changed
}
