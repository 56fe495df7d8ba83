package ir

// Pass is the contract every optimizer transformation implements (spec.md
// §4.3): Run mutates fn in place and reports whether it changed anything.
// A pass that creates new IR objects must do so through fn's own
// allocators (NewBlock/NewInst/NewReg) so everything stays owned by the
// function's module; a pass that changes the CFG must call fn.Touch so
// cached analyses are invalidated (the helpers in internal/ir/analysis do
// not call it). The pass-ordering and fixpoint-iteration
// policy lives in internal/ir/pipeline, not here — this interface is the
// seam between that package and internal/ir/passes.
type Pass interface {
	Name() string
	ArabicName() string
	Run(fn *Function) bool
}
