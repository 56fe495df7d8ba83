package pipeline

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/OmarAglan/baa/internal/ir"
	"github.com/OmarAglan/baa/internal/ir/analysis"
	"github.com/OmarAglan/baa/internal/ir/passes"
)

// OptLevel selects which pass sequence Run applies (spec.md §4.4).
type OptLevel int

const (
	O0 OptLevel = iota
	O1
	O2
)

// defaultMaxIterations bounds the fixpoint loop so a pass bug that keeps
// reporting "changed" cannot hang the compiler (spec.md §4.4).
const defaultMaxIterations = 10

// Options configures one pipeline run.
type Options struct {
	Level           OptLevel
	MaxIterations   int  // 0 means defaultMaxIterations
	VerifyIR        bool // run VerifyIR after every iteration
	VerifySSA       bool // run VerifySSA after every iteration (requires mem2reg already run)
}

// Result reports what a pipeline run did, for diagnostics/logging.
type Result struct {
	Iterations int
	Converged  bool
	PassesRun  []string
}

// sequence returns the ordered list of passes for a level, mirroring
// spec.md §4.4: O0 runs nothing (mem2reg still runs once to reach valid
// SSA, since later stages and the backend require it); O1 canonicalizes
// and folds without duplicating work across blocks; O2 adds CSE.
func sequence(level OptLevel) []ir.Pass {
	switch level {
	case O0:
		return []ir.Pass{passes.Mem2Reg{}}
	case O1:
		return []ir.Pass{
			passes.Mem2Reg{},
			passes.Canonicalize{},
			passes.ConstFold{},
			passes.CopyProp{},
			passes.DCE{},
		}
	default: // O2
		return []ir.Pass{
			passes.Mem2Reg{},
			passes.Canonicalize{},
			passes.ConstFold{},
			passes.CopyProp{},
			passes.CSE{},
			passes.DCE{},
			passes.CFGSimplify{},
		}
	}
}

// Run drives the pass sequence for opts.Level to a fixpoint: it keeps
// iterating the whole sequence while any pass reports a change, up to
// the iteration cap. CFGSimplify then runs once more unconditionally
// (even at O0/O1, where it is not part of the sequence) so that every
// critical edge is split before OutOfSSA lowers phis to parallel copies.
func Run(f *ir.Function, opts Options) (Result, error) {
	max := opts.MaxIterations
	if max <= 0 {
		max = defaultMaxIterations
	}

	res := Result{}
	seq := sequence(opts.Level)

	for iter := 0; iter < max; iter++ {
		anyChanged := false
		for _, p := range seq {
			if p.Run(f) {
				anyChanged = true
				res.PassesRun = append(res.PassesRun, p.Name())
			}
		}
		res.Iterations++
		if err := verifyIfRequested(f, opts); err != nil {
			return res, errors.Wrapf(err, "pipeline iteration %d", iter)
		}
		if !anyChanged {
			res.Converged = true
			break
		}
	}
	if !res.Converged {
		return res, fmt.Errorf("function %s: pipeline did not converge within %d iterations", f.Name, max)
	}

	cfgSimplify := passes.CFGSimplify{}
	if cfgSimplify.Run(f) {
		res.PassesRun = append(res.PassesRun, cfgSimplify.Name())
	}
	outOfSSA := passes.OutOfSSA{}
	if outOfSSA.Run(f) {
		res.PassesRun = append(res.PassesRun, outOfSSA.Name())
	}
	if opts.VerifyIR {
		if err := VerifyIR(f); err != nil {
			return res, errors.Wrap(err, "post out-of-ssa IR verification")
		}
	}
	return res, nil
}

func verifyIfRequested(f *ir.Function, opts Options) error {
	if opts.VerifyIR {
		if err := VerifyIR(f); err != nil {
			return err
		}
	}
	if opts.VerifySSA {
		analysis.RebuildPreds(f)
		analysis.ComputeDominators(f)
		if err := VerifySSA(f); err != nil {
			return err
		}
	}
	return nil
}
