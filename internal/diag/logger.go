package diag

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Logger prints pass-manager progress the way the teacher's pipeline
// runner does (internal/ir/optimizations.go: fmt.Printf straight to
// stdout, no structured logging library) — SPEC_FULL.md §A.3 carries
// that texture forward rather than reaching for a third-party logger no
// example in the corpus actually uses for this kind of CLI tool.
type Logger struct {
	out     io.Writer
	verbose bool
}

// NewLogger creates a Logger writing to w. Progress lines only print when
// verbose is true; run-level banners always print.
func NewLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{out: w, verbose: verbose}
}

// Banner prints the one-line run header: correlation id and optimization
// level, always shown regardless of verbosity.
func (l *Logger) Banner(runID string, level string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(l.out, "%s run %s (-O%s)\n", bold("baac"), runID, level)
}

// PassRan prints one pass's result line when verbose logging is on.
func (l *Logger) PassRan(englishName, arabicName string, changed bool) {
	if !l.verbose {
		return
	}
	mark := "- no change"
	if changed {
		mark = color.GreenString("✓ applied")
	}
	fmt.Fprintf(l.out, "  %s: %s\n", PassHeader(englishName, arabicName), mark)
}

// Iteration prints a fixpoint-loop progress line when verbose logging is on.
func (l *Logger) Iteration(n int, converged bool) {
	if !l.verbose {
		return
	}
	if converged {
		fmt.Fprintf(l.out, "converged after %d iteration(s)\n", n)
		return
	}
	fmt.Fprintf(l.out, "iteration %d\n", n)
}
