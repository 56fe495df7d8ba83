package diag

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/iancoleman/strcase"
)

// Severity is a diagnostic's level, mirroring the teacher's ErrorLevel.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Diagnostic is one reported condition. Unlike a source-level compiler
// front end, the optimizer core has no source position to anchor — Context
// instead names the block/instruction/function the condition was found in
// (e.g. "func add, block while_cond, inst %7"), per SPEC_FULL.md §A.1.
type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Context  string
}

func (d Diagnostic) String() string {
	if d.Context == "" {
		return fmt.Sprintf("%s[%s]: %s", d.Severity, d.Code, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s (%s)", d.Severity, d.Code, d.Message, d.Context)
}

// Reporter accumulates Diagnostic values over one compiler run and renders
// them to an output stream with the teacher's color-coded styling
// (cmd/kanso-cli / internal/errors.ErrorReporter).
type Reporter struct {
	out    io.Writer
	runID  string
	diags  []Diagnostic
}

// NewReporter creates a Reporter writing to w, tagged with a fresh
// per-run correlation id (A.1). Pass os.Stderr for normal CLI use.
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{out: w, runID: NewRunID()}
}

// RunID returns this reporter's correlation id, for embedding in
// --emit-ir comments and the diagnostic banner.
func (r *Reporter) RunID() string { return r.runID }

// Report accumulates a diagnostic without rendering it.
func (r *Reporter) Report(d Diagnostic) { r.diags = append(r.diags, d) }

// Errorf accumulates an error-severity diagnostic built from a format
// string, the common case for a pass or verifier reporting a failure it
// cannot recover from.
func (r *Reporter) Errorf(code Code, context, format string, args ...interface{}) {
	r.Report(Diagnostic{Severity: SeverityError, Code: code, Message: fmt.Sprintf(format, args...), Context: context})
}

// HasErrors reports whether any accumulated diagnostic is error severity.
func (r *Reporter) HasErrors() bool {
	for _, d := range r.diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Diagnostics returns every accumulated diagnostic, in report order.
func (r *Reporter) Diagnostics() []Diagnostic { return append([]Diagnostic(nil), r.diags...) }

// Flush renders every accumulated diagnostic to the reporter's writer and
// clears the buffer.
func (r *Reporter) Flush() {
	for _, d := range r.diags {
		fmt.Fprint(r.out, r.Render(d))
	}
	r.diags = nil
}

// Render formats one diagnostic the way the CLI prints it: a bold,
// color-coded "severity[CODE]: message" header (colors per level, same
// palette as the teacher's ErrorReporter), the pass/context line, and the
// code's description as a help line.
func (r *Reporter) Render(d Diagnostic) string {
	var sb strings.Builder

	levelColor := levelColor(d.Severity)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	fmt.Fprintf(&sb, "%s[%s]: %s\n", levelColor(string(d.Severity)), d.Code, bold(d.Message))
	if d.Context != "" {
		fmt.Fprintf(&sb, "  %s %s\n", dim("-->"), d.Context)
	}
	if desc := Describe(d.Code); desc != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		fmt.Fprintf(&sb, "  %s %s\n", helpColor("help:"), desc)
	}
	sb.WriteString("\n")
	return sb.String()
}

func levelColor(s Severity) func(...interface{}) string {
	switch s {
	case SeverityError:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	case SeverityWarning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	case SeverityNote:
		return color.New(color.FgBlue, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

// PassHeader renders a pass's registered Arabic name alongside its English
// slug in SCREAMING_SNAKE_CASE (spec.md §9 requires Arabic pass identifiers
// survive in user-facing diagnostics; strcase renders the slug next to it),
// e.g. PassHeader("const_fold", "طي_الثوابت") -> "CONST_FOLD (طي_الثوابت)".
func PassHeader(englishName, arabicName string) string {
	slug := strcase.ToScreamingSnake(englishName)
	if arabicName == "" {
		return slug
	}
	return fmt.Sprintf("%s (%s)", slug, arabicName)
}

// Default is a package-level Reporter writing to stderr, convenient for
// call sites (pipeline, backend) that do not thread a Reporter through
// their own API and just want diagnostics to reach the user.
var Default = NewReporter(os.Stderr)
