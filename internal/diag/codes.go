// Package diag implements the compiler's diagnostics and logging (SPEC_FULL.md
// §A.1/§A.3): a stable error-code table, a Reporter that accumulates and
// renders Diagnostic values, and a small fmt+color progress logger for the
// pass manager, in the same texture as the teacher's internal/errors and
// cmd/kanso-cli.
package diag

// Code is a stable compiler diagnostic code, grouped by the subsystem that
// raised it:
//
//	E1xxx  IR verifier failures (internal/ir/pipeline.VerifyIR/VerifySSA)
//	E2xxx  pass-invariant violations (internal/ir/passes)
//	E3xxx  back-end/isel failures (internal/backend/x64)
//	E4xxx  arena/allocation failures (internal/arena)
//	E5xxx  text-IR parse failures (internal/textio)
//	W0xxx  warnings, any subsystem
type Code string

const (
	// E1xxx: IR verifier
	ErrIRStructure  Code = "E1001" // VerifyIR: malformed instruction (bad operand count/type)
	ErrIRCFG        Code = "E1002" // VerifyIR: missing or misplaced terminator
	ErrIRSSA        Code = "E1003" // VerifySSA: multiple definitions of one register
	ErrIRDominance  Code = "E1004" // VerifySSA: use not dominated by its definition

	// E2xxx: pass invariants
	ErrPassNoConverge Code = "E2001" // pipeline did not reach a fixpoint within MaxIterations
	ErrPassPrecondition Code = "E2002" // a pass ran against IR that violates its stated precondition

	// E3xxx: back end
	ErrISelUnsupported Code = "E3001" // instruction selection: opcode/type combination has no rule
	ErrRegAllocSpill   Code = "E3002" // register allocation: spill slot allocation failed
	ErrEmitSymbol      Code = "E3003" // emission: unresolved symbol reference

	// E4xxx: arena
	ErrArenaExhausted Code = "E4001" // allocation after destroy, or size overflow
	ErrArenaNegative  Code = "E4002" // negative size/count passed to Alloc/Calloc

	// E5xxx: text IR
	ErrTextIOParse    Code = "E5001" // participle grammar rejected the input
	ErrTextIOResolve  Code = "E5002" // well-formed grammar, dangling reference (block/register/symbol)

	// W0xxx: warnings
	WarnUnreachableBlock Code = "W0001" // a block survives CFGSimplify with no predecessors
)

var descriptions = map[Code]string{
	ErrIRStructure:       "instruction violates a structural invariant (operand count or type)",
	ErrIRCFG:             "block is missing a terminator, or has one in a non-final position",
	ErrIRSSA:             "register is defined more than once",
	ErrIRDominance:       "a use of a register is not dominated by its definition",
	ErrPassNoConverge:    "pipeline did not converge within the configured iteration cap",
	ErrPassPrecondition:  "pass ran against IR that does not meet its documented precondition",
	ErrISelUnsupported:   "instruction selection has no rule for this opcode/type combination",
	ErrRegAllocSpill:     "register allocator could not place a spilled value",
	ErrEmitSymbol:        "emitted code references a symbol with no known definition",
	ErrArenaExhausted:    "allocation requested from an arena that is already destroyed or would overflow",
	ErrArenaNegative:     "a negative size or count was passed to an arena allocation",
	ErrTextIOParse:       "text IR input does not match the grammar",
	ErrTextIOResolve:     "text IR parsed, but references a block, register, or symbol that is never defined",
	WarnUnreachableBlock: "block has no predecessors after CFG simplification",
}

// Describe returns a human-readable description of code, or "unknown
// diagnostic code" if code is not in the table.
func Describe(code Code) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "unknown diagnostic code"
}

// IsWarning reports whether code names a warning rather than an error.
func IsWarning(code Code) bool {
	return len(code) > 0 && code[0] == 'W'
}

// Category names the subsystem a code belongs to, for grouping
// diagnostics in CLI output.
func Category(code Code) string {
	switch {
	case len(code) == 0:
		return "Unknown"
	case code[0] == 'W':
		return "Warning"
	case code >= "E1000" && code < "E2000":
		return "IR Verifier"
	case code >= "E2000" && code < "E3000":
		return "Pass Manager"
	case code >= "E3000" && code < "E4000":
		return "Back End"
	case code >= "E4000" && code < "E5000":
		return "Arena"
	case code >= "E5000" && code < "E6000":
		return "Text IR"
	default:
		return "Unknown"
	}
}
