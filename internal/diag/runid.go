package diag

import "github.com/segmentio/ksuid"

// NewRunID generates a short correlation id for one compiler invocation
// (SPEC_FULL.md §A.1), printed in the diagnostic banner and as a comment
// in --emit-ir output so multiple .s/.ir artifacts from the same run can
// be correlated in build logs.
func NewRunID() string {
	return ksuid.New().String()
}
