package common

import "fmt"

var (
	ErrNetwork          = fmt.Errorf("network error")
	ErrGateRejected     = fmt.Errorf("rejected by gate")
	ErrDuplicateContent = fmt.Errorf("duplicate content")
	ErrFilesystem       = fmt.Errorf("filesystem error")
	ErrUnexpected       = fmt.Errorf("unexpected error")
	ErrCanceled         = fmt.Errorf("canceled")

	// ErrOutputDir aborts the whole batch.
	ErrOutputDir = fmt.Errorf("cannot create output directory")
)
