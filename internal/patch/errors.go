package patch

import (
	"errors"
	"fmt"
)

// Error codes.
const (
	ErrCodeLoadFailure      = "PATCH_LOAD_FAILURE"
	ErrCodeExecutionFailure = "PATCH_EXECUTION_FAILURE"
)

// ErrNoEntryPoint is returned by Load when the patch file exists but does
// not define applyPatches.
var ErrNoEntryPoint = errors.New("patch module defines no " + EntryPoint)

// Error wraps a failure to load or run a patch module.
type Error struct {
	Code string
	Path string

	// Index is the failing patch entry for execution failures, or -1.
	Index int

	Err error
}

func (e *Error) Error() string {
	switch {
	case e.Index >= 0:
		return fmt.Sprintf("%s: %s: patch %d: %v", e.Code, e.Path, e.Index, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Path, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the patch error code in err's chain, or "".
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func loadError(path string, err error) *Error {
	return &Error{Code: ErrCodeLoadFailure, Path: path, Index: -1, Err: err}
}

// ExecutionError wraps an error raised while applying patches.
func ExecutionError(path string, index int, err error) *Error {
	return &Error{Code: ErrCodeExecutionFailure, Path: path, Index: index, Err: err}
}
