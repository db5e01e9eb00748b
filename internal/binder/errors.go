package binder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes binding failures.
type ErrorCode string

const (
	// ErrCodeTargetNotFound indicates a "to" directive names no component.
	ErrCodeTargetNotFound ErrorCode = "TARGET_NOT_FOUND"

	// ErrCodeSelectorNoMatch indicates a selector matched no component.
	ErrCodeSelectorNoMatch ErrorCode = "SELECTOR_NO_MATCH"

	// ErrCodeAmbiguousSelector indicates a selector matched several components.
	ErrCodeAmbiguousSelector ErrorCode = "AMBIGUOUS_SELECTOR"

	// ErrCodeBindingExecution indicates no strategy could serve the pair
	// or the strategy reported failure.
	ErrCodeBindingExecution ErrorCode = "BINDING_EXECUTION_FAILURE"
)

// Error is a binding failure with the context needed to fix the manifest.
type Error struct {
	Code      ErrorCode
	Message   string
	Source    string
	Directive string

	// Target is the requested name for TARGET_NOT_FOUND and the resolved
	// target for execution failures.
	Target string

	// Selector is the rendered selector for selector errors.
	Selector string

	// Matches lists every matching component for AMBIGUOUS_SELECTOR.
	Matches []string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Source != "" {
		fmt.Fprintf(&b, " (source=%s, directive=%s)", e.Source, e.Directive)
	}
	return b.String()
}

// CodeOf returns the binder error code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var be *Error
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// IsTargetNotFound reports whether err is a TARGET_NOT_FOUND error.
func IsTargetNotFound(err error) bool { return CodeOf(err) == ErrCodeTargetNotFound }

// IsSelectorNoMatch reports whether err is a SELECTOR_NO_MATCH error.
func IsSelectorNoMatch(err error) bool { return CodeOf(err) == ErrCodeSelectorNoMatch }

// IsAmbiguousSelector reports whether err is an AMBIGUOUS_SELECTOR error.
func IsAmbiguousSelector(err error) bool { return CodeOf(err) == ErrCodeAmbiguousSelector }

func newTargetNotFound(name string) *Error {
	return &Error{
		Code:    ErrCodeTargetNotFound,
		Message: fmt.Sprintf("bind target %q not found", name),
		Target:  name,
	}
}

func newSelectorNoMatch(selector string) *Error {
	return &Error{
		Code:     ErrCodeSelectorNoMatch,
		Message:  fmt.Sprintf("selector %s matched no components", selector),
		Selector: selector,
	}
}

func newAmbiguousSelector(selector string, matches []string) *Error {
	return &Error{
		Code: ErrCodeAmbiguousSelector,
		Message: fmt.Sprintf("selector %s matched %d components: %s",
			selector, len(matches), strings.Join(matches, ", ")),
		Selector: selector,
		Matches:  matches,
	}
}
