package resolver

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Kristopherlb/shinobi/internal/binder"
	"github.com/Kristopherlb/shinobi/internal/component"
	"github.com/Kristopherlb/shinobi/internal/config"
	"github.com/Kristopherlb/shinobi/internal/patch"
)

// Phase names a pipeline phase.
type Phase string

const (
	PhaseInstantiate Phase = "instantiate"
	PhaseSynthesize  Phase = "synthesize"
	PhaseServices    Phase = "platform-services"
	PhaseBind        Phase = "bind"
	PhasePatch       Phase = "patch"
)

// ErrorCode categorizes run failures. Codes raised by collaborating
// packages are carried through unchanged.
type ErrorCode string

const (
	ErrCodeUnknownComponentType ErrorCode = component.ErrCodeUnknownComponentType
	ErrCodeMissingRequiredField ErrorCode = config.ErrCodeMissingRequiredField
	ErrCodeInstantiation        ErrorCode = "INSTANTIATION_FAILURE"
	ErrCodeSynthesis            ErrorCode = "SYNTHESIS_FAILURE"
	ErrCodeTargetNotFound       ErrorCode = ErrorCode(binder.ErrCodeTargetNotFound)
	ErrCodeSelectorNoMatch      ErrorCode = ErrorCode(binder.ErrCodeSelectorNoMatch)
	ErrCodeAmbiguousSelector    ErrorCode = ErrorCode(binder.ErrCodeAmbiguousSelector)
	ErrCodeBindingExecution     ErrorCode = ErrorCode(binder.ErrCodeBindingExecution)
	ErrCodePatchLoad            ErrorCode = patch.ErrCodeLoadFailure
	ErrCodePatchExecution       ErrorCode = patch.ErrCodeExecutionFailure
)

// Error is the single error a failed run returns. It carries the most
// specific context the failing phase had.
type Error struct {
	Code          ErrorCode
	Phase         Phase
	Component     string
	ComponentType string
	Directive     string
	Err           error
}

func (e *Error) Error() string {
	var ctx []string
	if e.Component != "" {
		ctx = append(ctx, "component="+e.Component)
	}
	if e.ComponentType != "" {
		ctx = append(ctx, "type="+e.ComponentType)
	}
	if e.Directive != "" {
		ctx = append(ctx, "directive="+e.Directive)
	}
	msg := fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
	if len(ctx) > 0 {
		msg += " (" + strings.Join(ctx, ", ") + ")"
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the run error code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// instantiateCode maps a factory error to its code.
func instantiateCode(err error) ErrorCode {
	switch {
	case component.IsUnknownType(err):
		return ErrCodeUnknownComponentType
	case config.IsMissingField(err):
		return ErrCodeMissingRequiredField
	default:
		return ErrCodeInstantiation
	}
}
