package component

import (
	"errors"
	"fmt"
)

// ErrCodeUnknownComponentType is reported when no constructor is registered
// for a manifest type.
const ErrCodeUnknownComponentType = "UNKNOWN_COMPONENT_TYPE"

// ErrNotSynthesized is returned when capabilities or constructs are queried
// before Synth has returned.
var ErrNotSynthesized = errors.New("component not synthesized")

// UnknownTypeError names the unregistered type and the known ones.
type UnknownTypeError struct {
	Component string
	Type      string
	Known     []string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("%s: component %q has unknown type %q (known: %v)",
		ErrCodeUnknownComponentType, e.Component, e.Type, e.Known)
}

// Code returns the error code.
func (e *UnknownTypeError) Code() string {
	return ErrCodeUnknownComponentType
}

// IsUnknownType reports whether err is (or wraps) an UnknownTypeError.
func IsUnknownType(err error) bool {
	var ut *UnknownTypeError
	return errors.As(err, &ut)
}

// HandleError reports a construct handle the component does not own.
type HandleError struct {
	Component string
	Handle    string
}

func (e *HandleError) Error() string {
	return fmt.Sprintf("component %q has no construct with handle %q", e.Component, e.Handle)
}
