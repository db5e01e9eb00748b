package config

import (
	"errors"
	"fmt"
)

// ErrCodeMissingRequiredField is reported when no layer supplies a field the
// component type marks as required.
const ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"

// MissingFieldError names the required field and the component lacking it.
type MissingFieldError struct {
	Component     string
	ComponentType string
	Field         string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: component %q (type %s) has no value for required field %q",
		ErrCodeMissingRequiredField, e.Component, e.ComponentType, e.Field)
}

// Code returns the error code.
func (e *MissingFieldError) Code() string {
	return ErrCodeMissingRequiredField
}

// IsMissingField reports whether err is (or wraps) a MissingFieldError.
func IsMissingField(err error) bool {
	var mf *MissingFieldError
	return errors.As(err, &mf)
}
