package types

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when required dataset columns or checkpoint
// files are missing or inconsistent. It is always fatal for the process that
// encounters it.
type ConfigurationError struct {
	err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.err
}

func ConfigurationErrorf(format string, args ...any) error {
	return &ConfigurationError{err: fmt.Errorf(format, args...)}
}

// ValidationError is returned for malformed or empty request input.
type ValidationError struct {
	err error
}

func (e *ValidationError) Error() string {
	return e.err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

func ValidationErrorf(format string, args ...any) error {
	return &ValidationError{err: fmt.Errorf(format, args...)}
}

// InferenceError wraps failures during tokenization or the forward pass of a
// single request.
type InferenceError struct {
	err error
}

func (e *InferenceError) Error() string {
	return e.err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.err
}

func InferenceErrorf(format string, args ...any) error {
	return &InferenceError{err: fmt.Errorf(format, args...)}
}

// StartupError means the model, tokenizer or label vocabulary could not be
// loaded. Stage names which step of the load sequence failed.
type StartupError struct {
	Stage string
	err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("startup failed loading %s: %v", e.Stage, e.err)
}

func (e *StartupError) Unwrap() error {
	return e.err
}

func NewStartupError(stage string, err error) error {
	return &StartupError{Stage: stage, err: err}
}

func IsConfigurationError(err error) bool {
	var cerr *ConfigurationError
	return errors.As(err, &cerr)
}

func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

func IsInferenceError(err error) bool {
	var ierr *InferenceError
	return errors.As(err, &ierr)
}
