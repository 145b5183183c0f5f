package entity

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	// Validation errors
	ErrValidation       = errors.New("validation failed")
	ErrMissingField     = fmt.Errorf("%w: required field is missing", ErrValidation)
	ErrInvalidFormat    = fmt.Errorf("%w: invalid format", ErrValidation)
	ErrTooLong          = fmt.Errorf("%w: value is too long", ErrValidation)
	ErrInvalidParameter = fmt.Errorf("%w: invalid parameter", ErrValidation)

	// Chat errors
	ErrEmptyQuery       = fmt.Errorf("%w: query", ErrMissingField)
	ErrMissingLanguage  = fmt.Errorf("%w: language", ErrMissingField)
	ErrQueryTooLong     = fmt.Errorf("%w: query", ErrTooLong)
	ErrRetrievalFailed  = errors.New("retrieval failed")
	ErrGenerationFailed = errors.New("generation failed")

	// Contact errors
	ErrInvalidEmail   = fmt.Errorf("%w: sender_mail", ErrInvalidFormat)
	ErrContentTooLong = fmt.Errorf("%w: content", ErrTooLong)
	ErrDeliveryFailed = errors.New("mail delivery failed")
)

// StageError is the terminal failure of a chat pipeline run. Stage names the
// state the run was in when it failed; Err wraps one of the domain errors
// above together with the internal cause.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("chat pipeline failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Fail builds a StageError wrapping kind and, if present, the underlying cause.
func Fail(stage Stage, kind error, cause error) *StageError {
	if cause == nil {
		return &StageError{Stage: stage, Err: kind}
	}
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", kind, cause)}
}
