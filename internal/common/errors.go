package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// ErrProviderCall covers transport failures and non-2xx responses from
	// the LLM provider. Local to one batch, never retried within a run.
	ErrProviderCall = errors.New("provider call failed")
	// ErrParse covers provider output that is not the expected structured
	// shape (unparseable or schema-invalid JSON). Local to one batch.
	ErrParse = errors.New("structured output parse failed")
	// ErrSegmentationFailed is run-fatal: no recognizable section headings,
	// so no batches can be formed at all.
	ErrSegmentationFailed = errors.New("segmentation failed")
)

// NewAppError builds an AppError with an explicit code.
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
