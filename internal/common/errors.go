package common

import (
	"errors"
	"fmt"
	"net/http"
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

// Stage errors. A field pattern that simply does not match is NOT an error:
// the extractor represents that as a defaulted value and never returns one of
// these.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("resource not found")
	ErrExtraction   = errors.New("text extraction failed")
	ErrEnrichment   = errors.New("enrichment unavailable")
	ErrPersistence  = errors.New("ledger store failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func NewExtractionError(message string, cause error) *AppError {
	return &AppError{Code: "EXTRACTION_ERROR", Message: message, Cause: errors.Join(ErrExtraction, cause)}
}

func NewPersistenceError(message string, cause error) *AppError {
	return &AppError{Code: "PERSISTENCE_ERROR", Message: message, Cause: errors.Join(ErrPersistence, cause)}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus maps a pipeline error onto the status code the API reports.
// Extraction failures are the upstream capability's fault, not the client's.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrPersistence):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorStage names the pipeline stage an error belongs to, for inline
// user-facing messages identifying which stage failed.
func ErrorStage(err error) string {
	switch {
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, ErrEnrichment):
		return "enrichment"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrInvalidInput):
		return "input"
	default:
		return "internal"
	}
}
