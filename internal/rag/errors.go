// internal/rag/errors.go
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwiater/mmrag/internal/extract"
)

var (
	// ErrIntegrity reports a summary id with no raw content behind it.
	ErrIntegrity = errors.New("index integrity violated")
	// ErrPersistence reports a storage directory that cannot be read or written.
	ErrPersistence = errors.New("index persistence failed")
	// ErrGenerative reports a failed answer generation call.
	ErrGenerative = errors.New("answer generation failed")
	// ErrMisaligned reports summaries and raw contents of different lengths.
	ErrMisaligned = errors.New("summaries and contents are misaligned")
)

// IntegrityError names the id that could not be resolved in the docstore.
type IntegrityError struct {
	ID string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: id %s not found in docstore", ErrIntegrity, e.ID)
}

// Unwrap lets errors.Is match ErrIntegrity.
func (e *IntegrityError) Unwrap() error {
	return ErrIntegrity
}

// Error codes returned by Classify.
const (
	CodeIntegrity   = "integrity"
	CodePersistence = "persistence"
	CodeGenerative  = "generative"
	CodeExtraction  = "extraction"
	CodeMisaligned  = "misaligned"
	CodeCanceled    = "canceled"
	CodeUnknown     = "unknown"
)

// Classify maps an error onto a short code for logs and HTTP status selection.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.Is(err, ErrIntegrity):
		return CodeIntegrity
	case errors.Is(err, ErrPersistence):
		return CodePersistence
	case errors.Is(err, ErrGenerative):
		return CodeGenerative
	case errors.Is(err, ErrMisaligned):
		return CodeMisaligned
	case errors.Is(err, extract.ErrExtraction):
		return CodeExtraction
	default:
		return CodeUnknown
	}
}
