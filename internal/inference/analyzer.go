// Package inference guesses product attributes from a bare URL string with a
// text-generation model. The target page is never fetched: the model only
// sees the URL itself.
package inference

import (
	"context"
	"errors"
	"fmt"

	"github.com/learoder-max/Wishlist/internal/models"
)

// Analyzer infers a ParsedProduct from a URL.
//
// On any failure the product is nil and the error wraps ErrNothingExtracted
// with a Reason. Implementations never panic on bad model output.
type Analyzer interface {
	AnalyzeURL(ctx context.Context, url string) (*models.ParsedProduct, error)
}

// ErrNothingExtracted is the single failure signal of an Analyzer.
var ErrNothingExtracted = errors.New("nothing extracted from url")

// Reason classifies an inference failure.
type Reason string

const (
	ReasonDisabled  Reason = "disabled"
	ReasonTransport Reason = "transport"
	ReasonTimeout   Reason = "timeout"
	ReasonEmpty     Reason = "empty"
	ReasonMalformed Reason = "malformed"
	ReasonSchema    Reason = "schema"
)

// Error is returned by analyzers on failure.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", ErrNothingExtracted, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", ErrNothingExtracted, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrNothingExtracted.
func (e *Error) Is(target error) bool { return target == ErrNothingExtracted }

func fail(reason Reason, err error) error {
	return &Error{Reason: reason, Err: err}
}

// ReasonOf returns the failure reason carried by err, or "" if err did not
// come from an Analyzer.
func ReasonOf(err error) Reason {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Reason
	}
	return ""
}

// Disabled is used when no model is configured. Every call fails.
type Disabled struct{}

// AnalyzeURL always reports ReasonDisabled.
func (Disabled) AnalyzeURL(context.Context, string) (*models.ParsedProduct, error) {
	return nil, fail(ReasonDisabled, nil)
}
