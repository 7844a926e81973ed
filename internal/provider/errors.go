package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMatch indicates the query resolved to zero candidates. It is an
	// informative outcome, not a failure.
	ErrNoMatch = errors.New("no matching instrument")

	// ErrExtraction indicates an instrument was resolved but its quote could
	// not be read in full.
	ErrExtraction = errors.New("quote unavailable")
)

// NoMatchError explains why a query matched nothing.
type NoMatchError struct {
	Query  string
	Reason string
	// Timeout is set when results never rendered, as opposed to the source
	// rendering an empty result list.
	Timeout bool
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("%s for %q: %s", ErrNoMatch, e.Query, e.Reason)
}

func (e *NoMatchError) Is(target error) bool { return target == ErrNoMatch }

// ExtractionError names the instrument and the field that could not be read.
type ExtractionError struct {
	Instrument Instrument
	Field      string // empty when the page never rendered
	Err        error
}

func (e *ExtractionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s for %s: %v", ErrExtraction, e.Instrument, e.Err)
	}
	return fmt.Sprintf("%s for %s: field %s: %v", ErrExtraction, e.Instrument, e.Field, e.Err)
}

func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

func (e *ExtractionError) Unwrap() error { return e.Err }
