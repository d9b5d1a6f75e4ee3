package climate

import (
	"errors"
	"fmt"
)

var (
	// ErrIncompleteSnapshot means a required scalar was missing or not finite.
	ErrIncompleteSnapshot = errors.New("incomplete climate snapshot")
	// ErrBadStatus means the provider answered with a non-OK status code.
	ErrBadStatus = errors.New("provider returned failure status")
	// ErrEmptyPayload means the provider answered OK without data.
	ErrEmptyPayload = errors.New("provider returned no data")
	// ErrBusy is returned when a fetch is already in flight.
	ErrBusy = errors.New("climate request already in flight")
)

// FailureKind classifies why a fetch failed.
type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureLogical   FailureKind = "logical"
)

// ProviderError is the terminal outcome of a fetch whose retries ran out.
type ProviderError struct {
	Kind       FailureKind
	Attempts   int
	Persistent bool
	Err        error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("climate provider %s failure after %d attempt(s): %v", e.Kind, e.Attempts, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// logicalError tags an error as a well-formed but unusable response.
type logicalError struct {
	err error
}

func (e logicalError) Error() string { return e.err.Error() }
func (e logicalError) Unwrap() error { return e.err }

func classify(err error) FailureKind {
	var le logicalError
	if errors.As(err, &le) {
		return FailureLogical
	}
	return FailureTransport
}
