package flight

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why a fetch failed. All kinds are treated the same for
// backoff purposes; the kind is forwarded for status display.
type ErrorKind string

const (
	// ErrNetwork covers timeouts, DNS failures, refused connections and
	// unexpected HTTP statuses.
	ErrNetwork ErrorKind = "network"

	// ErrAuth means the API key is missing or was rejected.
	ErrAuth ErrorKind = "auth"

	// ErrRateLimit means the provider returned HTTP 429 or equivalent.
	ErrRateLimit ErrorKind = "rate_limit"

	// ErrMalformed means the response payload could not be parsed.
	ErrMalformed ErrorKind = "malformed_response"

	// ErrUnknown is used for errors that carry no kind, including recovered
	// source panics.
	ErrUnknown ErrorKind = "unknown"
)

// String returns the kind name.
func (k ErrorKind) String() string {
	return string(k)
}

// FetchError is the error type returned by sources.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewFetchError builds a [*FetchError] wrapping err.
func NewFetchError(kind ErrorKind, message string, err error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: err}
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf classifies an arbitrary error. A wrapped [*FetchError] wins; context
// deadlines and net errors are network failures; everything else is unknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrNetwork
	}
	return ErrUnknown
}

// MessageOf returns the human-readable part of an error for status display.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}
