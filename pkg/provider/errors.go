package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies summarization failures across providers.
type ErrorKind int

const (
	ErrUnknown ErrorKind = iota
	Timeout
	RateLimited
	InvalidCredentials
	ProviderUnavailable
	ProviderError
	AllProvidersFailed
	NoProvidersConfigured
	// InvalidRequest is a local validation failure raised before any I/O.
	InvalidRequest
)

var kindNames = map[ErrorKind]string{
	ErrUnknown:            "Unknown",
	Timeout:               "Timeout",
	RateLimited:           "RateLimited",
	InvalidCredentials:    "InvalidCredentials",
	ProviderUnavailable:   "ProviderUnavailable",
	ProviderError:         "ProviderError",
	AllProvidersFailed:    "AllProvidersFailed",
	NoProvidersConfigured: "NoProvidersConfigured",
	InvalidRequest:        "InvalidRequest",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText lets kinds render by name in JSON reports.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Terminal reports whether the kind ends an orchestrated call.
func (k ErrorKind) Terminal() bool {
	return k == AllProvidersFailed || k == NoProvidersConfigured
}

// Error is a classified failure from a single adapter call.
type Error struct {
	Kind     ErrorKind
	Provider string
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the ErrorKind from any error in the chain. Errors that
// carry no kind report ErrUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ErrUnknown
	}
	var k interface{ ErrorKind() ErrorKind }
	if errors.As(err, &k) {
		return k.ErrorKind()
	}
	return ErrUnknown
}

// ErrorKind implements the kinded interface consulted by KindOf.
func (e *Error) ErrorKind() ErrorKind { return e.Kind }

// classifyStatus maps a non-2xx HTTP status to the shared taxonomy.
func classifyStatus(provider string, code int, message string) *Error {
	kind := ProviderError
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		kind = InvalidCredentials
	case code == http.StatusTooManyRequests:
		kind = RateLimited
	case code >= 500:
		kind = ProviderUnavailable
	}
	return &Error{Kind: kind, Provider: provider, Message: message}
}

// classifyTransport maps a failed round trip to Timeout. The outer context
// error is kept in the chain so callers can tell cancellation apart.
func classifyTransport(provider string, err error) *Error {
	msg := "request failed"
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &Error{Kind: Timeout, Provider: provider, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}
