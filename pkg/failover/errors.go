package failover

import (
	"fmt"
	"strings"

	"github.com/abdhe/transcript-summarizer/pkg/provider"
)

// Failure is one provider's failed attempt within a call.
type Failure struct {
	Provider string             `json:"provider"`
	Kind     provider.ErrorKind `json:"kind"`
	Message  string             `json:"message"`
}

// Error is a terminal failure of an orchestrated call.
type Error struct {
	Kind     provider.ErrorKind
	Failures []Failure // registry order
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case provider.AllProvidersFailed:
		parts := make([]string, 0, len(e.Failures))
		for _, f := range e.Failures {
			parts = append(parts, fmt.Sprintf("%s: %s (%s)", f.Provider, f.Kind, f.Message))
		}
		return "all providers failed: " + strings.Join(parts, "; ")
	case provider.NoProvidersConfigured:
		return "no providers configured"
	}
	if e.Err != nil {
		return fmt.Sprintf("failover: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("failover: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) ErrorKind() provider.ErrorKind { return e.Kind }

// Retryable reports whether a caller may repeat the whole call later.
func (e *Error) Retryable() bool {
	return e.Kind == provider.AllProvidersFailed || e.Kind == provider.Timeout
}
