package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
	"github.com/abdhe/transcript-summarizer/pkg/share"
	"github.com/abdhe/transcript-summarizer/pkg/store"
	"github.com/abdhe/transcript-summarizer/pkg/transcript"
)

type errorBody struct {
	Error     string             `json:"error"`
	Kind      string             `json:"kind,omitempty"`
	Retryable bool               `json:"retryable"`
	Failures  []failover.Failure `json:"failures,omitempty"`
}

var badRequestErrors = []error{
	transcript.ErrUnsupportedType,
	transcript.ErrEmpty,
	transcript.ErrNotUTF8,
	share.ErrNoRecipients,
	share.ErrTooManyRecipients,
	share.ErrInvalidRecipient,
	share.ErrEmptySummary,
}

// writeError maps domain errors to status codes and the JSON error body.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	if errors.Is(err, transcript.ErrTooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: err.Error()})
		return
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
	}

	var failures []failover.Failure
	var fe *failover.Error
	if errors.As(err, &fe) {
		failures = fe.Failures
	}

	switch kind := provider.KindOf(err); kind {
	case provider.AllProvidersFailed:
		s.logger.Error("summarization unavailable", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, errorBody{
			Error:     "summarization temporarily unavailable",
			Kind:      kind.String(),
			Retryable: true,
			Failures:  failures,
		})
		return
	case provider.NoProvidersConfigured:
		s.logger.Error("summarization not configured", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Error: "summarization is not configured",
			Kind:  kind.String(),
		})
		return
	case provider.InvalidRequest:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Kind: kind.String()})
		return
	case provider.Timeout:
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "summarization timed out", Kind: kind.String(), Retryable: true})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "request timed out", Retryable: true})
		return
	}
	if errors.Is(err, context.Canceled) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "request cancelled", Retryable: true})
		return
	}

	s.logger.Error("request failed", "err", err)
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func writeMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
	}
}
