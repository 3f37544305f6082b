// Package failover tries registered providers in order until one returns a
// summary.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/abdhe/transcript-summarizer/pkg/metrics"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
	"github.com/abdhe/transcript-summarizer/pkg/registry"
)

// Outcome is a successful orchestrated call.
type Outcome struct {
	provider.Result
	// AttemptedCount is the 1-indexed position of the succeeding adapter
	// among the adapters actually attempted.
	AttemptedCount int
}

// Orchestrator runs sequential failover over a registry. It holds no
// per-call state and is safe for concurrent use.
type Orchestrator struct {
	reg      *registry.Registry
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.recorder = r
		}
	}
}

// New creates an orchestrator over reg.
func New(reg *registry.Registry, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:      reg,
		logger:   slog.Default(),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "failover")
	return o
}

// GenerateSummary summarizes transcript with the first provider that succeeds.
func (o *Orchestrator) GenerateSummary(ctx context.Context, transcript, instructions string) (Outcome, error) {
	o.recorder.InFlight(1)
	defer o.recorder.InFlight(-1)

	// -------------------------------------------------------------------------
	// Local validation: no provider is contacted for an empty transcript.
	// -------------------------------------------------------------------------
	if strings.TrimSpace(transcript) == "" {
		o.recorder.Request("invalid")
		return Outcome{}, &provider.Error{Kind: provider.InvalidRequest, Message: "transcript is empty"}
	}

	if o.reg.ConfiguredCount() == 0 {
		o.recorder.Request("unconfigured")
		o.logger.Error("summarization requested with no configured providers")
		return Outcome{}, &Error{Kind: provider.NoProvidersConfigured}
	}

	req := provider.Request{Transcript: transcript, Instructions: instructions}

	// -------------------------------------------------------------------------
	// Attempt configured adapters in registry order.
	// -------------------------------------------------------------------------
	var failures []Failure
	attempted := 0
	for i, a := range o.reg.All() {
		if !o.reg.IsConfigured(i) {
			continue
		}

		if err := ctx.Err(); err != nil {
			return Outcome{}, o.stopped(err, failures, a.Name())
		}

		attempted++
		start := time.Now()
		res, err := a.Summarize(ctx, req)
		latency := time.Since(start)

		if err == nil && strings.TrimSpace(res.Content) == "" {
			err = &provider.Error{Kind: provider.ProviderError, Provider: a.Name(), Message: "empty content in response"}
		}

		if err != nil {
			kind := provider.KindOf(err)
			if kind == provider.InvalidRequest {
				o.recorder.Request("invalid")
				return Outcome{}, err
			}
			if kind == provider.ErrUnknown {
				kind = provider.ProviderError
			}
			o.recorder.Attempt(a.Name(), kind.String(), latency, 0)
			failures = append(failures, Failure{Provider: a.Name(), Kind: kind, Message: failureMessage(err)})
			o.logFailure(a.Name(), attempted, kind, err)
			continue
		}

		if res.Provider == "" {
			res.Provider = a.Name()
		}
		if res.LatencyMs == 0 {
			res.LatencyMs = latency.Milliseconds()
		}
		o.recorder.Attempt(a.Name(), "success", latency, res.TokensUsed)
		o.recorder.Request("success")
		o.reg.MarkSuccess(i)

		if attempted > 1 {
			o.logger.Info("summarized after failover",
				"provider", res.Provider,
				"attempted", attempted,
				"latency_ms", res.LatencyMs,
			)
		}
		return Outcome{Result: res, AttemptedCount: attempted}, nil
	}

	o.recorder.Request("all_failed")
	o.logger.Error("all providers failed", "attempted", attempted)
	return Outcome{}, &Error{Kind: provider.AllProvidersFailed, Failures: failures}
}

// stopped builds the error for a call whose context ended between attempts.
func (o *Orchestrator) stopped(ctxErr error, failures []Failure, next string) error {
	o.recorder.Request("cancelled")
	o.logger.Warn("call ended before next provider", "next", next, "attempted", len(failures), "err", ctxErr)
	if errors.Is(ctxErr, context.DeadlineExceeded) {
		return &Error{Kind: provider.Timeout, Failures: failures, Err: ctxErr}
	}
	return fmt.Errorf("failover: %w", ctxErr)
}

func (o *Orchestrator) logFailure(name string, attempt int, kind provider.ErrorKind, err error) {
	attrs := []any{"provider", name, "attempt", attempt, "kind", kind.String(), "err", err}
	if kind == provider.InvalidCredentials {
		o.logger.Error("provider rejected credentials", attrs...)
		return
	}
	o.logger.Warn("provider attempt failed", attrs...)
}

func failureMessage(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}
