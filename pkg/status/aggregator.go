// Package status builds point-in-time health reports across all registered
// providers.
package status

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abdhe/transcript-summarizer/pkg/metrics"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
	"github.com/abdhe/transcript-summarizer/pkg/registry"
)

// Health is the state of one provider, or of the whole report.
type Health string

const (
	Healthy      Health = "healthy"
	Unreachable  Health = "unreachable"
	Unconfigured Health = "unconfigured"
	Failed       Health = "error"
	Degraded     Health = "degraded"
)

// Entry is one provider's line in a Report.
type Entry struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Status     Health `json:"status"`
	Detail     string `json:"detail,omitempty"`
	Model      string `json:"model,omitempty"`
}

// Report is keyed by provider name.
type Report struct {
	CheckedAt time.Time        `json:"checkedAt"`
	Providers map[string]Entry `json:"providers"`
}

// Overall folds the per-provider entries into one state.
func (r Report) Overall() Health {
	configured, healthy := 0, 0
	for _, e := range r.Providers {
		if !e.Configured {
			continue
		}
		configured++
		if e.Status == Healthy {
			healthy++
		}
	}
	switch {
	case configured == 0:
		return Unconfigured
	case healthy == configured:
		return Healthy
	case healthy == 0:
		return Failed
	default:
		return Degraded
	}
}

// Aggregator runs health checks. It never mutates the registry.
type Aggregator struct {
	reg      *registry.Registry
	logger   *slog.Logger
	recorder metrics.Recorder
	now      func() time.Time
}

type Option func(*Aggregator)

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(a *Aggregator) {
		if r != nil {
			a.recorder = r
		}
	}
}

func NewAggregator(reg *registry.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		reg:      reg,
		logger:   slog.Default(),
		recorder: metrics.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("component", "status")
	return a
}

// Gather checks every configured adapter concurrently, each bounded by its
// own health timeout, and returns once all have finished or timed out.
func (a *Aggregator) Gather(ctx context.Context) Report {
	adapters := a.reg.All()
	entries := make([]Entry, len(adapters))

	var wg sync.WaitGroup
	for i, ad := range adapters {
		st := ad.DescribeStatus()
		if !a.reg.IsConfigured(i) {
			entries[i] = Entry{Status: Unconfigured, Detail: "no credential configured", Model: st.Model}
			continue
		}

		wg.Add(1)
		go func(i int, ad provider.Adapter) {
			defer wg.Done()
			e := a.check(ctx, ad)
			e.Model = st.Model
			entries[i] = e
		}(i, ad)
	}
	wg.Wait()

	report := Report{CheckedAt: a.now().UTC(), Providers: make(map[string]Entry, len(adapters))}
	for i, ad := range adapters {
		report.Providers[ad.Name()] = entries[i]
		if entries[i].Configured {
			a.recorder.Health(ad.Name(), entries[i].Status == Healthy)
		}
	}

	if overall := report.Overall(); overall == Unconfigured {
		a.logger.Error("no providers configured")
	} else if overall != Healthy {
		a.logger.Warn("providers not fully healthy", "overall", string(overall))
	}
	return report
}

// check runs one adapter's probe in its own goroutine so a check that
// ignores its context still cannot hold the report past the timeout.
func (a *Aggregator) check(ctx context.Context, ad provider.Adapter) Entry {
	e := Entry{Configured: true}

	ctx, cancel := context.WithTimeout(ctx, ad.HealthTimeout())
	defer cancel()

	done := make(chan bool, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("health check panicked", "provider", ad.Name(), "panic", r)
				close(done)
			}
		}()
		done <- ad.CheckHealth(ctx)
	}()

	select {
	case ok, open := <-done:
		switch {
		case !open:
			e.Status = Failed
			e.Detail = "health check panicked"
		case ok:
			e.Status = Healthy
			e.Reachable = true
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			e.Status = Unreachable
			e.Detail = "health check timed out"
		default:
			e.Status = Unreachable
			e.Detail = "health check failed"
		}
	case <-ctx.Done():
		e.Status = Unreachable
		e.Detail = "health check timed out"
		if errors.Is(ctx.Err(), context.Canceled) {
			e.Detail = "health check cancelled"
		}
	}
	return e
}
