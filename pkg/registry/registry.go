// Package registry holds the ordered, read-only set of provider adapters
// built once at startup.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/abdhe/transcript-summarizer/pkg/provider"
)

// ErrNoConfiguredProviders is returned by Validate when no adapter has a credential.
var ErrNoConfiguredProviders = errors.New("registry: no providers configured")

// Factory builds one adapter from its configuration record.
type Factory func(ctx context.Context, cfg provider.Config) (provider.Adapter, error)

// Registry is an insertion-ordered list of adapters. Order is the fallback order.
type Registry struct {
	adapters   []provider.Adapter
	configured []bool

	// lastSuccess is a diagnostic hint only; it never affects ordering.
	lastSuccess atomic.Int64
}

// Build constructs one adapter per record, in order. Records without a
// credential are kept and marked unconfigured.
func Build(ctx context.Context, cfgs []provider.Config, factory Factory) (*Registry, error) {
	if factory == nil {
		factory = provider.New
	}

	seen := make(map[string]bool, len(cfgs))
	adapters := make([]provider.Adapter, 0, len(cfgs))
	for _, cfg := range cfgs {
		a, err := factory(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("registry: build %q: %w", cfg.Name, err)
		}
		key := strings.ToLower(a.Name())
		if seen[key] {
			return nil, fmt.Errorf("registry: duplicate provider name %q", a.Name())
		}
		seen[key] = true
		adapters = append(adapters, a)
	}
	return New(adapters...), nil
}

// New wraps already-built adapters.
func New(adapters ...provider.Adapter) *Registry {
	r := &Registry{
		adapters:   append([]provider.Adapter(nil), adapters...),
		configured: make([]bool, len(adapters)),
	}
	for i, a := range adapters {
		r.configured[i] = a.DescribeStatus().Configured
	}
	r.lastSuccess.Store(-1)
	return r
}

// All returns every adapter in registry order.
func (r *Registry) All() []provider.Adapter {
	return append([]provider.Adapter(nil), r.adapters...)
}

// Configured returns the adapters eligible for summarization, in order.
func (r *Registry) Configured() []provider.Adapter {
	out := make([]provider.Adapter, 0, len(r.adapters))
	for i, a := range r.adapters {
		if r.configured[i] {
			out = append(out, a)
		}
	}
	return out
}

// IsConfigured reports whether the adapter at index i has a credential.
func (r *Registry) IsConfigured(i int) bool {
	return i >= 0 && i < len(r.configured) && r.configured[i]
}

func (r *Registry) Len() int { return len(r.adapters) }

func (r *Registry) ConfiguredCount() int {
	n := 0
	for _, ok := range r.configured {
		if ok {
			n++
		}
	}
	return n
}

// Validate fails when no adapter can serve a summarization.
func (r *Registry) Validate() error {
	if r.ConfiguredCount() == 0 {
		return ErrNoConfiguredProviders
	}
	return nil
}

// MarkSuccess records the index of the adapter that last served a request.
func (r *Registry) MarkSuccess(i int) {
	if i >= 0 && i < len(r.adapters) {
		r.lastSuccess.Store(int64(i))
	}
}

// LastSuccess returns the name of the adapter that last served a request.
func (r *Registry) LastSuccess() (string, bool) {
	i := r.lastSuccess.Load()
	if i < 0 {
		return "", false
	}
	return r.adapters[i].Name(), true
}
