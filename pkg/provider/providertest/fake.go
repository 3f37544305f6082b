// Package providertest offers a scriptable in-memory Adapter for tests.
package providertest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/abdhe/transcript-summarizer/pkg/provider"
)

// Fake is a provider.Adapter whose behavior is set by its fields.
type Fake struct {
	AdapterName string
	Credential  string

	// Content is returned on success. Err, when set, is returned instead.
	Content string
	Tokens  int64
	Err     error

	// Delay holds Summarize until it elapses or the context ends.
	Delay time.Duration

	Healthy     bool
	HealthDelay time.Duration
	HealthLimit time.Duration
	HealthPanic bool

	summarizeCalls atomic.Int32
	healthCalls    atomic.Int32
}

var _ provider.Adapter = (*Fake)(nil)

func (f *Fake) Name() string { return f.AdapterName }

func (f *Fake) Summarize(ctx context.Context, req provider.Request) (provider.Result, error) {
	f.summarizeCalls.Add(1)
	start := time.Now()
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return provider.Result{}, &provider.Error{Kind: provider.Timeout, Provider: f.AdapterName, Message: ctx.Err().Error(), Err: ctx.Err()}
		}
	}
	if f.Err != nil {
		return provider.Result{}, f.Err
	}
	return provider.Result{
		Content:    f.Content,
		Provider:   f.AdapterName,
		TokensUsed: f.Tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

func (f *Fake) CheckHealth(ctx context.Context) bool {
	f.healthCalls.Add(1)
	if f.HealthPanic {
		panic("fake health check panic")
	}
	if f.HealthDelay > 0 {
		select {
		case <-time.After(f.HealthDelay):
		case <-ctx.Done():
			return false
		}
	}
	return f.Healthy
}

func (f *Fake) DescribeStatus() provider.Status {
	return provider.Status{
		Name:       f.AdapterName,
		Configured: f.Credential != "",
		Model:      "fake-model",
		BaseURL:    "fake://" + f.AdapterName,
	}
}

func (f *Fake) HealthTimeout() time.Duration {
	if f.HealthLimit > 0 {
		return f.HealthLimit
	}
	return time.Second
}

// SummarizeCalls reports how many times Summarize ran.
func (f *Fake) SummarizeCalls() int { return int(f.summarizeCalls.Load()) }

// HealthCalls reports how many times CheckHealth ran.
func (f *Fake) HealthCalls() int { return int(f.healthCalls.Load()) }

// Failing returns a configured Fake that always fails with kind.
func Failing(name string, kind provider.ErrorKind) *Fake {
	return &Fake{
		AdapterName: name,
		Credential:  "key-" + name,
		Err:         &provider.Error{Kind: kind, Provider: name, Message: kind.String()},
	}
}

// Succeeding returns a configured Fake that returns content.
func Succeeding(name, content string) *Fake {
	return &Fake{AdapterName: name, Credential: "key-" + name, Content: content, Healthy: true}
}

// Unconfigured returns a Fake with no credential.
func Unconfigured(name string) *Fake {
	return &Fake{AdapterName: name}
}
