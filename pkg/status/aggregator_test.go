package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdhe/transcript-summarizer/pkg/provider/providertest"
	"github.com/abdhe/transcript-summarizer/pkg/registry"
)

func TestGather_OneEntryPerAdapter(t *testing.T) {
	groq := providertest.Succeeding("Groq", "x")
	openai := providertest.Unconfigured("OpenAI")
	gemini := &providertest.Fake{AdapterName: "Gemini", Credential: "k", Healthy: false}

	report := NewAggregator(registry.New(groq, openai, gemini)).Gather(context.Background())

	require.Len(t, report.Providers, 3)
	assert.Equal(t, Entry{Configured: true, Reachable: true, Status: Healthy, Model: "fake-model"}, report.Providers["Groq"])
	assert.Equal(t, Unconfigured, report.Providers["OpenAI"].Status)
	assert.False(t, report.Providers["OpenAI"].Configured)
	assert.Equal(t, Unreachable, report.Providers["Gemini"].Status)
	assert.Equal(t, "health check failed", report.Providers["Gemini"].Detail)

	assert.Equal(t, 1, groq.HealthCalls())
	assert.Equal(t, 0, openai.HealthCalls(), "unconfigured adapters are never probed")
	assert.Equal(t, Degraded, report.Overall())
}

func TestGather_TimeoutIsUnreachable(t *testing.T) {
	slow := &providertest.Fake{AdapterName: "Slow", Credential: "k", Healthy: true, HealthDelay: time.Second, HealthLimit: 20 * time.Millisecond}
	fast := providertest.Succeeding("Fast", "x")

	start := time.Now()
	report := NewAggregator(registry.New(slow, fast)).Gather(context.Background())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, Unreachable, report.Providers["Slow"].Status)
	assert.Equal(t, "health check timed out", report.Providers["Slow"].Detail)
	assert.Equal(t, Healthy, report.Providers["Fast"].Status, "one slow adapter does not affect another")
}

func TestGather_PanicIsError(t *testing.T) {
	bad := &providertest.Fake{AdapterName: "Bad", Credential: "k", HealthPanic: true}
	good := providertest.Succeeding("Good", "x")

	report := NewAggregator(registry.New(bad, good)).Gather(context.Background())

	assert.Equal(t, Failed, report.Providers["Bad"].Status)
	assert.Equal(t, Healthy, report.Providers["Good"].Status)
}

func TestGather_Idempotent(t *testing.T) {
	reg := registry.New(providertest.Succeeding("Groq", "x"), providertest.Unconfigured("OpenAI"))
	agg := NewAggregator(reg)

	first := agg.Gather(context.Background())
	second := agg.Gather(context.Background())

	assert.Equal(t, first.Providers, second.Providers)
	assert.Equal(t, first.Overall(), second.Overall())
}

func TestGather_FixedClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	agg := NewAggregator(registry.New(providertest.Succeeding("Groq", "x")))
	agg.now = func() time.Time { return at }

	assert.Equal(t, at, agg.Gather(context.Background()).CheckedAt)
}

func TestReport_Overall(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string]Entry
		want    Health
	}{
		{"empty", map[string]Entry{}, Unconfigured},
		{"all unconfigured", map[string]Entry{"a": {Status: Unconfigured}}, Unconfigured},
		{"all healthy", map[string]Entry{
			"a": {Configured: true, Status: Healthy},
			"b": {Status: Unconfigured},
		}, Healthy},
		{"mixed", map[string]Entry{
			"a": {Configured: true, Status: Healthy},
			"b": {Configured: true, Status: Unreachable},
		}, Degraded},
		{"none reachable", map[string]Entry{
			"a": {Configured: true, Status: Unreachable},
			"b": {Configured: true, Status: Failed},
		}, Failed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Report{Providers: tt.entries}.Overall())
		})
	}
}
