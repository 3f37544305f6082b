package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abdhe/transcript-summarizer/pkg/failover"
	"github.com/abdhe/transcript-summarizer/pkg/provider"
)

func fastConfig(retries int) RetryConfig {
	return RetryConfig{MaxRetries: retries, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return &failover.Error{Kind: provider.AllProvidersFailed}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnTerminalConfigError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(3), func(context.Context) error {
		calls++
		return &failover.Error{Kind: provider.NoProvidersConfigured}
	})
	assert.Equal(t, 1, calls)
	assert.Equal(t, provider.NoProvidersConfigured, provider.KindOf(err))
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastConfig(2), func(context.Context) error {
		calls++
		return &failover.Error{Kind: provider.AllProvidersFailed, Failures: []failover.Failure{{Provider: "Groq", Kind: provider.Timeout}}}
	})
	assert.Equal(t, 3, calls)

	var fe *failover.Error
	assert.ErrorAs(t, err, &fe)
	assert.Len(t, fe.Failures, 1)
}

func TestRetry_CustomPredicate(t *testing.T) {
	sentinel := errors.New("flaky")
	calls := 0
	cfg := fastConfig(2)
	cfg.Retryable = func(err error) bool { return errors.Is(err, sentinel) }

	err := Retry(context.Background(), cfg, func(context.Context) error {
		calls++
		return fmt.Errorf("wrapped: %w", sentinel)
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Retry(ctx, fastConfig(3), func(context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, calls)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"all failed", &failover.Error{Kind: provider.AllProvidersFailed}, true},
		{"unconfigured", &failover.Error{Kind: provider.NoProvidersConfigured}, false},
		{"invalid request", &provider.Error{Kind: provider.InvalidRequest}, false},
		{"rate limited", &provider.Error{Kind: provider.RateLimited}, true},
		{"bad credentials", &provider.Error{Kind: provider.InvalidCredentials}, false},
		{"cancelled", fmt.Errorf("failover: %w", context.Canceled), false},
		{"plain", errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestCalculateDelay_Bounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := calculateDelay(attempt, 10*time.Millisecond, 100*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Millisecond)
		assert.LessOrEqual(t, d, 100*time.Millisecond)
	}
}
