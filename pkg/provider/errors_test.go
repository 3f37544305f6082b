package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "AllProvidersFailed", AllProvidersFailed.String())
	assert.Equal(t, "Timeout", Timeout.String())
	assert.Equal(t, "ErrorKind(99)", ErrorKind(99).String())

	b, err := RateLimited.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "RateLimited", string(b))
}

func TestErrorKind_Terminal(t *testing.T) {
	assert.True(t, AllProvidersFailed.Terminal())
	assert.True(t, NoProvidersConfigured.Terminal())
	for _, k := range []ErrorKind{Timeout, RateLimited, InvalidCredentials, ProviderUnavailable, ProviderError, InvalidRequest} {
		assert.False(t, k.Terminal(), k.String())
	}
}

func TestKindOf(t *testing.T) {
	base := &Error{Kind: RateLimited, Provider: "Groq", Message: "slow down"}
	assert.Equal(t, RateLimited, KindOf(base))
	assert.Equal(t, RateLimited, KindOf(fmt.Errorf("wrapped: %w", base)))
	assert.Equal(t, ErrUnknown, KindOf(errors.New("plain")))
	assert.Equal(t, ErrUnknown, KindOf(nil))
}

func TestError_Message(t *testing.T) {
	e := &Error{Kind: InvalidCredentials, Provider: "OpenAI", Message: "bad key"}
	assert.Equal(t, "OpenAI: InvalidCredentials: bad key", e.Error())

	e = &Error{Kind: NoProvidersConfigured, Message: "none"}
	assert.Equal(t, "NoProvidersConfigured: none", e.Error())
}

func TestClassifyTransport_KeepsContextError(t *testing.T) {
	err := classifyTransport("Groq", fmt.Errorf("do: %w", context.DeadlineExceeded))
	assert.Equal(t, Timeout, err.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Message, "timed out")
}
