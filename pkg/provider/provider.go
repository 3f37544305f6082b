// Package provider defines the summarization adapter contract and the
// concrete backends (Groq, OpenAI, Gemini) that implement it.
package provider

import (
	"context"
	"strings"
	"time"
)

const (
	// DefaultInstructions is used when a caller supplies no instructions.
	DefaultInstructions = "Produce a structured summary covering discussion points, decisions, action items, and next steps."

	// SystemPrompt is the fixed system role sent with every summarization call.
	SystemPrompt = "You are a summarization assistant."

	DefaultTimeout         = 30 * time.Second
	DefaultHealthTimeout   = 5 * time.Second
	DefaultMaxOutputTokens = 1024
	DefaultTemperature     = 0.3
)

// Kind selects the concrete adapter built for a Config.
type Kind string

const (
	KindGroq   Kind = "groq"
	KindOpenAI Kind = "openai"
	KindGemini Kind = "gemini"
)

// Config is one provider record from the ordered provider list.
type Config struct {
	Name            string
	Kind            Kind
	Credential      string
	BaseURL         string
	Model           string
	Timeout         time.Duration
	HealthTimeout   time.Duration
	MaxOutputTokens int32
	Temperature     float32
}

// withDefaults fills zero-valued tuning fields.
func (c Config) withDefaults(baseURL, model string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Model == "" {
		c.Model = model
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.MaxOutputTokens <= 0 {
		c.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}

// Request is a single summarization request.
type Request struct {
	Transcript   string
	Instructions string
}

// Result is a successful summarization.
type Result struct {
	Content    string
	Provider   string
	TokensUsed int64
	LatencyMs  int64
}

// Status is the static, I/O-free description of an adapter.
type Status struct {
	Name       string `json:"name"`
	Configured bool   `json:"configured"`
	Model      string `json:"model"`
	BaseURL    string `json:"baseUrl"`
}

// Adapter is the interface every summarization backend implements.
// Implementations hold only immutable configuration and are safe for
// concurrent use.
type Adapter interface {
	// Name returns the display name used in results and reports (e.g. "Groq").
	Name() string

	// Summarize performs one summarization call. The context may carry a
	// caller deadline; the adapter applies its own per-call timeout on top.
	Summarize(ctx context.Context, req Request) (Result, error)

	// CheckHealth performs a lightweight probe. It never returns an error;
	// any failure reads as false.
	CheckHealth(ctx context.Context) bool

	// DescribeStatus reports configuration without doing I/O.
	DescribeStatus() Status

	// HealthTimeout is the window CheckHealth is allowed.
	HealthTimeout() time.Duration
}

// buildPrompt validates the request and returns the user message.
func buildPrompt(provider string, req Request) (string, error) {
	transcript := strings.TrimSpace(req.Transcript)
	if transcript == "" {
		return "", &Error{Kind: InvalidRequest, Provider: provider, Message: "transcript is empty"}
	}
	instructions := strings.TrimSpace(req.Instructions)
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return instructions + "\n\nTranscript:\n" + transcript, nil
}
