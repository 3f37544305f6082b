package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com"
	geminiModel   = "gemini-2.5-flash"
)

// GeminiAdapter implements Adapter for Google's Gemini API using the genai SDK.
type GeminiAdapter struct {
	name   string
	cfg    Config
	client *genai.Client
}

var _ Adapter = (*GeminiAdapter)(nil)

// NewGemini creates a Gemini adapter. An unconfigured adapter (no credential)
// is still returned so it can appear in status reports.
func NewGemini(ctx context.Context, cfg Config) (*GeminiAdapter, error) {
	cfg = cfg.withDefaults(geminiBaseURL, geminiModel)
	name := cfg.Name
	if name == "" {
		name = "Gemini"
	}
	g := &GeminiAdapter{name: name, cfg: cfg}
	if cfg.Credential == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.Credential,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL + "/",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	g.client = client
	return g, nil
}

func (g *GeminiAdapter) Name() string { return g.name }

func (g *GeminiAdapter) HealthTimeout() time.Duration { return g.cfg.HealthTimeout }

func (g *GeminiAdapter) DescribeStatus() Status {
	return Status{
		Name:       g.name,
		Configured: g.cfg.Credential != "",
		Model:      g.cfg.Model,
		BaseURL:    g.cfg.BaseURL,
	}
}

// Summarize performs a unary generateContent call.
func (g *GeminiAdapter) Summarize(ctx context.Context, req Request) (Result, error) {
	prompt, err := buildPrompt(g.name, req)
	if err != nil {
		return Result{}, err
	}
	if g.client == nil {
		return Result{}, &Error{Kind: InvalidCredentials, Provider: g.name, Message: "no credential configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(g.cfg.Temperature),
		MaxOutputTokens:   g.cfg.MaxOutputTokens,
	})
	if err != nil {
		return Result{}, g.classify(err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Result{}, &Error{Kind: ProviderError, Provider: g.name, Message: "empty content in response"}
	}

	var tokens int64
	if resp.UsageMetadata != nil {
		tokens = int64(resp.UsageMetadata.TotalTokenCount)
		if tokens == 0 {
			tokens = int64(resp.UsageMetadata.PromptTokenCount) + int64(resp.UsageMetadata.CandidatesTokenCount)
		}
	}

	return Result{
		Content:    text,
		Provider:   g.name,
		TokensUsed: tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CheckHealth lists a single model page.
func (g *GeminiAdapter) CheckHealth(ctx context.Context) bool {
	if g.client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, g.cfg.HealthTimeout)
	defer cancel()

	_, err := g.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1})
	return err == nil
}

func (g *GeminiAdapter) classify(err error) *Error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Status
		}
		e := classifyStatus(g.name, apiErr.Code, msg)
		e.Err = err
		return e
	}
	return classifyTransport(g.name, err)
}
