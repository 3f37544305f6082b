package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	groqBaseURL   = "https://api.groq.com/openai/v1"
	groqModel     = "llama-3.1-8b-instant"
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"

	// maxErrorBody bounds how much of a failed response is read.
	maxErrorBody = 4096
)

// ChatAdapter talks to an OpenAI-compatible Chat Completions API. Groq and
// OpenAI are both served by it with different defaults.
type ChatAdapter struct {
	name   string
	cfg    Config
	client *http.Client
}

var _ Adapter = (*ChatAdapter)(nil)

// NewGroq creates a Groq adapter.
func NewGroq(cfg Config) *ChatAdapter {
	return newChatAdapter("Groq", cfg.withDefaults(groqBaseURL, groqModel))
}

// NewOpenAI creates an OpenAI adapter.
func NewOpenAI(cfg Config) *ChatAdapter {
	return newChatAdapter("OpenAI", cfg.withDefaults(openAIBaseURL, openAIModel))
}

func newChatAdapter(defaultName string, cfg Config) *ChatAdapter {
	name := cfg.Name
	if name == "" {
		name = defaultName
	}
	return &ChatAdapter{
		name:   name,
		cfg:    cfg,
		client: &http.Client{},
	}
}

func (c *ChatAdapter) Name() string { return c.name }

func (c *ChatAdapter) HealthTimeout() time.Duration { return c.cfg.HealthTimeout }

func (c *ChatAdapter) DescribeStatus() Status {
	return Status{
		Name:       c.name,
		Configured: c.cfg.Credential != "",
		Model:      c.cfg.Model,
		BaseURL:    c.cfg.BaseURL,
	}
}

// ---------------------------------------------------------------------------
// Request / Response types for Chat Completions
// ---------------------------------------------------------------------------

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int32         `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
		TotalTokens      int64 `json:"total_tokens"`
	} `json:"usage"`
}

type chatErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Summarize sends one chat completion request.
func (c *ChatAdapter) Summarize(ctx context.Context, req Request) (Result, error) {
	prompt, err := buildPrompt(c.name, req)
	if err != nil {
		return Result{}, err
	}

	body := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxOutputTokens,
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return Result{}, &Error{Kind: ProviderError, Provider: c.name, Message: "marshal request", Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return Result{}, &Error{Kind: ProviderError, Provider: c.name, Message: "create request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.Credential)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return Result{}, classifyTransport(c.name, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return Result{}, classifyStatus(c.name, httpResp.StatusCode, errorMessage(httpResp.StatusCode, respBody))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		if ctx.Err() != nil {
			return Result{}, classifyTransport(c.name, err)
		}
		return Result{}, &Error{Kind: ProviderError, Provider: c.name, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}

	var text string
	if len(chatResp.Choices) > 0 {
		text = strings.TrimSpace(chatResp.Choices[0].Message.Content)
	}
	if text == "" {
		return Result{}, &Error{Kind: ProviderError, Provider: c.name, Message: "empty content in response"}
	}

	var tokens int64
	if chatResp.Usage != nil {
		tokens = chatResp.Usage.TotalTokens
		if tokens == 0 {
			tokens = chatResp.Usage.PromptTokens + chatResp.Usage.CompletionTokens
		}
	}

	return Result{
		Content:    text,
		Provider:   c.name,
		TokensUsed: tokens,
		LatencyMs:  time.Since(start).Milliseconds(),
	}, nil
}

// CheckHealth lists models with the short health timeout.
func (c *ChatAdapter) CheckHealth(ctx context.Context) bool {
	if c.cfg.Credential == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	return resp.StatusCode == http.StatusOK
}

// errorMessage prefers the provider's error.message and falls back to the
// raw body.
func errorMessage(code int, body []byte) string {
	var eb chatErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error.Message != "" {
		return eb.Error.Message
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("HTTP %d", code)
}
