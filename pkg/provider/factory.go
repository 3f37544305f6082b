package provider

import (
	"context"
	"fmt"
	"strings"
)

// New builds the adapter variant selected by cfg.Kind.
func New(ctx context.Context, cfg Config) (Adapter, error) {
	switch Kind(strings.ToLower(string(cfg.Kind))) {
	case KindGroq:
		return NewGroq(cfg), nil
	case KindOpenAI:
		return NewOpenAI(cfg), nil
	case KindGemini:
		return NewGemini(ctx, cfg)
	default:
		return nil, fmt.Errorf("provider: unknown kind %q for %q", cfg.Kind, cfg.Name)
	}
}
