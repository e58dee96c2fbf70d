package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikhilbhutani/knowledgebase/internal/apperr"
	"github.com/nikhilbhutani/knowledgebase/internal/config"
)

type gateway struct {
	providers        map[string]Provider
	defaultProvider  string
	defaultModel     string
	fallbackProvider string
	fallbackModel    string
	maxRetries       int
	backoff          time.Duration
}

func NewGateway(cfg config.LLMConfig) Gateway {
	var providers []Provider
	if cfg.GeminiKey != "" {
		providers = append(providers, NewGeminiProvider(cfg.GeminiKey))
	}
	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey))
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey))
	}
	if cfg.OllamaURL != "" {
		providers = append(providers, NewOllamaProvider(cfg.OllamaURL))
	}
	return NewGatewayWithProviders(cfg, providers...)
}

// NewGatewayWithProviders is NewGateway with explicit providers, used by
// tests and by callers that build their own clients.
func NewGatewayWithProviders(cfg config.LLMConfig, providers ...Provider) Gateway {
	g := &gateway{
		providers:        make(map[string]Provider),
		defaultProvider:  cfg.DefaultProvider,
		defaultModel:     cfg.DefaultModel,
		fallbackProvider: cfg.FallbackProvider,
		fallbackModel:    cfg.FallbackModel,
		maxRetries:       cfg.MaxRetries,
		backoff:          500 * time.Millisecond,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Configured() bool { return len(g.providers) > 0 }

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

// Chat runs the request on the default provider with retries. When that
// fails, or the provider cannot take the attachments, the fallback provider
// gets one more round. An empty completion counts as a failure.
func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !g.Configured() {
		return nil, ErrNoProvider
	}
	providerName := req.Provider
	if providerName == "" {
		providerName = g.defaultProvider
	}
	if req.Model == "" && providerName == g.defaultProvider {
		req.Model = g.defaultModel
	}

	resp, err := g.chatWithRetry(ctx, providerName, req)
	if err != nil && g.fallbackProvider != "" && g.fallbackProvider != providerName && ctx.Err() == nil {
		slog.Warn("primary provider failed, trying fallback",
			"primary", providerName,
			"fallback", g.fallbackProvider,
			"error", err,
		)
		fb := req
		fb.Provider = g.fallbackProvider
		fb.Model = g.fallbackModel
		return g.chatWithRetry(ctx, g.fallbackProvider, fb)
	}
	return resp, err
}

func (g *gateway) chatWithRetry(ctx context.Context, providerName string, req ChatRequest) (*ChatResponse, error) {
	p, err := g.Provider(providerName)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * g.backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			slog.Debug("retrying LLM call", "provider", providerName, "attempt", attempt)
		}

		resp, err := p.ChatCompletion(ctx, req)
		if err == nil && strings.TrimSpace(resp.Content) == "" {
			err = apperr.ErrEmptyGeneration
		}
		if err == nil {
			slog.Debug("llm call completed",
				"provider", resp.Provider,
				"model", resp.Model,
				"latency_ms", resp.LatencyMs,
				"total_tokens", resp.TotalTokens,
			)
			return resp, nil
		}
		lastErr = err
		if errors.Is(err, ErrAttachmentsUnsupported) || ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all retries exhausted for %s: %w", providerName, lastErr)
}

func (g *gateway) ListModels() []ModelInfo {
	var models []ModelInfo
	for _, p := range g.providers {
		for _, m := range p.Models() {
			models = append(models, ModelInfo{
				Provider: p.Name(),
				Model:    m,
			})
		}
	}
	return models
}
