package llm

import (
	"context"
	"strings"
)

// Provider sends a message list plus the tool schema to a model and returns
// the model's reply as an AI message. A reply with no ToolCalls is final.
type Provider interface {
	Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error)
}

type Config struct {
	Mode             string
	Provider         string
	Model            string
	BaseURL          string
	FallbackProvider string
	FallbackModel    string
	FallbackBaseURL  string
	OpenAIAPIKey     string
	OpenRouterAPIKey string
	GeminiAPIKey     string
	Temperature      float32
	MaxTokens        int
}

// NewProvider builds the configured provider. When a fallback provider is
// configured the result tries the primary first and the fallback second.
func NewProvider(cfg Config) (Provider, error) {
	if cfg.Mode == "local" {
		return LocalProvider{}, nil
	}
	primary, err := newSingleProvider(cfg)
	if err != nil {
		return nil, err
	}
	fallbackName := strings.TrimSpace(cfg.FallbackProvider)
	if fallbackName == "" {
		return primary, nil
	}
	fallbackCfg := cfg
	fallbackCfg.Provider = fallbackName
	if model := strings.TrimSpace(cfg.FallbackModel); model != "" {
		fallbackCfg.Model = model
	}
	fallbackCfg.BaseURL = strings.TrimSpace(cfg.FallbackBaseURL)
	fallback, err := newSingleProvider(fallbackCfg)
	if err != nil {
		return nil, err
	}
	return NewFallbackProvider(
		Candidate{Name: strings.TrimSpace(cfg.Provider), Provider: primary},
		Candidate{Name: fallbackName, Provider: fallback},
	), nil
}

func newSingleProvider(cfg Config) (Provider, error) {
	switch strings.TrimSpace(cfg.Provider) {
	case "openai":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case "openrouter":
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.OpenRouterAPIKey,
			Model:       cfg.Model,
			BaseURL:     defaultIfEmpty(cfg.BaseURL, "https://openrouter.ai/api/v1"),
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	case "gemini", "google":
		return NewGeminiProvider(GeminiConfig{
			APIKey:      cfg.GeminiAPIKey,
			Model:       defaultIfEmpty(cfg.Model, "gemini-2.5-flash"),
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	default:
		return nil, ErrUnsupportedProvider{Provider: cfg.Provider}
	}
}

func defaultIfEmpty(value string, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
