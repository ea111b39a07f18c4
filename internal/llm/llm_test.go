package llm

import (
	"testing"
)

func TestNewProvider_Local(t *testing.T) {
	cfg := Config{
		Mode: "local",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if _, ok := provider.(LocalProvider); !ok {
		t.Errorf("expected LocalProvider, got %T", provider)
	}
}

func TestNewProvider_OpenAI(t *testing.T) {
	cfg := Config{
		Mode:         "remote",
		Provider:     "openai",
		Model:        "gpt-4.1-mini",
		OpenAIAPIKey: "test-key",
		BaseURL:      "https://api.openai.com/v1",
		Temperature:  0.3,
		MaxTokens:    1024,
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openAIProvider, ok := provider.(*OpenAIProvider)
	if !ok {
		t.Fatalf("expected *OpenAIProvider, got %T", provider)
	}
	if openAIProvider.apiKey != "test-key" {
		t.Errorf("expected apiKey to be 'test-key', got %s", openAIProvider.apiKey)
	}
	if openAIProvider.model != "gpt-4.1-mini" {
		t.Errorf("expected model to be 'gpt-4.1-mini', got %s", openAIProvider.model)
	}
	if openAIProvider.temperature != 0.3 || openAIProvider.maxTokens != 1024 {
		t.Errorf("expected sampling settings to be carried, got %v/%d", openAIProvider.temperature, openAIProvider.maxTokens)
	}
}

func TestNewProvider_OpenRouter(t *testing.T) {
	cfg := Config{
		Mode:             "remote",
		Provider:         "openrouter",
		Model:            "openai/gpt-4.1-mini",
		OpenRouterAPIKey: "router-key",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openAIProvider, ok := provider.(*OpenAIProvider)
	if !ok {
		t.Fatalf("expected *OpenAIProvider, got %T", provider)
	}
	if openAIProvider.apiKey != "router-key" {
		t.Errorf("expected apiKey to be 'router-key', got %s", openAIProvider.apiKey)
	}
	if openAIProvider.baseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("expected baseURL to be 'https://openrouter.ai/api/v1', got %s", openAIProvider.baseURL)
	}
}

func TestNewProvider_OpenRouter_CustomBaseURL(t *testing.T) {
	cfg := Config{
		Mode:             "remote",
		Provider:         "openrouter",
		Model:            "openai/gpt-4.1-mini",
		OpenRouterAPIKey: "router-key",
		BaseURL:          "https://custom.openrouter.ai/api/v1",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	openAIProvider, ok := provider.(*OpenAIProvider)
	if !ok {
		t.Fatalf("expected *OpenAIProvider, got %T", provider)
	}
	if openAIProvider.baseURL != "https://custom.openrouter.ai/api/v1" {
		t.Errorf("expected baseURL to be custom URL, got %s", openAIProvider.baseURL)
	}
}

func TestNewProvider_Gemini(t *testing.T) {
	cfg := Config{
		Mode:         "remote",
		Provider:     "gemini",
		GeminiAPIKey: "gem-key",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	gemini, ok := provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("expected *GeminiProvider, got %T", provider)
	}
	if gemini.cfg.Model != "gemini-2.5-flash" {
		t.Errorf("expected default gemini model, got %s", gemini.cfg.Model)
	}
	if gemini.cfg.BaseURL != "" {
		t.Errorf("expected empty base URL, got %s", gemini.cfg.BaseURL)
	}
}

func TestNewProvider_Gemini_CustomBaseURL(t *testing.T) {
	cfg := Config{
		Mode:             "remote",
		Provider:         "openai",
		Model:            "gpt-4.1-mini",
		OpenAIAPIKey:     "test-key",
		BaseURL:          "https://proxy.internal/openai",
		FallbackProvider: "gemini",
		FallbackModel:    "gemini-2.5-pro",
		FallbackBaseURL:  "https://proxy.internal/gemini",
		GeminiAPIKey:     "gem-key",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	chain := provider.(*FallbackProvider)
	gemini, ok := chain.candidates[1].Provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("expected gemini fallback, got %T", chain.candidates[1].Provider)
	}
	if gemini.cfg.BaseURL != "https://proxy.internal/gemini" {
		t.Errorf("expected fallback base URL, got %q", gemini.cfg.BaseURL)
	}

	direct, err := NewProvider(Config{Mode: "remote", Provider: "gemini", GeminiAPIKey: "gem-key", BaseURL: "https://proxy.internal/gemini"})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got := direct.(*GeminiProvider).cfg.BaseURL; got != "https://proxy.internal/gemini" {
		t.Errorf("expected primary base URL, got %q", got)
	}
}

func TestNewProvider_WithFallback(t *testing.T) {
	cfg := Config{
		Mode:             "remote",
		Provider:         "openai",
		Model:            "gpt-4.1-mini",
		OpenAIAPIKey:     "test-key",
		FallbackProvider: "gemini",
		FallbackModel:    "gemini-2.5-pro",
		GeminiAPIKey:     "gem-key",
	}
	provider, err := NewProvider(cfg)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	chain, ok := provider.(*FallbackProvider)
	if !ok {
		t.Fatalf("expected *FallbackProvider, got %T", provider)
	}
	names := chain.Names()
	if len(names) != 2 || names[0] != "openai" || names[1] != "gemini" {
		t.Fatalf("unexpected candidate order: %v", names)
	}
	gemini, ok := chain.candidates[1].Provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("expected gemini fallback, got %T", chain.candidates[1].Provider)
	}
	if gemini.cfg.Model != "gemini-2.5-pro" {
		t.Errorf("expected fallback model, got %s", gemini.cfg.Model)
	}
}

func TestNewProvider_UnsupportedFallback(t *testing.T) {
	cfg := Config{
		Mode:             "remote",
		Provider:         "openai",
		OpenAIAPIKey:     "test-key",
		FallbackProvider: "carrier-pigeon",
	}
	if _, err := NewProvider(cfg); err == nil {
		t.Fatal("expected error for unsupported fallback provider")
	}
}

func TestNewProvider_Unsupported(t *testing.T) {
	cfg := Config{
		Mode:     "remote",
		Provider: "unsupported-provider",
	}
	provider, err := NewProvider(cfg)
	if err == nil {
		t.Fatal("expected error for unsupported provider, got nil")
	}
	if provider != nil {
		t.Errorf("expected nil provider, got %T", provider)
	}
	errUnsupported, ok := err.(ErrUnsupportedProvider)
	if !ok {
		t.Fatalf("expected ErrUnsupportedProvider, got %T", err)
	}
	if errUnsupported.Provider != "unsupported-provider" {
		t.Errorf("expected provider name 'unsupported-provider', got %s", errUnsupported.Provider)
	}
}

func TestDefaultIfEmpty_WithValue(t *testing.T) {
	result := defaultIfEmpty("existing-value", "fallback")
	if result != "existing-value" {
		t.Errorf("expected 'existing-value', got %s", result)
	}
}

func TestDefaultIfEmpty_WithDefault(t *testing.T) {
	result := defaultIfEmpty("", "fallback")
	if result != "fallback" {
		t.Errorf("expected 'fallback', got %s", result)
	}
}
