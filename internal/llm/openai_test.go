package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewOpenAIProvider_Success(t *testing.T) {
	cfg := OpenAIConfig{
		APIKey:  "test-api-key",
		Model:   "gpt-4.1-mini",
		BaseURL: "https://api.openai.com/v1",
	}
	provider := NewOpenAIProvider(cfg)
	if provider == nil {
		t.Fatal("expected provider to not be nil")
	}
	if provider.apiKey != "test-api-key" {
		t.Errorf("expected apiKey to be 'test-api-key', got %s", provider.apiKey)
	}
	if provider.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected baseURL to be 'https://api.openai.com/v1', got %s", provider.baseURL)
	}
	if provider.client == nil {
		t.Error("expected client to not be nil")
	}
}

func TestNewOpenAIProvider_DefaultBaseURL(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini"})
	if provider.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected default baseURL to be 'https://api.openai.com/v1', got %s", provider.baseURL)
	}
}

func TestNewOpenAIProvider_TrimTrailingSlash(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "k", Model: "m", BaseURL: "https://api.openai.com/v1/"})
	if provider.baseURL != "https://api.openai.com/v1" {
		t.Errorf("expected baseURL to have trailing slash trimmed, got %s", provider.baseURL)
	}
}

func TestOpenAIProvider_MissingKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called when API key is missing")
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{Model: "gpt-4.1-mini", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), []Message{HumanMessage("Hello")}, nil)
	if err == nil {
		t.Fatal("expected error for missing API key, got nil")
	}
	if err.Error() != "missing API key for remote provider" {
		t.Errorf("expected specific error message, got: %s", err.Error())
	}
}

func TestOpenAIProvider_MissingModel(t *testing.T) {
	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key"})
	_, err := provider.Generate(context.Background(), []Message{HumanMessage("Hello")}, nil)
	if err == nil || err.Error() != "missing model for remote provider" {
		t.Fatalf("expected missing model error, got %v", err)
	}
}

func TestOpenAIProvider_Generate_FinalAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected path '/chat/completions', got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-api-key" {
			t.Errorf("expected bearer auth, got %s", got)
		}

		var reqBody map[string]any
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if reqBody["model"] != "gpt-4.1-mini" {
			t.Errorf("expected model 'gpt-4.1-mini', got %v", reqBody["model"])
		}
		messages, _ := reqBody["messages"].([]any)
		if len(messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(messages))
		}
		first, _ := messages[0].(map[string]any)
		if first["role"] != "system" {
			t.Errorf("expected system role first, got %v", first["role"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "  PortFlow leads the Infrastructure pod.  "}},
			},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini", BaseURL: server.URL})
	result, err := provider.Generate(context.Background(), []Message{
		SystemMessage("You are Mattar."),
		HumanMessage("Who leads infrastructure?"),
	}, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if result.Role != RoleAI {
		t.Errorf("expected ai role, got %s", result.Role)
	}
	if result.Content != "PortFlow leads the Infrastructure pod." {
		t.Errorf("unexpected content %q", result.Content)
	}
	if result.HasToolCalls() {
		t.Errorf("expected no tool calls, got %+v", result.ToolCalls)
	}
}

func TestOpenAIProvider_Generate_ToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody struct {
			Messages []struct {
				Role       string `json:"role"`
				ToolCallID string `json:"tool_call_id"`
				ToolCalls  []struct {
					ID       string `json:"id"`
					Function struct {
						Name      string `json:"name"`
						Arguments string `json:"arguments"`
					} `json:"function"`
				} `json:"tool_calls"`
			} `json:"messages"`
			Tools []struct {
				Type     string `json:"type"`
				Function struct {
					Name       string         `json:"name"`
					Parameters map[string]any `json:"parameters"`
				} `json:"function"`
			} `json:"tools"`
		}
		if err := json.NewDecoder(r.Body).Decode(&reqBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		if len(reqBody.Tools) != 1 || reqBody.Tools[0].Function.Name != "search_ventures" {
			t.Errorf("expected search_ventures tool, got %+v", reqBody.Tools)
		}
		if reqBody.Tools[0].Function.Parameters["type"] != "object" {
			t.Errorf("expected object parameters, got %v", reqBody.Tools[0].Function.Parameters)
		}
		if len(reqBody.Messages) != 3 {
			t.Fatalf("expected 3 messages, got %d", len(reqBody.Messages))
		}
		assistant := reqBody.Messages[1]
		if assistant.Role != "assistant" || len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].ID != "call_prev" {
			t.Errorf("unexpected assistant message %+v", assistant)
		}
		if !strings.Contains(assistant.ToolCalls[0].Function.Arguments, `"pod":"FinTech"`) {
			t.Errorf("expected encoded args, got %s", assistant.ToolCalls[0].Function.Arguments)
		}
		if reqBody.Messages[2].Role != "tool" || reqBody.Messages[2].ToolCallID != "call_prev" {
			t.Errorf("unexpected tool message %+v", reqBody.Messages[2])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role":    "assistant",
					"content": "",
					"tool_calls": []map[string]any{
						{"id": "call_1", "type": "function", "function": map[string]any{"name": "search_ventures", "arguments": `{"health":"On Track"}`}},
						{"id": "", "type": "function", "function": map[string]any{"name": "get_ventures_by_metrics", "arguments": `not json`}},
					},
				},
			}},
		})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini", BaseURL: server.URL})
	tools := []ToolSpec{{
		Name:        "search_ventures",
		Description: "Search ventures",
		Parameters: &Schema{Type: "object", Properties: map[string]*Schema{
			"pod": {Type: "string"},
		}},
	}}
	history := []Message{
		HumanMessage("FinTech?"),
		AIMessage("", ToolCall{ID: "call_prev", Name: "search_ventures", Args: map[string]any{"pod": "FinTech"}}),
		ToolMessage("call_prev", "No data found."),
	}
	result, err := provider.Generate(context.Background(), history, tools)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.ToolCalls) != 2 {
		t.Fatalf("expected 2 tool calls, got %d", len(result.ToolCalls))
	}
	if result.ToolCalls[0].ID != "call_1" || result.ToolCalls[0].Args["health"] != "On Track" {
		t.Errorf("unexpected first call %+v", result.ToolCalls[0])
	}
	if !strings.HasPrefix(result.ToolCalls[1].ID, "call_") || result.ToolCalls[1].ID == "call_" {
		t.Errorf("expected generated call id, got %q", result.ToolCalls[1].ID)
	}
	if len(result.ToolCalls[1].Args) != 0 {
		t.Errorf("expected unparseable args to become empty, got %v", result.ToolCalls[1].Args)
	}
}

func TestOpenAIProvider_Generate_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"An assistant message with 'tool_calls' must be followed by tool messages","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), []Message{HumanMessage("Hello")}, nil)
	if err == nil {
		t.Fatal("expected error for HTTP error, got nil")
	}
	if !IsToolCallError(err) {
		t.Errorf("expected tool call error classification, got: %v", err)
	}
}

func TestOpenAIProvider_Generate_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]any{}})
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini", BaseURL: server.URL})
	_, err := provider.Generate(context.Background(), []Message{HumanMessage("Hello")}, nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestOpenAIProvider_Generate_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	provider := NewOpenAIProvider(OpenAIConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini", BaseURL: server.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Generate(ctx, []Message{HumanMessage("Hello")}, nil)
	if err == nil {
		t.Fatal("expected error for cancelled context, got nil")
	}
}

func TestToOpenAIMessages_UnknownRole(t *testing.T) {
	if _, err := toOpenAIMessages([]Message{{Role: "narrator", Content: "x"}}); err == nil {
		t.Fatal("expected unknown role error")
	}
}
