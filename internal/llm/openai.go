package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float32
	maxTokens   int
	client      *openai.Client
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = baseURL
	clientCfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &OpenAIProvider{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     baseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		client:      openai.NewClientWithConfig(clientCfg),
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	if p.apiKey == "" {
		return Message{}, errors.New("missing API key for remote provider")
	}
	if p.model == "" {
		return Message{}, errors.New("missing model for remote provider")
	}
	converted, err := toOpenAIMessages(messages)
	if err != nil {
		return Message{}, err
	}
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    converted,
		Temperature: p.temperature,
		Tools:       toOpenAITools(tools),
	}
	if p.maxTokens > 0 {
		req.MaxCompletionTokens = p.maxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Message{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Message{}, ErrEmptyResponse
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

func toOpenAIMessages(messages []Message) ([]openai.ChatCompletionMessage, error) {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: msg.Content})
		case RoleHuman:
			out = append(out, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: msg.Content})
		case RoleAI:
			converted := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: msg.Content}
			for _, call := range msg.ToolCalls {
				args, err := json.Marshal(call.Args)
				if err != nil {
					return nil, fmt.Errorf("encode tool call %s arguments: %w", call.ID, err)
				}
				converted.ToolCalls = append(converted.ToolCalls, openai.ToolCall{
					ID:   call.ID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      call.Name,
						Arguments: string(args),
					},
				})
			}
			out = append(out, converted)
		case RoleTool:
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				Content:    msg.Content,
				ToolCallID: msg.ToolCallID,
			})
		default:
			return nil, fmt.Errorf("unknown message role %q", msg.Role)
		}
	}
	return out, nil
}

func toOpenAITools(specs []ToolSpec) []openai.Tool {
	if len(specs) == 0 {
		return nil
	}
	out := make([]openai.Tool, 0, len(specs))
	for _, spec := range specs {
		params := spec.Parameters
		if params == nil {
			params = &Schema{Type: "object"}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

func fromOpenAIMessage(msg openai.ChatCompletionMessage) Message {
	calls := make([]ToolCall, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				args = map[string]any{}
			}
		}
		id := call.ID
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, ToolCall{ID: id, Name: call.Function.Name, Args: args})
	}
	return AIMessage(strings.TrimSpace(msg.Content), calls...)
}
