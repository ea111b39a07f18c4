package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// GeminiProvider uses the Gemini API function-calling surface. The client is
// created on first use because construction needs a context.
type GeminiProvider struct {
	cfg GeminiConfig

	once      sync.Once
	client    *genai.Client
	clientErr error
}

func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	return &GeminiProvider{cfg: cfg}
}

func (p *GeminiProvider) Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	if p.cfg.APIKey == "" {
		return Message{}, errors.New("missing API key for remote provider")
	}
	client, err := p.getClient(ctx)
	if err != nil {
		return Message{}, err
	}
	system, contents, err := toGenaiContents(messages)
	if err != nil {
		return Message{}, err
	}
	config := &genai.GenerateContentConfig{
		Tools:             toGenaiTools(tools),
		Temperature:       float32Ptr(p.cfg.Temperature),
		SystemInstruction: system,
	}
	if p.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(p.cfg.MaxTokens)
	}
	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, contents, config)
	if err != nil {
		return Message{}, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return Message{}, ErrEmptyResponse
	}
	return fromGenaiContent(resp.Candidates[0].Content), nil
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		clientCfg := &genai.ClientConfig{
			APIKey:  p.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if p.cfg.BaseURL != "" {
			clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.cfg.BaseURL}
		}
		p.client, p.clientErr = genai.NewClient(ctx, clientCfg)
	})
	if p.clientErr != nil {
		return nil, fmt.Errorf("create gemini client: %w", p.clientErr)
	}
	return p.client, nil
}

// toGenaiContents splits system text into the system instruction and maps
// the rest onto user/model turns. Consecutive tool results share one user
// turn, which is the shape Gemini expects after a multi-call model turn.
func toGenaiContents(messages []Message) (*genai.Content, []*genai.Content, error) {
	var systemParts []*genai.Part
	contents := make([]*genai.Content, 0, len(messages))
	callNames := map[string]string{}
	lastWasTool := false

	for _, msg := range messages {
		isTool := false
		switch msg.Role {
		case RoleSystem:
			systemParts = append(systemParts, genai.NewPartFromText(msg.Content))
		case RoleHuman:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAI:
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, genai.NewPartFromText(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				callNames[call.ID] = call.Name
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Name, Args: cloneArgs(call.Args)},
				})
			}
			if len(content.Parts) == 0 {
				content.Parts = append(content.Parts, genai.NewPartFromText(" "))
			}
			contents = append(contents, content)
		case RoleTool:
			isTool = true
			part := &genai.Part{
				FunctionResponse: &genai.FunctionResponse{
					ID:       msg.ToolCallID,
					Name:     callNames[msg.ToolCallID],
					Response: map[string]any{"output": msg.Content},
				},
			}
			if lastWasTool && len(contents) > 0 {
				last := contents[len(contents)-1]
				last.Parts = append(last.Parts, part)
			} else {
				contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{part}})
			}
		default:
			return nil, nil, fmt.Errorf("unknown message role %q", msg.Role)
		}
		lastWasTool = isTool
	}

	var system *genai.Content
	if len(systemParts) > 0 {
		system = &genai.Content{Parts: systemParts}
	}
	return system, contents, nil
}

func toGenaiTools(specs []ToolSpec) []*genai.Tool {
	if len(specs) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(specs))
	for _, spec := range specs {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        spec.Name,
			Description: spec.Description,
			Parameters:  toGenaiSchema(spec.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func toGenaiSchema(schema *Schema) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genaiType(schema.Type),
		Description: schema.Description,
		Enum:        append([]string(nil), schema.Enum...),
		Required:    append([]string(nil), schema.Required...),
		Items:       toGenaiSchema(schema.Items),
	}
	if len(schema.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(schema.Properties))
		for name, prop := range schema.Properties {
			out.Properties[name] = toGenaiSchema(prop)
		}
	}
	return out
}

func genaiType(value string) genai.Type {
	switch strings.ToLower(value) {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func fromGenaiContent(content *genai.Content) Message {
	var text strings.Builder
	var calls []ToolCall
	for _, part := range content.Parts {
		if part == nil {
			continue
		}
		if part.FunctionCall != nil {
			id := part.FunctionCall.ID
			if id == "" {
				id = "call_" + uuid.NewString()
			}
			args := cloneArgs(part.FunctionCall.Args)
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, ToolCall{ID: id, Name: part.FunctionCall.Name, Args: args})
			continue
		}
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}
	return AIMessage(strings.TrimSpace(text.String()), calls...)
}

func float32Ptr(value float32) *float32 {
	return &value
}
