package llm

import "fmt"

// Role tags the variant carried by a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Message is a tagged union over the four conversation variants. Only an AI
// message may carry ToolCalls and only a Tool message carries ToolCallID.
type Message struct {
	Role       Role       `json:"type"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

func AIMessage(content string, calls ...ToolCall) Message {
	msg := Message{Role: RoleAI, Content: content}
	if len(calls) > 0 {
		msg.ToolCalls = append([]ToolCall{}, calls...)
	}
	return msg
}

func ToolMessage(callID string, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// HasToolCalls reports whether m is an AI turn that requested tools.
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAI && len(m.ToolCalls) > 0
}

func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleHuman:
		if len(m.ToolCalls) > 0 || m.ToolCallID != "" {
			return fmt.Errorf("%s message cannot carry tool fields", m.Role)
		}
	case RoleAI:
		if m.ToolCallID != "" {
			return fmt.Errorf("ai message cannot carry tool_call_id")
		}
	case RoleTool:
		if len(m.ToolCalls) > 0 {
			return fmt.Errorf("tool message cannot carry tool_calls")
		}
	default:
		return fmt.Errorf("unknown message role %q", m.Role)
	}
	return nil
}

// CloneMessages deep-copies the slice so callers can mutate the result freely.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if msg.ToolCalls != nil {
			calls := make([]ToolCall, len(msg.ToolCalls))
			for j, call := range msg.ToolCalls {
				calls[j] = call
				calls[j].Args = cloneArgs(call.Args)
			}
			out[i].ToolCalls = calls
		}
	}
	return out
}

func cloneArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}

// Schema is the JSON-schema subset used to describe tool parameters. It
// marshals directly into the OpenAI function "parameters" object.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

type ToolSpec struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Parameters  *Schema `json:"parameters"`
}
