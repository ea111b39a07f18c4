package agent

import "github.com/abd-ghreeb/venture-pulse/internal/llm"

// ValidateSequence returns history with every broken tool-call pairing
// removed. An AI turn that requested k calls survives only when the next k
// messages are Tool results answering exactly those call ids; otherwise the
// AI turn is dropped. Tool results not consumed by a surviving pairing are
// dropped too.
func ValidateSequence(history []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for i := 0; i < len(history); {
		msg := history[i]
		switch msg.Role {
		case llm.RoleAI:
			if !msg.HasToolCalls() {
				out = append(out, msg)
				i++
				continue
			}
			k := len(msg.ToolCalls)
			if answered(msg.ToolCalls, history[i+1:]) {
				out = append(out, history[i:i+1+k]...)
				i += 1 + k
				continue
			}
			i++
		case llm.RoleTool:
			i++
		default:
			out = append(out, msg)
			i++
		}
	}
	return out
}

// answered reports whether the first len(calls) messages of rest are Tool
// results whose ids match calls as a multiset.
func answered(calls []llm.ToolCall, rest []llm.Message) bool {
	if len(rest) < len(calls) {
		return false
	}
	pending := make(map[string]int, len(calls))
	for _, call := range calls {
		pending[call.ID]++
	}
	for _, msg := range rest[:len(calls)] {
		if msg.Role != llm.RoleTool || pending[msg.ToolCallID] == 0 {
			return false
		}
		pending[msg.ToolCallID]--
	}
	return true
}

// TrimWindow keeps the last window messages and then drops leading Tool
// results whose AI turn fell outside the window. window <= 0 keeps everything.
func TrimWindow(history []llm.Message, window int) []llm.Message {
	if window > 0 && len(history) > window {
		history = history[len(history)-window:]
	}
	for len(history) > 0 && history[0].Role == llm.RoleTool {
		history = history[1:]
	}
	return history
}
