package agent

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
)

const emptySummary = "Beginning of analysis session."

// AssembleContext builds the exact message list sent to the model: one
// system message carrying the prompt, the rolling summary and the focus
// state, followed by the repaired and windowed history.
func AssembleContext(prompt string, summary string, state session.FocusState, history []llm.Message, window int) []llm.Message {
	memory := strings.TrimSpace(summary)
	if memory == "" {
		memory = emptySummary
	}
	filters := state.ActiveFilters
	if filters == nil {
		filters = map[string]any{}
	}
	focused := state.FocusedVentures
	if focused == nil {
		focused = []string{}
	}

	blocks := []string{
		strings.TrimSpace(prompt),
		"[CONTEXTUAL MEMORY]\n" + memory,
		"[CURRENT FILTER STATE]\n" + indentJSON(filters, "{}"),
		"[VENTURES IN FOCUS]\n" + indentJSON(focused, "[]"),
	}

	trimmed := TrimWindow(ValidateSequence(history), window)
	messages := make([]llm.Message, 0, len(trimmed)+1)
	messages = append(messages, llm.SystemMessage(strings.Join(blocks, "\n\n")))
	return append(messages, llm.CloneMessages(trimmed)...)
}

func indentJSON(value any, empty string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return empty
	}
	return strings.TrimRight(buf.String(), "\n")
}
