package llm

import (
	"errors"
	"fmt"
	"strings"
)

var ErrEmptyResponse = errors.New("model returned no choices")

type ErrUnsupportedProvider struct {
	Provider string
}

func (e ErrUnsupportedProvider) Error() string {
	return fmt.Sprintf("unsupported LLM provider: %s", e.Provider)
}

// toolCallMarkers are fragments providers use when they reject a message
// list whose tool calls and tool results do not line up.
var toolCallMarkers = []string{
	"tool_call",
	"tool call",
	"tool_use",
	"function call",
	"function response",
}

// IsToolCallError reports whether err looks like a structural rejection of
// the tool-call pairing in the submitted history.
func IsToolCallError(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error())
	for _, marker := range toolCallMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
