package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	localSearchTool    = "search_ventures"
	localSummaryLength = 280
)

type localTerm struct {
	match string
	value string
}

var (
	localHealthTerms = []localTerm{
		{match: "on track", value: "On Track"},
		{match: "at risk", value: "At Risk"},
		{match: "critical", value: "Critical"},
	}
	localPodTerms = []localTerm{
		{match: "infrastructure", value: "Infrastructure"},
		{match: "healthtech", value: "HealthTech"},
		{match: "fintech", value: "FinTech"},
		{match: "cleantech", value: "CleanTech"},
	}
)

// LocalProvider answers without a network model. A fresh question becomes a
// single search_ventures call with health and pod picked out of the text; the
// tool results that follow become the final answer. With no tools on offer it
// returns a plain digest, which is what summary compaction asks for.
type LocalProvider struct{}

func (LocalProvider) Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	if err := ctx.Err(); err != nil {
		return Message{}, err
	}
	if len(messages) == 0 {
		return Message{}, ErrEmptyResponse
	}

	if results := trailingToolResults(messages); len(results) > 0 {
		return AIMessage(describeResults(results)), nil
	}
	question := lastHumanContent(messages)
	if len(tools) == 0 {
		return AIMessage(digest(question)), nil
	}
	name := tools[0].Name
	for _, spec := range tools {
		if spec.Name == localSearchTool {
			name = spec.Name
			break
		}
	}
	call := ToolCall{
		ID:   fmt.Sprintf("local_call_%d", countToolTurns(messages)+1),
		Name: name,
		Args: extractFilters(question),
	}
	return AIMessage("", call), nil
}

func trailingToolResults(messages []Message) []string {
	var results []string
	for i := len(messages) - 1; i >= 0 && messages[i].Role == RoleTool; i-- {
		results = append([]string{messages[i].Content}, results...)
	}
	return results
}

func lastHumanContent(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleHuman {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}

func countToolTurns(messages []Message) int {
	count := 0
	for _, msg := range messages {
		if msg.HasToolCalls() {
			count++
		}
	}
	return count
}

func extractFilters(question string) map[string]any {
	lowered := strings.ToLower(question)
	args := map[string]any{}
	if value, ok := firstTerm(lowered, localHealthTerms); ok {
		args["health"] = value
	}
	if value, ok := firstTerm(lowered, localPodTerms); ok {
		args["pod"] = value
	}
	return args
}

func firstTerm(text string, terms []localTerm) (string, bool) {
	for _, term := range terms {
		if strings.Contains(text, term.match) {
			return term.value, true
		}
	}
	return "", false
}

func describeResults(results []string) string {
	var names []string
	seen := map[string]bool{}
	for _, raw := range results {
		var rows []map[string]any
		if err := json.Unmarshal([]byte(raw), &rows); err != nil {
			continue
		}
		for _, row := range rows {
			name, _ := row["name"].(string)
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "No ventures matched that request."
	}
	noun := "ventures"
	if len(names) == 1 {
		noun = "venture"
	}
	return fmt.Sprintf("Found %d %s: %s.", len(names), noun, strings.Join(names, ", "))
}

func digest(text string) string {
	runes := []rune(strings.Join(strings.Fields(text), " "))
	if len(runes) > localSummaryLength {
		runes = runes[:localSummaryLength]
	}
	return "Summary: " + string(runes)
}
