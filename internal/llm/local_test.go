package llm

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var localTools = []ToolSpec{{Name: "get_ventures_by_metrics"}, {Name: "search_ventures"}}

func TestGenerate_LocalRequestsSearch(t *testing.T) {
	provider := LocalProvider{}

	result, err := provider.Generate(context.Background(), []Message{
		SystemMessage("prompt"),
		HumanMessage("Which FinTech ventures are At Risk?"),
	}, localTools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := AIMessage("", ToolCall{
		ID:   "local_call_1",
		Name: "search_ventures",
		Args: map[string]any{"health": "At Risk", "pod": "FinTech"},
	})
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("unexpected reply (-want +got):\n%s", diff)
	}
}

func TestGenerate_LocalAnswersFromToolResults(t *testing.T) {
	provider := LocalProvider{}
	history := []Message{
		HumanMessage("List HealthTech"),
		AIMessage("", ToolCall{ID: "local_call_1", Name: "search_ventures", Args: map[string]any{"pod": "HealthTech"}}),
		ToolMessage("local_call_1", `[{"id":"3","name":"BioSync"},{"id":"4","name":"MedFlow"}]`),
	}

	result, err := provider.Generate(context.Background(), history, localTools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HasToolCalls() {
		t.Fatalf("expected a final answer, got tool calls %+v", result.ToolCalls)
	}
	if result.Content != "Found 2 ventures: BioSync, MedFlow." {
		t.Errorf("unexpected answer %q", result.Content)
	}

	history[2] = ToolMessage("local_call_1", "No data found.")
	result, err = provider.Generate(context.Background(), history, localTools)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "No ventures matched that request." {
		t.Errorf("unexpected answer %q", result.Content)
	}
}

func TestGenerate_LocalDigestWithoutTools(t *testing.T) {
	result, err := LocalProvider{}.Generate(context.Background(), []Message{HumanMessage("  compare   burn rates ")}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Content != "Summary: compare burn rates" {
		t.Errorf("unexpected digest %q", result.Content)
	}
}

func TestGenerate_LocalErrors(t *testing.T) {
	if _, err := (LocalProvider{}).Generate(context.Background(), nil, localTools); err != ErrEmptyResponse {
		t.Errorf("expected ErrEmptyResponse, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (LocalProvider{}).Generate(ctx, []Message{HumanMessage("hi")}, localTools); err == nil {
		t.Error("expected context error")
	}
}
