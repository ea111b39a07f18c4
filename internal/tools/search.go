package tools

import (
	"context"
	"fmt"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

type searchTool struct{}

func (searchTool) Name() string { return SearchVentures }

func (searchTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        SearchVentures,
		Description: "Search the portfolio using text-based filters. Use this for finding specific companies, founders, or browsing by pod/stage.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"name":    {Type: "string", Description: "Partial or full name of the venture"},
				"founder": {Type: "string", Description: "Name of the founder"},
				"pod":     {Type: "string", Description: "e.g., 'HealthTech', 'FinTech', 'Infrastructure'"},
				"stage":   {Type: "string", Description: "e.g., 'Discovery', 'Validation', 'Pilot', 'Scale'"},
				"health": {
					Type:        "string",
					Enum:        []string{string(store.HealthOnTrack), string(store.HealthAtRisk), string(store.HealthCritical)},
					Description: "The current health status of the venture",
				},
			},
		},
	}
}

func (searchTool) Execute(ctx context.Context, state session.FocusState, args map[string]any, ventures store.VentureStore) (Outcome, error) {
	filter := store.VentureFilter{
		Name:    readString(args, "name"),
		Founder: readString(args, "founder"),
		Pod:     readString(args, "pod"),
		Stage:   readString(args, "stage"),
		Health:  readString(args, "health"),
	}
	results, err := ventures.SearchVentures(ctx, filter)
	if err != nil {
		return Outcome{}, fmt.Errorf("search ventures: %w", err)
	}
	return Outcome{
		Data: store.ProjectAll(results),
		StateUpdate: session.StateUpdate{
			FocusedVentures: ventureIDs(results),
			ActiveFilters:   cloneArgs(args),
		},
	}, nil
}
