package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

type metricsTool struct{}

func (metricsTool) Name() string { return GetVenturesByMetrics }

func (metricsTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        GetVenturesByMetrics,
		Description: "Query ventures based on numerical performance data. Use this for 'top X', 'highest burn', 'low runway', or filtering by NPS/Pilots.",
		Parameters: &llm.Schema{
			Type: "object",
			Properties: map[string]*llm.Schema{
				"metric_type": {
					Type: "string",
					Enum: []string{
						store.FieldBurnRateMonthly,
						store.FieldRunwayMonths,
						store.FieldNPSScore,
						store.FieldPilotCustomersCount,
					},
					Description: "The specific numerical KPI to analyze.",
				},
				"operator": {
					Type:        "string",
					Enum:        []string{"gt", "lt", "sort_desc", "sort_asc"},
					Description: "gt/lt for filtering by 'value'; sort_desc/sort_asc for ranking (e.g., 'Highest NPS').",
				},
				"value": {Type: "number", Description: "The threshold value for gt/lt (e.g., 50000 for burn or 70 for NPS)."},
				"sort_by": {
					Type:        "array",
					Items:       &llm.Schema{Type: "string", Enum: store.SortableFields},
					Description: "Rank by several metrics at once, highest first, in priority order.",
				},
				"limit":  {Type: "integer", Description: "Number of results to return (useful for 'Top 3')."},
				"health": {Type: "string", Enum: []string{string(store.HealthOnTrack), string(store.HealthAtRisk), string(store.HealthCritical)}},
				"pod":    {Type: "string", Description: "Restrict to one pod, e.g. 'CleanTech'"},
			},
		},
	}
}

func (metricsTool) Execute(ctx context.Context, state session.FocusState, args map[string]any, ventures store.VentureStore) (Outcome, error) {
	query, metricUsed := buildRankQuery(args)
	results, err := ventures.RankVentures(ctx, query)
	if err != nil {
		return Outcome{}, fmt.Errorf("rank ventures: %w", err)
	}
	return Outcome{
		Data: store.ProjectAll(results),
		StateUpdate: session.StateUpdate{
			FocusedVentures: ventureIDs(results),
			ActiveFilters:   cloneArgs(args),
			LastAnalysisMetrics: &session.AnalysisMetrics{
				MetricUsed: metricUsed,
				Count:      len(results),
			},
		},
	}, nil
}

// buildRankQuery maps the model payload onto a RankQuery. A non-empty sort_by
// wins over metric_type; when sort_by names only unknown fields the rows keep
// natural order. An unknown metric_type falls back to most recently updated.
func buildRankQuery(args map[string]any) (store.RankQuery, any) {
	query := store.RankQuery{
		Health: readString(args, "health"),
		Pod:    readString(args, "pod"),
		Limit:  readLimit(args),
	}
	metricType := readString(args, "metric_type")
	operator := readString(args, "operator")
	if operator == "" {
		operator = "sort_desc"
	}
	sortBy := readStringList(args, "sort_by")

	switch {
	case len(sortBy) > 0:
		for _, field := range sortBy {
			if store.IsSortable(field) {
				query.SortKeys = append(query.SortKeys, store.SortKey{Field: field, Desc: true})
			}
		}
	case metricType != "" && store.IsSortable(metricType):
		query.SortKeys = []store.SortKey{{Field: metricType, Desc: strings.Contains(operator, "desc")}}
	default:
		query.DefaultOrder = true
	}

	op := store.ThresholdOp(operator)
	if (op == store.ThresholdGreater || op == store.ThresholdLess) && store.IsNumericField(metricType) {
		if value, ok := readNumber(args, "value"); ok {
			query.Threshold = &store.Threshold{Field: metricType, Op: op, Value: value}
		}
	}

	if metricType != "" {
		return query, metricType
	}
	if sortBy == nil {
		sortBy = []string{}
	}
	return query, sortBy
}
