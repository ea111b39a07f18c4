package session

import (
	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

// AnalysisMetrics records which metric or sort list produced the current
// focus and how many rows it returned. MetricUsed is a string or a []string.
type AnalysisMetrics struct {
	MetricUsed any `json:"metric_used"`
	Count      int `json:"count"`
}

// FocusState is what carries across turns besides the transcript.
type FocusState struct {
	ActiveFilters       map[string]any        `json:"active_filters"`
	FocusedVentures     []string              `json:"focused_ventures"`
	FocusedVenturesData []store.VentureRecord `json:"focused_ventures_data"`
	LastAnalysisMetrics *AnalysisMetrics      `json:"last_analysis_metrics,omitempty"`
}

// Session is the persisted per-conversation state. FocusState fields are
// flattened into the top-level JSON object.
type Session struct {
	Summary  string        `json:"summary"`
	Messages []llm.Message `json:"messages"`
	FocusState
}

// StateUpdate is a partial FocusState. A nil field means "leave as is".
type StateUpdate struct {
	ActiveFilters       map[string]any
	FocusedVentures     []string
	LastAnalysisMetrics *AnalysisMetrics
}

func New() Session {
	return Session{
		Messages: []llm.Message{},
		FocusState: FocusState{
			ActiveFilters:       map[string]any{},
			FocusedVentures:     []string{},
			FocusedVenturesData: []store.VentureRecord{},
		},
	}
}

// Apply merges u into s, shallowly, and returns the result. s is not mutated.
func (s FocusState) Apply(u StateUpdate) FocusState {
	out := s.Clone()
	if u.ActiveFilters != nil {
		out.ActiveFilters = cloneMap(u.ActiveFilters)
	}
	if u.FocusedVentures != nil {
		out.FocusedVentures = append([]string{}, u.FocusedVentures...)
	}
	if u.LastAnalysisMetrics != nil {
		metrics := *u.LastAnalysisMetrics
		out.LastAnalysisMetrics = &metrics
	}
	return out
}

func (s FocusState) Clone() FocusState {
	out := FocusState{
		ActiveFilters:       cloneMap(s.ActiveFilters),
		FocusedVentures:     append([]string{}, s.FocusedVentures...),
		FocusedVenturesData: append([]store.VentureRecord{}, s.FocusedVenturesData...),
	}
	if s.LastAnalysisMetrics != nil {
		metrics := *s.LastAnalysisMetrics
		out.LastAnalysisMetrics = &metrics
	}
	return out
}

func (s Session) Clone() Session {
	return Session{
		Summary:    s.Summary,
		Messages:   llm.CloneMessages(s.Messages),
		FocusState: s.FocusState.Clone(),
	}
}

// normalize replaces nil collections with empty ones so the JSON shape and
// the in-memory defaults agree.
func (s *Session) normalize() {
	if s.Messages == nil {
		s.Messages = []llm.Message{}
	}
	if s.ActiveFilters == nil {
		s.ActiveFilters = map[string]any{}
	}
	if s.FocusedVentures == nil {
		s.FocusedVentures = []string{}
	}
	if s.FocusedVenturesData == nil {
		s.FocusedVenturesData = []store.VentureRecord{}
	}
	if s.LastAnalysisMetrics != nil {
		s.LastAnalysisMetrics.MetricUsed = normalizeMetricUsed(s.LastAnalysisMetrics.MetricUsed)
	}
}

// normalizeMetricUsed restores a decoded sort list to []string.
func normalizeMetricUsed(value any) any {
	list, ok := value.([]any)
	if !ok {
		return value
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		text, ok := item.(string)
		if !ok {
			return value
		}
		out = append(out, text)
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
