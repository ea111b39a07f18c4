package tools

import (
	"context"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

const (
	SearchVentures       = "search_ventures"
	GetVenturesByMetrics = "get_ventures_by_metrics"
)

// NoDataFound is the tool-message body used when a call cannot be served.
const NoDataFound = "No data found."

// Outcome is what a tool hands back to the agent loop: the projected rows and
// the partial focus-state update to merge.
type Outcome struct {
	Data        []store.VentureRecord
	StateUpdate session.StateUpdate
}

// Tool is a data query the model may call. state is a copy; tools must not
// retain it.
type Tool interface {
	Name() string
	Spec() llm.ToolSpec
	Execute(ctx context.Context, state session.FocusState, args map[string]any, ventures store.VentureStore) (Outcome, error)
}

// Registry is the closed set of tools advertised to the model.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry() *Registry {
	r := &Registry{tools: map[string]Tool{}}
	r.register(searchTool{})
	r.register(metricsTool{})
	return r
}

func (r *Registry) register(tool Tool) {
	r.tools[tool.Name()] = tool
	r.order = append(r.order, tool.Name())
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

func (r *Registry) Names() []string {
	return append([]string{}, r.order...)
}

func ventureIDs(ventures []store.Venture) []string {
	ids := make([]string, 0, len(ventures))
	for _, v := range ventures {
		ids = append(ids, v.ID)
	}
	return ids
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for key, value := range args {
		out[key] = value
	}
	return out
}
