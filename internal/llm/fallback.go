package llm

import (
	"context"
	"errors"
	"fmt"
)

// Candidate is one named provider in a fallback chain.
type Candidate struct {
	Name     string
	Provider Provider
}

// FallbackProvider tries each candidate in order and returns the first
// successful reply.
type FallbackProvider struct {
	candidates []Candidate
}

func NewFallbackProvider(candidates ...Candidate) *FallbackProvider {
	filtered := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if candidate.Provider == nil {
			continue
		}
		filtered = append(filtered, candidate)
	}
	return &FallbackProvider{candidates: filtered}
}

func (p *FallbackProvider) Generate(ctx context.Context, messages []Message, tools []ToolSpec) (Message, error) {
	if len(p.candidates) == 0 {
		return Message{}, errors.New("no llm providers configured")
	}
	var errs []error
	for _, candidate := range p.candidates {
		reply, err := candidate.Provider.Generate(ctx, messages, tools)
		if err == nil {
			return reply, nil
		}
		errs = append(errs, fmt.Errorf("%s: %w", candidate.Name, err))
		if ctx.Err() != nil {
			break
		}
	}
	return Message{}, errors.Join(errs...)
}

// Names lists the candidate names in try order.
func (p *FallbackProvider) Names() []string {
	names := make([]string, 0, len(p.candidates))
	for _, candidate := range p.candidates {
		names = append(names, candidate.Name)
	}
	return names
}
