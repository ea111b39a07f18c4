package agent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/prompts"
)

// compact folds the oldest part of history into the rolling summary once the
// history outgrows the configured threshold. Failures keep history as is.
func (a *Agent) compact(ctx context.Context, logger *zap.Logger, summary string, history []llm.Message) (string, []llm.Message) {
	if a.summaryThreshold <= 0 || len(history) <= a.summaryThreshold {
		return summary, history
	}
	cut := archiveBoundary(history, a.summaryKeep)
	if cut <= 0 {
		return summary, history
	}
	request := []llm.Message{llm.SystemMessage(prompts.Summary(summary, RenderTranscript(history[:cut])))}
	reply, err := a.provider.Generate(ctx, request, nil)
	if err != nil {
		modelInvocationsTotal.WithLabelValues("summary_error").Inc()
		logger.Warn("summarize history", zap.Error(err))
		return summary, history
	}
	modelInvocationsTotal.WithLabelValues("summary").Inc()
	next := strings.TrimSpace(reply.Content)
	if next == "" {
		return summary, history
	}
	logger.Debug("history compacted", zap.Int("archived", cut), zap.Int("kept", len(history)-cut))
	return next, append([]llm.Message{}, history[cut:]...)
}

// archiveBoundary returns the index of the last Human message that still
// leaves at least keep messages from it onward. Cutting there never splits a
// tool-call pairing. Zero means nothing can be archived.
func archiveBoundary(history []llm.Message, keep int) int {
	for i := len(history) - keep; i > 0; i-- {
		if i < len(history) && history[i].Role == llm.RoleHuman {
			return i
		}
	}
	return 0
}

// RenderTranscript flattens messages into the plain-text form fed to the
// summarizer. Tool payloads are replaced by a marker.
func RenderTranscript(messages []llm.Message) string {
	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleHuman:
			b.WriteString("User: " + msg.Content + "\n")
		case llm.RoleAI:
			if msg.Content != "" {
				b.WriteString("Assistant: " + msg.Content + "\n")
			}
		case llm.RoleTool:
			b.WriteString("System: (Action performed/Data retrieved)\n")
		case llm.RoleSystem:
		}
	}
	return b.String()
}
