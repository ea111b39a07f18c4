package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abd-ghreeb/venture-pulse/internal/events"
	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/prompts"
	"github.com/abd-ghreeb/venture-pulse/internal/session"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
	"github.com/abd-ghreeb/venture-pulse/internal/tools"
)

// State names the phases of a turn. They appear in logs and event payloads.
type State string

const (
	StateAwaitingModel     State = "AWAITING_MODEL"
	StateToolsRequested    State = "TOOLS_REQUESTED"
	StateFinalAnswer       State = "FINAL_ANSWER"
	StateLoopLimitExceeded State = "LOOP_LIMIT_EXCEEDED"
)

const (
	DefaultMaxRounds     = 5
	DefaultHistoryWindow = 20
	DefaultSummaryKeep   = 10

	LoopLimitAnswer = "I've hit my reasoning limit. Could you rephrase the request?"
	LoopLimitError  = "LOOP_LIMIT"
)

type TurnData struct {
	VentureIDs []string              `json:"venture_ids"`
	Ventures   []store.VentureRecord `json:"ventures"`
}

// TurnResult is either a final answer with data or the loop-limit reply with
// Error set to LOOP_LIMIT.
type TurnResult struct {
	Answer string    `json:"answer"`
	Data   *TurnData `json:"data,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type ClearResult struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

// ModelError reports a failed model invocation. Structural is set when the
// provider rejected the tool-call shape of the conversation.
type ModelError struct {
	Structural bool
	Err        error
}

func (e *ModelError) Error() string {
	if e.Structural {
		return fmt.Sprintf("model rejected tool-call sequence: %v", e.Err)
	}
	return fmt.Sprintf("model invocation failed: %v", e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

type SessionStore interface {
	Load(ctx context.Context, sessionID string) session.Session
	Save(ctx context.Context, sessionID string, sess session.Session) error
	Reset(ctx context.Context, sessionID string) error
}

type Publisher interface {
	Publish(event events.SessionEvent)
}

type Agent struct {
	provider         llm.Provider
	sessions         SessionStore
	ventures         store.VentureStore
	registry         *tools.Registry
	publisher        Publisher
	logger           *zap.Logger
	prompt           string
	maxRounds        int
	historyWindow    int
	summaryThreshold int
	summaryKeep      int
	now              func() time.Time
}

type Option func(*Agent)

func WithPrompt(prompt string) Option {
	return func(a *Agent) {
		if strings.TrimSpace(prompt) != "" {
			a.prompt = prompt
		}
	}
}

func WithMaxRounds(rounds int) Option {
	return func(a *Agent) {
		if rounds > 0 {
			a.maxRounds = rounds
		}
	}
}

func WithHistoryWindow(window int) Option {
	return func(a *Agent) {
		if window > 0 {
			a.historyWindow = window
		}
	}
}

// WithSummary turns on history compaction once a session holds more than
// threshold messages. keep is the minimum tail left uncompacted.
func WithSummary(threshold int, keep int) Option {
	return func(a *Agent) {
		a.summaryThreshold = threshold
		if keep > 0 {
			a.summaryKeep = keep
		}
	}
}

func WithPublisher(publisher Publisher) Option {
	return func(a *Agent) {
		a.publisher = publisher
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithRegistry(registry *tools.Registry) Option {
	return func(a *Agent) {
		if registry != nil {
			a.registry = registry
		}
	}
}

func New(provider llm.Provider, sessions SessionStore, ventures store.VentureStore, opts ...Option) *Agent {
	a := &Agent{
		provider:      provider,
		sessions:      sessions,
		ventures:      ventures,
		registry:      tools.NewRegistry(),
		logger:        zap.NewNop(),
		prompt:        prompts.Default,
		maxRounds:     DefaultMaxRounds,
		historyWindow: DefaultHistoryWindow,
		summaryKeep:   DefaultSummaryKeep,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// HandleTurn runs one user message through the tool loop. The session is
// persisted only when the model produces a final answer.
func (a *Agent) HandleTurn(ctx context.Context, sessionID string, message string) (TurnResult, error) {
	started := a.now()
	defer func() {
		turnDuration.Observe(a.now().Sub(started).Seconds())
	}()
	traceID := uuid.NewString()
	logger := a.logger.With(zap.String("session_id", sessionID), zap.String("trace_id", traceID))

	sess := a.sessions.Load(ctx, sessionID)
	history := append(sess.Messages, llm.HumanMessage(message))
	state := sess.FocusState.Clone()
	specs := a.registry.Specs()

	a.publish(sessionID, traceID, events.TypeTurnStarted, map[string]any{"state": StateAwaitingModel})

	for round := 1; round <= a.maxRounds; round++ {
		active := AssembleContext(a.prompt, sess.Summary, state, history, a.historyWindow)
		response, err := a.provider.Generate(ctx, active, specs)
		if err != nil {
			modelInvocationsTotal.WithLabelValues("error").Inc()
			structural := llm.IsToolCallError(err)
			if structural && len(history) > 0 {
				history = history[:len(history)-1]
			}
			turnsTotal.WithLabelValues("model_error").Inc()
			logger.Error("model invocation failed",
				zap.Int("round", round),
				zap.Bool("structural", structural),
				zap.Error(err),
			)
			a.publish(sessionID, traceID, events.TypeTurnFailed, map[string]any{
				"round":      round,
				"structural": structural,
			})
			return TurnResult{}, &ModelError{Structural: structural, Err: err}
		}
		modelInvocationsTotal.WithLabelValues("ok").Inc()
		history = append(history, response)

		if !response.HasToolCalls() {
			a.publish(sessionID, traceID, events.TypeModelInvoked, map[string]any{
				"round": round,
				"state": StateFinalAnswer,
			})
			summary, kept := a.compact(ctx, logger, sess.Summary, history)
			final := session.Session{Summary: summary, Messages: kept, FocusState: state}
			if err := a.sessions.Save(ctx, sessionID, final); err != nil {
				turnsTotal.WithLabelValues("persist_error").Inc()
				logger.Error("persist session", zap.Error(err))
				a.publish(sessionID, traceID, events.TypeTurnFailed, map[string]any{"round": round})
				return TurnResult{}, fmt.Errorf("persist session %s: %w", sessionID, err)
			}
			turnsTotal.WithLabelValues("answer").Inc()
			logger.Info("turn completed", zap.Int("rounds", round), zap.Int("focused", len(state.FocusedVentures)))
			a.publish(sessionID, traceID, events.TypeTurnCompleted, map[string]any{
				"rounds":      round,
				"venture_ids": append([]string{}, state.FocusedVentures...),
			})
			return TurnResult{
				Answer: response.Content,
				Data: &TurnData{
					VentureIDs: nonNilIDs(state.FocusedVentures),
					Ventures:   nonNilRecords(state.FocusedVenturesData),
				},
			}, nil
		}

		a.publish(sessionID, traceID, events.TypeModelInvoked, map[string]any{
			"round": round,
			"state": StateToolsRequested,
			"calls": len(response.ToolCalls),
		})
		for _, call := range response.ToolCalls {
			var content string
			state, content = a.runTool(ctx, logger, state, call)
			history = append(history, llm.ToolMessage(call.ID, content))
			a.publish(sessionID, traceID, events.TypeToolExecuted, map[string]any{
				"tool":    call.Name,
				"call_id": call.ID,
				"focused": len(state.FocusedVentures),
			})
		}
	}

	if n := len(history); n > 0 && history[n-1].HasToolCalls() {
		history = history[:n-1]
	}
	turnsTotal.WithLabelValues("loop_limit").Inc()
	logger.Warn("reasoning budget exhausted", zap.Int("rounds", a.maxRounds))
	a.publish(sessionID, traceID, events.TypeTurnFailed, map[string]any{
		"state": StateLoopLimitExceeded,
		"error": LoopLimitError,
	})
	return TurnResult{Answer: LoopLimitAnswer, Error: LoopLimitError}, nil
}

// runTool executes one call and returns the merged state plus the tool
// message body. Unknown tools and tool failures leave state untouched and
// answer with the no-data placeholder.
func (a *Agent) runTool(ctx context.Context, logger *zap.Logger, state session.FocusState, call llm.ToolCall) (session.FocusState, string) {
	tool, ok := a.registry.Lookup(call.Name)
	if !ok {
		toolCallsTotal.WithLabelValues("unknown", "not_found").Inc()
		logger.Warn("model requested unknown tool", zap.String("tool", call.Name), zap.String("call_id", call.ID))
		return state, tools.NoDataFound
	}
	outcome, err := tool.Execute(ctx, state.Clone(), call.Args, a.ventures)
	if err != nil {
		toolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		logger.Warn("tool execution failed", zap.String("tool", call.Name), zap.String("call_id", call.ID), zap.Error(err))
		return state, tools.NoDataFound
	}
	data := nonNilRecords(outcome.Data)
	encoded, err := json.Marshal(data)
	if err != nil {
		toolCallsTotal.WithLabelValues(call.Name, "error").Inc()
		logger.Warn("encode tool result", zap.String("tool", call.Name), zap.Error(err))
		return state, tools.NoDataFound
	}
	next := state.Apply(outcome.StateUpdate)
	next.FocusedVenturesData = data
	toolCallsTotal.WithLabelValues(call.Name, "ok").Inc()
	logger.Debug("tool executed", zap.String("tool", call.Name), zap.Int("rows", len(data)))
	return next, string(encoded)
}

// ClearSession drops the stored conversation so the next turn starts fresh.
func (a *Agent) ClearSession(ctx context.Context, sessionID string) (ClearResult, error) {
	if err := a.sessions.Reset(ctx, sessionID); err != nil {
		return ClearResult{}, fmt.Errorf("clear session %s: %w", sessionID, err)
	}
	a.logger.Info("session cleared", zap.String("session_id", sessionID))
	a.publish(sessionID, "", events.TypeSessionCleared, map[string]any{})
	return ClearResult{Status: "success", SessionID: sessionID}, nil
}

func (a *Agent) publish(sessionID string, traceID string, eventType string, payload map[string]any) {
	if a.publisher == nil {
		return
	}
	a.publisher.Publish(events.SessionEvent{
		SessionID: sessionID,
		Type:      eventType,
		Source:    "agent",
		TraceID:   traceID,
		Payload:   payload,
	})
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func nonNilRecords(records []store.VentureRecord) []store.VentureRecord {
	if records == nil {
		return []store.VentureRecord{}
	}
	return records
}
