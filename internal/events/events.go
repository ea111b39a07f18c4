package events

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	TypeTurnStarted    = "turn.started"
	TypeModelInvoked   = "model.invoked"
	TypeToolExecuted   = "tool.executed"
	TypeTurnCompleted  = "turn.completed"
	TypeTurnFailed     = "turn.failed"
	TypeSessionCleared = "session.cleared"
)

// SessionEvent is one step of a conversation turn, fanned out to whoever is
// watching the session. Seq is assigned by the broker per session.
type SessionEvent struct {
	SessionID string         `json:"session_id"`
	Seq       int64          `json:"seq"`
	Type      string         `json:"type"`
	Ts        string         `json:"ts"`
	Source    string         `json:"source"`
	TraceID   string         `json:"trace_id,omitempty"`
	Payload   map[string]any `json:"payload"`
}

type Broker struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan SessionEvent]struct{}
	seq         map[string]int64
	now         func() time.Time
}

func NormalizeType(eventType string) string {
	return strings.TrimSpace(strings.ToLower(eventType))
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[string]map[chan SessionEvent]struct{}{},
		seq:         map[string]int64{},
		now:         time.Now,
	}
}

func (b *Broker) Subscribe(ctx context.Context, sessionID string) <-chan SessionEvent {
	ch := make(chan SessionEvent, 16)

	b.mu.Lock()
	if b.subscribers[sessionID] == nil {
		b.subscribers[sessionID] = map[chan SessionEvent]struct{}{}
	}
	b.subscribers[sessionID][ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		if b.subscribers[sessionID] != nil {
			delete(b.subscribers[sessionID], ch)
			if len(b.subscribers[sessionID]) == 0 {
				delete(b.subscribers, sessionID)
				delete(b.seq, sessionID)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

// Publish stamps event and delivers it to current subscribers. Sends never
// block; a full subscriber buffer drops the event. Delivery happens under the
// lock so a subscriber cannot be closed mid-send.
func (b *Broker) Publish(event SessionEvent) {
	event.Type = NormalizeType(event.Type)
	if event.Ts == "" {
		event.Ts = b.now().UTC().Format(time.RFC3339Nano)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subscribers := b.subscribers[event.SessionID]
	if len(subscribers) == 0 {
		return
	}
	b.seq[event.SessionID]++
	event.Seq = b.seq[event.SessionID]
	for ch := range subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
