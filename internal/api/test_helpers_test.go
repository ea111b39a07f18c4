package api

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abd-ghreeb/venture-pulse/internal/agent"
	"github.com/abd-ghreeb/venture-pulse/internal/config"
	"github.com/abd-ghreeb/venture-pulse/internal/events"
	"github.com/abd-ghreeb/venture-pulse/internal/seed"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
	"github.com/abd-ghreeb/venture-pulse/internal/store/memory"
)

type MockTurnHandler struct {
	mock.Mock
}

func (m *MockTurnHandler) HandleTurn(ctx context.Context, sessionID string, message string) (agent.TurnResult, error) {
	args := m.Called(ctx, sessionID, message)
	return args.Get(0).(agent.TurnResult), args.Error(1)
}

func (m *MockTurnHandler) ClearSession(ctx context.Context, sessionID string) (agent.ClearResult, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(agent.ClearResult), args.Error(1)
}

type MockVentureStore struct {
	mock.Mock
}

func (m *MockVentureStore) SearchVentures(ctx context.Context, filter store.VentureFilter) ([]store.Venture, error) {
	args := m.Called(ctx, filter)
	var result []store.Venture
	if value := args.Get(0); value != nil {
		result = value.([]store.Venture)
	}
	return result, args.Error(1)
}

func (m *MockVentureStore) RankVentures(ctx context.Context, query store.RankQuery) ([]store.Venture, error) {
	args := m.Called(ctx, query)
	var result []store.Venture
	if value := args.Get(0); value != nil {
		result = value.([]store.Venture)
	}
	return result, args.Error(1)
}

func (m *MockVentureStore) GetVenture(ctx context.Context, ventureID string) (*store.Venture, error) {
	args := m.Called(ctx, ventureID)
	if value := args.Get(0); value != nil {
		return value.(*store.Venture), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockVentureStore) UpsertVenture(ctx context.Context, venture store.Venture) error {
	args := m.Called(ctx, venture)
	return args.Error(0)
}

func (m *MockVentureStore) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Subscribe(ctx context.Context, sessionID string) <-chan events.SessionEvent {
	args := m.Called(ctx, sessionID)
	if value := args.Get(0); value != nil {
		if ch, ok := value.(chan events.SessionEvent); ok {
			return ch
		}
		if ch, ok := value.(<-chan events.SessionEvent); ok {
			return ch
		}
	}
	return nil
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

func seededStore(t *testing.T) *memory.MemoryStore {
	t.Helper()
	ventures, err := seed.Ventures()
	require.NoError(t, err)
	return memory.New(ventures...)
}

func newTestServer(t *testing.T, turns TurnHandler, ventures store.VentureStore, broker Broker, cfg config.Config) *httptest.Server {
	t.Helper()
	server := NewServer(turns, ventures, broker, nil, cfg, nil)
	return httptest.NewServer(server.Router())
}
