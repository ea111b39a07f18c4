package session

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/abd-ghreeb/venture-pulse/internal/llm"
	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

type mockKV struct {
	mock.Mock
}

func (m *mockKV) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	raw, _ := args.Get(0).([]byte)
	return raw, args.Error(1)
}

func (m *mockKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockKV) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func sampleSession() Session {
	sess := New()
	sess.Summary = "User is comparing HealthTech ventures."
	sess.Messages = []llm.Message{
		llm.HumanMessage("Top On Track by runway?"),
		llm.AIMessage("", llm.ToolCall{ID: "call_1", Name: "get_ventures_by_metrics", Args: map[string]any{"health": "On Track", "limit": float64(2)}}),
		llm.ToolMessage("call_1", `[{"id":"3"}]`),
		llm.AIMessage("BioSync leads with 24 months."),
	}
	sess.ActiveFilters = map[string]any{"health": "On Track", "limit": float64(2)}
	sess.FocusedVentures = []string{"3", "7"}
	sess.FocusedVenturesData = []store.VentureRecord{{
		ID:              "3",
		Name:            "BioSync",
		BurnRateMonthly: 145000.25,
		PilotCustomers: []store.PilotCustomerRecord{
			{ID: "p6", Name: "Mayo Clinic", ContractValue: 180000, StartDate: "2024-01-15T00:00:00Z", Status: "Active"},
		},
		PilotCustomersCount: 1,
	}}
	sess.LastAnalysisMetrics = &AnalysisMetrics{MetricUsed: "runway_months", Count: 2}
	return sess
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryKV())
	want := sampleSession()
	require.NoError(t, st.Save(ctx, "s1", want))

	got := st.Load(ctx, "s1")
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadMissingReturnsDefaults(t *testing.T) {
	got := NewStore(NewMemoryKV()).Load(context.Background(), "nope")
	if diff := cmp.Diff(New(), got); diff != "" {
		t.Fatalf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestStore_PersistedJSONShape(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	st := NewStore(kv, WithKeyPrefix("session:"))
	require.NoError(t, st.Save(ctx, "s1", sampleSession()))

	raw, err := kv.Get(ctx, "session:s1")
	require.NoError(t, err)
	for _, key := range []string{`"summary"`, `"messages"`, `"active_filters"`, `"focused_ventures"`, `"focused_ventures_data"`, `"last_analysis_metrics"`, `"type":"tool"`} {
		require.Contains(t, string(raw), key)
	}
}

func TestStore_UsesTTL(t *testing.T) {
	ctx := context.Background()
	kv := &mockKV{}
	kv.On("Set", mock.Anything, "s1", mock.Anything, 2*time.Hour).Return(nil).Once()
	require.NoError(t, NewStore(kv, WithTTL(2*time.Hour)).Save(ctx, "s1", New()))
	kv.AssertExpectations(t)
}

func TestStore_SaveFallsBackWhenPrimaryFails(t *testing.T) {
	ctx := context.Background()
	primary := &mockKV{}
	primary.On("Set", mock.Anything, "s1", mock.Anything, DefaultTTL).Return(errors.New("dial tcp: connection refused"))
	primary.On("Get", mock.Anything, "s1").Return(nil, errors.New("dial tcp: connection refused"))
	fallback := NewMemoryKV()
	st := NewStore(primary, WithFallback(fallback))

	before := testutil.ToFloat64(fallbackTotal.WithLabelValues("save"))
	require.NoError(t, st.Save(ctx, "s1", sampleSession()))
	require.Equal(t, before+1, testutil.ToFloat64(fallbackTotal.WithLabelValues("save")))

	got := st.Load(ctx, "s1")
	require.Equal(t, []string{"3", "7"}, got.FocusedVentures)
	primary.AssertExpectations(t)
}

func TestStore_SaveWithoutFallbackSurfacesError(t *testing.T) {
	primary := &mockKV{}
	primary.On("Set", mock.Anything, "s1", mock.Anything, DefaultTTL).Return(errors.New("down"))
	err := NewStore(primary).Save(context.Background(), "s1", New())
	require.Error(t, err)
}

func TestStore_LoadPrimaryErrorWithoutFallbackIsEmpty(t *testing.T) {
	primary := &mockKV{}
	primary.On("Get", mock.Anything, "s1").Return(nil, errors.New("down"))
	got := NewStore(primary).Load(context.Background(), "s1")
	require.Empty(t, got.Messages)
}

func TestStore_LoadConsultsFallbackOnMiss(t *testing.T) {
	ctx := context.Background()
	fallback := NewMemoryKV()
	require.NoError(t, NewStore(fallback).Save(ctx, "s1", sampleSession()))

	st := NewStore(NewMemoryKV(), WithFallback(fallback))
	require.Equal(t, "User is comparing HealthTech ventures.", st.Load(ctx, "s1").Summary)
}

func TestStore_LoadCorruptPayloadIsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "s1", []byte("{not json"), time.Hour))
	got := NewStore(kv).Load(ctx, "s1")
	require.Empty(t, got.Messages)
	require.NotNil(t, got.ActiveFilters)
}

func TestStore_Encryption(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	key := []byte(strings.Repeat("k", 32))
	st := NewStore(kv, WithEncryptionKey(key))
	require.NoError(t, st.Save(ctx, "s1", sampleSession()))

	raw, err := kv.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotContains(t, string(raw), "BioSync")

	if diff := cmp.Diff(sampleSession(), st.Load(ctx, "s1")); diff != "" {
		t.Fatalf("encrypted round trip mismatch (-want +got):\n%s", diff)
	}

	otherKey := []byte(strings.Repeat("z", 32))
	require.Empty(t, NewStore(kv, WithEncryptionKey(otherKey)).Load(ctx, "s1").Messages)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryKV()
	fallback := NewMemoryKV()
	st := NewStore(primary, WithFallback(fallback))
	require.NoError(t, st.Save(ctx, "s1", sampleSession()))
	require.NoError(t, fallback.Set(ctx, "s1", []byte(`{"summary":"stale"}`), time.Hour))

	require.NoError(t, st.Reset(ctx, "s1"))
	if diff := cmp.Diff(New(), st.Load(ctx, "s1")); diff != "" {
		t.Fatalf("expected empty session after reset (-want +got):\n%s", diff)
	}
}

type flakyKV struct {
	*MemoryKV
	down bool
}

func (f *flakyKV) Get(ctx context.Context, key string) ([]byte, error) {
	if f.down {
		return nil, errors.New("backend down")
	}
	return f.MemoryKV.Get(ctx, key)
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if f.down {
		return errors.New("backend down")
	}
	return f.MemoryKV.Set(ctx, key, value, ttl)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.down {
		return errors.New("backend down")
	}
	return f.MemoryKV.Delete(ctx, key)
}

func TestStore_ResetDuringOutageReportsFailure(t *testing.T) {
	ctx := context.Background()
	primary := &flakyKV{MemoryKV: NewMemoryKV()}
	st := NewStore(primary, WithFallback(NewMemoryKV()))
	sess := New()
	sess.Summary = "old conversation"
	require.NoError(t, st.Save(ctx, "s1", sess))

	primary.down = true
	err := st.Reset(ctx, "s1")
	require.ErrorContains(t, err, "backend down")

	primary.down = false
	require.Equal(t, "old conversation", st.Load(ctx, "s1").Summary)

	require.NoError(t, st.Reset(ctx, "s1"))
	if diff := cmp.Diff(New(), st.Load(ctx, "s1")); diff != "" {
		t.Fatalf("expected empty session after retried reset (-want +got):\n%s", diff)
	}
}

func TestStore_SortListMetricSurvivesRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := NewStore(NewMemoryKV())
	sess := New()
	sess.LastAnalysisMetrics = &AnalysisMetrics{MetricUsed: []string{"nps_score", "burn_rate_monthly"}, Count: 8}
	require.NoError(t, st.Save(ctx, "s1", sess))

	loaded := st.Load(ctx, "s1")
	require.NotNil(t, loaded.LastAnalysisMetrics)
	require.Equal(t, []string{"nps_score", "burn_rate_monthly"}, loaded.LastAnalysisMetrics.MetricUsed)
	require.Equal(t, 8, loaded.LastAnalysisMetrics.Count)
}
