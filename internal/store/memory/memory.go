package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/abd-ghreeb/venture-pulse/internal/store"
)

// MemoryStore keeps ventures in insertion order, which is its natural order.
type MemoryStore struct {
	mu       sync.RWMutex
	ventures map[string]store.Venture
	order    []string
}

func New(ventures ...store.Venture) *MemoryStore {
	m := &MemoryStore{ventures: map[string]store.Venture{}}
	for _, v := range ventures {
		m.put(v)
	}
	return m
}

func (m *MemoryStore) SearchVentures(ctx context.Context, filter store.VentureFilter) ([]store.Venture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := []store.Venture{}
	for _, id := range m.order {
		v := m.ventures[id]
		if store.MatchesFilter(v, filter) {
			results = append(results, store.CloneVenture(v))
		}
	}
	return results, nil
}

func (m *MemoryStore) RankVentures(ctx context.Context, query store.RankQuery) ([]store.Venture, error) {
	m.mu.RLock()
	results := []store.Venture{}
	for _, id := range m.order {
		v := m.ventures[id]
		if query.Health != "" && string(v.Health) != query.Health {
			continue
		}
		if query.Pod != "" && v.Pod != query.Pod {
			continue
		}
		if query.Threshold != nil && !store.MatchesThreshold(v, *query.Threshold) {
			continue
		}
		results = append(results, store.CloneVenture(v))
	}
	m.mu.RUnlock()

	keys := validKeys(query.SortKeys)
	if len(keys) == 0 && query.DefaultOrder {
		keys = []store.SortKey{{Field: store.FieldUpdatedAt, Desc: true}}
	}
	if len(keys) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			for _, key := range keys {
				cmp := store.CompareField(results[i], results[j], key.Field)
				if cmp == 0 {
					continue
				}
				if key.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

func (m *MemoryStore) GetVenture(ctx context.Context, ventureID string) (*store.Venture, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.ventures[strings.TrimSpace(ventureID)]
	if !ok {
		return nil, nil
	}
	cloned := store.CloneVenture(v)
	return &cloned, nil
}

func (m *MemoryStore) UpsertVenture(ctx context.Context, venture store.Venture) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.put(venture)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) put(v store.Venture) {
	if _, exists := m.ventures[v.ID]; !exists {
		m.order = append(m.order, v.ID)
	}
	m.ventures[v.ID] = store.CloneVenture(v)
}

func validKeys(keys []store.SortKey) []store.SortKey {
	out := make([]store.SortKey, 0, len(keys))
	for _, key := range keys {
		if store.IsSortable(key.Field) {
			out = append(out, key)
		}
	}
	return out
}
