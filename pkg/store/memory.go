package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process GraphStore. It backs tests and dev mode, and
// doubles as the reference implementation of the store contract.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // scope -> append order
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string][]Record{}}
}

func (m *MemoryStore) Search(_ context.Context, query string, scope string, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	var out []Record
	for _, rec := range m.records[scope] {
		if needle != "" && !matches(rec, needle) {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func matches(rec Record, needle string) bool {
	if strings.Contains(strings.ToLower(rec.Name), needle) {
		return true
	}
	body, err := json.Marshal(rec.Body)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(body)), needle)
}

func (m *MemoryStore) RetrieveRecent(_ context.Context, scope string, since time.Time, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Record
	for _, rec := range m.records[scope] {
		if !since.IsZero() && rec.At.Before(since) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) AddRecord(_ context.Context, name string, body map[string]any, scope string, at time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := Record{
		ID:    uuid.NewString(),
		Name:  name,
		Body:  cloneBody(body),
		Scope: scope,
		At:    at,
	}
	m.records[scope] = append(m.records[scope], rec)
	return rec.ID, nil
}

func (m *MemoryStore) Close() error { return nil }

// Len reports the number of records in a scope.
func (m *MemoryStore) Len(scope string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[scope])
}

func cloneBody(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		out[k] = v
	}
	return out
}
