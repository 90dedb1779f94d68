package docstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"allie-graph/internal/knowledge"
)

// Memory is an in-process document store for development and tooling that
// doesn't need persistence. Documents are serialized on write like the SQL
// store, so callers see the same copy semantics.
type Memory struct {
	mu      sync.RWMutex
	graphs  map[string][]byte
	records map[string][]byte
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{
		graphs:  make(map[string][]byte),
		records: make(map[string][]byte),
	}
}

// GetGraph loads a family's graph document.
func (m *Memory) GetGraph(_ context.Context, familyID string) (*knowledge.Graph, error) {
	m.mu.RLock()
	data, ok := m.graphs[familyID]
	m.mu.RUnlock()
	if !ok {
		return nil, knowledge.ErrNotFound
	}

	var graph knowledge.Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// SaveGraph writes a family's complete graph document.
func (m *Memory) SaveGraph(_ context.Context, graph *knowledge.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.graphs[graph.FamilyID] = data
	m.mu.Unlock()
	return nil
}

// ListFamilyIDs returns every family with a stored graph document.
func (m *Memory) ListFamilyIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.graphs))
	for id := range m.graphs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// GetFamilyRecord loads a source family record.
func (m *Memory) GetFamilyRecord(_ context.Context, familyID string) (*knowledge.FamilyRecord, error) {
	m.mu.RLock()
	data, ok := m.records[familyID]
	m.mu.RUnlock()
	if !ok {
		return nil, knowledge.ErrNotFound
	}

	var record knowledge.FamilyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveFamilyRecord writes a source family record.
func (m *Memory) SaveFamilyRecord(_ context.Context, record *knowledge.FamilyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[record.FamilyID] = data
	m.mu.Unlock()
	return nil
}
