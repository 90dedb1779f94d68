package knowledge

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "allie-graph/pkg/errors"
)

// memStore is an in-memory Store that serializes documents like a real
// document store would.
type memStore struct {
	mu      sync.Mutex
	graphs  map[string][]byte
	records map[string]*FamilyRecord
	saves   int
}

func newMemStore() *memStore {
	return &memStore{
		graphs:  make(map[string][]byte),
		records: make(map[string]*FamilyRecord),
	}
}

func (m *memStore) GetGraph(_ context.Context, familyID string) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.graphs[familyID]
	if !ok {
		return nil, ErrNotFound
	}
	var graph Graph
	if err := json.Unmarshal(data, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

func (m *memStore) SaveGraph(_ context.Context, graph *Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graphs[graph.FamilyID] = data
	m.saves++
	return nil
}

func (m *memStore) ListFamilyIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.graphs))
	for id := range m.graphs {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) GetFamilyRecord(_ context.Context, familyID string) (*FamilyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[familyID]
	if !ok {
		return nil, ErrNotFound
	}
	return record, nil
}

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	return NewService(store, nil), store
}

func TestInitializeGraph(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	graph, err := svc.InitializeGraph(ctx, "fam1")
	require.NoError(t, err)
	require.NotNil(t, graph)

	root := graph.Entity("fam1")
	require.NotNil(t, root, "new graphs carry the family root entity")
	assert.Equal(t, "family", root.Type)
	assert.Equal(t, "Family Graph", root.Properties["name"])
	assert.Equal(t, 1, graph.Stats.EntityCount)
	assert.Equal(t, 1, graph.Stats.EntityTypeCount["family"])
	assert.Equal(t, OntologyVersion, graph.Version.Ontology)

	savesAfterCreate := store.saves
	again, err := svc.InitializeGraph(ctx, "fam1")
	require.NoError(t, err)
	assert.Same(t, graph, again, "cached graph is reused")
	assert.Equal(t, savesAfterCreate, store.saves, "re-initialization does not rewrite")
}

func TestGetGraphForceRefresh(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	first, err := svc.InitializeGraph(ctx, "fam1")
	require.NoError(t, err)

	refreshed, err := svc.GetGraph(ctx, "fam1", true)
	require.NoError(t, err)
	assert.NotSame(t, first, refreshed, "force refresh reloads from the store")
	assert.Equal(t, first.FamilyID, refreshed.FamilyID)
}

func TestAddEntity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	t.Run("creates entity with metadata defaults", func(t *testing.T) {
		entity, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{
			"name": "Alice",
			"role": "parent",
		}, "alice", nil)
		require.NoError(t, err)

		assert.Equal(t, "alice", entity.ID)
		assert.Equal(t, "person", entity.Type)
		assert.Equal(t, 1.0, entity.Metadata["confidence"])
		assert.Equal(t, "family", entity.Metadata["privacy_level"])
		assert.NotEmpty(t, entity.Metadata["created_at"])
		assert.NotEmpty(t, entity.Properties["lastUpdate"])

		graph, err := svc.GetGraph(ctx, "fam1", false)
		require.NoError(t, err)
		assert.Equal(t, 2, graph.Stats.EntityCount)
		assert.Equal(t, 1, graph.Stats.EntityTypeCount["person"])
	})

	t.Run("generates id from name when empty", func(t *testing.T) {
		entity, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{
			"name": "Bob Smith",
			"role": "parent",
		}, "", nil)
		require.NoError(t, err)
		assert.Contains(t, entity.ID, "person-bob-smith-")
	})

	t.Run("update merges properties and keeps counters", func(t *testing.T) {
		before, err := svc.GetGraph(ctx, "fam1", false)
		require.NoError(t, err)
		countBefore := before.Stats.EntityCount

		updated, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{
			"name": "Alice",
			"age":  35,
		}, "alice", nil)
		require.NoError(t, err)

		assert.Equal(t, "parent", updated.Properties["role"], "existing properties survive")
		assert.Equal(t, 35, updated.Properties["age"])
		assert.NotEmpty(t, updated.Metadata["updated_at"])

		after, err := svc.GetGraph(ctx, "fam1", false)
		require.NoError(t, err)
		assert.Equal(t, countBefore, after.Stats.EntityCount, "updates do not increment counts")
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := svc.AddEntity(ctx, "fam1", "spaceship", map[string]interface{}{"name": "x"}, "", nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSchema))
	})

	t.Run("rejects invalid properties", func(t *testing.T) {
		_, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{
			"name": "Eve",
			"role": "astronaut",
		}, "", nil)
		require.Error(t, err)
		var validationErr *apperrors.ErrValidationFailed
		require.ErrorAs(t, err, &validationErr)
		assert.NotEmpty(t, validationErr.Reasons)
	})
}

func TestAddRelationship(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{"name": "Alice", "role": "parent"}, "alice", nil)
	require.NoError(t, err)
	_, err = svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{"name": "Charlie", "role": "child"}, "charlie", nil)
	require.NoError(t, err)

	t.Run("deterministic id and counters", func(t *testing.T) {
		rel, err := svc.AddRelationship(ctx, "fam1", "alice", "charlie", "parent_of", map[string]interface{}{
			"type": "biological",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "alice-parent_of-charlie", rel.ID)

		graph, err := svc.GetGraph(ctx, "fam1", false)
		require.NoError(t, err)
		assert.Equal(t, 1, graph.Stats.RelationshipCount)
		assert.Equal(t, 1, graph.Stats.RelationshipTypeCount["parent_of"])
	})

	t.Run("re-adding updates in place", func(t *testing.T) {
		rel, err := svc.AddRelationship(ctx, "fam1", "alice", "charlie", "parent_of", map[string]interface{}{
			"primary_caregiver": true,
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, "biological", rel.Properties["type"], "prior properties survive")
		assert.Equal(t, true, rel.Properties["primary_caregiver"])

		graph, err := svc.GetGraph(ctx, "fam1", false)
		require.NoError(t, err)
		assert.Equal(t, 1, graph.Stats.RelationshipCount, "no duplicate edge")
	})

	t.Run("missing endpoint", func(t *testing.T) {
		_, err := svc.AddRelationship(ctx, "fam1", "alice", "ghost", "parent_of", nil, nil)
		require.Error(t, err)
		var endpointErr *apperrors.ErrEndpointNotFound
		require.ErrorAs(t, err, &endpointErr)
		assert.Equal(t, "ghost", endpointErr.TargetID)
	})

	t.Run("endpoint types must satisfy the relationship", func(t *testing.T) {
		_, err := svc.AddRelationship(ctx, "fam1", "fam1", "charlie", "parent_of", nil, nil)
		require.Error(t, err, "a family cannot be parent_of a person")
	})

	t.Run("unknown relationship type", func(t *testing.T) {
		_, err := svc.AddRelationship(ctx, "fam1", "alice", "charlie", "teleports_to", nil, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeSchema))
	})
}

func TestRemoveEntityCascades(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{"name": "Alice", "role": "parent"}, "alice", nil)
	require.NoError(t, err)
	_, err = svc.AddEntity(ctx, "fam1", "task", map[string]interface{}{"title": "Dishes", "status": "pending"}, "t1", nil)
	require.NoError(t, err)
	_, err = svc.AddRelationship(ctx, "fam1", "t1", "alice", "assigned_to", nil, nil)
	require.NoError(t, err)
	_, err = svc.AddRelationship(ctx, "fam1", "alice", "fam1", "member_of", map[string]interface{}{"role": "parent"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveEntity(ctx, "fam1", "alice"))

	graph, err := svc.GetGraph(ctx, "fam1", false)
	require.NoError(t, err)
	assert.Nil(t, graph.Entity("alice"))
	assert.Empty(t, graph.Relationships, "edges touching the entity are removed")
	assert.Equal(t, 0, graph.Stats.RelationshipCount)
	assert.Equal(t, 0, graph.Stats.RelationshipTypeCount["assigned_to"])

	err = svc.RemoveEntity(ctx, "fam1", "alice")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestRemoveRelationship(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{"name": "Alice", "role": "parent"}, "alice", nil)
	require.NoError(t, err)
	rel, err := svc.AddRelationship(ctx, "fam1", "alice", "fam1", "member_of", map[string]interface{}{"role": "parent"}, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RemoveRelationship(ctx, "fam1", rel.ID))

	graph, err := svc.GetGraph(ctx, "fam1", false)
	require.NoError(t, err)
	assert.Empty(t, graph.Relationships)
	assert.Equal(t, 0, graph.Stats.RelationshipCount)

	err = svc.RemoveRelationship(ctx, "fam1", rel.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestGraphSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, nil)

	_, err := svc.AddEntity(ctx, "fam1", "person", map[string]interface{}{"name": "Alice", "role": "parent"}, "alice", nil)
	require.NoError(t, err)
	_, err = svc.AddRelationship(ctx, "fam1", "alice", "fam1", "member_of", map[string]interface{}{"role": "parent"}, nil)
	require.NoError(t, err)

	// A second service instance sees the persisted document
	other := NewService(store, nil)
	graph, err := other.GetGraph(ctx, "fam1", false)
	require.NoError(t, err)
	require.NotNil(t, graph.Entity("alice"))
	require.Len(t, graph.Relationships, 1)
	assert.Equal(t, "alice-member_of-fam1", graph.Relationships[0].ID)
	assert.Equal(t, 2, graph.Stats.EntityCount)
}
