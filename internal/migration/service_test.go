package migration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allie-graph/internal/docstore"
	"allie-graph/internal/graphstore"
	"allie-graph/internal/knowledge"
	apperrors "allie-graph/pkg/errors"
)

type fakeEdge struct {
	SourceID string
	Type     string
	TargetID string
}

// fakeGraph records migration writes and answers the validation queries.
type fakeGraph struct {
	nodes map[string]*graphstore.Node
	edges []fakeEdge

	initCalls   int
	schemaCalls int
	failNodeIDs map[string]bool
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		nodes:       make(map[string]*graphstore.Node),
		failNodeIDs: make(map[string]bool),
	}
}

func (f *fakeGraph) Initialize(_ context.Context) error {
	f.initCalls++
	return nil
}

func (f *fakeGraph) InitializeSchema(_ context.Context) error {
	f.schemaCalls++
	return nil
}

func (f *fakeGraph) CreateOrUpdateNode(_ context.Context, label, id string, properties map[string]interface{}) (*graphstore.Node, error) {
	if f.failNodeIDs[id] {
		return nil, errors.New("write refused")
	}
	node := &graphstore.Node{ID: id, Type: label, Properties: properties}
	f.nodes[id] = node
	return node, nil
}

func (f *fakeGraph) CreateOrUpdateRelationship(_ context.Context, sourceID, _, targetID, _, relType string, _ map[string]interface{}) (*graphstore.Relationship, error) {
	f.edges = append(f.edges, fakeEdge{SourceID: sourceID, Type: strings.ToUpper(relType), TargetID: targetID})
	return &graphstore.Relationship{SourceID: sourceID, TargetID: targetID, Type: strings.ToUpper(relType)}, nil
}

func (f *fakeGraph) ExecuteQuery(_ context.Context, query string, _ map[string]interface{}) ([]map[string]interface{}, error) {
	var records []map[string]interface{}
	if strings.Contains(query, "type(r)") {
		for _, edge := range f.edges {
			records = append(records, map[string]interface{}{
				"sourceId": edge.SourceID,
				"type":     edge.Type,
				"targetId": edge.TargetID,
			})
		}
		return records, nil
	}
	for id := range f.nodes {
		records = append(records, map[string]interface{}{"id": id})
	}
	return records, nil
}

func sourceGraph(familyID string) *knowledge.Graph {
	return &knowledge.Graph{
		FamilyID: familyID,
		Entities: map[string]*knowledge.Entity{
			"alice": {ID: "alice", Type: "person", Properties: map[string]interface{}{"name": "Alice"}},
			"t1":    {ID: "t1", Type: "task", Properties: map[string]interface{}{"title": "Dishes"}},
		},
		Relationships: []*knowledge.Relationship{
			{ID: "t1-assigned_to-alice", SourceID: "t1", TargetID: "alice", Type: "assigned_to", Properties: map[string]interface{}{"weight": 2.0}},
		},
		Stats: knowledge.Stats{EntityCount: 2, RelationshipCount: 1},
	}
}

func TestMigrateFamily(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	fake := newFakeGraph()
	service := NewService(store, fake)

	graph := sourceGraph("fam1")
	require.NoError(t, store.SaveGraph(ctx, graph))

	result, err := service.MigrateFamily(ctx, "fam1")
	require.NoError(t, err)

	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 2, result.EntityCount)
	assert.Equal(t, 1, result.RelationshipCount)
	assert.Empty(t, result.Errors)

	t.Run("nodes carry family scoping", func(t *testing.T) {
		node := fake.nodes["alice"]
		require.NotNil(t, node)
		assert.Equal(t, "person", node.Type)
		assert.Equal(t, "fam1", node.Properties["familyId"])
		assert.Equal(t, "person", node.Properties["entityType"])
	})

	t.Run("relationships use source entity labels", func(t *testing.T) {
		require.Len(t, fake.edges, 1)
		assert.Equal(t, fakeEdge{SourceID: "t1", Type: "ASSIGNED_TO", TargetID: "alice"}, fake.edges[0])
	})

	t.Run("rerun is an upsert", func(t *testing.T) {
		again, err := service.MigrateFamily(ctx, "fam1")
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, again.Status)
		assert.Len(t, fake.nodes, 2)
		assert.Equal(t, 1, fake.initCalls, "graph store initialized once per service")
		assert.Equal(t, 1, fake.schemaCalls)
	})
}

func TestMigrateFamilySkipsBadItems(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	fake := newFakeGraph()
	fake.failNodeIDs["t1"] = true
	service := NewService(store, fake)

	graph := sourceGraph("fam1")
	graph.Entities["weird"] = &knowledge.Entity{ID: "weird", Type: "alien", Properties: map[string]interface{}{}}
	graph.Relationships = append(graph.Relationships,
		&knowledge.Relationship{ID: "alice-likes-t1", SourceID: "alice", TargetID: "t1", Type: "likes"},
		&knowledge.Relationship{ID: "nobody-assigned_to-alice", SourceID: "nobody", TargetID: "alice", Type: "assigned_to"},
	)
	require.NoError(t, store.SaveGraph(ctx, graph))

	result, err := service.MigrateFamily(ctx, "fam1")
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithErrors, result.Status)
	assert.Equal(t, 1, result.EntityCount, "only alice written")
	assert.Equal(t, 1, result.RelationshipCount)
	require.Len(t, result.Errors, 4)

	kinds := make(map[string]int)
	for _, itemErr := range result.Errors {
		kinds[itemErr.Kind]++
	}
	assert.Equal(t, 2, kinds["entity"], "unknown type plus write failure")
	assert.Equal(t, 2, kinds["relationship"], "unknown type plus missing endpoint")

	for _, itemErr := range result.Errors {
		switch itemErr.ID {
		case "weird":
			assert.Contains(t, itemErr.Message, "unknown entity type")
		case "alice-likes-t1":
			assert.Contains(t, itemErr.Message, "unknown relationship type")
		case "nobody-assigned_to-alice":
			assert.Contains(t, itemErr.Message, "endpoint not found")
		}
	}
	assert.NotContains(t, fake.nodes, "weird")
}

func TestMigrateFamilyMissingGraph(t *testing.T) {
	service := NewService(docstore.NewMemory(), newFakeGraph())

	_, err := service.MigrateFamily(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, apperrors.IsErrorType(err, apperrors.ErrorTypeMigration))
}

// listingStore reports families beyond what the memory store holds, so one
// family's migration fails while others proceed.
type listingStore struct {
	*docstore.Memory
	familyIDs []string
}

func (s *listingStore) ListFamilyIDs(_ context.Context) ([]string, error) {
	return s.familyIDs, nil
}

func TestMigrateAllFamilies(t *testing.T) {
	ctx := context.Background()
	memory := docstore.NewMemory()
	store := &listingStore{Memory: memory, familyIDs: []string{"fam1", "fam2"}}
	fake := newFakeGraph()
	service := NewService(store, fake)

	require.NoError(t, memory.SaveGraph(ctx, sourceGraph("fam1")))

	summary, err := service.MigrateAllFamilies(ctx)
	require.NoError(t, err)

	assert.Equal(t, StatusCompletedWithErrors, summary.Status)
	assert.Equal(t, 2, summary.EntityCount)
	assert.Equal(t, 1, summary.RelationshipCount)
	assert.Equal(t, 1, summary.ErrorCount)
	require.Len(t, summary.Families, 2)

	assert.Equal(t, "fam1", summary.Families[0].FamilyID)
	require.NotNil(t, summary.Families[0].Result)
	assert.Equal(t, StatusCompleted, summary.Families[0].Result.Status)

	assert.Equal(t, "fam2", summary.Families[1].FamilyID)
	assert.Nil(t, summary.Families[1].Result)
	assert.NotEmpty(t, summary.Families[1].Error)
}

func TestValidateMigration(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	fake := newFakeGraph()
	service := NewService(store, fake)

	require.NoError(t, store.SaveGraph(ctx, sourceGraph("fam1")))

	t.Run("reports missing items", func(t *testing.T) {
		fake.nodes["alice"] = &graphstore.Node{ID: "alice", Type: "person"}

		validation, err := service.ValidateMigration(ctx, "fam1")
		require.NoError(t, err)

		assert.Equal(t, StatusFailed, validation.Status)
		assert.Equal(t, 2, validation.SourceEntities)
		assert.Equal(t, 1, validation.GraphEntities)
		assert.Equal(t, []string{"t1"}, validation.MissingEntities)
		assert.Equal(t, []string{"t1-assigned_to-alice"}, validation.MissingRelationships)
	})

	t.Run("items skipped by migration are skipped here too", func(t *testing.T) {
		graph := sourceGraph("fam2")
		graph.Entities["weird"] = &knowledge.Entity{ID: "weird", Type: "alien"}
		graph.Relationships = append(graph.Relationships,
			&knowledge.Relationship{ID: "alice-likes-t1", SourceID: "alice", TargetID: "t1", Type: "likes"})
		require.NoError(t, store.SaveGraph(ctx, graph))

		fake2 := newFakeGraph()
		service2 := NewService(store, fake2)
		result, err := service2.MigrateFamily(ctx, "fam2")
		require.NoError(t, err)
		require.Equal(t, StatusCompletedWithErrors, result.Status)

		validation, err := service2.ValidateMigration(ctx, "fam2")
		require.NoError(t, err)
		assert.Equal(t, StatusPassed, validation.Status, "skipped items are not reported missing")
	})

	t.Run("passes after a full migration", func(t *testing.T) {
		_, err := service.MigrateFamily(ctx, "fam1")
		require.NoError(t, err)

		validation, err := service.ValidateMigration(ctx, "fam1")
		require.NoError(t, err)

		assert.Equal(t, StatusPassed, validation.Status)
		assert.Empty(t, validation.MissingEntities)
		assert.Empty(t, validation.MissingRelationships)
		assert.Equal(t, 2, validation.GraphEntities)
	})
}
