package graphstore

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests require a running Neo4j instance at bolt://localhost:7687
// with neo4j/password credentials. Run with -short to skip them.

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store := NewStore(Options{
		URI:      "bolt://localhost:7687",
		User:     "neo4j",
		Password: "password",
	})
	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Failed to connect to Neo4j: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close(context.Background())
	})
	return store
}

func testID(prefix string) string {
	return fmt.Sprintf("test-%s-%s", prefix, time.Now().Format("20060102150405.000"))
}

func cleanupNode(t *testing.T, store *Store, id string) {
	t.Helper()
	t.Cleanup(func() {
		_, _ = store.ExecuteQuery(context.Background(),
			"MATCH (n {id: $id}) DETACH DELETE n",
			map[string]interface{}{"id": id})
	})
}

func TestStore_CreateOrUpdateNode(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store := newTestStore(t)

	id := testID("person")
	cleanupNode(t, store, id)

	node, err := store.CreateOrUpdateNode(ctx, "person", id, map[string]interface{}{
		"name":      "Integration Person",
		"role":      "parent",
		"birthdate": time.Date(1984, 5, 2, 0, 0, 0, 0, time.UTC),
		"contact":   map[string]interface{}{"email": "p@example.com"},
	})
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, id, node.ID)
	assert.Equal(t, "person", node.Type)
	assert.Equal(t, "Integration Person", node.Properties["name"])
	// Dates are stored as ISO strings, nested values as JSON strings
	assert.Equal(t, "1984-05-02T00:00:00Z", node.Properties["birthdate"])
	assert.Equal(t, `{"email":"p@example.com"}`, node.Properties["contact"])

	// Update keeps properties not present in the new set
	updated, err := store.CreateOrUpdateNode(ctx, "person", id, map[string]interface{}{
		"role": "guardian",
	})
	require.NoError(t, err)
	assert.Equal(t, "guardian", updated.Properties["role"])
	assert.Equal(t, "Integration Person", updated.Properties["name"])
}

func TestStore_CreateOrUpdateNode_UnknownLabel(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	store := newTestStore(t)
	_, err := store.CreateOrUpdateNode(context.Background(), "spaceship", "x", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown node label")
}

func TestStore_GetNodeByID_NotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	store := newTestStore(t)
	node, err := store.GetNodeByID(context.Background(), "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, node)
}

func TestStore_FindNodesByProperties(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store := newTestStore(t)

	id := testID("person")
	cleanupNode(t, store, id)

	_, err := store.CreateOrUpdateNode(ctx, "person", id, map[string]interface{}{
		"name": "Findable Integration Person " + id,
	})
	require.NoError(t, err)

	// Substring match for strings longer than three characters
	nodes, err := store.FindNodesByProperties(ctx, "person", map[string]interface{}{
		"name": "findable integration",
	}, 10)
	require.NoError(t, err)
	found := false
	for _, node := range nodes {
		if node.ID == id {
			found = true
		}
	}
	assert.True(t, found)
}

func TestStore_Relationships(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store := newTestStore(t)

	personID := testID("person")
	familyID := testID("family")
	cleanupNode(t, store, personID)
	cleanupNode(t, store, familyID)

	_, err := store.CreateOrUpdateNode(ctx, "person", personID, map[string]interface{}{"name": "Member"})
	require.NoError(t, err)
	_, err = store.CreateOrUpdateNode(ctx, "family", familyID, map[string]interface{}{"name": "Test Family"})
	require.NoError(t, err)

	rel, err := store.CreateOrUpdateRelationship(ctx, personID, "person", familyID, "family", "member_of", map[string]interface{}{
		"role": "parent",
	})
	require.NoError(t, err)
	assert.Equal(t, "MEMBER_OF", rel.Type)
	assert.Equal(t, personID, rel.SourceID)
	assert.Equal(t, familyID, rel.TargetID)
	assert.Equal(t, fmt.Sprintf("%s-MEMBER_OF-%s", personID, familyID), rel.ID)

	connected, err := store.GetConnectedNodes(ctx, personID, "outgoing", "member_of", 10)
	require.NoError(t, err)
	require.Len(t, connected, 1)
	assert.Equal(t, "outgoing", connected[0].Direction)
	assert.Equal(t, familyID, connected[0].Node.ID)

	deleted, err := store.DeleteRelationship(ctx, personID, familyID, "member_of")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = store.DeleteRelationship(ctx, personID, familyID, "member_of")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestStore_CreateOrUpdateRelationship_MissingEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	store := newTestStore(t)
	_, err := store.CreateOrUpdateRelationship(context.Background(),
		"missing-source", "person", "missing-target", "family", "member_of", nil)
	require.Error(t, err)
}

func TestStore_FindPaths(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store := newTestStore(t)

	parentID := testID("parent")
	childID := testID("child")
	cleanupNode(t, store, parentID)
	cleanupNode(t, store, childID)

	_, err := store.CreateOrUpdateNode(ctx, "person", parentID, map[string]interface{}{"name": "Parent"})
	require.NoError(t, err)
	_, err = store.CreateOrUpdateNode(ctx, "person", childID, map[string]interface{}{"name": "Child"})
	require.NoError(t, err)
	_, err = store.CreateOrUpdateRelationship(ctx, parentID, "person", childID, "person", "parent_of", nil)
	require.NoError(t, err)

	paths, err := store.FindPaths(ctx, parentID, childID, 3)
	require.NoError(t, err)
	require.Len(t, paths, 1)
	require.Len(t, paths[0], 1)
	assert.Equal(t, "PARENT_OF", paths[0][0].Type)
}

func TestStore_DeleteNode(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	store := newTestStore(t)

	personID := testID("person")
	familyID := testID("family")
	cleanupNode(t, store, familyID)

	_, err := store.CreateOrUpdateNode(ctx, "person", personID, map[string]interface{}{"name": "Doomed"})
	require.NoError(t, err)
	_, err = store.CreateOrUpdateNode(ctx, "family", familyID, map[string]interface{}{"name": "Family"})
	require.NoError(t, err)
	_, err = store.CreateOrUpdateRelationship(ctx, personID, "person", familyID, "family", "member_of", nil)
	require.NoError(t, err)

	// Deleting a node with relationships removes the relationships too
	deleted, err := store.DeleteNode(ctx, personID)
	require.NoError(t, err)
	assert.True(t, deleted)

	node, err := store.GetNodeByID(ctx, personID)
	require.NoError(t, err)
	assert.Nil(t, node)

	deleted, err = store.DeleteNode(ctx, personID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestPrepareProperties(t *testing.T) {
	prepared, err := prepareProperties(map[string]interface{}{
		"name":    "Plain",
		"age":     41,
		"ok":      true,
		"when":    time.Date(2025, 3, 1, 16, 0, 0, 0, time.UTC),
		"nested":  map[string]interface{}{"a": 1},
		"list":    []string{"x", "y"},
		"skipped": nil,
	})
	require.NoError(t, err)

	assert.Equal(t, "Plain", prepared["name"])
	assert.Equal(t, 41, prepared["age"])
	assert.Equal(t, true, prepared["ok"])
	assert.Equal(t, "2025-03-01T16:00:00Z", prepared["when"])
	assert.Equal(t, `{"a":1}`, prepared["nested"])
	assert.Equal(t, `["x","y"]`, prepared["list"])
	_, ok := prepared["skipped"]
	assert.False(t, ok)
}

func TestValidLabelAndRelType(t *testing.T) {
	label, err := validLabel("PERSON")
	require.NoError(t, err)
	assert.Equal(t, "person", label)

	_, err = validLabel("person; DETACH DELETE n")
	assert.Error(t, err)

	relType, err := validRelType("member_of")
	require.NoError(t, err)
	assert.Equal(t, "MEMBER_OF", relType)

	_, err = validRelType("TELEPORTS_TO")
	assert.Error(t, err)
}
