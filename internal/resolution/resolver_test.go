package resolution

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"allie-graph/internal/graphstore"
)

// fakeGraph is an in-memory stand-in for the Neo4j adapter.
type fakeGraph struct {
	nodes         map[string]*graphstore.Node
	connections   map[string][]*graphstore.ConnectedNode
	fulltextFails bool

	createdRels []string
	deletedIDs  []string
	updatedIDs  []string
}

func newFakeGraph() *fakeGraph {
	return &fakeGraph{
		nodes:       make(map[string]*graphstore.Node),
		connections: make(map[string][]*graphstore.ConnectedNode),
	}
}

func (f *fakeGraph) addNode(node *graphstore.Node) {
	f.nodes[node.ID] = node
}

func (f *fakeGraph) GetNodeByID(_ context.Context, id string) (*graphstore.Node, error) {
	return f.nodes[id], nil
}

func (f *fakeGraph) FindNodesByProperties(_ context.Context, label string, properties map[string]interface{}, limit int) ([]*graphstore.Node, error) {
	var nodes []*graphstore.Node
	for _, node := range f.nodes {
		if label != "" && node.Type != label {
			continue
		}
		matches := true
		for key, want := range properties {
			if key == "familyId" {
				continue
			}
			if node.Properties[key] != want {
				matches = false
				break
			}
		}
		if matches {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

func (f *fakeGraph) ExecuteQuery(_ context.Context, query string, _ map[string]interface{}) ([]map[string]interface{}, error) {
	if strings.Contains(query, "db.index.fulltext") {
		if f.fulltextFails {
			return nil, errors.New("no such fulltext index")
		}
		var records []map[string]interface{}
		for _, node := range f.nodes {
			records = append(records, map[string]interface{}{"node": node})
		}
		return records, nil
	}
	// Entity type frequency query
	counts := make(map[string]int)
	for _, node := range f.nodes {
		counts[node.Type]++
	}
	var records []map[string]interface{}
	for typeName, count := range counts {
		records = append(records, map[string]interface{}{"entityType": typeName, "count": int64(count)})
	}
	return records, nil
}

func (f *fakeGraph) CreateOrUpdateNode(_ context.Context, label, id string, properties map[string]interface{}) (*graphstore.Node, error) {
	node := &graphstore.Node{ID: id, Type: label, Properties: properties}
	f.nodes[id] = node
	f.updatedIDs = append(f.updatedIDs, id)
	return node, nil
}

func (f *fakeGraph) CreateOrUpdateRelationship(_ context.Context, sourceID, _, targetID, _, relType string, _ map[string]interface{}) (*graphstore.Relationship, error) {
	f.createdRels = append(f.createdRels, sourceID+"-"+relType+"-"+targetID)
	return &graphstore.Relationship{SourceID: sourceID, TargetID: targetID, Type: relType}, nil
}

func (f *fakeGraph) GetConnectedNodes(_ context.Context, id, _, _ string, _ int) ([]*graphstore.ConnectedNode, error) {
	return f.connections[id], nil
}

func (f *fakeGraph) DeleteNode(_ context.Context, id string) (bool, error) {
	_, ok := f.nodes[id]
	delete(f.nodes, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return ok, nil
}

func personNode(id, name string, extra map[string]interface{}) *graphstore.Node {
	props := map[string]interface{}{"name": name, "familyId": "fam1"}
	for key, value := range extra {
		props[key] = value
	}
	return &graphstore.Node{ID: id, Type: "person", Labels: []string{"person"}, Properties: props}
}

func TestCalculateMatchScore(t *testing.T) {
	resolver := NewResolver(newFakeGraph(), nil)
	config := resolver.config.TypeFor("person")

	t.Run("identical entities score 1", func(t *testing.T) {
		a := personNode("a", "Sarah Chen", map[string]interface{}{"email": "sarah@example.com"})
		b := personNode("b", "Sarah Chen", map[string]interface{}{"email": "sarah@example.com"})
		assert.InDelta(t, 1.0, resolver.CalculateMatchScore(a, b, config), 0.001)
	})

	t.Run("exact property mismatch drags the score down", func(t *testing.T) {
		a := personNode("a", "Sarah Chen", map[string]interface{}{"email": "sarah@example.com"})
		b := personNode("b", "Sarah Chen", map[string]interface{}{"email": "schen@work.com"})
		score := resolver.CalculateMatchScore(a, b, config)
		assert.Less(t, score, 0.75, "email weighs triple")
	})

	t.Run("no comparable properties scores 0", func(t *testing.T) {
		a := &graphstore.Node{ID: "a", Type: "person", Properties: map[string]interface{}{"name": "X"}}
		b := &graphstore.Node{ID: "b", Type: "person", Properties: map[string]interface{}{"phone": "555"}}
		assert.Equal(t, 0.0, resolver.CalculateMatchScore(a, b, config))
	})
}

func TestFindMatchesExactShortcut(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGraph()
	existing := personNode("alice", "Alice Parker", map[string]interface{}{"email": "alice@example.com"})
	fake.addNode(existing)
	resolver := NewResolver(fake, nil)

	t.Run("exact id", func(t *testing.T) {
		matches, err := resolver.FindMatches(ctx, "fam1", personNode("alice", "A. Parker", nil), MatchOptions{})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "exact_id", matches[0].MatchType)
		assert.Equal(t, 1.0, matches[0].Score)
	})

	t.Run("temporary refs skip id lookup", func(t *testing.T) {
		probe := personNode("ref_123", "Alice Parker", map[string]interface{}{"email": "alice@example.com"})
		matches, err := resolver.FindMatches(ctx, "fam1", probe, MatchOptions{})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "exact_email", matches[0].MatchType)
		assert.Equal(t, "alice", matches[0].Node.ID)
	})
}

func TestFindMatchesFuzzy(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGraph()
	fake.addNode(personNode("alice", "Alice Parker", nil))
	fake.addNode(personNode("alicia", "Alicia Parker", nil))
	fake.addNode(personNode("zed", "Zedediah Quark", nil))
	resolver := NewResolver(fake, nil)

	probe := personNode("ref_new", "Alice Parker", nil)
	matches, err := resolver.FindMatches(ctx, "fam1", probe, MatchOptions{MinScore: 0.6})
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	assert.Equal(t, "alice", matches[0].Node.ID, "closest name ranks first")
	for _, match := range matches {
		assert.NotEqual(t, "zed", match.Node.ID, "dissimilar names filtered out")
		assert.GreaterOrEqual(t, match.Score, 0.6)
	}

	t.Run("fulltext failure falls back to scanning", func(t *testing.T) {
		fake.fulltextFails = true
		matches, err := resolver.FindMatches(ctx, "fam1", probe, MatchOptions{MinScore: 0.6})
		require.NoError(t, err)
		assert.NotEmpty(t, matches)
	})
}

func TestFindPotentialDuplicates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGraph()
	fake.addNode(personNode("alice", "Alice Parker", nil))
	fake.addNode(personNode("alice2", "Alice Parker", nil))
	fake.addNode(personNode("bob", "Bob Tran", nil))
	resolver := NewResolver(fake, nil)

	pairs, err := resolver.FindPotentialDuplicates(ctx, "fam1", "person", DuplicateOptions{})
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "person", pairs[0].EntityType)
	assert.GreaterOrEqual(t, pairs[0].Score, 0.8)

	ids := []string{pairs[0].PrimaryID, pairs[0].DuplicateID}
	assert.ElementsMatch(t, []string{"alice", "alice2"}, ids)

	t.Run("all types scan", func(t *testing.T) {
		pairs, err := resolver.FindPotentialDuplicates(ctx, "fam1", "", DuplicateOptions{})
		require.NoError(t, err)
		assert.Len(t, pairs, 1)
	})

	t.Run("max results caps the pair list", func(t *testing.T) {
		fake := newFakeGraph()
		for _, id := range []string{"p1", "p2", "p3"} {
			fake.addNode(personNode(id, "Alice Parker", nil))
		}
		resolver := NewResolver(fake, nil)

		pairs, err := resolver.FindPotentialDuplicates(ctx, "fam1", "person", DuplicateOptions{MaxResults: 2})
		require.NoError(t, err)
		assert.Len(t, pairs, 2, "three identical nodes form three pairs")
	})
}

func TestGroupDuplicates(t *testing.T) {
	pairs := []DuplicatePair{
		{PrimaryID: "a", DuplicateID: "b", EntityType: "person"},
		{PrimaryID: "a", DuplicateID: "c", EntityType: "person"},
		{PrimaryID: "b", DuplicateID: "d", EntityType: "person"},
		{PrimaryID: "x", DuplicateID: "y", EntityType: "task"},
	}

	groups := GroupDuplicates(pairs)
	require.Len(t, groups, 2)

	assert.Equal(t, "a", groups[0].PrimaryID)
	assert.ElementsMatch(t, []string{"b", "c", "d"}, groups[0].DuplicateIDs, "chained pairs fold into one group")
	assert.Equal(t, "x", groups[1].PrimaryID)
	assert.Equal(t, []string{"y"}, groups[1].DuplicateIDs)
}

func TestMergeEntities(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGraph()

	primary := personNode("alice", "Alice Parker", map[string]interface{}{"email": ""})
	duplicate := personNode("alice2", "A. Parker", map[string]interface{}{"email": "alice@example.com", "phone": "555-0100"})
	fake.addNode(primary)
	fake.addNode(duplicate)
	fake.addNode(personNode("charlie", "Charlie", nil))

	fake.connections["alice2"] = []*graphstore.ConnectedNode{
		{
			Relationship: &graphstore.Relationship{Type: "PARENT_OF", Properties: map[string]interface{}{"type": "biological"}},
			Direction:    "outgoing",
			Node:         fake.nodes["charlie"],
		},
		{
			Relationship: &graphstore.Relationship{Type: "MEMBER_OF"},
			Direction:    "outgoing",
			Node:         fake.nodes["alice"],
		},
	}

	result, err := NewResolver(fake, nil).MergeEntities(ctx, primary, duplicate, true)
	require.NoError(t, err)

	assert.True(t, result.PropertiesUpdated)
	merged := fake.nodes["alice"].Properties
	assert.Equal(t, "Alice Parker", merged["name"], "primary values win")
	assert.Equal(t, "alice@example.com", merged["email"], "empty primary values filled from duplicate")
	assert.Equal(t, "555-0100", merged["phone"])

	assert.Equal(t, 1, result.RelationshipCount)
	assert.Equal(t, []string{"alice-PARENT_OF-charlie"}, fake.createdRels, "edges to the primary itself are not recreated")

	assert.True(t, result.Deleted)
	assert.Equal(t, []string{"alice2"}, fake.deletedIDs)
}

func TestResolveDuplicates(t *testing.T) {
	ctx := context.Background()
	fake := newFakeGraph()
	fake.addNode(personNode("alice", "Alice Parker", nil))
	fake.addNode(personNode("alice2", "Alice Parker", nil))
	resolver := NewResolver(fake, nil)

	pairs := []DuplicatePair{
		{PrimaryID: "alice", DuplicateID: "alice2", EntityType: "person", Score: 0.95},
		{PrimaryID: "ghost", DuplicateID: "ghost2", EntityType: "person", Score: 0.9},
		{PrimaryID: "alice", DuplicateID: "gone", EntityType: "person", Score: 0.85},
	}

	result, err := resolver.ResolveDuplicates(ctx, "fam1", pairs, true)
	require.NoError(t, err)

	require.Len(t, result.Resolved, 1)
	assert.Equal(t, "alice2", result.Resolved[0].DuplicateID)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "ghost", result.Failed[0].PrimaryID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, "gone", result.Skipped[0].DuplicateID)

	assert.NotContains(t, fake.nodes, "alice2", "duplicate deleted after merge")
}
