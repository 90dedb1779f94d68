package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "allie-graph/pkg/errors"
)

func TestLoadFamilyData(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, nil)

	store.records["fam1"] = &FamilyRecord{
		FamilyID:   "fam1",
		FamilyName: "The Parkers",
		FamilyMembers: []FamilyMember{
			{ID: "p1", Name: "Dana", Role: "parent", PrimaryCaregiver: true, JoinDate: "2020-01-15T00:00:00Z"},
			{ID: "p2", Name: "Sam", Role: "parent", Relationship: "adoptive"},
			{ID: "c1", Name: "Riley", Role: "child", Age: 8},
		},
		Tasks: []FamilyTask{
			{
				ID: "task1", Title: "Pack lunches", Completed: false, Weight: 3,
				AssignedTo: "p1", CreatedBy: "p2", CreatedAt: "2026-08-01T09:00:00Z",
			},
			{ID: "task2", Title: "Book checkup", Completed: true},
		},
		Events: []FamilyEvent{
			{
				ID: "ev1", Title: "School recital", StartDate: "2026-09-10T18:00:00Z",
				Attendees: []EventAttendee{{ID: "p1", Required: true}, {ID: "c1", Confirmed: true}},
				Location:  &EventLocation{ID: "loc1", Name: "Lincoln Elementary", Type: "school"},
			},
		},
	}

	graph, err := svc.LoadFamilyData(ctx, "fam1")
	require.NoError(t, err)

	t.Run("family root", func(t *testing.T) {
		root := graph.Entity("fam1")
		require.NotNil(t, root)
		assert.Equal(t, "The Parkers", root.Properties["name"])
	})

	t.Run("members and membership", func(t *testing.T) {
		for _, id := range []string{"p1", "p2", "c1"} {
			require.NotNil(t, graph.Entity(id), id)
			require.NotNil(t, graph.Relationship(id+"-member_of-fam1"), id)
		}
		membership := graph.Relationship("p1-member_of-fam1")
		assert.Equal(t, "parent", membership.Properties["role"])
		assert.Equal(t, "2020-01-15T00:00:00Z", membership.Properties["since"])
	})

	t.Run("parent and child edges", func(t *testing.T) {
		biological := graph.Relationship("p1-parent_of-c1")
		require.NotNil(t, biological)
		assert.Equal(t, "biological", biological.Properties["type"])
		assert.Equal(t, true, biological.Properties["primary_caregiver"])

		adoptive := graph.Relationship("p2-parent_of-c1")
		require.NotNil(t, adoptive)
		assert.Equal(t, "adoptive", adoptive.Properties["type"])

		childEdge := graph.Relationship("c1-child_of-p2")
		require.NotNil(t, childEdge)
		assert.Equal(t, "adopted", childEdge.Properties["type"])
	})

	t.Run("tasks", func(t *testing.T) {
		task := graph.Entity("task1")
		require.NotNil(t, task)
		assert.Equal(t, "pending", task.Properties["status"])
		assert.Equal(t, float64(3), task.Properties["weight"])

		done := graph.Entity("task2")
		require.NotNil(t, done)
		assert.Equal(t, "completed", done.Properties["status"])
		assert.Equal(t, float64(1), done.Properties["weight"], "weight defaults to 1")

		assignment := graph.Relationship("task1-assigned_to-p1")
		require.NotNil(t, assignment)
		assert.Equal(t, "2026-08-01T09:00:00Z", assignment.Properties["assignedDate"], "falls back to creation date")

		authored := graph.Relationship("task1-created_by-p2")
		require.NotNil(t, authored)
	})

	t.Run("events, attendance and location", func(t *testing.T) {
		event := graph.Entity("ev1")
		require.NotNil(t, event)
		assert.Equal(t, "family", event.Properties["eventType"], "event type defaults")
		assert.Equal(t, "confirmed", event.Properties["status"])

		require.NotNil(t, graph.Relationship("p1-attends-ev1"))
		require.NotNil(t, graph.Relationship("c1-attends-ev1"))

		location := graph.Entity("loc1")
		require.NotNil(t, location)
		assert.Equal(t, "Lincoln Elementary", location.Properties["name"])
		occursAt := graph.Relationship("ev1-occurs_at-loc1")
		require.NotNil(t, occursAt)
		assert.Equal(t, true, occursAt.Properties["confirmed"])
	})

	t.Run("stats reflect the import", func(t *testing.T) {
		// fam1 root, 3 people, 2 tasks, 1 event, 1 location
		assert.Equal(t, 8, graph.Stats.EntityCount)
		assert.Equal(t, 3, graph.Stats.EntityTypeCount["person"])
		assert.Equal(t, 2, graph.Stats.RelationshipTypeCount["parent_of"])
		assert.Equal(t, 2, graph.Stats.RelationshipTypeCount["child_of"])
	})

	t.Run("reimport is idempotent", func(t *testing.T) {
		again, err := svc.LoadFamilyData(ctx, "fam1")
		require.NoError(t, err)
		assert.Equal(t, graph.Stats.EntityCount, again.Stats.EntityCount)
		assert.Equal(t, graph.Stats.RelationshipCount, again.Stats.RelationshipCount)
	})
}

func TestLoadFamilyDataMissingRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.LoadFamilyData(ctx, "nobody")
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}
