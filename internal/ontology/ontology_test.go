package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityTypeByName(t *testing.T) {
	tests := []struct {
		name     string
		lookup   string
		wantName string
		wantNil  bool
	}{
		{"uppercase key", "PERSON", "person", false},
		{"lowercase name", "person", "person", false},
		{"mixed case", "Person", "person", false},
		{"extended entity", "milestone", "milestone", false},
		{"unknown type", "spaceship", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := EntityTypeByName(tt.lookup)
			if tt.wantNil {
				assert.Nil(t, def)
				return
			}
			require.NotNil(t, def)
			assert.Equal(t, tt.wantName, def.Name)
		})
	}
}

func TestRelationshipTypeByName(t *testing.T) {
	def := RelationshipTypeByName("member_of")
	require.NotNil(t, def)
	assert.Equal(t, "member_of", def.Name)
	assert.Equal(t, []string{"PERSON"}, def.Source)
	assert.Equal(t, []string{"FAMILY"}, def.Target)

	assert.NotNil(t, RelationshipTypeByName("MEMBER_OF"))
	assert.Nil(t, RelationshipTypeByName("teleports_to"))
}

func TestCatalogSize(t *testing.T) {
	assert.Len(t, EntityTypes, 15)
	assert.Len(t, RelationshipTypes, 25)
}

func TestValidateEntityProperties(t *testing.T) {
	t.Run("valid person", func(t *testing.T) {
		result := ValidateEntityProperties("person", map[string]interface{}{
			"name": "Stefan",
			"role": "parent",
			"age":  float64(41),
		})
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("missing required property", func(t *testing.T) {
		result := ValidateEntityProperties("person", map[string]interface{}{
			"role": "parent",
		})
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "name")
	})

	t.Run("unknown entity type", func(t *testing.T) {
		result := ValidateEntityProperties("spaceship", map[string]interface{}{})
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "Unknown entity type")
	})

	t.Run("bad enum value", func(t *testing.T) {
		result := ValidateEntityProperties("person", map[string]interface{}{
			"name": "Stefan",
			"role": "astronaut",
		})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "role")
	})

	t.Run("wrong type", func(t *testing.T) {
		result := ValidateEntityProperties("person", map[string]interface{}{
			"name": "Stefan",
			"age":  "forty-one",
		})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "must be a number")
	})

	t.Run("unknown properties are allowed", func(t *testing.T) {
		result := ValidateEntityProperties("person", map[string]interface{}{
			"name":      "Stefan",
			"shoe_size": 44,
		})
		assert.True(t, result.Valid)
	})

	t.Run("date as ISO string", func(t *testing.T) {
		result := ValidateEntityProperties("event", map[string]interface{}{
			"title":     "Soccer practice",
			"startDate": "2025-03-01T16:00:00Z",
		})
		assert.True(t, result.Valid)
	})

	t.Run("invalid date string", func(t *testing.T) {
		result := ValidateEntityProperties("event", map[string]interface{}{
			"title":     "Soccer practice",
			"startDate": "not a date",
		})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "valid date")
	})

	t.Run("multiple errors accumulate", func(t *testing.T) {
		result := ValidateEntityProperties("task", map[string]interface{}{
			"status":   "snoozed",
			"priority": "high",
		})
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 3) // missing title, bad status, bad priority
	})
}

func TestValidateRelationship(t *testing.T) {
	t.Run("valid endpoints", func(t *testing.T) {
		result := ValidateRelationship("member_of", "person", "family")
		assert.True(t, result.Valid)
	})

	t.Run("case insensitive endpoints", func(t *testing.T) {
		result := ValidateRelationship("ATTENDS", "Person", "EVENT")
		assert.True(t, result.Valid)
	})

	t.Run("bad source", func(t *testing.T) {
		result := ValidateRelationship("member_of", "task", "family")
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "source")
	})

	t.Run("bad source and target", func(t *testing.T) {
		result := ValidateRelationship("parent_of", "task", "event")
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 2)
	})

	t.Run("unknown relationship type", func(t *testing.T) {
		result := ValidateRelationship("teleports_to", "person", "location")
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "Unknown relationship type")
	})
}

func TestValidateRelationshipProperties(t *testing.T) {
	t.Run("valid properties", func(t *testing.T) {
		result := ValidateRelationshipProperties("sibling_of", map[string]interface{}{
			"type":               "full",
			"influence_type":     "mentor",
			"influence_strength": 7.5,
		})
		assert.True(t, result.Valid)
	})

	t.Run("out of bounds", func(t *testing.T) {
		result := ValidateRelationshipProperties("sibling_of", map[string]interface{}{
			"influence_strength": 15.0,
		})
		assert.False(t, result.Valid)
		assert.Contains(t, result.Errors[0], "influence_strength")
	})

	t.Run("bad enum", func(t *testing.T) {
		result := ValidateRelationshipProperties("parent_of", map[string]interface{}{
			"type": "godparent",
		})
		assert.False(t, result.Valid)
	})

	t.Run("unknown properties are allowed", func(t *testing.T) {
		result := ValidateRelationshipProperties("attends", map[string]interface{}{
			"carpool": true,
		})
		assert.True(t, result.Valid)
	})
}
