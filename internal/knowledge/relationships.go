package knowledge

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"allie-graph/internal/ontology"
	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// AddRelationship adds or updates a relationship between two existing
// entities. The relationship ID is deterministic, so re-adding the same
// typed edge updates it in place.
func (s *Service) AddRelationship(ctx context.Context, familyID, sourceID, targetID, relationType string, properties map[string]interface{}, metadata map[string]interface{}) (*Relationship, error) {
	typeDef := ontology.RelationshipTypeByName(relationType)
	if typeDef == nil {
		return nil, apperrors.NewInvalidRelationshipType(relationType)
	}
	normalizedType := typeDef.Name

	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	source := graph.Entities[sourceID]
	target := graph.Entities[targetID]
	if source == nil || target == nil {
		return nil, apperrors.NewEndpointNotFound(sourceID, targetID)
	}

	if result := ontology.ValidateRelationship(normalizedType, source.Type, target.Type); !result.Valid {
		return nil, apperrors.NewValidationFailed("relationship "+normalizedType, result.Errors)
	}
	if result := ontology.ValidateRelationshipProperties(normalizedType, properties); !result.Valid {
		return nil, apperrors.NewValidationFailed("relationship "+normalizedType+" properties", result.Errors)
	}

	relationshipID := fmt.Sprintf("%s-%s-%s", sourceID, normalizedType, targetID)
	now := nowISO()

	existingIndex := -1
	for i, rel := range graph.Relationships {
		if rel.ID == relationshipID {
			existingIndex = i
			break
		}
	}

	relationship := &Relationship{
		ID:         relationshipID,
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       normalizedType,
		Properties: make(map[string]interface{}, len(properties)+1),
		Metadata:   newMetadata(metadata),
	}

	if existingIndex >= 0 {
		existing := graph.Relationships[existingIndex]
		for key, value := range existing.Properties {
			relationship.Properties[key] = value
		}
		relationship.Metadata = make(map[string]interface{}, len(existing.Metadata)+len(metadata))
		for key, value := range existing.Metadata {
			relationship.Metadata[key] = value
		}
		for key, value := range metadata {
			relationship.Metadata[key] = value
		}
		relationship.Metadata["updated_at"] = now
	}
	for key, value := range properties {
		relationship.Properties[key] = value
	}
	relationship.Properties["lastUpdate"] = now

	if existingIndex >= 0 {
		graph.Relationships[existingIndex] = relationship
	} else {
		graph.Relationships = append(graph.Relationships, relationship)
		graph.Stats.RelationshipCount++
		graph.Stats.RelationshipTypeCount[normalizedType]++
	}
	graph.Stats.LastUpdate = now

	if err := s.save(ctx, graph); err != nil {
		return nil, err
	}

	s.logger.Debug("Relationship upserted",
		zap.String("family_id", familyID),
		zap.String("relationship_id", relationshipID),
		zap.Bool("update", existingIndex >= 0),
	)
	return relationship, nil
}

// RemoveRelationship removes a relationship by ID.
func (s *Service) RemoveRelationship(ctx context.Context, familyID, relationshipID string) error {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := -1
	for i, rel := range graph.Relationships {
		if rel.ID == relationshipID {
			index = i
			break
		}
	}
	if index == -1 {
		return apperrors.NewRelationshipNotFound(relationshipID)
	}

	relType := graph.Relationships[index].Type
	graph.Relationships = append(graph.Relationships[:index], graph.Relationships[index+1:]...)
	graph.Stats.RelationshipCount--
	graph.Stats.RelationshipTypeCount[relType]--
	graph.Stats.LastUpdate = nowISO()

	return s.save(ctx, graph)
}

// RelationshipQuery describes a relationship query. All set fields must
// match; EntityID matches relationships touching the entity on either side.
type RelationshipQuery struct {
	Type       string                 `json:"type,omitempty"`
	SourceID   string                 `json:"sourceId,omitempty"`
	TargetID   string                 `json:"targetId,omitempty"`
	EntityID   string                 `json:"entityId,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
}

// QueryRelationships returns relationships matching the query.
func (s *Service) QueryRelationships(ctx context.Context, familyID string, query RelationshipQuery) ([]*Relationship, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	typeFilter := ""
	if query.Type != "" {
		typeDef := ontology.RelationshipTypeByName(query.Type)
		if typeDef == nil {
			return nil, apperrors.NewInvalidRelationshipType(query.Type)
		}
		typeFilter = typeDef.Name
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Relationship
	for _, rel := range graph.Relationships {
		if typeFilter != "" && rel.Type != typeFilter {
			continue
		}
		if query.SourceID != "" && rel.SourceID != query.SourceID {
			continue
		}
		if query.TargetID != "" && rel.TargetID != query.TargetID {
			continue
		}
		if query.EntityID != "" && rel.SourceID != query.EntityID && rel.TargetID != query.EntityID {
			continue
		}
		if !matchesEquality(rel.Properties, query.Properties) {
			continue
		}
		if !matchesEquality(rel.Metadata, query.Metadata) {
			continue
		}
		results = append(results, rel)
	}

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// ConnectedEntity pairs a neighbor entity with the relationship reaching it.
type ConnectedEntity struct {
	Entity       *Entity       `json:"entity"`
	Relationship *Relationship `json:"relationship"`
	Direction    string        `json:"direction"`
}

// FindConnectedEntities returns the entities connected to an entity,
// optionally filtered by relationship type and direction ("outgoing",
// "incoming" or "both").
func (s *Service) FindConnectedEntities(ctx context.Context, familyID, entityID, relationType, direction string) ([]*ConnectedEntity, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	typeFilter := ""
	if relationType != "" {
		typeDef := ontology.RelationshipTypeByName(relationType)
		if typeDef == nil {
			return nil, apperrors.NewInvalidRelationshipType(relationType)
		}
		typeFilter = typeDef.Name
	}
	if direction == "" {
		direction = "both"
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if graph.Entities[entityID] == nil {
		return nil, apperrors.NewEntityNotFound(entityID)
	}

	return connectedLocked(graph, entityID, typeFilter, direction), nil
}

// connectedLocked walks relationships of an entity. Callers hold the lock.
func connectedLocked(graph *Graph, entityID, typeFilter, direction string) []*ConnectedEntity {
	var connected []*ConnectedEntity
	for _, rel := range graph.Relationships {
		if typeFilter != "" && rel.Type != typeFilter {
			continue
		}

		var otherID, relDirection string
		switch {
		case rel.SourceID == entityID && (direction == "outgoing" || direction == "both"):
			otherID, relDirection = rel.TargetID, "outgoing"
		case rel.TargetID == entityID && (direction == "incoming" || direction == "both"):
			otherID, relDirection = rel.SourceID, "incoming"
		default:
			continue
		}

		other := graph.Entities[otherID]
		if other == nil {
			continue
		}
		connected = append(connected, &ConnectedEntity{
			Entity:       other,
			Relationship: rel,
			Direction:    relDirection,
		})
	}
	return connected
}

// TypedRelationship is a relationship joined with its endpoint entities.
type TypedRelationship struct {
	Relationship *Relationship `json:"relationship"`
	Source       *Entity       `json:"source"`
	Target       *Entity       `json:"target"`
}

// FindRelationshipsByType returns all relationships of a type with their
// endpoint entities resolved.
func (s *Service) FindRelationshipsByType(ctx context.Context, familyID, relationType string) ([]*TypedRelationship, error) {
	typeDef := ontology.RelationshipTypeByName(relationType)
	if typeDef == nil {
		return nil, apperrors.NewInvalidRelationshipType(relationType)
	}

	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*TypedRelationship
	for _, rel := range graph.Relationships {
		if rel.Type != typeDef.Name {
			continue
		}
		results = append(results, &TypedRelationship{
			Relationship: rel,
			Source:       graph.Entities[rel.SourceID],
			Target:       graph.Entities[rel.TargetID],
		})
	}
	return results, nil
}
