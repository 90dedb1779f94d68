package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"

	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Relationship Operations
// ============================================================================

// CreateOrUpdateRelationship upserts a relationship between two existing
// nodes. Fails when either endpoint does not exist.
func (s *Store) CreateOrUpdateRelationship(ctx context.Context, sourceID, sourceLabel, targetID, targetLabel, relType string, properties map[string]interface{}) (*Relationship, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	safeSource, err := validLabel(sourceLabel)
	if err != nil {
		return nil, err
	}
	safeTarget, err := validLabel(targetLabel)
	if err != nil {
		return nil, err
	}
	safeType, err := validRelType(relType)
	if err != nil {
		return nil, err
	}
	prepared, err := prepareProperties(properties)
	if err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (source:%s {id: $sourceId})
		MATCH (target:%s {id: $targetId})
		MERGE (source)-[r:%s]->(target)
		SET r += $properties
		RETURN r, source, target
	`, safeSource, safeTarget, safeType)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"sourceId":   sourceID,
		"targetId":   targetID,
		"properties": prepared,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s relationship: %w", safeType, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, apperrors.NewEndpointNotFound(sourceID, targetID)
	}

	record := result.Record()
	rel, source, target, err := relationshipFromRecord(record)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Relationship upserted",
		zap.String("type", safeType),
		zap.String("source", sourceID),
		zap.String("target", targetID),
	)
	return formatRelationship(rel, source, target), nil
}

// FindRelationshipsByProperties finds relationships matching all of the
// given property filters exactly. An empty type searches all types.
func (s *Store) FindRelationshipsByProperties(ctx context.Context, relType string, properties map[string]interface{}, limit int) ([]*Relationship, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var match string
	if relType != "" {
		safeType, err := validRelType(relType)
		if err != nil {
			return nil, err
		}
		match = fmt.Sprintf("MATCH (source)-[r:%s]->(target)", safeType)
	} else {
		match = "MATCH (source)-[r]->(target)"
	}

	var builder strings.Builder
	builder.WriteString(match)
	builder.WriteString("\nWHERE source.id IS NOT NULL AND target.id IS NOT NULL")

	conditions := make([]string, 0, len(properties))
	for key := range properties {
		if err := validPropertyKey(key); err != nil {
			return nil, err
		}
		conditions = append(conditions, fmt.Sprintf("r.%s = $properties.%s", key, key))
	}
	if len(conditions) > 0 {
		builder.WriteString(" AND ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString("\nRETURN r, source, target\nLIMIT $limit")

	prepared, err := prepareProperties(properties)
	if err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, builder.String(), map[string]interface{}{
		"properties": prepared,
		"limit":      limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find relationships: %w", err)
	}

	var relationships []*Relationship
	for result.Next(ctx) {
		rel, source, target, err := relationshipFromRecord(result.Record())
		if err != nil {
			continue
		}
		relationships = append(relationships, formatRelationship(rel, source, target))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", err)
	}
	return relationships, nil
}

// GetConnectedNodes returns the neighbors of a node together with the
// connecting relationships. Direction is "outgoing", "incoming" or "both".
func (s *Store) GetConnectedNodes(ctx context.Context, id, direction, relType string, limit int) ([]*ConnectedNode, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	typeFilter := ""
	if relType != "" {
		safeType, err := validRelType(relType)
		if err != nil {
			return nil, err
		}
		typeFilter = ":" + safeType
	}

	var query string
	switch direction {
	case "outgoing":
		query = fmt.Sprintf(`
			MATCH (source {id: $id})-[r%s]->(target)
			RETURN r, source, target
			LIMIT $limit
		`, typeFilter)
	case "incoming":
		query = fmt.Sprintf(`
			MATCH (source)-[r%s]->(target {id: $id})
			RETURN r, source, target
			LIMIT $limit
		`, typeFilter)
	default:
		query = fmt.Sprintf(`
			MATCH (node {id: $id})
			CALL {
				WITH node
				MATCH (node)-[r%s]->(target)
				RETURN r, node as source, target
				UNION
				WITH node
				MATCH (source)-[r%s]->(node)
				RETURN r, source, node as target
			}
			RETURN r, source, target
			LIMIT $limit
		`, typeFilter, typeFilter)
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":    id,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get connected nodes for %s: %w", id, err)
	}

	var connected []*ConnectedNode
	for result.Next(ctx) {
		rel, source, target, err := relationshipFromRecord(result.Record())
		if err != nil {
			continue
		}

		sourceID, _ := source.Props["id"].(string)
		entry := &ConnectedNode{
			Relationship: formatRelationship(rel, source, target),
		}
		if sourceID == id {
			entry.Direction = "outgoing"
			entry.Node = formatNode(target)
		} else {
			entry.Direction = "incoming"
			entry.Node = formatNode(source)
		}
		connected = append(connected, entry)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate connected nodes: %w", err)
	}
	return connected, nil
}

// DeleteRelationship removes a relationship by endpoints and type. Returns
// whether a relationship was actually deleted.
func (s *Store) DeleteRelationship(ctx context.Context, sourceID, targetID, relType string) (bool, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return false, err
	}

	safeType, err := validRelType(relType)
	if err != nil {
		return false, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (source {id: $sourceId})-[r:%s]->(target {id: $targetId})
		DELETE r
		RETURN count(r) as deleted
	`, safeType)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"sourceId": sourceID,
		"targetId": targetID,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete relationship %s->%s: %w", sourceID, targetID, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	return getInt64FromRecord(record, "deleted") > 0, nil
}

func relationshipFromRecord(record *neo4j.Record) (dbtype.Relationship, dbtype.Node, dbtype.Node, error) {
	relValue, _ := record.Get("r")
	sourceValue, _ := record.Get("source")
	targetValue, _ := record.Get("target")

	rel, okRel := relValue.(dbtype.Relationship)
	source, okSource := sourceValue.(dbtype.Node)
	target, okTarget := targetValue.(dbtype.Node)
	if !okRel || !okSource || !okTarget {
		return dbtype.Relationship{}, dbtype.Node{}, dbtype.Node{}, fmt.Errorf("unexpected relationship record shape")
	}
	return rel, source, target, nil
}
