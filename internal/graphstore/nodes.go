package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"go.uber.org/zap"
)

// ============================================================================
// Node Operations
// ============================================================================

// CreateOrUpdateNode upserts a node by label and id. Existing properties not
// present in the update are kept.
func (s *Store) CreateOrUpdateNode(ctx context.Context, label, id string, properties map[string]interface{}) (*Node, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	safeLabel, err := validLabel(label)
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
		MERGE (n:%s {id: $id})
		SET n += $properties
		RETURN n
	`, safeLabel)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"id":         id,
		"properties": prepared,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert %s node: %w", safeLabel, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read upserted node: %w", err)
	}

	value, _ := record.Get("n")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected result type for node %s", id)
	}

	s.logger.Debug("Node upserted",
		zap.String("label", safeLabel),
		zap.String("id", id),
	)
	return formatNode(node), nil
}

// GetNodeByID fetches a node by id across all labels. Returns nil when the
// node does not exist.
func (s *Store) GetNodeByID(ctx context.Context, id string) (*Node, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (n {id: $id})
		RETURN n
	`, map[string]interface{}{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get node %s: %w", id, err)
	}

	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, fmt.Errorf("failed to fetch record: %w", err)
		}
		return nil, nil
	}

	value, _ := result.Record().Get("n")
	node, ok := value.(dbtype.Node)
	if !ok {
		return nil, fmt.Errorf("unexpected result type for node %s", id)
	}
	return formatNode(node), nil
}

// FindNodesByProperties finds nodes matching any of the given property
// filters. String values longer than three characters match as
// case-insensitive substrings; everything else matches exactly. An empty
// label searches all labels.
func (s *Store) FindNodesByProperties(ctx context.Context, label string, properties map[string]interface{}, limit int) ([]*Node, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	var match string
	if label != "" {
		safeLabel, err := validLabel(label)
		if err != nil {
			return nil, err
		}
		match = fmt.Sprintf("MATCH (n:%s)", safeLabel)
	} else {
		match = "MATCH (n)"
	}

	var builder strings.Builder
	builder.WriteString(match)
	builder.WriteString("\nWHERE n.id IS NOT NULL")

	conditions := make([]string, 0, len(properties))
	for key, value := range properties {
		if err := validPropertyKey(key); err != nil {
			return nil, err
		}
		if str, ok := value.(string); ok && len(str) > 3 {
			conditions = append(conditions, fmt.Sprintf("toLower(n.%s) CONTAINS toLower($properties.%s)", key, key))
		} else {
			conditions = append(conditions, fmt.Sprintf("n.%s = $properties.%s", key, key))
		}
	}
	if len(conditions) > 0 {
		builder.WriteString(" AND (")
		builder.WriteString(strings.Join(conditions, " OR "))
		builder.WriteString(")")
	}
	builder.WriteString("\nRETURN n\nLIMIT $limit")

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
		return nil, fmt.Errorf("failed to find nodes: %w", err)
	}

	var nodes []*Node
	for result.Next(ctx) {
		if value, ok := result.Record().Get("n"); ok {
			if node, ok := value.(dbtype.Node); ok {
				nodes = append(nodes, formatNode(node))
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate nodes: %w", err)
	}
	return nodes, nil
}

// DeleteNode removes a node and all of its relationships. Returns whether a
// node was actually deleted.
func (s *Store) DeleteNode(ctx context.Context, id string) (bool, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return false, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	// Relationships must go first; Neo4j refuses to delete attached nodes
	if _, err := session.Run(ctx, `
		MATCH (n {id: $id})-[r]-()
		DELETE r
	`, map[string]interface{}{"id": id}); err != nil {
		return false, fmt.Errorf("failed to delete relationships of %s: %w", id, err)
	}

	result, err := session.Run(ctx, `
		MATCH (n {id: $id})
		DELETE n
		RETURN count(n) as deleted
	`, map[string]interface{}{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete node %s: %w", id, err)
	}

	record, err := result.Single(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to read delete result: %w", err)
	}
	deleted := getInt64FromRecord(record, "deleted")

	if deleted > 0 {
		s.logger.Debug("Node deleted", zap.String("id", id))
	}
	return deleted > 0, nil
}
