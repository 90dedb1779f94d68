package graphstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// ============================================================================
// Path and Custom Queries
// ============================================================================

// FindPaths returns the shortest paths between two nodes up to maxDepth
// hops, ignoring relationship direction.
func (s *Store) FindPaths(ctx context.Context, sourceID, targetID string, maxDepth int) ([]Path, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}

	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH path = shortestPath((source {id: $sourceId})-[*1..%d]-(target {id: $targetId}))
		RETURN path
	`, maxDepth)

	result, err := session.Run(ctx, query, map[string]interface{}{
		"sourceId": sourceID,
		"targetId": targetID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find paths %s->%s: %w", sourceID, targetID, err)
	}

	var paths []Path
	for result.Next(ctx) {
		if value, ok := result.Record().Get("path"); ok {
			if path, ok := value.(dbtype.Path); ok {
				paths = append(paths, formatPath(path))
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate paths: %w", err)
	}
	return paths, nil
}

// ExecuteQuery runs an arbitrary cypher query and returns one map per
// record. Nodes, relationships and paths in the result are normalized.
func (s *Store) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	var rows []map[string]interface{}
	for result.Next(ctx) {
		record := result.Record()
		row := make(map[string]interface{}, len(record.Keys))
		for _, key := range record.Keys {
			value, _ := record.Get(key)
			row[key] = normalizeValue(value)
		}
		rows = append(rows, row)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query results: %w", err)
	}
	return rows, nil
}
