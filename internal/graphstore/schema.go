package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"allie-graph/internal/ontology"
)

// ============================================================================
// Schema Initialization
// ============================================================================

// InitializeSchema creates uniqueness constraints and indexes for every
// ontology type. Safe to run repeatedly.
func (s *Store) InitializeSchema(ctx context.Context) error {
	if err := s.ensureConnected(ctx); err != nil {
		return err
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, entityType := range ontology.EntityTypes {
		label := entityType.Name

		query := fmt.Sprintf(`
			CREATE CONSTRAINT unique_%s_id IF NOT EXISTS
			FOR (n:%s)
			REQUIRE n.id IS UNIQUE
		`, label, label)
		if _, err := session.Run(ctx, query, nil); err != nil {
			return fmt.Errorf("failed to create constraint for %s: %w", label, err)
		}

		// Index commonly searched properties where the schema defines them
		for _, prop := range []string{"name", "title"} {
			if _, ok := entityType.Properties[prop]; !ok {
				continue
			}
			query := fmt.Sprintf(`
				CREATE INDEX %s_%s_idx IF NOT EXISTS
				FOR (n:%s)
				ON (n.%s)
			`, label, prop, label, prop)
			if _, err := session.Run(ctx, query, nil); err != nil {
				return fmt.Errorf("failed to create %s index for %s: %w", prop, label, err)
			}
		}
	}

	// Fulltext index over searchable text properties across all entity
	// labels. The fuzzy resolution service depends on it.
	labels := make([]string, 0, len(ontology.EntityTypes))
	for _, entityType := range ontology.EntityTypes {
		labels = append(labels, entityType.Name)
	}
	fulltext := fmt.Sprintf(`
		CREATE FULLTEXT INDEX entityFulltext IF NOT EXISTS
		FOR (n:%s)
		ON EACH [n.name, n.title, n.description]
	`, strings.Join(labels, "|"))
	if _, err := session.Run(ctx, fulltext, nil); err != nil {
		return fmt.Errorf("failed to create fulltext index: %w", err)
	}

	// Relationship fulltext indexes are best effort; older server versions
	// reject them and an existing index is not an error.
	for _, relType := range ontology.RelationshipTypes {
		upper := strings.ToUpper(relType.Name)
		query := fmt.Sprintf(`
			CREATE FULLTEXT INDEX %s_fulltext IF NOT EXISTS
			FOR ()-[r:%s]-()
			ON EACH [r.context, r.role]
		`, relType.Name, upper)
		if _, err := session.Run(ctx, query, nil); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				continue
			}
			s.logger.Warn("Failed to create relationship fulltext index",
				zap.String("type", relType.Name),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Neo4j schema initialized")
	return nil
}
