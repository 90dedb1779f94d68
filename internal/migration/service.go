package migration

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"allie-graph/internal/graphstore"
	"allie-graph/internal/knowledge"
	"allie-graph/internal/ontology"
	apperrors "allie-graph/pkg/errors"
	"allie-graph/pkg/logger"
)

// ============================================================================
// Migration Service
// ============================================================================

// graphStore is the subset of the graph adapter the migration needs.
type graphStore interface {
	Initialize(ctx context.Context) error
	InitializeSchema(ctx context.Context) error
	CreateOrUpdateNode(ctx context.Context, label, id string, properties map[string]interface{}) (*graphstore.Node, error)
	CreateOrUpdateRelationship(ctx context.Context, sourceID, sourceLabel, targetID, targetLabel, relType string, properties map[string]interface{}) (*graphstore.Relationship, error)
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
}

// Migration statuses.
const (
	StatusCompleted           = "completed"
	StatusCompletedWithErrors = "completed_with_errors"
	StatusPassed              = "passed"
	StatusFailed              = "failed"
)

// ItemError records a single entity or relationship that could not be
// migrated. The batch continues past these.
type ItemError struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
}

// Result summarizes one family migration.
type Result struct {
	FamilyID          string      `json:"familyId"`
	EntityCount       int         `json:"entityCount"`
	RelationshipCount int         `json:"relationshipCount"`
	Errors            []ItemError `json:"errors"`
	Status            string      `json:"status"`
}

// FamilyOutcome pairs a family with its migration result or fatal error.
type FamilyOutcome struct {
	FamilyID string  `json:"familyId"`
	Result   *Result `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Summary aggregates a full-store migration.
type Summary struct {
	Families          []FamilyOutcome `json:"families"`
	EntityCount       int             `json:"entityCount"`
	RelationshipCount int             `json:"relationshipCount"`
	ErrorCount        int             `json:"errorCount"`
	Status            string          `json:"status"`
}

// Validation reports source/graph parity for one family.
type Validation struct {
	FamilyID             string   `json:"familyId"`
	SourceEntities       int      `json:"sourceEntities"`
	GraphEntities        int      `json:"graphEntities"`
	SourceRelationships  int      `json:"sourceRelationships"`
	MissingEntities      []string `json:"missingEntities"`
	MissingRelationships []string `json:"missingRelationships"`
	Status               string   `json:"status"`
}

// Service copies knowledge graph documents into the graph store. Migration is
// a plain upsert pass, so re-running it is safe.
type Service struct {
	store  knowledge.Store
	graph  graphStore
	logger *zap.Logger

	mu          sync.Mutex
	initialized bool
}

// NewService creates a migration service over a document store and a graph
// store.
func NewService(store knowledge.Store, graph graphStore) *Service {
	return &Service{
		store:  store,
		graph:  graph,
		logger: logger.Get().Named("migration"),
	}
}

// ensureInitialized connects the graph store and applies its schema once per
// service lifetime.
func (s *Service) ensureInitialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := s.graph.Initialize(ctx); err != nil {
		return err
	}
	if err := s.graph.InitializeSchema(ctx); err != nil {
		return err
	}
	s.initialized = true
	return nil
}

// MigrateFamily copies one family's entities and relationships into the
// graph store. Entities go first so relationship endpoints resolve. Items
// that fail are recorded and skipped rather than aborting the batch.
func (s *Service) MigrateFamily(ctx context.Context, familyID string) (*Result, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}

	graph, err := s.store.GetGraph(ctx, familyID)
	if err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}

	s.logger.Info("Starting family migration",
		zap.String("family_id", familyID),
		zap.Int("entities", len(graph.Entities)),
		zap.Int("relationships", len(graph.Relationships)),
	)

	result := &Result{FamilyID: familyID, Errors: []ItemError{}}
	s.migrateEntities(ctx, graph, result)
	s.migrateRelationships(ctx, graph, result)

	result.Status = StatusCompleted
	if len(result.Errors) > 0 {
		result.Status = StatusCompletedWithErrors
	}

	s.logger.Info("Family migration finished",
		zap.String("family_id", familyID),
		zap.String("status", result.Status),
		zap.Int("entities", result.EntityCount),
		zap.Int("relationships", result.RelationshipCount),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *Service) migrateEntities(ctx context.Context, graph *knowledge.Graph, result *Result) {
	ids := make([]string, 0, len(graph.Entities))
	for id := range graph.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		entity := graph.Entities[id]
		if ontology.EntityTypeByName(entity.Type) == nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    "entity",
				ID:      entity.ID,
				Type:    entity.Type,
				Message: fmt.Sprintf("unknown entity type: %s", entity.Type),
			})
			continue
		}

		properties := make(map[string]interface{}, len(entity.Properties)+2)
		for key, value := range entity.Properties {
			properties[key] = value
		}
		properties["familyId"] = graph.FamilyID
		properties["entityType"] = entity.Type

		if _, err := s.graph.CreateOrUpdateNode(ctx, entity.Type, entity.ID, properties); err != nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    "entity",
				ID:      entity.ID,
				Type:    entity.Type,
				Message: err.Error(),
			})
			continue
		}
		result.EntityCount++
	}
}

func (s *Service) migrateRelationships(ctx context.Context, graph *knowledge.Graph, result *Result) {
	for _, rel := range graph.Relationships {
		if ontology.RelationshipTypeByName(rel.Type) == nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    "relationship",
				ID:      rel.ID,
				Type:    rel.Type,
				Message: fmt.Sprintf("unknown relationship type: %s", rel.Type),
			})
			continue
		}

		source := graph.Entity(rel.SourceID)
		target := graph.Entity(rel.TargetID)
		if source == nil || target == nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    "relationship",
				ID:      rel.ID,
				Type:    rel.Type,
				Message: fmt.Sprintf("endpoint not found: %s -> %s", rel.SourceID, rel.TargetID),
			})
			continue
		}

		properties := make(map[string]interface{}, len(rel.Properties)+1)
		for key, value := range rel.Properties {
			properties[key] = value
		}
		properties["familyId"] = graph.FamilyID

		_, err := s.graph.CreateOrUpdateRelationship(ctx, rel.SourceID, source.Type, rel.TargetID, target.Type, rel.Type, properties)
		if err != nil {
			result.Errors = append(result.Errors, ItemError{
				Kind:    "relationship",
				ID:      rel.ID,
				Type:    rel.Type,
				Message: err.Error(),
			})
			continue
		}
		result.RelationshipCount++
	}
}

// MigrateAllFamilies migrates every family in the document store. A family
// whose migration fails outright is recorded and the rest continue.
func (s *Service) MigrateAllFamilies(ctx context.Context) (*Summary, error) {
	familyIDs, err := s.store.ListFamilyIDs(ctx)
	if err != nil {
		return nil, apperrors.NewMigrationFailed("all", err)
	}

	summary := &Summary{Families: []FamilyOutcome{}, Status: StatusCompleted}
	for _, familyID := range familyIDs {
		result, err := s.MigrateFamily(ctx, familyID)
		if err != nil {
			s.logger.Warn("Family migration failed",
				zap.String("family_id", familyID),
				zap.Error(err),
			)
			summary.Families = append(summary.Families, FamilyOutcome{FamilyID: familyID, Error: err.Error()})
			summary.ErrorCount++
			summary.Status = StatusCompletedWithErrors
			continue
		}

		summary.Families = append(summary.Families, FamilyOutcome{FamilyID: familyID, Result: result})
		summary.EntityCount += result.EntityCount
		summary.RelationshipCount += result.RelationshipCount
		summary.ErrorCount += len(result.Errors)
		if result.Status == StatusCompletedWithErrors {
			summary.Status = StatusCompletedWithErrors
		}
	}
	return summary, nil
}

// ValidateMigration compares a family's source graph against the graph store
// and reports anything missing. Relationship presence is checked with one
// bulk query per family rather than per-pair lookups.
func (s *Service) ValidateMigration(ctx context.Context, familyID string) (*Validation, error) {
	if err := s.ensureInitialized(ctx); err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}

	graph, err := s.store.GetGraph(ctx, familyID)
	if err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}

	validation := &Validation{
		FamilyID:             familyID,
		SourceEntities:       len(graph.Entities),
		SourceRelationships:  len(graph.Relationships),
		MissingEntities:      []string{},
		MissingRelationships: []string{},
	}

	nodeIDs, err := s.graphNodeIDs(ctx, familyID)
	if err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}
	validation.GraphEntities = len(nodeIDs)

	// Items the migration itself skips (unknown types, missing endpoints)
	// are skipped here too, so a completed_with_errors run still validates
	// the items that did migrate.
	entityIDs := make([]string, 0, len(graph.Entities))
	for id, entity := range graph.Entities {
		if ontology.EntityTypeByName(entity.Type) == nil {
			continue
		}
		entityIDs = append(entityIDs, id)
	}
	sort.Strings(entityIDs)
	for _, id := range entityIDs {
		if !nodeIDs[id] {
			validation.MissingEntities = append(validation.MissingEntities, id)
		}
	}

	edges, err := s.graphEdges(ctx, familyID)
	if err != nil {
		return nil, apperrors.NewMigrationFailed(familyID, err)
	}
	for _, rel := range graph.Relationships {
		if ontology.RelationshipTypeByName(rel.Type) == nil {
			continue
		}
		source := graph.Entity(rel.SourceID)
		target := graph.Entity(rel.TargetID)
		if source == nil || target == nil ||
			ontology.EntityTypeByName(source.Type) == nil ||
			ontology.EntityTypeByName(target.Type) == nil {
			continue
		}
		key := edgeKey(rel.SourceID, rel.Type, rel.TargetID)
		if !edges[key] {
			validation.MissingRelationships = append(validation.MissingRelationships, rel.ID)
		}
	}

	validation.Status = StatusPassed
	if len(validation.MissingEntities) > 0 || len(validation.MissingRelationships) > 0 {
		validation.Status = StatusFailed
	}

	s.logger.Info("Migration validated",
		zap.String("family_id", familyID),
		zap.String("status", validation.Status),
		zap.Int("missing_entities", len(validation.MissingEntities)),
		zap.Int("missing_relationships", len(validation.MissingRelationships)),
	)
	return validation, nil
}

func (s *Service) graphNodeIDs(ctx context.Context, familyID string) (map[string]bool, error) {
	records, err := s.graph.ExecuteQuery(ctx,
		"MATCH (n) WHERE n.familyId = $familyId RETURN n.id as id",
		map[string]interface{}{"familyId": familyID},
	)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]bool, len(records))
	for _, record := range records {
		if id, ok := record["id"].(string); ok {
			ids[id] = true
		}
	}
	return ids, nil
}

func (s *Service) graphEdges(ctx context.Context, familyID string) (map[string]bool, error) {
	records, err := s.graph.ExecuteQuery(ctx,
		`MATCH (a)-[r]->(b)
		 WHERE a.familyId = $familyId AND b.familyId = $familyId
		 RETURN a.id as sourceId, type(r) as type, b.id as targetId`,
		map[string]interface{}{"familyId": familyID},
	)
	if err != nil {
		return nil, err
	}
	edges := make(map[string]bool, len(records))
	for _, record := range records {
		sourceID, _ := record["sourceId"].(string)
		relType, _ := record["type"].(string)
		targetID, _ := record["targetId"].(string)
		if sourceID == "" || relType == "" || targetID == "" {
			continue
		}
		edges[edgeKey(sourceID, relType, targetID)] = true
	}
	return edges, nil
}

// edgeKey normalizes the relationship type because the graph store writes
// uppercase cypher types.
func edgeKey(sourceID, relType, targetID string) string {
	return sourceID + "|" + strings.ToUpper(relType) + "|" + targetID
}
