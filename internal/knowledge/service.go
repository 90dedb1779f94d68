package knowledge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	apperrors "allie-graph/pkg/errors"
	"allie-graph/pkg/logger"
)

// OntologyVersion is stamped into new graph documents.
const OntologyVersion = "1.0"

// Service maintains per-family knowledge graphs on top of a document store,
// with ontology validation on every mutation and an in-memory cache.
//
// Mutations are serialized per service instance; concurrent writers through
// separate instances race on the whole-document write and the last one wins.
type Service struct {
	store      Store
	classifier IntentClassifier
	logger     *zap.Logger

	mu    sync.RWMutex
	cache map[string]*Graph
	group singleflight.Group
}

// NewService creates a knowledge graph service. The classifier may be nil,
// in which case natural language queries use the regex classifier.
func NewService(store Store, classifier IntentClassifier) *Service {
	if classifier == nil {
		classifier = NewRegexClassifier()
	}
	return &Service{
		store:      store,
		classifier: classifier,
		logger:     logger.Get(),
		cache:      make(map[string]*Graph),
	}
}

// InitializeGraph loads a family's graph, creating a new one with the root
// family entity when none exists yet.
func (s *Service) InitializeGraph(ctx context.Context, familyID string) (*Graph, error) {
	s.mu.RLock()
	if graph, ok := s.cache[familyID]; ok {
		s.mu.RUnlock()
		return graph, nil
	}
	s.mu.RUnlock()

	// Deduplicate concurrent loads of the same family
	value, err, _ := s.group.Do(familyID, func() (interface{}, error) {
		return s.loadOrCreate(ctx, familyID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Graph), nil
}

func (s *Service) loadOrCreate(ctx context.Context, familyID string) (*Graph, error) {
	graph, err := s.store.GetGraph(ctx, familyID)
	if err == nil {
		s.mu.Lock()
		s.cache[familyID] = graph
		s.mu.Unlock()
		return graph, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewStoreOperationFailed("read", familyID, err)
	}

	now := nowISO()
	graph = &Graph{
		FamilyID:      familyID,
		Entities:      make(map[string]*Entity),
		Relationships: []*Relationship{},
		CreatedAt:     now,
		UpdatedAt:     now,
		Stats: Stats{
			EntityTypeCount:       make(map[string]int),
			RelationshipTypeCount: make(map[string]int),
			LastUpdate:            now,
		},
		Version: Version{
			Ontology: OntologyVersion,
			Created:  now,
		},
	}

	// The family itself is the root entity of every graph
	graph.Entities[familyID] = &Entity{
		ID:   familyID,
		Type: "family",
		Properties: map[string]interface{}{
			"name":      "Family Graph",
			"createdAt": now,
		},
		Metadata: newMetadata(nil),
	}
	graph.Stats.EntityCount = 1
	graph.Stats.EntityTypeCount["family"] = 1

	if err := s.store.SaveGraph(ctx, graph); err != nil {
		return nil, apperrors.NewStoreOperationFailed("write", familyID, err)
	}

	s.mu.Lock()
	s.cache[familyID] = graph
	s.mu.Unlock()

	s.logger.Info("Knowledge graph initialized", zap.String("family_id", familyID))
	return graph, nil
}

// GetGraph returns a family's graph, from cache unless forceRefresh is set.
func (s *Service) GetGraph(ctx context.Context, familyID string, forceRefresh bool) (*Graph, error) {
	if forceRefresh {
		s.mu.Lock()
		delete(s.cache, familyID)
		s.mu.Unlock()
	}
	return s.InitializeGraph(ctx, familyID)
}

// save persists the graph document and refreshes its update timestamp.
func (s *Service) save(ctx context.Context, graph *Graph) error {
	graph.UpdatedAt = nowISO()
	if err := s.store.SaveGraph(ctx, graph); err != nil {
		return apperrors.NewStoreOperationFailed("write", graph.FamilyID, err)
	}
	return nil
}

// nowISO returns the current UTC time as an RFC3339 string, the timestamp
// format used throughout graph documents.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// newMetadata builds entity/relationship metadata with defaults applied,
// overridden by any custom values.
func newMetadata(custom map[string]interface{}) map[string]interface{} {
	now := nowISO()
	metadata := map[string]interface{}{
		"created_at":    now,
		"updated_at":    now,
		"confidence":    1.0,
		"privacy_level": "family",
	}
	for key, value := range custom {
		metadata[key] = value
	}
	return metadata
}

// generateEntityID derives a readable unique ID from the entity's name or
// title plus a timestamp.
func generateEntityID(entityType string, properties map[string]interface{}) string {
	idBase := ""
	if name, ok := properties["name"].(string); ok && name != "" {
		idBase = strings.Join(strings.Fields(strings.ToLower(name)), "-")
	} else if title, ok := properties["title"].(string); ok && title != "" {
		idBase = strings.Join(strings.Fields(strings.ToLower(title)), "-")
	}
	return fmt.Sprintf("%s-%s-%d", entityType, idBase, time.Now().UnixMilli())
}
