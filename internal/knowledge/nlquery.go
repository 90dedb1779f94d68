package knowledge

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"allie-graph/internal/ontology"
)

// ============================================================================
// Natural Language Queries
// ============================================================================

// QueryResult is the answer to a natural language query.
type QueryResult struct {
	Intent  string      `json:"intent"`
	Query   string      `json:"query"`
	Results interface{} `json:"results"`
	Message string      `json:"message,omitempty"`
}

const unknownQueryMessage = "I couldn't understand your query. Try asking about specific entities, relationships, or insights in the family knowledge graph."

// ExecuteNaturalLanguageQuery classifies a query's intent, records it in the
// graph's stats, and answers it from the graph.
func (s *Service) ExecuteNaturalLanguageQuery(ctx context.Context, familyID, query string) (*QueryResult, error) {
	intent, err := s.classifier.Classify(ctx, query)
	if err != nil {
		return nil, err
	}

	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	graph.Stats.LastQuery = &LastQuery{
		Query:     query,
		Intent:    intent.Intent,
		Timestamp: nowISO(),
	}
	err = s.save(ctx, graph)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Natural language query",
		zap.String("family_id", familyID),
		zap.String("intent", intent.Intent),
	)

	switch intent.Intent {
	case IntentEntitySearch:
		return s.handleEntitySearch(ctx, familyID, query, intent)
	case IntentRelationshipQuery:
		return s.handleRelationshipQuery(ctx, familyID, query, intent)
	case IntentPathQuery:
		return s.handlePathQuery(ctx, familyID, query, intent)
	case IntentInsightQuery:
		return s.handleInsightQuery(ctx, familyID, query, intent)
	default:
		return &QueryResult{
			Intent:  intent.Intent,
			Query:   query,
			Results: []interface{}{},
			Message: unknownQueryMessage,
		}, nil
	}
}

// handleEntitySearch answers "find all tasks" style queries by resolving the
// mentioned word to an ontology type and listing entities of that type.
func (s *Service) handleEntitySearch(ctx context.Context, familyID, query string, intent *QueryIntent) (*QueryResult, error) {
	typeName := resolveEntityTypeName(intent.EntityType)
	if typeName == "" {
		typeName = intent.MentionedType
	}
	if typeName == "" {
		return &QueryResult{
			Intent:  intent.Intent,
			Query:   query,
			Results: []*Entity{},
			Message: "I couldn't tell what kind of entity you're looking for.",
		}, nil
	}

	entities, err := s.QueryEntitiesByType(ctx, familyID, typeName, nil, 0)
	if err != nil {
		return nil, err
	}

	// A mentioned name narrows results to matching entities
	if intent.EntityName != "" {
		needle := strings.ToLower(intent.EntityName)
		var filtered []*Entity
		for _, entity := range entities {
			if strings.Contains(strings.ToLower(entityLabel(entity)), needle) {
				filtered = append(filtered, entity)
			}
		}
		if len(filtered) > 0 {
			entities = filtered
		}
	}

	result := &QueryResult{Intent: intent.Intent, Query: query, Results: entities}
	if len(entities) == 0 {
		result.Message = "No " + typeName + " entities found in the knowledge graph."
	}
	return result, nil
}

// handleRelationshipQuery answers questions about how two entities relate, or
// lists relationships of a named type.
func (s *Service) handleRelationshipQuery(ctx context.Context, familyID, query string, intent *QueryIntent) (*QueryResult, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	first := s.findEntityByName(graph, intent.EntityName1)
	second := s.findEntityByName(graph, intent.EntityName2)

	if first != nil && second != nil {
		connected, err := s.FindConnectedEntities(ctx, familyID, first.ID, "", "both")
		if err != nil {
			return nil, err
		}
		var between []*ConnectedEntity
		for _, conn := range connected {
			if conn.Entity.ID == second.ID {
				between = append(between, conn)
			}
		}
		result := &QueryResult{Intent: intent.Intent, Query: query, Results: between}
		if len(between) == 0 {
			result.Message = entityLabel(first) + " and " + entityLabel(second) + " have no direct relationship."
		}
		return result, nil
	}

	if typeDef := ontology.RelationshipTypeByName(intent.RelationshipType); typeDef != nil {
		rels, err := s.FindRelationshipsByType(ctx, familyID, typeDef.Name)
		if err != nil {
			return nil, err
		}
		return &QueryResult{Intent: intent.Intent, Query: query, Results: rels}, nil
	}

	if first != nil {
		connected, err := s.FindConnectedEntities(ctx, familyID, first.ID, "", "both")
		if err != nil {
			return nil, err
		}
		return &QueryResult{Intent: intent.Intent, Query: query, Results: connected}, nil
	}

	return &QueryResult{
		Intent:  intent.Intent,
		Query:   query,
		Results: []*ConnectedEntity{},
		Message: "I couldn't find the entities mentioned in your question.",
	}, nil
}

// handlePathQuery answers "is X connected to Y" by searching for paths.
func (s *Service) handlePathQuery(ctx context.Context, familyID, query string, intent *QueryIntent) (*QueryResult, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	first := s.findEntityByName(graph, intent.EntityName1)
	second := s.findEntityByName(graph, intent.EntityName2)
	if first == nil || second == nil {
		return &QueryResult{
			Intent:  intent.Intent,
			Query:   query,
			Results: [][]PathStep{},
			Message: "I couldn't find the entities mentioned in your question.",
		}, nil
	}

	paths, err := s.FindPaths(ctx, familyID, first.ID, second.ID, 3)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{Intent: intent.Intent, Query: query, Results: paths}
	if len(paths) == 0 {
		result.Message = "No connection found between " + entityLabel(first) + " and " + entityLabel(second) + " within 3 hops."
	}
	return result, nil
}

// handleInsightQuery returns stored insights, generating fresh ones when the
// graph has none yet.
func (s *Service) handleInsightQuery(ctx context.Context, familyID, query string, intent *QueryIntent) (*QueryResult, error) {
	stored, err := s.QueryEntitiesByType(ctx, familyID, "insight", nil, 0)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return &QueryResult{Intent: intent.Intent, Query: query, Results: stored}, nil
	}

	generated, err := s.GenerateInsights(ctx, familyID)
	if err != nil {
		return nil, err
	}
	result := &QueryResult{Intent: intent.Intent, Query: query, Results: generated}
	if len(generated) == 0 {
		result.Message = "No notable patterns found in the family data yet."
	}
	return result, nil
}

// resolveEntityTypeName maps a word from a query to an ontology entity type
// name, tolerating plurals.
func resolveEntityTypeName(word string) string {
	if word == "" {
		return ""
	}
	if typeDef := ontology.EntityTypeByName(word); typeDef != nil {
		return typeDef.Name
	}
	if singular := strings.TrimSuffix(word, "s"); singular != word {
		if typeDef := ontology.EntityTypeByName(singular); typeDef != nil {
			return typeDef.Name
		}
	}
	return ""
}

// findEntityByName finds an entity whose name or title matches, preferring
// exact matches over substring matches.
func (s *Service) findEntityByName(graph *Graph, name string) *Entity {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var partial *Entity
	for _, entity := range graph.Entities {
		label := strings.ToLower(entityLabel(entity))
		if label == needle {
			return entity
		}
		if partial == nil && label != "" && (strings.Contains(label, needle) || strings.Contains(needle, label)) {
			partial = entity
		}
	}
	return partial
}

// entityLabel is the display name of an entity.
func entityLabel(entity *Entity) string {
	if name, ok := entity.Properties["name"].(string); ok && name != "" {
		return name
	}
	if title, ok := entity.Properties["title"].(string); ok && title != "" {
		return title
	}
	return entity.ID
}
