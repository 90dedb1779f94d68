package knowledge

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"allie-graph/internal/ontology"
	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Entity Operations
// ============================================================================

// AddEntity adds or updates an entity. An empty entityID generates one from
// the name or title. On update, existing properties and metadata not present
// in the new values are preserved.
func (s *Service) AddEntity(ctx context.Context, familyID, entityType string, properties map[string]interface{}, entityID string, metadata map[string]interface{}) (*Entity, error) {
	typeDef := ontology.EntityTypeByName(entityType)
	if typeDef == nil {
		return nil, apperrors.NewInvalidEntityType(entityType)
	}
	normalizedType := typeDef.Name

	if result := ontology.ValidateEntityProperties(normalizedType, properties); !result.Valid {
		return nil, apperrors.NewValidationFailed("entity "+normalizedType, result.Errors)
	}

	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	if entityID == "" {
		entityID = generateEntityID(normalizedType, properties)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := nowISO()
	existing := graph.Entities[entityID]

	entity := &Entity{
		ID:         entityID,
		Type:       normalizedType,
		Properties: make(map[string]interface{}, len(properties)+1),
		Metadata:   newMetadata(metadata),
	}

	if existing != nil {
		// Merge on update: keep everything the new values don't replace
		for key, value := range existing.Properties {
			entity.Properties[key] = value
		}
		entity.Metadata = make(map[string]interface{}, len(existing.Metadata)+len(metadata))
		for key, value := range existing.Metadata {
			entity.Metadata[key] = value
		}
		for key, value := range metadata {
			entity.Metadata[key] = value
		}
		entity.Metadata["updated_at"] = now
	}
	for key, value := range properties {
		entity.Properties[key] = value
	}
	entity.Properties["lastUpdate"] = now

	graph.Entities[entityID] = entity
	if existing == nil {
		graph.Stats.EntityCount++
		graph.Stats.EntityTypeCount[normalizedType]++
	}
	graph.Stats.LastUpdate = now

	if err := s.save(ctx, graph); err != nil {
		return nil, err
	}

	s.logger.Debug("Entity upserted",
		zap.String("family_id", familyID),
		zap.String("entity_id", entityID),
		zap.String("type", normalizedType),
		zap.Bool("update", existing != nil),
	)
	return entity, nil
}

// RemoveEntity removes an entity and every relationship touching it.
func (s *Service) RemoveEntity(ctx context.Context, familyID, entityID string) error {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entity := graph.Entities[entityID]
	if entity == nil {
		return apperrors.NewEntityNotFound(entityID)
	}

	delete(graph.Entities, entityID)

	kept := graph.Relationships[:0]
	for _, rel := range graph.Relationships {
		if rel.SourceID == entityID || rel.TargetID == entityID {
			graph.Stats.RelationshipCount--
			graph.Stats.RelationshipTypeCount[rel.Type]--
			continue
		}
		kept = append(kept, rel)
	}
	graph.Relationships = kept

	graph.Stats.EntityCount--
	graph.Stats.EntityTypeCount[entity.Type]--
	graph.Stats.LastUpdate = nowISO()

	if err := s.save(ctx, graph); err != nil {
		return err
	}

	s.logger.Debug("Entity removed",
		zap.String("family_id", familyID),
		zap.String("entity_id", entityID),
	)
	return nil
}

// QueryEntitiesByType returns entities of a type matching all equality
// filters.
func (s *Service) QueryEntitiesByType(ctx context.Context, familyID, entityType string, filters map[string]interface{}, limit int) ([]*Entity, error) {
	typeDef := ontology.EntityTypeByName(entityType)
	if typeDef == nil {
		return nil, apperrors.NewInvalidEntityType(entityType)
	}

	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entity
	for _, entity := range graph.Entities {
		if entity.Type != typeDef.Name {
			continue
		}
		if !matchesEquality(entity.Properties, filters) {
			continue
		}
		results = append(results, entity)
	}

	sortEntitiesByID(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// SortSpec orders query results by a dotted field such as
// "properties.dueDate" or "metadata.created_at".
type SortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// EntityQuery describes an advanced entity query. Property filter values may
// be operator maps using $gt, $lt, $gte, $lte, $ne, $in and $contains.
type EntityQuery struct {
	Type       string                 `json:"type,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Sort       *SortSpec              `json:"sort,omitempty"`
	Limit      int                    `json:"limit,omitempty"`
}

// QueryEntities runs an advanced entity query with operator filters,
// metadata filters, sorting and a limit.
func (s *Service) QueryEntities(ctx context.Context, familyID string, query EntityQuery) ([]*Entity, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	typeFilter := ""
	if query.Type != "" {
		typeDef := ontology.EntityTypeByName(query.Type)
		if typeDef == nil {
			return nil, apperrors.NewInvalidEntityType(query.Type)
		}
		typeFilter = typeDef.Name
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Entity
	for _, entity := range graph.Entities {
		if typeFilter != "" && entity.Type != typeFilter {
			continue
		}
		if !matchesOperators(entity.Properties, query.Properties) {
			continue
		}
		if !matchesEquality(entity.Metadata, query.Metadata) {
			continue
		}
		results = append(results, entity)
	}

	if query.Sort != nil {
		sortEntities(results, query.Sort)
	} else {
		sortEntitiesByID(results)
	}
	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}
	return results, nil
}

// matchesEquality checks plain equality filters against a value map.
func matchesEquality(values, filters map[string]interface{}) bool {
	for key, want := range filters {
		if !looseEqual(values[key], want) {
			return false
		}
	}
	return true
}

// matchesOperators checks filters that may carry operator maps.
func matchesOperators(values, filters map[string]interface{}) bool {
	for key, want := range filters {
		have := values[key]

		ops, isOps := want.(map[string]interface{})
		if !isOps {
			if !looseEqual(have, want) {
				return false
			}
			continue
		}

		matched := true
		for op, operand := range ops {
			switch op {
			case "$gt":
				matched = compareValues(have, operand) > 0
			case "$lt":
				matched = compareValues(have, operand) < 0
			case "$gte":
				matched = compareValues(have, operand) >= 0
			case "$lte":
				matched = compareValues(have, operand) <= 0
			case "$ne":
				matched = !looseEqual(have, operand)
			case "$in":
				matched = listContains(operand, have)
			case "$contains":
				matched = listContains(have, operand)
			default:
				// Unknown operators fall back to equality on the map itself
				matched = looseEqual(have, want)
			}
			if !matched {
				return false
			}
		}
	}
	return true
}

// looseEqual compares values with numeric coercion, so 3 matches 3.0.
func looseEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return a == b
}

// compareValues orders two values; numbers numerically, strings
// lexicographically. Incomparable values order as equal-breaking 0 would,
// but the caller's strict comparisons then fail, which drops the entity.
func compareValues(a, b interface{}) int {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}
	return 0
}

func listContains(list, value interface{}) bool {
	items, ok := list.([]interface{})
	if !ok {
		if strs, sok := list.([]string); sok {
			for _, item := range strs {
				if looseEqual(item, value) {
					return true
				}
			}
		}
		return false
	}
	for _, item := range items {
		if looseEqual(item, value) {
			return true
		}
	}
	return false
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func sortEntities(entities []*Entity, spec *SortSpec) {
	parts := strings.SplitN(spec.Field, ".", 2)
	if len(parts) != 2 {
		sortEntitiesByID(entities)
		return
	}
	section, propName := parts[0], parts[1]
	descending := spec.Direction == "desc"

	fieldOf := func(e *Entity) interface{} {
		switch section {
		case "properties":
			return e.Properties[propName]
		case "metadata":
			return e.Metadata[propName]
		default:
			return nil
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		cmp := compareValues(fieldOf(entities[i]), fieldOf(entities[j]))
		if descending {
			return cmp > 0
		}
		return cmp < 0
	})
}

// sortEntitiesByID gives map-sourced results a stable order.
func sortEntitiesByID(entities []*Entity) {
	sort.Slice(entities, func(i, j int) bool {
		return entities[i].ID < entities[j].ID
	})
}

// ============================================================================
// Text Entity Extraction
// ============================================================================

// EntityMention is a known entity recognized in free text.
type EntityMention struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Role string `json:"role,omitempty"`
}

// ExtractedEntities groups the entities and temporal expressions found in a
// piece of text.
type ExtractedEntities struct {
	People    []EntityMention `json:"people"`
	Locations []EntityMention `json:"locations"`
	Events    []EntityMention `json:"events"`
	Tasks     []EntityMention `json:"tasks"`
	Dates     []string        `json:"dates"`
	Times     []string        `json:"times"`
}

var (
	datePattern = regexp.MustCompile(`(?i)\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2}(st|nd|rd|th)?, \d{4}\b`)
	timePattern = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}\s*(am|pm)?\b`)
)

// ExtractEntitiesFromText scans text for mentions of known graph entities by
// name or title, plus simple date and time expressions.
func (s *Service) ExtractEntitiesFromText(ctx context.Context, familyID, text string) (*ExtractedEntities, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	extracted := &ExtractedEntities{
		People:    []EntityMention{},
		Locations: []EntityMention{},
		Events:    []EntityMention{},
		Tasks:     []EntityMention{},
		Dates:     []string{},
		Times:     []string{},
	}

	for _, entity := range graph.Entities {
		name, _ := entity.Properties["name"].(string)
		title, _ := entity.Properties["title"].(string)

		switch entity.Type {
		case "person":
			if name != "" && strings.Contains(text, name) {
				role, _ := entity.Properties["role"].(string)
				extracted.People = append(extracted.People, EntityMention{ID: entity.ID, Name: name, Type: "person", Role: role})
			}
		case "location":
			if name != "" && strings.Contains(text, name) {
				extracted.Locations = append(extracted.Locations, EntityMention{ID: entity.ID, Name: name, Type: "location"})
			}
		case "event":
			if title != "" && strings.Contains(text, title) {
				extracted.Events = append(extracted.Events, EntityMention{ID: entity.ID, Name: title, Type: "event"})
			}
		case "task":
			if title != "" && strings.Contains(text, title) {
				extracted.Tasks = append(extracted.Tasks, EntityMention{ID: entity.ID, Name: title, Type: "task"})
			}
		}
	}

	extracted.Dates = append(extracted.Dates, datePattern.FindAllString(text, -1)...)
	extracted.Times = append(extracted.Times, timePattern.FindAllString(text, -1)...)
	return extracted, nil
}
