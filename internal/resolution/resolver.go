package resolution

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"allie-graph/internal/graphstore"
	"allie-graph/pkg/logger"
)

// ============================================================================
// Fuzzy Entity Resolution
// ============================================================================

// graphStore is the subset of the graph database used for resolution.
type graphStore interface {
	GetNodeByID(ctx context.Context, id string) (*graphstore.Node, error)
	FindNodesByProperties(ctx context.Context, label string, properties map[string]interface{}, limit int) ([]*graphstore.Node, error)
	ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) ([]map[string]interface{}, error)
	CreateOrUpdateNode(ctx context.Context, label, id string, properties map[string]interface{}) (*graphstore.Node, error)
	CreateOrUpdateRelationship(ctx context.Context, sourceID, sourceLabel, targetID, targetLabel, relType string, properties map[string]interface{}) (*graphstore.Relationship, error)
	GetConnectedNodes(ctx context.Context, id, direction, relType string, limit int) ([]*graphstore.ConnectedNode, error)
	DeleteNode(ctx context.Context, id string) (bool, error)
}

// Resolver finds and merges entities that refer to the same real-world thing
// despite differing representations.
type Resolver struct {
	store  graphStore
	config *Config
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil config uses the built-in defaults.
func NewResolver(store graphStore, config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{
		store:  store,
		config: config,
		logger: logger.Get(),
	}
}

// Match is a candidate entity with its similarity score.
type Match struct {
	Node              *graphstore.Node `json:"node"`
	MatchType         string           `json:"matchType"`
	MatchedProperties []string         `json:"matchedProperties"`
	Score             float64          `json:"score"`
}

// MatchOptions tunes a FindMatches call. Zero values fall back to defaults:
// 10 results, the type's configured minimum score, exact matches preferred.
type MatchOptions struct {
	MaxResults        int     `json:"maxResults,omitempty"`
	MinScore          float64 `json:"minScore,omitempty"`
	SkipExactShortcut bool    `json:"skipExactShortcut,omitempty"`
}

// FindMatches finds existing entities that may be the same as the given one.
// Exact ID and exact property hits short-circuit at score 1.0 unless the
// shortcut is disabled; otherwise fuzzy candidates are scored, deduplicated
// and ranked.
func (r *Resolver) FindMatches(ctx context.Context, familyID string, entity *graphstore.Node, opts MatchOptions) ([]*Match, error) {
	typeConfig := r.config.TypeFor(entity.Type)

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 10
	}
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = typeConfig.MinScore
	}

	exact, err := r.findExactMatches(ctx, familyID, entity, typeConfig)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 && !opts.SkipExactShortcut {
		if len(exact) > maxResults {
			exact = exact[:maxResults]
		}
		return exact, nil
	}

	fuzzy := r.findFuzzyMatches(ctx, familyID, entity, typeConfig)

	// Same candidate may arrive via several properties; keep the best score
	byID := make(map[string]*Match)
	var order []string
	for _, match := range append(exact, fuzzy...) {
		if match.Node.ID == entity.ID {
			continue
		}
		existing, ok := byID[match.Node.ID]
		if !ok {
			byID[match.Node.ID] = match
			order = append(order, match.Node.ID)
			continue
		}
		if match.Score > existing.Score {
			byID[match.Node.ID] = match
		}
	}

	var matches []*Match
	for _, id := range order {
		if match := byID[id]; match.Score >= minScore {
			matches = append(matches, match)
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches, nil
}

func (r *Resolver) findExactMatches(ctx context.Context, familyID string, entity *graphstore.Node, typeConfig TypeConfig) ([]*Match, error) {
	var matches []*Match

	// Temporary references carry ref_ IDs that are not in the graph yet
	if entity.ID != "" && !strings.HasPrefix(entity.ID, "ref_") {
		node, err := r.store.GetNodeByID(ctx, entity.ID)
		if err != nil {
			return nil, err
		}
		if node != nil {
			matches = append(matches, &Match{
				Node:              node,
				MatchType:         "exact_id",
				MatchedProperties: []string{"id"},
				Score:             1.0,
			})
		}
	}

	for _, prop := range typeConfig.ExactProperties {
		value, ok := entity.Properties[prop]
		if !ok || isEmptyValue(value) {
			continue
		}
		nodes, err := r.store.FindNodesByProperties(ctx, entity.Type, map[string]interface{}{
			prop:       value,
			"familyId": familyID,
		}, 0)
		if err != nil {
			return nil, err
		}
		for _, node := range nodes {
			matches = append(matches, &Match{
				Node:              node,
				MatchType:         "exact_" + prop,
				MatchedProperties: []string{prop},
				Score:             1.0,
			})
		}
	}
	return matches, nil
}

func (r *Resolver) findFuzzyMatches(ctx context.Context, familyID string, entity *graphstore.Node, typeConfig TypeConfig) []*Match {
	var matches []*Match
	for _, prop := range typeConfig.FuzzyProperties {
		value, ok := entity.Properties[prop].(string)
		if !ok || value == "" {
			continue
		}

		candidates := r.fuzzyPropertyCandidates(ctx, familyID, entity.Type, prop, value)
		for _, candidate := range candidates {
			matches = append(matches, &Match{
				Node:              candidate,
				MatchType:         "fuzzy",
				MatchedProperties: []string{prop},
				Score:             r.CalculateMatchScore(entity, candidate, typeConfig),
			})
		}
	}
	return matches
}

// fuzzyPropertyCandidates queries the fulltext index for approximate hits,
// falling back to a plain scan of the family's nodes when the index query
// fails.
func (r *Resolver) fuzzyPropertyCandidates(ctx context.Context, familyID, entityType, property, value string) []*graphstore.Node {
	query := `
		CALL db.index.fulltext.queryNodes("entityFulltext", $searchTerm)
		YIELD node
		WHERE node.familyId = $familyId AND ($label = '' OR $label IN labels(node))
		RETURN node
		LIMIT 20`

	records, err := r.store.ExecuteQuery(ctx, query, map[string]interface{}{
		"searchTerm": fmt.Sprintf("%s:%s~0.7", property, value),
		"familyId":   familyID,
		"label":      entityType,
	})
	if err == nil {
		var nodes []*graphstore.Node
		for _, record := range records {
			if node, ok := record["node"].(*graphstore.Node); ok {
				nodes = append(nodes, node)
			}
		}
		return nodes
	}

	r.logger.Warn("Fulltext search failed, scanning nodes instead",
		zap.String("property", property),
		zap.Error(err),
	)
	nodes, err := r.store.FindNodesByProperties(ctx, entityType, map[string]interface{}{"familyId": familyID}, 20)
	if err != nil {
		r.logger.Error("Fallback node scan failed", zap.Error(err))
		return nil
	}
	return nodes
}

// CalculateMatchScore scores two entities against each other. Fuzzy
// properties weigh double, exact properties triple and remaining shared
// properties single.
func (r *Resolver) CalculateMatchScore(source, candidate *graphstore.Node, typeConfig TypeConfig) float64 {
	total := 0.0
	weight := 0.0

	special := make(map[string]bool, len(typeConfig.FuzzyProperties)+len(typeConfig.ExactProperties))
	for _, prop := range typeConfig.FuzzyProperties {
		special[prop] = true
		sourceValue, candidateValue := source.Properties[prop], candidate.Properties[prop]
		if isEmptyValue(sourceValue) || isEmptyValue(candidateValue) {
			continue
		}
		total += ValueSimilarity(sourceValue, candidateValue) * 2
		weight += 2
	}
	for _, prop := range typeConfig.ExactProperties {
		special[prop] = true
		sourceValue, candidateValue := source.Properties[prop], candidate.Properties[prop]
		if isEmptyValue(sourceValue) || isEmptyValue(candidateValue) {
			continue
		}
		if sourceValue == candidateValue {
			total += 3
		}
		weight += 3
	}
	for prop, sourceValue := range source.Properties {
		if special[prop] {
			continue
		}
		candidateValue, ok := candidate.Properties[prop]
		if !ok || isEmptyValue(sourceValue) || isEmptyValue(candidateValue) {
			continue
		}
		total += ValueSimilarity(sourceValue, candidateValue)
		weight++
	}

	if weight == 0 {
		return 0
	}
	return total / weight
}

func isEmptyValue(value interface{}) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

// ============================================================================
// Duplicate Detection and Merging
// ============================================================================

// DuplicatePair is a pair of entities suspected to be the same.
type DuplicatePair struct {
	PrimaryID   string                 `json:"primaryId"`
	DuplicateID string                 `json:"duplicateId"`
	EntityType  string                 `json:"entityType"`
	Score       float64                `json:"score"`
	Properties1 map[string]interface{} `json:"properties1,omitempty"`
	Properties2 map[string]interface{} `json:"properties2,omitempty"`
}

// DuplicateOptions tunes duplicate detection. Zero values default to a 0.8
// minimum score and scanning the 5 most common entity types.
type DuplicateOptions struct {
	MinScore      float64 `json:"minScore,omitempty"`
	MaxResults    int     `json:"maxResults,omitempty"`
	CheckTopTypes int     `json:"checkTopTypes,omitempty"`
}

// FindPotentialDuplicates scans a family's entities for likely duplicate
// pairs. With an empty entityType the most common types are scanned.
func (r *Resolver) FindPotentialDuplicates(ctx context.Context, familyID, entityType string, opts DuplicateOptions) ([]DuplicatePair, error) {
	minScore := opts.MinScore
	if minScore <= 0 {
		minScore = 0.8
	}
	topTypes := opts.CheckTopTypes
	if topTypes <= 0 {
		topTypes = 5
	}

	if entityType != "" {
		pairs, err := r.findDuplicatesForType(ctx, familyID, entityType, minScore)
		if err != nil {
			return nil, err
		}
		return capPairs(pairs, opts.MaxResults), nil
	}

	records, err := r.store.ExecuteQuery(ctx, `
		MATCH (n)
		WHERE n.familyId = $familyId
		RETURN labels(n)[0] as entityType, count(*) as count
		ORDER BY count DESC
		LIMIT $limit`, map[string]interface{}{
		"familyId": familyID,
		"limit":    topTypes,
	})
	if err != nil {
		return nil, err
	}

	var pairs []DuplicatePair
	for _, record := range records {
		typeName, ok := record["entityType"].(string)
		if !ok || typeName == "" {
			continue
		}
		typePairs, err := r.findDuplicatesForType(ctx, familyID, typeName, minScore)
		if err != nil {
			r.logger.Warn("Duplicate scan failed for type",
				zap.String("entity_type", typeName),
				zap.Error(err),
			)
			continue
		}
		pairs = append(pairs, typePairs...)
	}
	return capPairs(pairs, opts.MaxResults), nil
}

func capPairs(pairs []DuplicatePair, max int) []DuplicatePair {
	if max <= 0 || len(pairs) <= max {
		return pairs
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	return pairs[:max]
}

func (r *Resolver) findDuplicatesForType(ctx context.Context, familyID, entityType string, minScore float64) ([]DuplicatePair, error) {
	typeConfig := r.config.TypeFor(entityType)
	if len(typeConfig.FuzzyProperties) == 0 {
		return nil, nil
	}

	nodes, err := r.store.FindNodesByProperties(ctx, entityType, map[string]interface{}{"familyId": familyID}, 1000)
	if err != nil {
		return nil, err
	}
	if len(nodes) <= 1 {
		return nil, nil
	}

	var pairs []DuplicatePair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			score := r.CalculateMatchScore(nodes[i], nodes[j], typeConfig)
			if score < minScore {
				continue
			}
			pairs = append(pairs, DuplicatePair{
				PrimaryID:   nodes[i].ID,
				DuplicateID: nodes[j].ID,
				EntityType:  entityType,
				Score:       score,
				Properties1: nodes[i].Properties,
				Properties2: nodes[j].Properties,
			})
		}
	}
	return pairs, nil
}

// DuplicateGroup collects the duplicates that should fold into one primary
// entity.
type DuplicateGroup struct {
	PrimaryID    string   `json:"primaryId"`
	EntityType   string   `json:"entityType"`
	DuplicateIDs []string `json:"duplicateIds"`
}

// GroupDuplicates folds pairwise duplicates into groups, chaining pairs that
// share an entity into the same group.
func GroupDuplicates(pairs []DuplicatePair) []DuplicateGroup {
	var groups []DuplicateGroup
	for _, pair := range pairs {
		var group *DuplicateGroup
		for i := range groups {
			if groups[i].PrimaryID == pair.PrimaryID || contains(groups[i].DuplicateIDs, pair.PrimaryID) {
				group = &groups[i]
				break
			}
		}
		if group == nil {
			groups = append(groups, DuplicateGroup{
				PrimaryID:  pair.PrimaryID,
				EntityType: pair.EntityType,
			})
			group = &groups[len(groups)-1]
		}
		if pair.DuplicateID != group.PrimaryID && !contains(group.DuplicateIDs, pair.DuplicateID) {
			group.DuplicateIDs = append(group.DuplicateIDs, pair.DuplicateID)
		}
	}
	return groups
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

// ResolvedPair records one merged duplicate.
type ResolvedPair struct {
	PrimaryID     string `json:"primaryId"`
	DuplicateID   string `json:"duplicateId"`
	Relationships int    `json:"relationships"`
}

// FailedPair records a duplicate that could not be merged.
type FailedPair struct {
	PrimaryID   string `json:"primaryId"`
	DuplicateID string `json:"duplicateId,omitempty"`
	Error       string `json:"error"`
}

// SkippedPair records a duplicate that no longer exists.
type SkippedPair struct {
	PrimaryID   string `json:"primaryId"`
	DuplicateID string `json:"duplicateId"`
	Reason      string `json:"reason"`
}

// Resolution summarizes a duplicate resolution run.
type Resolution struct {
	Resolved []ResolvedPair `json:"resolved"`
	Failed   []FailedPair   `json:"failed"`
	Skipped  []SkippedPair  `json:"skipped"`
}

// ResolveDuplicates merges each detected duplicate into its group's primary
// entity. Failures on one pair do not stop the rest.
func (r *Resolver) ResolveDuplicates(ctx context.Context, familyID string, pairs []DuplicatePair, deleteDuplicates bool) (*Resolution, error) {
	result := &Resolution{
		Resolved: []ResolvedPair{},
		Failed:   []FailedPair{},
		Skipped:  []SkippedPair{},
	}

	for _, group := range GroupDuplicates(pairs) {
		primary, err := r.store.GetNodeByID(ctx, group.PrimaryID)
		if err != nil || primary == nil {
			message := "primary entity not found"
			if err != nil {
				message = err.Error()
			}
			result.Failed = append(result.Failed, FailedPair{PrimaryID: group.PrimaryID, Error: message})
			continue
		}

		for _, duplicateID := range group.DuplicateIDs {
			duplicate, err := r.store.GetNodeByID(ctx, duplicateID)
			if err != nil {
				result.Failed = append(result.Failed, FailedPair{PrimaryID: group.PrimaryID, DuplicateID: duplicateID, Error: err.Error()})
				continue
			}
			if duplicate == nil {
				result.Skipped = append(result.Skipped, SkippedPair{PrimaryID: group.PrimaryID, DuplicateID: duplicateID, Reason: "duplicate entity not found"})
				continue
			}

			merged, err := r.MergeEntities(ctx, primary, duplicate, deleteDuplicates)
			if err != nil {
				result.Failed = append(result.Failed, FailedPair{PrimaryID: group.PrimaryID, DuplicateID: duplicateID, Error: err.Error()})
				continue
			}
			result.Resolved = append(result.Resolved, ResolvedPair{
				PrimaryID:     group.PrimaryID,
				DuplicateID:   duplicateID,
				Relationships: merged.RelationshipCount,
			})
		}
	}

	r.logger.Info("Duplicate resolution finished",
		zap.String("family_id", familyID),
		zap.Int("resolved", len(result.Resolved)),
		zap.Int("failed", len(result.Failed)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// MergeResult summarizes one entity merge.
type MergeResult struct {
	PrimaryID         string `json:"primaryId"`
	DuplicateID       string `json:"duplicateId"`
	PropertiesUpdated bool   `json:"propertiesUpdated"`
	RelationshipCount int    `json:"relationshipCount"`
	Deleted           bool   `json:"deleted"`
}

// MergeEntities folds a duplicate into the primary entity: properties the
// primary lacks are copied over, relationships are redirected, and the
// duplicate is finally deleted. Relationship redirection is best effort.
func (r *Resolver) MergeEntities(ctx context.Context, primary, duplicate *graphstore.Node, deleteDuplicate bool) (*MergeResult, error) {
	result := &MergeResult{
		PrimaryID:   primary.ID,
		DuplicateID: duplicate.ID,
	}

	merged := make(map[string]interface{}, len(primary.Properties))
	for key, value := range primary.Properties {
		merged[key] = value
	}
	for key, value := range duplicate.Properties {
		if key == "id" || key == "metadata" || key == "familyId" {
			continue
		}
		if isEmptyValue(merged[key]) {
			merged[key] = value
			result.PropertiesUpdated = true
		}
	}

	if result.PropertiesUpdated {
		if _, err := r.store.CreateOrUpdateNode(ctx, primary.Type, primary.ID, merged); err != nil {
			return nil, err
		}
	}

	connected, err := r.store.GetConnectedNodes(ctx, duplicate.ID, "both", "", 0)
	if err != nil {
		return nil, err
	}
	for _, conn := range connected {
		if conn.Node.ID == primary.ID {
			continue
		}

		var redirectErr error
		if conn.Direction == "outgoing" {
			_, redirectErr = r.store.CreateOrUpdateRelationship(ctx,
				primary.ID, primary.Type,
				conn.Node.ID, conn.Node.Type,
				conn.Relationship.Type, conn.Relationship.Properties)
		} else {
			_, redirectErr = r.store.CreateOrUpdateRelationship(ctx,
				conn.Node.ID, conn.Node.Type,
				primary.ID, primary.Type,
				conn.Relationship.Type, conn.Relationship.Properties)
		}
		if redirectErr != nil {
			r.logger.Warn("Failed to redirect relationship during merge",
				zap.String("duplicate_id", duplicate.ID),
				zap.String("relationship_type", conn.Relationship.Type),
				zap.Error(redirectErr),
			)
			continue
		}
		result.RelationshipCount++
	}

	if deleteDuplicate {
		deleted, err := r.store.DeleteNode(ctx, duplicate.ID)
		if err != nil {
			return nil, err
		}
		result.Deleted = deleted
	}

	r.logger.Debug("Entities merged",
		zap.String("primary_id", primary.ID),
		zap.String("duplicate_id", duplicate.ID),
		zap.Int("relationships", result.RelationshipCount),
		zap.Bool("deleted", result.Deleted),
	)
	return result, nil
}
