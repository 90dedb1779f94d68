package knowledge

import (
	"context"
	"regexp"
	"strings"

	"allie-graph/internal/ontology"
)

// ============================================================================
// Query Intent Classification
// ============================================================================

// Intent labels for natural language queries.
const (
	IntentEntitySearch      = "entity_search"
	IntentRelationshipQuery = "relationship_query"
	IntentPathQuery         = "path_query"
	IntentInsightQuery      = "insight_query"
	IntentUnknown           = "unknown"
)

// QueryIntent is the classified intent of a natural language query plus any
// entity references extracted from it.
type QueryIntent struct {
	Intent           string `json:"intent"`
	EntityType       string `json:"entityType,omitempty"`
	EntityName       string `json:"entityName,omitempty"`
	EntityName1      string `json:"entityName1,omitempty"`
	EntityName2      string `json:"entityName2,omitempty"`
	RelationshipType string `json:"relationshipType,omitempty"`
	MentionedType    string `json:"mentionedType,omitempty"`
	OriginalQuery    string `json:"originalQuery"`
}

// IntentClassifier determines what a natural language query is asking for.
type IntentClassifier interface {
	Classify(ctx context.Context, query string) (*QueryIntent, error)
}

var (
	entitySearchPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:find|show|get)\s+(?:all|the)\s+(\w+)`),
		regexp.MustCompile(`(?i)(?:what|which)\s+(\w+)\s+(?:do|does)\s+(.+)\s+(?:have|assigned)`),
		regexp.MustCompile(`(?i)(?:tell|show)\s+(?:me|us)\s+(?:about|all)\s+(?:.+)'s\s+(\w+)`),
		regexp.MustCompile(`(?i)(?:tell|show)\s+(?:me|us)\s+(?:about|all)\s+(\w+)`),
	}
	relationshipQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:how|what)\s+(?:is|are)\s+(.+)\s+(?:related|connected)\s+(?:to|with)\s+(.+)`),
		regexp.MustCompile(`(?i)(?:who|what)\s+(?:is|are)\s+(?:the|a)\s+(\w+)\s+(?:of|for)\s+(.+)`),
		regexp.MustCompile(`(?i)(?:find|show)\s+(?:the|all)\s+(\w+)\s+(?:between|connecting)\s+(.+)\s+(?:and|with)\s+(.+)`),
	}
	pathQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:is|are)\s+(.+)\s+(?:connected|related)\s+(?:to|with)\s+(.+)`),
		regexp.MustCompile(`(?i)(?:find|show)\s+(?:a|the|any)\s+(?:path|connection|link)\s+(?:between|from)\s+(.+)\s+(?:to|and)\s+(.+)`),
	}
	insightQueryPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:what|any|show)\s+(?:insights|patterns|analysis)`),
		regexp.MustCompile(`(?i)(?:what|anything)\s+(?:interesting|notable|important)`),
		regexp.MustCompile(`(?i)(?:analyze|understand)\s+(?:our|my|the)\s+(?:family|data|relationships)`),
	}
)

// RegexClassifier classifies queries with pattern matching alone. It is the
// default classifier and the fallback when an LLM classifier fails.
type RegexClassifier struct{}

// NewRegexClassifier returns a pattern-based intent classifier.
func NewRegexClassifier() *RegexClassifier {
	return &RegexClassifier{}
}

// Classify matches the query against intent patterns in priority order and
// extracts entity references from the capture groups.
func (c *RegexClassifier) Classify(_ context.Context, query string) (*QueryIntent, error) {
	normalized := strings.ToLower(query)
	intent := &QueryIntent{Intent: IntentUnknown, OriginalQuery: query}

	if match := firstMatch(entitySearchPatterns, normalized); match != nil {
		intent.Intent = IntentEntitySearch
		intent.EntityType = group(match, 1)
		intent.EntityName = group(match, 2)
	} else if match := firstMatch(relationshipQueryPatterns, normalized); match != nil {
		intent.Intent = IntentRelationshipQuery
		intent.EntityName1 = group(match, 1)
		intent.EntityName2 = group(match, 2)
		intent.RelationshipType = group(match, 3)
	} else if match := firstMatch(pathQueryPatterns, normalized); match != nil {
		intent.Intent = IntentPathQuery
		intent.EntityName1 = group(match, 1)
		intent.EntityName2 = group(match, 2)
	} else if firstMatch(insightQueryPatterns, normalized) != nil {
		intent.Intent = IntentInsightQuery
	}

	for _, typeName := range ontology.EntityTypeNames() {
		if strings.Contains(normalized, typeName) {
			intent.MentionedType = typeName
			break
		}
	}
	return intent, nil
}

func firstMatch(patterns []*regexp.Regexp, query string) []string {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			return match
		}
	}
	return nil
}

func group(match []string, index int) string {
	if index < len(match) {
		return strings.TrimSpace(match[index])
	}
	return ""
}
