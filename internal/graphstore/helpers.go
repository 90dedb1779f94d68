package graphstore

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"allie-graph/internal/ontology"
)

// ============================================================================
// Helper Functions
// ============================================================================

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validLabel checks that a label is a known ontology entity type before it is
// interpolated into cypher. Labels cannot be passed as query parameters.
func validLabel(label string) (string, error) {
	def := ontology.EntityTypeByName(label)
	if def == nil {
		return "", fmt.Errorf("unknown node label: %s", label)
	}
	return def.Name, nil
}

// validRelType checks that a relationship type is a known ontology type and
// returns its uppercase cypher form.
func validRelType(relType string) (string, error) {
	def := ontology.RelationshipTypeByName(relType)
	if def == nil {
		return "", fmt.Errorf("unknown relationship type: %s", relType)
	}
	return strings.ToUpper(def.Name), nil
}

func validPropertyKey(key string) error {
	if !identifierPattern.MatchString(key) {
		return fmt.Errorf("invalid property key: %s", key)
	}
	return nil
}

// prepareProperties converts property values into Neo4j-storable primitives.
// Times become RFC3339 strings, maps and slices become JSON strings, nil
// values are dropped.
func prepareProperties(properties map[string]interface{}) (map[string]interface{}, error) {
	prepared := make(map[string]interface{}, len(properties))
	for key, value := range properties {
		if value == nil {
			continue
		}
		switch v := value.(type) {
		case time.Time:
			prepared[key] = v.UTC().Format(time.RFC3339)
		case string, bool, int, int64, float64, float32:
			prepared[key] = v
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("failed to encode property %s: %w", key, err)
			}
			prepared[key] = string(encoded)
		}
	}
	return prepared, nil
}

// formatNode normalizes a Neo4j node into a Node.
func formatNode(node dbtype.Node) *Node {
	properties := make(map[string]interface{}, len(node.Props))
	for key, value := range node.Props {
		properties[key] = value
	}

	nodeType := ""
	if len(node.Labels) > 0 {
		nodeType = node.Labels[0]
	}

	id, _ := properties["id"].(string)
	return &Node{
		ID:         id,
		Type:       nodeType,
		Labels:     node.Labels,
		Properties: properties,
	}
}

// formatRelationship normalizes a Neo4j relationship and its endpoints.
func formatRelationship(rel dbtype.Relationship, source, target dbtype.Node) *Relationship {
	sourceID, _ := source.Props["id"].(string)
	targetID, _ := target.Props["id"].(string)

	properties := make(map[string]interface{}, len(rel.Props))
	for key, value := range rel.Props {
		properties[key] = value
	}

	return &Relationship{
		ID:         fmt.Sprintf("%s-%s-%s", sourceID, rel.Type, targetID),
		SourceID:   sourceID,
		TargetID:   targetID,
		Type:       rel.Type,
		Properties: properties,
	}
}

// formatPath normalizes a Neo4j path into ordered segments. Segments follow
// node order along the path regardless of relationship direction.
func formatPath(path dbtype.Path) Path {
	segments := make(Path, 0, len(path.Relationships))
	for i, rel := range path.Relationships {
		if i+1 >= len(path.Nodes) {
			break
		}
		properties := make(map[string]interface{}, len(rel.Props))
		for key, value := range rel.Props {
			properties[key] = value
		}
		segments = append(segments, PathSegment{
			Source:     formatNode(path.Nodes[i]),
			Type:       rel.Type,
			Properties: properties,
			Target:     formatNode(path.Nodes[i+1]),
		})
	}
	return segments
}

// normalizeValue converts driver values in query results into plain Go
// values: nodes, relationships and paths become their normalized forms.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case dbtype.Node:
		return formatNode(v)
	case dbtype.Relationship:
		properties := make(map[string]interface{}, len(v.Props))
		for key, val := range v.Props {
			properties[key] = val
		}
		return map[string]interface{}{
			"type":       v.Type,
			"properties": properties,
		}
	case dbtype.Path:
		return formatPath(v)
	case []interface{}:
		normalized := make([]interface{}, len(v))
		for i, item := range v {
			normalized[i] = normalizeValue(item)
		}
		return normalized
	default:
		return value
	}
}
