package knowledge

import (
	"context"

	"allie-graph/internal/ontology"
	apperrors "allie-graph/pkg/errors"
)

// ============================================================================
// Traversal Operations
// ============================================================================

// PathStep is one entity along a path, with the relationship leading to the
// next step. The final step has a nil relationship.
type PathStep struct {
	Entity       *Entity       `json:"entity"`
	Relationship *Relationship `json:"relationship"`
}

// FindPaths searches breadth-first for paths between two entities up to
// maxDepth hops, ignoring relationship direction. Each entity is visited at
// most once, so overlapping paths are not enumerated twice.
func (s *Service) FindPaths(ctx context.Context, familyID, startID, endID string, maxDepth int) ([][]PathStep, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}
	if maxDepth <= 0 {
		maxDepth = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if graph.Entities[startID] == nil || graph.Entities[endID] == nil {
		return nil, apperrors.NewEndpointNotFound(startID, endID)
	}

	type frame struct {
		entityID string
		path     []PathStep
		depth    int
	}

	visited := make(map[string]bool)
	queue := []frame{{entityID: startID, path: nil, depth: 0}}
	var paths [][]PathStep

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current.entityID] || current.depth > maxDepth {
			continue
		}
		visited[current.entityID] = true

		if current.entityID == endID {
			complete := append(append([]PathStep{}, current.path...), PathStep{
				Entity: graph.Entities[current.entityID],
			})
			paths = append(paths, complete)
			continue
		}

		for _, conn := range connectedLocked(graph, current.entityID, "", "both") {
			if visited[conn.Entity.ID] {
				continue
			}
			next := append(append([]PathStep{}, current.path...), PathStep{
				Entity:       graph.Entities[current.entityID],
				Relationship: conn.Relationship,
			})
			queue = append(queue, frame{
				entityID: conn.Entity.ID,
				path:     next,
				depth:    current.depth + 1,
			})
		}
	}

	return paths, nil
}

// TraversalOptions bounds and filters a graph traversal.
type TraversalOptions struct {
	MaxDepth           int      `json:"maxDepth,omitempty"`
	RelationshipTypes  []string `json:"relationshipTypes,omitempty"`
	EntityTypes        []string `json:"entityTypes,omitempty"`
	ExcludeEntityTypes []string `json:"excludeEntityTypes,omitempty"`
	Direction          string   `json:"direction,omitempty"`
}

// TraversalResult is the subgraph reached by a traversal.
type TraversalResult struct {
	Entities      map[string]*Entity `json:"entities"`
	Relationships []*Relationship    `json:"relationships"`
	Stats         struct {
		EntityCount       int `json:"entityCount"`
		RelationshipCount int `json:"relationshipCount"`
		Depth             int `json:"depth"`
	} `json:"stats"`
}

// ExecuteTraversal walks the graph breadth-first from a starting entity,
// collecting the subgraph that passes the type filters.
func (s *Service) ExecuteTraversal(ctx context.Context, familyID, startID string, opts TraversalOptions) (*TraversalResult, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	direction := opts.Direction
	if direction == "" {
		direction = "both"
	}

	relTypes := make(map[string]bool, len(opts.RelationshipTypes))
	for _, relType := range opts.RelationshipTypes {
		typeDef := ontology.RelationshipTypeByName(relType)
		if typeDef == nil {
			return nil, apperrors.NewInvalidRelationshipType(relType)
		}
		relTypes[typeDef.Name] = true
	}
	includeTypes := make(map[string]bool, len(opts.EntityTypes))
	for _, entityType := range opts.EntityTypes {
		typeDef := ontology.EntityTypeByName(entityType)
		if typeDef == nil {
			return nil, apperrors.NewInvalidEntityType(entityType)
		}
		includeTypes[typeDef.Name] = true
	}
	excludeTypes := make(map[string]bool, len(opts.ExcludeEntityTypes))
	for _, entityType := range opts.ExcludeEntityTypes {
		typeDef := ontology.EntityTypeByName(entityType)
		if typeDef == nil {
			return nil, apperrors.NewInvalidEntityType(entityType)
		}
		excludeTypes[typeDef.Name] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	start := graph.Entities[startID]
	if start == nil {
		return nil, apperrors.NewEntityNotFound(startID)
	}

	result := &TraversalResult{
		Entities:      map[string]*Entity{startID: start},
		Relationships: []*Relationship{},
	}
	seenRels := make(map[string]bool)
	visited := make(map[string]bool)

	type frame struct {
		entityID string
		depth    int
	}
	queue := []frame{{entityID: startID, depth: 0}}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if visited[current.entityID] || current.depth >= maxDepth {
			continue
		}
		visited[current.entityID] = true

		for _, conn := range connectedLocked(graph, current.entityID, "", direction) {
			if len(relTypes) > 0 && !relTypes[conn.Relationship.Type] {
				continue
			}
			if len(includeTypes) > 0 && !includeTypes[conn.Entity.Type] {
				continue
			}
			if excludeTypes[conn.Entity.Type] {
				continue
			}

			if _, ok := result.Entities[conn.Entity.ID]; !ok {
				result.Entities[conn.Entity.ID] = conn.Entity
			}
			if !seenRels[conn.Relationship.ID] {
				seenRels[conn.Relationship.ID] = true
				result.Relationships = append(result.Relationships, conn.Relationship)
			}
			if !visited[conn.Entity.ID] {
				queue = append(queue, frame{entityID: conn.Entity.ID, depth: current.depth + 1})
			}
		}
	}

	result.Stats.EntityCount = len(result.Entities)
	result.Stats.RelationshipCount = len(result.Relationships)
	result.Stats.Depth = maxDepth
	return result, nil
}

// ============================================================================
// D3 Export
// ============================================================================

// D3Node is a visualization node.
type D3Node struct {
	ID         string                 `json:"id"`
	Label      string                 `json:"label"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

// D3Link is a visualization edge.
type D3Link struct {
	ID         string                 `json:"id"`
	Source     string                 `json:"source"`
	Target     string                 `json:"target"`
	Type       string                 `json:"type"`
	Label      string                 `json:"label"`
	Properties map[string]interface{} `json:"properties"`
}

// D3Export is a graph in D3 force-layout format.
type D3Export struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// ExportD3 converts a graph document or traversal subgraph to D3 format.
// Links whose endpoints are missing from the entity set are dropped.
func ExportD3(entities map[string]*Entity, relationships []*Relationship) *D3Export {
	export := &D3Export{
		Nodes: make([]D3Node, 0, len(entities)),
		Links: make([]D3Link, 0, len(relationships)),
	}

	for _, entity := range entities {
		label := entity.ID
		if name, ok := entity.Properties["name"].(string); ok && name != "" {
			label = name
		} else if title, ok := entity.Properties["title"].(string); ok && title != "" {
			label = title
		}
		export.Nodes = append(export.Nodes, D3Node{
			ID:         entity.ID,
			Label:      label,
			Type:       entity.Type,
			Properties: entity.Properties,
		})
	}

	for _, rel := range relationships {
		if entities[rel.SourceID] == nil || entities[rel.TargetID] == nil {
			continue
		}
		export.Links = append(export.Links, D3Link{
			ID:         rel.ID,
			Source:     rel.SourceID,
			Target:     rel.TargetID,
			Type:       rel.Type,
			Label:      rel.Type,
			Properties: rel.Properties,
		})
	}
	return export
}

// ExportGraphD3 exports a family's full graph in D3 format.
func (s *Service) ExportGraphD3(ctx context.Context, familyID string) (*D3Export, error) {
	graph, err := s.InitializeGraph(ctx, familyID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return ExportD3(graph.Entities, graph.Relationships), nil
}
