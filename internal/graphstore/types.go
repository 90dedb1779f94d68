package graphstore

// ============================================================================
// Result Types
// ============================================================================

// Node is a graph node in normalized form. ID mirrors the id property.
type Node struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Labels     []string               `json:"labels"`
	Properties map[string]interface{} `json:"properties"`
}

// Relationship is a graph relationship in normalized form. The ID is derived
// as sourceId-TYPE-targetId and is stable across reads.
type Relationship struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"sourceId"`
	TargetID   string                 `json:"targetId"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
}

// ConnectedNode pairs a neighbor node with the relationship that reaches it.
// Direction is "outgoing" or "incoming" relative to the queried node.
type ConnectedNode struct {
	Relationship *Relationship `json:"relationship"`
	Direction    string        `json:"direction"`
	Node         *Node         `json:"node"`
}

// PathSegment is one hop along a path between two nodes.
type PathSegment struct {
	Source     *Node                  `json:"source"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Target     *Node                  `json:"target"`
}

// Path is an ordered list of segments from a start node to an end node.
type Path []PathSegment
