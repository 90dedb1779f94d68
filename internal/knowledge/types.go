package knowledge

import (
	"context"
	"errors"
)

// ============================================================================
// Graph Document Types
// ============================================================================

// Entity is a typed node in a family knowledge graph.
type Entity struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// Relationship is a typed edge between two entities. Its ID is derived as
// sourceId-type-targetId, so one relationship of a given type exists per
// entity pair.
type Relationship struct {
	ID         string                 `json:"id"`
	SourceID   string                 `json:"sourceId"`
	TargetID   string                 `json:"targetId"`
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Metadata   map[string]interface{} `json:"metadata"`
}

// LastQuery records the most recent natural language query against a graph.
type LastQuery struct {
	Query     string `json:"query"`
	Intent    string `json:"intent"`
	Timestamp string `json:"timestamp"`
}

// Stats summarizes graph contents. Counters are maintained incrementally.
type Stats struct {
	EntityCount           int            `json:"entityCount"`
	RelationshipCount     int            `json:"relationshipCount"`
	EntityTypeCount       map[string]int `json:"entityTypeCount"`
	RelationshipTypeCount map[string]int `json:"relationshipTypeCount"`
	LastUpdate            string         `json:"lastUpdate"`
	LastQuery             *LastQuery     `json:"lastQuery,omitempty"`
}

// Version records the ontology version a graph was created with.
type Version struct {
	Ontology string `json:"ontology"`
	Created  string `json:"created"`
}

// Graph is a complete per-family knowledge graph document.
type Graph struct {
	FamilyID      string             `json:"familyId"`
	Entities      map[string]*Entity `json:"entities"`
	Relationships []*Relationship    `json:"relationships"`
	CreatedAt     string             `json:"createdAt"`
	UpdatedAt     string             `json:"updatedAt"`
	Stats         Stats              `json:"stats"`
	Version       Version            `json:"version"`
}

// Entity returns the entity with the given ID, or nil.
func (g *Graph) Entity(id string) *Entity {
	return g.Entities[id]
}

// Relationship returns the relationship with the given ID, or nil.
func (g *Graph) Relationship(id string) *Relationship {
	for _, rel := range g.Relationships {
		if rel.ID == id {
			return rel
		}
	}
	return nil
}

// ============================================================================
// Source Family Records
// ============================================================================

// FamilyMember is a member entry in a source family record.
type FamilyMember struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Role             string                 `json:"role"`
	Age              float64                `json:"age,omitempty"`
	BirthDate        string                 `json:"birthDate,omitempty"`
	Gender           string                 `json:"gender,omitempty"`
	ProfilePicture   string                 `json:"profilePicture,omitempty"`
	Interests        []interface{}          `json:"interests,omitempty"`
	Preferences      map[string]interface{} `json:"preferences,omitempty"`
	JoinDate         string                 `json:"joinDate,omitempty"`
	Relationship     string                 `json:"relationship,omitempty"`
	PrimaryCaregiver bool                   `json:"primaryCaregiver,omitempty"`
}

// FamilyTask is a task entry in a source family record.
type FamilyTask struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Description   string  `json:"description,omitempty"`
	Completed     bool    `json:"completed"`
	DueDate       string  `json:"dueDate,omitempty"`
	Category      string  `json:"category,omitempty"`
	Priority      float64 `json:"priority,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	EstimatedTime float64 `json:"estimatedTime,omitempty"`
	AssignedTo    string  `json:"assignedTo,omitempty"`
	CreatedBy     string  `json:"createdBy,omitempty"`
	AssignedDate  string  `json:"assignedDate,omitempty"`
	CreatedAt     string  `json:"createdAt,omitempty"`
	Voluntary     bool    `json:"voluntary,omitempty"`
}

// EventAttendee is an attendee entry on a source event.
type EventAttendee struct {
	ID        string `json:"id"`
	Role      string `json:"role,omitempty"`
	Required  bool   `json:"required,omitempty"`
	Confirmed bool   `json:"confirmed,omitempty"`
}

// EventLocation is a location entry on a source event.
type EventLocation struct {
	ID          string                 `json:"id,omitempty"`
	Name        string                 `json:"name,omitempty"`
	Address     map[string]interface{} `json:"address,omitempty"`
	Coordinates map[string]interface{} `json:"coordinates,omitempty"`
	Type        string                 `json:"type,omitempty"`
}

// FamilyEvent is an event entry in a source family record.
type FamilyEvent struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description,omitempty"`
	StartDate   string                 `json:"startDate"`
	EndDate     string                 `json:"endDate,omitempty"`
	Location    *EventLocation         `json:"location,omitempty"`
	Type        string                 `json:"type,omitempty"`
	Status      string                 `json:"status,omitempty"`
	Calendar    string                 `json:"calendar,omitempty"`
	Recurrence  map[string]interface{} `json:"recurrence,omitempty"`
	Attendees   []EventAttendee        `json:"attendees,omitempty"`
}

// FamilyRecord is the source-of-truth family document that LoadFamilyData
// imports into the knowledge graph.
type FamilyRecord struct {
	FamilyID        string                 `json:"familyId"`
	FamilyName      string                 `json:"familyName"`
	CurrentWeek     float64                `json:"currentWeek,omitempty"`
	CompletedWeeks  []interface{}          `json:"completedWeeks,omitempty"`
	FormationDate   string                 `json:"formationDate,omitempty"`
	Address         map[string]interface{} `json:"address,omitempty"`
	Settings        map[string]interface{} `json:"settings,omitempty"`
	CulturalContext string                 `json:"culturalContext,omitempty"`
	FamilyMembers   []FamilyMember         `json:"familyMembers,omitempty"`
	Tasks           []FamilyTask           `json:"tasks,omitempty"`
	Events          []FamilyEvent          `json:"events,omitempty"`
}

// ============================================================================
// Document Store
// ============================================================================

// ErrNotFound is returned by Store implementations when no document exists
// for the requested family.
var ErrNotFound = errors.New("document not found")

// Store persists knowledge graph documents and source family records.
type Store interface {
	// GetGraph returns the graph document for a family, or ErrNotFound.
	GetGraph(ctx context.Context, familyID string) (*Graph, error)
	// SaveGraph writes the complete graph document for a family.
	SaveGraph(ctx context.Context, graph *Graph) error
	// ListFamilyIDs returns the IDs of all families with a graph document.
	ListFamilyIDs(ctx context.Context) ([]string, error)
	// GetFamilyRecord returns the source family record, or ErrNotFound.
	GetFamilyRecord(ctx context.Context, familyID string) (*FamilyRecord, error)
}
