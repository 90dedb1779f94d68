package ontology

import "strings"

// ============================================================================
// Schema Types
// ============================================================================

// PropertyType is the declared type of an entity or relationship property.
type PropertyType string

const (
	TypeString  PropertyType = "string"
	TypeNumber  PropertyType = "number"
	TypeBoolean PropertyType = "boolean"
	TypeDate    PropertyType = "date"
	TypeArray   PropertyType = "array"
	TypeObject  PropertyType = "object"
	TypeAny     PropertyType = "any"
)

// PropertyDef describes a single property in an entity or relationship schema.
type PropertyDef struct {
	Type     PropertyType
	Required bool
	Enum     []string
	Min      *float64
	Max      *float64
}

// EntityType describes an entity type and its property schema.
type EntityType struct {
	Name       string
	Properties map[string]PropertyDef
}

// RelationshipType describes a relationship type, its allowed endpoint entity
// types (uppercase catalog keys) and its property schema.
type RelationshipType struct {
	Name       string
	Source     []string
	Target     []string
	Properties map[string]PropertyDef
}

// Metadata defaults applied when an entity or relationship is created without
// explicit metadata values.
const (
	DefaultConfidence   = 1.0
	DefaultPrivacyLevel = "family"
)

// PrivacyLevels are the allowed values for the privacy_level metadata field.
var PrivacyLevels = []string{"private", "family", "shared", "public"}

// EntityTypeByName looks up an entity type by catalog key or lowercase name,
// case-insensitively. Returns nil when the type is unknown.
func EntityTypeByName(typeName string) *EntityType {
	if def, ok := EntityTypes[strings.ToUpper(typeName)]; ok {
		return def
	}
	for _, def := range EntityTypes {
		if strings.EqualFold(def.Name, typeName) {
			return def
		}
	}
	return nil
}

// RelationshipTypeByName looks up a relationship type by catalog key or
// lowercase name, case-insensitively. Returns nil when the type is unknown.
func RelationshipTypeByName(typeName string) *RelationshipType {
	if def, ok := RelationshipTypes[strings.ToUpper(typeName)]; ok {
		return def
	}
	for _, def := range RelationshipTypes {
		if strings.EqualFold(def.Name, typeName) {
			return def
		}
	}
	return nil
}

// EntityTypeNames returns the lowercase names of all entity types.
func EntityTypeNames() []string {
	names := make([]string, 0, len(EntityTypes))
	for _, def := range EntityTypes {
		names = append(names, def.Name)
	}
	return names
}

// RelationshipTypeNames returns the lowercase names of all relationship types.
func RelationshipTypeNames() []string {
	names := make([]string, 0, len(RelationshipTypes))
	for _, def := range RelationshipTypes {
		names = append(names, def.Name)
	}
	return names
}
