package ontology

import (
	"fmt"
	"strings"
	"time"
)

// ============================================================================
// Validation
// ============================================================================

// ValidationResult reports whether a set of properties conforms to a schema.
// Errors holds one human-readable message per violation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateEntityProperties validates properties against an entity type schema.
// Properties not declared in the schema are allowed and skipped.
func ValidateEntityProperties(entityType string, properties map[string]interface{}) ValidationResult {
	def := EntityTypeByName(entityType)
	if def == nil {
		return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("Unknown entity type: %s", entityType)}}
	}
	return validateProperties(def.Properties, properties)
}

// ValidateRelationship checks that the given source and target entity types
// are allowed endpoints for the relationship type.
func ValidateRelationship(relationshipType, sourceEntityType, targetEntityType string) ValidationResult {
	def := RelationshipTypeByName(relationshipType)
	if def == nil {
		return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("Unknown relationship type: %s", relationshipType)}}
	}

	var errors []string
	sourceType := strings.ToUpper(sourceEntityType)
	targetType := strings.ToUpper(targetEntityType)

	if len(def.Source) > 0 && !contains(def.Source, sourceType) {
		errors = append(errors, fmt.Sprintf("Entity type %s cannot be the source of a %s relationship. Allowed types: %s",
			sourceEntityType, relationshipType, strings.Join(def.Source, ", ")))
	}
	if len(def.Target) > 0 && !contains(def.Target, targetType) {
		errors = append(errors, fmt.Sprintf("Entity type %s cannot be the target of a %s relationship. Allowed types: %s",
			targetEntityType, relationshipType, strings.Join(def.Target, ", ")))
	}

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

// ValidateRelationshipProperties validates properties against a relationship
// type schema. Properties not declared in the schema are allowed and skipped.
func ValidateRelationshipProperties(relationshipType string, properties map[string]interface{}) ValidationResult {
	def := RelationshipTypeByName(relationshipType)
	if def == nil {
		return ValidationResult{Valid: false, Errors: []string{fmt.Sprintf("Unknown relationship type: %s", relationshipType)}}
	}
	return validateProperties(def.Properties, properties)
}

func validateProperties(schema map[string]PropertyDef, properties map[string]interface{}) ValidationResult {
	var errors []string

	// Required properties
	for propName, propDef := range schema {
		if propDef.Required {
			if val, ok := properties[propName]; !ok || val == nil {
				errors = append(errors, fmt.Sprintf("Missing required property: %s", propName))
			}
		}
	}

	// Types, enums and bounds
	for propName, propValue := range properties {
		propDef, ok := schema[propName]
		if !ok || propValue == nil {
			// Unknown properties are allowed
			continue
		}

		if msg := checkType(propName, propDef.Type, propValue); msg != "" {
			errors = append(errors, msg)
		}

		if len(propDef.Enum) > 0 {
			if str, ok := propValue.(string); !ok || !contains(propDef.Enum, str) {
				errors = append(errors, fmt.Sprintf("Property %s must be one of: %s", propName, strings.Join(propDef.Enum, ", ")))
			}
		}

		if propDef.Min != nil || propDef.Max != nil {
			if num, ok := toFloat(propValue); ok {
				if propDef.Min != nil && num < *propDef.Min {
					errors = append(errors, fmt.Sprintf("Property %s must be >= %v", propName, *propDef.Min))
				}
				if propDef.Max != nil && num > *propDef.Max {
					errors = append(errors, fmt.Sprintf("Property %s must be <= %v", propName, *propDef.Max))
				}
			}
		}
	}

	return ValidationResult{Valid: len(errors) == 0, Errors: errors}
}

func checkType(propName string, propType PropertyType, value interface{}) string {
	switch propType {
	case TypeDate:
		if !IsDateValue(value) {
			return fmt.Sprintf("Property %s must be a valid date", propName)
		}
	case TypeNumber:
		if _, ok := toFloat(value); !ok {
			return fmt.Sprintf("Property %s must be a number", propName)
		}
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("Property %s must be a string", propName)
		}
	case TypeArray:
		if !isArray(value) {
			return fmt.Sprintf("Property %s must be an array", propName)
		}
	case TypeObject:
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Sprintf("Property %s must be an object", propName)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("Property %s must be a boolean", propName)
		}
	}
	return ""
}

// IsDateValue reports whether a value is a time.Time or a string that parses
// as an RFC3339 timestamp or a plain yyyy-mm-dd date.
func IsDateValue(value interface{}) bool {
	switch v := value.(type) {
	case time.Time:
		return true
	case string:
		if _, err := time.Parse(time.RFC3339, v); err == nil {
			return true
		}
		if _, err := time.Parse("2006-01-02", v); err == nil {
			return true
		}
		return false
	default:
		return false
	}
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

func isArray(value interface{}) bool {
	switch value.(type) {
	case []interface{}, []string, []float64:
		return true
	default:
		return false
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
