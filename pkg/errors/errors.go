package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeSchema represents ontology/validation errors
	ErrorTypeSchema ErrorType = "schema"
	// ErrorTypeReference represents missing entity/relationship references
	ErrorTypeReference ErrorType = "reference"
	// ErrorTypeStore represents document store errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeMigration represents migration errors
	ErrorTypeMigration ErrorType = "migration"
	// ErrorTypeIntent represents natural language query errors
	ErrorTypeIntent ErrorType = "intent"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Base exposes the embedded base error from typed wrappers
func (e *BaseError) Base() *BaseError {
	return e
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Schema Errors

// ErrInvalidEntityType is returned when an entity type is not in the ontology
type ErrInvalidEntityType struct {
	*BaseError
	EntityType string
}

func NewInvalidEntityType(entityType string) *ErrInvalidEntityType {
	return &ErrInvalidEntityType{
		BaseError:  NewBaseError(ErrorTypeSchema, fmt.Sprintf("invalid entity type: %s", entityType), nil),
		EntityType: entityType,
	}
}

// ErrInvalidRelationshipType is returned when a relationship type is not in the ontology
type ErrInvalidRelationshipType struct {
	*BaseError
	RelationshipType string
}

func NewInvalidRelationshipType(relType string) *ErrInvalidRelationshipType {
	return &ErrInvalidRelationshipType{
		BaseError:        NewBaseError(ErrorTypeSchema, fmt.Sprintf("invalid relationship type: %s", relType), nil),
		RelationshipType: relType,
	}
}

// ErrValidationFailed is returned when entity or relationship properties fail validation
type ErrValidationFailed struct {
	*BaseError
	Subject string
	Reasons []string
}

func NewValidationFailed(subject string, reasons []string) *ErrValidationFailed {
	return &ErrValidationFailed{
		BaseError: NewBaseError(ErrorTypeSchema, fmt.Sprintf("validation failed for %s: %v", subject, reasons), nil),
		Subject:   subject,
		Reasons:   reasons,
	}
}

// Reference Errors

// ErrEntityNotFound is returned when an entity is not present in a graph
type ErrEntityNotFound struct {
	*BaseError
	EntityID string
}

func NewEntityNotFound(entityID string) *ErrEntityNotFound {
	return &ErrEntityNotFound{
		BaseError: NewBaseError(ErrorTypeReference, fmt.Sprintf("entity not found: %s", entityID), nil),
		EntityID:  entityID,
	}
}

// ErrRelationshipNotFound is returned when a relationship is not present in a graph
type ErrRelationshipNotFound struct {
	*BaseError
	RelationshipID string
}

func NewRelationshipNotFound(relationshipID string) *ErrRelationshipNotFound {
	return &ErrRelationshipNotFound{
		BaseError:      NewBaseError(ErrorTypeReference, fmt.Sprintf("relationship not found: %s", relationshipID), nil),
		RelationshipID: relationshipID,
	}
}

// ErrEndpointNotFound is returned when a relationship endpoint entity does not exist
type ErrEndpointNotFound struct {
	*BaseError
	SourceID string
	TargetID string
}

func NewEndpointNotFound(sourceID, targetID string) *ErrEndpointNotFound {
	return &ErrEndpointNotFound{
		BaseError: NewBaseError(ErrorTypeReference, fmt.Sprintf("source or target entity not found: %s -> %s", sourceID, targetID), nil),
		SourceID:  sourceID,
		TargetID:  targetID,
	}
}

// Store Errors

// ErrGraphNotInitialized is returned when no graph document exists for a family
type ErrGraphNotInitialized struct {
	*BaseError
	FamilyID string
}

func NewGraphNotInitialized(familyID string) *ErrGraphNotInitialized {
	return &ErrGraphNotInitialized{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("knowledge graph not initialized for family: %s", familyID), nil),
		FamilyID:  familyID,
	}
}

// ErrStoreOperationFailed is returned when a document store read or write fails
type ErrStoreOperationFailed struct {
	*BaseError
	Operation string
	FamilyID  string
}

func NewStoreOperationFailed(operation, familyID string, err error) *ErrStoreOperationFailed {
	return &ErrStoreOperationFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("store %s failed for family %s", operation, familyID), err),
		Operation: operation,
		FamilyID:  familyID,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when Neo4j connection fails
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// ErrGraphNodeNotFound is returned when a node is not found in the graph database
type ErrGraphNodeNotFound struct {
	*BaseError
	NodeID string
}

func NewGraphNodeNotFound(nodeID string) *ErrGraphNodeNotFound {
	return &ErrGraphNodeNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("node not found: %s", nodeID), nil),
		NodeID:    nodeID,
	}
}

// Migration Errors

// ErrMigrationFailed is returned when a family migration cannot complete
type ErrMigrationFailed struct {
	*BaseError
	FamilyID string
}

func NewMigrationFailed(familyID string, err error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		BaseError: NewBaseError(ErrorTypeMigration, fmt.Sprintf("migration failed for family: %s", familyID), err),
		FamilyID:  familyID,
	}
}

// Intent Errors

// ErrIntentClassificationFailed is returned when a natural language query cannot be classified
type ErrIntentClassificationFailed struct {
	*BaseError
	Query string
}

func NewIntentClassificationFailed(query string, err error) *ErrIntentClassificationFailed {
	return &ErrIntentClassificationFailed{
		BaseError: NewBaseError(ErrorTypeIntent, "failed to classify query intent", err),
		Query:     query,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	if based, ok := err.(interface{ Base() *BaseError }); ok {
		return based.Base().Type == errType
	}
	// Check wrapped errors
	if wrapped, ok := err.(interface{ Unwrap() error }); ok && wrapped.Unwrap() != nil {
		return IsErrorType(wrapped.Unwrap(), errType)
	}
	return false
}

// IsNotFound checks if an error represents a missing entity, relationship or node
func IsNotFound(err error) bool {
	switch err.(type) {
	case *ErrEntityNotFound, *ErrRelationshipNotFound, *ErrGraphNodeNotFound, *ErrGraphNotInitialized:
		return true
	}
	if wrapped, ok := err.(interface{ Unwrap() error }); ok && wrapped.Unwrap() != nil {
		return IsNotFound(wrapped.Unwrap())
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Schema and reference errors never succeed on retry
	if IsErrorType(err, ErrorTypeSchema) || IsErrorType(err, ErrorTypeReference) {
		return false
	}
	// Graph connection errors are retryable
	if _, ok := err.(*ErrGraphConnectionFailed); ok {
		return true
	}
	if IsErrorType(err, ErrorTypeStore) {
		return true
	}
	return false
}
