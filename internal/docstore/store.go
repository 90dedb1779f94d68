package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"allie-graph/internal/knowledge"
	apperrors "allie-graph/pkg/errors"
	"allie-graph/pkg/logger"
)

// ============================================================================
// SQLite Document Store
// ============================================================================

// graphDocument is a knowledge graph persisted as a single JSON document.
type graphDocument struct {
	FamilyID  string `gorm:"primaryKey;size:128"`
	Data      []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (graphDocument) TableName() string { return "knowledge_graphs" }

// familyDocument is a source family record persisted as JSON.
type familyDocument struct {
	FamilyID  string `gorm:"primaryKey;size:128"`
	Data      []byte `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (familyDocument) TableName() string { return "families" }

// SQLStore keeps graph and family documents in SQLite. It implements
// knowledge.Store with whole-document reads and writes.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens or creates the SQLite database at path and migrates its schema.
// The modernc driver keeps the binary cgo-free.
func Open(path string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: path}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, apperrors.NewStoreOperationFailed("open", path, err)
	}

	if err := db.AutoMigrate(&graphDocument{}, &familyDocument{}); err != nil {
		return nil, apperrors.NewStoreOperationFailed("migrate", path, err)
	}

	log := logger.Get()
	log.Info("Document store opened", zap.String("path", path))
	return &SQLStore{db: db, logger: log}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// GetGraph loads a family's graph document.
func (s *SQLStore) GetGraph(ctx context.Context, familyID string) (*knowledge.Graph, error) {
	var doc graphDocument
	err := s.db.WithContext(ctx).First(&doc, "family_id = ?", familyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, knowledge.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var graph knowledge.Graph
	if err := json.Unmarshal(doc.Data, &graph); err != nil {
		return nil, err
	}
	return &graph, nil
}

// SaveGraph writes a family's complete graph document, inserting or
// replacing in one statement.
func (s *SQLStore) SaveGraph(ctx context.Context, graph *knowledge.Graph) error {
	data, err := json.Marshal(graph)
	if err != nil {
		return err
	}

	doc := graphDocument{FamilyID: graph.FamilyID, Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "family_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}

// ListFamilyIDs returns every family with a stored graph document.
func (s *SQLStore) ListFamilyIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&graphDocument{}).
		Order("family_id").
		Pluck("family_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// GetFamilyRecord loads a source family record.
func (s *SQLStore) GetFamilyRecord(ctx context.Context, familyID string) (*knowledge.FamilyRecord, error) {
	var doc familyDocument
	err := s.db.WithContext(ctx).First(&doc, "family_id = ?", familyID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, knowledge.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var record knowledge.FamilyRecord
	if err := json.Unmarshal(doc.Data, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// SaveFamilyRecord writes a source family record, inserting or replacing.
func (s *SQLStore) SaveFamilyRecord(ctx context.Context, record *knowledge.FamilyRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	doc := familyDocument{FamilyID: record.FamilyID, Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "family_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&doc).Error
}
