package graphstore

import (
	"context"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	apperrors "allie-graph/pkg/errors"
	"allie-graph/pkg/logger"
)

// Options configures the graph store connection.
type Options struct {
	URI         string
	User        string
	Password    string
	Database    string
	MaxPoolSize int
}

// Store handles all Neo4j database operations for the knowledge graph.
// The connection is established lazily on first use.
type Store struct {
	opts   Options
	logger *zap.Logger

	mu        sync.Mutex
	driver    neo4j.DriverWithContext
	connected bool
}

// NewStore creates a new graph store. No connection is made until
// Initialize or the first operation.
func NewStore(opts Options) *Store {
	if opts.Database == "" {
		opts.Database = "neo4j"
	}
	if opts.MaxPoolSize <= 0 {
		opts.MaxPoolSize = 50
	}
	return &Store{
		opts:   opts,
		logger: logger.Get(),
	}
}

// Initialize connects to Neo4j and verifies connectivity. Safe to call more
// than once; subsequent calls are no-ops while connected.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	driver, err := neo4j.NewDriverWithContext(
		s.opts.URI,
		neo4j.BasicAuth(s.opts.User, s.opts.Password, ""),
		func(c *neo4j.Config) {
			c.MaxConnectionPoolSize = s.opts.MaxPoolSize
			c.ConnectionAcquisitionTimeout = 30 * time.Second
		},
	)
	if err != nil {
		return apperrors.NewGraphConnectionFailed(s.opts.URI, err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return apperrors.NewGraphConnectionFailed(s.opts.URI, err)
	}

	s.driver = driver
	s.connected = true
	s.logger.Info("Connected to Neo4j",
		zap.String("uri", s.opts.URI),
		zap.String("database", s.opts.Database),
	)
	return nil
}

// Close closes the Neo4j driver connection.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}
	s.connected = false
	s.logger.Info("Neo4j connection closed")
	return s.driver.Close(ctx)
}

// ensureConnected lazily initializes the connection.
func (s *Store) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	connected := s.connected
	s.mu.Unlock()
	if connected {
		return nil
	}
	return s.Initialize(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.opts.Database,
	})
}
