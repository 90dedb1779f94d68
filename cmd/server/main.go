package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"allie-graph/internal/docstore"
	"allie-graph/internal/graphstore"
	"allie-graph/internal/knowledge"
	"allie-graph/internal/migration"
	"allie-graph/internal/resolution"
	"allie-graph/pkg/config"
	"allie-graph/pkg/logger"
)

func main() {
	// Initialize logger
	if err := logger.Init(os.Getenv("ENV")); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	log := logger.Get()
	log.Info("Starting knowledge graph API server...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Document store
	store, err := docstore.Open(cfg.StorePath)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	defer store.Close()

	// Graph store (connects lazily; migration and resolution endpoints
	// fail with a connection error if Neo4j is unreachable)
	graph := graphstore.NewStore(graphstore.Options{
		URI:         cfg.Neo4jURI,
		User:        cfg.Neo4jUser,
		Password:    cfg.Neo4jPassword,
		Database:    cfg.Neo4jDatabase,
		MaxPoolSize: cfg.Neo4jMaxPoolSize,
	})
	defer graph.Close(context.Background())

	// Intent classifier: LLM-backed when configured, regex otherwise
	var classifier knowledge.IntentClassifier
	if cfg.OpenAIBaseURL != "" || cfg.OpenAIAPIKey != "" {
		classifier = knowledge.NewLLMClassifier(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.IntentModel)
	}

	// Entity resolution matching config
	resolutionConfig := resolution.DefaultConfig()
	if cfg.ResolutionConfig != "" {
		resolutionConfig, err = resolution.LoadConfig(cfg.ResolutionConfig)
		if err != nil {
			log.Fatal("Failed to load resolution config", zap.Error(err))
		}
	}

	srv := &server{
		graphs:   knowledge.NewService(store, classifier),
		migrator: migration.NewService(store, graph),
		resolver: resolution.NewResolver(graph, resolutionConfig),
		logger:   log,
	}

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	srv.registerRoutes(router)

	// Start server
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	log.Info("Server started", zap.String("port", cfg.Port))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// ginLogger is a custom logger middleware for Gin
func ginLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		if raw != "" {
			path = path + "?" + raw
		}

		log.Info("HTTP Request",
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Duration("latency", latency),
			zap.String("ip", c.ClientIP()),
		)
	}
}
