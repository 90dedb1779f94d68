package main

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"allie-graph/internal/knowledge"
	"allie-graph/internal/migration"
	"allie-graph/internal/resolution"
	apperrors "allie-graph/pkg/errors"
)

// server bundles the services behind the HTTP API.
type server struct {
	graphs   *knowledge.Service
	migrator *migration.Service
	resolver *resolution.Resolver
	logger   *zap.Logger
}

func (s *server) registerRoutes(router *gin.Engine) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	families := api.Group("/families/:familyId")
	{
		families.POST("/graph", s.initializeGraph)
		families.GET("/graph", s.getGraph)
		families.POST("/load", s.loadFamilyData)

		families.POST("/entities", s.addEntity)
		families.DELETE("/entities/:entityId", s.removeEntity)
		families.POST("/entities/query", s.queryEntities)
		families.GET("/entities/:entityId/connected", s.findConnected)

		families.POST("/relationships", s.addRelationship)
		families.DELETE("/relationships/:relationshipId", s.removeRelationship)
		families.POST("/relationships/query", s.queryRelationships)

		families.GET("/paths", s.findPaths)
		families.POST("/traversal", s.executeTraversal)
		families.GET("/export/d3", s.exportD3)

		families.POST("/query", s.naturalLanguageQuery)
		families.POST("/insights", s.generateInsights)
		families.POST("/extract", s.extractEntities)

		families.GET("/duplicates", s.findDuplicates)
		families.POST("/duplicates/resolve", s.resolveDuplicates)
	}

	migrate := api.Group("/migrate")
	{
		migrate.POST("", s.migrateAll)
		migrate.POST("/:familyId", s.migrateFamily)
		migrate.GET("/:familyId/validate", s.validateMigration)
	}
}

// respondError maps the error taxonomy onto HTTP statuses.
func (s *server) respondError(c *gin.Context, err error) {
	switch {
	case apperrors.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperrors.IsErrorType(err, apperrors.ErrorTypeSchema),
		apperrors.IsErrorType(err, apperrors.ErrorTypeReference),
		apperrors.IsErrorType(err, apperrors.ErrorTypeIntent):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		s.logger.Error("Request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// ============================================================================
// Graph lifecycle
// ============================================================================

func (s *server) initializeGraph(c *gin.Context) {
	graph, err := s.graphs.InitializeGraph(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *server) getGraph(c *gin.Context) {
	refresh := c.Query("refresh") == "true"
	graph, err := s.graphs.GetGraph(c.Request.Context(), c.Param("familyId"), refresh)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

func (s *server) loadFamilyData(c *gin.Context) {
	graph, err := s.graphs.LoadFamilyData(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}

// ============================================================================
// Entities
// ============================================================================

func (s *server) addEntity(c *gin.Context) {
	var req struct {
		Type       string                 `json:"type" binding:"required"`
		ID         string                 `json:"id"`
		Properties map[string]interface{} `json:"properties"`
		Metadata   map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entity, err := s.graphs.AddEntity(c.Request.Context(), c.Param("familyId"), req.Type, req.Properties, req.ID, req.Metadata)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entity)
}

func (s *server) removeEntity(c *gin.Context) {
	err := s.graphs.RemoveEntity(c.Request.Context(), c.Param("familyId"), c.Param("entityId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *server) queryEntities(c *gin.Context) {
	var query knowledge.EntityQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entities, err := s.graphs.QueryEntities(c.Request.Context(), c.Param("familyId"), query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities, "count": len(entities)})
}

func (s *server) findConnected(c *gin.Context) {
	connected, err := s.graphs.FindConnectedEntities(
		c.Request.Context(),
		c.Param("familyId"),
		c.Param("entityId"),
		c.Query("type"),
		c.DefaultQuery("direction", "both"),
	)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": connected, "count": len(connected)})
}

// ============================================================================
// Relationships
// ============================================================================

func (s *server) addRelationship(c *gin.Context) {
	var req struct {
		SourceID   string                 `json:"sourceId" binding:"required"`
		TargetID   string                 `json:"targetId" binding:"required"`
		Type       string                 `json:"type" binding:"required"`
		Properties map[string]interface{} `json:"properties"`
		Metadata   map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rel, err := s.graphs.AddRelationship(c.Request.Context(), c.Param("familyId"), req.SourceID, req.TargetID, req.Type, req.Properties, req.Metadata)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rel)
}

func (s *server) removeRelationship(c *gin.Context) {
	err := s.graphs.RemoveRelationship(c.Request.Context(), c.Param("familyId"), c.Param("relationshipId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *server) queryRelationships(c *gin.Context) {
	var query knowledge.RelationshipQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rels, err := s.graphs.QueryRelationships(c.Request.Context(), c.Param("familyId"), query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"relationships": rels, "count": len(rels)})
}

// ============================================================================
// Traversal and export
// ============================================================================

func (s *server) findPaths(c *gin.Context) {
	from := c.Query("from")
	to := c.Query("to")
	if from == "" || to == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from and to query parameters are required"})
		return
	}
	maxDepth, _ := strconv.Atoi(c.DefaultQuery("maxDepth", "3"))

	paths, err := s.graphs.FindPaths(c.Request.Context(), c.Param("familyId"), from, to, maxDepth)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths, "count": len(paths)})
}

func (s *server) executeTraversal(c *gin.Context) {
	var req struct {
		StartID string `json:"startId" binding:"required"`
		knowledge.TraversalOptions
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.graphs.ExecuteTraversal(c.Request.Context(), c.Param("familyId"), req.StartID, req.TraversalOptions)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) exportD3(c *gin.Context) {
	export, err := s.graphs.ExportGraphD3(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// ============================================================================
// Natural language, insights, extraction
// ============================================================================

func (s *server) naturalLanguageQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.graphs.ExecuteNaturalLanguageQuery(c.Request.Context(), c.Param("familyId"), req.Query)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) generateInsights(c *gin.Context) {
	insights, err := s.graphs.GenerateInsights(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insights": insights, "count": len(insights)})
}

func (s *server) extractEntities(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	extracted, err := s.graphs.ExtractEntitiesFromText(c.Request.Context(), c.Param("familyId"), req.Text)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, extracted)
}

// ============================================================================
// Duplicates
// ============================================================================

func (s *server) findDuplicates(c *gin.Context) {
	minScore, _ := strconv.ParseFloat(c.DefaultQuery("minScore", "0"), 64)
	pairs, err := s.resolver.FindPotentialDuplicates(
		c.Request.Context(),
		c.Param("familyId"),
		c.Query("type"),
		resolution.DuplicateOptions{MinScore: minScore},
	)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"duplicates": pairs,
		"groups":     resolution.GroupDuplicates(pairs),
		"count":      len(pairs),
	})
}

func (s *server) resolveDuplicates(c *gin.Context) {
	var req struct {
		Pairs            []resolution.DuplicatePair `json:"pairs"`
		EntityType       string                     `json:"entityType"`
		MinScore         float64                    `json:"minScore"`
		DeleteDuplicates *bool                      `json:"deleteDuplicates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Merged duplicates are deleted unless the request opts out.
	deleteDuplicates := req.DeleteDuplicates == nil || *req.DeleteDuplicates

	ctx := c.Request.Context()
	familyID := c.Param("familyId")

	// Without explicit pairs, detect then resolve in one pass.
	pairs := req.Pairs
	if len(pairs) == 0 {
		detected, err := s.resolver.FindPotentialDuplicates(ctx, familyID, req.EntityType, resolution.DuplicateOptions{MinScore: req.MinScore})
		if err != nil {
			s.respondError(c, err)
			return
		}
		pairs = detected
	}

	result, err := s.resolver.ResolveDuplicates(ctx, familyID, pairs, deleteDuplicates)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ============================================================================
// Migration
// ============================================================================

func (s *server) migrateAll(c *gin.Context) {
	summary, err := s.migrator.MigrateAllFamilies(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *server) migrateFamily(c *gin.Context) {
	result, err := s.migrator.MigrateFamily(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *server) validateMigration(c *gin.Context) {
	validation, err := s.migrator.ValidateMigration(c.Request.Context(), c.Param("familyId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, validation)
}
