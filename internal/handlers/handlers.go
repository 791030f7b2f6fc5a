// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides
// request data, response methods and middleware values. We group related
// handlers into a struct (Handler) that holds shared dependencies —
// dependency injection via struct fields, no globals.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CodeDanji/recipe-extractor/internal/database"
	"github.com/CodeDanji/recipe-extractor/internal/models"
	"github.com/CodeDanji/recipe-extractor/internal/services/pipeline"
	"github.com/CodeDanji/recipe-extractor/internal/services/progress"
	"github.com/CodeDanji/recipe-extractor/internal/services/youtube"
)

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	DB           *database.DB
	Resolver     youtube.Resolver
	Runner       *pipeline.Runner
	Progress     *progress.Tracker
	MaxBatchSize int
	WorkerCount  int
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(db *database.DB, resolver youtube.Resolver, runner *pipeline.Runner, tracker *progress.Tracker, maxBatchSize, workerCount int) *Handler {
	return &Handler{
		DB:           db,
		Resolver:     resolver,
		Runner:       runner,
		Progress:     tracker,
		MaxBatchSize: maxBatchSize,
		WorkerCount:  workerCount,
	}
}

// HealthCheck returns the API health status.
// GET /api/v1/health
func (h *Handler) HealthCheck(c *gin.Context) {
	dbStatus := "healthy"
	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:   "ok",
		Version:  "1.0.0",
		Database: dbStatus,
		Workers:  h.WorkerCount,
	})
}
