// Package router sets up all HTTP routes for the API.
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/CodeDanji/recipe-extractor/internal/handlers"
	"github.com/CodeDanji/recipe-extractor/internal/middleware"
)

// Setup creates and configures the Gin router with all routes.
func Setup(h *handlers.Handler, allowedOrigins []string) *gin.Engine {
	r := gin.Default()
	r.Use(middleware.CORS(allowedOrigins))

	r.GET("/api/v1/health", h.HealthCheck)

	api := r.Group("/api/v1")
	{
		// Playlist processing
		api.POST("/playlists/process", h.ProcessPlaylist)
		api.GET("/playlists/status/:session_id", h.GetPlaylistStatus)

		// Recipe queries
		api.POST("/recipes/recommend", h.RecommendRecipes)
		api.GET("/recipes", h.ListRecipes)
		api.GET("/stats", h.GetStats)
	}

	return r
}
