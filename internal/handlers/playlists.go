// playlists.go handles playlist processing endpoints.
//
// POST /api/v1/playlists/process — resolve a playlist and start a batch
// GET  /api/v1/playlists/status/:session_id — poll batch progress
package handlers

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/CodeDanji/recipe-extractor/internal/models"
	"github.com/CodeDanji/recipe-extractor/internal/services/pipeline"
	"github.com/CodeDanji/recipe-extractor/internal/services/youtube"
)

// ProcessPlaylist resolves a playlist URL, applies the batch cap and starts
// processing under a freshly minted session token.
// POST /api/v1/playlists/process
//
// Request body:
//
//	{"playlist_url": "https://www.youtube.com/playlist?list=PL..."}
//
// Returns 202 Accepted immediately — the batch runs detached and the
// caller polls the status endpoint with the returned session_id.
func (h *Handler) ProcessPlaylist(c *gin.Context) {
	var req models.ProcessPlaylistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Provide 'playlist_url' with a YouTube playlist URL",
			Code:    http.StatusBadRequest,
		})
		return
	}

	playlistID, err := youtube.ParsePlaylistURL(req.PlaylistURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_url",
			Message: "Not a valid playlist URL: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	videoIDs, err := h.Resolver.ListPlaylistVideos(c.Request.Context(), playlistID)
	if err != nil {
		// Resolution failure is a request-level error — the one class of
		// failure we do surface to the triggering caller.
		log.Printf("❌ Failed to resolve playlist %s: %v", playlistID, err)
		c.JSON(http.StatusBadGateway, models.ErrorResponse{
			Error:   "resolution_failed",
			Message: "Could not resolve the playlist",
			Code:    http.StatusBadGateway,
		})
		return
	}

	if len(videoIDs) == 0 {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "playlist_empty",
			Message: "The playlist has no videos",
			Code:    http.StatusNotFound,
		})
		return
	}

	limited, originalCount, wasLimited := pipeline.LimitVideos(videoIDs, h.MaxBatchSize)
	if wasLimited {
		log.Printf("✂️  Playlist %s truncated from %d to %d videos", playlistID, originalCount, len(limited))
	}

	sessionID := uuid.New().String()

	// Fire and forget: the batch outlives this request, so it gets a fresh
	// context instead of the request's. Progress is observable only through
	// the tracker.
	go h.Runner.Run(context.Background(), sessionID, limited)

	c.JSON(http.StatusAccepted, models.ProcessPlaylistResponse{
		SessionID:     sessionID,
		Total:         len(limited),
		OriginalCount: originalCount,
		Limited:       wasLimited,
	})
}

// GetPlaylistStatus returns the current progress snapshot for a session.
// GET /api/v1/playlists/status/:session_id
//
// Unknown tokens return a zeroed "not started" record with HTTP 200, so
// pollers racing the batch start never see an error.
func (h *Handler) GetPlaylistStatus(c *gin.Context) {
	sessionID := c.Param("session_id")
	c.JSON(http.StatusOK, h.Progress.Get(sessionID))
}
