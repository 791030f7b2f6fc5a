// Package models defines the data structures used throughout the application.
//
// Go Pattern: Models are plain structs with JSON tags for serialization.
// The `db` tags work with sqlx for database column mapping — the database
// package handles persistence, there is no ORM magic here.
package models

import (
	"math"
	"time"
)

// Recipe represents one processed cooking video stored in the database.
// video_id is the stable external key — a second row for the same video
// is prevented by the pipeline's dedup check, backed by a UNIQUE constraint.
type Recipe struct {
	ID          string    `json:"id" db:"id"`
	VideoID     string    `json:"video_id" db:"video_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Ingredients string    `json:"ingredients" db:"ingredients"` // comma-delimited tokens, may be empty
	DishName    string    `json:"dish_name" db:"dish_name"`     // falls back to the video title
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ProgressRecord is the per-session snapshot of a running batch.
// It is ephemeral — owned by the batch runner for the lifetime of one run
// and shared read-only with pollers. Overwritten on every stage transition.
type ProgressRecord struct {
	Current      int       `json:"current"`       // videos completed so far
	Total        int       `json:"total"`         // videos in this run
	Percentage   int       `json:"percentage"`    // derived: round(current/total*100)
	Status       string    `json:"status"`        // human-readable stage label
	VideoTitle   string    `json:"video_title"`   // title of the video in flight
	Timestamp    time.Time `json:"timestamp"`     // last update time
	Completed    bool      `json:"completed"`     // set once the run finishes
	SuccessCount int       `json:"success_count"` // set once the run finishes
}

// Percent computes a rounded percentage, guarding the zero-total case.
func Percent(current, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(current) / float64(total) * 100))
}

// MatchResult is one ranked recommendation. Computed fresh per query,
// never persisted.
type MatchResult struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	DishName       string   `json:"dish_name"`
	MatchRate      string   `json:"match_rate"` // percentage, one decimal place
	Matched        []string `json:"matched"`    // ingredients the user already has
	Missing        []string `json:"missing"`    // recipe ingredients the user lacks
	AllIngredients []string `json:"all_ingredients"`
}

// --- Request/Response DTOs ---
// Go Pattern: Separate structs for API input/output vs database models.
// This keeps the API contract independent of the database schema.

// ProcessPlaylistRequest is the JSON body for POST /api/v1/playlists/process.
// Accepts either a full playlist URL or a bare playlist ID.
type ProcessPlaylistRequest struct {
	PlaylistURL string `json:"playlist_url" binding:"required"`
}

// ProcessPlaylistResponse acknowledges a started batch. The caller polls the
// status endpoint with the session ID for progress.
type ProcessPlaylistResponse struct {
	SessionID     string `json:"session_id"`
	Total         int    `json:"total"`          // videos actually queued
	OriginalCount int    `json:"original_count"` // videos resolved before the cap
	Limited       bool   `json:"limited"`        // true when the cap truncated the list
}

// RecommendRequest is the JSON body for POST /api/v1/recipes/recommend.
type RecommendRequest struct {
	Ingredients string `json:"ingredients" binding:"required"` // free-text, comma-separated
}

// RecommendResponse carries the ranked matches, or an explanatory message
// when nothing matched.
type RecommendResponse struct {
	UserIngredients []string      `json:"user_ingredients"`
	Count           int           `json:"count"`
	Results         []MatchResult `json:"results"`
	Message         string        `json:"message,omitempty"`
}

// StatsResponse is returned by GET /api/v1/stats.
type StatsResponse struct {
	TotalRecipes int `json:"total_recipes"`
}

// ErrorResponse is a standard error format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Database string `json:"database"`
	Workers  int    `json:"workers"`
}
