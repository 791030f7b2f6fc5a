// recipes.go handles recipe query endpoints.
//
// POST /api/v1/recipes/recommend — rank stored recipes by ingredient coverage
// GET  /api/v1/recipes — recently stored recipes
// GET  /api/v1/stats — total recipe count
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/CodeDanji/recipe-extractor/internal/models"
	"github.com/CodeDanji/recipe-extractor/internal/services/matcher"
)

// RecommendRecipes ranks stored recipes against the user's ingredients.
// POST /api/v1/recipes/recommend
//
// Request body:
//
//	{"ingredients": "계란, 설탕, 밀가루"}
//
// The store query is permissive (substring OR across tokens); the matcher
// then computes exact coverage and ranks the candidates.
func (h *Handler) RecommendRecipes(c *gin.Context) {
	var req models.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "empty_input",
			Message: "Provide 'ingredients' as a comma-separated list",
			Code:    http.StatusBadRequest,
		})
		return
	}

	tokens := matcher.ParseIngredients(req.Ingredients)
	if len(tokens) == 0 {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "empty_input",
			Message: "No ingredients found in the input",
			Code:    http.StatusBadRequest,
		})
		return
	}

	candidates, err := h.DB.FindRecipesByIngredients(c.Request.Context(), tokens)
	if err != nil {
		log.Printf("❌ Ingredient search failed: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Recipe search failed",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	if len(candidates) == 0 {
		c.JSON(http.StatusOK, models.RecommendResponse{
			UserIngredients: tokens,
			Count:           0,
			Results:         []models.MatchResult{},
			Message:         "No recipes can be made with those ingredients",
		})
		return
	}

	results := matcher.Match(tokens, candidates)

	c.JSON(http.StatusOK, models.RecommendResponse{
		UserIngredients: tokens,
		Count:           len(results),
		Results:         results,
	})
}

// ListRecipes returns the most recently stored recipes.
// GET /api/v1/recipes?limit=20
func (h *Handler) ListRecipes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	recipes, err := h.DB.ListRecipes(c.Request.Context(), limit)
	if err != nil {
		log.Printf("❌ Failed to list recipes: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to list recipes",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, recipes)
}

// GetStats returns the total persisted recipe count.
// GET /api/v1/stats
func (h *Handler) GetStats(c *gin.Context) {
	total, err := h.DB.CountRecipes(c.Request.Context())
	if err != nil {
		log.Printf("❌ Failed to count recipes: %v", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "database_error",
			Message: "Failed to count recipes",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, models.StatsResponse{TotalRecipes: total})
}
