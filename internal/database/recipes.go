// recipes.go handles recipe-related database operations.
//
// Go Pattern: We split database operations into per-domain files that all
// use the same *DB receiver.
package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/CodeDanji/recipe-extractor/internal/models"
)

// RecipeExists reports whether a recipe for this video is already stored.
// This is the dedup check the pipeline runs before doing any work — an
// indexed COUNT on video_id.
func (db *DB) RecipeExists(ctx context.Context, videoID string) (bool, error) {
	var count int
	err := db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM recipes WHERE video_id = $1`, videoID)
	if err != nil {
		return false, fmt.Errorf("dedup check failed: %w", err)
	}
	return count > 0, nil
}

// CreateRecipe inserts a new recipe row.
// The caller guarantees RecipeExists was already checked: this is a plain
// INSERT, not an upsert. A duplicate video_id here is a logic error and
// surfaces as the unique-constraint violation from Postgres.
func (db *DB) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	query := `
		INSERT INTO recipes (video_id, title, description, ingredients, dish_name, url)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	return db.QueryRowContext(ctx, query,
		r.VideoID, r.Title, r.Description, r.Ingredients, r.DishName, r.URL,
	).Scan(&r.ID, &r.CreatedAt)
}

// FindRecipesByIngredients returns every recipe whose ingredients text
// contains ANY of the supplied tokens as a substring (OR semantics).
// Substring rather than exact-token match is deliberate — it tolerates
// partial and compound ingredient names like 대파 vs 파.
//
// Results are ordered by created_at so ties rank deterministically after
// the matcher's stable sort. No matches returns an empty slice, not an error.
func (db *DB) FindRecipesByIngredients(ctx context.Context, tokens []string) ([]models.Recipe, error) {
	if len(tokens) == 0 {
		return []models.Recipe{}, nil
	}

	// Build one LIKE condition per token: ingredients LIKE $1 OR ...
	conditions := make([]string, 0, len(tokens))
	args := make([]interface{}, 0, len(tokens))
	for i, tok := range tokens {
		conditions = append(conditions, fmt.Sprintf("ingredients LIKE $%d", i+1))
		args = append(args, "%"+tok+"%")
	}

	query := fmt.Sprintf(
		"SELECT * FROM recipes WHERE %s ORDER BY created_at ASC",
		strings.Join(conditions, " OR "))

	recipes := []models.Recipe{}
	if err := db.SelectContext(ctx, &recipes, query, args...); err != nil {
		return nil, fmt.Errorf("ingredient search failed: %w", err)
	}
	return recipes, nil
}

// ListRecipes returns the most recently stored recipes.
func (db *DB) ListRecipes(ctx context.Context, limit int) ([]models.Recipe, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	recipes := []models.Recipe{}
	err := db.SelectContext(ctx, &recipes,
		`SELECT * FROM recipes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// CountRecipes returns the total number of stored recipes.
// For display/statistics only.
func (db *DB) CountRecipes(ctx context.Context) (int, error) {
	var total int
	if err := db.GetContext(ctx, &total, `SELECT COUNT(*) FROM recipes`); err != nil {
		return 0, fmt.Errorf("failed to count recipes: %w", err)
	}
	return total, nil
}
