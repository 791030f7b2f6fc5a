// Package matcher ranks stored recipes against a user's ingredient set.
//
// The ranking is plain set arithmetic — coverage of the recipe's
// ingredient list by what the user has — not a learned ranker.
package matcher

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/CodeDanji/recipe-extractor/internal/models"
)

// ParseIngredients splits a free-text comma-separated ingredient list into
// trimmed, de-duplicated tokens. Order of first appearance is preserved.
func ParseIngredients(input string) []string {
	seen := make(map[string]bool)
	var tokens []string
	for _, part := range strings.Split(input, ",") {
		tok := strings.TrimSpace(part)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// Match scores each candidate recipe against the user's ingredients and
// returns them ranked by match rate, descending. The sort is stable, so
// recipes with equal rates keep the store's return order — deterministic
// output for identical inputs.
//
// For each recipe: matched = user ∩ recipe, missing = recipe − user,
// rate = |matched| / |recipe| × 100. A recipe with no ingredients scores
// zero rather than dividing by zero.
func Match(userIngredients []string, candidates []models.Recipe) []models.MatchResult {
	userSet := make(map[string]bool, len(userIngredients))
	for _, ing := range userIngredients {
		userSet[ing] = true
	}

	type scored struct {
		rate   float64
		result models.MatchResult
	}
	entries := make([]scored, 0, len(candidates))

	for _, r := range candidates {
		recipeIngs := ParseIngredients(r.Ingredients)

		matched := []string{}
		missing := []string{}
		for _, ing := range recipeIngs {
			if userSet[ing] {
				matched = append(matched, ing)
			} else {
				missing = append(missing, ing)
			}
		}

		rate := 0.0
		if len(recipeIngs) > 0 {
			rate = float64(len(matched)) / float64(len(recipeIngs)) * 100
		}
		// Rank on the one-decimal rate that is actually rendered: recipes
		// displaying the same rate count as tied and keep store order.
		rate = math.Round(rate*10) / 10

		entries = append(entries, scored{
			rate: rate,
			result: models.MatchResult{
				Title:          r.Title,
				URL:            r.URL,
				DishName:       r.DishName,
				MatchRate:      fmt.Sprintf("%.1f", rate),
				Matched:        matched,
				Missing:        missing,
				AllIngredients: recipeIngs,
			},
		})
	}

	// Stable sort keeps tied entries in store order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].rate > entries[j].rate
	})

	results := make([]models.MatchResult, len(entries))
	for i, e := range entries {
		results[i] = e.result
	}
	return results
}
