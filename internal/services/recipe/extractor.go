// Package recipe extracts a (dish name, ingredient list) pair from a
// cooking video's transcript, with a description-marker fallback.
//
// The primary path is a structured-output completion call via OpenRouter
// (OpenAI chat-completions wire format, single API key for many providers).
// All prompt-format assumptions — code-fence stripping, string-or-array
// ingredients, whitespace normalization — live in this package; the rest
// of the pipeline depends only on the (dish, ingredients) contract.
package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// Extractor produces a dish name and comma-delimited ingredient list.
// A FromTranscript error routes the pipeline to FromDescription, which
// never fails — at worst it degrades to (title, "").
type Extractor interface {
	FromTranscript(ctx context.Context, transcript, title string) (dishName, ingredients string, err error)
	FromDescription(description, title string) (dishName, ingredients string)
}

// transcriptLimit caps how much transcript goes into the prompt. Recipes
// are usually stated in the first minute or two of a cooking video, and
// the rest is cost for nothing.
const transcriptLimit = 1500

// Service implements Extractor against the OpenRouter API.
type Service struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewService creates a recipe extraction service.
func NewService(apiKey, model string) *Service {
	return &Service{
		apiKey: apiKey,
		model:  model,
		// Go Pattern: Always configure timeouts on HTTP clients.
		// The default http.Client has NO timeout — requests can hang forever.
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// IsConfigured returns true if the OpenRouter API key is set.
func (s *Service) IsConfigured() bool {
	return s.apiKey != ""
}

// --- OpenRouter API types ---
// These match the OpenAI chat completions format used by OpenRouter.

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// FromTranscript asks the model for a two-field JSON object and parses it.
// Transport and parse failures are returned as errors so the pipeline can
// try the description fallback — they never propagate past it as a crash.
func (s *Service) FromTranscript(ctx context.Context, transcript, title string) (string, string, error) {
	content, err := s.complete(ctx, buildPrompt(transcript))
	if err != nil {
		return title, "", fmt.Errorf("completion failed: %w", err)
	}

	dish, ingredients, err := parseRecipeJSON(content)
	if err != nil {
		log.Printf("⚠️  Recipe JSON parse failed for %q (response: %.200s)", title, content)
		return title, "", fmt.Errorf("parse failed: %w", err)
	}

	if dish == "" {
		dish = title
	}
	return dish, NormalizeIngredients(ingredients), nil
}

// complete sends one chat-completion request and returns the raw content.
func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	if !s.IsConfigured() {
		return "", fmt.Errorf("OpenRouter API key not configured; set OPENROUTER_API_KEY")
	}

	reqBody := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a recipe extraction assistant. Always respond with valid JSON only.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		MaxTokens:   300,
		Temperature: 0.1,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		"https://openrouter.ai/api/v1/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("OpenRouter request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OpenRouter returned %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("OpenRouter error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no response from model")
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

// buildPrompt constructs the extraction prompt. The transcript is cut to
// its first 1500 characters (rune-safe).
func buildPrompt(transcript string) string {
	return fmt.Sprintf(`다음은 요리 영상 대본입니다. 요리 이름과 재료를 추출하세요.

규칙:
1. 요리 이름은 간단명료하게
2. 재료는 쉼표로만 구분, 공백 없이
3. 기본 조미료(소금,후추,식용유 등)도 포함

대본: %s

다음 형식으로만 응답:
{"dish_name": "요리이름", "ingredients": "재료1,재료2,재료3"}`, truncateRunes(transcript, transcriptLimit))
}

// truncateRunes cuts s to at most n runes without splitting a character.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var (
	fenceOpenRegex  = regexp.MustCompile("^```(?:json)?\\s*")
	fenceCloseRegex = regexp.MustCompile("\\s*```$")
)

// StripCodeFences removes a Markdown code-fence wrapper from a model
// response, if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRegex.ReplaceAllString(s, "")
	s = fenceCloseRegex.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// parseRecipeJSON parses the model's two-field JSON object. The ingredients
// field is tolerated as either a string or a JSON array of strings —
// models return both shapes.
func parseRecipeJSON(content string) (string, string, error) {
	content = StripCodeFences(content)

	var parsed struct {
		DishName    string          `json:"dish_name"`
		Ingredients json.RawMessage `json:"ingredients"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return "", "", fmt.Errorf("invalid JSON: %w", err)
	}

	var ingredients string
	if len(parsed.Ingredients) > 0 {
		if err := json.Unmarshal(parsed.Ingredients, &ingredients); err != nil {
			var list []string
			if err := json.Unmarshal(parsed.Ingredients, &list); err != nil {
				return "", "", fmt.Errorf("ingredients is neither string nor array")
			}
			ingredients = strings.Join(list, ",")
		}
	}

	return parsed.DishName, ingredients, nil
}

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)
	commaRunRegex   = regexp.MustCompile(`,+`)
)

// NormalizeIngredients strips all internal whitespace, collapses runs of
// commas into one, and trims edge commas. "계란 , , 설탕," → "계란,설탕".
func NormalizeIngredients(s string) string {
	s = whitespaceRegex.ReplaceAllString(s, "")
	s = commaRunRegex.ReplaceAllString(s, ",")
	return strings.Trim(s, ",")
}

const (
	// ingredientMarker is the Korean "ingredients" heading found in most
	// cooking-video descriptions; instructionMarker ("how to make") ends
	// the ingredient block.
	ingredientMarker  = "재료"
	instructionMarker = "만드는"

	// fallbackWindow bounds the scan when no end marker exists.
	fallbackWindow = 500
)

var (
	separatorRegex = regexp.MustCompile(`[-\s\n]+`)
	// keep word characters, Hangul and commas; everything else goes
	junkRegex = regexp.MustCompile(`[^0-9A-Za-z_가-힣,]`)
)

// FromDescription is the fallback heuristic: take the text between the
// "재료" marker and the next "만드는" marker (or a fixed 500-character
// window) and strip it down to a comma-delimited token list.
// Returns (title, "") when no marker is present.
func (s *Service) FromDescription(description, title string) (string, string) {
	runes := []rune(description)
	markerRunes := []rune(ingredientMarker)

	start := runeIndex(runes, markerRunes)
	if start == -1 {
		return title, ""
	}
	start += len(markerRunes)

	end := runeIndex(runes[start:], []rune(instructionMarker))
	if end == -1 {
		end = start + fallbackWindow
	} else {
		end += start
	}
	if end > len(runes) {
		end = len(runes)
	}

	window := strings.TrimSpace(string(runes[start:end]))
	window = separatorRegex.ReplaceAllString(window, ",")
	window = junkRegex.ReplaceAllString(window, "")

	return title, NormalizeIngredients(window)
}

// runeIndex returns the rune offset of needle in haystack, or -1.
func runeIndex(haystack, needle []rune) int {
	idx := strings.Index(string(haystack), string(needle))
	if idx == -1 {
		return -1
	}
	return len([]rune(string(haystack)[:idx]))
}
