// Package pipeline orchestrates per-video recipe processing and runs
// batches of videos with bounded parallelism.
//
// One video moves through a fixed sequence of stages:
//
//	dedup check → fetch metadata → acquire audio → transcribe →
//	extract recipe → persist
//
// with a fallback branch: if audio, transcription or transcript-based
// extraction fails, the recipe is extracted from the video description
// instead and the row is still persisted. A video is only lost when its
// metadata cannot be fetched or the insert itself fails.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/CodeDanji/recipe-extractor/internal/models"
	"github.com/CodeDanji/recipe-extractor/internal/services/audio"
	"github.com/CodeDanji/recipe-extractor/internal/services/recipe"
	"github.com/CodeDanji/recipe-extractor/internal/services/youtube"
)

// Status classifies the outcome of one video's processing.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusError   Status = "error"
)

// Outcome is the structured result of one video's run through the pipeline.
// All per-video failures are converted into an Outcome — they never abort
// the batch.
type Outcome struct {
	Status   Status `json:"status"`
	VideoID  string `json:"video_id"`
	Title    string `json:"title,omitempty"`
	DishName string `json:"dish_name,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Store is the slice of the database the pipeline needs.
// Go Pattern: Define interfaces where they are USED. *database.DB
// satisfies this implicitly, and tests swap in a fake.
type Store interface {
	RecipeExists(ctx context.Context, videoID string) (bool, error)
	CreateRecipe(ctx context.Context, r *models.Recipe) error
}

// Pipeline processes a single video end to end.
type Pipeline struct {
	resolver    youtube.Resolver
	acquirer    audio.Acquirer
	transcriber audio.Transcriber
	extractor   recipe.Extractor
	store       Store
}

// New creates a video pipeline from its collaborators.
func New(resolver youtube.Resolver, acquirer audio.Acquirer, transcriber audio.Transcriber, extractor recipe.Extractor, store Store) *Pipeline {
	return &Pipeline{
		resolver:    resolver,
		acquirer:    acquirer,
		transcriber: transcriber,
		extractor:   extractor,
		store:       store,
	}
}

// Stage labels reported to the progress sink. Human-readable; the batch
// runner prefixes nothing, pollers see these verbatim.
const (
	stageCheckDup    = "checking for duplicates"
	stageFetchMeta   = "fetching video metadata"
	stageAcquire     = "downloading audio"
	stageTranscribe  = "transcribing audio"
	stageExtract     = "extracting recipe"
	stageFallback    = "extracting from description"
	stagePersist     = "saving recipe"
)

// Process runs one video through the pipeline. report is called before
// each stage with the stage label and the in-flight video title (empty
// until metadata has been fetched).
func (p *Pipeline) Process(ctx context.Context, videoID string, report func(stage, title string)) Outcome {
	report(stageCheckDup, "")
	exists, err := p.store.RecipeExists(ctx, videoID)
	if err != nil {
		return Outcome{Status: StatusError, VideoID: videoID, Message: fmt.Sprintf("dedup check failed: %v", err)}
	}
	if exists {
		log.Printf("⏭️  [%s] already processed, skipping", videoID)
		return Outcome{Status: StatusSkipped, VideoID: videoID}
	}

	report(stageFetchMeta, "")
	meta, err := p.resolver.GetVideoMetadata(ctx, videoID)
	if err != nil {
		return Outcome{Status: StatusError, VideoID: videoID, Message: fmt.Sprintf("metadata unavailable: %v", err)}
	}

	log.Printf("▶️  Processing: %s", meta.Title)

	dishName, ingredients := p.extract(ctx, videoID, meta, func(stage string) {
		report(stage, meta.Title)
	})

	if ingredients == "" {
		log.Printf("⚠️  No ingredients extracted for: %s", meta.Title)
		// Still persisted — the row stays visible, it just never matches.
	}

	report(stagePersist, meta.Title)
	r := &models.Recipe{
		VideoID:     videoID,
		Title:       meta.Title,
		Description: meta.Description,
		Ingredients: ingredients,
		DishName:    dishName,
		URL:         meta.URL,
	}
	if err := p.store.CreateRecipe(ctx, r); err != nil {
		return Outcome{Status: StatusError, VideoID: videoID, Title: meta.Title, Message: fmt.Sprintf("failed to save recipe: %v", err)}
	}

	log.Printf("✅ Saved: %s | ingredients: %.50s", meta.Title, ingredients)
	return Outcome{
		Status:   StatusSuccess,
		VideoID:  videoID,
		Title:    meta.Title,
		DishName: dishName,
	}
}

// extract runs the audio → transcript → LLM path, falling back to the
// description heuristic if any step of it fails. The audio artifact is
// cleaned up in all cases, including when a later stage fails.
func (p *Pipeline) extract(ctx context.Context, videoID string, meta *youtube.VideoMetadata, report func(stage string)) (string, string) {
	dishName, ingredients, err := p.extractFromAudio(ctx, videoID, meta, report)
	if err == nil {
		return dishName, ingredients
	}

	log.Printf("⚠️  Audio path failed for %s, falling back to description: %v", videoID, err)
	report(stageFallback)
	return p.extractor.FromDescription(meta.Description, meta.Title)
}

func (p *Pipeline) extractFromAudio(ctx context.Context, videoID string, meta *youtube.VideoMetadata, report func(stage string)) (string, string, error) {
	report(stageAcquire)
	audioPath, err := p.acquirer.Acquire(ctx, meta.URL, videoID)
	if err != nil {
		return "", "", fmt.Errorf("audio acquisition: %w", err)
	}
	defer p.acquirer.Cleanup(audioPath)

	report(stageTranscribe)
	transcript, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", "", fmt.Errorf("transcription: %w", err)
	}

	report(stageExtract)
	dishName, ingredients, err := p.extractor.FromTranscript(ctx, transcript, meta.Title)
	if err != nil {
		return "", "", fmt.Errorf("extraction: %w", err)
	}
	return dishName, ingredients, nil
}
