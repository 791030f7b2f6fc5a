// pipeline_test.go — Unit tests for the per-video pipeline using fakes
// for every collaborator. No network, no database, no yt-dlp.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CodeDanji/recipe-extractor/internal/models"
	"github.com/CodeDanji/recipe-extractor/internal/services/youtube"
)

// --- Fakes ---

type fakeResolver struct {
	videos  map[string]*youtube.VideoMetadata
	listErr error
}

func (f *fakeResolver) ListPlaylistVideos(ctx context.Context, playlistID string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	ids := make([]string, 0, len(f.videos))
	for id := range f.videos {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeResolver) GetVideoMetadata(ctx context.Context, videoID string) (*youtube.VideoMetadata, error) {
	meta, ok := f.videos[videoID]
	if !ok {
		return nil, fmt.Errorf("video %s: %w", videoID, youtube.ErrNotFound)
	}
	return meta, nil
}

type fakeAcquirer struct {
	err          error
	cleanupCalls int
}

func (f *fakeAcquirer) Acquire(ctx context.Context, videoURL, videoID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "/tmp/" + videoID + ".mp3", nil
}

func (f *fakeAcquirer) Cleanup(audioPath string) {
	f.cleanupCalls++
}

type fakeTranscriber struct {
	text  string
	err   error
	delay time.Duration // simulates a slow upstream so parallel workers overlap
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.text, f.err
}

type fakeExtractor struct {
	dish        string
	ingredients string
	err         error

	fallbackIngredients string
	fallbackCalls       int
}

func (f *fakeExtractor) FromTranscript(ctx context.Context, transcript, title string) (string, string, error) {
	if f.err != nil {
		return title, "", f.err
	}
	return f.dish, f.ingredients, nil
}

func (f *fakeExtractor) FromDescription(description, title string) (string, string) {
	f.fallbackCalls++
	return title, f.fallbackIngredients
}

// fakeStore is shared across runner workers, so its state is guarded the
// same way the real store's connection pool is goroutine-safe.
type fakeStore struct {
	mu        sync.Mutex
	existing  map[string]bool
	inserted  []*models.Recipe
	existsErr error
	insertErr error
}

func (f *fakeStore) RecipeExists(ctx context.Context, videoID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.existing[videoID], nil
}

func (f *fakeStore) CreateRecipe(ctx context.Context, r *models.Recipe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, r)
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[r.VideoID] = true
	return nil
}

// panickyStore blows up on the dedup check — exercises batch supervision.
type panickyStore struct{ fakeStore }

func (p *panickyStore) RecipeExists(ctx context.Context, videoID string) (bool, error) {
	panic("store corrupted")
}

type sinkUpdate struct {
	current int
	total   int
	status  string
}

type fakeSink struct {
	updates      []sinkUpdate
	completed    bool
	successCount int
	finalStatus  string
}

func (f *fakeSink) Update(sessionID string, current, total int, status, videoTitle string) {
	f.updates = append(f.updates, sinkUpdate{current, total, status})
}

func (f *fakeSink) Complete(sessionID string, total, successCount int, status string) {
	f.completed = true
	f.successCount = successCount
	f.finalStatus = status
}

// lockedSink wraps fakeSink for tests that run workers concurrently.
type lockedSink struct {
	mu   sync.Mutex
	fake fakeSink
}

func (l *lockedSink) Update(sessionID string, current, total int, status, videoTitle string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fake.Update(sessionID, current, total, status, videoTitle)
}

func (l *lockedSink) Complete(sessionID string, total, successCount int, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fake.Complete(sessionID, total, successCount, status)
}

func (l *lockedSink) successCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fake.successCount
}

func newTestPipeline(resolver *fakeResolver, acq *fakeAcquirer, tr *fakeTranscriber, ex *fakeExtractor, store Store) *Pipeline {
	return New(resolver, acq, tr, ex, store)
}

func noReport(stage, title string) {}

// --- Pipeline.Process ---

func TestProcess_HappyPath(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "김치찌개 레시피", Description: "", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{},
		&fakeTranscriber{text: "오늘은 김치찌개를 만들어 봅시다"},
		&fakeExtractor{dish: "김치찌개", ingredients: "김치,돼지고기,두부"},
		store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusSuccess {
		t.Fatalf("Status = %q, want %q (message: %s)", outcome.Status, StatusSuccess, outcome.Message)
	}
	if outcome.DishName != "김치찌개" {
		t.Errorf("DishName = %q, want %q", outcome.DishName, "김치찌개")
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d recipes, want 1", len(store.inserted))
	}
	r := store.inserted[0]
	if r.VideoID != "vid1" || r.Ingredients != "김치,돼지고기,두부" {
		t.Errorf("inserted recipe = %+v", r)
	}
	if r.URL != "https://www.youtube.com/watch?v=vid1" {
		t.Errorf("URL = %q", r.URL)
	}
}

func TestProcess_SkipsDuplicates(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"vid1": true}}
	resolver := &fakeResolver{videos: map[string]*youtube.VideoMetadata{}}
	p := newTestPipeline(resolver, &fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{}, store)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusSkipped {
		t.Errorf("Status = %q, want %q", outcome.Status, StatusSkipped)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d recipes for a duplicate, want 0", len(store.inserted))
	}
}

func TestProcess_SecondRunIsIdempotent(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "t", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "a"}, store,
	)

	first := p.Process(context.Background(), "vid1", noReport)
	second := p.Process(context.Background(), "vid1", noReport)

	if first.Status != StatusSuccess {
		t.Errorf("first run Status = %q, want %q", first.Status, StatusSuccess)
	}
	if second.Status != StatusSkipped {
		t.Errorf("second run Status = %q, want %q", second.Status, StatusSkipped)
	}
	if len(store.inserted) != 1 {
		t.Errorf("inserted %d rows after two runs, want exactly 1", len(store.inserted))
	}
}

func TestProcess_MetadataFailureIsError(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{}}, // vid1 unknown
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{}, store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusError {
		t.Errorf("Status = %q, want %q", outcome.Status, StatusError)
	}
	if len(store.inserted) != 0 {
		t.Error("recipe inserted despite metadata failure")
	}
}

func TestProcess_FallsBackWhenAudioFails(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	extractor := &fakeExtractor{fallbackIngredients: "계란,설탕"}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "계란빵", Description: "재료: 계란, 설탕", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{err: errors.New("yt-dlp exited 1")},
		&fakeTranscriber{},
		extractor,
		store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusSuccess {
		t.Fatalf("Status = %q, want %q", outcome.Status, StatusSuccess)
	}
	if extractor.fallbackCalls != 1 {
		t.Errorf("fallback called %d times, want 1", extractor.fallbackCalls)
	}
	if store.inserted[0].Ingredients != "계란,설탕" {
		t.Errorf("Ingredients = %q, want fallback result", store.inserted[0].Ingredients)
	}
}

func TestProcess_FallsBackWhenExtractionFails(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	acq := &fakeAcquirer{}
	extractor := &fakeExtractor{err: errors.New("model returned garbage"), fallbackIngredients: "김치"}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "김치전", Description: "재료: 김치", URL: youtube.WatchURL("vid1")},
		}},
		acq,
		&fakeTranscriber{text: "대본"},
		extractor,
		store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusSuccess {
		t.Fatalf("Status = %q, want %q", outcome.Status, StatusSuccess)
	}
	if extractor.fallbackCalls != 1 {
		t.Errorf("fallback called %d times, want 1", extractor.fallbackCalls)
	}
	// The audio artifact is cleaned up even though a later stage failed.
	if acq.cleanupCalls != 1 {
		t.Errorf("Cleanup called %d times, want 1", acq.cleanupCalls)
	}
}

func TestProcess_EmptyIngredientsStillPersisted(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "브이로그", Description: "일상 브이로그입니다", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{err: errors.New("no audio")},
		&fakeTranscriber{},
		&fakeExtractor{}, // fallback yields no ingredients
		store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusSuccess {
		t.Fatalf("Status = %q, want %q", outcome.Status, StatusSuccess)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d recipes, want 1", len(store.inserted))
	}
	if store.inserted[0].Ingredients != "" {
		t.Errorf("Ingredients = %q, want empty", store.inserted[0].Ingredients)
	}
}

func TestProcess_InsertFailureIsError(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}, insertErr: errors.New("connection reset")}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "t", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "a"}, store,
	)

	outcome := p.Process(context.Background(), "vid1", noReport)

	if outcome.Status != StatusError {
		t.Errorf("Status = %q, want %q", outcome.Status, StatusError)
	}
	if !strings.Contains(outcome.Message, "failed to save") {
		t.Errorf("Message = %q, want save failure", outcome.Message)
	}
}

func TestProcess_ReportsStages(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"vid1": {Title: "제목", URL: youtube.WatchURL("vid1")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "a"}, store,
	)

	var stages []string
	p.Process(context.Background(), "vid1", func(stage, title string) {
		stages = append(stages, stage)
	})

	want := []string{stageCheckDup, stageFetchMeta, stageAcquire, stageTranscribe, stageExtract, stagePersist}
	if len(stages) != len(want) {
		t.Fatalf("stages = %v, want %v", stages, want)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Errorf("stage[%d] = %q, want %q", i, stages[i], want[i])
		}
	}
}

// --- LimitVideos ---

func TestLimitVideos(t *testing.T) {
	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("vid%d", i)
	}

	tests := []struct {
		name        string
		input       []string
		max         int
		wantLen     int
		wantOrig    int
		wantLimited bool
	}{
		{"over the cap", ids, 10, 10, 25, true},
		{"under the cap", ids[:5], 10, 5, 5, false},
		{"exactly the cap", ids[:10], 10, 10, 10, false},
		{"cap disabled", ids, 0, 25, 25, false},
		{"empty list", nil, 10, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, orig, limited := LimitVideos(tt.input, tt.max)
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
			if orig != tt.wantOrig {
				t.Errorf("original = %d, want %d", orig, tt.wantOrig)
			}
			if limited != tt.wantLimited {
				t.Errorf("limited = %v, want %v", limited, tt.wantLimited)
			}
			// Truncation keeps the head of the list.
			if tt.wantLimited && got[0] != tt.input[0] {
				t.Errorf("first = %q, want %q", got[0], tt.input[0])
			}
		})
	}
}

// --- Runner ---

func newTestRunner(p *Pipeline, sink ProgressSink, workers int) *Runner {
	r := NewRunner(p, sink, workers)
	r.itemDelay = 0 // no need to rate-limit fakes
	return r
}

func TestRun_SequentialOutcomesAndCompletion(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{"dup": true}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"ok1": {Title: "a", URL: youtube.WatchURL("ok1")},
			"ok2": {Title: "b", URL: youtube.WatchURL("ok2")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "x"}, store,
	)
	sink := &fakeSink{}
	r := newTestRunner(p, sink, 1)

	outcomes := r.Run(context.Background(), "sess", []string{"ok1", "dup", "missing", "ok2"})

	if len(outcomes) != 4 {
		t.Fatalf("got %d outcomes, want 4", len(outcomes))
	}
	wantStatuses := []Status{StatusSuccess, StatusSkipped, StatusError, StatusSuccess}
	for i, want := range wantStatuses {
		if outcomes[i].Status != want {
			t.Errorf("outcome[%d].Status = %q, want %q", i, outcomes[i].Status, want)
		}
	}

	if !sink.completed {
		t.Fatal("sink never marked completed")
	}
	if sink.successCount != 2 {
		t.Errorf("successCount = %d, want 2", sink.successCount)
	}
	if sink.finalStatus != "completed" {
		t.Errorf("finalStatus = %q, want %q", sink.finalStatus, "completed")
	}
}

func TestRun_ProgressIsMonotonic(t *testing.T) {
	store := &fakeStore{existing: map[string]bool{}}
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"v1": {Title: "a", URL: youtube.WatchURL("v1")},
			"v2": {Title: "b", URL: youtube.WatchURL("v2")},
			"v3": {Title: "c", URL: youtube.WatchURL("v3")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "x"}, store,
	)
	sink := &fakeSink{}
	r := newTestRunner(p, sink, 1)

	r.Run(context.Background(), "sess", []string{"v1", "v2", "v3"})

	prev := -1
	for i, u := range sink.updates {
		if u.current < prev {
			t.Errorf("update[%d].current = %d after %d — progress went backwards", i, u.current, prev)
		}
		prev = u.current
		if u.total != 3 {
			t.Errorf("update[%d].total = %d, want 3", i, u.total)
		}
	}
	last := sink.updates[len(sink.updates)-1]
	if last.current != 3 {
		t.Errorf("final current = %d, want 3", last.current)
	}
}

func TestRun_PanicBecomesErrorOutcome(t *testing.T) {
	p := newTestPipeline(
		&fakeResolver{videos: map[string]*youtube.VideoMetadata{
			"ok": {Title: "a", URL: youtube.WatchURL("ok")},
		}},
		&fakeAcquirer{}, &fakeTranscriber{}, &fakeExtractor{dish: "d", ingredients: "x"},
		&panickyStore{},
	)
	sink := &fakeSink{}
	r := newTestRunner(p, sink, 1)

	outcomes := r.Run(context.Background(), "sess", []string{"ok", "ok"})

	// The batch still completes; every video yields an error outcome.
	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Status != StatusError {
			t.Errorf("outcome[%d].Status = %q, want %q", i, o.Status, StatusError)
		}
		if !strings.Contains(o.Message, "internal error") {
			t.Errorf("outcome[%d].Message = %q, want internal error", i, o.Message)
		}
	}
	if !sink.completed {
		t.Error("batch with panics never marked completed")
	}
	if sink.successCount != 0 {
		t.Errorf("successCount = %d, want 0", sink.successCount)
	}
}

func TestRun_ParallelProcessesAll(t *testing.T) {
	videos := map[string]*youtube.VideoMetadata{}
	ids := make([]string, 8)
	for i := range ids {
		ids[i] = fmt.Sprintf("v%d", i)
		videos[ids[i]] = &youtube.VideoMetadata{Title: ids[i], URL: youtube.WatchURL(ids[i])}
	}
	store := &fakeStore{existing: map[string]bool{}}
	// A small transcription delay keeps multiple workers inside Process at
	// the same time, so the shared store really is hit concurrently.
	p := newTestPipeline(&fakeResolver{videos: videos}, &fakeAcquirer{}, &fakeTranscriber{delay: 2 * time.Millisecond}, &fakeExtractor{dish: "d", ingredients: "x"}, store)

	// The tracker is the real concurrent sink in production; use a
	// locked fake here to keep assertions simple.
	sink := &lockedSink{}
	r := newTestRunner(p, sink, 3)

	outcomes := r.Run(context.Background(), "sess", ids)

	if len(outcomes) != 8 {
		t.Fatalf("got %d outcomes, want 8", len(outcomes))
	}
	for i, o := range outcomes {
		if o.Status != StatusSuccess {
			t.Errorf("outcome[%d] = %q, want success", i, o.Status)
		}
		// Outcomes land at their input index regardless of worker order.
		if o.VideoID != ids[i] {
			t.Errorf("outcome[%d].VideoID = %q, want %q", i, o.VideoID, ids[i])
		}
	}
	if sink.successCount() != 8 {
		t.Errorf("successCount = %d, want 8", sink.successCount())
	}
}
