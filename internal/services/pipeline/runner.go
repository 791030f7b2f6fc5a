// runner.go runs the video pipeline over a whole batch.
//
// Go Pattern: The classic worker-pool shape — a jobs channel, N worker
// goroutines, a WaitGroup — bounded by the configured worker count.
// The default of one worker keeps processing strictly sequential, with a
// fixed inter-item delay to respect upstream rate limits.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// ProgressSink receives per-stage and completion updates for a session.
// *progress.Tracker satisfies this.
type ProgressSink interface {
	Update(sessionID string, current, total int, status, videoTitle string)
	Complete(sessionID string, total, successCount int, status string)
}

// sequentialDelay spaces out videos when running with a single worker.
// A policy knob for upstream rate limits, not a correctness requirement.
const sequentialDelay = time.Second

// Runner processes batches of videos through a Pipeline.
type Runner struct {
	pipeline *Pipeline
	sink     ProgressSink
	workers  int

	itemDelay time.Duration // overridable in tests
}

// NewRunner creates a batch runner with the given parallelism (min 1).
func NewRunner(p *Pipeline, sink ProgressSink, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		pipeline:  p,
		sink:      sink,
		workers:   workers,
		itemDelay: sequentialDelay,
	}
}

// LimitVideos applies the per-run cap to a resolved video list.
// Returns the (possibly truncated) list, the original count, and whether
// truncation happened.
func LimitVideos(videoIDs []string, max int) ([]string, int, bool) {
	original := len(videoIDs)
	if max > 0 && original > max {
		return videoIDs[:max], original, true
	}
	return videoIDs, original, false
}

// Run processes videoIDs under the session token, aggregating per-video
// outcomes. Individual failures never abort the batch: a panic inside one
// video's pipeline is recovered into an error outcome and processing
// continues. On return the session's progress record is marked completed
// with the final success count — even when that count is zero.
//
// Run blocks until the batch finishes; callers that want fire-and-forget
// start it in a goroutine and observe it through the progress sink.
func (r *Runner) Run(ctx context.Context, sessionID string, videoIDs []string) []Outcome {
	total := len(videoIDs)
	log.Printf("🚀 Batch %s: processing %d videos with %d worker(s)", sessionID, total, r.workers)

	r.sink.Update(sessionID, 0, total, "starting", "")

	var outcomes []Outcome
	if r.workers == 1 {
		outcomes = r.runSequential(ctx, sessionID, videoIDs)
	} else {
		outcomes = r.runParallel(ctx, sessionID, videoIDs)
	}

	successCount := 0
	for _, o := range outcomes {
		if o.Status == StatusSuccess {
			successCount++
		}
	}

	r.sink.Complete(sessionID, total, successCount, "completed")
	log.Printf("🏁 Batch %s: done — %d/%d succeeded", sessionID, successCount, total)
	return outcomes
}

func (r *Runner) runSequential(ctx context.Context, sessionID string, videoIDs []string) []Outcome {
	total := len(videoIDs)
	outcomes := make([]Outcome, 0, total)

	for i, videoID := range videoIDs {
		if i > 0 {
			select {
			case <-time.After(r.itemDelay):
			case <-ctx.Done():
			}
		}
		outcome := r.processSafely(ctx, sessionID, i, total, videoID)
		outcomes = append(outcomes, outcome)
		r.sink.Update(sessionID, i+1, total, "video completed", "")
	}

	return outcomes
}

func (r *Runner) runParallel(ctx context.Context, sessionID string, videoIDs []string) []Outcome {
	total := len(videoIDs)
	outcomes := make([]Outcome, total)

	jobs := make(chan int)

	// completed counts finished videos across workers so stage updates
	// report a non-decreasing current.
	var mu sync.Mutex
	completed := 0

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				mu.Lock()
				done := completed
				mu.Unlock()

				outcomes[i] = r.processSafely(ctx, sessionID, done, total, videoIDs[i])

				mu.Lock()
				completed++
				r.sink.Update(sessionID, completed, total, "video completed", "")
				mu.Unlock()
			}
		}()
	}

	for i := range videoIDs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// processSafely runs one video through the pipeline, converting a panic
// into an error outcome so a single bad video never takes down the batch.
func (r *Runner) processSafely(ctx context.Context, sessionID string, done, total int, videoID string) (outcome Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("❌ Panic processing %s: %v", videoID, rec)
			outcome = Outcome{
				Status:  StatusError,
				VideoID: videoID,
				Message: fmt.Sprintf("internal error: %v", rec),
			}
		}
	}()

	report := func(stage, title string) {
		r.sink.Update(sessionID, done, total, stage, title)
	}
	return r.pipeline.Process(ctx, videoID, report)
}
