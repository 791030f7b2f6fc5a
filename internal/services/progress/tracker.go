// Package progress tracks per-session batch progress in memory.
//
// The tracker is the one piece of shared mutable state between the batch
// workers (writers) and the status-polling handler (reader). It is an
// explicit handle constructed in main and passed to both sides — no
// package-level singleton.
package progress

import (
	"sync"
	"time"

	"github.com/CodeDanji/recipe-extractor/internal/models"
)

// Tracker is a concurrent session-keyed progress store.
type Tracker struct {
	// Go Pattern: sync.RWMutex allows multiple concurrent readers but
	// exclusive writers — pollers vastly outnumber stage transitions.
	mu       sync.RWMutex
	sessions map[string]models.ProgressRecord
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sessions: make(map[string]models.ProgressRecord),
	}
}

// Update overwrites the session's record with the current stage snapshot.
// Called on every state transition; the record is created on first use.
func (t *Tracker) Update(sessionID string, current, total int, status, videoTitle string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.sessions[sessionID]
	rec.Current = current
	rec.Total = total
	rec.Percentage = models.Percent(current, total)
	rec.Status = status
	rec.VideoTitle = videoTitle
	rec.Timestamp = time.Now()
	t.sessions[sessionID] = rec
}

// Complete marks the session finished and records the final success count.
func (t *Tracker) Complete(sessionID string, total, successCount int, status string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.sessions[sessionID]
	rec.Current = total
	rec.Total = total
	rec.Percentage = models.Percent(total, total)
	rec.Status = status
	rec.VideoTitle = ""
	rec.Timestamp = time.Now()
	rec.Completed = true
	rec.SuccessCount = successCount
	t.sessions[sessionID] = rec
}

// Get returns a snapshot of the session's record. Unknown tokens return a
// zero-valued "not started" record rather than an error — pollers can race
// the batch start without seeing failures.
func (t *Tracker) Get(sessionID string) models.ProgressRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sessions[sessionID]
}
