// Package status exposes run progress over HTTP for long runs.
package status

import (
	"sync"
	"time"
)

// Snapshot is one consistent view of run progress.
type Snapshot struct {
	RunID       string    `json:"runId"`
	Document    string    `json:"document"`
	State       string    `json:"state"` // "starting", "running", "waiting_quota", "completed", "failed"
	TotalPages  int       `json:"totalPages"`
	CurrentPage int       `json:"currentPage"`
	Recorded    int       `json:"recorded"`
	Attempt     int       `json:"attempt"`
	LastError   string    `json:"lastError,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
}

// Tracker holds the progress snapshot shared between the pipeline and the
// status server. A nil Tracker is valid and ignores updates.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewTracker(runID, document string) *Tracker {
	return &Tracker{
		snap: Snapshot{
			RunID:     runID,
			Document:  document,
			State:     "starting",
			StartedAt: time.Now().UTC(),
		},
	}
}

// Update applies fn to the snapshot under the lock.
func (t *Tracker) Update(fn func(*Snapshot)) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.snap)
}

// Snapshot returns a copy of the current progress.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}
