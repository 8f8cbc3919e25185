// Package history records job run outcomes. A Store keeps a bounded
// window of runs for the inspection API; old rows are pruned by a
// scheduled job rather than on write.
package history

import (
	"context"
	"time"
)

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeError   Outcome = "error"
	OutcomePanic   Outcome = "panic"
)

// Run is one recorded job execution.
type Run struct {
	ID       int64         `json:"id"`
	Job      string        `json:"job"`
	Due      time.Time     `json:"due"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Outcome  Outcome       `json:"outcome"`
	Error    string        `json:"error,omitempty"`
}

// Store persists run records.
type Store interface {
	// Save appends a run record and returns its assigned ID.
	Save(ctx context.Context, run Run) (int64, error)
	// Recent returns up to limit runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)
	// Counts returns the number of stored runs per outcome.
	Counts(ctx context.Context) (map[Outcome]int64, error)
	// Prune deletes runs started before the cutoff and reports how
	// many rows went away.
	Prune(ctx context.Context, olderThan time.Time) (int64, error)
	// Close releases the underlying database resources.
	Close() error
}
