// Package storage persists benchmark reports so runs can be reloaded and
// compared later.
package storage

import (
	"context"
	"errors"
	"time"

	"promptum/internal/benchmark"
)

// ErrNotFound is returned when a run ID has no stored report.
var ErrNotFound = errors.New("run not found")

// RunInfo is a stored run's listing entry.
type RunInfo struct {
	RunID     string    `json:"run_id"`
	Provider  string    `json:"provider,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Total     int       `json:"total"`
	Passed    int       `json:"passed"`
}

// Store persists and retrieves benchmark reports.
type Store interface {
	Save(ctx context.Context, r *benchmark.Report) error
	// Load returns ErrNotFound when no report exists for runID.
	Load(ctx context.Context, runID string) (*benchmark.Report, error)
	// List returns stored runs, most recent first.
	List(ctx context.Context) ([]RunInfo, error)
}

func infoFor(r *benchmark.Report) RunInfo {
	summary := r.Summarize()
	return RunInfo{
		RunID:     r.RunID,
		Provider:  r.Provider,
		StartedAt: r.StartedAt,
		Total:     summary.Total,
		Passed:    summary.Passed,
	}
}
