// Package state records script run history in SQLite.
package state

import (
	"context"
	"time"
)

// RunStatus is the outcome of a run.
type RunStatus string

// Run statuses.
const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one executed script.
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name" yaml:"name"`
	Source     string        `json:"source" yaml:"source"`
	Status     RunStatus     `json:"status" yaml:"status"`
	ShapeCount int           `json:"shape_count" yaml:"shape_count"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
}

// Store persists run history.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	Close() error
}
