// Package task tracks background download tasks. The registry is an
// explicit object injected where needed; tasks follow a single-writer
// discipline (the background goroutine driving the download) with
// snapshot reads for pollers.
package task

import (
	"sync"
	"time"

	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/resolve"
)

// Status is the lifecycle state of a download task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Task is one resolve-download-extract operation. Fraction is -1 while the
// total size is unknown. The failure reason is kept on the task so a later
// poll still sees it; tasks are never removed implicitly on read.
type Task struct {
	ID       string
	Archive  resolve.Resolved
	OutDir   string
	Status   Status
	Fraction float64
	Bytes    int64
	Total    int64

	ArchivePath string
	Extracted   []string
	Error       string

	CreatedAt   time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// Snapshot is a point-in-time copy of a task, safe to hold and pass
// around while the download goroutine keeps writing to the original.
type Snapshot struct {
	ID       string
	Archive  resolve.Resolved
	OutDir   string
	Status   Status
	Fraction float64
	Bytes    int64
	Total    int64

	ArchivePath string
	Extracted   []string
	Error       string

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Snapshot returns a copy safe to read while the download goroutine keeps
// writing.
func (t *Task) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return Snapshot{
		ID:          t.ID,
		Archive:     t.Archive,
		OutDir:      t.OutDir,
		Status:      t.Status,
		Fraction:    t.Fraction,
		Bytes:       t.Bytes,
		Total:       t.Total,
		ArchivePath: t.ArchivePath,
		Extracted:   append([]string(nil), t.Extracted...),
		Error:       t.Error,
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

// setProgress records a fetch progress report.
func (t *Task) setProgress(p fetch.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Bytes = p.Bytes
	t.Total = p.Total
	t.Fraction = p.Fraction()
}
