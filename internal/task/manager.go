package task

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/specfetch/specfetch/internal/fetch"
	"github.com/specfetch/specfetch/internal/resolve"
)

// DefaultRetention is how long terminal tasks stay pollable before the
// janitor evicts them.
const DefaultRetention = time.Hour

// Manager is the shared task registry. Reads (status polls) and writes
// (progress updates) may come from different goroutines; each task has at
// most one writer. Started tasks cannot be cancelled.
type Manager struct {
	mu     sync.RWMutex
	tasks  map[string]*Task
	logger *slog.Logger
}

// NewManager creates an empty registry.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		tasks:  make(map[string]*Task),
		logger: logger,
	}
}

// Create registers a pending task for a resolved archive and returns it.
// IDs are short uuid prefixes, unique within a process lifetime.
func (m *Manager) Create(archive resolve.Resolved, outDir string) *Task {
	t := &Task{
		ID:        uuid.New().String()[:8],
		Archive:   archive,
		OutDir:    outDir,
		Status:    StatusPending,
		Fraction:  -1,
		Total:     -1,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	m.logger.Info("task created", "task_id", t.ID, "spec", archive.Key.String(), "url", archive.URL)
	return t
}

// Get returns a snapshot of the task, or false if the ID is unknown or the
// task has been evicted.
func (m *Manager) Get(id string) (Snapshot, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return Snapshot{}, false
	}
	return t.Snapshot(), true
}

// Claim hands out the task for starting. It succeeds at most once per
// task: a second claim, or a claim of an already-started task, returns
// false. A non-empty outDir overrides the directory set at creation.
func (m *Manager) Claim(id, outDir string) (*Task, bool) {
	m.mu.RLock()
	t, ok := m.tasks[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Status != StatusPending {
		return nil, false
	}
	t.Status = StatusRunning
	if outDir != "" {
		t.OutDir = outDir
	}
	return t, true
}

// List returns snapshots of all tasks, most recent first.
func (m *Manager) List() []Snapshot {
	m.mu.RLock()
	out := make([]Snapshot, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, t.Snapshot())
	}
	m.mu.RUnlock()

	slices.SortFunc(out, func(a, b Snapshot) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// SetRunning marks the task as running.
func (m *Manager) SetRunning(t *Task) {
	t.mu.Lock()
	t.Status = StatusRunning
	t.mu.Unlock()
}

// SetProgress records a download progress report on the task.
func (m *Manager) SetProgress(t *Task, p fetch.Progress) {
	t.setProgress(p)
}

// Complete marks the task completed with its local results.
func (m *Manager) Complete(t *Task, archivePath string, extracted []string) {
	now := time.Now()
	t.mu.Lock()
	t.Status = StatusCompleted
	t.Fraction = 1
	t.ArchivePath = archivePath
	t.Extracted = extracted
	t.CompletedAt = &now
	t.mu.Unlock()

	m.logger.Info("task completed", "task_id", t.ID, "archive", archivePath, "extracted", len(extracted))
}

// Fail marks the task failed, keeping the reason for later polls.
func (m *Manager) Fail(t *Task, err error) {
	now := time.Now()
	t.mu.Lock()
	t.Status = StatusFailed
	t.Error = err.Error()
	t.CompletedAt = &now
	t.mu.Unlock()

	m.logger.Error("task failed", "task_id", t.ID, "error", err)
}

// Evict drops terminal tasks whose completion is older than retention and
// pending tasks never started within the same window. Running tasks are
// kept regardless. Returns the number evicted.
func (m *Manager) Evict(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, t := range m.tasks {
		snap := t.Snapshot()
		switch {
		case snap.Status.Terminal() && snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff):
			delete(m.tasks, id)
			n++
		case snap.Status == StatusPending && snap.CreatedAt.Before(cutoff):
			delete(m.tasks, id)
			n++
		}
	}
	if n > 0 {
		m.logger.Debug("evicted tasks", "count", n)
	}
	return n
}

// StartJanitor evicts expired tasks every interval until ctx is cancelled.
func (m *Manager) StartJanitor(ctx context.Context, interval, retention time.Duration) {
	if interval <= 0 {
		interval = retention / 4
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Evict(retention)
			}
		}
	}()
}
