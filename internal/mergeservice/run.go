// Package mergeservice manages the lifecycle of merge runs submitted to
// the HTTP API or the CLI's serve mode: pending -> running ->
// completed/failed, with a timeline of stage events an operator can
// inspect while a run is in flight.
package mergeservice

import (
	"errors"
	"sync"
	"time"

	"github.com/rawblock/annomerge/internal/errs"
	"github.com/rawblock/annomerge/internal/orchestrator"
	"github.com/rawblock/annomerge/pkg/annotation"
)

// Status is a run's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// StageEvent is one entry in a run's timeline.
type StageEvent struct {
	Stage     string    `json:"stage"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Run is one merge execution: its config, status, results and
// timeline. Fields are only ever mutated through Manager methods,
// which hold the manager's lock while doing so.
type Run struct {
	ID        string              `json:"id"`
	Status    Status              `json:"status"`
	Config    orchestrator.Config `json:"config"`
	Timeline  []StageEvent        `json:"timeline"`
	Merged    []annotation.MergedItem `json:"merged,omitempty"`
	Errors    []string            `json:"errors,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Manager handles CRUD and lifecycle transitions for merge runs.
type Manager struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewManager creates a new run manager.
func NewManager() *Manager {
	return &Manager{runs: make(map[string]*Run)}
}

// Create registers a new pending run under id.
func (m *Manager) Create(id string, cfg orchestrator.Config) *Run {
	now := time.Now()
	run := &Run{
		ID:        id,
		Status:    StatusPending,
		Config:    cfg,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.runs[id] = run
	m.mu.Unlock()
	return run
}

// Get retrieves a run by id, or nil if unknown.
func (m *Manager) Get(id string) *Run {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.runs[id]
}

// List returns every run the manager knows about.
func (m *Manager) List() []*Run {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []*Run
	for _, r := range m.runs {
		list = append(list, r)
	}
	return list
}

// MarkStage appends a stage event and, for the first event of a run,
// transitions it from pending to running.
func (m *Manager) MarkStage(id, stage, detail string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return
	}
	if run.Status == StatusPending {
		run.Status = StatusRunning
	}
	run.Timeline = append(run.Timeline, StageEvent{Stage: stage, Detail: detail, Timestamp: time.Now()})
	run.UpdatedAt = time.Now()
}

// Complete records a run's final merged items and accumulated errors
// and marks it completed.
func (m *Manager) Complete(id string, merged []annotation.MergedItem, errs []error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return
	}
	run.Status = StatusCompleted
	run.Merged = merged
	for _, e := range errs {
		run.Errors = append(run.Errors, e.Error())
	}
	run.UpdatedAt = time.Now()
}

// Fail marks a run failed with a fatal, run-aborting error (e.g. a
// configuration error) rather than the accumulated quality/merge
// errors Complete records.
func (m *Manager) Fail(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	run, ok := m.runs[id]
	if !ok {
		return
	}
	run.Status = StatusFailed
	run.Errors = append(run.Errors, err.Error())
	run.UpdatedAt = time.Now()
}

// Run executes the given merge over sources, recording the pipeline's
// progress on the run's timeline and its terminal state on completion.
// It runs synchronously; callers that want concurrent runs should call
// it from their own goroutine, one per run id.
func (m *Manager) Run(id string, sources []annotation.Source) {
	m.MarkStage(id, "category-check", "")
	im := orchestrator.NewIntersectMerge(m.Get(id).Config)

	m.MarkStage(id, "merging", "")
	merged, errList := im.Run(sources)

	var cfgErr *errs.ConfigError
	if len(errList) == 1 && errors.As(errList[0], &cfgErr) {
		m.MarkStage(id, "aborted", cfgErr.Error())
		m.Fail(id, cfgErr)
		return
	}

	m.MarkStage(id, "done", "")
	m.Complete(id, merged, errList)
}
