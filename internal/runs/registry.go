package runs

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/sku-price-scraper/internal/models"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Run struct {
	ID          string           `json:"id"`
	Status      Status           `json:"status"`
	Total       int              `json:"total"`
	Outcomes    []models.Outcome `json:"outcomes,omitempty"`
	Summary     *models.Summary  `json:"summary,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Registry tracks runs in memory. Runs do not survive a restart.
type Registry struct {
	mu   sync.RWMutex
	runs map[string]*Run
	now  func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		runs: make(map[string]*Run),
		now:  time.Now,
	}
}

func (r *Registry) Create(total int) *Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Total:     total,
		CreatedAt: r.now(),
	}
	r.runs[run.ID] = run
	return run.clone()
}

// Get returns a copy so callers never race with updates.
func (r *Registry) Get(id string) (*Run, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, exists := r.runs[id]
	if !exists {
		return nil, false
	}
	return run.clone(), true
}

// List returns all runs, newest first.
func (r *Registry) List() []*Run {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Run, 0, len(r.runs))
	for _, run := range r.runs {
		c := run.clone()
		c.Outcomes = nil
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list
}

func (r *Registry) Start(id string) error {
	return r.update(id, func(run *Run) {
		now := r.now()
		run.Status = StatusRunning
		run.StartedAt = &now
	})
}

func (r *Registry) Complete(id string, outcomes []models.Outcome) error {
	return r.update(id, func(run *Run) {
		now := r.now()
		summary := models.Summarize(outcomes)
		run.Status = StatusCompleted
		run.Outcomes = append([]models.Outcome(nil), outcomes...)
		run.Summary = &summary
		run.CompletedAt = &now
	})
}

// Fail records err and keeps any outcomes gathered before the failure.
func (r *Registry) Fail(id string, outcomes []models.Outcome, err error) error {
	return r.update(id, func(run *Run) {
		now := r.now()
		summary := models.Summarize(outcomes)
		run.Status = StatusFailed
		run.Outcomes = append([]models.Outcome(nil), outcomes...)
		run.Summary = &summary
		run.Error = err.Error()
		run.CompletedAt = &now
	})
}

func (r *Registry) GetStats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]int)
	for _, run := range r.runs {
		stats[string(run.Status)]++
	}
	stats["total"] = len(r.runs)
	return stats
}

func (r *Registry) update(id string, fn func(*Run)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, exists := r.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}
	fn(run)
	return nil
}

func (run *Run) clone() *Run {
	c := *run
	c.Outcomes = append([]models.Outcome(nil), run.Outcomes...)
	if run.Summary != nil {
		s := *run.Summary
		c.Summary = &s
	}
	return &c
}
