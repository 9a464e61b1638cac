package runtypes

import (
	"time"

	"github.com/google/uuid"

	"github.com/copyleftdev/uiverify/internal/scenario"
)

// Run status constants
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPassed    Status = "passed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the run will not change status again.
func (s Status) Terminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusCancelled
}

// Run is one execution of a scenario.
type Run struct {
	ID          uuid.UUID          `json:"id"`
	Scenario    *scenario.Scenario `json:"scenario"`
	Status      Status             `json:"status"`
	Result      *Result            `json:"result,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	CallbackURL string             `json:"callback_url,omitempty"`
	TargetID    string             `json:"-"`
}

// Result contains the outcome of a run.
type Result struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message,omitempty"`
	Error       string        `json:"error,omitempty"`
	FailedStep  int           `json:"failed_step"`
	Screenshots []string      `json:"screenshots,omitempty"`
	Snapshot    string        `json:"snapshot,omitempty"`
	Notes       []string      `json:"notes,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// NewRun creates a pending run for the scenario.
func NewRun(sc *scenario.Scenario, callbackURL string) *Run {
	now := time.Now().UTC()
	return &Run{
		ID:          uuid.New(),
		Scenario:    sc,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
		CallbackURL: callbackURL,
	}
}

// UpdateStatus updates the run status and timestamp
func (r *Run) UpdateStatus(status Status) {
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
}

// Name is the scenario name, or "" for a run without one.
func (r *Run) Name() string {
	if r.Scenario == nil {
		return ""
	}
	return r.Scenario.Name
}

// Strict reports whether a failure of this run should fail the invocation.
func (r *Run) Strict() bool {
	return r.Scenario != nil && r.Scenario.Strict
}
