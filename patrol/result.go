package patrol

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidStatus is returned when a task status is invalid.
	ErrInvalidStatus = errors.New("invalid task status")

	// ErrTaskNotRunning is returned when completing a task result that is not running.
	ErrTaskNotRunning = errors.New("task is not running")

	// ErrTaskAlreadyStarted is returned when starting an already started task result.
	ErrTaskAlreadyStarted = errors.New("task already started")
)

// TaskStatus represents the outcome of a single patrol task.
type TaskStatus string

const (
	StatusPending TaskStatus = "pending"
	StatusRunning TaskStatus = "running"
	StatusPassed  TaskStatus = "passed"
	StatusFailed  TaskStatus = "failed"
	StatusTimeout TaskStatus = "timeout"
	StatusSkipped TaskStatus = "skipped"
)

// IsValid checks if the status is valid.
func (s TaskStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusPassed, StatusFailed, StatusTimeout, StatusSkipped:
		return true
	default:
		return false
	}
}

// IsTerminal checks if the status is a final status (can't be changed).
func (s TaskStatus) IsTerminal() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusTimeout || s == StatusSkipped
}

// IsFailure reports whether the status counts against the patrol. Timeouts
// count as failures; skipped tasks count as neither.
func (s TaskStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusTimeout
}

// ValidationOutcome records the result of one additional validation rule.
type ValidationOutcome struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// TaskResult is the recorded outcome of one task execution.
type TaskResult struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Status       TaskStatus          `json:"status"`
	StartedAt    *time.Time          `json:"started_at,omitempty"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
	Duration     time.Duration       `json:"duration_ns"`
	AgentMessage string              `json:"agent_message,omitempty"`
	DetectedApp  string              `json:"detected_app,omitempty"`
	Screenshot   string              `json:"screenshot,omitempty"`
	Validations  []ValidationOutcome `json:"validations,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// Start marks the task result as running and stamps the start time.
// Returns an error if the task has already been started.
func (r *TaskResult) Start() error {
	if r.StartedAt != nil {
		return ErrTaskAlreadyStarted
	}
	now := time.Now()
	r.StartedAt = &now
	r.Status = StatusRunning
	return nil
}

// Complete sets the final status and stamps the completion time and duration.
// Returns an error if the task is not currently running or the status is not
// terminal.
func (r *TaskResult) Complete(status TaskStatus) error {
	if r.Status != StatusRunning {
		return ErrTaskNotRunning
	}
	if !status.IsTerminal() {
		return ErrInvalidStatus
	}
	now := time.Now()
	r.CompletedAt = &now
	r.Status = status
	if r.StartedAt != nil {
		r.Duration = now.Sub(*r.StartedAt)
	}
	return nil
}

// DiscoveredPage is one page found during auto patrol exploration.
type DiscoveredPage struct {
	Name   string `json:"name"`
	Tested bool   `json:"tested"`
	Result string `json:"result,omitempty"`
}

// ExplorationSummary aggregates auto patrol findings.
type ExplorationSummary struct {
	PagesDiscovered int              `json:"pages_discovered"`
	PagesTested     int              `json:"pages_tested"`
	Completed       bool             `json:"completed"`
	Pages           []DiscoveredPage `json:"pages,omitempty"`
}

// Result is the aggregate outcome of one patrol run. Produced once per run by
// the executor and consumed by the reporter and the history store.
type Result struct {
	ID          uuid.UUID           `json:"id"`
	PatrolName  string              `json:"patrol_name"`
	Description string              `json:"description"`
	StartedAt   time.Time           `json:"started_at"`
	CompletedAt time.Time           `json:"completed_at"`
	Duration    time.Duration       `json:"duration_ns"`
	TotalTasks  int                 `json:"total_tasks"`
	PassedTasks int                 `json:"passed_tasks"`
	FailedTasks int                 `json:"failed_tasks"`
	Skipped     int                 `json:"skipped_tasks"`
	Tasks       []TaskResult        `json:"tasks"`
	Exploration *ExplorationSummary `json:"exploration,omitempty"`
}

// NewResult creates an empty result for the given patrol.
func NewResult(p *Patrol) *Result {
	return &Result{
		ID:          uuid.New(),
		PatrolName:  p.Name,
		Description: p.Description,
		StartedAt:   time.Now(),
	}
}

// Append records a task result and updates the counters. Skipped tasks are
// tracked separately and never counted toward total/passed/failed.
func (r *Result) Append(task TaskResult) {
	r.Tasks = append(r.Tasks, task)
	switch {
	case task.Status == StatusSkipped:
		r.Skipped++
	case task.Status == StatusPassed:
		r.TotalTasks++
		r.PassedTasks++
	case task.Status.IsFailure():
		r.TotalTasks++
		r.FailedTasks++
	}
}

// Finish stamps the completion time and total duration.
func (r *Result) Finish() {
	r.CompletedAt = time.Now()
	r.Duration = r.CompletedAt.Sub(r.StartedAt)
}

// Succeeded reports whether every counted task passed.
func (r *Result) Succeeded() bool {
	return r.FailedTasks == 0
}

// SuccessRate returns the pass percentage over counted tasks.
func (r *Result) SuccessRate() float64 {
	if r.TotalTasks == 0 {
		return 0
	}
	return float64(r.PassedTasks) / float64(r.TotalTasks) * 100
}

// FailedResults returns the task results that count as failures.
func (r *Result) FailedResults() []TaskResult {
	var failed []TaskResult
	for _, t := range r.Tasks {
		if t.Status.IsFailure() {
			failed = append(failed, t)
		}
	}
	return failed
}

// ScheduledSummary aggregates the outcome of a scheduled patrol session.
type ScheduledSummary struct {
	PatrolName     string        `json:"patrol_name"`
	Description    string        `json:"description"`
	TotalRuns      int           `json:"total_runs"`
	SuccessfulRuns int           `json:"successful_runs"`
	FailedRuns     int           `json:"failed_runs"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	Duration       time.Duration `json:"duration_ns"`
	LastRun        *Result       `json:"last_run,omitempty"`
}

// SuccessRate returns the percentage of runs where every task passed.
func (s *ScheduledSummary) SuccessRate() float64 {
	if s.TotalRuns == 0 {
		return 0
	}
	return float64(s.SuccessfulRuns) / float64(s.TotalRuns) * 100
}
