// Package history persists patrol run outcomes so regressions can be traced
// across runs and devices.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

var (
	// ErrRunNotFound is returned when a recorded run is not found.
	ErrRunNotFound = errors.New("patrol run not found")

	// ErrUnsupportedDriver is returned when the history driver is unknown.
	ErrUnsupportedDriver = errors.New("unsupported history driver")
)

// Run is one recorded patrol run.
type Run struct {
	ID             uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	PatrolName     string        `json:"patrol_name" gorm:"type:varchar(255);not null;index:idx_patrol_name"`
	Description    string        `json:"description" gorm:"type:text"`
	StartedAt      time.Time     `json:"started_at" gorm:"index:idx_started_at"`
	CompletedAt    time.Time     `json:"completed_at"`
	DurationMillis int64         `json:"duration_ms"`
	TotalTasks     int           `json:"total_tasks"`
	PassedTasks    int           `json:"passed_tasks"`
	FailedTasks    int           `json:"failed_tasks"`
	SkippedTasks   int           `json:"skipped_tasks"`
	Succeeded      bool          `json:"succeeded" gorm:"index:idx_succeeded"`
	Tasks          []TaskRecord  `json:"tasks" gorm:"foreignKey:RunID"`
	CreatedAt      time.Time     `json:"created_at"`
}

// TaskRecord is one task outcome within a recorded run.
type TaskRecord struct {
	ID             uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	RunID          uuid.UUID         `json:"run_id" gorm:"type:char(36);not null;index:idx_run_id"`
	Name           string            `json:"name" gorm:"type:varchar(255);not null"`
	Status         patrol.TaskStatus `json:"status" gorm:"type:varchar(20);not null;index:idx_status"`
	DurationMillis int64             `json:"duration_ms"`
	AgentMessage   string            `json:"agent_message" gorm:"type:text"`
	Error          string            `json:"error" gorm:"type:text"`
	Validations    string            `json:"validations" gorm:"type:text"`
	Screenshot     string            `json:"screenshot" gorm:"type:varchar(512)"`
}

// Store persists and queries patrol run history.
type Store interface {
	// Record stores a completed patrol run with all of its task outcomes.
	Record(ctx context.Context, result *patrol.Result) error

	// ListRuns returns a page of runs for a patrol, newest first.
	ListRuns(ctx context.Context, patrolName string, limit, offset int) ([]*Run, error)

	// GetRun retrieves one recorded run with its task outcomes.
	GetRun(ctx context.Context, id uuid.UUID) (*Run, error)
}

// newRun converts a patrol result into its persisted form.
func newRun(result *patrol.Result) (*Run, error) {
	run := &Run{
		ID:             result.ID,
		PatrolName:     result.PatrolName,
		Description:    result.Description,
		StartedAt:      result.StartedAt,
		CompletedAt:    result.CompletedAt,
		DurationMillis: result.Duration.Milliseconds(),
		TotalTasks:     result.TotalTasks,
		PassedTasks:    result.PassedTasks,
		FailedTasks:    result.FailedTasks,
		SkippedTasks:   result.Skipped,
		Succeeded:      result.Succeeded(),
	}

	for _, task := range result.Tasks {
		record := TaskRecord{
			RunID:          result.ID,
			Name:           task.Name,
			Status:         task.Status,
			DurationMillis: task.Duration.Milliseconds(),
			AgentMessage:   task.AgentMessage,
			Error:          task.Error,
			Screenshot:     task.Screenshot,
		}
		if len(task.Validations) > 0 {
			encoded, err := json.Marshal(task.Validations)
			if err != nil {
				return nil, err
			}
			record.Validations = string(encoded)
		}
		run.Tasks = append(run.Tasks, record)
	}

	return run, nil
}

// Migrate runs the schema migrations for the history tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Run{}, &TaskRecord{})
}
