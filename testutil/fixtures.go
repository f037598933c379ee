package testutil

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/hairizuan-noorazman/phone-patrol/patrol"
)

// CreateFixture creates a fixture in the database.
func CreateFixture(t *testing.T, db *gorm.DB, model interface{}) {
	if err := db.Create(model).Error; err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
}

// CreateFixtures creates multiple fixtures in the database.
func CreateFixtures(t *testing.T, db *gorm.DB, models ...interface{}) {
	for _, model := range models {
		CreateFixture(t, db, model)
	}
}

// SamplePatrol returns a minimal valid patrol for tests.
func SamplePatrol() *patrol.Patrol {
	return &patrol.Patrol{
		Name:        "Sample patrol",
		Description: "A minimal patrol used in tests",
		Tasks: []patrol.TaskSpec{
			{
				Name:            "Open settings",
				Instruction:     "Open the settings app",
				SuccessCriteria: "The settings app is visible",
				Enabled:         true,
				Timeout:         30 * time.Second,
			},
		},
		Execution: patrol.ExecutionOptions{
			Lang:     patrol.LangEN,
			MaxSteps: 50,
		},
	}
}

// SampleResult returns a finished patrol result with one passed and one
// failed task.
func SampleResult() *patrol.Result {
	p := SamplePatrol()
	result := patrol.NewResult(p)

	passed := patrol.TaskResult{Name: "Open settings", Description: "opens settings"}
	_ = passed.Start()
	passed.AgentMessage = "Opened the settings app. Test passed"
	_ = passed.Complete(patrol.StatusPassed)
	result.Append(passed)

	failed := patrol.TaskResult{Name: "Check wifi"}
	_ = failed.Start()
	failed.AgentMessage = "Could not find the wifi toggle. Test failed"
	failed.Error = "agent judged the task as failed"
	_ = failed.Complete(patrol.StatusFailed)
	result.Append(failed)

	result.Finish()
	return result
}
