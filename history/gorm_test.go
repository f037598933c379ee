package history

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hairizuan-noorazman/phone-patrol/logger"
	"github.com/hairizuan-noorazman/phone-patrol/patrol"
	"github.com/hairizuan-noorazman/phone-patrol/testutil"
)

func setupStore(t *testing.T) *GormStore {
	t.Helper()
	db := testutil.SetupTestDB(t)
	testutil.MigrateTestDB(t, db, &Run{}, &TaskRecord{})
	return NewGormStore(db, logger.NewTestLogger())
}

func TestNewStore(t *testing.T) {
	t.Run("sqlite file store", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "history.db")
		store, err := NewStore(patrol.HistoryOptions{Driver: "sqlite", DSN: dsn}, logger.NewTestLogger())
		require.NoError(t, err)

		require.NoError(t, store.Record(context.Background(), testutil.SampleResult()))
	})

	t.Run("empty driver defaults to sqlite", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "history.db")
		_, err := NewStore(patrol.HistoryOptions{DSN: dsn}, logger.NewTestLogger())
		assert.NoError(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewStore(patrol.HistoryOptions{Driver: "postgres"}, logger.NewTestLogger())
		assert.ErrorIs(t, err, ErrUnsupportedDriver)
	})
}

func TestGormStore_Record(t *testing.T) {
	store := setupStore(t)
	result := testutil.SampleResult()
	result.Tasks[1].Validations = []patrol.ValidationOutcome{
		{Name: "in app", Passed: false, Message: "wrong app"},
	}

	require.NoError(t, store.Record(context.Background(), result))

	run, err := store.GetRun(context.Background(), result.ID)
	require.NoError(t, err)

	assert.Equal(t, result.PatrolName, run.PatrolName)
	assert.Equal(t, result.TotalTasks, run.TotalTasks)
	assert.Equal(t, result.PassedTasks, run.PassedTasks)
	assert.Equal(t, result.FailedTasks, run.FailedTasks)
	assert.False(t, run.Succeeded)

	require.Len(t, run.Tasks, 2)
	assert.Equal(t, "Open settings", run.Tasks[0].Name)
	assert.Equal(t, patrol.StatusPassed, run.Tasks[0].Status)
	assert.Equal(t, patrol.StatusFailed, run.Tasks[1].Status)
	assert.Contains(t, run.Tasks[1].Validations, "wrong app")
}

func TestGormStore_ListRuns(t *testing.T) {
	store := setupStore(t)

	for i := 0; i < 3; i++ {
		result := testutil.SampleResult()
		result.ID = uuid.New()
		require.NoError(t, store.Record(context.Background(), result))
	}

	other := testutil.SampleResult()
	other.ID = uuid.New()
	other.PatrolName = "Other patrol"
	require.NoError(t, store.Record(context.Background(), other))

	runs, err := store.ListRuns(context.Background(), "Sample patrol", 10, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	t.Run("limit and offset are respected", func(t *testing.T) {
		runs, err := store.ListRuns(context.Background(), "Sample patrol", 2, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 2)

		runs, err = store.ListRuns(context.Background(), "Sample patrol", 2, 2)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
	})

	t.Run("unknown patrol returns empty list", func(t *testing.T) {
		runs, err := store.ListRuns(context.Background(), "nope", 10, 0)
		require.NoError(t, err)
		assert.Empty(t, runs)
	})
}

func TestGormStore_GetRun_NotFound(t *testing.T) {
	store := setupStore(t)

	_, err := store.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrRunNotFound)
}
