package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadPatrolFile(t *testing.T) {
	t.Run("full document", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: Test patrol
description: A test
execution:
  lang: en
  max_steps: 30
tasks:
  - name: first
    task: do something
    success_criteria: something happened
    timeout: 45
  - name: second
    task: do something else
    enabled: false
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)

		assert.Equal(t, "Test patrol", file.Name)
		assert.Equal(t, "A test", file.Description)
		require.NotNil(t, file.Execution)
		assert.Equal(t, "en", *file.Execution.Lang)
		assert.Equal(t, 30, *file.Execution.MaxSteps)

		require.Len(t, file.Tasks, 2)
		assert.Equal(t, "do something", file.Tasks[0].Task)
		assert.Equal(t, 45, *file.Tasks[0].Timeout)
		assert.Nil(t, file.Tasks[0].Enabled)
		require.NotNil(t, file.Tasks[1].Enabled)
		assert.False(t, *file.Tasks[1].Enabled)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPatrolFile(filepath.Join(t.TempDir(), "nope.yaml"), &Env{})
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "bad.yaml", "name: [unclosed")
		_, err := LoadPatrolFile(path, &Env{})
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "empty.yaml", "")
		_, err := LoadPatrolFile(path, &Env{})
		assert.ErrorIs(t, err, ErrEmptyConfig)
	})
}

func TestLoadPatrolFile_EnvExpansion(t *testing.T) {
	t.Run("expands process environment", func(t *testing.T) {
		t.Setenv("PATROL_TEST_NAME", "From env")

		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: ${PATROL_TEST_NAME}
description: uses env
tasks:
  - name: t
    task: do it
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)
		assert.Equal(t, "From env", file.Name)
	})

	t.Run("falls back to inline default", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: ${PATROL_TEST_UNSET_VAR:Fallback name}
description: uses default
tasks:
  - name: t
    task: do it
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)
		assert.Equal(t, "Fallback name", file.Name)
	})

	t.Run("unset reference without default becomes empty", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: ${PATROL_TEST_UNSET_VAR}
description: d
tasks:
  - name: t
    task: do it
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)
		assert.Empty(t, file.Name)
	})

	t.Run("expanded numeric value decodes into int field", func(t *testing.T) {
		t.Setenv("PATROL_TEST_STEPS", "25")

		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: n
description: d
execution:
  max_steps: ${PATROL_TEST_STEPS}
tasks:
  - name: t
    task: do it
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)
		require.NotNil(t, file.Execution.MaxSteps)
		assert.Equal(t, 25, *file.Execution.MaxSteps)
	})

	t.Run("expands inside a longer string", func(t *testing.T) {
		t.Setenv("PATROL_TEST_APP", "WeChat")

		path := writeConfig(t, t.TempDir(), "patrol.yaml", `
name: n
description: d
tasks:
  - name: t
    task: Open ${PATROL_TEST_APP} and wait
`)

		file, err := LoadPatrolFile(path, &Env{})
		require.NoError(t, err)
		assert.Equal(t, "Open WeChat and wait", file.Tasks[0].Task)
	})
}

func TestListConfigs(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "b_patrol.yaml", `
name: Second
description: desc
tasks:
  - name: one
    task: do it
  - name: two
    task: do it too
    enabled: false
`)
	writeConfig(t, dir, "a_patrol.yml", `
name: First
description: desc
tasks:
  - name: only
    task: do it
`)
	writeConfig(t, dir, "broken.yaml", "name: [unclosed")
	writeConfig(t, dir, "notes.txt", "not a config")
	writeConfig(t, dir, ".hidden.yaml", "name: hidden")

	summaries, err := ListConfigs(dir, &Env{})
	require.NoError(t, err)
	require.Len(t, summaries, 3)

	assert.Equal(t, "First", summaries[0].Name)
	assert.Equal(t, 1, summaries[0].EnabledTasks)

	assert.Equal(t, "Second", summaries[1].Name)
	assert.Equal(t, 1, summaries[1].EnabledTasks)
	assert.Equal(t, 2, summaries[1].TotalTasks)

	assert.Error(t, summaries[2].Err)

	t.Run("missing directory", func(t *testing.T) {
		_, err := ListConfigs(filepath.Join(dir, "nope"), &Env{})
		assert.Error(t, err)
	})
}
