package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir stands in for t.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("failed to restore working directory: %v", err)
		}
	})
}

func writeEnvFile(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write .env file: %v", err)
	}
	return path
}

func TestLoadEnv(t *testing.T) {
	t.Run("no env file present", func(t *testing.T) {
		chdir(t, t.TempDir())

		env, err := LoadEnv()
		require.NoError(t, err)
		assert.Empty(t, env.File())
	})

	t.Run("env file in working directory", func(t *testing.T) {
		dir := t.TempDir()
		path := writeEnvFile(t, dir, "PATROL_ENV_TEST_KEY=from-dotenv\n")
		chdir(t, dir)

		env, err := LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, path, env.File())
		assert.Equal(t, "from-dotenv", env.Lookup("PATROL_ENV_TEST_KEY"))
	})

	t.Run("env file at project root", func(t *testing.T) {
		root := t.TempDir()
		writeEnvFile(t, root, "PATROL_ENV_TEST_KEY=from-root\n")
		// A .git marker makes root a project root for the walk-up.
		require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

		sub := filepath.Join(root, "configs", "daily")
		require.NoError(t, os.MkdirAll(sub, 0o755))
		chdir(t, sub)

		env, err := LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, "from-root", env.Lookup("PATROL_ENV_TEST_KEY"))
	})
}

func TestEnv_Lookup(t *testing.T) {
	t.Run("dotenv value beats process environment", func(t *testing.T) {
		dir := t.TempDir()
		writeEnvFile(t, dir, "PATROL_ENV_TEST_KEY=from-dotenv\n")
		chdir(t, dir)
		t.Setenv("PATROL_ENV_TEST_KEY", "from-process")

		env, err := LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, "from-dotenv", env.Lookup("PATROL_ENV_TEST_KEY"))
	})

	t.Run("falls back to process environment", func(t *testing.T) {
		chdir(t, t.TempDir())
		t.Setenv("PATROL_ENV_TEST_KEY", "from-process")

		env, err := LoadEnv()
		require.NoError(t, err)
		assert.Equal(t, "from-process", env.Lookup("PATROL_ENV_TEST_KEY"))
	})

	t.Run("first key with a value wins", func(t *testing.T) {
		t.Setenv("PATROL_ENV_SECOND", "second")

		env := &Env{}
		assert.Equal(t, "second", env.Lookup("PATROL_ENV_FIRST", "PATROL_ENV_SECOND"))
	})

	t.Run("no value anywhere", func(t *testing.T) {
		env := &Env{}
		assert.Empty(t, env.Lookup("PATROL_ENV_DOES_NOT_EXIST"))
	})
}
