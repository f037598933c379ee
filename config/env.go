package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Env is the environment tier of the configuration merge. Values from a .env
// file take precedence over the process environment; both sit below YAML and
// above code defaults.
type Env struct {
	dotenv *viper.Viper
	file   string
}

// LoadEnv builds the environment tier. The .env file is discovered in the
// working directory first, then in the nearest enclosing project root. A
// missing .env file is not an error; the tier then only reflects the process
// environment.
func LoadEnv() (*Env, error) {
	path := FindEnvFile()
	if path == "" {
		return &Env{}, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return &Env{dotenv: v, file: path}, nil
}

// File returns the path of the loaded .env file, or "" when none was found.
func (e *Env) File() string {
	return e.file
}

// Lookup resolves the first key that has a value, checking the .env file
// before the process environment for each key in turn.
func (e *Env) Lookup(keys ...string) string {
	for _, key := range keys {
		if e.dotenv != nil && e.dotenv.IsSet(key) {
			if val := e.dotenv.GetString(key); val != "" {
				return val
			}
		}
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

// FindEnvFile locates a .env file, checking the working directory first and
// then walking up to a project root marked by .git or go.mod.
func FindEnvFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	candidate := filepath.Join(cwd, ".env")
	if fileExists(candidate) {
		return candidate
	}

	if root := findProjectRoot(cwd); root != "" {
		candidate = filepath.Join(root, ".env")
		if fileExists(candidate) {
			return candidate
		}
	}

	return ""
}

func findProjectRoot(start string) string {
	markers := []string{".git", "go.mod"}

	dir := start
	for {
		for _, marker := range markers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
