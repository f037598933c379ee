package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyConfig is returned when the YAML document has no content.
	ErrEmptyConfig = errors.New("config file is empty")
)

// envRefPattern matches ${VAR} and ${VAR:default} references in YAML values.
var envRefPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// LoadPatrolFile reads and parses a patrol YAML file. Every scalar value may
// reference environment variables as ${VAR} or ${VAR:default}; references are
// resolved against the environment tier before decoding.
func LoadPatrolFile(path string, env *Env) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("invalid YAML in %s: %w", path, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyConfig, path)
	}

	expandNode(&root, env)

	var file File
	if err := root.Decode(&file); err != nil {
		return nil, fmt.Errorf("invalid patrol config in %s: %w", path, err)
	}

	return &file, nil
}

// expandNode walks the YAML document and expands environment references in
// scalar values. Mapping keys are left untouched.
func expandNode(n *yaml.Node, env *Env) {
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, child := range n.Content {
			expandNode(child, env)
		}
	case yaml.MappingNode:
		// Content alternates key, value; only values are expanded.
		for i := 1; i < len(n.Content); i += 2 {
			expandNode(n.Content[i], env)
		}
	case yaml.ScalarNode:
		if strings.Contains(n.Value, "${") {
			n.Value = expandRefs(n.Value, env)
			// A resolved reference is always a plain scalar; drop any
			// inferred tag so "8000" can still decode into an int field.
			n.Tag = ""
			n.Style = 0
		}
	}
}

func expandRefs(value string, env *Env) string {
	return envRefPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := envRefPattern.FindStringSubmatch(match)
		if resolved := env.Lookup(groups[1]); resolved != "" {
			return resolved
		}
		return groups[2]
	})
}

// Summary describes one available patrol config for --list-examples.
type Summary struct {
	Path         string
	Name         string
	Description  string
	EnabledTasks int
	TotalTasks   int
	Err          error
}

// ListConfigs enumerates the patrol YAML files in a directory. Files that
// fail to parse are included with their error so the listing never hides a
// broken config.
func ListConfigs(dir string, env *Env) ([]Summary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory %s: %w", dir, err)
	}

	var summaries []Summary
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, name)
		file, err := LoadPatrolFile(path, env)
		if err != nil {
			summaries = append(summaries, Summary{Path: path, Err: err})
			continue
		}

		enabled := 0
		for _, t := range file.Tasks {
			if t.Enabled == nil || *t.Enabled {
				enabled++
			}
		}

		summaries = append(summaries, Summary{
			Path:         path,
			Name:         file.Name,
			Description:  file.Description,
			EnabledTasks: enabled,
			TotalTasks:   len(file.Tasks),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Path < summaries[j].Path
	})

	return summaries, nil
}
