// Package catalog loads workflow definitions from YAML files and serves
// them to the engine through an in-memory, reload-safe registry.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/stageflow/workflow"
)

// Loader reads workflow definitions from disk. Each YAML file holds one
// definition. Malformed or invalid files are skipped with a warning so a
// half-edited definition never takes down the rest of the catalog.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadFile reads, normalizes, and validates a single definition file.
// Stages with no declared kind default to linear.
func (l *Loader) LoadFile(path string) (*workflow.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}

	var def workflow.Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition %s: %w", path, err)
	}

	for i := range def.Stages {
		if def.Stages[i].Kind == "" {
			def.Stages[i].Kind = workflow.KindLinear
		}
	}

	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", path, err)
	}

	return &def, nil
}

// LoadFailure describes a definition file that failed to load.
type LoadFailure struct {
	Path string
	Err  error
}

// LoadGlob loads every definition matched by the given glob patterns.
// Patterns support doublestar recursion, e.g. "workflows/**/*.yaml".
// Files that fail to load are logged and skipped; duplicate workflow ids
// keep the first occurrence.
func (l *Loader) LoadGlob(patterns []string) ([]*workflow.Definition, error) {
	defs, _, err := l.LoadGlobReport(patterns)
	return defs, err
}

// LoadGlobReport is LoadGlob plus the per-file failures, for callers
// that need to surface them rather than just log them.
func (l *Loader) LoadGlobReport(patterns []string) ([]*workflow.Definition, []LoadFailure, error) {
	var defs []*workflow.Definition
	var failures []LoadFailure
	seen := make(map[string]string)
	visited := make(map[string]bool)

	for _, pattern := range patterns {
		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, path := range matches {
			if !IsDefinitionFile(path) || visited[path] {
				continue
			}
			visited[path] = true

			def, err := l.LoadFile(path)
			if err != nil {
				l.logger.Warn("Skipping definition file",
					"path", path,
					"error", err)
				failures = append(failures, LoadFailure{Path: path, Err: err})
				continue
			}

			if prev, dup := seen[def.ID]; dup {
				l.logger.Warn("Duplicate workflow id, keeping first",
					"id", def.ID,
					"kept", prev,
					"skipped", path)
				continue
			}
			seen[def.ID] = path
			defs = append(defs, def)

			l.logger.Debug("Loaded workflow definition",
				"id", def.ID,
				"stages", len(def.Stages),
				"path", path)
		}
	}

	return defs, failures, nil
}

// IsDefinitionFile reports whether a path looks like a workflow
// definition file.
func IsDefinitionFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
