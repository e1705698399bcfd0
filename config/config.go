// Package config provides configuration loading and management for
// Stageflow.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Stageflow configuration. Behavior
// knobs are explicit fields passed into the orchestration layer, never
// ambient globals, so the engine stays side-effect-free and testable.
type Config struct {
	Definitions DefinitionsConfig `yaml:"definitions"`
	Events      EventsConfig      `yaml:"events"`
	Behavior    BehaviorConfig    `yaml:"behavior"`
}

// DefinitionsConfig configures where workflow definitions are loaded from.
type DefinitionsConfig struct {
	// Paths are glob patterns for definition files, e.g. "workflows/**/*.yaml".
	Paths []string `yaml:"paths"`
	// Watch enables hot reload of definition files.
	Watch bool `yaml:"watch"`
	// DebounceDelay is how long the watcher waits for further changes
	// before reloading.
	DebounceDelay time.Duration `yaml:"debounce_delay"`
}

// EventsConfig configures the optional NATS event publisher.
type EventsConfig struct {
	// Enabled turns event publishing on.
	Enabled bool `yaml:"enabled"`
	// URL is the NATS server URL.
	URL string `yaml:"url"`
}

// BehaviorConfig holds the orchestration flags consumed by the
// document-facing caller alongside engine results. The fields are
// pointers so a layered config file can explicitly disable a flag whose
// default is on; nil means "not set here", and the Enabled accessors
// apply the defaults.
type BehaviorConfig struct {
	// RemoveStageMarker tells the task-text mutator to strip the stage
	// annotation from a completed task. Default: true.
	RemoveStageMarker *bool `yaml:"remove_stage_marker"`
	// AppendTimestamp tells the mutator to stamp completed tasks.
	// Default: false.
	AppendTimestamp *bool `yaml:"append_timestamp"`
	// CumulativeTime enables total-elapsed aggregation when a workflow
	// reaches a final stage. Default: true.
	CumulativeTime *bool `yaml:"cumulative_time"`
}

// RemoveStageMarkerEnabled reports the effective flag value.
func (b BehaviorConfig) RemoveStageMarkerEnabled() bool {
	return b.RemoveStageMarker == nil || *b.RemoveStageMarker
}

// AppendTimestampEnabled reports the effective flag value.
func (b BehaviorConfig) AppendTimestampEnabled() bool {
	return b.AppendTimestamp != nil && *b.AppendTimestamp
}

// CumulativeTimeEnabled reports the effective flag value.
func (b BehaviorConfig) CumulativeTimeEnabled() bool {
	return b.CumulativeTime == nil || *b.CumulativeTime
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Definitions: DefinitionsConfig{
			Paths:         []string{"workflows/*.yaml"},
			Watch:         false,
			DebounceDelay: 250 * time.Millisecond,
		},
		Events: EventsConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Behavior: BehaviorConfig{
			RemoveStageMarker: boolPtr(true),
			AppendTimestamp:   boolPtr(false),
			CumulativeTime:    boolPtr(true),
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Definitions.Paths) == 0 {
		return fmt.Errorf("definitions.paths is required")
	}
	if c.Definitions.DebounceDelay < 0 {
		return fmt.Errorf("definitions.debounce_delay must not be negative")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("events.url is required when events are enabled")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one. Other takes precedence for
// values it sets. Behavior flags are pointers, so an explicit false in a
// later layer overrides an earlier true; the plain booleans here default
// to false and therefore only upgrade.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Definitions.Paths) > 0 {
		c.Definitions.Paths = other.Definitions.Paths
	}
	if other.Definitions.Watch {
		c.Definitions.Watch = true
	}
	if other.Definitions.DebounceDelay != 0 {
		c.Definitions.DebounceDelay = other.Definitions.DebounceDelay
	}

	if other.Events.Enabled {
		c.Events.Enabled = true
	}
	if other.Events.URL != "" {
		c.Events.URL = other.Events.URL
	}

	if other.Behavior.RemoveStageMarker != nil {
		c.Behavior.RemoveStageMarker = other.Behavior.RemoveStageMarker
	}
	if other.Behavior.AppendTimestamp != nil {
		c.Behavior.AppendTimestamp = other.Behavior.AppendTimestamp
	}
	if other.Behavior.CumulativeTime != nil {
		c.Behavior.CumulativeTime = other.Behavior.CumulativeTime
	}
}
