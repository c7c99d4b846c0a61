// Package config loads the daemon configuration from a YAML file and
// supplies defaults for everything left unset. The core treats the loaded
// values as read-only; reconfiguration means reloading and restarting the
// scheduler.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the daemon looks for its configuration.
const DefaultPath = ".modforge/config.yaml"

// Duration wraps time.Duration so YAML files can use "90s"/"5m" syntax.
// Bare integers are accepted as nanoseconds for backwards compatibility.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, perr := time.ParseDuration(s)
		if perr != nil {
			return fmt.Errorf("invalid duration %q: %w", s, perr)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// Config is the full daemon configuration as stored on disk. Duration
// fields use Go duration syntax ("90s", "5m").
type Config struct {
	// Build holds problem collection settings
	Build BuildConfig `yaml:"build"`

	// Repair holds resolution pipeline settings
	Repair RepairConfig `yaml:"repair"`

	// Patterns holds pattern store settings
	Patterns PatternsConfig `yaml:"patterns"`

	// Memory holds pressure monitor settings
	Memory MemoryConfig `yaml:"memory"`

	// Scheduler holds repair loop cadence settings
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// BuildConfig configures how problems are collected.
type BuildConfig struct {
	// Command is the build command whose diagnostics are parsed,
	// split into argv form (e.g. ["go", "build", "./..."])
	Command []string `yaml:"command"`

	// Dir is the working directory for the build command
	Dir string `yaml:"dir"`

	// Watch enables change-triggered scans via the filesystem watcher
	Watch bool `yaml:"watch"`

	// WatchExtensions limits change triggers to these file extensions
	// (default: .go .java .kt)
	WatchExtensions []string `yaml:"watch_extensions"`
}

// RepairConfig configures the resolution pipeline.
type RepairConfig struct {
	// MaxAttemptsPerFile bounds automatic fix attempts per file (default 3)
	MaxAttemptsPerFile int `yaml:"max_attempts_per_file"`

	// FallbackTimeout bounds each external fix-generation call (default 30s)
	FallbackTimeout Duration `yaml:"fallback_timeout"`

	// Language is passed to the fix generator (default "java")
	Language string `yaml:"language"`

	// Workers bounds concurrent per-file resolutions (default 4)
	Workers int `yaml:"workers"`
}

// PatternsConfig configures the pattern store and matcher.
type PatternsConfig struct {
	// Path is the SQLite database file (default ".modforge/patterns.db";
	// ":memory:" for tests)
	Path string `yaml:"path"`

	// SimilarityThreshold is the minimum Jaccard score for a match (default 0.7)
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// LearningEnabled controls whether fallback successes are stored (default true)
	LearningEnabled bool `yaml:"learning_enabled"`

	// Capacity caps stored patterns; lowest success count evicted first
	// (0 = default 2000, negative = unbounded)
	Capacity int `yaml:"capacity"`

	// ScopeTags are attached to newly learned patterns (e.g. toolchain name)
	ScopeTags []string `yaml:"scope_tags"`
}

// MemoryConfig configures the pressure monitor.
type MemoryConfig struct {
	// SampleInterval is how often memory is sampled (default 60s)
	SampleInterval Duration `yaml:"sample_interval"`

	// MaxBytes is the memory ceiling usage is measured against
	// (default: GOMEMLIMIT when set, otherwise 4 GiB)
	MaxBytes uint64 `yaml:"max_bytes"`

	// WarningPercent, CriticalPercent, EmergencyPercent are the level
	// thresholds (defaults 70, 85, 95)
	WarningPercent   float64 `yaml:"warning_percent"`
	CriticalPercent  float64 `yaml:"critical_percent"`
	EmergencyPercent float64 `yaml:"emergency_percent"`

	// TempDir is purged by aggressive mitigation (default ".modforge/tmp")
	TempDir string `yaml:"temp_dir"`
}

// SchedulerConfig configures the repair loop cadence.
type SchedulerConfig struct {
	// Intervals maps pressure levels to scan intervals. Shortest at
	// NORMAL, longest at EMERGENCY.
	NormalInterval    Duration `yaml:"normal_interval"`
	WarningInterval   Duration `yaml:"warning_interval"`
	CriticalInterval  Duration `yaml:"critical_interval"`
	EmergencyInterval Duration `yaml:"emergency_interval"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Build: BuildConfig{
			Command:         []string{"go", "build", "./..."},
			Dir:             ".",
			Watch:           false,
			WatchExtensions: []string{".go", ".java", ".kt"},
		},
		Repair: RepairConfig{
			MaxAttemptsPerFile: 3,
			FallbackTimeout:    Duration(30 * time.Second),
			Language:           "java",
			Workers:            4,
		},
		Patterns: PatternsConfig{
			Path:                ".modforge/patterns.db",
			SimilarityThreshold: 0.7,
			LearningEnabled:     true,
			Capacity:            2000,
		},
		Memory: MemoryConfig{
			SampleInterval:   Duration(60 * time.Second),
			WarningPercent:   70,
			CriticalPercent:  85,
			EmergencyPercent: 95,
			TempDir:          ".modforge/tmp",
		},
		Scheduler: SchedulerConfig{
			NormalInterval:    Duration(1 * time.Minute),
			WarningInterval:   Duration(2 * time.Minute),
			CriticalInterval:  Duration(5 * time.Minute),
			EmergencyInterval: Duration(10 * time.Minute),
		},
	}
}

// Load reads configuration from path, filling unset fields with defaults.
// A missing file returns the defaults without error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero values left by a partial YAML file.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if len(cfg.Build.Command) == 0 {
		cfg.Build.Command = def.Build.Command
	}
	if cfg.Build.Dir == "" {
		cfg.Build.Dir = def.Build.Dir
	}
	if len(cfg.Build.WatchExtensions) == 0 {
		cfg.Build.WatchExtensions = def.Build.WatchExtensions
	}
	if cfg.Repair.MaxAttemptsPerFile == 0 {
		cfg.Repair.MaxAttemptsPerFile = def.Repair.MaxAttemptsPerFile
	}
	if cfg.Repair.FallbackTimeout == 0 {
		cfg.Repair.FallbackTimeout = def.Repair.FallbackTimeout
	}
	if cfg.Repair.Language == "" {
		cfg.Repair.Language = def.Repair.Language
	}
	if cfg.Repair.Workers == 0 {
		cfg.Repair.Workers = def.Repair.Workers
	}
	if cfg.Patterns.Path == "" {
		cfg.Patterns.Path = def.Patterns.Path
	}
	if cfg.Patterns.SimilarityThreshold == 0 {
		cfg.Patterns.SimilarityThreshold = def.Patterns.SimilarityThreshold
	}
	if cfg.Memory.SampleInterval == 0 {
		cfg.Memory.SampleInterval = def.Memory.SampleInterval
	}
	if cfg.Memory.WarningPercent == 0 {
		cfg.Memory.WarningPercent = def.Memory.WarningPercent
	}
	if cfg.Memory.CriticalPercent == 0 {
		cfg.Memory.CriticalPercent = def.Memory.CriticalPercent
	}
	if cfg.Memory.EmergencyPercent == 0 {
		cfg.Memory.EmergencyPercent = def.Memory.EmergencyPercent
	}
	if cfg.Memory.TempDir == "" {
		cfg.Memory.TempDir = def.Memory.TempDir
	}
	if cfg.Scheduler.NormalInterval == 0 {
		cfg.Scheduler.NormalInterval = def.Scheduler.NormalInterval
	}
	if cfg.Scheduler.WarningInterval == 0 {
		cfg.Scheduler.WarningInterval = def.Scheduler.WarningInterval
	}
	if cfg.Scheduler.CriticalInterval == 0 {
		cfg.Scheduler.CriticalInterval = def.Scheduler.CriticalInterval
	}
	if cfg.Scheduler.EmergencyInterval == 0 {
		cfg.Scheduler.EmergencyInterval = def.Scheduler.EmergencyInterval
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Patterns.SimilarityThreshold < 0 || c.Patterns.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in [0,1], got %f", c.Patterns.SimilarityThreshold)
	}
	if c.Repair.MaxAttemptsPerFile < 1 {
		return fmt.Errorf("max_attempts_per_file must be >= 1, got %d", c.Repair.MaxAttemptsPerFile)
	}
	if c.Repair.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Repair.Workers)
	}
	if !(c.Memory.WarningPercent < c.Memory.CriticalPercent && c.Memory.CriticalPercent < c.Memory.EmergencyPercent) {
		return fmt.Errorf("memory thresholds must be strictly increasing: %.0f/%.0f/%.0f",
			c.Memory.WarningPercent, c.Memory.CriticalPercent, c.Memory.EmergencyPercent)
	}
	return nil
}

// Save writes the configuration to path, creating the directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
