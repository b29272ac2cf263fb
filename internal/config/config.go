package config

import (
	"bytes"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/dshills/revsweep/internal/config/loader"
	"github.com/dshills/revsweep/internal/integration/process"
	"github.com/dshills/revsweep/internal/integration/sweep"
	"github.com/dshills/revsweep/internal/revision"
)

// EnvPrefix prefixes every environment variable read as configuration.
const EnvPrefix = "REVSWEEP_"

// Config is the complete runtime configuration.
type Config struct {
	Paths      PathsConfig      `yaml:"paths"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Build      BuildConfig      `yaml:"build"`
	Sweep      SweepConfig      `yaml:"sweep"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// Default returns the configuration used when no source sets a value.
func Default() Config {
	heap := revision.DefaultHeapConfig()
	analysis := sweep.DefaultAnalysis()
	policy := process.DefaultPollPolicy()

	return Config{
		Paths: PathsConfig{Root: "conflicts_analyzer"},
		Supervisor: SupervisorConfig{
			Shell:         "/bin/bash",
			ShellArgs:     []string{"-c"},
			PollUnit:      policy.Unit,
			PollBase:      policy.Base,
			PollThreshold: policy.Threshold,
			PollDivisor:   policy.Divisor,
			Deadline:      policy.Deadline,
			DrainTimeout:  10 * time.Second,
		},
		Build: BuildConfig{
			All:      true,
			Revision: true,
			Merged:   true,
		},
		Sweep: SweepConfig{
			Java:  analysis.Java,
			Jar:   analysis.Jar,
			Nohup: analysis.Nohup,
			Heap: HeapConfig{
				LargePrefix: heap.LargePrefix,
				Large:       heap.Large,
				Default:     heap.Default,
			},
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads the file at path (TOML or YAML, by extension) and the
// REVSWEEP_ environment over the defaults. Environment variables that name
// no setting are ignored. An empty path skips the file.
// The result is not validated, so callers can apply flags first.
func Load(path string) (*Config, error) {
	env := loader.NewEnvLoader(EnvPrefix)
	env.SetKnownPaths(KnownPaths())
	return LoadWith(loader.DefaultFS(), path, env)
}

// KnownPaths lists the dotted key of every setting, e.g.
// "supervisor.drain_timeout".
func KnownPaths() []string {
	data, err := yaml.Marshal(Default())
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil
	}
	return loader.LeafPaths(m)
}

// LoadWith is Load with explicit sources. env may be nil.
func LoadWith(fsys loader.FileSystem, path string, env loader.Loader) (*Config, error) {
	cfg := Default()

	var merged map[string]any
	if path != "" {
		l, err := loader.ForPath(fsys, path)
		if err != nil {
			return nil, err
		}
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		merged = m
	}

	if env != nil {
		m, err := env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.Merge(merged, m)
	}

	if err := decode(merged, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decode applies a merged source tree over cfg. Keys that match no field
// are rejected.
func decode(m map[string]any, cfg *Config) error {
	if len(m) == 0 {
		return nil
	}
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding merged config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Paths.Root == "" {
		result = multierror.Append(result, &ValidationError{Path: "paths.root", Message: "must not be empty"})
	}

	if c.Supervisor.Shell == "" {
		result = multierror.Append(result, &ValidationError{Path: "supervisor.shell", Message: "must not be empty"})
	}
	if err := c.Supervisor.PollPolicy().Validate(); err != nil {
		result = multierror.Append(result, &ValidationError{Path: "supervisor", Message: err.Error()})
	}
	if c.Supervisor.DrainTimeout <= 0 {
		result = multierror.Append(result, &ValidationError{
			Path: "supervisor.drain_timeout", Message: "must be positive", Value: c.Supervisor.DrainTimeout,
		})
	}

	if c.Sweep.Java == "" {
		result = multierror.Append(result, &ValidationError{Path: "sweep.java", Message: "must not be empty"})
	}
	if c.Sweep.Jar == "" {
		result = multierror.Append(result, &ValidationError{Path: "sweep.jar", Message: "must not be empty"})
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, &ValidationError{
			Path: "logging.level", Message: "must be debug, info, warn or error", Value: c.Logging.Level,
		})
	}
	switch c.Logging.Format {
	case "text", "json", "auto":
	default:
		result = multierror.Append(result, &ValidationError{
			Path: "logging.format", Message: "must be text, json or auto", Value: c.Logging.Format,
		})
	}

	return result.ErrorOrNil()
}
