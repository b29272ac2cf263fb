package config

import (
	"time"

	"github.com/dshills/revsweep/internal/integration/process"
	"github.com/dshills/revsweep/internal/integration/sweep"
	"github.com/dshills/revsweep/internal/logging"
	"github.com/dshills/revsweep/internal/pipeline"
	"github.com/dshills/revsweep/internal/revision"
)

// PathsConfig locates the workspace.
type PathsConfig struct {
	// Root holds projectsList, revList, downloads/, reports/ and sdgs/.
	Root string `yaml:"root"`
}

// SupervisorConfig controls how jobs are launched and bounded.
type SupervisorConfig struct {
	// Shell interprets every job's command line.
	Shell     string   `yaml:"shell"`
	ShellArgs []string `yaml:"shell_args"`

	// Poll settings are counted in PollUnit.
	PollUnit      time.Duration `yaml:"poll_unit"`
	PollBase      int64         `yaml:"poll_base"`
	PollThreshold int64         `yaml:"poll_threshold"`
	PollDivisor   int64         `yaml:"poll_divisor"`
	Deadline      int64         `yaml:"deadline"`

	// DrainTimeout bounds the wait for a job's output after it ended.
	DrainTimeout time.Duration `yaml:"drain_timeout"`
}

// PollPolicy returns the configured polling policy.
func (s SupervisorConfig) PollPolicy() process.PollPolicy {
	return process.PollPolicy{
		Unit:      s.PollUnit,
		Base:      s.PollBase,
		Threshold: s.PollThreshold,
		Divisor:   s.PollDivisor,
		Deadline:  s.Deadline,
	}
}

// Options returns supervisor options for these settings.
func (s SupervisorConfig) Options() []process.SupervisorOption {
	return []process.SupervisorOption{
		process.WithShell(s.Shell, s.ShellArgs...),
		process.WithPollPolicy(s.PollPolicy()),
		process.WithDrainTimeout(s.DrainTimeout),
	}
}

// BuildConfig selects which trees are built.
type BuildConfig struct {
	// All builds every revision, not only those worth analyzing.
	All bool `yaml:"all"`

	// Revision builds each revision tree.
	Revision bool `yaml:"revision"`

	// Merged builds each merge result.
	Merged bool `yaml:"merged"`

	// ResetLastOnFailure reports "-" as the build system of failed builds.
	ResetLastOnFailure bool `yaml:"reset_last_on_failure"`
}

// HeapConfig chooses JVM heap flags by workspace location.
type HeapConfig struct {
	LargePrefix string `yaml:"large_prefix"`
	Large       string `yaml:"large"`
	Default     string `yaml:"default"`
}

// SweepConfig controls the analysis sweep.
type SweepConfig struct {
	// Enabled runs the sweep after successful revision builds.
	Enabled bool `yaml:"enabled"`

	Java  string `yaml:"java"`
	Jar   string `yaml:"jar"`
	Nohup bool   `yaml:"nohup"`

	// StoreSDGs hands each revision's sdgs directory to the analysis.
	StoreSDGs bool `yaml:"store_sdgs"`

	Heap HeapConfig `yaml:"heap"`
}

// Analysis returns the analysis launcher.
func (s SweepConfig) Analysis() sweep.Analysis {
	return sweep.Analysis{Java: s.Java, Jar: s.Jar, Nohup: s.Nohup}
}

// HeapFor returns the heap flags for a workspace rooted at root.
func (s SweepConfig) HeapFor(root string) string {
	return revision.HeapFor(root, revision.HeapConfig{
		LargePrefix: s.Heap.LargePrefix,
		Large:       s.Heap.Large,
		Default:     s.Heap.Default,
	})
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `yaml:"level"`

	// Format is "text", "json" or "auto".
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	// Addr is the listen address. Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// Options converts to logging options.
func (l LoggingConfig) Options() logging.Options {
	return logging.Options{Level: l.Level, Format: l.Format}
}

// PipelineOptions returns the driver options for workspace root.
func (c *Config) PipelineOptions(root string) pipeline.Options {
	return pipeline.Options{
		BuildAll:      c.Build.All,
		BuildRevision: c.Build.Revision,
		BuildMerged:   c.Build.Merged,
		Analyze:       c.Sweep.Enabled,
		StoreSDGs:     c.Sweep.StoreSDGs,
		Heap:          c.Sweep.HeapFor(root),
	}
}
