package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/revsweep/internal/integration/process"
	"github.com/dshills/revsweep/internal/metrics"
)

// HeaderPrefix starts the first line of every build report.
const HeaderPrefix = "Build command used: "

// Runner runs a supervised job. *process.Supervisor implements it.
type Runner interface {
	Run(ctx context.Context, job process.Job) (process.JobResult, error)
}

// Orchestrator tries the build candidates of a source tree in priority
// order until one succeeds.
type Orchestrator struct {
	runner             Runner
	candidates         []Candidate
	logger             *slog.Logger
	resetLastOnFailure bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithCandidates replaces the default candidate list.
func WithCandidates(c []Candidate) Option {
	return func(o *Orchestrator) {
		o.candidates = c
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithResetLastOnFailure makes a failed build report NoSystem as its last
// system instead of the label of the last candidate attempted.
func WithResetLastOnFailure(reset bool) Option {
	return func(o *Orchestrator) {
		o.resetLastOnFailure = reset
	}
}

// NewOrchestrator creates an orchestrator that runs candidates through r.
func NewOrchestrator(r Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		runner:     r,
		candidates: DefaultCandidates(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build detects every candidate under sourceRoot, then runs the present
// ones in order, stopping at the first that exits with status zero. Each
// attempt writes reportRoot/<prefix><report>, starting with a header line
// naming the exact command.
//
// A nonzero exit or a timeout moves on to the next candidate. The returned
// error is non-nil only when a report could not be prepared or a job could
// not be launched.
func (o *Orchestrator) Build(ctx context.Context, sourceRoot, reportRoot, prefix string) (Summary, error) {
	summary := Summary{
		Present: make(map[System]bool, len(o.candidates)),
		Last:    NoSystem,
	}

	// Presence is always computed for all candidates, even those that will
	// not run, so a failed build is distinguishable from a missing one.
	present := make([]bool, len(o.candidates))
	for i, c := range o.candidates {
		present[i] = c.Present(sourceRoot)
		summary.Present[c.System] = summary.Present[c.System] || present[i]
	}

	logger := o.logger.With("source", sourceRoot)

	for i, c := range o.candidates {
		if summary.Built {
			break
		}
		if !present[i] {
			continue
		}

		ok, err := o.attempt(ctx, logger, c, sourceRoot, filepath.Join(reportRoot, prefix+c.Report))
		if err != nil {
			return summary, err
		}
		summary.Built = ok
		summary.Last = c.System.Label()
	}

	if !summary.Built {
		if !summary.AnyPresent() {
			logger.InfoContext(ctx, "no build system found")
		}
		if o.resetLastOnFailure {
			summary.Last = NoSystem
		}
	}

	logger.InfoContext(ctx, "build finished", "summary", summary.String())
	return summary, nil
}

func (o *Orchestrator) attempt(ctx context.Context, logger *slog.Logger, c Candidate, root, report string) (bool, error) {
	cmd := c.Command(root)
	line := cmd.Line()

	if err := writeHeader(report, line); err != nil {
		return false, fmt.Errorf("prepare %s report: %w", c.System, err)
	}

	logger.InfoContext(ctx, "running build", "system", c.System.String(), "report", report)
	res, err := o.runner.Run(ctx, process.Job{
		Name:       "build " + c.System.String(),
		Kind:       "build",
		Command:    cmd,
		ReportPath: report,
		Mode:       process.ModeCapturing,
	})
	if err != nil {
		return false, fmt.Errorf("run %s build: %w", c.System, err)
	}

	ok := res.Succeeded()
	metrics.BuildAttempted(c.System.String(), ok)
	if !ok {
		logger.WarnContext(ctx, "build failed", "system", c.System.String(),
			"exit_code", res.ExitCode, "timed_out", res.TimedOut)
	}
	return ok, nil
}

// writeHeader truncates report and writes the header line.
func writeHeader(report, line string) error {
	if err := os.MkdirAll(filepath.Dir(report), 0o755); err != nil {
		return err
	}
	return os.WriteFile(report, []byte(HeaderPrefix+line+"\n"), 0o644)
}
