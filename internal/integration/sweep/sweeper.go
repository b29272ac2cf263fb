package sweep

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dshills/revsweep/internal/integration/process"
)

// ExecutionSummary is the file, under the report root, that the analysis
// tool appends its per-cell rows to.
const ExecutionSummary = "executionSummary.csv"

// Runner runs a supervised job. *process.Supervisor implements it.
type Runner interface {
	Run(ctx context.Context, job process.Job) (process.JobResult, error)
}

// CellResult pairs a cell with the outcome of its job.
type CellResult struct {
	Cell   Cell
	Report string
	Result process.JobResult
}

// Outcome lists the results of a sweep in run order.
type Outcome struct {
	Cells []CellResult
}

// TimedOut returns how many cells hit the deadline.
func (o Outcome) TimedOut() int {
	n := 0
	for _, c := range o.Cells {
		if c.Result.TimedOut {
			n++
		}
	}
	return n
}

// Sweeper runs the analysis tool once per cell, one cell at a time.
type Sweeper struct {
	runner   Runner
	analysis Analysis
	cells    []Cell
	logger   *slog.Logger
}

// Option configures a Sweeper.
type Option func(*Sweeper)

// WithAnalysis sets the analysis launcher.
func WithAnalysis(a Analysis) Option {
	return func(s *Sweeper) {
		s.analysis = a
	}
}

// WithCells restricts the sweep to cells, run in the given order.
func WithCells(cells []Cell) Option {
	return func(s *Sweeper) {
		s.cells = cells
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = l
	}
}

// NewSweeper creates a sweeper over the full matrix.
func NewSweeper(r Runner, opts ...Option) *Sweeper {
	s := &Sweeper{
		runner:   r,
		analysis: DefaultAnalysis(),
		cells:    Matrix(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run empties the execution summary, then runs every cell in order in
// streaming mode, each writing its own report through redirection.
//
// Exit codes are recorded but not interpreted. The first launch failure
// stops the sweep and is returned together with the cells already run.
func (s *Sweeper) Run(ctx context.Context, p Params) (Outcome, error) {
	var out Outcome

	logger := s.logger.With("root", p.WorkingRoot, "reports", p.ReportRoot)

	if err := TruncateIfExists(filepath.Join(p.ReportRoot, ExecutionSummary)); err != nil {
		return out, fmt.Errorf("reset execution summary: %w", err)
	}

	base := s.analysis.BaseCommand(p)
	for _, cell := range s.cells {
		// Cancellation is honored between cells only; a running job is
		// bounded by its deadline.
		if err := ctx.Err(); err != nil {
			return out, err
		}

		report := filepath.Join(p.ReportRoot, cell.ReportName())
		if err := prepareReport(report); err != nil {
			return out, fmt.Errorf("prepare report for %s: %w", cell, err)
		}

		logger.InfoContext(ctx, "running analysis cell",
			"ignore_exceptions", cell.IgnoreExceptions, "precision", cell.Precision.String())

		res, err := s.runner.Run(ctx, process.Job{
			Name:       "analysis " + cell.String(),
			Kind:       "analysis",
			Command:    CellCommand(base, cell, report),
			ReportPath: report,
			Mode:       process.ModeStreaming,
		})
		if err != nil {
			return out, fmt.Errorf("run cell %s: %w", cell, err)
		}
		out.Cells = append(out.Cells, CellResult{Cell: cell, Report: report, Result: res})
	}

	logger.InfoContext(ctx, "sweep finished", "cells", len(out.Cells), "timed_out", out.TimedOut())
	return out, nil
}

// TruncateIfExists empties path if it exists. A missing file is not an
// error and is not created.
func TruncateIfExists(path string) error {
	err := os.Truncate(path, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// prepareReport truncates an existing report, or creates the directory a
// new one will be written to.
func prepareReport(path string) error {
	err := os.Truncate(path, 0)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
