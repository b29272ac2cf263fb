// Package pipeline walks a workspace of merge revisions, building each one
// and sweeping the analysis over those worth analyzing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/dshills/revsweep/internal/integration/build"
	"github.com/dshills/revsweep/internal/integration/sweep"
	"github.com/dshills/revsweep/internal/report"
	"github.com/dshills/revsweep/internal/revision"
)

// MergePrefix prefixes the report files of merge-result builds.
const MergePrefix = "merge_"

// Builder builds one source tree. *build.Orchestrator implements it.
type Builder interface {
	Build(ctx context.Context, sourceRoot, reportRoot, prefix string) (build.Summary, error)
}

// Analyzer sweeps the analysis over one revision. *sweep.Sweeper
// implements it.
type Analyzer interface {
	Run(ctx context.Context, p sweep.Params) (sweep.Outcome, error)
}

// Options selects what the driver does for each revision.
type Options struct {
	// BuildAll builds every revision, not only those worth analyzing.
	BuildAll bool

	// BuildRevision builds the revision tree and records it in
	// buildSummary.csv.
	BuildRevision bool

	// BuildMerged builds the merge result and records it in
	// buildSummaryMerge.csv.
	BuildMerged bool

	// Analyze runs the sweep over built revisions with in-range
	// contributions.
	Analyze bool

	// StoreSDGs passes the revision's sdgs directory to the analysis.
	// When false the analysis gets an empty path and stores nothing.
	StoreSDGs bool

	// Heap is the JVM heap flags handed to every sweep.
	Heap string
}

// DefaultOptions builds everything and does not analyze.
func DefaultOptions() Options {
	return Options{
		BuildAll:      true,
		BuildRevision: true,
		BuildMerged:   true,
	}
}

// Stats counts what a run did.
type Stats struct {
	Projects  int
	Revisions int
	Built     int
	Analyzed  int
	Skipped   int
	TimedOut  int
}

// Driver runs builds and sweeps sequentially over a workspace.
type Driver struct {
	layout   revision.Layout
	builder  Builder
	analyzer Analyzer
	opts     Options
	logger   *slog.Logger
}

// NewDriver creates a driver. logger may be nil.
func NewDriver(layout revision.Layout, b Builder, a Analyzer, opts Options, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{layout: layout, builder: b, analyzer: a, opts: opts, logger: logger}
}

// RunProjects processes every project named in the projects list that has
// downloaded revisions. A launch failure stops the run; build failures and
// malformed revisions are logged and recorded. Cancelling ctx stops the run
// before the next revision.
func (d *Driver) RunProjects(ctx context.Context) (Stats, error) {
	var stats Stats

	entries, err := revision.ReadLines(d.layout.ProjectsList())
	if err != nil {
		return stats, fmt.Errorf("read projects list: %w", err)
	}
	years, err := d.yearRange()
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if entry == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		project := revision.ProjectName(entry)
		if err := d.runProject(ctx, project, years, &stats); err != nil {
			return stats, fmt.Errorf("project %s: %w", project, err)
		}
	}

	d.logger.InfoContext(ctx, "run finished", "projects", stats.Projects,
		"revisions", stats.Revisions, "built", stats.Built, "analyzed", stats.Analyzed)
	return stats, nil
}

func (d *Driver) runProject(ctx context.Context, project string, years revision.YearRange, stats *Stats) (err error) {
	logger := d.logger.With("project", project)

	if !exists(d.layout.ProjectPath(project)) {
		logger.InfoContext(ctx, "project not downloaded, skipping")
		return nil
	}
	if !exists(d.layout.RevisionsDir(project)) {
		logger.InfoContext(ctx, "project has no revisions, skipping")
		return nil
	}

	revs, err := d.layout.RevisionDirs(project)
	if err != nil {
		return err
	}
	stats.Projects++
	if len(revs) == 0 {
		return nil
	}

	var logs []*report.SummaryLog
	defer func() {
		var result *multierror.Error
		for _, l := range logs {
			if cerr := l.Close(); cerr != nil {
				result = multierror.Append(result, cerr)
			}
		}
		if err == nil {
			err = result.ErrorOrNil()
		}
	}()

	var revLog, mergeLog *report.SummaryLog
	if d.opts.BuildRevision {
		if revLog, err = report.CreateSummaryLog(d.layout.BuildSummary(project, false)); err != nil {
			return err
		}
		logs = append(logs, revLog)
	}
	if d.opts.BuildMerged {
		if mergeLog, err = report.CreateSummaryLog(d.layout.BuildSummary(project, true)); err != nil {
			return err
		}
		logs = append(logs, mergeLog)
	}

	contribs, err := d.contributions(project)
	if err != nil {
		return err
	}

	for _, rev := range revs {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Revisions++

		inner, err := revision.InnerFromDir(rev)
		if err != nil {
			logger.WarnContext(ctx, "skipping revision", "rev", rev, "error", err)
			stats.Skipped++
			continue
		}

		revContribs := revision.FilterContributions(contribs, inner)
		hasContrib := revContribs != ""
		inRange, err := years.Contains(revContribs)
		if err != nil {
			logger.WarnContext(ctx, "cannot date revision", "rev", rev, "error", err)
		}
		analyze := hasContrib && inRange

		logger.InfoContext(ctx, "revision", "rev", rev, "has_contrib", hasContrib,
			"in_year_range", inRange, "analyze", analyze)

		if !d.opts.BuildAll && !analyze {
			stats.Skipped++
			continue
		}

		gitPath := d.layout.GitPath(project, rev, inner)
		reportPath := d.layout.ReportPath(project, rev)

		built := !d.opts.BuildRevision
		if d.opts.BuildRevision {
			sum, err := d.builder.Build(ctx, gitPath, reportPath, "")
			if err != nil {
				return err
			}
			if err := revLog.Append(rev, sum); err != nil {
				return err
			}
			built = sum.Built
			if built {
				stats.Built++
			}
		}
		if d.opts.BuildMerged {
			sum, err := d.builder.Build(ctx, d.layout.MergedGitPath(project, rev), reportPath, MergePrefix)
			if err != nil {
				return err
			}
			if err := mergeLog.Append(rev, sum); err != nil {
				return err
			}
		}

		if built && analyze && d.opts.Analyze {
			if err := d.analyze(ctx, project, rev, gitPath, revContribs, "", stats); err != nil {
				return err
			}
		}
	}
	return nil
}

// RunTargets sweeps the analysis over every revision in the rev list
// without building.
func (d *Driver) RunTargets(ctx context.Context) (Stats, error) {
	var stats Stats

	lines, err := revision.ReadLines(d.layout.RevList())
	if err != nil {
		return stats, fmt.Errorf("read rev list: %w", err)
	}
	targets, err := revision.ParseRevList(lines)
	if err != nil {
		return stats, err
	}

	cache := make(map[string][]string)
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		stats.Revisions++

		contribs, ok := cache[t.Project]
		if !ok {
			if contribs, err = d.contributions(t.Project); err != nil {
				return stats, err
			}
			cache[t.Project] = contribs
		}

		gitPath := d.layout.GitPath(t.Project, t.Rev, t.Inner)
		revContribs := revision.FilterContributions(contribs, t.Inner)
		if err := d.analyze(ctx, t.Project, t.Rev, gitPath, revContribs, t.Libs, &stats); err != nil {
			return stats, fmt.Errorf("%s %s: %w", t.Project, t.Rev, err)
		}
	}
	return stats, nil
}

func (d *Driver) analyze(ctx context.Context, project, rev, gitPath, contribs, libs string, stats *Stats) error {
	var sdgs string
	if d.opts.StoreSDGs {
		sdgs = d.layout.SDGPath(project, rev)
	}

	out, err := d.analyzer.Run(ctx, sweep.Params{
		WorkingRoot:   gitPath,
		ReportRoot:    d.layout.ReportPath(project, rev),
		SDGRoot:       sdgs,
		Contributions: contribs,
		Heap:          d.opts.Heap,
		LibraryPaths:  libs,
	})
	if err != nil {
		return err
	}
	stats.Analyzed++
	stats.TimedOut += out.TimedOut()
	return nil
}

// contributions reads a project's contribution list. A missing list means
// no revision of the project has contributions.
func (d *Driver) contributions(project string) ([]string, error) {
	lines, err := revision.ReadLines(d.layout.ContribsFile(project))
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Warn("no contributions file", "project", project)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read contributions: %w", err)
	}
	return lines, nil
}

// yearRange reads the optional year range file. A missing or empty file
// leaves the range unbounded.
func (d *Driver) yearRange() (revision.YearRange, error) {
	lines, err := revision.ReadLines(d.layout.YearRangeFile())
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(lines) == 0) {
		return revision.YearRange{}, nil
	}
	if err != nil {
		return revision.YearRange{}, fmt.Errorf("read year range: %w", err)
	}
	return revision.ParseYearRange(lines[0])
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
