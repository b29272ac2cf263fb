package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli"

	"github.com/dshills/revsweep/internal/config"
	"github.com/dshills/revsweep/internal/integration/build"
	"github.com/dshills/revsweep/internal/integration/process"
	"github.com/dshills/revsweep/internal/integration/sweep"
	"github.com/dshills/revsweep/internal/logging"
	"github.com/dshills/revsweep/internal/metrics"
	"github.com/dshills/revsweep/internal/pipeline"
	"github.com/dshills/revsweep/internal/revision"
)

// state carries what the Before hook sets up to the command actions.
type state struct {
	ctx context.Context

	cfg     *config.Config
	logger  *slog.Logger
	sup     *process.Supervisor
	metrics *http.Server
}

func newState(ctx context.Context) *state {
	return &state{ctx: ctx}
}

func newApp(st *state) *cli.App {
	app := cli.NewApp()
	app.Name = "revsweep"
	app.Usage = "build merge revisions and sweep the analysis over them"
	app.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a TOML or YAML configuration file",
		},
		cli.StringFlag{
			Name:  "root",
			Usage: "workspace root holding projectsList, downloads and reports",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
		},
		cli.StringFlag{
			Name:  "log-format",
			Usage: "text, json or auto",
		},
		cli.StringFlag{
			Name:  "metrics-addr",
			Usage: "serve Prometheus metrics on this address",
		},
	}

	app.Before = func(c *cli.Context) error {
		return st.setup(c)
	}
	app.After = func(c *cli.Context) error {
		return st.shutdown()
	}

	app.Commands = []cli.Command{
		{
			Name:      "build",
			Usage:     "build one source tree with the first build system that succeeds",
			ArgsUsage: "<source-root> <report-root>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "prefix",
					Usage: "prefix for the report file names",
				},
			},
			Action: st.buildAction,
		},
		{
			Name:      "sweep",
			Usage:     "run the analysis once per configuration cell",
			ArgsUsage: "<working-root> <report-root>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "sdgs",
					Usage: "directory to store graphs in; empty stores nothing",
				},
				cli.StringFlag{
					Name:  "contribs-file",
					Usage: "file holding the contribution records of the revision",
				},
				cli.StringFlag{
					Name:  "heap",
					Usage: "JVM heap flags; defaults by workspace location",
				},
				cli.StringFlag{
					Name:  "libs",
					Usage: "library paths passed to the analysis",
				},
			},
			Action: st.sweepAction,
		},
		{
			Name:  "projects",
			Usage: "build every downloaded revision of the listed projects",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "analyze",
					Usage: "sweep the analysis over built revisions with contributions",
				},
			},
			Action: st.projectsAction,
		},
		{
			Name:   "revisions",
			Usage:  "sweep the analysis over every revision in revList",
			Action: st.revisionsAction,
		},
	}

	return app
}

func (s *state) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("root"); v != "" {
		cfg.Paths.Root = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := c.String("metrics-addr"); v != "" {
		cfg.Metrics.Addr = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.Setup(cfg.Logging.Options())
	if err != nil {
		return err
	}

	opts := append(cfg.Supervisor.Options(),
		process.WithLogger(logger),
		process.WithConsole(c.App.Writer),
	)
	sup := process.NewSupervisor(opts...)

	s.cfg = cfg
	s.logger = logger
	s.sup = sup

	if cfg.Metrics.Addr != "" {
		s.serveMetrics(cfg.Metrics.Addr)
	}
	return nil
}

func (s *state) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.metrics = srv

	go func() {
		s.logger.Info("serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "error", err)
		}
	}()
}

func (s *state) shutdown() error {
	if s.metrics == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.metrics.Shutdown(ctx)
}

func (s *state) orchestrator() *build.Orchestrator {
	return build.NewOrchestrator(s.sup,
		build.WithLogger(s.logger),
		build.WithResetLastOnFailure(s.cfg.Build.ResetLastOnFailure),
	)
}

func (s *state) sweeper() *sweep.Sweeper {
	return sweep.NewSweeper(s.sup,
		sweep.WithAnalysis(s.cfg.Sweep.Analysis()),
		sweep.WithLogger(s.logger),
	)
}

func (s *state) driver(analyze bool) (*pipeline.Driver, error) {
	root, err := filepath.Abs(s.cfg.Paths.Root)
	if err != nil {
		return nil, err
	}
	opts := s.cfg.PipelineOptions(root)
	if analyze {
		opts.Analyze = true
	}
	return pipeline.NewDriver(revision.NewLayout(root), s.orchestrator(), s.sweeper(), opts, s.logger), nil
}

func (s *state) buildAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("build needs <source-root> <report-root>")
	}
	sum, err := s.orchestrator().Build(s.ctx, c.Args().Get(0), c.Args().Get(1), c.String("prefix"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, sum.String())
	return nil
}

func (s *state) sweepAction(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("sweep needs <working-root> <report-root>")
	}

	root := c.Args().Get(0)
	p := sweep.Params{
		WorkingRoot:  root,
		ReportRoot:   c.Args().Get(1),
		SDGRoot:      c.String("sdgs"),
		Heap:         c.String("heap"),
		LibraryPaths: c.String("libs"),
	}
	if p.Heap == "" {
		p.Heap = s.cfg.Sweep.HeapFor(root)
	}
	if path := c.String("contribs-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read contributions: %w", err)
		}
		p.Contributions = strings.TrimRight(string(data), "\n")
	}

	out, err := s.sweeper().Run(s.ctx, p)
	for _, r := range out.Cells {
		status := fmt.Sprintf("exit %d", r.Result.ExitCode)
		if r.Result.TimedOut {
			status = "timeout"
		}
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%s\n", r.Cell, status, r.Report)
	}
	return err
}

func (s *state) projectsAction(c *cli.Context) error {
	d, err := s.driver(c.Bool("analyze"))
	if err != nil {
		return err
	}
	stats, err := d.RunProjects(s.ctx)
	printStats(c, stats)
	return err
}

func (s *state) revisionsAction(c *cli.Context) error {
	d, err := s.driver(false)
	if err != nil {
		return err
	}
	stats, err := d.RunTargets(s.ctx)
	printStats(c, stats)
	return err
}

func printStats(c *cli.Context, st pipeline.Stats) {
	fmt.Fprintf(c.App.Writer,
		"projects=%d revisions=%d built=%d analyzed=%d skipped=%d timed_out=%d\n",
		st.Projects, st.Revisions, st.Built, st.Analyzed, st.Skipped, st.TimedOut)
}
