package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/revsweep/internal/integration/shell"
	"github.com/dshills/revsweep/internal/metrics"
)

// TimeoutStatus is the exit status reported for a job that was interrupted
// because it reached its deadline. Natural exits are never negative.
const TimeoutStatus = -1

// TimeoutMarker is appended to the report file of a timed out job.
const TimeoutMarker = "TIMEOUT..."

// Mode selects where a job's merged output goes.
type Mode int

const (
	// ModeStreaming copies output to the console as it arrives. The report
	// file is written by the command itself (typically via redirection).
	ModeStreaming Mode = iota
	// ModeCapturing appends output to the report file as it arrives.
	ModeCapturing
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeCapturing:
		return "capturing"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// Job is one external command to run under supervision.
type Job struct {
	// ID identifies the job. A uuid is assigned when empty.
	ID string

	// Name is a human-readable label used in logs.
	Name string

	// Kind groups jobs for metrics (e.g. "build", "analysis").
	Kind string

	// Command is rendered to a single shell line at launch.
	Command shell.Command

	// ReportPath is the report file for this job.
	ReportPath string

	// Mode selects streaming or capturing output handling.
	Mode Mode

	// Echo, in capturing mode, additionally receives the output.
	Echo io.Writer
}

// Cause is the single reason a job ended.
type Cause int

const (
	// CauseExit means the process exited on its own.
	CauseExit Cause = iota
	// CauseTimeout means the deadline elapsed and the group was interrupted.
	CauseTimeout
)

// String returns the cause name.
func (c Cause) String() string {
	if c == CauseTimeout {
		return "timeout"
	}
	return "exit"
}

// JobResult is the outcome of one supervised run.
type JobResult struct {
	JobID      string
	Command    string
	ReportPath string

	// ExitCode is the real exit status, or TimeoutStatus.
	ExitCode int

	// TimedOut is true iff ExitCode == TimeoutStatus.
	TimedOut bool

	Started  time.Time
	Duration time.Duration
}

// Cause returns why the job ended.
func (r JobResult) Cause() Cause {
	if r.TimedOut {
		return CauseTimeout
	}
	return CauseExit
}

// Succeeded reports whether the job exited on its own with status zero.
func (r JobResult) Succeeded() bool {
	return !r.TimedOut && r.ExitCode == 0
}

// Supervisor runs jobs one at a time per call, each in its own process
// group, and enforces the poll policy's deadline. The deadline is the only
// thing that stops a job early. It is safe for concurrent use.
type Supervisor struct {
	shell        string
	shellArgs    []string
	policy       PollPolicy
	drainTimeout time.Duration
	console      io.Writer
	logger       *slog.Logger

	onJobExit func(JobResult)
}

// SupervisorOption configures a Supervisor instance.
type SupervisorOption func(*Supervisor)

// WithShell sets the interpreter and its arguments placed before the
// command line. The default is /bin/bash -c.
func WithShell(path string, args ...string) SupervisorOption {
	return func(s *Supervisor) {
		s.shell = path
		s.shellArgs = args
	}
}

// WithPollPolicy sets the polling and deadline policy.
func WithPollPolicy(p PollPolicy) SupervisorOption {
	return func(s *Supervisor) {
		s.policy = p
	}
}

// WithDrainTimeout bounds how long the supervisor waits for its output
// reader after the job ended before closing the stream under it.
func WithDrainTimeout(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.drainTimeout = d
	}
}

// WithConsole sets the writer that receives streaming output.
func WithConsole(w io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.console = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = l
	}
}

// WithJobExitCallback sets a callback invoked after every completed job.
func WithJobExitCallback(fn func(JobResult)) SupervisorOption {
	return func(s *Supervisor) {
		s.onJobExit = fn
	}
}

// NewSupervisor creates a new process supervisor.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		shell:        "/bin/bash",
		shellArgs:    []string{"-c"},
		policy:       DefaultPollPolicy(),
		drainTimeout: 10 * time.Second,
		console:      os.Stdout,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Policy returns the poll policy in effect.
func (s *Supervisor) Policy() PollPolicy {
	return s.policy
}

// Run launches job and blocks until it exits or its deadline elapses.
//
// Job-level failures (nonzero exit, timeout) are reported in the result.
// The returned error is non-nil only when the job could not be launched at
// all, and then wraps ErrLaunch. ctx supplies logging context; it does not
// cancel the job.
func (s *Supervisor) Run(ctx context.Context, job Job) (JobResult, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Kind == "" {
		job.Kind = "job"
	}
	if job.Command.IsZero() {
		return JobResult{}, fmt.Errorf("%w: empty command", ErrLaunch)
	}

	line := job.Command.Line()
	logger := s.logger.With("job_id", job.ID, "job", job.Name, "mode", job.Mode.String())

	sink, closeSink, err := s.openSink(job)
	if err != nil {
		metrics.JobFinished(job.Kind, metrics.OutcomeLaunch, 0)
		return JobResult{}, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	defer closeSink()

	args := make([]string, 0, len(s.shellArgs)+1)
	args = append(args, s.shellArgs...)
	args = append(args, line)
	proc := NewProcess(job.ID, job.Name, exec.Command(s.shell, args...))

	if err := proc.start(); err != nil {
		metrics.JobFinished(job.Kind, metrics.OutcomeLaunch, 0)
		logger.ErrorContext(ctx, "job launch failed", "command", line, "error", err)
		return JobResult{}, fmt.Errorf("%w: %v", ErrLaunch, err)
	}
	metrics.JobStarted(job.Kind)
	logger.InfoContext(ctx, "job started", "command", line, "pid", proc.PID(),
		"deadline", s.policy.Budget())

	var readers errgroup.Group
	readers.Go(func() error {
		return copyOutput(sink, proc.Output)
	})

	result := JobResult{
		JobID:      job.ID,
		Command:    line,
		ReportPath: job.ReportPath,
		Started:    proc.Started,
	}

	if s.waitOrDeadline(ctx, proc, logger) {
		logger.WarnContext(ctx, "job reached deadline, interrupting process group",
			"pgid", proc.Group().ID(), "elapsed", proc.Runtime())
		if err := Terminate(proc.Group()); err != nil {
			logger.WarnContext(ctx, "interrupt failed", "error", err)
		}
		s.join(ctx, &readers, proc, logger)
		if err := appendTimeoutMarker(job.ReportPath); err != nil {
			logger.WarnContext(ctx, "could not append timeout marker", "report", job.ReportPath, "error", err)
		}
		result.ExitCode = TimeoutStatus
		result.TimedOut = true
	} else {
		s.join(ctx, &readers, proc, logger)
		result.ExitCode = proc.ExitCode()
	}

	result.Duration = time.Since(result.Started)

	outcome := metrics.OutcomeExit
	if result.TimedOut {
		outcome = metrics.OutcomeTimeout
	}
	metrics.JobFinished(job.Kind, outcome, result.Duration)
	logger.InfoContext(ctx, "job finished", "cause", result.Cause().String(),
		"exit_code", result.ExitCode, "duration", result.Duration)

	s.notifyExit(result)

	return result, nil
}

// waitOrDeadline blocks until proc exits or the budget is spent, waking at
// the intervals chosen by the poll policy. It returns true on timeout.
func (s *Supervisor) waitOrDeadline(ctx context.Context, proc *Process, logger *slog.Logger) bool {
	budget := s.policy.Budget()
	interval := s.policy.Next(0)

	for {
		timer := time.NewTimer(interval)
		select {
		case <-proc.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}

		if proc.HasExited() {
			return false
		}

		elapsed := proc.Runtime()
		if elapsed >= budget {
			return true
		}

		next := s.policy.Next(elapsed)
		if next != interval {
			logger.DebugContext(ctx, "poll interval changed", "elapsed", elapsed, "interval", next)
		}
		interval = next
	}
}

// join waits for the output reader. If it has not finished within the drain
// timeout, the stream is closed under it and the wait continues.
func (s *Supervisor) join(ctx context.Context, readers *errgroup.Group, proc *Process, logger *slog.Logger) {
	done := make(chan error, 1)
	go func() {
		done <- readers.Wait()
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(s.drainTimeout):
		logger.WarnContext(ctx, "output still open after job ended, closing stream",
			"drain_timeout", s.drainTimeout)
		_ = proc.Close()
		err = <-done
	}
	if err != nil {
		logger.WarnContext(ctx, "output copy failed", "error", err)
	}

	if cerr := proc.Close(); cerr != nil {
		logger.WarnContext(ctx, "close output", "error", cerr)
	}
}

// openSink returns the destination of the job's output.
func (s *Supervisor) openSink(job Job) (io.Writer, func(), error) {
	switch job.Mode {
	case ModeStreaming:
		return s.console, func() {}, nil
	case ModeCapturing:
		f, err := os.OpenFile(job.ReportPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open report file: %w", err)
		}
		var w io.Writer = f
		if job.Echo != nil {
			w = io.MultiWriter(f, job.Echo)
		}
		return w, func() { _ = f.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown mode %d", job.Mode)
	}
}

// notifyExit calls the exit callback with panic recovery.
func (s *Supervisor) notifyExit(r JobResult) {
	if s.onJobExit == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("job exit callback panicked", "job_id", r.JobID, "panic", p)
		}
	}()
	s.onJobExit(r)
}

// copyOutput copies src to dst as data arrives. A failing writer does not
// stop the copy, so the child never blocks on a full pipe; the first write
// error is returned once src is exhausted.
func copyOutput(dst io.Writer, src io.Reader) error {
	type flusher interface{ Flush() error }
	f, canFlush := dst.(flusher)

	var writeErr error
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 && writeErr == nil {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				writeErr = werr
			} else if canFlush {
				writeErr = f.Flush()
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return writeErr
			}
			return err
		}
	}
}

// appendTimeoutMarker appends a blank line and the timeout marker.
func appendTimeoutMarker(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, "\n"+TimeoutMarker+"\n"); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ErrLaunch is returned when a job could not be started at all.
var ErrLaunch = errors.New("job launch failed")
