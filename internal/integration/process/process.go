package process

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
)

// State represents the state of a process.
type State int

const (
	// StateCreated indicates the process has been created but not started.
	StateCreated State = iota
	// StateRunning indicates the process is currently running.
	StateRunning
	// StateExited indicates the process has exited normally or with an error.
	StateExited
	// StateKilled indicates the process was terminated by a signal.
	StateKilled
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateKilled:
		return "killed"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// waitFailedStatus is recorded when Wait fails without an exit status.
const waitFailedStatus = 255

// Process is one supervised child running as the leader of its own process
// group, with standard output and standard error merged into Output.
type Process struct {
	// ID is the unique identifier for this process.
	ID string

	// Name is a human-readable name for the process.
	Name string

	// Cmd is the underlying exec.Cmd.
	Cmd *exec.Cmd

	// Output is the read end of the merged stdout/stderr pipe.
	// It is nil until the process is started.
	Output io.ReadCloser

	// Started is the time the process was started.
	Started time.Time

	done     chan struct{}
	state    atomic.Int32
	exitCode atomic.Int32

	waitOnce  sync.Once
	closeOnce sync.Once
	closeErr  error
}

// NewProcess creates a new Process wrapping the given command.
//
// The command must not have been started and must not have its standard
// output or standard error configured; the process owns both.
func NewProcess(id, name string, cmd *exec.Cmd) *Process {
	p := &Process{
		ID:   id,
		Name: name,
		Cmd:  cmd,
		done: make(chan struct{}),
	}
	p.state.Store(int32(StateCreated))
	p.exitCode.Store(-1)
	return p
}

// State returns the current process state.
func (p *Process) State() State {
	return State(p.state.Load())
}

// ExitCode returns the exit status of the process.
// A process terminated by signal N reports 128+N, as shells do.
// Returns -1 if the process has not exited.
func (p *Process) ExitCode() int {
	return int(p.exitCode.Load())
}

// Done returns a channel that is closed when the process exits.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// IsRunning returns true if the process is currently running.
func (p *Process) IsRunning() bool {
	return p.State() == StateRunning
}

// HasExited returns true if the process has exited (normally or killed).
func (p *Process) HasExited() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// PID returns the process ID, or -1 if not started.
func (p *Process) PID() int {
	if p.Cmd.Process == nil {
		return -1
	}
	return p.Cmd.Process.Pid
}

// Group returns the handle of the process group led by this process.
func (p *Process) Group() Group {
	return Group{pgid: p.PID()}
}

// Runtime returns how long the process has been running.
func (p *Process) Runtime() time.Duration {
	if p.Started.IsZero() {
		return 0
	}
	return time.Since(p.Started)
}

// start launches the process as a new process group leader.
func (p *Process) start() error {
	if p.State() != StateCreated {
		return ErrProcessAlreadyStarted
	}
	if p.Cmd.Stdout != nil || p.Cmd.Stderr != nil {
		return errors.New("process output already configured")
	}

	r, w, err := os.Pipe()
	if err != nil {
		return fmt.Errorf("create output pipe: %w", err)
	}

	p.Cmd.Stdout = w
	p.Cmd.Stderr = w
	p.Cmd.SysProcAttr = groupAttr()

	if err := p.Cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		return fmt.Errorf("start process: %w", err)
	}

	// The child holds its own copy of the write end.
	_ = w.Close()

	p.Output = r
	p.Started = time.Now()
	p.state.Store(int32(StateRunning))

	go p.waitLoop()

	return nil
}

// waitLoop records the exit status once the process is reaped.
func (p *Process) waitLoop() {
	p.waitOnce.Do(func() {
		err := p.Cmd.Wait()

		exitCode := 0
		state := StateExited

		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
				if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
					exitCode = 128 + int(status.Signal())
					state = StateKilled
				}
			} else {
				exitCode = waitFailedStatus
			}
		}

		p.exitCode.Store(int32(exitCode))
		p.state.Store(int32(state))
		close(p.done)
	})
}

// Close closes the output stream. It does not signal the process.
// Close is safe to call more than once.
func (p *Process) Close() error {
	p.closeOnce.Do(func() {
		var result *multierror.Error
		if p.Output != nil {
			if err := p.Output.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
				result = multierror.Append(result, fmt.Errorf("close output: %w", err))
			}
		}
		p.closeErr = result.ErrorOrNil()
	})
	return p.closeErr
}

// Sentinel errors for process package.
var (
	// ErrProcessNotStarted is returned when operations require a started process.
	ErrProcessNotStarted = errors.New("process not started")

	// ErrProcessAlreadyStarted is returned when trying to start an already running process.
	ErrProcessAlreadyStarted = errors.New("process already started")
)
