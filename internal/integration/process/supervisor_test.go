package process

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/revsweep/internal/integration/shell"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastPolicy times out after 300ms, polling every 5ms.
func fastPolicy() PollPolicy {
	return PollPolicy{Unit: time.Millisecond, Base: 5, Threshold: 250, Divisor: 50, Deadline: 300}
}

func newTestSupervisor(opts ...SupervisorOption) *Supervisor {
	base := []SupervisorOption{
		WithShell("/bin/sh", "-c"),
		WithLogger(quietLogger()),
		WithConsole(io.Discard),
	}
	return NewSupervisor(append(base, opts...)...)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(b)
}

func TestNewSupervisor(t *testing.T) {
	s := NewSupervisor()

	if s.shell != "/bin/bash" {
		t.Errorf("default shell = %q, want /bin/bash", s.shell)
	}
	if s.Policy() != DefaultPollPolicy() {
		t.Errorf("default policy = %+v", s.Policy())
	}
}

func TestSupervisor_CapturingSuccess(t *testing.T) {
	report := filepath.Join(t.TempDir(), "build.txt")
	if err := os.WriteFile(report, []byte("Build command used: echo\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := newTestSupervisor()
	res, err := s.Run(context.Background(), Job{
		Name:       "capture",
		Command:    shell.New("echo", "compiled").Then("sh", "-c", "echo warn 1>&2"),
		ReportPath: report,
		Mode:       ModeCapturing,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Succeeded() || res.TimedOut || res.Cause() != CauseExit {
		t.Errorf("result = %+v, want clean exit", res)
	}
	want := "Build command used: echo\ncompiled\nwarn\n"
	if got := readFile(t, report); got != want {
		t.Errorf("report = %q, want %q", got, want)
	}
	if res.JobID == "" {
		t.Error("expected a generated job ID")
	}
}

func TestSupervisor_CapturingEcho(t *testing.T) {
	report := filepath.Join(t.TempDir(), "r.txt")
	var echo bytes.Buffer

	s := newTestSupervisor()
	_, err := s.Run(context.Background(), Job{
		Command:    shell.New("printf", "a\\nb\\n"),
		ReportPath: report,
		Mode:       ModeCapturing,
		Echo:       &echo,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if echo.String() != "a\nb\n" {
		t.Errorf("echo = %q", echo.String())
	}
	if got := readFile(t, report); got != "a\nb\n" {
		t.Errorf("report = %q", got)
	}
}

func TestSupervisor_NonzeroExit(t *testing.T) {
	report := filepath.Join(t.TempDir(), "r.txt")

	s := newTestSupervisor()
	res, err := s.Run(context.Background(), Job{
		Command:    shell.New("sh", "-c", "echo failing; exit 3"),
		ReportPath: report,
		Mode:       ModeCapturing,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", res.ExitCode)
	}
	if res.Succeeded() || res.TimedOut {
		t.Errorf("result = %+v, want failed exit", res)
	}
	if strings.Contains(readFile(t, report), TimeoutMarker) {
		t.Error("report of a natural exit must not carry the timeout marker")
	}
}

func TestSupervisor_Streaming(t *testing.T) {
	dir := t.TempDir()
	report := filepath.Join(dir, "cell.txt")
	var console bytes.Buffer

	s := newTestSupervisor(WithConsole(&console))
	cmd := shell.New("echo", "to-console").Then("echo", "to-report").RedirectTo(report)
	res, err := s.Run(context.Background(), Job{
		Name:       "stream",
		Command:    cmd,
		ReportPath: report,
		Mode:       ModeStreaming,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Succeeded() {
		t.Errorf("result = %+v", res)
	}
	if console.String() != "to-console\n" {
		t.Errorf("console = %q, want %q", console.String(), "to-console\n")
	}
	if got := readFile(t, report); got != "to-report\n" {
		t.Errorf("report = %q", got)
	}
}

type flushRecorder struct {
	bytes.Buffer
	flushes int
}

func (f *flushRecorder) Flush() error {
	f.flushes++
	return nil
}

func TestSupervisor_StreamingFlushes(t *testing.T) {
	console := &flushRecorder{}

	s := newTestSupervisor(WithConsole(console))
	_, err := s.Run(context.Background(), Job{Command: shell.New("echo", "x")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if console.flushes == 0 {
		t.Error("expected console to be flushed")
	}
}

func TestSupervisor_Timeout(t *testing.T) {
	report := filepath.Join(t.TempDir(), "r.txt")

	s := newTestSupervisor(WithPollPolicy(fastPolicy()))
	start := time.Now()
	res, err := s.Run(context.Background(), Job{
		Command:    shell.New("sh", "-c", "echo begun; sleep 30"),
		ReportPath: report,
		Mode:       ModeCapturing,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.ExitCode != TimeoutStatus || !res.TimedOut || res.Cause() != CauseTimeout {
		t.Errorf("result = %+v, want timeout", res)
	}
	if elapsed := time.Since(start); elapsed < 300*time.Millisecond || elapsed > 10*time.Second {
		t.Errorf("elapsed = %v, want about 300ms", elapsed)
	}

	got := readFile(t, report)
	if !strings.HasPrefix(got, "begun\n") {
		t.Errorf("report = %q, want output before marker", got)
	}
	if !strings.HasSuffix(got, "\n"+TimeoutMarker+"\n") {
		t.Errorf("report = %q, want timeout marker suffix", got)
	}
}

func TestSupervisor_TimeoutStreamingAppendsMarker(t *testing.T) {
	report := filepath.Join(t.TempDir(), "cell.txt")

	s := newTestSupervisor(WithPollPolicy(fastPolicy()))
	res, err := s.Run(context.Background(), Job{
		Command:    shell.New("sleep", "30").RedirectTo(report),
		ReportPath: report,
		Mode:       ModeStreaming,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.TimedOut {
		t.Fatalf("result = %+v, want timeout", res)
	}
	if got := readFile(t, report); got != "\n"+TimeoutMarker+"\n" {
		t.Errorf("report = %q", got)
	}
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	s := NewSupervisor(
		WithShell("/nonexistent/shell", "-c"),
		WithLogger(quietLogger()),
	)

	_, err := s.Run(context.Background(), Job{
		Command:    shell.New("true"),
		ReportPath: filepath.Join(t.TempDir(), "r.txt"),
		Mode:       ModeCapturing,
	})
	if !errors.Is(err, ErrLaunch) {
		t.Errorf("err = %v, want ErrLaunch", err)
	}
}

func TestSupervisor_ReportNotWritable(t *testing.T) {
	s := newTestSupervisor()

	_, err := s.Run(context.Background(), Job{
		Command:    shell.New("true"),
		ReportPath: filepath.Join(t.TempDir(), "missing", "r.txt"),
		Mode:       ModeCapturing,
	})
	if !errors.Is(err, ErrLaunch) {
		t.Errorf("err = %v, want ErrLaunch", err)
	}
}

func TestSupervisor_EmptyCommand(t *testing.T) {
	s := newTestSupervisor()

	if _, err := s.Run(context.Background(), Job{}); !errors.Is(err, ErrLaunch) {
		t.Errorf("err = %v, want ErrLaunch", err)
	}
}

func TestSupervisor_KeepsCallerID(t *testing.T) {
	s := newTestSupervisor()

	res, err := s.Run(context.Background(), Job{ID: "fixed", Command: shell.New("true")})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.JobID != "fixed" {
		t.Errorf("JobID = %q, want fixed", res.JobID)
	}
}

func TestSupervisor_JobExitCallback(t *testing.T) {
	var (
		mu  sync.Mutex
		got []JobResult
	)

	s := newTestSupervisor(WithJobExitCallback(func(r JobResult) {
		mu.Lock()
		got = append(got, r)
		mu.Unlock()
	}))

	for _, code := range []string{"0", "2"} {
		if _, err := s.Run(context.Background(), Job{Command: shell.New("sh", "-c", "exit "+code)}); err != nil {
			t.Fatalf("Run: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("callback called %d times, want 2", len(got))
	}
	if got[0].ExitCode != 0 || got[1].ExitCode != 2 {
		t.Errorf("exit codes = %d, %d", got[0].ExitCode, got[1].ExitCode)
	}
}

func TestSupervisor_CallbackPanicRecovered(t *testing.T) {
	s := newTestSupervisor(WithJobExitCallback(func(JobResult) {
		panic("boom")
	}))

	if _, err := s.Run(context.Background(), Job{Command: shell.New("true")}); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestSupervisor_DrainTimeout(t *testing.T) {
	// A background descendant keeps the write end of the pipe open after
	// the shell exits.
	s := newTestSupervisor(WithDrainTimeout(100 * time.Millisecond))

	start := time.Now()
	res, err := s.Run(context.Background(), Job{
		Command: shell.New("sh", "-c", "sleep 2 & echo done"),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !res.Succeeded() {
		t.Errorf("result = %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 1500*time.Millisecond {
		t.Errorf("Run took %v, want drain timeout to bound the wait", elapsed)
	}
}

func TestSupervisor_CancelledContextDoesNotStopJob(t *testing.T) {
	report := filepath.Join(t.TempDir(), "r.txt")

	ctx, cancel := context.WithCancel(context.Background())
	s := newTestSupervisor()

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	res, err := s.Run(ctx, Job{
		Command:    shell.New("sleep", "0.3").Then("echo", "finished"),
		ReportPath: report,
		Mode:       ModeCapturing,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if ctx.Err() == nil {
		t.Fatal("context was not cancelled during the job")
	}
	if !res.Succeeded() {
		t.Errorf("result = %+v, want the job to run to completion", res)
	}
	if got := readFile(t, report); got != "finished\n" {
		t.Errorf("report = %q", got)
	}
}

func TestModeString(t *testing.T) {
	if ModeStreaming.String() != "streaming" || ModeCapturing.String() != "capturing" {
		t.Error("unexpected mode names")
	}
	if Mode(7).String() != "unknown(7)" {
		t.Errorf("Mode(7).String() = %q", Mode(7).String())
	}
}

type failingWriter struct{ calls int }

func (w *failingWriter) Write(p []byte) (int, error) {
	w.calls++
	return 0, errors.New("disk full")
}

func TestCopyOutput_KeepsDrainingAfterWriteError(t *testing.T) {
	w := &failingWriter{}
	src := strings.NewReader(strings.Repeat("x", 100*1024))

	err := copyOutput(w, src)
	if err == nil || err.Error() != "disk full" {
		t.Errorf("err = %v, want disk full", err)
	}
	if w.calls != 1 {
		t.Errorf("writer called %d times, want 1", w.calls)
	}
	if src.Len() != 0 {
		t.Errorf("%d bytes left unread", src.Len())
	}
}
