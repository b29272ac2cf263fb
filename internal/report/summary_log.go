// Package report writes the CSV files that summarize a run.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/dshills/revsweep/internal/integration/build"
)

// SummaryHeader is the first line of every build summary.
const SummaryHeader = "Rev; Built; Gradle; Ant; Mvn; Built with"

// SummaryLog appends one row per revision build. Every row is flushed to
// the file as soon as it is written, so an interrupted run keeps the rows
// it produced.
type SummaryLog struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	rows int
}

// CreateSummaryLog truncates or creates path, creating its directory, and
// writes the header.
func CreateSummaryLog(path string) (*SummaryLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create summary directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create summary: %w", err)
	}

	l := &SummaryLog{f: f, w: bufio.NewWriter(f)}
	if err := l.writeLine(SummaryHeader); err != nil {
		_ = f.Close()
		return nil, err
	}
	return l, nil
}

// Append writes "<rev>; <summary>".
func (l *SummaryLog) Append(rev string, s build.Summary) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.writeLine(rev + "; " + s.String()); err != nil {
		return err
	}
	l.rows++
	return nil
}

// Rows returns the number of rows appended.
func (l *SummaryLog) Rows() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rows
}

// Name returns the file path.
func (l *SummaryLog) Name() string {
	return l.f.Name()
}

func (l *SummaryLog) writeLine(line string) error {
	if _, err := io.WriteString(l.w, line+"\n"); err != nil {
		return fmt.Errorf("write summary row: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}

// Close flushes and closes the file.
func (l *SummaryLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *multierror.Error
	if err := l.w.Flush(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := l.f.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
