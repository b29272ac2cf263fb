// Package revision reads the inputs that describe which merge revisions to
// build and analyze.
package revision

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ContribSeparator separates the fields of a contribution record.
const ContribSeparator = "; "

// Target is one revision named in a rev list.
type Target struct {
	Project string

	// Rev is the revision directory name, rev_<left>_<right>.
	Rev string

	// Inner is the contribution key and the name of the tree inside Rev,
	// rev_<left>-<right>.
	Inner string

	// Libs is passed to the analysis unchanged. May be empty.
	Libs string
}

// ParseRevList parses lines of the form
//
//	project, <left>_<right>[, libs]
//
// Blank lines are skipped.
func ParseRevList(lines []string) ([]Target, error) {
	var targets []Target
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			return nil, fmt.Errorf("rev list line %d: want project and revision, got %q", i+1, line)
		}

		revStr := strings.TrimSpace(fields[1])
		left, right, ok := strings.Cut(revStr, "_")
		if !ok {
			return nil, fmt.Errorf("rev list line %d: revision %q is not <left>_<right>", i+1, revStr)
		}

		t := Target{
			Project: strings.TrimSpace(fields[0]),
			Rev:     "rev_" + revStr,
			Inner:   "rev_" + strings.TrimSpace(left) + "-" + strings.TrimSpace(right),
		}
		if len(fields) >= 3 {
			t.Libs = strings.TrimSpace(fields[2])
		}
		targets = append(targets, t)
	}
	return targets, nil
}

// InnerFromDir derives the inner tree name from a revision directory named
// <base>_<left>_<right>.
func InnerFromDir(dir string) (string, error) {
	parts := strings.Split(dir, "_")
	if len(parts) < 3 {
		return "", fmt.Errorf("revision directory %q is not <base>_<left>_<right>", dir)
	}
	return parts[0] + "_" + parts[1] + "-" + parts[2], nil
}

// FilterContributions returns the newline-joined records whose second field
// is inner.
func FilterContributions(lines []string, inner string) string {
	var out []string
	for _, line := range lines {
		fields := strings.Split(line, ContribSeparator)
		if len(fields) > 1 && fields[1] == inner {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// YearRange bounds the commit year of revisions worth analyzing. A zero
// bound is open.
type YearRange struct {
	Start int
	End   int
}

// Unbounded reports whether r accepts every year.
func (r YearRange) Unbounded() bool {
	return r.Start == 0 && r.End == 0
}

// ParseYearRange parses "<start>-<end>" where either side may be empty.
// Anything that is not two dash-separated parts yields an unbounded range.
func ParseYearRange(s string) (YearRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return YearRange{}, nil
	}

	var r YearRange
	var err error
	if p := strings.TrimSpace(parts[0]); p != "" {
		if r.Start, err = strconv.Atoi(p); err != nil {
			return YearRange{}, fmt.Errorf("year range start: %w", err)
		}
	}
	if p := strings.TrimSpace(parts[1]); p != "" {
		if r.End, err = strconv.Atoi(p); err != nil {
			return YearRange{}, fmt.Errorf("year range end: %w", err)
		}
	}
	return r, nil
}

// ErrNoDate is returned when a contribution record carries no date field.
var ErrNoDate = errors.New("contribution has no date field")

// Contains reports whether the revision described by contribs falls inside
// r. The year is read from the last four characters of the date field of
// the first record. A bounded range never contains a revision without
// contributions.
func (r YearRange) Contains(contribs string) (bool, error) {
	if r.Unbounded() {
		return true, nil
	}
	if contribs == "" {
		return false, nil
	}

	first, _, _ := strings.Cut(contribs, "\n")
	fields := strings.Split(first, ContribSeparator)
	if len(fields) < 3 || len(fields[2]) < 4 {
		return false, fmt.Errorf("%w: %q", ErrNoDate, first)
	}
	date := fields[2]
	year, err := strconv.Atoi(date[len(date)-4:])
	if err != nil {
		return false, fmt.Errorf("contribution year: %w", err)
	}

	return (r.Start == 0 || year >= r.Start) && (r.End == 0 || year <= r.End), nil
}

// ReadLines returns the lines of the file at path.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

// HeapConfig chooses JVM heap flags by where the workspace lives.
type HeapConfig struct {
	// LargePrefix, when non-empty, selects Large for roots under it.
	LargePrefix string
	Large       string
	Default     string
}

// DefaultHeapConfig returns the heap flags used when nothing is configured.
func DefaultHeapConfig() HeapConfig {
	return HeapConfig{
		Large:   "-Xms80g -Xmx120g",
		Default: "-Xms1g -Xmx2g",
	}
}

// HeapFor returns the heap flags for a workspace rooted at root.
func HeapFor(root string, cfg HeapConfig) string {
	if cfg.LargePrefix != "" && strings.HasPrefix(root, cfg.LargePrefix) {
		return cfg.Large
	}
	return cfg.Default
}
