package build

import (
	"fmt"
	"strings"
)

// NoSystem is the Last value when no candidate applies.
const NoSystem = "-"

// Summary is the outcome of one build attempt over a source tree.
type Summary struct {
	// Built is true iff some candidate exited with status zero.
	Built bool

	// Present holds the marker detection result for every system,
	// independent of which candidates ran.
	Present map[System]bool

	// Last is the label of the last system attempted, or NoSystem.
	Last string
}

// GradlePresent reports whether either Gradle marker was found.
func (s Summary) GradlePresent() bool {
	return s.Present[GradleWrapper] || s.Present[Gradle]
}

// AntPresent reports whether build.xml was found.
func (s Summary) AntPresent() bool {
	return s.Present[Ant]
}

// MavenPresent reports whether pom.xml was found.
func (s Summary) MavenPresent() bool {
	return s.Present[Maven]
}

// AnyPresent reports whether any build system was detected.
func (s Summary) AnyPresent() bool {
	for _, ok := range s.Present {
		if ok {
			return true
		}
	}
	return false
}

// String renders the summary record:
//
//	<built>; <gradle>; <ant>; <maven>; <last>
func (s Summary) String() string {
	last := s.Last
	if last == "" {
		last = NoSystem
	}
	return fmt.Sprintf("%s; %s; %s; %s; %s",
		boolField(s.Built), boolField(s.GradlePresent()),
		boolField(s.AntPresent()), boolField(s.MavenPresent()), last)
}

// ParseSummary parses a record produced by Summary.String. Because the
// record does not distinguish the Gradle variants, a present Gradle is
// reported as Gradle.
func ParseSummary(record string) (Summary, error) {
	fields := strings.Split(record, ";")
	if len(fields) != 5 {
		return Summary{}, fmt.Errorf("build summary: want 5 fields, got %d in %q", len(fields), record)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	var flags [4]bool
	for i := range flags {
		v, err := parseBoolField(fields[i])
		if err != nil {
			return Summary{}, fmt.Errorf("build summary field %d: %w", i+1, err)
		}
		flags[i] = v
	}

	return Summary{
		Built: flags[0],
		Present: map[System]bool{
			Gradle: flags[1],
			Ant:    flags[2],
			Maven:  flags[3],
		},
		Last: fields[4],
	}, nil
}

func boolField(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func parseBoolField(s string) (bool, error) {
	switch s {
	case "True":
		return true, nil
	case "False":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}
