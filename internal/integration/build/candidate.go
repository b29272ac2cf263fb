package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/revsweep/internal/integration/shell"
)

// System identifies a build system.
type System int

const (
	// GradleWrapper is a Gradle build driven by the project's gradlew script.
	GradleWrapper System = iota
	// Gradle is a Gradle build using the gradle on PATH.
	Gradle
	// Ant is an Apache Ant build.
	Ant
	// Maven is an Apache Maven build.
	Maven
)

// Systems lists every system in priority order.
var Systems = []System{GradleWrapper, Gradle, Ant, Maven}

// Label returns the name written to build summaries. Both Gradle variants
// share one label.
func (s System) Label() string {
	switch s {
	case GradleWrapper, Gradle:
		return "Gradle"
	case Ant:
		return "Ant"
	case Maven:
		return "Maven"
	default:
		return fmt.Sprintf("System(%d)", int(s))
	}
}

// String returns a distinct name for logs and metrics.
func (s System) String() string {
	if s == GradleWrapper {
		return "GradleWrapper"
	}
	return s.Label()
}

// Candidate describes how to detect and run one build system.
type Candidate struct {
	System System

	// Marker is the file whose presence in the source root selects this
	// candidate.
	Marker string

	// Report is the report file name, relative to the report root and
	// before the prefix is applied.
	Report string

	// Command builds the invocation for a source root.
	Command func(root string) shell.Command
}

// Present reports whether the candidate's marker exists under root.
func (c Candidate) Present(root string) bool {
	_, err := os.Stat(filepath.Join(root, c.Marker))
	return err == nil
}

// DefaultCandidates returns the candidates in priority order: Gradle wrapper,
// Gradle, Ant, Maven. Tests are never run.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{
			System: GradleWrapper,
			Marker: "gradlew",
			Report: "build_gradlew.txt",
			Command: func(root string) shell.Command {
				gradlew := filepath.Join(root, "gradlew")
				return shell.New("chmod", "+x", gradlew).
					Then(gradlew, "build", "-p", root, "-x", "test")
			},
		},
		{
			System: Gradle,
			Marker: "build.gradle",
			Report: "build_gradle.txt",
			Command: func(root string) shell.Command {
				return shell.New("gradle", "build", "-p", root, "-x", "test")
			},
		},
		{
			System: Ant,
			Marker: "build.xml",
			Report: "build_ant.txt",
			Command: func(root string) shell.Command {
				return shell.New("ant", "-buildfile", filepath.Join(root, "build.xml"))
			},
		},
		{
			System: Maven,
			Marker: "pom.xml",
			Report: "build_mvn.txt",
			Command: func(root string) shell.Command {
				return shell.New("mvn", "compile", "-f", filepath.Join(root, "pom.xml"))
			},
		},
	}
}
