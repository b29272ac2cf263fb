// Package shell builds the single POSIX command lines handed to the process
// supervisor.
//
// Commands are assembled from argument vectors and rendered with quoting in
// one place, so callers never concatenate quoted strings by hand.
package shell

import "strings"

// Step is one argv in a command chain.
type Step []string

// Command is a chain of steps joined with "&&", optionally with its standard
// output redirected to a file.
type Command struct {
	Steps []Step

	// Stdout, if set, redirects the output of the last step.
	Stdout string
}

// New creates a command with a single step.
func New(name string, args ...string) Command {
	return Command{Steps: []Step{append(Step{name}, args...)}}
}

// Then appends a step that runs only if the previous steps succeeded.
func (c Command) Then(name string, args ...string) Command {
	steps := make([]Step, len(c.Steps), len(c.Steps)+1)
	copy(steps, c.Steps)
	c.Steps = append(steps, append(Step{name}, args...))
	return c
}

// Arg returns a copy of c with args appended to the last step.
func (c Command) Arg(args ...string) Command {
	if len(c.Steps) == 0 {
		return c
	}
	steps := make([]Step, len(c.Steps))
	copy(steps, c.Steps)
	last := steps[len(steps)-1]
	merged := make(Step, 0, len(last)+len(args))
	merged = append(merged, last...)
	steps[len(steps)-1] = append(merged, args...)
	c.Steps = steps
	return c
}

// RedirectTo returns a copy of c whose standard output goes to path.
func (c Command) RedirectTo(path string) Command {
	c.Stdout = path
	return c
}

// IsZero reports whether the command has no steps.
func (c Command) IsZero() bool {
	return len(c.Steps) == 0
}

// Line renders the command as one shell line.
func (c Command) Line() string {
	var b strings.Builder
	for i, step := range c.Steps {
		if i > 0 {
			b.WriteString(" && ")
		}
		for j, arg := range step {
			if j > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(Quote(arg))
		}
	}
	if c.Stdout != "" {
		b.WriteString(" > ")
		b.WriteString(Quote(c.Stdout))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (c Command) String() string {
	return c.Line()
}

// Quote escapes s for safe use as a single shell word.
// Words made only of letters, digits and -_./+ are returned as is; anything
// else is wrapped in single quotes with embedded quotes escaped. Bytes are
// copied as is, valid UTF-8 or not.
func Quote(s string) string {
	if s == "" {
		return "''"
	}

	needsEscape := false
	for i := 0; i < len(s); i++ {
		if !isSafe(s[i]) {
			needsEscape = true
			break
		}
	}
	if !needsEscape {
		return s
	}

	// 'foo'\''bar' -> foo'bar
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteByte(s[i])
		}
	}
	b.WriteByte('\'')
	return b.String()
}

func isSafe(c byte) bool {
	return (c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '/' || c == '+'
}
