package sweep

import (
	"strings"

	"github.com/dshills/revsweep/internal/integration/shell"
)

// Analysis locates the analysis tool.
type Analysis struct {
	// Java is the JVM launcher.
	Java string

	// Jar is the path of the analysis jar.
	Jar string

	// Nohup prefixes the invocation with nohup.
	Nohup bool
}

// DefaultAnalysis returns the launcher used when nothing is configured.
func DefaultAnalysis() Analysis {
	return Analysis{Java: "java", Jar: "joana_inv.jar", Nohup: true}
}

// Params are the inputs of one sweep over a revision.
type Params struct {
	// WorkingRoot is the source tree to analyze.
	WorkingRoot string

	// ReportRoot receives the per-cell reports and the execution summary.
	ReportRoot string

	// SDGRoot is where graphs are stored. Empty disables storage.
	SDGRoot string

	// Contributions is the newline-joined contribution records of the
	// revision. May be empty.
	Contributions string

	// Heap holds JVM heap flags separated by spaces, e.g. "-Xms1g -Xmx2g".
	Heap string

	// LibraryPaths is passed through to the tool unchanged.
	LibraryPaths string
}

// BaseCommand builds the invocation shared by every cell:
//
//	[nohup] java <heap...> -jar <jar> <root> <reports> <sdgs> <contribs> <libs>
func (a Analysis) BaseCommand(p Params) shell.Command {
	var argv []string
	if a.Nohup {
		argv = append(argv, "nohup")
	}
	argv = append(argv, a.Java)
	argv = append(argv, strings.Fields(p.Heap)...)
	argv = append(argv, "-jar", a.Jar,
		p.WorkingRoot, p.ReportRoot, p.SDGRoot, p.Contributions, p.LibraryPaths)
	return shell.New(argv[0], argv[1:]...)
}

// CellCommand appends the cell's flags to base and redirects standard
// output to report.
func CellCommand(base shell.Command, c Cell, report string) shell.Command {
	return base.Arg(c.Args()...).RedirectTo(report)
}
