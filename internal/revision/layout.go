package revision

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layout resolves every path of a workspace from one root.
//
//	<root>/projectsList
//	<root>/revList
//	<root>/yearRange
//	<root>/downloads/<project>/editsamemc_revisions/<rev>/<inner>/git
//	<root>/downloads/<project>/editsamemc_revisions/<rev>/rev_merged_git/git
//	<root>/reports/<project>/editSameMCcontribs.csv
//	<root>/reports/<project>/<rev>/...
//	<root>/sdgs/<project>/<rev>
type Layout struct {
	Root string
}

// NewLayout returns a layout rooted at root.
func NewLayout(root string) Layout {
	return Layout{Root: filepath.Clean(root)}
}

// Downloads holds the checked-out projects.
func (l Layout) Downloads() string { return filepath.Join(l.Root, "downloads") }

// Reports holds build and analysis reports, one directory per project.
func (l Layout) Reports() string { return filepath.Join(l.Root, "reports") }

// SDGs holds stored dependence graphs, one directory per project.
func (l Layout) SDGs() string { return filepath.Join(l.Root, "sdgs") }

// ProjectsList names the projects to process, one owner/name per line.
func (l Layout) ProjectsList() string { return filepath.Join(l.Root, "projectsList") }

// RevList names the revisions to analyze directly, one target per line.
func (l Layout) RevList() string { return filepath.Join(l.Root, "revList") }

// YearRangeFile optionally holds a "<start>-<end>" range on its first line.
func (l Layout) YearRangeFile() string { return filepath.Join(l.Root, "yearRange") }

// ProjectPath is the download directory of a project.
func (l Layout) ProjectPath(project string) string {
	return filepath.Join(l.Downloads(), project)
}

// RevisionsDir holds one directory per revision of a project.
func (l Layout) RevisionsDir(project string) string {
	return filepath.Join(l.ProjectPath(project), "editsamemc_revisions")
}

// GitPath is the source tree of a revision.
func (l Layout) GitPath(project, rev, inner string) string {
	return filepath.Join(l.RevisionsDir(project), rev, inner, "git")
}

// MergedGitPath is the source tree of a revision's merge result.
func (l Layout) MergedGitPath(project, rev string) string {
	return filepath.Join(l.RevisionsDir(project), rev, "rev_merged_git", "git")
}

// ProjectReports is the report directory of a project.
func (l Layout) ProjectReports(project string) string {
	return filepath.Join(l.Reports(), project)
}

// ReportPath is the report directory of a revision.
func (l Layout) ReportPath(project, rev string) string {
	return filepath.Join(l.ProjectReports(project), rev)
}

// SDGPath is where a revision's graphs are stored.
func (l Layout) SDGPath(project, rev string) string {
	return filepath.Join(l.SDGs(), project, rev)
}

// ContribsFile lists a project's contributions.
func (l Layout) ContribsFile(project string) string {
	return filepath.Join(l.ProjectReports(project), "editSameMCcontribs.csv")
}

// BuildSummary is the CSV summarizing revision builds, or merge builds when
// merged is set.
func (l Layout) BuildSummary(project string, merged bool) string {
	name := "buildSummary.csv"
	if merged {
		name = "buildSummaryMerge.csv"
	}
	return filepath.Join(l.ProjectReports(project), name)
}

// RevisionDirs lists the revision directories of a project in name order.
func (l Layout) RevisionDirs(project string) ([]string, error) {
	entries, err := os.ReadDir(l.RevisionsDir(project))
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ProjectName returns the repository name of a projects list entry written
// as owner/name.
func ProjectName(entry string) string {
	entry = strings.TrimSpace(entry)
	if _, name, ok := strings.Cut(entry, "/"); ok {
		return name
	}
	return entry
}
