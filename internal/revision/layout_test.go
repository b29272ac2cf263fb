package revision

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLayout_Paths(t *testing.T) {
	l := NewLayout("/ws/")

	tests := []struct {
		got  string
		want string
	}{
		{l.ProjectsList(), "/ws/projectsList"},
		{l.RevList(), "/ws/revList"},
		{l.YearRangeFile(), "/ws/yearRange"},
		{l.RevisionsDir("p"), "/ws/downloads/p/editsamemc_revisions"},
		{l.GitPath("p", "rev_a_b", "rev_a-b"), "/ws/downloads/p/editsamemc_revisions/rev_a_b/rev_a-b/git"},
		{l.MergedGitPath("p", "rev_a_b"), "/ws/downloads/p/editsamemc_revisions/rev_a_b/rev_merged_git/git"},
		{l.ReportPath("p", "rev_a_b"), "/ws/reports/p/rev_a_b"},
		{l.SDGPath("p", "rev_a_b"), "/ws/sdgs/p/rev_a_b"},
		{l.ContribsFile("p"), "/ws/reports/p/editSameMCcontribs.csv"},
		{l.BuildSummary("p", false), "/ws/reports/p/buildSummary.csv"},
		{l.BuildSummary("p", true), "/ws/reports/p/buildSummaryMerge.csv"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestLayout_RevisionDirs(t *testing.T) {
	l := NewLayout(t.TempDir())
	dir := l.RevisionsDir("proj")

	for _, d := range []string{"rev_c_d", "rev_a_b"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := l.RevisionDirs("proj")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"rev_a_b", "rev_c_d"}, got); diff != "" {
		t.Errorf("dirs mismatch (-want +got):\n%s", diff)
	}
}

func TestProjectName(t *testing.T) {
	if got := ProjectName("ReactiveX/RxJava"); got != "RxJava" {
		t.Errorf("ProjectName = %q", got)
	}
	if got := ProjectName(" plain "); got != "plain" {
		t.Errorf("ProjectName = %q", got)
	}
}
