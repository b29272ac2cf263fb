package shell

import (
	"os/exec"
	"strings"
	"testing"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "''"},
		{"build", "build"},
		{"/tmp/rev_a-b/git", "/tmp/rev_a-b/git"},
		{"-Xmx2g", "-Xmx2g"},
		{"has space", "'has space'"},
		{"ignoreExceptions=true", "'ignoreExceptions=true'"},
		{"it's", `'it'\''s'`},
		{"a;b", "'a;b'"},
		{"$HOME", "'$HOME'"},
		{"dir\xff name", "'dir\xff name'"},
		{"caf\xe9", "'caf\xe9'"},
	}

	for _, tt := range tests {
		if got := Quote(tt.in); got != tt.want {
			t.Errorf("Quote(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCommand_Line(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "single step",
			cmd:  New("mvn", "compile", "-f", "/src/pom.xml"),
			want: "mvn compile -f /src/pom.xml",
		},
		{
			name: "chained",
			cmd:  New("chmod", "+x", "/src/gradlew").Then("/src/gradlew", "build"),
			want: "chmod +x /src/gradlew && /src/gradlew build",
		},
		{
			name: "redirect",
			cmd:  New("echo", "hi").RedirectTo("/out dir/log.txt"),
			want: "echo hi > '/out dir/log.txt'",
		},
		{
			name: "empty argument kept",
			cmd:  New("java", "", "x"),
			want: "java '' x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.Line(); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommand_ArgDoesNotAlias(t *testing.T) {
	base := New("java", "-jar", "tool.jar")
	a := base.Arg("one")
	b := base.Arg("two")

	if got := base.Line(); got != "java -jar tool.jar" {
		t.Errorf("base mutated: %q", got)
	}
	if got := a.Line(); got != "java -jar tool.jar one" {
		t.Errorf("a = %q", got)
	}
	if got := b.Line(); got != "java -jar tool.jar two" {
		t.Errorf("b = %q", got)
	}
}

func TestCommand_ArgOnZero(t *testing.T) {
	var c Command
	if !c.Arg("x").IsZero() {
		t.Error("Arg on zero command should stay zero")
	}
}

func TestQuote_RoundTripThroughShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	words := []string{"plain", "with space", "it's", "a;b && c", "$HOME", "", "line\nbreak", "dir\xff name"}
	cmd := New("printf", "%s|").Arg(words...)

	out, err := exec.Command("sh", "-c", cmd.Line()).Output()
	if err != nil {
		t.Fatalf("sh failed: %v", err)
	}

	want := strings.Join(words, "|") + "|"
	if string(out) != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestQuote_KeepsRawBytes(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	const path = "/src/r\xe9vision\xff/git"
	out, err := exec.Command("/bin/sh", "-c", New("printf", "%s", path).Line()).Output()
	if err != nil {
		t.Fatalf("sh failed: %v", err)
	}
	if string(out) != path {
		t.Errorf("output = %q, want %q", out, path)
	}
}
