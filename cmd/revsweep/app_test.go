package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	app := newApp(newState(context.Background()))
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run(append([]string{"revsweep", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestBuild_NoBuildSystem(t *testing.T) {
	src := t.TempDir()
	reports := filepath.Join(t.TempDir(), "reports")

	out, err := runApp(t, "build", src, reports)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := strings.TrimSpace(out); got != "False; False; False; False; -" {
		t.Errorf("summary = %q", got)
	}
	if _, err := os.Stat(reports); !os.IsNotExist(err) {
		t.Errorf("report root created with nothing to build: %v", err)
	}
}

func TestBuild_MissingArgs(t *testing.T) {
	if _, err := runApp(t, "build", t.TempDir()); err == nil {
		t.Error("expected error for missing report root")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	var out bytes.Buffer
	app := newApp(newState(context.Background()))
	app.Writer = &out
	app.ErrWriter = &out

	err := app.Run([]string{"revsweep", "--log-level", "loud", "build", t.TempDir(), t.TempDir()})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "logging.level") {
		t.Errorf("error = %v", err)
	}
}

func TestMissingConfigFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "revsweep.toml")
	if _, err := runApp(t, "--config", missing, "build", t.TempDir(), t.TempDir()); err == nil {
		t.Error("expected error for missing config file")
	}
}
