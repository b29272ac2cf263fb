package loader

import (
	"errors"
	"testing"
)

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/revsweep.yaml", `
sweep:
  java: /opt/jdk/bin/java
supervisor:
  shell_args: [-e, -c]
logging:
  level: debug
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/revsweep.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	sweep, ok := config["sweep"].(map[string]any)
	if !ok {
		t.Fatalf("sweep = %T, want map", config["sweep"])
	}
	if sweep["java"] != "/opt/jdk/bin/java" {
		t.Errorf("java = %v", sweep["java"])
	}
	sup := config["supervisor"].(map[string]any)
	if args, ok := sup["shell_args"].([]any); !ok || len(args) != 2 {
		t.Errorf("shell_args = %v", sup["shell_args"])
	}
}

func TestYAMLLoader_Empty(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/empty.yaml", "")

	config, err := NewYAMLLoaderWithFS(memfs, "/empty.yaml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if config == nil || len(config) != 0 {
		t.Errorf("config = %v, want empty map", config)
	}
}

func TestYAMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.yaml", "logging:\n  level: [unclosed\n")

	_, err := NewYAMLLoaderWithFS(memfs, "/bad.yaml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("err = %v, want *ParseError", err)
	}
	if perr.Path != "/bad.yaml" {
		t.Errorf("Path = %q", perr.Path)
	}
}
