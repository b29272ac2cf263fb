// Package loader reads configuration sources into generic maps.
//
// File loaders (TOML, YAML) and the environment loader all produce
// map[string]any trees that are combined with Merge before being
// decoded into typed configuration.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Loader is the interface for configuration loaders.
type Loader interface {
	// Load reads configuration from the source and returns a map.
	// Returns nil, nil if the source doesn't exist (not an error).
	Load() (map[string]any, error)
}

// FileSystem is the subset of file operations the file loaders need.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// ForPath returns the file loader matching the extension of path.
func ForPath(fsys FileSystem, path string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return NewTOMLLoaderWithFS(fsys, path), nil
	case ".yaml", ".yml":
		return NewYAMLLoaderWithFS(fsys, path), nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
}

// readOptional reads path, mapping a missing file to nil data.
func readOptional(fsys FileSystem, path string) ([]byte, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return data, nil
}

// ParseError reports a syntax error in a configuration file. Line and
// Column are 1-based and zero when the parser did not report them.
type ParseError struct {
	Format  string
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

// Error returns "path:line:col: invalid <format>: message".
func (e *ParseError) Error() string {
	pos := e.Path
	if e.Line > 0 {
		pos += ":" + strconv.Itoa(e.Line)
		if e.Column > 0 {
			pos += ":" + strconv.Itoa(e.Column)
		}
	}
	if e.Format == "" {
		return fmt.Sprintf("%s: %s", pos, e.Message)
	}
	return fmt.Sprintf("%s: invalid %s: %s", pos, e.Format, e.Message)
}

// Unwrap returns the parser's error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Merge layers the given trees in order and returns a new tree; later
// layers win. Nested maps merge key by key, any other value replaces what
// was there. The inputs are not modified.
func Merge(layers ...map[string]any) map[string]any {
	out := make(map[string]any)
	for _, layer := range layers {
		mergeInto(out, layer)
	}
	return out
}

func mergeInto(dst, src map[string]any) {
	for key, v := range src {
		sub, ok := v.(map[string]any)
		if !ok {
			dst[key] = v
			continue
		}
		cur, ok := dst[key].(map[string]any)
		if !ok {
			cur = make(map[string]any, len(sub))
			dst[key] = cur
		}
		mergeInto(cur, sub)
	}
}
