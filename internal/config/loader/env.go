package loader

import (
	"os"
	"sort"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// A variable PREFIX_SECTION_SOME_KEY sets section.some_key unless an
// explicit mapping names another path. With known paths set, variables are
// resolved against them instead and those matching none are skipped.
type EnvLoader struct {
	prefix  string            // Environment variable prefix (e.g., "REVSWEEP_")
	mapping map[string]string // Env var -> config path
	known   map[string]string // flattened key (a_b_c) -> config path (a.b.c)
	environ func() []string
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "REVSWEEP_").
func NewEnvLoader(prefix string) *EnvLoader {
	return NewEnvLoaderWithMapping(prefix, defaultEnvMapping(prefix))
}

// NewEnvLoaderWithMapping creates a loader with custom environment variable mappings.
func NewEnvLoaderWithMapping(prefix string, mapping map[string]string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: mapping,
		environ: os.Environ,
	}
}

// defaultEnvMapping returns shorthands for the most used settings.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "ROOT":         "paths.root",
		prefix + "LOG_LEVEL":    "logging.level",
		prefix + "LOG_FORMAT":   "logging.format",
		prefix + "METRICS_ADDR": "metrics.addr",
		prefix + "SHELL":        "supervisor.shell",
		prefix + "JAVA":         "sweep.java",
		prefix + "JAR":          "sweep.jar",
	}
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range l.environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, mapped := l.mapping[name]
		if !mapped {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		setByPath(config, path, parseValue(value))
	}

	return config, nil
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	if l.mapping == nil {
		l.mapping = make(map[string]string)
	}
	l.mapping[envVar] = configPath
}

// SetKnownPaths restricts derived paths to the given dotted keys, so that
// REVSWEEP_SWEEP_HEAP_DEFAULT reaches sweep.heap.default.
func (l *EnvLoader) SetKnownPaths(paths []string) {
	l.known = make(map[string]string, len(paths))
	for _, p := range paths {
		l.known[strings.ReplaceAll(p, ".", "_")] = p
	}
}

// envToPath converts REVSWEEP_SUPERVISOR_DRAIN_TIMEOUT to
// supervisor.drain_timeout. It returns "" for a variable that names no
// setting.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	if l.known != nil {
		return l.known[name]
	}
	section, key, ok := strings.Cut(name, "_")
	if !ok || section == "" || key == "" {
		return ""
	}
	return section + "." + key
}

// parseValue converts integers and booleans. Everything else, durations
// included, stays a string for the typed decoder to interpret.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}

// LeafPaths returns the dotted path of every non-map value in m, sorted.
func LeafPaths(m map[string]any) []string {
	var paths []string
	collectLeaves(m, "", &paths)
	sort.Strings(paths)
	return paths
}

func collectLeaves(m map[string]any, prefix string, paths *[]string) {
	for key, v := range m {
		path := prefix + key
		if sub, ok := v.(map[string]any); ok {
			collectLeaves(sub, path+".", paths)
			continue
		}
		*paths = append(*paths, path)
	}
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = value
}
