package runconfig

import (
	"context"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
)

// SourceType identifies which layer a Source belongs to, purely for
// diagnostics (GetSource) — koanf itself does the actual layered merge.
type SourceType string

const (
	SourceDefault SourceType = "default"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceCLI     SourceType = "cli"
)

// Source is one layer of configuration input. Load returns a (possibly
// nested) map to merge into the running koanf instance; Watch registers an
// optional hot-reload callback; Close releases any resources (e.g. a file
// watcher).
type Source interface {
	Load() (map[string]any, error)
	Watch(ctx context.Context, onChange func()) error
	Type() SourceType
	Close() error
}

type staticSource struct {
	data map[string]any
	typ  SourceType
}

func (s *staticSource) Load() (map[string]any, error)      { return s.data, nil }
func (s *staticSource) Watch(context.Context, func()) error { return nil }
func (s *staticSource) Type() SourceType                    { return s.typ }
func (s *staticSource) Close() error                        { return nil }

// NewDefaultProvider returns a Source seeded with the built-in Default()
// configuration, flattened via koanf's structs provider.
func NewDefaultProvider() Source {
	k := newKoanf()
	_ = k.Load(structs.Provider(Default(), "koanf"), nil)
	return &staticSource{data: k.Raw(), typ: SourceDefault}
}

// NewEnvProvider returns a marker Source for the environment layer. Actual
// env-var reading happens natively inside Service.Load via koanf's own env
// provider (so prefix stripping and key transformation stay in one place);
// Load here returns an empty map, since loading is handled by koanf
// itself.
func NewEnvProvider() Source {
	return &staticSource{data: map[string]any{}, typ: SourceEnv}
}

// NewYAMLProvider reads path as YAML. A missing file is not an error — it
// yields an empty map, so an optional config file can simply not exist.
func NewYAMLProvider(path string) Source {
	return &yamlSource{path: path}
}

type yamlSource struct {
	path string
}

func (s *yamlSource) Load() (map[string]any, error) {
	if _, err := os.Stat(s.path); err != nil {
		return map[string]any{}, nil
	}
	k := newKoanf()
	if err := k.Load(file.Provider(s.path), yaml.Parser()); err != nil {
		return nil, err
	}
	return k.Raw(), nil
}

func (s *yamlSource) Watch(context.Context, func()) error { return nil }
func (s *yamlSource) Type() SourceType                    { return SourceYAML }
func (s *yamlSource) Close() error                        { return nil }

// cliFlagMap maps a flat CLI flag name onto its dotted config path.
var cliFlagMap = map[string]string{
	"environment":           "runtime.environment",
	"log-level":             "runtime.log_level",
	"max-nesting-depth":     "limits.max_nesting_depth",
	"max-parallel-branches": "limits.max_parallel_branches",
	"max-cord-runs":         "limits.max_cord_runs",
	"max-turns":             "limits.max_turns",
	"retry-max-attempts":    "retry.max_attempts",
	"gemini-binary":         "providers.gemini_binary",
	"claude-binary":         "providers.claude_binary",
	"codex-binary":          "providers.codex_binary",
}

// NewCLIProvider maps flat CLI flag values (as cobra would hand them over)
// onto the nested config structure.
func NewCLIProvider(flags map[string]any) Source {
	out := map[string]any{}
	for flag, value := range flags {
		path, ok := cliFlagMap[flag]
		if !ok {
			continue
		}
		setDotted(out, path, value)
	}
	return &staticSource{data: out, typ: SourceCLI}
}

func setDotted(m map[string]any, dotted string, value any) {
	parts := splitDot(dotted)
	cur := m
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
}

func splitDot(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	return parts
}
