package runconfig

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/go-playground/validator/v10"
)

const envPrefix = "ATTRACTOR_"

func newKoanf() *koanf.Koanf {
	return koanf.New(".")
}

// Service loads and validates Config from an ordered list of Sources,
// layered over built-in defaults and environment variables, which are
// always applied first (in that order) so any caller-supplied source
// overrides both.
type Service struct {
	mu       sync.Mutex
	validate *validator.Validate
	sources  map[string]SourceType
}

// NewService returns a ready-to-use Service.
func NewService() *Service {
	return &Service{validate: newValidator(), sources: map[string]SourceType{}}
}

// Load merges, in precedence order, the built-in defaults, the process
// environment (prefixed ATTRACTOR_), and each non-nil source given (later
// sources win), then unmarshals and validates the result.
func (s *Service) Load(_ context.Context, sources ...Source) (*Config, error) {
	k := newKoanf()

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load default source: %w", err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return transformEnvKey(strings.TrimPrefix(key, envPrefix)), value
		},
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load from source: %w", err)
	}

	for _, src := range sources {
		if src == nil {
			continue
		}
		data, err := src.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load from source: %w", err)
		}
		s.mu.Lock()
		recordSourceKeys(s.sources, data, "", src.Type())
		s.mu.Unlock()
		if err := k.Load(confmap.Provider(data, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load from source: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := s.Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate runs struct-tag and cross-field validation over cfg.
func (s *Service) Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := s.validate.Struct(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// GetSource reports which source layer last set the value at key
// ("runtime.log_level" etc). Returns SourceDefault if key was never
// explicitly set by a caller-supplied source.
func (s *Service) GetSource(key string) SourceType {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.sources[key]; ok {
		return t
	}
	return SourceDefault
}

// Watch accepts a callback for configuration hot-reload. No source reports
// changes, so the callback is only checked for nil; it is neither stored
// nor invoked.
func (s *Service) Watch(_ context.Context, onChange func(*Config)) error {
	if onChange == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	return nil
}

func recordSourceKeys(dest map[string]SourceType, data map[string]any, prefix string, typ SourceType) {
	for k, v := range data {
		full := k
		if prefix != "" {
			full = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			recordSourceKeys(dest, nested, full, typ)
			continue
		}
		dest[full] = typ
	}
}

// transformEnvKey turns an env-style key (FOO_BAR_BAZ) into a dotted,
// lowercase koanf path (foo.bar_baz): the first underscore-delimited
// segment becomes the top-level section, remaining segments stay joined by
// underscores as the leaf key.
func transformEnvKey(key string) string {
	trimmed := strings.Trim(key, "_")
	if trimmed == "" {
		return ""
	}
	var parts []string
	for _, p := range strings.Split(trimmed, "_") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	lower := make([]string, len(parts))
	for i, p := range parts {
		lower[i] = strings.ToLower(p)
	}
	if len(lower) == 1 {
		return lower[0]
	}
	return lower[0] + "." + strings.Join(lower[1:], "_")
}
