// Package runconfig loads and validates the engine's runtime configuration
// from layered sources: built-in defaults, then environment variables, then
// each caller-supplied source (a YAML file, CLI flags) in the order given,
// later layers winning.
//
// Grounded on `pkg/config/{config_test.go,loader_test.go,provider_test.go}`
// (no non-test source files survived retrieval-pack filtering, so the
// Service/Source/precedence contract below is reconstructed from what those
// tests assert) — narrowed from a much larger server/database/Temporal
// config surface down to this engine's actual knobs: runtime mode, graph
// limits, retry defaults, CLI provider binaries, and discovery paths.
package runconfig

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Runtime controls logging and environment-dependent defaults.
type Runtime struct {
	Environment string `koanf:"environment" validate:"oneof=development production test"`
	LogLevel    string `koanf:"log_level"   validate:"oneof=debug info warn error disabled"`
}

// Limits bounds graph and context growth (spec §5's resource model).
type Limits struct {
	MaxNestingDepth     int `koanf:"max_nesting_depth"      validate:"gt=0"`
	MaxParallelBranches int `koanf:"max_parallel_branches"  validate:"gt=0"`
	MaxCordRuns         int `koanf:"max_cord_runs"          validate:"gt=0"`
	MaxTurns            int `koanf:"max_turns"              validate:"gt=0"`
}

// Retry holds the engine-wide default retry policy (spec §4.3), used when
// a pipeline node doesn't declare its own.
type Retry struct {
	MaxAttempts    int           `koanf:"max_attempts"    validate:"gte=1"`
	InitialBackoff time.Duration `koanf:"initial_backoff" validate:"gt=0"`
	MaxBackoff     time.Duration `koanf:"max_backoff"     validate:"gt=0"`
}

// Providers names the CLI binaries the provider adapters shell out to
// (spec §4.9); overridable so a test or a sandboxed install can point at a
// stub binary.
type Providers struct {
	GeminiBinary string `koanf:"gemini_binary"`
	ClaudeBinary string `koanf:"claude_binary"`
	CodexBinary  string `koanf:"codex_binary"`
}

// Discovery controls agent/workflow discovery (spec §4.10).
type Discovery struct {
	WorkspaceDirName string `koanf:"workspace_dir_name"`
	UserConfigDirEnv string `koanf:"user_config_dir_env"`
}

// Config is the fully resolved, validated engine configuration.
type Config struct {
	Runtime   Runtime   `koanf:"runtime"`
	Limits    Limits    `koanf:"limits"`
	Retry     Retry     `koanf:"retry"`
	Providers Providers `koanf:"providers"`
	Discovery Discovery `koanf:"discovery"`
}

// Default returns the built-in configuration: development environment,
// generous but finite limits, and the conventional CLI binary names.
func Default() *Config {
	return &Config{
		Runtime: Runtime{
			Environment: "development",
			LogLevel:    "info",
		},
		Limits: Limits{
			MaxNestingDepth:     20,
			MaxParallelBranches: 16,
			MaxCordRuns:         10000,
			MaxTurns:            50,
		},
		Retry: Retry{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
		},
		Providers: Providers{
			GeminiBinary: "gemini",
			ClaudeBinary: "claude",
			CodexBinary:  "codex",
		},
		Discovery: Discovery{
			WorkspaceDirName: ".stencila",
			UserConfigDirEnv: "STENCILA_CONFIG_DIR",
		},
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateRetryBackoffOrder, Retry{})
	return v
}

// validateRetryBackoffOrder enforces MaxBackoff > InitialBackoff, the same
// shape as a dispatcher-heartbeat-TTL-vs-interval cross-field check.
func validateRetryBackoffOrder(sl validator.StructLevel) {
	r := sl.Current().Interface().(Retry)
	if r.InitialBackoff > 0 && r.MaxBackoff > 0 && r.MaxBackoff <= r.InitialBackoff {
		sl.ReportError(r.MaxBackoff, "MaxBackoff", "MaxBackoff", "gtfield_initial_backoff", "")
	}
}
