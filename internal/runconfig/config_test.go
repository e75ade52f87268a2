package runconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "development", cfg.Runtime.Environment)
	assert.Equal(t, "info", cfg.Runtime.LogLevel)
	assert.Equal(t, 20, cfg.Limits.MaxNestingDepth)
	assert.Equal(t, 16, cfg.Limits.MaxParallelBranches)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.Retry.MaxBackoff)
	assert.Equal(t, "gemini", cfg.Providers.GeminiBinary)
	assert.Equal(t, ".stencila", cfg.Discovery.WorkspaceDirName)
}

func TestService_Validate(t *testing.T) {
	svc := NewService()

	t.Run("accepts the default configuration", func(t *testing.T) {
		assert.NoError(t, svc.Validate(Default()))
	})

	t.Run("rejects a nil configuration", func(t *testing.T) {
		err := svc.Validate(nil)
		assert.ErrorContains(t, err, "configuration cannot be nil")
	})

	t.Run("rejects an invalid runtime environment", func(t *testing.T) {
		cfg := Default()
		cfg.Runtime.Environment = "staging-but-misspelled"
		err := svc.Validate(cfg)
		assert.ErrorContains(t, err, "validation failed")
	})

	t.Run("rejects a zero max nesting depth", func(t *testing.T) {
		cfg := Default()
		cfg.Limits.MaxNestingDepth = 0
		err := svc.Validate(cfg)
		assert.ErrorContains(t, err, "validation failed")
	})

	t.Run("rejects max backoff not greater than initial backoff", func(t *testing.T) {
		cfg := Default()
		cfg.Retry.InitialBackoff = 10 * time.Second
		cfg.Retry.MaxBackoff = 5 * time.Second
		err := svc.Validate(cfg)
		assert.ErrorContains(t, err, "validation failed")
	})
}
