package cliui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencila/attractor/internal/core"
)

func TestFormatter_SuccessJSON(t *testing.T) {
	f := NewFormatter(AsJSON)
	out, err := f.Success(map[string]any{"name": "two-step"})
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)
	assert.Contains(t, out, "two-step")
}

func TestFormatter_SuccessYAML(t *testing.T) {
	f := NewFormatter(AsYAML)
	out, err := f.Success(map[string]any{"name": "two-step"})
	require.NoError(t, err)
	assert.Contains(t, out, "success: true")
	assert.Contains(t, out, "two-step")
}

func TestFormatter_FailureCarriesCoreErrorCode(t *testing.T) {
	f := NewFormatter(AsJSON)
	cause := core.NewError(nil, core.CodeWorkflowNotFound, map[string]any{"name": "ghost"})
	out, err := f.Failure(cause)
	require.NoError(t, err)
	assert.Contains(t, out, core.CodeWorkflowNotFound)
	assert.Contains(t, out, `"success": false`)
}

func TestFormatter_DefaultsToJSONWhenAsEmpty(t *testing.T) {
	f := NewFormatter("")
	assert.Equal(t, AsJSON, f.As)
}
