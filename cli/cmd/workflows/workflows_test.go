package workflows

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".stencila"), 0o755))
	t.Setenv("HOME", t.TempDir())
	return root
}

func writeTestWorkflow(t *testing.T, cwd, name, raw string) {
	t.Helper()
	dir := filepath.Join(cwd, ".stencila", "workflows", name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "WORKFLOW.md"), []byte(raw), 0o644))
}

func commandWorkflowFixture(name string) string {
	return "---\n" +
		"name: " + name + "\n" +
		"description: a two-node command pipeline\n" +
		"pipeline: \"digraph { a [type=command, command=\\\"true\\\"]; b [type=exit]; a -> b; }\"\n" +
		"---\n\nRuns a trivial command.\n"
}

func runCommand(t *testing.T, cwd string, args ...string) (string, error) {
	t.Helper()
	cmd := Cmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--cwd", cwd}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestList_TableDefault(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "two-step")
	assert.Contains(t, out, "NAME")
}

func TestList_JSON(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "list", "--as", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"two-step"`)
	assert.Contains(t, out, `"success": true`)
}

func TestShow_MarkdownDefault(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "show", "two-step")
	require.NoError(t, err)
	assert.Contains(t, out, "name: two-step")
	assert.Contains(t, out, "Runs a trivial command.")
}

func TestShow_MissingWorkflowFails(t *testing.T) {
	cwd := newTestWorkspace(t)
	_, err := runCommand(t, cwd, "show", "does-not-exist")
	require.Error(t, err)
}

func TestValidate_ByName(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "validate", "two-step")
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidate_ByPath(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))
	path := filepath.Join(cwd, ".stencila", "workflows", "two-step", "WORKFLOW.md")

	out, err := runCommand(t, cwd, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "valid")
}

func TestValidate_BadDOTFails(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "broken", "---\nname: broken\ndescription: bad\npipeline: \"not a dot graph {{{\"\n---\n")

	_, err := runCommand(t, cwd, "validate", "broken")
	require.Error(t, err)
}

func TestCreate_ScaffoldsWorkflow(t *testing.T) {
	cwd := newTestWorkspace(t)

	out, err := runCommand(t, cwd, "create", "fresh-flow", "a freshly scaffolded workflow")
	require.NoError(t, err)
	assert.Contains(t, out, "created")

	path := filepath.Join(cwd, ".stencila", "workflows", "fresh-flow", "WORKFLOW.md")
	raw, statErr := os.ReadFile(path)
	require.NoError(t, statErr)
	assert.Contains(t, string(raw), "name: fresh-flow")

	validateOut, err := runCommand(t, cwd, "validate", "fresh-flow")
	require.NoError(t, err)
	assert.Contains(t, validateOut, "valid")
}

func TestCreate_RejectsInvalidName(t *testing.T) {
	cwd := newTestWorkspace(t)
	_, err := runCommand(t, cwd, "create", "Not Kebab", "bad name")
	require.Error(t, err)
}

func TestCreate_RejectsDuplicate(t *testing.T) {
	cwd := newTestWorkspace(t)
	_, err := runCommand(t, cwd, "create", "two-step", "first")
	require.NoError(t, err)
	_, err = runCommand(t, cwd, "create", "two-step", "second")
	require.Error(t, err)
}

func TestRun_DryRunDoesNotExecute(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "run", "two-step", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run ok")
}

func TestRun_ExecutesToSuccess(t *testing.T) {
	cwd := newTestWorkspace(t)
	writeTestWorkflow(t, cwd, "two-step", commandWorkflowFixture("two-step"))

	out, err := runCommand(t, cwd, "run", "two-step", "--logs-dir", filepath.Join(t.TempDir(), "logs"))
	require.NoError(t, err)
	assert.Contains(t, out, "Success")
}

func TestRun_MissingWorkflowFails(t *testing.T) {
	cwd := newTestWorkspace(t)
	_, err := runCommand(t, cwd, "run", "does-not-exist")
	require.Error(t, err)
}
