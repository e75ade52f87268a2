// Package discovery implements Agent/Workflow discovery (spec §4.10):
// walking up from the working directory to find a workspace
// `.stencila/` root, reading `~/.config/stencila/` as the user-level
// fallback, and merging both by name with workspace taking precedence.
//
// Grounded on
// _examples/original_source/rust/agents/src/agent_def.rs's discover/
// get_by_name/list/list_dir functions: same two-tier precedence, same
// one-level-deep `*/AGENT.md` glob, same "skip and warn" handling of a
// single bad entry instead of failing the whole scan.
package discovery

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/stencila/attractor/internal/agentdef"
	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/logger"
)

var log = logger.NewLogger(nil)

const workspaceDirName = ".stencila"

// FindWorkspaceRoot walks up from cwd looking for a `.stencila` directory,
// mirroring stencila_dirs::closest_dot_dir. Returns "" if none is found
// before reaching the filesystem root.
func FindWorkspaceRoot(cwd string) string {
	dir := cwd
	for {
		candidate := filepath.Join(dir, workspaceDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// UserConfigDir returns `~/.config/stencila` (or "" if the home
// directory can't be resolved).
func UserConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "stencila")
}

// Agents discovers agent definitions visible from cwd: user-level
// entries first (lower precedence), then workspace entries, which
// overwrite same-named user entries. Results are sorted by name.
func Agents(cwd string) []*agentdef.Instance {
	byName := map[string]*agentdef.Instance{}

	if userDir := UserConfigDir(); userDir != "" {
		for _, inst := range listAgents(filepath.Join(userDir, "agents")) {
			byName[inst.Name] = inst.WithSource(agentdef.SourceUser)
		}
	}
	if wsRoot := FindWorkspaceRoot(cwd); wsRoot != "" {
		for _, inst := range listAgents(filepath.Join(wsRoot, "agents")) {
			byName[inst.Name] = inst.WithSource(agentdef.SourceWorkspace)
		}
	}

	return sortedAgentValues(byName)
}

// AgentByName finds a single agent by name, workspace taking precedence
// over user config, matching get_by_name.
func AgentByName(cwd, name string) (*agentdef.Instance, error) {
	var found *agentdef.Instance

	if userDir := UserConfigDir(); userDir != "" {
		if inst, err := getAgent(filepath.Join(userDir, "agents"), name); err == nil {
			found = inst.WithSource(agentdef.SourceUser)
		}
	}
	if wsRoot := FindWorkspaceRoot(cwd); wsRoot != "" {
		if inst, err := getAgent(filepath.Join(wsRoot, "agents"), name); err == nil {
			found = inst.WithSource(agentdef.SourceWorkspace)
		}
	}

	if found == nil {
		return nil, core.NewError(nil, core.CodeAgentNotFound, map[string]any{"name": name})
	}
	return found, nil
}

// Workflows mirrors Agents for WORKFLOW.md entries.
func Workflows(cwd string) []*agentdef.WorkflowInstance {
	byName := map[string]*agentdef.WorkflowInstance{}

	if userDir := UserConfigDir(); userDir != "" {
		for _, inst := range listWorkflows(filepath.Join(userDir, "workflows")) {
			byName[inst.Name] = inst.WithSource(agentdef.SourceUser)
		}
	}
	if wsRoot := FindWorkspaceRoot(cwd); wsRoot != "" {
		for _, inst := range listWorkflows(filepath.Join(wsRoot, "workflows")) {
			byName[inst.Name] = inst.WithSource(agentdef.SourceWorkspace)
		}
	}

	return sortedWorkflowValues(byName)
}

func listAgents(agentsDir string) []*agentdef.Instance {
	if _, err := os.Stat(agentsDir); err != nil {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(agentsDir), "*/AGENT.md")
	if err != nil {
		log.Warn("discovery: glob failed", "dir", agentsDir, "error", err)
		return nil
	}
	var out []*agentdef.Instance
	for _, rel := range matches {
		full := filepath.Join(agentsDir, rel)
		raw, err := os.ReadFile(full)
		if err != nil {
			log.Warn("discovery: skipping agent, read failed", "path", full, "error", err)
			continue
		}
		def, err := agentdef.ParseAgent(string(raw))
		if err != nil {
			log.Warn("discovery: skipping agent, parse failed", "path", full, "error", err)
			continue
		}
		out = append(out, agentdef.NewInstance(def, full))
	}
	return out
}

func getAgent(agentsDir, name string) (*agentdef.Instance, error) {
	for _, inst := range listAgents(agentsDir) {
		if inst.Name == name {
			return inst, nil
		}
	}
	return nil, core.NewError(nil, core.CodeAgentNotFound, map[string]any{"name": name})
}

func listWorkflows(workflowsDir string) []*agentdef.WorkflowInstance {
	if _, err := os.Stat(workflowsDir); err != nil {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(workflowsDir), "*/WORKFLOW.md")
	if err != nil {
		log.Warn("discovery: glob failed", "dir", workflowsDir, "error", err)
		return nil
	}
	var out []*agentdef.WorkflowInstance
	for _, rel := range matches {
		full := filepath.Join(workflowsDir, rel)
		raw, err := os.ReadFile(full)
		if err != nil {
			log.Warn("discovery: skipping workflow, read failed", "path", full, "error", err)
			continue
		}
		def, err := agentdef.ParseWorkflow(string(raw))
		if err != nil {
			log.Warn("discovery: skipping workflow, parse failed", "path", full, "error", err)
			continue
		}
		dirName := filepath.Base(filepath.Dir(full))
		if dirName != def.Name {
			log.Warn("discovery: workflow directory name mismatch", "path", full, "dir", dirName, "name", def.Name)
			continue
		}
		out = append(out, agentdef.NewWorkflowInstance(def, full))
	}
	return out
}

func sortedAgentValues(byName map[string]*agentdef.Instance) []*agentdef.Instance {
	out := make([]*agentdef.Instance, 0, len(byName))
	for _, v := range byName {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func sortedWorkflowValues(byName map[string]*agentdef.WorkflowInstance) []*agentdef.WorkflowInstance {
	out := make([]*agentdef.WorkflowInstance, 0, len(byName))
	for _, v := range byName {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
