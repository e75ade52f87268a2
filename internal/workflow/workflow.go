// Package workflow is the composition root for spec §4.12's Workflow
// Runner: it resolves a named workflow via internal/discovery, parses and
// stylesheets its pipeline, wires a handler.Registry over
// internal/engine/internal/parallel with a session+provider-backed
// AgentRunner, creates the run's logs directory, and drives the engine to
// a final outcome.
//
// Grounded on kilroy's top-level engine `Prepare`/`Run` entry-point shape
// (stylesheet application before run, goal expansion) and on
// cmd/compozy.go's command-assembly pattern for how a CLI surface wires a
// composition root together — the pieces it composes (engine, handler,
// parallel, discovery, stylesheet, agentdef, session, provider) are each
// already built and tested standalone.
package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stencila/attractor/internal/agentdef"
	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/discovery"
	"github.com/stencila/attractor/internal/engine"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/handler"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/parallel"
	"github.com/stencila/attractor/internal/pctx"
	"github.com/stencila/attractor/internal/runconfig"
	"github.com/stencila/attractor/internal/stylesheet"
)

// Options overrides the defaults a workflow run would otherwise use.
type Options struct {
	// Goal overrides the workflow definition's own `goal` frontmatter
	// field, when non-empty.
	Goal string
	// LogsDir overrides the default `/tmp/stencila-workflow-<name>`
	// logs directory.
	LogsDir string
	// Providers names the CLI binaries backing each agent's provider;
	// zero-valued fields fall back to runconfig.Default().Providers.
	Providers runconfig.Providers
	// WorkingDir is the directory CLI provider subprocesses are spawned
	// in; defaults to cwd.
	WorkingDir string
	// Sink receives engine lifecycle events; nil discards them.
	Sink engine.EventEmitter
}

// Result is what a completed (or failed-but-routed) workflow run produced.
type Result struct {
	RunID   core.ID
	Outcome outcome.Outcome
	Context map[string]any
	LogsDir string
}

// defaultLogsDir builds the default logs directory path for a named run,
// per spec §4.12 step 4.
func defaultLogsDir(name string) string {
	return filepath.Join(os.TempDir(), "stencila-workflow-"+name)
}

// Run resolves, prepares, and executes the named workflow discoverable
// from cwd, implementing spec §4.12's six run steps in order.
func Run(ctx context.Context, cwd, name string, opts Options) (*Result, error) {
	runID := core.MustNewID()

	wf, err := resolveWorkflow(cwd, name)
	if err != nil {
		return nil, err
	}

	g, err := graph.ParseDOT(wf.Pipeline)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	if wf.ModelStylesheet != "" {
		rules, err := stylesheet.Parse(wf.ModelStylesheet)
		if err != nil {
			return nil, err
		}
		graph.ApplyStylesheet(g, rules)
	}

	workingDir := opts.WorkingDir
	if workingDir == "" {
		workingDir = cwd
	}
	providers := opts.Providers
	if providers == (runconfig.Providers{}) {
		providers = runconfig.Default().Providers
	}

	reg, err := buildRegistry(cwd, workingDir, providers, opts.Sink)
	if err != nil {
		return nil, err
	}
	if err := verifyAgentReferences(cwd, g); err != nil {
		return nil, err
	}

	logsRoot := opts.LogsDir
	if logsRoot == "" {
		logsRoot = defaultLogsDir(wf.Name)
	}
	if err := os.MkdirAll(logsRoot, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory %q: %w", logsRoot, err)
	}

	ctxStore := pctx.New()
	goal := opts.Goal
	if goal == "" {
		goal = wf.Goal
	}
	if goal != "" {
		ctxStore.Set("goal", goal)
	}

	out, err := engine.Run(ctx, reg, g, ctxStore, logsRoot, opts.Sink)
	return &Result{RunID: runID, Outcome: out, Context: ctxStore.Snapshot(), LogsDir: logsRoot}, err
}

// resolveWorkflow finds name among the workflows discoverable from cwd.
func resolveWorkflow(cwd, name string) (*agentdef.WorkflowInstance, error) {
	for _, wf := range discovery.Workflows(cwd) {
		if wf.Name == name {
			return wf, nil
		}
	}
	return nil, core.NewError(nil, core.CodeWorkflowNotFound, map[string]any{"name": name})
}

// buildRegistry assembles the full handler.Registry a workflow run needs:
// command/agent/noop/exit from internal/handler plus parallel's fan-out/
// fan-in, with the agent handler's runner backed by a real session+
// provider pairing (runner.go).
func buildRegistry(cwd, workingDir string, providers runconfig.Providers, sink engine.EventEmitter) (*handler.Registry, error) {
	reg := handler.NewRegistry()
	reg.Register("command", &handler.CommandHandler{})
	reg.Register("noop", &handler.NoopHandler{})
	reg.Register("exit", &handler.ExitHandler{})
	reg.Register("agent", &handler.AgentHandler{
		Runner: &sessionRunner{cwd: cwd, workingDir: workingDir, providers: providers},
	})
	reg.SetFallback(&handler.CommandHandler{})

	fanOut := &parallel.FanOutHandler{Registry: reg, Sink: sink}
	reg.Register("parallel", fanOut)
	reg.Register("parallel.fan_in", &parallel.FanInHandler{})

	return reg, nil
}

// verifyAgentReferences fails fast (spec §4.10: "pipeline... must be a
// parseable DOT graph with referenced agents resolvable by name") when a
// node names an agent discovery cannot find, instead of failing mid-run
// on the first agent node reached.
func verifyAgentReferences(cwd string, g *graph.Graph) error {
	for _, id := range g.NodeOrder {
		n := g.Nodes[id]
		agentName := n.AttrString("agent", "")
		if agentName == "" {
			continue
		}
		if _, err := discovery.AgentByName(cwd, agentName); err != nil {
			return core.NewError(err, core.CodeAgentUnresolved, map[string]any{"node_id": id, "agent": agentName})
		}
	}
	return nil
}
