package handler

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/outcome"
)

// NoopHandler is the pass-through handler bound to routing nodes (e.g. DOT
// diamond shapes) that exist only to let edge selection branch on context,
// not to do work of their own.
type NoopHandler struct{}

func (h *NoopHandler) Execute(ctx context.Context, env *Env, node *graph.Node) (outcome.Outcome, error) {
	return outcome.Succeed("noop"), nil
}

// SkipRetry implements SingleExecutionHandler: retrying a pass-through node
// burns retry budget without doing any useful work.
func (h *NoopHandler) SkipRetry() bool { return true }

// ExitHandler is bound to terminal nodes.
type ExitHandler struct{}

func (h *ExitHandler) Execute(ctx context.Context, env *Env, node *graph.Node) (outcome.Outcome, error) {
	return outcome.Succeed("exit"), nil
}

func (h *ExitHandler) SkipRetry() bool { return true }

// abortAware is satisfied by internal/session's AbortSignal; handler only
// depends on the method shape so it need not import internal/session.
type abortAware interface {
	Done() <-chan struct{}
}

// withAbort derives a context that is cancelled either when parent is
// cancelled or when the context's internal.abort_handle (if any) fires.
func withAbort(parent context.Context, env *Env) (context.Context, context.CancelFunc) {
	cctx, cancel := context.WithCancel(parent)
	if env == nil || env.Context == nil {
		return cctx, cancel
	}
	v, ok := env.Context.Get("internal.abort_handle")
	if !ok {
		return cctx, cancel
	}
	aw, ok := v.(abortAware)
	if !ok {
		return cctx, cancel
	}
	go func() {
		select {
		case <-aw.Done():
			cancel()
		case <-cctx.Done():
		}
	}()
	return cctx, cancel
}

// CommandHandler runs a shell command named by the node's `command`
// attribute, honoring the shared abort signal and an optional
// `timeout_ms` attribute.
type CommandHandler struct{}

func (h *CommandHandler) Execute(ctx context.Context, env *Env, node *graph.Node) (outcome.Outcome, error) {
	cmdStr := strings.TrimSpace(node.AttrString("command", ""))
	if cmdStr == "" {
		return outcome.FailWith("no command specified"), nil
	}

	cctx, cancel := withAbort(ctx, env)
	defer cancel()
	if ms := node.AttrInt("timeout_ms", 0); ms > 0 {
		var timeoutCancel context.CancelFunc
		cctx, timeoutCancel = context.WithTimeout(cctx, time.Duration(ms)*time.Millisecond)
		defer timeoutCancel()
	}

	cmd := exec.CommandContext(cctx, "bash", "-c", cmdStr)
	cmd.Stdin = strings.NewReader("")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if env != nil && env.LogsRoot != "" && node != nil {
		stageDir := filepath.Join(env.LogsRoot, node.ID)
		_ = os.MkdirAll(stageDir, 0o755)
	}

	runErr := cmd.Run()

	if env != nil && env.LogsRoot != "" && node != nil {
		stageDir := filepath.Join(env.LogsRoot, node.ID)
		_ = os.WriteFile(filepath.Join(stageDir, "stdout.log"), stdout.Bytes(), 0o644)
		_ = os.WriteFile(filepath.Join(stageDir, "stderr.log"), stderr.Bytes(), 0o644)
	}

	if cctx.Err() == context.DeadlineExceeded {
		return outcome.FailWith(fmt.Sprintf("command timed out: %s", cmdStr)), nil
	}
	if runErr != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = runErr.Error()
		}
		return outcome.FailWith(detail), nil
	}
	return outcome.Succeed("command completed").WithContextUpdate("command.output", strings.TrimSpace(stdout.String())), nil
}

// AgentRunner is the capability AgentHandler delegates to; internal/session
// (or whatever composes the engine) supplies the concrete implementation so
// this package never needs to import the session/provider stack.
type AgentRunner interface {
	Run(ctx context.Context, agentName, prompt string) (outcome.Outcome, error)
}

// AgentHandler dispatches a node to a named agent definition, interpolating
// `$goal` from the shared context into the node's prompt.
type AgentHandler struct {
	Runner AgentRunner
}

func (h *AgentHandler) Execute(ctx context.Context, env *Env, node *graph.Node) (outcome.Outcome, error) {
	if h.Runner == nil {
		return outcome.FailWith("no agent runner configured"), nil
	}
	agentName := strings.TrimSpace(node.AttrString("agent", ""))
	if agentName == "" {
		return outcome.FailWith("no agent specified"), nil
	}

	prompt := node.AttrString("prompt", "")
	if env != nil && env.Context != nil {
		if goal, ok := env.Context.Get("goal"); ok {
			prompt = strings.ReplaceAll(prompt, "$goal", stringifyGoal(goal))
		}
	}

	cctx, cancel := withAbort(ctx, env)
	defer cancel()
	return h.Runner.Run(cctx, agentName, prompt)
}

func stringifyGoal(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
