package workflow

import (
	"context"
	"strings"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/discovery"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/provider"
	"github.com/stencila/attractor/internal/runconfig"
	"github.com/stencila/attractor/internal/session"
)

// sessionRunner implements handler.AgentRunner (see handler/handlers.go)
// by resolving the named agent via discovery, choosing the CLI provider
// its frontmatter names, running one turn through an internal/session
// Session, and folding the session's final assistant text into an
// Outcome. A fresh Session is created per call: an agent node's handler
// invocation is already the "run this agent once" unit, and retries
// (§4.5) restart that unit over rather than resume a half-finished
// conversation.
type sessionRunner struct {
	cwd        string
	workingDir string
	providers  runconfig.Providers
}

func (r *sessionRunner) Run(ctx context.Context, agentName, prompt string) (outcome.Outcome, error) {
	inst, err := discovery.AgentByName(r.cwd, agentName)
	if err != nil {
		return outcome.Outcome{}, err
	}

	prov, err := r.newProvider(inst.Provider, inst.Model, inst.Content)
	if err != nil {
		return outcome.Outcome{}, err
	}

	sess, events := session.New(core.MustNewID().String(), prov, session.Config{
		UserInstructions: inst.Content,
		MaxTurns:         inst.MaxTurns,
	})
	defer sess.Close()

	collector := newEventCollector(events)

	submitErr := sess.Submit(ctx, prompt)
	sess.Close()        // closes the provider and emits SessionEnd...
	text := <-collector // ...which signals the collector to stop and return what it saw

	if submitErr != nil {
		return outcome.FailWith(submitErr.Error()), nil
	}

	return outcome.Succeed(text), nil
}

// newProvider selects and constructs the CLI adapter named by an agent's
// `provider` frontmatter field, defaulting to Claude when unset —
// mirroring how most of the pack's reference agents leave provider
// implicit and expect the primary CLI tool.
func (r *sessionRunner) newProvider(name, model, instructions string) (session.Provider, error) {
	cfg := provider.Config{Model: model, Instructions: instructions, WorkingDir: r.workingDir}
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "claude":
		return provider.NewClaude(cfg, r.providers.ClaudeBinary), nil
	case "codex":
		return provider.NewCodex(cfg, r.providers.CodexBinary), nil
	case "gemini":
		return provider.NewGemini(cfg, r.providers.GeminiBinary), nil
	default:
		return nil, core.NewError(nil, core.CodeAgentUnresolved, map[string]any{"provider": name})
	}
}

// newEventCollector drains a session's event stream in the background
// (so Emit's non-blocking sends never fill the channel and start
// dropping events while nothing reads it) and reports the final
// assistant text once it observes SessionEnd, the last event the
// ordering guarantee in spec §5 promises every submit produces. The
// session's event channel is never closed by Session.Close, so the
// collector stops itself on SessionEnd rather than ranging to channel
// close.
func newEventCollector(events <-chan session.Event) <-chan string {
	result := make(chan string, 1)
	go func() {
		var lastText string
		for evt := range events {
			if evt.Kind == session.AssistantTextEnd {
				lastText = evt.Text
			}
			if evt.Kind == session.SessionEnd {
				result <- lastText
				return
			}
		}
		result <- lastText
	}()
	return result
}
