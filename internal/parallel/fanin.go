package parallel

import (
	"context"

	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/handler"
	"github.com/stencila/attractor/internal/outcome"
)

// FanInHandler is bound to the `parallel.fan_in` node type: a join point
// that observes the `parallel.results`/`parallel.success_count`/
// `parallel.fail_count` a matching FanOutHandler wrote to the context and
// passes through as a routing node, the same way NoopHandler does.
type FanInHandler struct{}

func (h *FanInHandler) Execute(ctx context.Context, env *handler.Env, node *graph.Node) (outcome.Outcome, error) {
	successCount, _ := env.Context.Get("parallel.success_count")
	failCount, _ := env.Context.Get("parallel.fail_count")
	return outcome.Succeed("fan-in observed parallel results").
		WithContextUpdate("parallel.fan_in.success_count", successCount).
		WithContextUpdate("parallel.fan_in.fail_count", failCount), nil
}

// SkipRetry implements handler.SingleExecutionHandler: the fan-in is a
// pass-through join, not branch work worth retrying.
func (h *FanInHandler) SkipRetry() bool { return true }
