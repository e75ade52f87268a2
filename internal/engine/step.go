package engine

import (
	"context"
	"fmt"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/handler"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/retry"
)

// Event is a single engine lifecycle notification. The concrete session
// event stream (spec §4.8) carries richer kinds; the engine only needs to
// announce stage lifecycle and retry attempts, so it defines its own small
// vocabulary rather than importing the session package.
type Event struct {
	Kind   string
	NodeID string
	Data   map[string]any
}

// EventEmitter receives engine lifecycle events; nil is a valid no-op sink.
type EventEmitter func(Event)

func emit(sink EventEmitter, e Event) {
	if sink != nil {
		sink(e)
	}
}

func retryCountKey(nodeID string) string {
	return fmt.Sprintf("internal.retry_count.%s", nodeID)
}

// buildRetryPolicy derives a node's retry.Policy from its `max_retries`
// attribute (falling back to the graph's default_max_retry, else 0) and an
// optional `retry_preset` attribute selecting the backoff shape.
func buildRetryPolicy(node *graph.Node, g *graph.Graph) retry.Policy {
	maxRetries := node.AttrInt("max_retries", -1)
	if maxRetries < 0 {
		maxRetries = g.DefaultMaxRetry()
	}
	if maxRetries < 0 {
		maxRetries = 0
	}

	backoff := retry.StandardPolicy().Backoff
	if presetName := node.AttrString("retry_preset", ""); presetName != "" {
		if presetFn, ok := retry.Presets[presetName]; ok {
			backoff = presetFn().Backoff
		}
	}
	return retry.Policy{MaxAttempts: maxRetries + 1, Backoff: backoff}
}

// Step runs a single node to completion: resolves its handler, wraps the
// call in the node's retry policy, merges any context updates, and emits
// StageStarted/StageRetrying/StageCompleted|StageFailed events.
func Step(ctx context.Context, reg *handler.Registry, env *handler.Env, node *graph.Node, sink EventEmitter) (outcome.Outcome, error) {
	h := reg.Resolve(node)
	if h == nil {
		err := core.NewError(nil, core.CodeNoHandler, map[string]any{"node_id": node.ID})
		return outcome.FailWith("no handler registered for node " + node.ID), err
	}

	policy := buildRetryPolicy(node, env.Graph)
	if se, ok := h.(handler.SingleExecutionHandler); ok && se.SkipRetry() {
		policy.MaxAttempts = 1
	}
	allowPartial := node.AttrBool("allow_partial", false)

	emit(sink, Event{Kind: "StageStarted", NodeID: node.ID})

	onRetry := func(attempt, maxAttempts int) {
		env.Context.Set(retryCountKey(node.ID), attempt)
		emit(sink, Event{
			Kind:   "StageRetrying",
			NodeID: node.ID,
			Data:   map[string]any{"attempt": attempt, "max_attempts": maxAttempts},
		})
	}

	out, err := retry.Execute(ctx, policy, allowPartial, onRetry, func(ctx context.Context, attempt int) (outcome.Outcome, error) {
		return h.Execute(ctx, env, node)
	})

	if out.Status == outcome.Success || out.Status == outcome.PartialSuccess {
		env.Context.Set(retryCountKey(node.ID), 0)
	}
	if out.ContextUpdates != nil {
		env.Context.ApplyUpdates(out.ContextUpdates)
	}

	if out.Status == outcome.Fail {
		emit(sink, Event{Kind: "StageFailed", NodeID: node.ID, Data: map[string]any{"reason": out.FailureReason}})
	} else {
		emit(sink, Event{Kind: "StageCompleted", NodeID: node.ID, Data: map[string]any{"status": string(out.Status)}})
	}
	return out, err
}
