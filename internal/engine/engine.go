// Package engine implements the pipeline's top-level run loop: pick a
// node, execute it through its retry-wrapped handler, merge its context
// updates, select the next edge, and repeat until a terminal node, a dead
// end, or an unrouted failure ends the run. It also hosts edge selection
// (spec §4.4), which internal/parallel reuses to walk a fan-out branch.
package engine

import (
	"context"

	"github.com/stencila/attractor/internal/core"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/handler"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/pctx"
)

// Run executes g starting at its entry node and returns the outcome of the
// last node reached. There is no implicit bound on the number of steps:
// cycles are permitted so long as retries and conditional edges eventually
// make progress toward a terminal node or a dead end.
func Run(ctx context.Context, reg *handler.Registry, g *graph.Graph, ctxStore *pctx.Context, logsRoot string, sink EventEmitter) (outcome.Outcome, error) {
	start, err := g.FindStartNode()
	if err != nil {
		return outcome.Outcome{}, err
	}
	env := &handler.Env{Graph: g, Context: ctxStore, LogsRoot: logsRoot}
	return RunFrom(ctx, reg, env, start.ID, sink)
}

// RunFrom walks the graph starting at nodeID using env's shared context,
// the shape a parallel branch's mini-pipeline traversal also needs (spec
// §4.7): it stops at the first terminal node or the first node with no
// selectable outgoing edge.
func RunFrom(ctx context.Context, reg *handler.Registry, env *handler.Env, nodeID string, sink EventEmitter) (outcome.Outcome, error) {
	current := nodeID
	var last outcome.Outcome

	for {
		node, ok := env.Graph.Nodes[current]
		if !ok {
			return last, core.NewError(nil, core.CodeNodeNotFound, map[string]any{"node_id": current})
		}

		out, _ := Step(ctx, reg, env, node, sink)
		last = out

		if graph.IsTerminal(node) {
			return out, nil
		}

		snapshot := env.Context.Snapshot()
		edge, err := SelectNextEdge(env.Graph, current, out, snapshot)
		if err != nil {
			return out, err
		}
		if edge == nil {
			return out, nil
		}
		current = edge.To
	}
}
