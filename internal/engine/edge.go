package engine

import (
	"github.com/stencila/attractor/internal/condition"
	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/outcome"
)

// SelectNextEdge implements the edge-selection pass: given the node just
// executed, its outcome, and a context snapshot, it picks the single edge
// to follow next, or nil if the run should terminate here.
//
//  1. A failing outcome prefers failure-routing edges (on_failure=true);
//     absent any, the run terminates with the failing outcome.
//  2. outcome.NextLabel, if set, picks the matching labeled edge.
//  3. Conditional edges are evaluated in declaration order; the first
//     whose `when` expression is true wins.
//  4. Otherwise the highest-weight unconditional edge wins, ties broken
//     by declaration order.
func SelectNextEdge(g *graph.Graph, nodeID string, out outcome.Outcome, ctxSnapshot map[string]any) (*graph.Edge, error) {
	edges := g.OutgoingEdges(nodeID)
	if len(edges) == 0 {
		return nil, nil
	}

	if out.Status == outcome.Fail {
		if e := firstFailureEdge(edges); e != nil {
			return e, nil
		}
		return nil, nil
	}

	if out.NextLabel != "" {
		for _, e := range edges {
			if e.Label == out.NextLabel {
				return e, nil
			}
		}
	}

	for _, e := range orderedByDeclaration(edges) {
		if e.Condition == "" {
			continue
		}
		matched, err := condition.Evaluate(e.Condition, ctxSnapshot)
		if err != nil {
			return nil, err
		}
		if matched {
			return e, nil
		}
	}

	return bestWeighted(edges), nil
}

func firstFailureEdge(edges []*graph.Edge) *graph.Edge {
	var best *graph.Edge
	for _, e := range edges {
		if !e.OnFailure {
			continue
		}
		if best == nil || e.Order < best.Order {
			best = e
		}
	}
	return best
}

func orderedByDeclaration(edges []*graph.Edge) []*graph.Edge {
	out := make([]*graph.Edge, len(edges))
	copy(out, edges)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Order < out[j-1].Order; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// bestWeighted picks the unconditional edge (no `when`) with the highest
// weight, ties broken by declaration order. Conditional edges that all
// evaluated false are not reconsidered here.
func bestWeighted(edges []*graph.Edge) *graph.Edge {
	var best *graph.Edge
	for _, e := range edges {
		if e.Condition != "" {
			continue
		}
		if best == nil || e.Weight > best.Weight || (e.Weight == best.Weight && e.Order < best.Order) {
			best = e
		}
	}
	return best
}
