package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/outcome"
)

func buildGraph(edges ...*graph.Edge) *graph.Graph {
	g := graph.NewGraph()
	g.AddNode("n1", "", nil)
	for _, e := range edges {
		g.AddNode(e.To, "", nil)
		g.AddEdge(e)
	}
	return g
}

func TestSelectNextEdge_PreferredLabel(t *testing.T) {
	g := buildGraph(
		&graph.Edge{From: "n1", To: "a", Label: "yes", Weight: 1, Order: 0},
		&graph.Edge{From: "n1", To: "b", Label: "no", Weight: 5, Order: 1},
	)
	out := outcome.Succeed("ok")
	out.NextLabel = "yes"
	edge, err := SelectNextEdge(g, "n1", out, nil)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, "a", edge.To)
}

func TestSelectNextEdge_ConditionalInDeclarationOrder(t *testing.T) {
	g := buildGraph(
		&graph.Edge{From: "n1", To: "a", Condition: "x >= 10", Order: 0},
		&graph.Edge{From: "n1", To: "b", Condition: "x >= 1", Order: 1},
	)
	edge, err := SelectNextEdge(g, "n1", outcome.Succeed("ok"), map[string]any{"x": int64(5)})
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}

func TestSelectNextEdge_HighestWeightTieBrokenByOrder(t *testing.T) {
	g := buildGraph(
		&graph.Edge{From: "n1", To: "a", Weight: 2, Order: 0},
		&graph.Edge{From: "n1", To: "b", Weight: 2, Order: 1},
		&graph.Edge{From: "n1", To: "c", Weight: 1, Order: 2},
	)
	edge, err := SelectNextEdge(g, "n1", outcome.Succeed("ok"), nil)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, "a", edge.To)
}

func TestSelectNextEdge_FailPrefersFailureRouting(t *testing.T) {
	g := buildGraph(
		&graph.Edge{From: "n1", To: "a", Weight: 5, Order: 0},
		&graph.Edge{From: "n1", To: "b", OnFailure: true, Order: 1},
	)
	edge, err := SelectNextEdge(g, "n1", outcome.FailWith("boom"), nil)
	require.NoError(t, err)
	require.NotNil(t, edge)
	assert.Equal(t, "b", edge.To)
}

func TestSelectNextEdge_FailWithNoRoutingTerminates(t *testing.T) {
	g := buildGraph(&graph.Edge{From: "n1", To: "a", Weight: 1, Order: 0})
	edge, err := SelectNextEdge(g, "n1", outcome.FailWith("boom"), nil)
	require.NoError(t, err)
	assert.Nil(t, edge)
}

func TestSelectNextEdge_NoEdgesTerminates(t *testing.T) {
	g := graph.NewGraph()
	g.AddNode("n1", "", nil)
	edge, err := SelectNextEdge(g, "n1", outcome.Succeed("ok"), nil)
	require.NoError(t, err)
	assert.Nil(t, edge)
}
