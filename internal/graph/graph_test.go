package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDOT(t *testing.T) {
	t.Run("Should parse nodes and edges with attributes", func(t *testing.T) {
		src := `
			digraph pipeline {
				default_max_retry=3;
				start [shape=Mdiamond];
				n1 [type=command, max_retries=2, class="code"];
				exit [shape=Msquare];
				start -> n1 [label="go"];
				n1 -> exit [weight=2, when="outcome.status == 'Success'"];
				n1 -> start [on_failure=true];
			}
		`
		g, err := ParseDOT(src)
		require.NoError(t, err)
		require.NoError(t, g.Validate())

		assert.Equal(t, 3, g.DefaultMaxRetry())
		n1, ok := g.Nodes["n1"]
		require.True(t, ok)
		assert.Equal(t, "command", n1.Type)
		assert.Equal(t, 2, n1.AttrInt("max_retries", 0))
		assert.Equal(t, []string{"code"}, n1.Classes())

		outgoing := g.OutgoingEdges("n1")
		require.Len(t, outgoing, 2)
		assert.Equal(t, "exit", outgoing[0].To)
		assert.InDelta(t, 2.0, outgoing[0].Weight, 0.0001)
		assert.True(t, outgoing[1].OnFailure)
	})

	t.Run("Should chain multi-hop edge statements", func(t *testing.T) {
		g, err := ParseDOT(`digraph g { a -> b -> c; }`)
		require.NoError(t, err)
		require.Len(t, g.Edges, 2)
		assert.Equal(t, "a", g.Edges[0].From)
		assert.Equal(t, "b", g.Edges[0].To)
		assert.Equal(t, "b", g.Edges[1].From)
		assert.Equal(t, "c", g.Edges[1].To)
	})

	t.Run("Should reject an edge referencing an undeclared node", func(t *testing.T) {
		// Edge statements always declare their endpoints implicitly, so
		// construct the failure via a direct Graph instead of the parser.
		g := NewGraph()
		g.AddNode("a", "", nil)
		g.AddEdge(&Edge{From: "a", To: "missing"})
		assert.Error(t, g.Validate())
	})

	t.Run("Should error on malformed syntax", func(t *testing.T) {
		_, err := ParseDOT(`digraph g { a -> }`)
		require.Error(t, err)
		var perr *ParseError
		require.ErrorAs(t, err, &perr)
	})
}

func TestFindStartNode(t *testing.T) {
	t.Run("Should prefer an explicitly tagged entry node", func(t *testing.T) {
		g, err := ParseDOT(`digraph g { a [entry=true]; b; a -> b; }`)
		require.NoError(t, err)
		start, err := g.FindStartNode()
		require.NoError(t, err)
		assert.Equal(t, "a", start.ID)
	})

	t.Run("Should fall back to the unique node with no incoming edges", func(t *testing.T) {
		g, err := ParseDOT(`digraph g { a -> b; b -> c; }`)
		require.NoError(t, err)
		start, err := g.FindStartNode()
		require.NoError(t, err)
		assert.Equal(t, "a", start.ID)
	})
}

func TestIsTerminal(t *testing.T) {
	t.Run("Should recognize Msquare shape and exit/end ids", func(t *testing.T) {
		g, err := ParseDOT(`digraph g { a [shape=Msquare]; b; c [type=exit]; a -> b; b -> c; }`)
		require.NoError(t, err)
		assert.True(t, IsTerminal(g.Nodes["a"]))
		assert.False(t, IsTerminal(g.Nodes["b"]))
		assert.True(t, IsTerminal(g.Nodes["c"]))
	})
}

func TestAttrValue(t *testing.T) {
	t.Run("Should coerce bare tokens to their inferred kind", func(t *testing.T) {
		assert.Equal(t, KindBoolean, ParseAttrValue("true", false).Kind())
		assert.Equal(t, KindInteger, ParseAttrValue("42", false).Kind())
		assert.Equal(t, KindFloat, ParseAttrValue("3.5", false).Kind())
		assert.Equal(t, KindString, ParseAttrValue("plain", false).Kind())
	})
	t.Run("Should never coerce quoted values", func(t *testing.T) {
		assert.Equal(t, KindString, ParseAttrValue("true", true).Kind())
	})
	t.Run("Should fail coercion gracefully", func(t *testing.T) {
		v := StringAttr("not-a-number")
		_, ok := v.AsI64()
		assert.False(t, ok)
		_, ok = v.AsBool()
		assert.False(t, ok)
	})
}
