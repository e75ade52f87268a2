// Package graph implements the pipeline graph model (directed multigraph of
// typed nodes and attributed edges) and a parser for the DOT-like source
// format described by the pipeline front end.
package graph

import (
	"fmt"
	"strings"

	"github.com/stencila/attractor/internal/core"
)

// Node is a graph vertex: a stable id, a type tag, and a typed attribute map.
type Node struct {
	ID    string
	Type  string
	Attrs map[string]AttrValue
}

// Attr returns a node attribute and whether it was present.
func (n *Node) Attr(name string) (AttrValue, bool) {
	v, ok := n.Attrs[name]
	return v, ok
}

// AttrString returns a string attribute, or def if absent.
func (n *Node) AttrString(name, def string) string {
	if v, ok := n.Attrs[name]; ok {
		return v.AsString()
	}
	return def
}

// AttrInt returns an integer attribute, or def if absent/unparseable.
func (n *Node) AttrInt(name string, def int) int {
	if v, ok := n.Attrs[name]; ok {
		if i, ok := v.AsI64(); ok {
			return int(i)
		}
	}
	return def
}

// AttrBool returns a boolean attribute, or def if absent/unparseable.
func (n *Node) AttrBool(name string, def bool) bool {
	if v, ok := n.Attrs[name]; ok {
		if b, ok := v.AsBool(); ok {
			return b
		}
	}
	return def
}

// Shape returns the node's DOT "shape" attribute, used as a fallback handler
// dispatch key when no explicit "type" is set.
func (n *Node) Shape() string {
	return n.AttrString("shape", "")
}

// Classes returns the node's stylesheet classes: the "class" attribute split
// on whitespace (a DOT-native node has no class concept, so the pipeline
// front end repurposes a plain attribute for it).
func (n *Node) Classes() []string {
	raw := n.AttrString("class", "")
	if raw == "" {
		return nil
	}
	return strings.Fields(raw)
}

// Edge is a directed connection between two nodes, carrying an optional
// label, an optional condition expression, and a weight used for tie-break
// selection among unconditional edges. Order records declaration order for
// deterministic tie-breaking.
type Edge struct {
	From      string
	To        string
	Label     string
	Condition string
	Weight    float64
	OnFailure bool
	Order     int
}

// Graph is a directed multigraph with its own top-level attribute map (used
// for graph-wide defaults such as default_max_retry).
type Graph struct {
	Nodes     map[string]*Node
	NodeOrder []string
	Edges     []*Edge
	Attrs     map[string]AttrValue
}

// NewGraph builds an empty graph.
func NewGraph() *Graph {
	return &Graph{
		Nodes: make(map[string]*Node),
		Attrs: make(map[string]AttrValue),
	}
}

// AddNode registers a node, creating it if it doesn't already exist and
// merging attrs into any existing node of the same id (DOT allows a node id
// to be mentioned multiple times, accumulating attributes).
func (g *Graph) AddNode(id, typ string, attrs map[string]AttrValue) *Node {
	if n, ok := g.Nodes[id]; ok {
		if typ != "" {
			n.Type = typ
		}
		n.Attrs = core.CopyMaps(n.Attrs, attrs)
		return n
	}
	n := &Node{ID: id, Type: typ, Attrs: attrs}
	if n.Attrs == nil {
		n.Attrs = make(map[string]AttrValue)
	}
	g.Nodes[id] = n
	g.NodeOrder = append(g.NodeOrder, id)
	return n
}

// AddEdge appends an edge as given; it does not set Order (ParseDOT assigns
// each parsed edge its index among the edges sharing the same From node).
func (g *Graph) AddEdge(e *Edge) {
	g.Edges = append(g.Edges, e)
}

// OutgoingEdges returns edges leaving nodeID, in declaration order.
func (g *Graph) OutgoingEdges(nodeID string) []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.From == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// Validate checks that every edge endpoint references an existing node.
func (g *Graph) Validate() error {
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			return fmt.Errorf("edge references unknown source node %q", e.From)
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return fmt.Errorf("edge references unknown target node %q", e.To)
		}
	}
	return nil
}

// DefaultMaxRetry reads the graph-level default_max_retry attribute, or 0.
func (g *Graph) DefaultMaxRetry() int {
	if v, ok := g.Attrs["default_max_retry"]; ok {
		if i, ok := v.AsI64(); ok {
			return int(i)
		}
	}
	return 0
}

// FindStartNode returns the unique entry node: one explicitly tagged
// `entry="true"`, else the node with no incoming edges, else the node whose
// shape is Mdiamond or whose id is "start".
func (g *Graph) FindStartNode() (*Node, error) {
	for _, id := range g.NodeOrder {
		n := g.Nodes[id]
		if n.AttrBool("entry", false) {
			return n, nil
		}
	}
	incoming := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		incoming[e.To] = true
	}
	var noIncoming []*Node
	for _, id := range g.NodeOrder {
		if !incoming[id] {
			noIncoming = append(noIncoming, g.Nodes[id])
		}
	}
	if len(noIncoming) == 1 {
		return noIncoming[0], nil
	}
	for _, id := range g.NodeOrder {
		n := g.Nodes[id]
		if n.Shape() == "Mdiamond" || n.ID == "start" {
			return n, nil
		}
	}
	if len(noIncoming) > 0 {
		return noIncoming[0], nil
	}
	return nil, fmt.Errorf("graph has no identifiable start node")
}

// IsTerminal reports whether a node is a pipeline exit point: shape Msquare,
// or id "exit"/"end", or explicit type "exit".
func IsTerminal(n *Node) bool {
	if n.Type == "exit" {
		return true
	}
	if n.Shape() == "Msquare" {
		return true
	}
	return n.ID == "exit" || n.ID == "end"
}
