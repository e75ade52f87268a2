package graph

import "github.com/stencila/attractor/internal/stylesheet"

// ApplyStylesheet resolves rules against every node's class/id and writes
// the winning declarations into each node's attribute map, without
// overwriting an attribute the node already declares explicitly.
func ApplyStylesheet(g *Graph, rules []stylesheet.Rule) {
	for _, id := range g.NodeOrder {
		n := g.Nodes[id]
		resolved := stylesheet.Resolve(rules, n.Classes(), n.ID)
		for prop, val := range resolved {
			if _, exists := n.Attrs[prop]; exists {
				continue
			}
			n.Attrs[prop] = StringAttr(val)
		}
	}
}
