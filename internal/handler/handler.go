// Package handler defines the node-execution contract, the registry that
// maps a node's type tag to the handler that runs it, and the built-in
// command/agent/noop/exit handlers. The parallel fan-out/fan-in handlers
// live in internal/parallel (to avoid a dependency cycle with the engine
// that wires them in) and are registered into a Registry by whatever
// composes the final handler set.
package handler

import (
	"context"
	"strings"

	"github.com/stencila/attractor/internal/graph"
	"github.com/stencila/attractor/internal/outcome"
	"github.com/stencila/attractor/internal/pctx"
)

// Env is the read-only-graph, shared-context handle every handler
// invocation receives. Handlers must not retain Env beyond a single call.
type Env struct {
	Graph    *graph.Graph
	Context  *pctx.Context
	LogsRoot string
}

// Handler is the capability every node type's executor implements.
// Implementations must be reentrant: a Handler may be invoked concurrently
// for different nodes or different parallel branches.
type Handler interface {
	Execute(ctx context.Context, env *Env, node *graph.Node) (outcome.Outcome, error)
}

// SingleExecutionHandler is an optional capability a Handler implements to
// opt out of retry: pass-through routing nodes gain nothing from retrying.
type SingleExecutionHandler interface {
	Handler
	SkipRetry() bool
}

// Registry resolves a node to the Handler that executes it.
type Registry struct {
	handlers map[string]Handler
	fallback Handler
}

// NewRegistry builds an empty registry; Register and SetFallback populate it.
func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

// Register binds a node-type tag to a handler, overwriting any prior binding.
func (r *Registry) Register(typeTag string, h Handler) {
	if r.handlers == nil {
		r.handlers = map[string]Handler{}
	}
	r.handlers[typeTag] = h
}

// SetFallback sets the handler used when no type tag or shape mapping
// resolves to a registered handler.
func (r *Registry) SetFallback(h Handler) {
	r.fallback = h
}

// KnownTypes lists every registered type tag, for validation.
func (r *Registry) KnownTypes() []string {
	out := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		out = append(out, t)
	}
	return out
}

// Resolve picks the handler for a node: an explicit `type` attribute wins;
// otherwise the node's DOT shape is mapped to a type tag; otherwise the
// registry's fallback handler runs.
func (r *Registry) Resolve(n *graph.Node) Handler {
	if n == nil {
		return r.fallback
	}
	if t := strings.TrimSpace(n.Type); t != "" {
		if h, ok := r.handlers[t]; ok {
			return h
		}
	}
	if h, ok := r.handlers[shapeToType(n.Shape())]; ok {
		return h
	}
	return r.fallback
}

// shapeToType maps a DOT node shape to one of the six node types this
// engine supports, borrowing the shape vocabulary pipeline authors already
// use to sketch graphs visually.
func shapeToType(shape string) string {
	switch shape {
	case "Msquare", "doublecircle":
		return "exit"
	case "component":
		return "parallel"
	case "tripleoctagon":
		return "parallel.fan_in"
	case "box", "hexagon":
		return "agent"
	case "diamond":
		return "noop"
	default:
		return "command"
	}
}
