// Package pctx implements the pipeline's shared, interior-mutable Context: a
// process-wide mapping from dotted key to JSON-like value, safe for
// concurrent writers, with deep-clone support for parallel branch isolation.
package pctx

import (
	"sync"

	"github.com/stencila/attractor/internal/core"
)

// Context is a shared-by-reference, lockable key->value map. Handlers
// receive a shared handle; DeepClone yields an independent copy for
// parallel branches.
type Context struct {
	mu   sync.Mutex
	data *IndexMap
}

// New builds an empty Context.
func New() *Context {
	return &Context{data: NewIndexMap()}
}

// NewFromMap seeds a Context from an existing map (e.g. the initial goal/run
// parameters). Key order is not guaranteed since map iteration order isn't.
func NewFromMap(initial map[string]any) *Context {
	return &Context{data: FromMap(initial)}
}

// Set assigns key to value under lock.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data.Set(key, value)
}

// Get reads key under lock.
func (c *Context) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.Get(key)
}

// ApplyUpdates merges an ordered batch of updates into the context,
// preserving the batch's key order so a later key can be set based on
// whatever an earlier key's write already made visible.
func (c *Context) ApplyUpdates(updates *IndexMap) {
	if updates == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range updates.Keys() {
		v, _ := updates.Get(k)
		c.data.Set(k, v)
	}
}

// Snapshot returns a plain-map point-in-time copy of the context's contents.
func (c *Context) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data.ToMap()
}

// DeepClone returns an independent Context whose values are deep-copied,
// used to isolate a parallel branch's writes from its siblings and parent.
func (c *Context) DeepClone() (*Context, error) {
	c.mu.Lock()
	snapshot := c.data.Clone()
	c.mu.Unlock()

	clone := NewIndexMap()
	for _, k := range snapshot.Keys() {
		v, _ := snapshot.Get(k)
		copied, err := core.DeepCopy(v)
		if err != nil {
			return nil, err
		}
		clone.Set(k, copied)
	}
	return &Context{data: clone}, nil
}
