package pctx

import "github.com/stencila/attractor/internal/core"

// IndexMap is an insertion-ordered string-keyed map. Re-setting an existing
// key updates its value in place without moving it to the back; new keys are
// appended. Order is preserved across iteration and when merging updates, so
// that a later key in the same update batch can depend on an earlier one
// having already been observed in order.
type IndexMap struct {
	keys   []string
	values map[string]any
}

// NewIndexMap builds an empty IndexMap.
func NewIndexMap() *IndexMap {
	return &IndexMap{values: make(map[string]any)}
}

// Set assigns key to value, appending key to the order if new.
func (m *IndexMap) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it was present.
func (m *IndexMap) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Delete removes key, if present.
func (m *IndexMap) Delete(key string) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (m *IndexMap) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len reports the number of entries.
func (m *IndexMap) Len() int {
	return len(m.keys)
}

// Clone returns an independent shallow copy preserving order.
func (m *IndexMap) Clone() *IndexMap {
	out := NewIndexMap()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}

// ToMap returns a plain map snapshot (order is lost).
func (m *IndexMap) ToMap() map[string]any {
	return core.CloneMap(m.values)
}

// FromMap builds an IndexMap from a plain map. Iteration order of a Go map
// is undefined, so callers that need a specific order should build the
// IndexMap via repeated Set calls instead.
func FromMap(src map[string]any) *IndexMap {
	out := NewIndexMap()
	for k, v := range src {
		out.Set(k, v)
	}
	return out
}
