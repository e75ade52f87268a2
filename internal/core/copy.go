package core

import (
	"fmt"
	"maps"

	"github.com/mohae/deepcopy"
)

// CloneMap creates a shallow copy of any map type with comparable keys.
// Returns an empty initialized map when src is nil to prevent nil map panics.
func CloneMap[K comparable, V any](src map[K]V) map[K]V {
	if src == nil {
		return make(map[K]V)
	}
	return maps.Clone(src)
}

// CopyMaps safely merges multiple maps into a new map, with later maps
// overriding earlier ones. Nil maps are skipped.
func CopyMaps[K comparable, V any](srcs ...map[K]V) map[K]V {
	result := make(map[K]V)
	for _, src := range srcs {
		if src != nil {
			maps.Copy(result, src)
		}
	}
	return result
}

// DeepCopy returns a deep copy of v using github.com/mohae/deepcopy, used by
// the pipeline Context for branch isolation.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	copied := deepcopy.Copy(v)
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}
