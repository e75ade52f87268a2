package pctx

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_SetGet(t *testing.T) {
	t.Run("Should round-trip a simple value", func(t *testing.T) {
		c := New()
		c.Set("parallel.success_count", 3)
		v, ok := c.Get("parallel.success_count")
		require.True(t, ok)
		assert.Equal(t, 3, v)
	})
	t.Run("Should report absence for an unset key", func(t *testing.T) {
		c := New()
		_, ok := c.Get("missing")
		assert.False(t, ok)
	})
}

func TestContext_ApplyUpdates(t *testing.T) {
	t.Run("Should apply updates in key order", func(t *testing.T) {
		c := New()
		updates := NewIndexMap()
		updates.Set("a", 1)
		updates.Set("b", 2)
		c.ApplyUpdates(updates)

		a, _ := c.Get("a")
		b, _ := c.Get("b")
		assert.Equal(t, 1, a)
		assert.Equal(t, 2, b)
	})
	t.Run("Should no-op on nil updates", func(t *testing.T) {
		c := New()
		c.Set("a", 1)
		c.ApplyUpdates(nil)
		v, _ := c.Get("a")
		assert.Equal(t, 1, v)
	})
}

func TestContext_DeepClone(t *testing.T) {
	t.Run("Should isolate a branch clone from the parent", func(t *testing.T) {
		c := New()
		c.Set("nested", map[string]any{"k": "v"})

		clone, err := c.DeepClone()
		require.NoError(t, err)

		nested, _ := clone.Get("nested")
		nested.(map[string]any)["k"] = "changed"

		original, _ := c.Get("nested")
		assert.Equal(t, "v", original.(map[string]any)["k"])
	})
}

func TestContext_ConcurrentWrites(t *testing.T) {
	t.Run("Should serialize concurrent writers without data races", func(t *testing.T) {
		c := New()
		var wg sync.WaitGroup
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				c.Set("counter", n)
			}(i)
		}
		wg.Wait()
		_, ok := c.Get("counter")
		assert.True(t, ok)
	})
}

func TestIndexMap_Order(t *testing.T) {
	t.Run("Should preserve insertion order and update in place on re-set", func(t *testing.T) {
		m := NewIndexMap()
		m.Set("b", 1)
		m.Set("a", 2)
		m.Set("b", 3)
		assert.Equal(t, []string{"b", "a"}, m.Keys())
		v, _ := m.Get("b")
		assert.Equal(t, 3, v)
	})
	t.Run("Should remove a key from order on delete", func(t *testing.T) {
		m := NewIndexMap()
		m.Set("a", 1)
		m.Set("b", 2)
		m.Delete("a")
		assert.Equal(t, []string{"b"}, m.Keys())
	})
}
