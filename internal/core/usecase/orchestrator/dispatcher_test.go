package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PreservesPerKeyOrder(t *testing.T) {
	d := newDispatcher(4, 8)
	d.start()

	var (
		mu   sync.Mutex
		seen = make(map[string][]int)
	)

	for i := 0; i < 100; i++ {
		key := fmt.Sprintf("key-%d", i%5)
		n := i
		require.NoError(t, d.submit(context.Background(), key, func() {
			mu.Lock()
			seen[key] = append(seen[key], n)
			mu.Unlock()
		}))
	}

	d.stop()

	for key, values := range seen {
		assert.Len(t, values, 20, key)
		for i := 1; i < len(values); i++ {
			assert.Less(t, values[i-1], values[i], key)
		}
	}
}

func TestDispatcher_SameLaneForSameKey(t *testing.T) {
	d := newDispatcher(8, 1)
	assert.Equal(t, d.lane("TCP|0.0.0.0|80|1"), d.lane("TCP|0.0.0.0|80|1"))
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := newDispatcher(1, 2)
	d.start()

	var ran bool
	require.NoError(t, d.submit(context.Background(), "a", func() { panic("boom") }))
	require.NoError(t, d.submit(context.Background(), "a", func() { ran = true }))
	d.stop()

	assert.True(t, ran)
}
