package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalRunLock_AcquireRelease(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()

	ok, err := lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// Second acquire while held is rejected, not queued
	ok, err = lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lock.Release(ctx))

	ok, err = lock.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalRunLock_ConcurrentAcquire(t *testing.T) {
	lock := NewLocalRunLock()
	ctx := context.Background()

	const attempts = 50
	acquired := 0
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := lock.TryAcquire(ctx)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired)
}
