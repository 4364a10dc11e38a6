package authz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheGetOrLoadSingleFlight(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}

	var loads atomic.Int64
	release := make(chan struct{})
	load := func(context.Context) ([]Permission, error) {
		loads.Add(1)
		<-release
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}

	const callers = 50
	var wg sync.WaitGroup
	results := make([][]Permission, callers)
	errs := make([]error, callers)

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrLoad(context.Background(), key, load)
		}(i)
	}

	// Give every caller time to join the flight before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), loads.Load(), "concurrent callers share one load")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, results[i], 1)
	}
}

func TestCacheGetOrLoadCachesResult(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}

	var loads atomic.Int64
	load := func(context.Context) ([]Permission, error) {
		loads.Add(1)
		return []Permission{{Resource: "lead", Action: "read"}}, nil
	}

	for i := 0; i < 3; i++ {
		perms, err := cache.GetOrLoad(context.Background(), key, load)
		require.NoError(t, err)
		assert.Len(t, perms, 1)
	}
	assert.Equal(t, int64(1), loads.Load())
}

func TestCacheLoadErrorNotCached(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}
	loadErr := errors.New("store unavailable")

	var loads atomic.Int64
	failing := func(context.Context) ([]Permission, error) {
		loads.Add(1)
		return nil, loadErr
	}

	_, err := cache.GetOrLoad(context.Background(), key, failing)
	assert.ErrorIs(t, err, loadErr)
	_, ok := cache.Get(key)
	assert.False(t, ok, "failed loads leave no entry")

	// A later call retries.
	_, err = cache.GetOrLoad(context.Background(), key, failing)
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, int64(2), loads.Load())
}

func TestCacheInvalidate(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}
	other := Key{PrincipalID: "u2", OrgID: "org-1"}

	load := func(context.Context) ([]Permission, error) {
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}
	_, err := cache.GetOrLoad(context.Background(), key, load)
	require.NoError(t, err)
	_, err = cache.GetOrLoad(context.Background(), other, load)
	require.NoError(t, err)

	cache.Invalidate(key)
	_, ok := cache.Get(key)
	assert.False(t, ok)
	_, ok = cache.Get(other)
	assert.True(t, ok, "other keys survive a targeted invalidation")
}

func TestCacheInvalidatePrincipal(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	load := func(context.Context) ([]Permission, error) {
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}

	keys := []Key{
		{PrincipalID: "u1", OrgID: "org-1"},
		{PrincipalID: "u1", OrgID: "org-2"},
		{PrincipalID: "u2", OrgID: "org-1"},
	}
	for _, key := range keys {
		_, err := cache.GetOrLoad(context.Background(), key, load)
		require.NoError(t, err)
	}

	cache.InvalidatePrincipal("u1")
	_, ok := cache.Get(keys[0])
	assert.False(t, ok)
	_, ok = cache.Get(keys[1])
	assert.False(t, ok)
	_, ok = cache.Get(keys[2])
	assert.True(t, ok)
}

func TestCacheInvalidateAll(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	load := func(context.Context) ([]Permission, error) {
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}
	_, err := cache.GetOrLoad(context.Background(), Key{PrincipalID: "u1", OrgID: "org-1"}, load)
	require.NoError(t, err)

	cache.InvalidateAll()
	assert.Equal(t, 0, cache.Len())
}

func TestCacheInvalidateDuringLoadDropsStaleResult(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}

	started := make(chan struct{})
	release := make(chan struct{})
	load := func(context.Context) ([]Permission, error) {
		close(started)
		<-release
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = cache.GetOrLoad(context.Background(), key, load)
	}()

	<-started
	cache.Invalidate(key)
	close(release)
	<-done

	_, ok := cache.Get(key)
	assert.False(t, ok, "a result loaded before the invalidation is not stored")
}

func TestCacheAbandonedCallerDoesNotCancelSharedLoad(t *testing.T) {
	t.Parallel()

	cache := NewCache(0)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}

	release := make(chan struct{})
	var loadCtxErr atomic.Value
	load := func(ctx context.Context) ([]Permission, error) {
		<-release
		loadCtxErr.Store(ctx.Err() == nil)
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	abandoned := make(chan error, 1)
	go func() {
		_, err := cache.GetOrLoad(ctx, key, load)
		abandoned <- err
	}()

	// Abandon the waiter, then let the load finish.
	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-abandoned, context.Canceled)
	close(release)

	// The shared load still completes and populates the cache.
	assert.Eventually(t, func() bool {
		_, ok := cache.Get(key)
		return ok
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, true, loadCtxErr.Load(), "load context survives caller cancellation")
}

func TestCacheTTLSafetyNet(t *testing.T) {
	t.Parallel()

	cache := NewCache(10 * time.Millisecond)
	key := Key{PrincipalID: "u1", OrgID: "org-1"}

	var loads atomic.Int64
	load := func(context.Context) ([]Permission, error) {
		loads.Add(1)
		return []Permission{{Resource: "territory", Action: "read"}}, nil
	}

	_, err := cache.GetOrLoad(context.Background(), key, load)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := cache.Get(key)
	assert.False(t, ok, "expired entries are not served")

	_, err = cache.GetOrLoad(context.Background(), key, load)
	require.NoError(t, err)
	assert.Equal(t, int64(2), loads.Load())
}
