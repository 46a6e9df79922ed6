package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cubbit/httpfs/internal/rwlock"
)

func TestNew_RejectsNonPositiveCapacity(t *testing.T) {
	_, err := New(0, rwlock.ReaderPriority, 0)
	require.Error(t, err)
}

func TestAcquireRelease_Interning(t *testing.T) {
	r, err := New(4, rwlock.ReaderPriority, 0)
	require.NoError(t, err)

	e1, err := r.Acquire("/foo")
	require.NoError(t, err)
	e2, err := r.Acquire("/foo")
	require.NoError(t, err)
	require.Same(t, e1, e2, "repeated acquires of the same path must return the same entry")

	r.Release(e1)
	r.Release(e2)

	e3, err := r.Acquire("/bar")
	require.NoError(t, err)
	require.Equal(t, "/bar", e3.path)
	r.Release(e3)
}

func TestAcquire_DistinctPathsGetDistinctEntries(t *testing.T) {
	r, err := New(4, rwlock.ReaderPriority, 0)
	require.NoError(t, err)

	e1, err := r.Acquire("/a")
	require.NoError(t, err)
	e2, err := r.Acquire("/b")
	require.NoError(t, err)
	require.NotSame(t, e1, e2, "distinct paths must not share an entry")

	r.Release(e1)
	r.Release(e2)
}

func TestAcquire_ExhaustedRegistryErrors(t *testing.T) {
	r, err := New(1, rwlock.ReaderPriority, 0)
	require.NoError(t, err)

	e1, err := r.Acquire("/a")
	require.NoError(t, err)
	defer r.Release(e1)

	_, err = r.Acquire("/b")
	require.Error(t, err)
}

func TestAcquireRelease_ConcurrentSamePath(t *testing.T) {
	r, err := New(4, rwlock.ReaderPriority, 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := r.Acquire("/shared")
			require.NoError(t, err)
			e.Lock().ReaderLock()
			e.Lock().ReaderUnlock()
			r.Release(e)
		}()
	}
	wg.Wait()
}
