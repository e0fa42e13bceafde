package rmindex_test

import (
	"sync"
	"testing"

	"github.com/katalvlaran/rmindex"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

func key(i int) rmkey.Key { return rmkey.Key{float64(i)} }

func TestInsertThenGet_RoundTrips(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	inserted, _, err := idx.Insert(key(42), 7, w, nil)
	require.NoError(t, err)
	require.True(t, inserted)

	v, _, err := idx.Get(key(42), w, nil)
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestGet_MissingKeyReturnsNotFound(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	_, _, err := idx.Get(key(1), w, nil)
	require.ErrorIs(t, err, rmindex.ErrNotFound)
}

func TestInsert_DuplicateRejectedByDefault(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	_, _, err := idx.Insert(key(1), 1, w, nil)
	require.NoError(t, err)

	_, _, err = idx.Insert(key(1), 2, w, nil)
	require.ErrorIs(t, err, rmindex.ErrDuplicateKey)
}

func TestErase_RemovesKey(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	_, _, err := idx.Insert(key(5), 50, w, nil)
	require.NoError(t, err)

	require.NoError(t, idx.Erase(key(5), w))

	_, _, err = idx.Get(key(5), w, nil)
	require.ErrorIs(t, err, rmindex.ErrNotFound)
}

func TestErase_MissingKeyReturnsNotFound(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	require.ErrorIs(t, idx.Erase(key(9), w), rmindex.ErrNotFound)
}

func TestBulkLoad_ThenLookupsResolveEveryKey(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()

	const n = 2000
	keys := make([]rmkey.Key, n)
	vals := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = key(i)
		vals[i] = i * 2
	}
	require.NoError(t, idx.BulkLoad(keys, vals))
	require.Equal(t, int64(n), idx.Count())

	w := idx.RegisterWorker()
	for i := 0; i < n; i += 37 {
		v, _, err := idx.Get(key(i), w, nil)
		require.NoError(t, err)
		require.Equal(t, i*2, v)
	}
}

func TestBulkLoad_RejectsNonEmptyIndex(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()
	_, _, err := idx.Insert(key(1), 1, w, nil)
	require.NoError(t, err)

	require.ErrorIs(t, idx.BulkLoad([]rmkey.Key{key(2)}, []int{2}), rmindex.ErrBulkLoadNotEmpty)
}

func TestBulkLoad_RejectsUnsortedInput(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()

	err := idx.BulkLoad([]rmkey.Key{key(2), key(1)}, []int{2, 1})
	require.ErrorIs(t, err, rmindex.ErrUnsorted)
}

func TestBulkLoad_RejectsEmptySequence(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()

	require.ErrorIs(t, idx.BulkLoad(nil, nil), rmindex.ErrBulkLoadEmptySequence)
}

func TestScan_VisitsKeysInAscendingOrder(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()

	const n = 500
	keys := make([]rmkey.Key, n)
	vals := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = key(i)
		vals[i] = i
	}
	require.NoError(t, idx.BulkLoad(keys, vals))

	w := idx.RegisterWorker()
	it := idx.Scan(key(100), w)
	defer it.Close()

	prev := -1
	count := 0
	for it.Next() && it.Key().Compare(key(200)) < 0 {
		require.Greater(t, int(it.Key()[0]), prev)
		prev = int(it.Key()[0])
		count++
		require.Equal(t, prev, it.Value())
	}
	require.Equal(t, 100, count)
}

func TestUpperBound_SkipsTheBoundaryKeyItself(t *testing.T) {
	idx := rmindex.NewIndex[int](1)
	defer idx.Close()
	w := idx.RegisterWorker()

	for i := 0; i < 10; i++ {
		_, _, err := idx.Insert(key(i), i, w, nil)
		require.NoError(t, err)
	}

	it := idx.UpperBound(key(5), w)
	defer it.Close()
	require.True(t, it.Next())
	require.Equal(t, 6, int(it.Key()[0]))
}

func TestConcurrentInsertAndGet_NeverCorruptsState(t *testing.T) {
	idx := rmindex.NewIndex[int](1, rmindex.WithWorkerPoolSize(4))
	defer idx.Close()

	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func(g int) {
			defer wg.Done()
			w := idx.RegisterWorker()
			base := g * perGoroutine
			for i := 0; i < perGoroutine; i++ {
				k := key(base + i)
				var hint *rmindex.Hint[int]
				for {
					_, next, err := idx.Insert(k, base+i, w, hint)
					hint = next
					if err == nil {
						break
					}
					if err == rmindex.ErrRetryLater {
						continue
					}
					require.NoError(t, err)
				}
			}
		}(g)
	}
	wg.Wait()

	w := idx.RegisterWorker()
	for g := 0; g < goroutines; g++ {
		base := g * perGoroutine
		for i := 0; i < perGoroutine; i++ {
			var hint *rmindex.Hint[int]
			var v int
			var err error
			for {
				v, hint, err = idx.Get(key(base+i), w, hint)
				if err != rmindex.ErrRetryLater {
					break
				}
			}
			require.NoError(t, err)
			require.Equal(t, base+i, v)
		}
	}
	require.Equal(t, int64(goroutines*perGoroutine), idx.Count())
}
