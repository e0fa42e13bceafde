package gapped_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

func buildSorted(t *testing.T, n int) ([]rmkey.Key, []int) {
	t.Helper()
	keys := make([]rmkey.Key, n)
	vals := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = rmkey.Key{float64(i * 10)}
		vals[i] = i
	}
	return keys, vals
}

func TestBuild_FindsEveryKey(t *testing.T) {
	keys, vals := buildSorted(t, 50)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	for i, k := range keys {
		got, ok := node.Find(k)
		require.True(t, ok, "key %v should be found", k)
		require.Equal(t, vals[i], got)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	node, err := gapped.Build[int](nil, nil, 1)
	require.NoError(t, err)
	_, ok := node.Find(rmkey.Key{0})
	require.False(t, ok)
}

func TestFind_MissingKeyNotFound(t *testing.T) {
	keys, vals := buildSorted(t, 20)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	_, ok := node.Find(rmkey.Key{5})
	require.False(t, ok)
}

func TestBuild_PreservesSortedOrderInvariant(t *testing.T) {
	keys, vals := buildSorted(t, 64)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	for _, k := range keys {
		got, ok := node.Find(k)
		require.True(t, ok)
		require.GreaterOrEqual(t, got, 0)
	}

	sorted, _ := node.MergedSorted()
	require.Len(t, sorted, len(keys))
	for i := 1; i < len(sorted); i++ {
		require.True(t, sorted[i-1].Less(sorted[i]))
	}
}
