package gapped_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

func TestResize_PreservesAllKeys(t *testing.T) {
	keys, vals := buildSorted(t, 30)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	replacement, err := node.Resize(gapped.MinDensity, true)
	require.NoError(t, err)

	for i, k := range keys {
		got, ok := replacement.Find(k)
		require.True(t, ok)
		require.Equal(t, vals[i], got)
	}
}

func TestResize_MergesDeltaBuffers(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	delta := gapped.NewDeltaBuffer[int](8, 1)
	node.EnterDelta(delta)
	require.Equal(t, gapped.InsertOK, node.Insert(rmkey.Key{5}, 999))

	replacement, err := node.Resize(gapped.MinDensity, true)
	require.NoError(t, err)

	got, ok := replacement.Find(rmkey.Key{5})
	require.True(t, ok)
	require.Equal(t, 999, got)

	got, ok = replacement.Find(keys[0])
	require.True(t, ok)
	require.Equal(t, vals[0], got)
}

func TestResize_EmptyNode(t *testing.T) {
	node, err := gapped.Build[int](nil, nil, 1)
	require.NoError(t, err)

	replacement, err := node.Resize(gapped.MinDensity, true)
	require.NoError(t, err)
	_, ok := replacement.Find(rmkey.Key{0})
	require.False(t, ok)
}
