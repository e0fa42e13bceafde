package gapped_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

func TestErase_RemovesFromMainArray(t *testing.T) {
	keys, vals := buildSorted(t, 20)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	require.NoError(t, node.Erase(keys[5]))
	_, ok := node.Find(keys[5])
	require.False(t, ok)

	// Neighbors remain intact.
	got, ok := node.Find(keys[4])
	require.True(t, ok)
	require.Equal(t, vals[4], got)
}

func TestErase_MissingKeyReturnsNotFound(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	err = node.Erase(rmkey.Key{-1})
	require.ErrorIs(t, err, gapped.ErrNotFound)
}

func TestErase_RemovesFromDeltaBuffer(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	delta := gapped.NewDeltaBuffer[int](8, 1)
	node.EnterDelta(delta)
	require.Equal(t, gapped.InsertOK, node.Insert(rmkey.Key{5}, 1))

	require.NoError(t, node.Erase(rmkey.Key{5}))
	_, ok := node.FindWithDelta(rmkey.Key{5})
	require.False(t, ok)
}
