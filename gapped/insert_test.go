package gapped_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

func TestInsert_NewKeyThenFindable(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	code := node.Insert(rmkey.Key{5}, 99)
	require.Equal(t, gapped.InsertOK, code)

	got, ok := node.Find(rmkey.Key{5})
	require.True(t, ok)
	require.Equal(t, 99, got)
}

func TestInsert_DuplicateRejectedByDefault(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	code := node.Insert(keys[3], 12345)
	require.Equal(t, gapped.InsertDuplicate, code)

	got, _ := node.Find(keys[3])
	require.Equal(t, vals[3], got, "duplicate insert must not overwrite the existing payload")
}

func TestInsert_DuplicatesAllowedOption(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1, gapped.WithDuplicatesAllowed(true))
	require.NoError(t, err)

	code := node.Insert(keys[3], 777)
	require.Equal(t, gapped.InsertOK, code)
}

func TestInsert_ReportsNeedsExpandAtThreshold(t *testing.T) {
	keys, vals := buildSorted(t, 4)
	node, err := gapped.Build[int](keys, vals, 1, gapped.WithExpansionDensity(0.1))
	require.NoError(t, err)

	var lastCode gapped.InsertCode
	for i := 0; i < 20; i++ {
		lastCode = node.Insert(rmkey.Key{float64(1000 + i)}, i)
		if lastCode == gapped.InsertNeedsExpand {
			break
		}
	}
	require.Equal(t, gapped.InsertNeedsExpand, lastCode)
}

func TestInsert_RoutesToDeltaBufferWhileRestructuring(t *testing.T) {
	keys, vals := buildSorted(t, 10)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	delta := gapped.NewDeltaBuffer[int](8, 1)
	node.EnterDelta(delta)
	require.Equal(t, gapped.WriteDelta, node.LoadStatus())

	code := node.Insert(rmkey.Key{5}, 42)
	require.Equal(t, gapped.InsertOK, code)

	// Not in the main array yet...
	_, ok := node.Find(rmkey.Key{5})
	require.False(t, ok)
	// ...but visible through the delta-aware lookup.
	got, ok := node.FindWithDelta(rmkey.Key{5})
	require.True(t, ok)
	require.Equal(t, 42, got)

	primary, _ := node.LeaveDelta()
	require.Equal(t, gapped.WriteArray, node.LoadStatus())
	require.Same(t, delta, primary)
}

func TestInsert_DeltaFullReportsDeltaFull(t *testing.T) {
	keys, vals := buildSorted(t, 4)
	node, err := gapped.Build[int](keys, vals, 1)
	require.NoError(t, err)

	delta := gapped.NewDeltaBuffer[int](1, 1)
	node.EnterDelta(delta)

	code := node.Insert(rmkey.Key{1}, 1)
	require.Equal(t, gapped.InsertOK, code)

	code = node.Insert(rmkey.Key{2}, 2)
	require.Equal(t, gapped.InsertDeltaFull, code)
}
