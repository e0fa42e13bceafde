package restructure_test

import (
	"context"
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/mnode"
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/qsbr"
	"github.com/katalvlaran/rmindex/restructure"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
	"github.com/stretchr/testify/require"
)

func buildSequentialLeaf(t *testing.T, n int) (*gapped.Node[int], []rmkey.Key) {
	t.Helper()
	keys := make([]rmkey.Key, n)
	vals := make([]int, n)
	for i := range keys {
		keys[i] = rmkey.Key{float64(i)}
		vals[i] = i
	}
	leaf, err := gapped.Build[int](keys, vals, 1, gapped.WithExpansionDensity(0.99))
	require.NoError(t, err)
	return leaf, keys
}

// parentFor wraps leaf as the sole child of a fresh single-slot ModelNode,
// mimicking how rmindex.Index wires a leaf under its superroot.
func parentFor(t *testing.T, leaf *gapped.Node[int]) *mnode.Node[int] {
	t.Helper()
	parent, err := mnode.New[int](model.NewIdentityModel(1), 1, rmkey.Key{0}, 0)
	require.NoError(t, err)
	require.NoError(t, parent.ReplaceRange(0, 0, rnode.Child[int](leaf)))
	leaf.SetParent(parent)
	return parent
}

func TestEngine_ExpandKeepsAllKeysFindable(t *testing.T) {
	leaf, keys := buildSequentialLeaf(t, 40)
	parent := parentFor(t, leaf)

	domain := qsbr.NewDomain()
	eng := restructure.NewEngine[int](domain, 16, 4)

	delta := gapped.NewDeltaBuffer[int](16, 1)
	leaf.EnterDelta(delta)

	job := &restructure.Job[int]{Kind: restructure.JobExpand, Leaf: leaf, Parent: parent, Slot: 0, Dims: 1}
	require.NoError(t, eng.Execute(context.Background(), job))

	child, err := parent.ChildAt(0)
	require.NoError(t, err)
	require.NotSame(t, rnode.Child[int](leaf), child)

	replaced := child.(*gapped.Node[int])
	for i, k := range keys {
		v, ok := replaced.Find(k)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
}

func TestEngine_RestructureSplitsDownwardWhenNoSpareDuplication(t *testing.T) {
	leaf, keys := buildSequentialLeaf(t, 500)
	parent := parentFor(t, leaf)

	domain := qsbr.NewDomain()
	eng := restructure.NewEngine[int](domain, 16, 4)

	delta := gapped.NewDeltaBuffer[int](16, 1)
	leaf.EnterDelta(delta)

	job := &restructure.Job[int]{Kind: restructure.JobRestructure, Leaf: leaf, Parent: parent, Slot: 0, Dims: 1}
	require.NoError(t, eng.Execute(context.Background(), job))

	child, err := parent.ChildAt(0)
	require.NoError(t, err)
	require.Equal(t, rnode.KindModel, child.Kind())

	newNode := child.(*mnode.Node[int])
	for _, k := range keys {
		resolved, _ := newNode.Lookup(k)
		require.Equal(t, rnode.KindData, resolved.Kind())
		leafNode := resolved.(*gapped.Node[int])
		v, ok := leafNode.FindWithDelta(k)
		require.True(t, ok)
		require.Equal(t, int(k[0]), v)
	}
}
