package mnode_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/mnode"
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
	"github.com/stretchr/testify/require"
)

// leafStub is a minimal rnode.Child used to exercise ModelNode in isolation,
// without pulling in the gapped package.
type leafStub struct {
	pivot rmkey.Key
	level int
}

func (l *leafStub) Kind() rnode.Kind    { return rnode.KindData }
func (l *leafStub) NodeLevel() int      { return l.level }
func (l *leafStub) Pivot() rmkey.Key    { return l.pivot }

func TestNew_RejectsNonPowerOfTwo(t *testing.T) {
	_, err := mnode.New[int](model.NewIdentityModel(1), 3, rmkey.Key{0}, 0)
	require.ErrorIs(t, err, mnode.ErrNotPowerOfTwo)
}

func TestReplaceRange_RejectsMisalignedStart(t *testing.T) {
	n, err := mnode.New[int](model.NewIdentityModel(1), 4, rmkey.Key{0}, 0)
	require.NoError(t, err)
	err = n.ReplaceRange(1, 1, &leafStub{pivot: rmkey.Key{0}})
	require.ErrorIs(t, err, mnode.ErrChildMisaligned)
}

func TestLookup_WalksToCorrectChildByPivot(t *testing.T) {
	m := &model.LinearModel{Slope: []float64{1}, Intercept: 0}
	n, err := mnode.New[int](m, 4, rmkey.Key{0}, 0)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		require.NoError(t, n.ReplaceRange(i, 0, &leafStub{pivot: rmkey.Key{float64(i * 10)}}))
	}

	// Key 25 should resolve to slot 2 (pivot 20), not the raw-predicted slot.
	child, slot := n.Lookup(rmkey.Key{25})
	require.Equal(t, 2, slot)
	require.NotNil(t, child)
}

func TestDuplicationFactor_CoversWholeRun(t *testing.T) {
	n, err := mnode.New[int](model.NewIdentityModel(1), 4, rmkey.Key{0}, 0)
	require.NoError(t, err)
	require.NoError(t, n.ReplaceRange(0, 2, &leafStub{pivot: rmkey.Key{0}}))

	for slot := 0; slot < 4; slot++ {
		d, err := n.DuplicationFactor(slot)
		require.NoError(t, err)
		require.Equal(t, 2, d)
	}
}
