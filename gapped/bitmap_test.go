package gapped_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/stretchr/testify/require"
)

func TestBitmap_SetGetClear(t *testing.T) {
	b := gapped.NewBitmap(130)
	require.False(t, b.Get(0))
	b.Set(0)
	b.Set(64)
	b.Set(129)
	require.True(t, b.Get(0))
	require.True(t, b.Get(64))
	require.True(t, b.Get(129))
	require.Equal(t, 3, b.CountOnes())

	b.Clear(64)
	require.False(t, b.Get(64))
	require.Equal(t, 2, b.CountOnes())
}

func TestBitmap_NearestGap(t *testing.T) {
	b := gapped.NewBitmap(8)
	for i := 0; i < 8; i++ {
		b.Set(i)
	}
	b.Clear(2)
	b.Clear(5)

	gap, ok := b.NearestGap(3, 8)
	require.True(t, ok)
	require.Equal(t, 2, gap) // slot 2 is distance 1 away, slot 5 is distance 2 away

	gap, ok = b.NearestGap(4, 8)
	require.True(t, ok)
	require.Equal(t, 5, gap) // slot 5 is distance 1 away, slot 2 is distance 2 away
}

func TestBitmap_NearestGap_Full(t *testing.T) {
	b := gapped.NewBitmap(4)
	for i := 0; i < 4; i++ {
		b.Set(i)
	}
	_, ok := b.NearestGap(1, 4)
	require.False(t, ok)
}

func TestBitmap_Clone_Independent(t *testing.T) {
	b := gapped.NewBitmap(64)
	b.Set(3)
	c := b.Clone()
	c.Set(4)
	require.False(t, b.Get(4))
	require.True(t, c.Get(3))
}
