package rmkey_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

// TestKey_Compare locks in lexicographic component ordering.
func TestKey_Compare(t *testing.T) {
	cases := []struct {
		name string
		a, b rmkey.Key
		want int
	}{
		{"equal", rmkey.Key{1, 2, 3}, rmkey.Key{1, 2, 3}, 0},
		{"less_first_component", rmkey.Key{1, 9}, rmkey.Key{2, 0}, -1},
		{"greater_second_component", rmkey.Key{1, 2}, rmkey.Key{1, 1}, 1},
		{"prefix_shorter_is_less", rmkey.Key{1}, rmkey.Key{1, 0}, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.a.Compare(tc.b))
		})
	}
}

// TestKey_CloneIndependence ensures Clone never aliases backing storage.
func TestKey_CloneIndependence(t *testing.T) {
	k := rmkey.Key{1, 2, 3}
	c := k.Clone()
	c[0] = 99
	require.Equal(t, float64(1), k[0], "mutating the clone must not affect the source")
}

// TestMinMaxKey verifies the order-based min/max helpers used for domain tracking.
func TestMinMaxKey(t *testing.T) {
	a := rmkey.Key{1, 5}
	b := rmkey.Key{2, 1}
	require.True(t, rmkey.MinKey(a, b).Equal(a))
	require.True(t, rmkey.MaxKey(a, b).Equal(b))
	require.True(t, rmkey.MinKey(nil, b).Equal(b))
}
