package model_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/stretchr/testify/require"
)

// TestModelBuilder_ExactLine verifies that a perfectly linear dataset is
// recovered exactly (up to floating-point tolerance).
func TestModelBuilder_ExactLine(t *testing.T) {
	b := model.NewModelBuilder(1)
	for i := 0; i < 100; i++ {
		b.Add(rmkey.Key{float64(i)}, float64(2*i+5))
	}
	m, err := b.Build()
	require.NoError(t, err)
	require.InDelta(t, 2.0, m.Slope[0], 1e-6)
	require.InDelta(t, 5.0, m.Intercept, 1e-6)
}

// TestModelBuilder_ConstantInputFallsBackToSpline exercises the
// near-constant-input path where the normal equations are singular: the
// builder must still return a usable, monotone model rather than error.
func TestModelBuilder_ConstantInputFallsBackToSpline(t *testing.T) {
	b := model.NewModelBuilder(1)
	for i := 0; i < 10; i++ {
		b.Add(rmkey.Key{42.0}, float64(i))
	}
	m, err := b.Build()
	require.NoError(t, err)
	require.True(t, m.Monotone())
}

// TestModelBuilder_SingleSample checks the n==1 boundary, which has no
// variance to regress on.
func TestModelBuilder_SingleSample(t *testing.T) {
	b := model.NewModelBuilder(2)
	b.Add(rmkey.Key{1, 2}, 7)
	m, err := b.Build()
	require.NoError(t, err)
	require.InDelta(t, 7.0, m.PredictDouble(rmkey.Key{1, 2}), 1e-6)
}

// TestModelBuilder_NoSamples asserts Build reports ErrNoSamples rather than
// silently returning a zero model.
func TestModelBuilder_NoSamples(t *testing.T) {
	b := model.NewModelBuilder(1)
	_, err := b.Build()
	require.ErrorIs(t, err, model.ErrNoSamples)
}

// TestModelBuilder_MultiFeatureRankDeficiency feeds a second feature column
// that is a multiple of the first, forcing the solver to report rank
// deficiency; the builder must drop it and still fit the surviving column.
func TestModelBuilder_MultiFeatureRankDeficiency(t *testing.T) {
	b := model.NewModelBuilder(2)
	for i := 0; i < 50; i++ {
		x := float64(i)
		b.Add(rmkey.Key{x, 2 * x}, 3*x+1)
	}
	m, err := b.Build()
	require.NoError(t, err)
	require.InDelta(t, 1.0, m.PredictDouble(rmkey.Key{0, 0}), 1e-3)
	require.InDelta(t, 151.0, m.PredictDouble(rmkey.Key{50, 100}), 1e-2)
}

// TestModelBuilder_ProgressiveSampling exercises the approximate-model path
// and checks it still converges to a reasonable fit on a large linear
// dataset.
func TestModelBuilder_ProgressiveSampling(t *testing.T) {
	b := model.NewModelBuilder(1, model.WithSampleThreshold(64))
	keys := make([]rmkey.Key, 10000)
	positions := make([]float64, 10000)
	for i := range keys {
		keys[i] = rmkey.Key{float64(i)}
		positions[i] = float64(i)
	}
	b.AddMany(keys, positions)
	m, err := b.Build()
	require.NoError(t, err)
	require.InDelta(t, 1.0, m.Slope[0], 0.05)
}
