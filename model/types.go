package model

import (
	"errors"
	"math"

	"github.com/katalvlaran/rmindex/rmkey"
)

// Sentinel errors for the model package. InvariantBroken-class failures
// (a negative solver code) are surfaced as ErrSolverFatal; rmindex returns
// that error to its caller unchanged.
var (
	// ErrNoSamples is returned by Build when no (key, position) pairs were
	// ever accumulated.
	ErrNoSamples = errors.New("model: no samples accumulated")
	// ErrSolverFatal indicates the solver reported an unrecoverable failure
	// (spec §9: "when it returns a negative code, treat as fatal InvariantBroken").
	ErrSolverFatal = errors.New("model: solver reported fatal failure")
	// ErrDimensionMismatch indicates samples with inconsistent feature counts
	// were fed to the same builder.
	ErrDimensionMismatch = errors.New("model: inconsistent key dimensionality")
)

func modelErrorf(op string, err error) error {
	return errors.New("model: " + op + ": " + err.Error())
}

// LinearModel maps a Key to a predicted integer position via
// floor(Slope·phi(key) + Intercept). It is the leaf of every model node and
// data node's prediction machinery (spec §4.1).
type LinearModel struct {
	// Slope holds one coefficient per key component (a[L] in spec notation).
	Slope []float64
	// Intercept is the scalar additive term b.
	Intercept float64
}

// NewIdentityModel returns the degenerate model used by the superroot: it
// predicts 0 regardless of key, matching spec §4.6 ("identity-shaped model
// (predicts 0)").
func NewIdentityModel(dims int) *LinearModel {
	return &LinearModel{Slope: make([]float64, dims), Intercept: 0}
}

// dot computes Slope·phi(key), zero-extending the shorter of the two when
// dimensions disagree rather than panicking, since a model trained on an
// L-dimensional domain must still answer for any key of that domain.
func (m *LinearModel) dot(key rmkey.Key) float64 {
	n := len(m.Slope)
	if len(key) < n {
		n = len(key)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += m.Slope[i] * key[i]
	}
	return sum
}

// PredictDouble returns a·phi(key) + b without flooring, used by callers
// that need sub-integer precision (e.g. the fanout tree's cost estimates).
func (m *LinearModel) PredictDouble(key rmkey.Key) float64 {
	return m.dot(key) + m.Intercept
}

// Predict returns floor(a·phi(key) + b), the integer slot/child prediction.
func (m *LinearModel) Predict(key rmkey.Key) int64 {
	return int64(math.Floor(m.PredictDouble(key)))
}

// Expand scales both Slope and Intercept by factor, equivalent to
// multiplying the predicted output range by factor (spec §4.1).
func (m *LinearModel) Expand(factor float64) {
	for i := range m.Slope {
		m.Slope[i] *= factor
	}
	m.Intercept *= factor
}

// Clone returns an independent deep copy of m.
func (m *LinearModel) Clone() *LinearModel {
	out := &LinearModel{Slope: make([]float64, len(m.Slope)), Intercept: m.Intercept}
	copy(out.Slope, m.Slope)
	return out
}

// Monotone reports whether every slope component is non-negative, the
// condition under which Predict is monotone nondecreasing per-feature
// (spec §3, LinearModel invariants).
func (m *LinearModel) Monotone() bool {
	for _, a := range m.Slope {
		if a < 0 {
			return false
		}
	}
	return true
}
