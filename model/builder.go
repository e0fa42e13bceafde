package model

import (
	"math"

	"github.com/katalvlaran/rmindex/rmkey"
)

// BuilderOption configures a ModelBuilder, following the functional-options
// shape of core.GraphOption / matrix's option constructors.
type BuilderOption func(*ModelBuilder)

// WithSampleThreshold enables progressive sampling (spec §4.1) for any
// single AddMany batch larger than n; points fed through Add are never
// sampled. A threshold of 0 (the default)
// disables sampling: every point always participates in the regression.
func WithSampleThreshold(n int) BuilderOption {
	return func(b *ModelBuilder) { b.sampleThreshold = n }
}

// WithSolver overrides the default GaussianSolver, letting tests stub a
// deterministic one (DESIGN NOTES).
func WithSolver(s Solver) BuilderOption {
	return func(b *ModelBuilder) { b.solver = s }
}

// ModelBuilder accumulates (key, position) observations incrementally — one
// running-sum update per point, O(1) amortized — and solves the resulting
// normal equations for a LinearModel on Build. The incremental accumulation
// mirrors original_source/alex/alex_base.h's LinearModelBuilder, which
// spec.md's "accumulates (key, position) pairs" undercommits to a buffered
// form; this builder never stores the raw samples.
type ModelBuilder struct {
	solver Solver
	dims   int

	n     float64
	sumX  []float64   // length dims
	sumXX [][]float64 // dims x dims, symmetric
	sumY  float64
	sumXY []float64 // length dims

	minKey, maxKey rmkey.Key
	minPos, maxPos float64

	sampleThreshold int
	rawCount        int
}

// NewModelBuilder returns an empty builder for dims-dimensional keys.
func NewModelBuilder(dims int, opts ...BuilderOption) *ModelBuilder {
	b := &ModelBuilder{
		solver: NewGaussianSolver(),
		dims:   dims,
		sumX:   make([]float64, dims),
		sumXX:  make([][]float64, dims),
		sumXY:  make([]float64, dims),
	}
	for i := range b.sumXX {
		b.sumXX[i] = make([]float64, dims)
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Add accumulates one (key, position) observation in O(dims^2) time (the
// cost of updating the Gram matrix), matching LinearModelBuilder::add.
func (b *ModelBuilder) Add(key rmkey.Key, position float64) {
	b.rawCount++
	b.n++
	b.sumY += position
	for i := 0; i < b.dims; i++ {
		xi := componentOrZero(key, i)
		b.sumX[i] += xi
		b.sumXY[i] += xi * position
		for j := 0; j < b.dims; j++ {
			b.sumXX[i][j] += xi * componentOrZero(key, j)
		}
	}
	b.minKey = rmkey.MinKey(b.minKey, key)
	b.maxKey = rmkey.MaxKey(b.maxKey, key)
	if b.n == 1 {
		b.minPos, b.maxPos = position, position
	} else {
		if position < b.minPos {
			b.minPos = position
		}
		if position > b.maxPos {
			b.maxPos = position
		}
	}
}

// AddMany accumulates a batch of observations in key order, as bulk_load
// does when seeding a fresh data node or model node.
func (b *ModelBuilder) AddMany(keys []rmkey.Key, positions []float64) {
	// When sampling is enabled and the batch is large, accumulate only a
	// progressively denser subsequence: start at a coarse step and halve it
	// each round until the fitted slope/intercept stop moving, per spec
	// §4.1 ("sampling halves the step each iteration until consecutive
	// parameter vectors agree within a relative tolerance on slope and an
	// absolute tolerance on intercept").
	if b.sampleThreshold > 0 && len(keys) > b.sampleThreshold {
		b.addSampled(keys, positions)
		return
	}
	for i, k := range keys {
		b.Add(k, positions[i])
	}
}

const (
	sampleRelTolSlope = 1e-3
	sampleAbsTolIntercept = 1e-6
	maxSampleRounds       = 8
)

// addSampled implements the progressive-sampling fallback: it resets the
// builder's accumulators and re-accumulates an increasingly dense
// subsequence of (keys, positions), stopping once two consecutive rounds'
// fitted models agree within tolerance, or after maxSampleRounds.
func (b *ModelBuilder) addSampled(keys []rmkey.Key, positions []float64) {
	var prev *LinearModel
	step := len(keys) / b.sampleThreshold
	if step < 1 {
		step = 1
	}
	for round := 0; round < maxSampleRounds && step >= 1; round++ {
		b.reset()
		for i := 0; i < len(keys); i += step {
			b.Add(keys[i], positions[i])
		}
		// Always include the last point so the spline fallback's max
		// anchor is accurate even under coarse sampling.
		last := len(keys) - 1
		if last >= 0 && last%step != 0 {
			b.Add(keys[last], positions[last])
		}
		cur, err := b.buildLocked()
		if err == nil && prev != nil && modelsConverged(prev, cur) {
			return
		}
		prev = cur
		if step == 1 {
			return
		}
		step /= 2
	}
}

func modelsConverged(a, b *LinearModel) bool {
	if math.Abs(a.Intercept-b.Intercept) > sampleAbsTolIntercept {
		return false
	}
	for i := range a.Slope {
		denom := math.Abs(a.Slope[i])
		if denom < 1e-12 {
			denom = 1e-12
		}
		if math.Abs(a.Slope[i]-b.Slope[i])/denom > sampleRelTolSlope {
			return false
		}
	}
	return true
}

func (b *ModelBuilder) reset() {
	b.n = 0
	b.sumY = 0
	b.minKey, b.maxKey = nil, nil
	b.minPos, b.maxPos = 0, 0
	for i := range b.sumX {
		b.sumX[i] = 0
		b.sumXY[i] = 0
		for j := range b.sumXX[i] {
			b.sumXX[i][j] = 0
		}
	}
}

func componentOrZero(k rmkey.Key, i int) float64 {
	if i < len(k) {
		return k[i]
	}
	return 0
}

// Build solves the accumulated normal equations for a LinearModel. On rank
// deficiency it drops the offending feature column and retries; if no
// feature column survives it retries without the bias term; if the solver
// still cannot produce a model, or the fit yields a non-positive slope (a
// spurious negative regression from finite-precision arithmetic on
// near-constant inputs), it falls back to the two-point spline through
// (minKey, minPos) and (maxKey, maxPos) — all per spec §4.1.
func (b *ModelBuilder) Build() (*LinearModel, error) {
	return b.buildLocked()
}

func (b *ModelBuilder) buildLocked() (*LinearModel, error) {
	if b.n == 0 {
		return nil, ErrNoSamples
	}
	if b.n == 1 {
		return b.splineFallback(), nil
	}

	m, err := b.solveWithColumnDrop()
	if err != nil {
		if err == ErrSolverFatal {
			return nil, err
		}
		return b.splineFallback(), nil
	}
	if !m.Monotone() {
		// Spurious negative regression: fall back rather than trust a
		// model whose predictions run backwards.
		return b.splineFallback(), nil
	}
	return m, nil
}

// solveWithColumnDrop builds the augmented (bias-included) normal-equation
// system and solves it, iteratively dropping any column the solver reports
// as rank-deficient, retrying without the bias term once every real
// feature column has been dropped (spec §4.1).
func (b *ModelBuilder) solveWithColumnDrop() (*LinearModel, error) {
	active := make([]int, b.dims)
	for i := range active {
		active[i] = i
	}
	includeBias := true

	for {
		size := len(active)
		if includeBias {
			size++
		}
		if size == 0 {
			// Nothing left to regress on: degrade to the mean of Y.
			return &LinearModel{Slope: make([]float64, b.dims), Intercept: b.sumY / b.n}, nil
		}

		ata := make([][]float64, size)
		for i := range ata {
			ata[i] = make([]float64, size)
		}
		atb := make([]float64, size)
		for ii, i := range active {
			for jj, j := range active {
				ata[ii][jj] = b.sumXX[i][j]
			}
			atb[ii] = b.sumXY[i]
		}
		if includeBias {
			for ii, i := range active {
				ata[ii][size-1] = b.sumX[i]
				ata[size-1][ii] = b.sumX[i]
			}
			ata[size-1][size-1] = b.n
			atb[size-1] = b.sumY
		}

		x, code, deficient := b.solver.Solve(ata, atb)
		switch code {
		case SolveOK:
			out := &LinearModel{Slope: make([]float64, b.dims)}
			for ii, i := range active {
				out.Slope[i] = x[ii]
			}
			if includeBias {
				out.Intercept = x[size-1]
			}
			return out, nil
		case SolveRankDeficient:
			if includeBias && deficient == size-1 {
				// The bias column itself is deficient: drop it.
				includeBias = false
				continue
			}
			if len(active) == 0 {
				includeBias = false
				continue
			}
			active = append(active[:deficient], active[deficient+1:]...)
			if len(active) == 0 && includeBias {
				// Retry without bias once every real feature is gone.
				includeBias = false
			}
			continue
		default: // SolveFatal
			return nil, ErrSolverFatal
		}
	}
}

// splineFallback builds the degenerate two-point model through
// (minKey, minPos) and (maxKey, maxPos), choosing the feature dimension
// with the largest observed range to carry the slope so the model remains
// well-defined when most dimensions are constant.
func (b *ModelBuilder) splineFallback() *LinearModel {
	out := &LinearModel{Slope: make([]float64, b.dims)}
	if b.minKey == nil || b.maxKey == nil {
		out.Intercept = b.minPos
		return out
	}
	bestDim, bestRange := -1, 0.0
	for i := 0; i < b.dims; i++ {
		r := componentOrZero(b.maxKey, i) - componentOrZero(b.minKey, i)
		if r > bestRange {
			bestRange = r
			bestDim = i
		}
	}
	if bestDim < 0 || bestRange == 0 {
		out.Intercept = (b.minPos + b.maxPos) / 2
		return out
	}
	slope := (b.maxPos - b.minPos) / bestRange
	out.Slope[bestDim] = slope
	out.Intercept = b.minPos - slope*componentOrZero(b.minKey, bestDim)
	return out
}
