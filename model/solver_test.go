package model_test

import (
	"testing"

	"github.com/katalvlaran/rmindex/model"
	"github.com/stretchr/testify/require"
)

// TestGaussianSolver_SolvesWellConditionedSystem checks a textbook 2x2
// system against its known solution.
func TestGaussianSolver_SolvesWellConditionedSystem(t *testing.T) {
	s := model.NewGaussianSolver()
	// [2 1][x0]   [5]
	// [1 3][x1] = [10]
	ata := [][]float64{{2, 1}, {1, 3}}
	atb := []float64{5, 10}
	x, code, _ := s.Solve(ata, atb)
	require.Equal(t, model.SolveOK, code)
	require.InDelta(t, 1.0, x[0], 1e-9)
	require.InDelta(t, 3.0, x[1], 1e-9)
}

// TestGaussianSolver_ReportsRankDeficiency checks that a singular system
// (second row is a multiple of the first) reports SolveRankDeficient rather
// than panicking or dividing by zero.
func TestGaussianSolver_ReportsRankDeficiency(t *testing.T) {
	s := model.NewGaussianSolver()
	ata := [][]float64{{1, 2}, {2, 4}}
	atb := []float64{3, 6}
	_, code, col := s.Solve(ata, atb)
	require.Equal(t, model.SolveRankDeficient, code)
	require.GreaterOrEqual(t, col, 0)
}
