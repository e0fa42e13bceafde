// Package model implements LinearModel — the trained linear regression that
// every model node and data node uses to predict a child slot or array
// position from a Key — and ModelBuilder, which accumulates (key, position)
// observations and solves for the model's slope vector and intercept via
// ordinary least squares.
//
// predict(key) = floor(a·phi(key) + b), matching spec §4.1. The solver is
// hidden behind the Solver interface (DESIGN NOTES: "keep the solver behind
// a trait so tests can stub a deterministic one") so ModelBuilder's column
// iteratively-drop-on-rank-deficiency logic never needs to know whether the
// underlying numerics are Gaussian elimination, LU, or QR.
package model
