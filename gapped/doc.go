// Package gapped implements DataNode: the leaf of the tree, a sparse
// "gapped array" of (key, payload) slots with a presence bitmap and a
// trained intra-node LinearModel that predicts a slot for a given key
// (spec §4.2). Gap slots are kept filled with a sentinel copy of the next
// present key to the right, so exponential search always terminates inside
// a run even when it starts on an empty slot.
//
// A node may also hold up to two DeltaBuffers — gapped arrays in their own
// right — that absorb foreground inserts while a background worker is
// rebuilding the node's main array (spec §4.5). Foreground code therefore
// checks, in order, the main array, delta_primary, then delta_shadow.
//
// Density constants follow the upstream ALEX paper/reference implementation's
// published defaults (max/init/min density 0.8/0.7/0.6). Note this diverges
// from original_source/alex/alex_nodes.h, whose kMaxDensity_/kInitDensity_/
// kMinDensity_ are all hardcoded to 1 — that fork's data nodes are plain
// dense arrays with no slack for shift-on-insert, so density never varies.
// A gapped array, by construction, needs slack below full to keep inserts
// cheap, so 0.8/0.7/0.6 are used here instead of copying that fork's 1/1/1:
// a node is resized to InitDensity on bulk load and to MinDensity on
// background expansion, and is judged to need expansion once it crosses
// MaxDensity.
package gapped

// Density bounds for gapped-array capacity planning (spec §4.2 Resize).
const (
	MaxDensity  = 0.8
	InitDensity = 0.7
	MinDensity  = 0.6
)

// CatastrophicShiftsPerInsert is the empirical-shifts-per-insert threshold
// past which Stats.Catastrophic reports a node as catastrophic (spec §4.2).
// The insert path does not consult Stats.Catastrophic, so crossing it does
// not by itself trigger a restructure.
const CatastrophicShiftsPerInsert = 100.0

// DeviationCostFactor is the multiple of a node's expected cost past which
// it is judged "significantly deviating" (spec §4.2).
const DeviationCostFactor = 1.5

// RetrainSampleThreshold: nodes with fewer than this many keys always
// retrain their model on resize regardless of the forceRetrain flag
// (spec §4.2 Resize: "retrains the model if N<50 or if retraining is
// forced").
const RetrainSampleThreshold = 50
