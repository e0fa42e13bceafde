// Package mnode implements ModelNode, the interior node of the RMI-style
// tree: a trained LinearModel over children, a power-of-two child count,
// and an RW-locked children slice whose entries may be duplicated so an
// arbitrary subtree can replace a contiguous child range atomically
// (spec §4.3).
//
// Lookup descends by predicting a child slot, clamping it into range, then
// correcting the floating-point misprediction by walking leftward while the
// predicted child's pivot still exceeds the key, then rightward while the
// next child's pivot is still less than or equal to the key — exactly the
// two-phase correction spec.md describes. Mutation (installing a
// replacement subtree) always takes the children lock for writing, and
// never partially overwrites a duplicated run: every slot in a run is
// rewritten together.
package mnode
