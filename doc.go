// Package rmindex is a concurrent, learned ordered key-value index for
// variable-length numeric or byte-array keys. Interior ("model") nodes
// predict a child's position with a trained linear regression instead of a
// binary search over stored separators; leaves hold a sparse, packed
// "gapped array" that a per-leaf model similarly predicts a slot within.
//
// Expensive structural changes — a leaf splitting, expanding, or retraining
// its model — are handed off to a background worker pool so foreground
// Get/Insert/Erase/scan calls observe short, predictable latency: a
// foreground writer either completes immediately or returns ErrRetryLater,
// never blocking behind a restructure.
//
// The package tree below rmindex implements the pieces this facade wires
// together:
//
//	rmkey/       — the ordered Key vocabulary and the byte-string-to-Key adapter
//	model/       — LinearModel, ModelBuilder, and the pluggable least-squares Solver
//	fanout/      — the bottom-up fanout tree cost search used by bulk load and splits
//	gapped/      — DataNode: the gapped-array leaf, its delta buffers, and its bitmap
//	mnode/       — ModelNode: the interior node with duplicated child pointers
//	qsbr/        — quiescent-state-based reclamation for retired nodes
//	restructure/ — the background worker pool and the split/expand engine
//
// A minimal walkthrough:
//
//	idx := rmindex.NewIndex[int](1)
//	w := idx.RegisterWorker()
//	inserted, hint, err := idx.Insert(rmkey.Key{42}, 7, w, nil)
//	payload, hint, err := idx.Get(rmkey.Key{42}, w, hint)
//
// Insert and Get take and return a *Hint: pass nil on a first call, then
// pass back the returned hint on a retry after ErrRetryLater so the next
// attempt resumes descent below the superroot instead of from scratch.
//
// See DESIGN.md in the repository root for the grounding ledger behind each
// package's design choices.
package rmindex
