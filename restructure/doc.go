// Package restructure implements the background worker pool and the
// Expand / Restructure (split-sideways, split-downwards) state machine that
// keeps data nodes from degrading under sustained inserts (spec §4.5, §3
// TrainingJob). Foreground inserts that hit a gapped-array node's expansion
// threshold, or find its array full, enqueue a Job here instead of
// blocking; the shift rate (gapped.Stats.Catastrophic) does not trigger a
// job. The pool's workers drain the queue using
// golang.org/x/sync/errgroup to manage worker lifetimes and
// golang.org/x/sync/semaphore to cap how many jobs run at once (spec §5:
// "Background queue: bounded or unbounded, multiple producers (any
// foreground thread), one or more consumers (worker pool)").
//
// A job never mutates a live leaf's main array in place: it builds a
// complete replacement (via gapped.Node.Resize or a fresh fanout.
// FindBestFanout split), diverts foreground inserts into the leaf's delta
// buffers for the duration (gapped.Node.EnterDelta/EnterTmpDelta), splices
// the replacement into the tree under the parent ModelNode's lock
// (mnode.Node.ReplaceRange), and retires the old leaf through a qsbr.Domain
// rather than freeing it immediately — mirroring
// original_source/alex/alex_bg.h's single "is a background op in flight"
// guard, generalized to rmindex's multi-worker pool.
package restructure
