package rmindex

import "github.com/katalvlaran/rmindex/qsbr"

// Worker is a caller's registration with the index's reclamation domain
// (spec §6 register_worker). Every goroutine issuing Get/LowerBound/
// UpperBound/Scan calls must hold its own Worker and pass it to each call;
// Insert/Erase accept a Worker too so a single goroutine can reuse one
// registration across both reads and writes.
type Worker struct {
	qw *qsbr.Worker
}

// RegisterWorker creates a new Worker registered with the index's
// reclamation domain. Callers should register once per long-lived
// goroutine and reuse the returned Worker, not register per call (spec §5:
// "typically one per background restructuring worker ... and optionally
// one per long-lived reader goroutine").
func (idx *Index[P]) RegisterWorker() *Worker {
	return &Worker{qw: idx.domain.RegisterWorker()}
}

// enter marks w as about to dereference pointers into the tree, so a
// concurrent restructure's reclamation barrier waits for w to leave before
// freeing anything w might still observe.
func (w *Worker) enter(d *qsbr.Domain) { w.qw.Enter(d) }

// leave marks w quiescent once the traversal has finished.
func (w *Worker) leave() { w.qw.Leave() }
