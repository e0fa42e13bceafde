package qsbr

import (
	"sync"

	"go.uber.org/atomic"
)

// quiescentEpoch marks a Worker that holds no pointer into the tree right
// now; it compares greater than any real epoch so a quiescent worker never
// blocks Domain.Advance's min-epoch computation.
const quiescentEpoch = ^uint64(0)

// Worker is a single goroutine's registration with a Domain — typically one
// per background restructuring worker, and optionally one per long-lived
// reader goroutine that wants to avoid blocking reclamation unnecessarily.
// The zero value is not usable; obtain one via Domain.RegisterWorker.
type Worker struct {
	epoch atomic.Uint64
}

// Enter marks the worker as about to dereference pointers into the tree,
// snapshotting the domain's current epoch so Advance can tell whether this
// worker might still observe data retired before that snapshot.
func (w *Worker) Enter(d *Domain) {
	w.epoch.Store(d.globalEpoch.Load())
}

// Leave marks the worker quiescent: it holds no pointer into the tree.
// Callers wrap each traversal as `w.Enter(d); defer w.Leave()`.
func (w *Worker) Leave() {
	w.epoch.Store(quiescentEpoch)
}

type retireEntry struct {
	epoch uint64
	free  func()
}

// Domain coordinates retirement across a set of registered workers (spec
// §5: "a background thread ... periodically advances the epoch and frees
// anything retired strictly before the oldest in-use epoch").
type Domain struct {
	globalEpoch atomic.Uint64

	mu      sync.Mutex
	workers []*Worker
	pending []retireEntry
}

// NewDomain returns an empty reclamation domain.
func NewDomain() *Domain {
	return &Domain{}
}

// RegisterWorker creates and registers a new Worker, starting quiescent.
func (d *Domain) RegisterWorker() *Worker {
	w := &Worker{}
	w.epoch.Store(quiescentEpoch)

	d.mu.Lock()
	d.workers = append(d.workers, w)
	d.mu.Unlock()
	return w
}

// Retire queues free to run once no registered worker can still observe
// whatever it reclaims (i.e. once every worker currently mid-traversal has
// since left and re-entered, or was never active). The caller must have
// already unlinked the retired node from the live tree (e.g. via
// mnode.ReplaceRange) before calling Retire — Domain only delays the free,
// it does not unlink anything itself.
func (d *Domain) Retire(free func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, retireEntry{epoch: d.globalEpoch.Load(), free: free})
}

// Advance bumps the domain's epoch and runs every retired callback queued
// strictly before the oldest epoch any worker might still be using. It is
// called every 50ms by rmindex.Index's reclamation loop and after each
// retirement by restructure.Engine, not by readers. Returns the number of
// callbacks run.
func (d *Domain) Advance() int {
	newEpoch := d.globalEpoch.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	safe := newEpoch
	for _, w := range d.workers {
		e := w.epoch.Load()
		if e != quiescentEpoch && e < safe {
			safe = e
		}
	}

	keep := d.pending[:0]
	ran := 0
	for _, entry := range d.pending {
		if entry.epoch < safe {
			entry.free()
			ran++
		} else {
			keep = append(keep, entry)
		}
	}
	d.pending = keep
	return ran
}

// PendingCount reports how many retirements are still queued, used by
// tests and diagnostics.
func (d *Domain) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
