package rmindex

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/katalvlaran/rmindex/fanout"
	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/mnode"
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/qsbr"
	"github.com/katalvlaran/rmindex/restructure"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
)

// Index is the concurrent, learned ordered key-value index spec §1
// describes: a superroot holding a tree of ModelNodes over gapped-array
// leaves, with a background worker pool absorbing structural changes so
// foreground calls stay short (spec §5).
type Index[P any] struct {
	dims int
	cfg  Config

	domain *qsbr.Domain
	engine *restructure.Engine[P]
	pool   *restructure.Pool[P]

	ctx    context.Context
	cancel context.CancelFunc

	superroot *mnode.Node[P]
	numKeys   int64 // atomic approximate count (spec §5)
}

// NewIndex constructs an empty Index over dims-dimensional keys. A fresh,
// empty leaf is installed as the superroot's sole child so Insert works
// immediately without a prior BulkLoad.
func NewIndex[P any](dims int, opts ...Option) *Index[P] {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	domain := qsbr.NewDomain()
	minKey := make(rmkey.Key, dims)
	superroot := mnode.NewSuperroot[P](dims, minKey)

	idx := &Index[P]{dims: dims, cfg: cfg, domain: domain, superroot: superroot}
	idx.engine = restructure.NewEngine[P](domain, cfg.MaxFanout(), idx.minKeysPerLeaf())
	idx.pool = restructure.NewPool[P](cfg.WorkerPoolSize, cfg.WorkerPoolSize, cfg.JobQueueDepth, idx.engine.Execute)
	idx.ctx, idx.cancel = context.WithCancel(context.Background())
	idx.pool.Start(idx.ctx, cfg.WorkerPoolSize)

	emptyLeaf, _ := gapped.Build[P](nil, nil, dims,
		gapped.WithDuplicatesAllowed(cfg.DuplicatesAllowed), gapped.WithCostWeights(cfg.CostWeightSearch, cfg.CostWeightShift))
	emptyLeaf.SetParent(superroot)
	_ = superroot.ReplaceRange(0, 0, rnode.Child[P](emptyLeaf))

	go idx.reclaimLoop()
	return idx
}

func (idx *Index[P]) minKeysPerLeaf() int {
	n := idx.cfg.MaxDataNodeSlots() / 4
	if n < 4 {
		n = 4
	}
	return n
}

// reclaimLoop periodically advances the reclamation domain's epoch so
// nodes retired by the background engine are eventually freed (spec §5: "a
// background thread ... periodically advances the epoch"), independent of
// the restructuring worker pool.
func (idx *Index[P]) reclaimLoop() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-idx.ctx.Done():
			return
		case <-ticker.C:
			idx.domain.Advance()
		}
	}
}

// Close stops the background worker pool and reclamation loop, waiting for
// any in-flight restructuring job to finish.
func (idx *Index[P]) Close() error {
	idx.cancel()
	return idx.pool.Stop()
}

// descendTo walks from start (or the superroot, if start is nil) to the
// leaf that currently owns key (or would own it, if absent), returning the
// leaf along with its parent and child slot so a caller observing
// InsertNeedsExpand/InsertNeedsRestructure can address a background Job at
// it directly. Passing a cached parent as start lets a retrying caller
// resume below the superroot (spec §4.5 step 2, §8 scenario 6) instead of
// re-walking the whole path.
func (idx *Index[P]) descendTo(key rmkey.Key, start *mnode.Node[P]) (*gapped.Node[P], *mnode.Node[P], int) {
	parent := start
	if parent == nil {
		parent = idx.superroot
	}
	child, slot := parent.Lookup(key)
	for child.Kind() == rnode.KindModel {
		parent = child.(*mnode.Node[P])
		child, slot = parent.Lookup(key)
	}
	return child.(*gapped.Node[P]), parent, slot
}

// Hint caches the ModelNode a prior Get/Insert call descended through, so a
// caller that receives ErrRetryLater can resume descent from there on retry
// instead of re-walking from the superroot (spec §4.5 step 2: "return retry
// later together with the leaf's parent so the caller can resume descent
// there"; §8 scenario 6). The nil *Hint is valid and starts from the
// superroot, exactly like a first call.
type Hint[P any] struct {
	parent *mnode.Node[P]
}

// parentNode returns the cached parent to resume descent from, or nil to
// start at the superroot. Nil-receiver safe so callers can pass a nil *Hint
// on their first call.
func (h *Hint[P]) parentNode() *mnode.Node[P] {
	if h == nil {
		return nil
	}
	return h.parent
}

// BulkLoad replaces the index's single empty leaf with a tree built over a
// sorted run of keys via the fanout tree search (spec §6 bulk_load). It
// rejects a non-empty index or an empty/unsorted sequence rather than
// silently merging.
func (idx *Index[P]) BulkLoad(keys []rmkey.Key, vals []P) error {
	if idx.Count() != 0 {
		return ErrBulkLoadNotEmpty
	}
	if len(keys) == 0 {
		return ErrBulkLoadEmptySequence
	}
	for i := 1; i < len(keys); i++ {
		if keys[i].Compare(keys[i-1]) < 0 {
			return ErrUnsorted
		}
	}

	buildOpts := []gapped.Option{
		gapped.WithDuplicatesAllowed(idx.cfg.DuplicatesAllowed),
		gapped.WithCostWeights(idx.cfg.CostWeightSearch, idx.cfg.CostWeightShift),
	}

	nodes, _ := fanout.FindBestFanout(keys, idx.dims, idx.cfg.MaxFanout(), idx.minKeysPerLeaf())

	if len(nodes) <= 1 {
		leaf, err := gapped.Build[P](keys, vals, idx.dims, buildOpts...)
		if err != nil {
			return err
		}
		leaf.SetParent(idx.superroot)
		if err := idx.superroot.ReplaceRange(0, 0, rnode.Child[P](leaf)); err != nil {
			return err
		}
		atomic.StoreInt64(&idx.numKeys, int64(len(keys)))
		return nil
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].LeftBoundary < nodes[j].LeftBoundary })
	bestLevel := 0
	for _, n := range nodes {
		if n.Level > bestLevel {
			bestLevel = n.Level
		}
	}

	leaves := make([]*gapped.Node[P], len(nodes))
	for i, fn := range nodes {
		ln, err := gapped.Build[P](keys[fn.LeftBoundary:fn.RightBoundary], vals[fn.LeftBoundary:fn.RightBoundary], idx.dims, buildOpts...)
		if err != nil {
			return err
		}
		leaves[i] = ln
	}
	for i := range leaves {
		if i > 0 {
			leaves[i].SetPrev(leaves[i-1])
		}
		if i+1 < len(leaves) {
			leaves[i].SetNext(leaves[i+1])
		}
	}

	childModel := trainChildIndexModel(keys, nodes, bestLevel, idx.dims)
	root, err := mnode.New[P](childModel, 1<<uint(bestLevel), keys[0].Clone(), 0)
	if err != nil {
		return err
	}

	start := 0
	for i, fn := range nodes {
		dup := bestLevel - fn.Level
		span := 1 << uint(dup)
		leaves[i].SetParent(root)
		leaves[i].SetLevel(1)
		if err := root.ReplaceRange(start, dup, rnode.Child[P](leaves[i])); err != nil {
			return err
		}
		start += span
	}
	root.SetParent(idx.superroot)
	if err := idx.superroot.ReplaceRange(0, 0, rnode.Child[P](root)); err != nil {
		return err
	}

	atomic.StoreInt64(&idx.numKeys, int64(len(keys)))
	return nil
}

// trainChildIndexModel trains a single linear model predicting each key's
// slot among a ModelNode's children, given the fanout tree's chosen
// partition — the same construction restructure.Engine uses when it splits
// a leaf downward, reused here for the initial bulk-load tree.
func trainChildIndexModel(keys []rmkey.Key, nodes []fanout.Node, bestLevel, dims int) *model.LinearModel {
	mb := model.NewModelBuilder(dims)
	cum := 0
	for _, fn := range nodes {
		dup := bestLevel - fn.Level
		slot := float64(cum)
		for j := fn.LeftBoundary; j < fn.RightBoundary; j++ {
			mb.Add(keys[j], slot)
		}
		cum += 1 << uint(dup)
	}
	m, err := mb.Build()
	if err != nil {
		return model.NewIdentityModel(dims)
	}
	return m
}

// Get returns the payload stored under key (spec §6 get), together with a
// Hint the caller should pass back in on retry. Returns ErrNotFound if the
// key is absent, or ErrRetryLater if a concurrent writer or background job
// held the leaf's arrays at the instant of the read (spec §5: "foreground
// prefers try-locks and degrades to retry later on contention") — pass hint
// nil on a first call.
func (idx *Index[P]) Get(key rmkey.Key, w *Worker, hint *Hint[P]) (P, *Hint[P], error) {
	w.enter(idx.domain)
	defer w.leave()

	leaf, parent, _ := idx.descendTo(key, hint.parentNode())
	next := &Hint[P]{parent: parent}

	v, ok, busy := leaf.TryFindWithDelta(key)
	if busy {
		idx.cfg.metrics.observeRetryLater()
		var zero P
		return zero, next, ErrRetryLater
	}
	idx.cfg.metrics.observeLookup()
	if !ok {
		var zero P
		return zero, next, ErrNotFound
	}
	return v, next, nil
}

// Insert stores (key, payload) (spec §6 insert), together with a Hint the
// caller should pass back in on retry so it resumes descent below the
// superroot instead of from scratch (spec §4.5 step 2, §8 scenario 6). It
// reports whether the key was newly stored: true on InsertOK/
// InsertNeedsExpand (the key landed regardless of whether a background
// expand was also enqueued), false on InsertDuplicate/
// InsertNeedsRestructure/InsertDeltaFull/InsertBusy, each paired with the
// corresponding sentinel error (spec §4.2 insert code table). Pass hint nil
// on a first call.
func (idx *Index[P]) Insert(key rmkey.Key, payload P, w *Worker, hint *Hint[P]) (bool, *Hint[P], error) {
	w.enter(idx.domain)
	defer w.leave()

	leaf, parent, slot := idx.descendTo(key, hint.parentNode())
	next := &Hint[P]{parent: parent}
	code := leaf.Insert(key, payload)

	switch code {
	case gapped.InsertOK:
		atomic.AddInt64(&idx.numKeys, 1)
		idx.cfg.metrics.observeInsert()
		return true, next, nil
	case gapped.InsertDuplicate:
		return false, next, ErrDuplicateKey
	case gapped.InsertNeedsExpand:
		atomic.AddInt64(&idx.numKeys, 1)
		idx.cfg.metrics.observeInsert()
		idx.maybeEnqueue(leaf, parent, slot, restructure.JobExpand)
		return true, next, nil
	case gapped.InsertNeedsRestructure:
		idx.maybeEnqueue(leaf, parent, slot, restructure.JobRestructure)
		idx.cfg.metrics.observeRetryLater()
		return false, next, ErrRetryLater
	case gapped.InsertDeltaFull:
		idx.maybeEnterTmpDelta(leaf)
		idx.cfg.metrics.observeRetryLater()
		return false, next, ErrRetryLater
	case gapped.InsertBusy:
		// The try-lock failed, most often because a background job is
		// mid-install on this exact leaf. The cached parent in next is still
		// valid: the job hasn't published its replacement yet, so retrying
		// from it re-resolves to the same (or, once installed, the new)
		// child without walking from the superroot.
		idx.cfg.metrics.observeRetryLater()
		return false, next, ErrRetryLater
	default:
		return false, next, ErrInvariantBroken
	}
}

// maybeEnqueue transitions leaf into WriteDelta and submits a background
// Job, unless a job is already in flight for this leaf (observed via
// status != WriteArray) — this is the duplicate-submission guard spec §3
// TrainingJob requires ("enqueued only while holding the leaf's insert
// mutex"). The mutex is only try-locked: if another insert holds it, no job
// is submitted and a later insert that hits the same condition tries again.
// If the pool's queue is full, the delta transition is undone so foreground
// inserts keep landing in the main array.
func (idx *Index[P]) maybeEnqueue(leaf *gapped.Node[P], parent *mnode.Node[P], slot int, kind restructure.Kind) {
	if !leaf.TryLockInsert() {
		return
	}
	defer leaf.UnlockInsert()

	if leaf.LoadStatus() != gapped.WriteArray {
		return
	}
	delta := gapped.NewDeltaBuffer[P](idx.deltaCapacity(leaf), idx.dims)
	leaf.EnterDelta(delta)

	job := &restructure.Job[P]{Kind: kind, Leaf: leaf, Parent: parent, Slot: slot, Dims: idx.dims}
	if !idx.pool.Submit(job) {
		leaf.LeaveDelta()
	}
}

// maybeEnterTmpDelta transitions a leaf whose delta_primary has filled up
// into WriteTmpDelta, installing a shadow buffer as the new foreground
// destination (spec §4.5 diagram). A no-op if the leaf is not currently in
// WriteDelta (e.g. the background job already finished and restored
// WriteArray concurrently), or if the insert mutex is held by another
// insert, in which case the caller's retry reaches this path again.
func (idx *Index[P]) maybeEnterTmpDelta(leaf *gapped.Node[P]) {
	if !leaf.TryLockInsert() {
		return
	}
	defer leaf.UnlockInsert()

	if leaf.LoadStatus() != gapped.WriteDelta {
		return
	}
	shadow := gapped.NewDeltaBuffer[P](idx.deltaCapacity(leaf), idx.dims)
	leaf.EnterTmpDelta(shadow)
}

func (idx *Index[P]) deltaCapacity(leaf *gapped.Node[P]) int {
	if idx.cfg.DeltaIndexCapacity > 0 {
		return idx.cfg.DeltaIndexCapacity
	}
	c := leaf.Capacity() / 4
	if c < 8 {
		c = 8
	}
	return c
}

// Erase removes key (spec §6 erase). Returns ErrNotFound if the key is
// absent from both the main array and any in-flight delta buffer.
func (idx *Index[P]) Erase(key rmkey.Key, w *Worker) error {
	w.enter(idx.domain)
	defer w.leave()

	leaf, _, _ := idx.descendTo(key, nil)
	if err := leaf.Erase(key); err != nil {
		if errors.Is(err, gapped.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	atomic.AddInt64(&idx.numKeys, -1)
	idx.cfg.metrics.observeErase()
	return nil
}

// Iterator walks keys in ascending order starting from a LowerBound/
// UpperBound/Scan call, holding the issuing Worker entered for its
// lifetime so a concurrent restructure's reclamation barrier cannot free a
// leaf the iterator still references. Callers must either exhaust it (Next
// returns false) or call Close explicitly.
type Iterator[P any] struct {
	it   *gapped.Iterator[P]
	w    *Worker
	done bool
}

// Next advances the iterator and reports whether an entry is available.
func (it *Iterator[P]) Next() bool {
	if it.done {
		return false
	}
	if it.it.Next() {
		return true
	}
	it.Close()
	return false
}

// Key returns the current entry's key. Valid only after Next returns true.
func (it *Iterator[P]) Key() rmkey.Key { return it.it.Key() }

// Value returns the current entry's payload and advances past it.
func (it *Iterator[P]) Value() P { return it.it.Value() }

// Close releases the iterator's worker registration. Safe to call more
// than once.
func (it *Iterator[P]) Close() {
	if it.done {
		return
	}
	it.done = true
	it.w.leave()
}

// LowerBound returns an Iterator positioned at the first key >= key
// (spec §6 lower_bound).
func (idx *Index[P]) LowerBound(key rmkey.Key, w *Worker) *Iterator[P] {
	w.enter(idx.domain)
	leaf, _, _ := idx.descendTo(key, nil)
	git := gapped.NewIterator[P](leaf)
	git.SeekGE(key)
	return &Iterator[P]{it: git, w: w}
}

// UpperBound returns an Iterator positioned at the first key > key
// (spec §6 upper_bound).
func (idx *Index[P]) UpperBound(key rmkey.Key, w *Worker) *Iterator[P] {
	w.enter(idx.domain)
	leaf, _, _ := idx.descendTo(key, nil)
	git := gapped.NewIterator[P](leaf)
	git.SeekGT(key)
	return &Iterator[P]{it: git, w: w}
}

// Scan returns an Iterator over every key >= lo (spec §6 scan). Callers
// bound the upper end themselves by checking Key() against a limit and
// calling Close once done, e.g.:
//
//	it := idx.Scan(lo, w)
//	for it.Next() && it.Key().Less(hi) { ... }
//	it.Close()
func (idx *Index[P]) Scan(lo rmkey.Key, w *Worker) *Iterator[P] {
	return idx.LowerBound(lo, w)
}

// Count returns the approximate number of keys currently stored (spec §5:
// "not for correctness").
func (idx *Index[P]) Count() int64 { return atomic.LoadInt64(&idx.numKeys) }

// Stats aggregates the index's background-job and reclamation counters for
// diagnostics (spec §8 Testable Properties' observability surface).
type Stats struct {
	NumKeys             int64
	JobsRun             int64
	JobsFailed          int64
	PendingReclamations int
	QueueDepth          int
}

// Stats returns a snapshot of the index's counters.
func (idx *Index[P]) Stats() Stats {
	ran, failed := idx.pool.Stats()
	s := Stats{
		NumKeys:             idx.Count(),
		JobsRun:             ran,
		JobsFailed:          failed,
		PendingReclamations: idx.domain.PendingCount(),
		QueueDepth:          idx.pool.QueueDepth(),
	}
	idx.cfg.metrics.observeJobs(ran, failed)
	idx.cfg.metrics.setKeyCount(s.NumKeys)
	return s
}
