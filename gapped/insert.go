package gapped

import (
	"sync/atomic"

	"github.com/katalvlaran/rmindex/rmkey"
)

// Insert implements the foreground insert path of spec §4.2/§4.5: while the
// node is in WriteArray status, keys land directly in the main array; once a
// background job has moved it to WriteDelta or WriteTmpDelta, keys land in
// whichever delta buffer is current instead, so the background job can
// build a fresh array undisturbed.
//
// It reports an InsertCode rather than an error: the caller (rmindex) is
// responsible for translating InsertNeedsExpand/InsertNeedsRestructure into
// a background job submission, and InsertDeltaFull/InsertBusy into
// ErrRetryLater.
//
// The insert mutex is acquired non-blockingly (spec §4.5 step 2, §5
// "foreground uses try-lock"): a contended leaf — most often one a
// background job is already mid-swap on — reports InsertBusy immediately
// rather than queuing the foreground thread behind that job.
func (n *Node[P]) Insert(key rmkey.Key, payload P) InsertCode {
	if !n.TryLockInsert() {
		return InsertBusy
	}
	defer n.UnlockInsert()

	n.deltaMu.RLock()
	status := Status(atomic.LoadInt32(&n.status))
	primary := n.deltaPrimary
	shadow := n.deltaShadow
	n.deltaMu.RUnlock()

	switch status {
	case WriteDelta:
		return n.insertIntoDelta(primary, key, payload)
	case WriteTmpDelta:
		return n.insertIntoDelta(shadow, key, payload)
	default:
		return n.insertIntoArray(key, payload)
	}
}

func (n *Node[P]) insertIntoDelta(d *DeltaBuffer[P], key rmkey.Key, payload P) InsertCode {
	if d == nil {
		return InsertNeedsRestructure
	}
	duplicate, ok := d.Insert(key, payload, n.allowDuplicates)
	if duplicate {
		return InsertDuplicate
	}
	if !ok {
		return InsertDeltaFull
	}
	atomic.AddInt64(&n.numKeys, 1)
	return InsertOK
}

func (n *Node[P]) insertIntoArray(key rmkey.Key, payload P) InsertCode {
	n.arrMu.Lock()
	_, _, duplicate, ok := n.arr.place(key, payload, n.allowDuplicates)
	n.arrMu.Unlock()

	if duplicate {
		return InsertDuplicate
	}
	if !ok {
		return InsertNeedsRestructure
	}

	atomic.AddInt64(&n.numKeys, 1)
	atomic.AddInt64(&n.arr.stats.NumInserts, 1)

	if int(atomic.LoadInt64(&n.numKeys)) >= n.expansionThreshold {
		return InsertNeedsExpand
	}
	return InsertOK
}

// FindWithDelta looks the key up in the main array first, then
// delta_primary, then delta_shadow, matching spec §4.5's foreground
// lookup order during restructuring.
func (n *Node[P]) FindWithDelta(key rmkey.Key) (P, bool) {
	if payload, ok := n.Find(key); ok {
		return payload, true
	}

	n.deltaMu.RLock()
	primary, shadow := n.deltaPrimary, n.deltaShadow
	n.deltaMu.RUnlock()

	if primary != nil {
		if payload, ok := primary.Find(key); ok {
			return payload, true
		}
	}
	if shadow != nil {
		if payload, ok := shadow.Find(key); ok {
			return payload, true
		}
	}
	var zero P
	return zero, false
}

// TryFindWithDelta is the non-blocking counterpart to FindWithDelta used by
// the foreground get path (spec §5: "Leaf main array and delta buffers:
// many readers; at most one writer ... foreground prefers try-locks and
// degrades to retry later on contention"). It reports busy=true, rather
// than blocking, when a writer holds the main array or the delta pointers
// at the instant of the read.
func (n *Node[P]) TryFindWithDelta(key rmkey.Key) (payload P, found, busy bool) {
	var zero P

	if !n.arrMu.TryRLock() {
		return zero, false, true
	}
	idx := n.arr.findIndex(key)
	if idx >= 0 {
		payload = n.arr.payloads[idx]
		n.arrMu.RUnlock()
		return payload, true, false
	}
	n.arrMu.RUnlock()

	if !n.deltaMu.TryRLock() {
		return zero, false, true
	}
	primary, shadow := n.deltaPrimary, n.deltaShadow
	n.deltaMu.RUnlock()

	if primary != nil {
		if v, ok := primary.Find(key); ok {
			return v, true, false
		}
	}
	if shadow != nil {
		if v, ok := shadow.Find(key); ok {
			return v, true, false
		}
	}
	return zero, false, false
}

// EnterDelta transitions the node from WriteArray to WriteDelta, installing
// a fresh (or shared, via Retain beforehand) delta buffer as delta_primary.
// It is called by the restructuring engine immediately before it starts
// reading the main array to build a replacement (spec §4.5). The caller
// must already hold whatever lock serializes concurrent restructure
// attempts on this node (rmindex ensures at most one job touches a leaf at
// a time).
func (n *Node[P]) EnterDelta(primary *DeltaBuffer[P]) {
	n.deltaMu.Lock()
	defer n.deltaMu.Unlock()
	n.deltaPrimary = primary
	atomic.StoreInt32(&n.status, int32(WriteDelta))
}

// EnterTmpDelta transitions WriteDelta to WriteTmpDelta once delta_primary
// has filled up, installing shadow as the new foreground destination
// (spec §4.5 diagram).
func (n *Node[P]) EnterTmpDelta(shadow *DeltaBuffer[P]) {
	n.deltaMu.Lock()
	defer n.deltaMu.Unlock()
	n.deltaShadow = shadow
	atomic.StoreInt32(&n.status, int32(WriteTmpDelta))
}

// LeaveDelta restores WriteArray status and clears both delta buffer
// pointers, called once the restructuring engine has installed the
// rebuilt array (or rewired this leaf's parent to a replacement) and
// merged in whatever the delta buffers accumulated meanwhile.
func (n *Node[P]) LeaveDelta() (primary, shadow *DeltaBuffer[P]) {
	n.deltaMu.Lock()
	defer n.deltaMu.Unlock()
	primary, shadow = n.deltaPrimary, n.deltaShadow
	n.deltaPrimary, n.deltaShadow = nil, nil
	atomic.StoreInt32(&n.status, int32(WriteArray))
	return primary, shadow
}

// DeltaBuffers returns the node's current delta buffer pointers without
// changing status, used by the restructuring engine to read accumulated
// inserts before merging.
func (n *Node[P]) DeltaBuffers() (primary, shadow *DeltaBuffer[P]) {
	n.deltaMu.RLock()
	defer n.deltaMu.RUnlock()
	return n.deltaPrimary, n.deltaShadow
}

// TryLockInsert attempts to acquire the foreground insert lock without
// blocking, reporting false on contention so the caller can fail fast with
// InsertBusy/ErrRetryLater rather than queue behind a background job
// (spec §5: "readers never block; a writer ... may retry"). Insert and
// rmindex's maybeEnqueue/maybeEnterTmpDelta are its callers.
func (n *Node[P]) TryLockInsert() bool { return n.insertMu.TryLock() }

// LockInsert blocks until the foreground insert lock is free, used by the
// background restructuring worker when it must serialize against
// concurrent foreground inserts during the final swap.
func (n *Node[P]) LockInsert() { n.insertMu.Lock() }

// UnlockInsert releases the foreground insert lock.
func (n *Node[P]) UnlockInsert() { n.insertMu.Unlock() }
