package gapped

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/katalvlaran/rmindex/mnode"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
)

// Sentinel errors for gapped-array bookkeeping.
var (
	// ErrFull indicates the array has no free slot left anywhere (spec §4.2
	// "When err_min > err_max (overflow), search the whole array" and the
	// needs_restructure insert code).
	ErrFull = errors.New("gapped: array is full")
	// ErrNotFound indicates the key is absent from this node (spec §7 NotFound).
	ErrNotFound = errors.New("gapped: key not found")
	// ErrInvariantBroken indicates a bitmap/array inconsistency that should
	// never occur in a correct implementation (spec §7 InvariantBroken).
	ErrInvariantBroken = errors.New("gapped: invariant broken")
)

// Status is the leaf's restructuring state machine (spec §4.5 diagram).
type Status int32

const (
	// WriteArray: the main key/payload array is the sole destination for
	// foreground inserts.
	WriteArray Status = iota
	// WriteDelta: a background Expand or Restructure job is running;
	// foreground inserts land in deltaPrimary.
	WriteDelta
	// WriteTmpDelta: deltaPrimary filled up before the background job
	// finished; foreground inserts land in deltaShadow instead.
	WriteTmpDelta
)

// String renders the status name, used in diagnostics and test failure
// messages.
func (s Status) String() string {
	switch s {
	case WriteArray:
		return "WriteArray"
	case WriteDelta:
		return "WriteDelta"
	case WriteTmpDelta:
		return "WriteTmpDelta"
	default:
		return "Status(?)"
	}
}

// InsertCode is the foreground insert outcome (spec §4.2 table). rmindex
// translates DeltaFull into ErrRetryLater at the facade (spec §9, Open
// Question 2) rather than leaking the primary/shadow distinction.
type InsertCode int

const (
	InsertOK InsertCode = iota
	InsertDuplicate
	InsertDeltaFull
	InsertNeedsExpand
	InsertNeedsRestructure
	// InsertBusy reports that the foreground insert mutex was already held
	// (spec §4.5 step 2, §5 "foreground uses try-lock"); rmindex translates
	// this into ErrRetryLater together with the leaf's cached parent, so the
	// caller can resume descent from there instead of the superroot.
	InsertBusy
)

// Stats accumulates the per-node counters spec §4.2 defines: num_shifts,
// num_exp_search_iterations, num_lookups, num_inserts, plus the
// expected-cost figures computed at build time that empirical_cost is
// compared against.
type Stats struct {
	NumShifts               int64
	NumExpSearchIterations  int64
	NumLookups              int64
	NumInserts              int64
	ExpectedSearchIters     float64
	ExpectedShiftsPerInsert float64
}

// EmpiricalCost combines the recorded counters into the weighted cost
// figure spec §4.2 defines: w1*mean_search_iters + w2*shifts_per_insert*frac_inserts.
func (s Stats) EmpiricalCost(w1, w2 float64) float64 {
	lookups := float64(s.NumLookups)
	inserts := float64(s.NumInserts)
	total := lookups + inserts
	if total == 0 {
		return 0
	}
	meanSearchIters := 0.0
	if s.NumLookups > 0 {
		meanSearchIters = float64(s.NumExpSearchIterations) / lookups
	}
	shiftsPerInsert := 0.0
	if s.NumInserts > 0 {
		shiftsPerInsert = float64(s.NumShifts) / inserts
	}
	fracInserts := inserts / total
	return w1*meanSearchIters + w2*shiftsPerInsert*fracInserts
}

// Catastrophic reports whether empirical shifts-per-insert crossed
// CatastrophicShiftsPerInsert (spec §4.2).
func (s Stats) Catastrophic() bool {
	if s.NumInserts == 0 {
		return false
	}
	return float64(s.NumShifts)/float64(s.NumInserts) > CatastrophicShiftsPerInsert
}

// SignificantlyDeviating reports whether empirical cost exceeds
// DeviationCostFactor times the expected cost recorded at build time
// (spec §4.2).
func (s Stats) SignificantlyDeviating(w1, w2 float64) bool {
	expected := w1*s.ExpectedSearchIters + w2*s.ExpectedShiftsPerInsert
	if expected <= 0 {
		return false
	}
	return s.EmpiricalCost(w1, w2) > DeviationCostFactor*expected
}

// DeltaBuffer absorbs foreground inserts while a leaf is being restructured
// in the background (spec §3 DeltaBuffer, §4.2 Delta index). It is a gapped
// array in its own right — it embeds the same plainArray mechanics as
// Node's main array — and may be shared between two sibling leaves produced
// by a split, hence the reference count.
type DeltaBuffer[P any] struct {
	mu sync.RWMutex
	arr plainArray[P]

	refCount int32 // atomic
}

// NewDeltaBuffer allocates an empty delta buffer of the given capacity with
// an identity model, which it keeps: nothing retrains a delta buffer's
// model as it fills.
func NewDeltaBuffer[P any](capacity, dims int) *DeltaBuffer[P] {
	return &DeltaBuffer[P]{
		arr:      newPlainArray[P](capacity, dims),
		refCount: 1,
	}
}

// Retain increments the shared reference count, used when a split hands the
// same pending delta buffer to both new leaves (spec §4.2).
func (d *DeltaBuffer[P]) Retain() { atomic.AddInt32(&d.refCount, 1) }

// Release decrements the reference count and reports whether this was the
// last reference, in which case the caller may discard the buffer.
func (d *DeltaBuffer[P]) Release() bool {
	return atomic.AddInt32(&d.refCount, -1) == 0
}

// NumKeys returns the approximate number of keys held, matching spec §5's
// "approximate ... used for stats ... not for correctness" policy.
func (d *DeltaBuffer[P]) NumKeys() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.arr.count()
}

// Capacity returns the delta buffer's slot count.
func (d *DeltaBuffer[P]) Capacity() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.arr.capacity
}

// Find looks up key in the delta buffer only.
func (d *DeltaBuffer[P]) Find(key rmkey.Key) (P, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := d.arr.findIndex(key)
	var zero P
	if idx < 0 {
		return zero, false
	}
	return d.arr.payloads[idx], true
}

// Insert places (key, payload) into the delta buffer, reporting whether it
// succeeded (false means the delta buffer is full and the caller must
// switch to the shadow buffer or fail with ErrRetryLater upstream).
func (d *DeltaBuffer[P]) Insert(key rmkey.Key, payload P, allowDuplicates bool) (duplicate, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _, duplicate, ok = d.arr.place(key, payload, allowDuplicates)
	return duplicate, ok
}

// Sorted returns the delta buffer's present entries in ascending order, used
// by the restructuring engine to merge a delta into a freshly built array.
func (d *DeltaBuffer[P]) Sorted() ([]rmkey.Key, []P) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.arr.sorted()
}

// Node is the leaf data node: spec §3's DataNode / §4.2's gapped array.
type Node[P any] struct {
	insertMu sync.Mutex   // foreground try-lock, background blocking lock
	arrMu    sync.RWMutex // guards arr (keys/payloads/bitmap/model/errMin/errMax)
	deltaMu  sync.RWMutex // guards deltaPrimary/deltaShadow pointers and status

	arr plainArray[P]

	numKeys int64 // atomic approximate counter (spec §5)

	expansionThreshold int
	allowDuplicates    bool

	level  int
	pivot  rmkey.Key
	parent *mnode.Node[P]

	prev atomic.Pointer[Node[P]]
	next atomic.Pointer[Node[P]]

	status       int32 // Status, guarded by deltaMu during transitions
	deltaPrimary *DeltaBuffer[P]
	deltaShadow  *DeltaBuffer[P]

	// cost model weights, copied from the node's owning index config so
	// EmpiricalCost/SignificantlyDeviating are self-contained.
	costW1, costW2 float64
}

// Kind implements rnode.Child.
func (n *Node[P]) Kind() rnode.Kind { return rnode.KindData }

// NodeLevel implements rnode.Child.
func (n *Node[P]) NodeLevel() int { return n.level }

// Pivot implements rnode.Child.
func (n *Node[P]) Pivot() rmkey.Key {
	n.arrMu.RLock()
	defer n.arrMu.RUnlock()
	return n.pivot
}

// SetPivot updates the node's minimum-key pivot.
func (n *Node[P]) SetPivot(k rmkey.Key) {
	n.arrMu.Lock()
	defer n.arrMu.Unlock()
	n.pivot = k
}

// Parent returns the owning ModelNode.
func (n *Node[P]) Parent() *mnode.Node[P] { return n.parent }

// SetParent installs the owning ModelNode back-reference.
func (n *Node[P]) SetParent(p *mnode.Node[P]) { n.parent = p }

// SetLevel updates the node's depth-from-superroot level, used when a
// restructuring job installs a freshly built leaf at a different depth than
// the leaf it replaces (spec §4.5 split-downwards pushes leaves one level
// deeper; split-sideways keeps the replaced leaf's own level).
func (n *Node[P]) SetLevel(level int) { n.level = level }

// Next returns the atomically-linked next leaf in key order, or nil at the
// end of the chain (spec §4.5 prev/next leaf ring).
func (n *Node[P]) Next() *Node[P] { return n.next.Load() }

// Prev returns the atomically-linked previous leaf, or nil at the start.
func (n *Node[P]) Prev() *Node[P] { return n.prev.Load() }

// SetNext atomically installs the next-leaf link.
func (n *Node[P]) SetNext(next *Node[P]) { n.next.Store(next) }

// SetPrev atomically installs the prev-leaf link.
func (n *Node[P]) SetPrev(prev *Node[P]) { n.prev.Store(prev) }

// Capacity returns data_capacity (C in spec notation).
func (n *Node[P]) Capacity() int { return n.arr.capacity }

// NumKeys returns the approximate key count (spec §5: "not for correctness").
func (n *Node[P]) NumKeys() int64 { return atomic.LoadInt64(&n.numKeys) }

// ExpansionThreshold returns the key count at or above which Insert
// reports InsertNeedsExpand.
func (n *Node[P]) ExpansionThreshold() int { return n.expansionThreshold }

// AllowDuplicates reports whether this node was built to permit repeated
// keys, so a restructuring job can preserve the setting across a split.
func (n *Node[P]) AllowDuplicates() bool { return n.allowDuplicates }

// CostWeights returns the w1/w2 weights this node was built with, so a
// restructuring job can carry them into the replacement leaves it builds.
func (n *Node[P]) CostWeights() (float64, float64) { return n.costW1, n.costW2 }

// Stats returns a copy of the node's accumulated statistics.
func (n *Node[P]) Stats() Stats {
	n.arrMu.RLock()
	defer n.arrMu.RUnlock()
	return n.arr.stats
}

// LoadStatus returns the current restructuring state.
func (n *Node[P]) LoadStatus() Status { return Status(atomic.LoadInt32(&n.status)) }
