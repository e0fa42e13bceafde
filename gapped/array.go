package gapped

import (
	"sync/atomic"

	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
)

// plainArray holds the raw gapped-array storage and search/insert
// mechanics shared by both the leaf's main array and its delta buffers
// (spec §3: "DeltaBuffer ... same gapped-array invariants as DataNode").
// Node and DeltaBuffer each embed one and add their own locking and
// lifecycle fields around it.
type plainArray[P any] struct {
	keys     []rmkey.Key
	payloads []P
	bitmap   Bitmap
	model    *model.LinearModel
	errMin   int
	errMax   int
	capacity int
	dims     int

	stats Stats
}

func newPlainArray[P any](capacity, dims int) plainArray[P] {
	a := plainArray[P]{
		keys:     make([]rmkey.Key, capacity),
		payloads: make([]P, capacity),
		bitmap:   NewBitmap(capacity),
		model:    model.NewIdentityModel(dims),
		capacity: capacity,
		dims:     dims,
	}
	for i := range a.keys {
		a.keys[i] = endSentinel(dims)
	}
	return a
}

// endSentinel is +infinity represented as the largest finite float in every
// component, so it always compares greater than any real key (spec §3:
// "the sentinel key equal to the next present key to the right, or
// +infinity at end").
func endSentinel(dims int) rmkey.Key {
	k := make(rmkey.Key, dims)
	for i := range k {
		k[i] = posInf
	}
	return k
}

const posInf = 1.0e300

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func binarySearchUpperBound(keys []rmkey.Key, key rmkey.Key, lo, hi int) int {
	for lo < hi {
		mid := (lo + hi) / 2
		if keys[mid].Compare(key) > 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// upperBoundExponential returns the smallest raw array index i such that
// keys[i] compares greater than key, seeded at the model's predicted slot
// and doubling the bracket outward until it contains the answer (spec
// §4.2's exponential-search entry point). Every doubling step is counted
// into stats.NumExpSearchIterations.
func (a *plainArray[P]) upperBoundExponential(key rmkey.Key) int {
	if a.capacity == 0 {
		return 0
	}
	start := clampInt(int(a.model.Predict(key)), 0, a.capacity-1)

	lo, hi := start, start+1
	iterations := int64(0)
	if a.keys[start].Compare(key) > 0 {
		bound := 1
		for lo > 0 && a.keys[lo].Compare(key) > 0 {
			hi = lo
			bound *= 2
			lo -= bound
			iterations++
		}
		if lo < 0 {
			lo = 0
		}
	} else {
		bound := 1
		for hi < a.capacity && a.keys[hi].Compare(key) <= 0 {
			lo = hi
			bound *= 2
			hi += bound
			iterations++
		}
		if hi > a.capacity {
			hi = a.capacity
		}
	}
	atomic.AddInt64(&a.stats.NumExpSearchIterations, iterations)
	return binarySearchUpperBound(a.keys, key, lo, hi)
}

// findIndex returns the raw array index holding key via the bounded
// binary search of spec §4.2's find_key, or -1 if absent.
func (a *plainArray[P]) findIndex(key rmkey.Key) int {
	if a.capacity == 0 {
		return -1
	}
	atomic.AddInt64(&a.stats.NumLookups, 1)
	predicted := int(a.model.Predict(key))
	lo := predicted + a.errMin
	hi := predicted + a.errMax + 1
	if a.errMin > a.errMax || lo > hi {
		lo, hi = 0, a.capacity
	}
	lo = clampInt(lo, 0, a.capacity)
	hi = clampInt(hi, 0, a.capacity)
	idx := binarySearchUpperBound(a.keys, key, lo, hi) - 1
	if idx < 0 || !a.bitmap.Get(idx) || !a.keys[idx].Equal(key) {
		return -1
	}
	return idx
}

// place inserts (key, payload) at its correct sorted position using
// exponential search to locate the boundary and a closest-gap shift to
// open room there (spec §4.2). Returns the slot written, the shift
// distance, whether an exact duplicate was found instead, and whether the
// insert succeeded (false only when the array has no free slot anywhere).
func (a *plainArray[P]) place(key rmkey.Key, payload P, allowDuplicates bool) (slot, shiftDist int, duplicate, ok bool) {
	pos := a.upperBoundExponential(key)
	if !allowDuplicates && pos > 0 {
		if left := pos - 1; a.bitmap.Get(left) && a.keys[left].Equal(key) {
			return left, 0, true, true
		}
	}
	if pos >= a.capacity {
		pos = a.capacity - 1
	}

	gap, found := a.bitmap.NearestGap(pos, a.capacity)
	if !found {
		return 0, 0, false, false
	}

	target := pos
	switch {
	case gap == pos:
	case gap > pos:
		for i := gap; i > pos; i-- {
			a.keys[i] = a.keys[i-1]
			a.payloads[i] = a.payloads[i-1]
			if a.bitmap.Get(i - 1) {
				a.bitmap.Set(i)
			} else {
				a.bitmap.Clear(i)
			}
		}
		shiftDist = gap - pos
	default: // gap < pos
		target = pos - 1
		for i := gap; i < target; i++ {
			a.keys[i] = a.keys[i+1]
			a.payloads[i] = a.payloads[i+1]
			if a.bitmap.Get(i + 1) {
				a.bitmap.Set(i)
			} else {
				a.bitmap.Clear(i)
			}
		}
		shiftDist = target - gap
	}

	a.keys[target] = key
	a.payloads[target] = payload
	a.bitmap.Set(target)

	for j := target - 1; j >= 0 && !a.bitmap.Get(j); j-- {
		a.keys[j] = key
	}

	predicted := int(a.model.Predict(key))
	diff := target - predicted
	if diff < a.errMin {
		a.errMin = diff
	}
	if diff > a.errMax {
		a.errMax = diff
	}

	atomic.AddInt64(&a.stats.NumShifts, int64(shiftDist))
	return target, shiftDist, false, true
}

// eraseAt removes the entry at the given raw index, turning the slot into a
// gap that holds a copy of slot idx+1's key (the next present key or that
// slot's own sentinel), or the end sentinel when idx is the last slot;
// erase never changes any other slot's content.
func (a *plainArray[P]) eraseAt(idx int) {
	a.bitmap.Clear(idx)
	// idx's sentinel must become the next present key to the right; reuse
	// whatever slot idx+1 already holds (present key or its own sentinel).
	if idx+1 < a.capacity {
		a.keys[idx] = a.keys[idx+1]
	} else {
		a.keys[idx] = endSentinel(a.dims)
	}
	var zero P
	a.payloads[idx] = zero
}

// fillGaps sets every gap slot's key to the next present key to its right
// (or the end sentinel), restoring the exponential-search invariant after
// bulk construction or a resize that wrote slots out of the usual
// insert-one-at-a-time path.
func (a *plainArray[P]) fillGaps() {
	next := endSentinel(a.dims)
	for i := a.capacity - 1; i >= 0; i-- {
		if a.bitmap.Get(i) {
			next = a.keys[i]
		} else {
			a.keys[i] = next
		}
	}
}

// sorted returns the present (key, payload) pairs in ascending order.
func (a *plainArray[P]) sorted() ([]rmkey.Key, []P) {
	keys := make([]rmkey.Key, 0, a.capacity)
	payloads := make([]P, 0, a.capacity)
	for i := 0; i < a.capacity; i++ {
		if a.bitmap.Get(i) {
			keys = append(keys, a.keys[i])
			payloads = append(payloads, a.payloads[i])
		}
	}
	return keys, payloads
}

// count returns the number of present entries by popcount, the ground
// truth num_keys check against the approximate atomic counter.
func (a *plainArray[P]) count() int { return a.bitmap.CountOnes() }
