package gapped

import (
	"sort"

	"github.com/katalvlaran/rmindex/rmkey"
)

// Iterator walks a chain of leaves in ascending key order, snapshotting one
// leaf's main array and delta buffers at a time and merging them (spec §5:
// "iteration ... is weakly consistent: a snapshot of each leaf as it is
// visited, not a single whole-tree snapshot"). Crossing to the next leaf
// follows the atomically-linked next pointer, so a concurrent restructure
// that splices in replacement leaves is picked up rather than followed into
// a stale node.
type Iterator[P any] struct {
	leaf *Node[P]
	keys []rmkey.Key
	vals []P
	pos  int
}

// NewIterator returns an iterator positioned at the start of leaf's merged
// snapshot. A nil leaf yields an immediately-exhausted iterator.
func NewIterator[P any](leaf *Node[P]) *Iterator[P] {
	it := &Iterator[P]{leaf: leaf}
	if leaf != nil {
		it.snapshot()
	}
	return it
}

func (it *Iterator[P]) snapshot() {
	it.leaf.arrMu.RLock()
	mainKeys, mainVals := it.leaf.arr.sorted()
	it.leaf.arrMu.RUnlock()

	it.leaf.deltaMu.RLock()
	primary, shadow := it.leaf.deltaPrimary, it.leaf.deltaShadow
	it.leaf.deltaMu.RUnlock()

	merged := [][]rmkey.Key{mainKeys}
	mergedVals := [][]P{mainVals}
	if primary != nil {
		k, v := primary.Sorted()
		merged = append(merged, k)
		mergedVals = append(mergedVals, v)
	}
	if shadow != nil {
		k, v := shadow.Sorted()
		merged = append(merged, k)
		mergedVals = append(mergedVals, v)
	}

	it.keys, it.vals = mergeSortedRuns(merged, mergedVals)
	it.pos = 0
}

// mergeSortedRuns merges several ascending (keys, vals) runs into one
// ascending run via a simple k-way merge.
func mergeSortedRuns[P any](keyRuns [][]rmkey.Key, valRuns [][]P) ([]rmkey.Key, []P) {
	idx := make([]int, len(keyRuns))
	total := 0
	for _, r := range keyRuns {
		total += len(r)
	}
	outKeys := make([]rmkey.Key, 0, total)
	outVals := make([]P, 0, total)

	for {
		best := -1
		for i, r := range keyRuns {
			if idx[i] >= len(r) {
				continue
			}
			if best == -1 || r[idx[i]].Compare(keyRuns[best][idx[best]]) < 0 {
				best = i
			}
		}
		if best == -1 {
			break
		}
		outKeys = append(outKeys, keyRuns[best][idx[best]])
		outVals = append(outVals, valRuns[best][idx[best]])
		idx[best]++
	}
	return outKeys, outVals
}

// MergedSorted returns this leaf's main array merged with whatever
// delta_primary/delta_shadow currently hold, in ascending order — the same
// snapshot Resize and the iterator build internally, exposed for callers
// (the restructuring engine) that need the merged stream without
// constructing a replacement node (spec §4.5 Restructure: "run
// find_best_fanout_existing_node over the merged key stream").
func (n *Node[P]) MergedSorted() ([]rmkey.Key, []P) {
	it := NewIterator[P](n)
	return it.keys, it.vals
}

// Next advances the iterator, crossing to subsequent leaves as needed, and
// reports whether a value is available.
func (it *Iterator[P]) Next() bool {
	if it.leaf == nil {
		return false
	}
	for it.pos >= len(it.keys) {
		next := it.leaf.Next()
		if next == nil {
			it.leaf = nil
			return false
		}
		it.leaf = next
		it.snapshot()
	}
	return true
}

// SeekGE repositions the iterator's read cursor to the first key within its
// current leaf snapshot that is >= target, used by callers (rmindex.Index's
// LowerBound/Scan) that have already descended to the leaf expected to hold
// target and only need to skip its smaller keys.
func (it *Iterator[P]) SeekGE(target rmkey.Key) {
	it.pos = sort.Search(len(it.keys), func(i int) bool { return it.keys[i].Compare(target) >= 0 })
}

// SeekGT repositions the iterator's read cursor to the first key within its
// current leaf snapshot that is > target (rmindex.Index.UpperBound).
func (it *Iterator[P]) SeekGT(target rmkey.Key) {
	it.pos = sort.Search(len(it.keys), func(i int) bool { return it.keys[i].Compare(target) > 0 })
}

// Key returns the current entry's key. Call only after Next returns true.
func (it *Iterator[P]) Key() rmkey.Key { return it.keys[it.pos] }

// Value returns the current entry's payload and advances the read cursor
// past it, so callers use the pattern `for it.Next() { k, v := it.Key(), it.Value() }`.
func (it *Iterator[P]) Value() P {
	v := it.vals[it.pos]
	it.pos++
	return v
}
