package gapped

import (
	"sync/atomic"

	"github.com/katalvlaran/rmindex/rmkey"
)

// Erase removes key from this leaf, checking the main array and both delta
// buffers in the same order FindWithDelta does (spec §4.5). It reports
// ErrNotFound if the key is absent everywhere it looked.
func (n *Node[P]) Erase(key rmkey.Key) error {
	n.arrMu.Lock()
	idx := n.arr.findIndex(key)
	if idx >= 0 {
		n.arr.eraseAt(idx)
		n.arrMu.Unlock()
		atomic.AddInt64(&n.numKeys, -1)
		return nil
	}
	n.arrMu.Unlock()

	n.deltaMu.RLock()
	primary, shadow := n.deltaPrimary, n.deltaShadow
	n.deltaMu.RUnlock()

	if primary != nil && primary.erase(key) {
		atomic.AddInt64(&n.numKeys, -1)
		return nil
	}
	if shadow != nil && shadow.erase(key) {
		atomic.AddInt64(&n.numKeys, -1)
		return nil
	}
	return ErrNotFound
}

// erase removes key from the delta buffer, reporting whether it was found.
func (d *DeltaBuffer[P]) erase(key rmkey.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := d.arr.findIndex(key)
	if idx < 0 {
		return false
	}
	d.arr.eraseAt(idx)
	return true
}
