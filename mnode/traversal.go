package mnode

import (
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
)

// Step is one hop of a TraversalPath: the model node visited and the child
// slot the descent took (spec §3 TraversalPath). Writers replay the path to
// install a replacement subtree without re-descending from the superroot.
type Step[P any] struct {
	Node *Node[P]
	Slot int
}

// Lookup predicts a candidate child slot for key, clamps it into range, and
// corrects floating-point misprediction by walking leftward while the
// predicted child's pivot still exceeds key, then rightward while the next
// child's pivot is still <= key (spec §4.3). It returns the resolved child
// and the slot it occupies, holding the children read-lock only long enough
// to copy the pointer out.
func (n *Node[P]) Lookup(key rmkey.Key) (rnode.Child[P], int) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	slot := n.predictSlotLocked(key)

	// Walk leftward: the predicted child's pivot must not exceed key.
	for slot > 0 && n.children[slot] != nil && n.children[slot].Pivot() != nil && key.Less(n.children[slot].Pivot()) {
		slot--
	}
	// Walk rightward: advance one child-span while the *next* child's
	// pivot is still <= key.
	for {
		span := n.spanLocked(slot)
		next := slot + span
		if next >= n.numChildren || n.children[next] == nil {
			break
		}
		nextPivot := n.children[next].Pivot()
		if nextPivot == nil || nextPivot.Compare(key) > 0 {
			break
		}
		slot = next
	}
	return n.children[slot], slot
}

// predictSlotLocked predicts a child slot, clamps it to [0, numChildren),
// then rounds it down to a multiple of that slot's duplication factor.
// Callers must hold at least a read lock.
func (n *Node[P]) predictSlotLocked(key rmkey.Key) int {
	raw := n.model.Predict(key)
	if raw < 0 {
		raw = 0
	}
	if raw >= int64(n.numChildren) {
		raw = int64(n.numChildren) - 1
	}
	slot := int(raw)
	d := n.dup[slot]
	if d > 0 {
		mask := (1 << d) - 1
		slot &^= mask
	}
	return slot
}

// spanLocked returns 2^dup[slot], the number of consecutive slots the child
// at slot occupies. Callers must hold at least a read lock.
func (n *Node[P]) spanLocked(slot int) int {
	return 1 << n.dup[slot]
}

// DuplicationFactor returns d such that the child at slot occupies 2^d
// consecutive slots (spec §3, GLOSSARY "Duplication factor").
func (n *Node[P]) DuplicationFactor(slot int) (int, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if slot < 0 || slot >= n.numChildren {
		return 0, ErrSlotOutOfRange
	}
	return int(n.dup[slot]), nil
}

// ChildAt returns the child occupying slot, or nil if unset.
func (n *Node[P]) ChildAt(slot int) (rnode.Child[P], error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if slot < 0 || slot >= n.numChildren {
		return nil, ErrSlotOutOfRange
	}
	return n.children[slot], nil
}

// Children returns a snapshot slice of all children, safe for a caller to
// range over without holding the lock (e.g. a background worker scanning
// for a merge candidate).
func (n *Node[P]) Children() []rnode.Child[P] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make([]rnode.Child[P], len(n.children))
	copy(out, n.children)
	return out
}
