package mnode

import (
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rnode"
)

// ReplaceRange installs child into the contiguous slot range
// [start, start+2^dupFactor) under the children write lock, overwriting
// every duplicate in the run together (spec §3 ModelNode invariant and
// DESIGN NOTES "on replacement, all duplicates are overwritten together
// under the write lock"). start must already be aligned to 2^dupFactor.
//
// The caller is responsible for publishing this replacement *before*
// waiting on a reclamation barrier and *then* freeing whatever child used
// to occupy the range (spec §3 Ownership), matching the RCU hand-off used
// by the restructuring engine.
func (n *Node[P]) ReplaceRange(start, dupFactor int, child rnode.Child[P]) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	span := 1 << dupFactor
	if start < 0 || start+span > n.numChildren {
		return ErrSlotOutOfRange
	}
	if start&(span-1) != 0 {
		return ErrChildMisaligned
	}
	for i := start; i < start+span; i++ {
		n.children[i] = child
		n.dup[i] = uint8(dupFactor)
	}
	return nil
}

// ReplaceSuperrootChild installs child as the superroot's single slot. It
// is sugar for ReplaceRange(0, 0, child) used when splitting the real root
// (spec §4.6: "splitting the root replaces the superroot's single child
// with a fresh model node").
func (n *Node[P]) ReplaceSuperrootChild(child rnode.Child[P]) error {
	return n.ReplaceRange(0, 0, child)
}

// ReplaceModel atomically swaps the node's trained model under the node's
// lock. Neither the restructuring engine nor rmindex calls it: a downward
// split builds a new model node instead of retraining an existing one.
func (n *Node[P]) ReplaceModel(m *model.LinearModel) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.model = m
}
