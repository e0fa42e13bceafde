package rnode

import "github.com/katalvlaran/rmindex/rmkey"

// Kind tags which variant of the Node sum type a Child value holds.
type Kind uint8

const (
	// KindData tags a leaf gapped-array data node.
	KindData Kind = iota
	// KindModel tags an interior model node.
	KindModel
)

// String implements fmt.Stringer for diagnostic output.
func (k Kind) String() string {
	if k == KindModel {
		return "model"
	}
	return "data"
}

// Child is the tagged-variant contract implemented by both *mnode.Node[P]
// and *gapped.Node[P]. A model node's Children slice holds Child[P] values;
// traversal reads Kind() to decide whether to keep descending (KindModel)
// or hand off to the leaf's own find/insert/erase (KindData).
type Child[P any] interface {
	// Kind reports which concrete node type this value holds.
	Kind() Kind
	// NodeLevel reports the depth below the superroot (-1 for the superroot
	// itself, 0 at the real root, 1 at its children, matching spec §3
	// TraversalPath's use of levels for
	// duplication-factor bookkeeping).
	NodeLevel() int
	// Pivot returns the minimum key any descendant of this node may hold
	// (spec §4.3). ModelNode.Lookup reads a candidate child's pivot
	// directly through this accessor to correct floating-point
	// misprediction without a type switch on every hop.
	Pivot() rmkey.Key
}
