package mnode

import (
	"errors"
	"sync"

	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
)

// Sentinel errors for model-node bookkeeping.
var (
	// ErrNotPowerOfTwo indicates NumChildren was not a power of two (spec §3
	// ModelNode invariant).
	ErrNotPowerOfTwo = errors.New("mnode: num_children must be a power of two")
	// ErrChildMisaligned indicates a duplicated child's slot did not start
	// at a multiple of its duplication factor (spec §3 ModelNode invariant:
	// "i mod 2^d == 0").
	ErrChildMisaligned = errors.New("mnode: duplicated child misaligned to its duplication factor")
	// ErrSlotOutOfRange indicates an operation addressed a child slot
	// outside [0, num_children).
	ErrSlotOutOfRange = errors.New("mnode: child slot out of range")
)

// Node is the interior ("model") node of the tree: spec §4.3's ModelNode.
// Children may be duplicated — a child with DuplicationFactor d occupies
// 2^d consecutive slots — so a background restructure can swap an entire
// contiguous child range in one write-lock critical section (spec §4.5).
type Node[P any] struct {
	mu sync.RWMutex // guards children, dup, and pivot of held slots

	model       *model.LinearModel
	numChildren int
	children    []rnode.Child[P]
	dup         []uint8 // dup[i] = duplication factor of the run containing slot i

	pivot  rmkey.Key
	level  int
	parent *Node[P]
}

// New returns a ModelNode with numChildren slots, all initially nil
// (callers must install children before the node is reachable by readers).
// numChildren must be a power of two.
func New[P any](m *model.LinearModel, numChildren int, pivot rmkey.Key, level int) (*Node[P], error) {
	if numChildren <= 0 || numChildren&(numChildren-1) != 0 {
		return nil, ErrNotPowerOfTwo
	}
	n := &Node[P]{
		model:       m,
		numChildren: numChildren,
		children:    make([]rnode.Child[P], numChildren),
		dup:         make([]uint8, numChildren),
		pivot:       pivot,
		level:       level,
	}
	return n, nil
}

// NewSuperroot returns the phantom parent of the real root: a single-slot
// model node whose model predicts zero and whose pivot is the minimum
// representable key (spec §4.6). Its only child changes over the index's
// lifetime; the superroot value itself never does.
func NewSuperroot[P any](dims int, minKey rmkey.Key) *Node[P] {
	n, _ := New[P](model.NewIdentityModel(dims), 1, minKey, -1)
	return n
}

// Kind implements rnode.Child.
func (n *Node[P]) Kind() rnode.Kind { return rnode.KindModel }

// NodeLevel implements rnode.Child.
func (n *Node[P]) NodeLevel() int { return n.level }

// Pivot implements rnode.Child.
func (n *Node[P]) Pivot() rmkey.Key {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pivot
}

// SetPivot updates the node's pivot key; used when a split pushes the
// minimum key of a subtree down or up.
func (n *Node[P]) SetPivot(k rmkey.Key) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pivot = k
}

// NumChildren returns the power-of-two slot count.
func (n *Node[P]) NumChildren() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.numChildren
}

// Parent returns the owning ModelNode, or nil for the superroot.
func (n *Node[P]) Parent() *Node[P] {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.parent
}

// SetParent installs the owning ModelNode back-reference.
func (n *Node[P]) SetParent(p *Node[P]) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parent = p
}

// Model returns the node's trained LinearModel.
func (n *Node[P]) Model() *model.LinearModel {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.model
}
