package restructure

import (
	"context"
	"sort"

	"github.com/katalvlaran/rmindex/fanout"
	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/mnode"
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/qsbr"
	"github.com/katalvlaran/rmindex/rmkey"
	"github.com/katalvlaran/rmindex/rnode"
)

// Engine executes the TrainingJobs a Pool drains: the background half of
// spec §4.5's split/expand/downward-split state machine. The foreground
// insert path (rmindex.Index.Insert) only decides *that* a leaf needs work
// and enqueues a Job; everything about *how* the replacement is built and
// spliced into the tree lives here.
type Engine[P any] struct {
	Domain         *qsbr.Domain
	MaxFanout      int
	MinKeysPerLeaf int
}

// NewEngine returns an Engine wired to domain for reclamation (spec §5
// "a background job calls the barrier after it has published a replacement
// and before it frees the retired object"), with the fanout search bounded
// by maxFanout and minKeysPerLeaf.
func NewEngine[P any](domain *qsbr.Domain, maxFanout, minKeysPerLeaf int) *Engine[P] {
	if maxFanout < 2 {
		maxFanout = 2
	}
	if minKeysPerLeaf < 1 {
		minKeysPerLeaf = 1
	}
	return &Engine[P]{Domain: domain, MaxFanout: maxFanout, MinKeysPerLeaf: minKeysPerLeaf}
}

// Execute runs one TrainingJob to completion. Its signature is exactly the
// exec func a Pool is constructed with (NewPool's exec parameter).
func (e *Engine[P]) Execute(_ context.Context, job *Job[P]) error {
	switch job.Kind {
	case JobExpand:
		return e.runExpand(job)
	default:
		return e.runRestructure(job)
	}
}

// runExpand implements spec §4.5's Expand job: resize the leaf to
// MinDensity, retraining only if the sample count is small, then splice the
// single replacement into the same parent slot range the old leaf held.
func (e *Engine[P]) runExpand(job *Job[P]) error {
	replacement, err := job.Leaf.Resize(gapped.MinDensity, false)
	if err != nil {
		return err
	}
	replacement.SetLevel(job.Leaf.NodeLevel())
	return e.installSingle(job, replacement)
}

// runRestructure implements spec §4.5's Restructure job: run the fanout
// tree over the leaf's merged key stream, then choose among expand in
// place, split sideways (new leaves replace duplicated parent slots), and
// split downwards (a fresh ModelNode takes the leaf's place and owns the
// new leaves as its own children).
func (e *Engine[P]) runRestructure(job *Job[P]) error {
	leaf, parent, dims := job.Leaf, job.Parent, job.Dims

	keys, vals := leaf.MergedSorted()
	w1, w2 := leaf.CostWeights()
	allowDup := leaf.AllowDuplicates()

	nodes, _ := fanout.FindBestFanout(keys, dims, e.MaxFanout, e.MinKeysPerLeaf)
	if len(nodes) <= 1 {
		replacement, err := leaf.Resize(gapped.MinDensity, true)
		if err != nil {
			return err
		}
		replacement.SetLevel(leaf.NodeLevel())
		return e.installSingle(job, replacement)
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
		ln, err := gapped.Build(keys[fn.LeftBoundary:fn.RightBoundary], vals[fn.LeftBoundary:fn.RightBoundary], dims,
			gapped.WithDuplicatesAllowed(allowDup), gapped.WithCostWeights(w1, w2))
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
	spliceLeafRing(leaf, leaves[0], leaves[len(leaves)-1])

	currentDup, _ := parent.DuplicationFactor(job.Slot)
	parentIsSuperroot := parent.NodeLevel() < 0

	// Spec §4.5: "Downward-split chosen when the parent's child range cannot
	// accommodate the new fanout without exceeding the configured max
	// fanout, when the parent is the superroot, or when the chosen fanout
	// depth exceeds the child's duplication factor." A leaf's duplication
	// factor is exactly the spare capacity its own parent slot range holds;
	// split-sideways is only legal when that capacity covers bestLevel.
	if !parentIsSuperroot && currentDup >= bestLevel {
		start := job.Slot
		for i, fn := range nodes {
			dup := currentDup - fn.Level
			span := 1 << uint(dup)
			leaves[i].SetParent(parent)
			leaves[i].SetLevel(leaf.NodeLevel())
			if err := parent.ReplaceRange(start, dup, rnode.Child[P](leaves[i])); err != nil {
				return err
			}
			start += span
		}
	} else {
		childModel := trainChildIndexModel(keys, nodes, bestLevel, dims)
		newNode, err := mnode.New[P](childModel, 1<<uint(bestLevel), keys[0].Clone(), leaf.NodeLevel())
		if err != nil {
			return err
		}
		localStart := 0
		for i, fn := range nodes {
			dup := bestLevel - fn.Level
			span := 1 << uint(dup)
			leaves[i].SetParent(newNode)
			leaves[i].SetLevel(leaf.NodeLevel() + 1)
			if err := newNode.ReplaceRange(localStart, dup, rnode.Child[P](leaves[i])); err != nil {
				return err
			}
			localStart += span
		}
		newNode.SetParent(parent)
		if err := parent.ReplaceRange(job.Slot, currentDup, rnode.Child[P](newNode)); err != nil {
			return err
		}
	}

	e.retireLeaf(leaf)
	return nil
}

// installSingle splices a single replacement leaf into the leaf ring and
// the parent's existing slot range (used by both Expand and the
// expand-in-place outcome of Restructure, which never change parent
// topology — only the leaf's own storage). It only retires the old leaf
// once ReplaceRange has actually published the replacement; a failed
// install (ErrSlotOutOfRange/ErrChildMisaligned) must not free a leaf that
// is still the parent's live child.
func (e *Engine[P]) installSingle(job *Job[P], replacement *gapped.Node[P]) error {
	leaf, parent := job.Leaf, job.Parent
	dup, _ := parent.DuplicationFactor(job.Slot)

	replacement.SetParent(parent)
	spliceLeafRing(leaf, replacement, replacement)

	if err := parent.ReplaceRange(job.Slot, dup, rnode.Child[P](replacement)); err != nil {
		return err
	}
	e.retireLeaf(leaf)
	return nil
}

// spliceLeafRing splices the contiguous run [first, last] into the prev/next
// positions old used to occupy, using the atomic next/prev links so a
// concurrent scan crossing through old picks up the new run instead of a
// stale pointer (spec §4.5 "the prev/next 'pending left/right' fields on the
// old leaf are used to splice in newly created neighbors without blocking
// concurrent scans").
func spliceLeafRing[P any](old, first, last *gapped.Node[P]) {
	prev := old.Prev()
	next := old.Next()
	first.SetPrev(prev)
	last.SetNext(next)
	if prev != nil {
		prev.SetNext(first)
	}
	if next != nil {
		next.SetPrev(last)
	}
}

// retireLeaf releases old's delta buffer references and queues its
// reclamation on the engine's qsbr.Domain, matching spec §5's ownership
// rule: "the parent first publishes the new pointer, then waits for a
// reclamation barrier, then frees the old child." Go's GC reclaims the node
// itself once unreachable; the barrier's job here is to delay releasing the
// delta buffer ref count (and severing the leaf ring pointers) until no
// in-flight reader can still be mid-traversal through the old leaf.
func (e *Engine[P]) retireLeaf(leaf *gapped.Node[P]) {
	primary, shadow := leaf.LeaveDelta()
	release := func() {
		if primary != nil {
			primary.Release()
		}
		if shadow != nil {
			shadow.Release()
		}
		leaf.SetNext(nil)
		leaf.SetPrev(nil)
	}
	if e.Domain == nil {
		release()
		return
	}
	e.Domain.Retire(release)
	e.Domain.Advance()
}

// trainChildIndexModel fits a LinearModel predicting, for each key, the
// slot (in [0, 2^bestLevel)) of the child that owns it — the new ModelNode's
// own model (spec §4.3: "a model node's model predicts a value in
// [0, num_children)"). Every key within a merged node's span is assigned
// that node's starting slot as its target, since duplication-factor
// rounding in mnode.Node.Lookup resolves any prediction inside a node's
// span to the same child regardless of exactly where within the span it
// lands.
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
