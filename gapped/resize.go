package gapped

import (
	"sync/atomic"

	"github.com/katalvlaran/rmindex/model"
)

// Resize rebuilds this leaf's storage at the given target density, merging
// in whatever delta buffers have accumulated, and optionally retraining the
// model (spec §4.2 Resize: "resizes ... to kMinDensity on background
// expansion ... retrains the model if N<50 or if retraining is forced").
// It returns a brand new *Node holding the merged, resized data; the caller
// (the restructuring engine) is responsible for splicing it into the tree
// and retiring the old node under RCU (spec §4.5).
func (n *Node[P]) Resize(targetDensity float64, forceRetrain bool) (*Node[P], error) {
	n.arrMu.RLock()
	dims := n.arr.dims
	oldModel := n.arr.model
	oldCapacity := n.arr.capacity
	n.arrMu.RUnlock()

	keys, vals := n.MergedSorted()

	count := len(keys)
	capacity := capacityFor(count, targetDensity)

	var m *model.LinearModel
	shouldRetrain := forceRetrain || count < RetrainSampleThreshold
	if count == 0 {
		m = model.NewIdentityModel(dims)
	} else if shouldRetrain {
		mb := model.NewModelBuilder(dims)
		for i, k := range keys {
			mb.Add(k, float64(i))
		}
		built, err := mb.Build()
		if err != nil {
			return nil, err
		}
		m = built
		if count > 1 {
			m.Expand(float64(capacity) / float64(count))
		}
	} else {
		m = oldModel.Clone()
		if count > 1 {
			// Re-scale the retained model's slope to the new capacity
			// without resampling: a non-forced resize at or above
			// RetrainSampleThreshold keeps the existing fit.
			m.Expand(float64(capacity) / float64(oldCapacity))
		}
	}

	replacement := &Node[P]{
		arr:                newPlainArray[P](capacity, dims),
		expansionThreshold: int(float64(capacity) * MaxDensity),
		allowDuplicates:    n.allowDuplicates,
		level:              n.level,
		parent:             n.parent,
		costW1:             n.costW1,
		costW2:             n.costW2,
	}
	replacement.arr.model = m
	for i, k := range keys {
		if _, _, _, ok := replacement.arr.place(k, vals[i], n.allowDuplicates); !ok {
			return nil, ErrFull
		}
	}
	replacement.arr.fillGaps()
	atomic.StoreInt64(&replacement.numKeys, int64(count))
	if count > 0 {
		replacement.pivot = keys[0].Clone()
	} else {
		n.arrMu.RLock()
		replacement.pivot = n.pivot
		n.arrMu.RUnlock()
	}

	return replacement, nil
}
