package gapped

import (
	"sync/atomic"

	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
)

// Option configures a Node at construction time.
type Option func(*buildConfig)

type buildConfig struct {
	allowDuplicates    bool
	expansionThreshold float64 // fraction of capacity
	costW1, costW2     float64
}

func defaultBuildConfig() buildConfig {
	return buildConfig{
		allowDuplicates:    false,
		expansionThreshold: MaxDensity,
		costW1:             1.0,
		costW2:             1.0,
	}
}

// WithDuplicatesAllowed permits repeated keys in this node.
func WithDuplicatesAllowed(allow bool) Option {
	return func(c *buildConfig) { c.allowDuplicates = allow }
}

// WithExpansionDensity sets the density (fraction of capacity filled) at
// which Insert reports InsertNeedsExpand.
func WithExpansionDensity(d float64) Option {
	return func(c *buildConfig) { c.expansionThreshold = d }
}

// WithCostWeights sets the w1/w2 weights EmpiricalCost uses.
func WithCostWeights(w1, w2 float64) Option {
	return func(c *buildConfig) { c.costW1, c.costW2 = w1, w2 }
}

func capacityFor(n int, density float64) int {
	if density <= 0 {
		density = InitDensity
	}
	c := int(float64(n) / density)
	if c <= n {
		c = n + 1
	}
	if c < 1 {
		c = 1
	}
	return c
}

// Build constructs a fresh DataNode from a sorted run of (key, payload)
// pairs — the bulk-load path used both by the index's top-level BulkLoad
// and by the restructuring engine when it builds replacement leaves
// (spec §4.2, §4.5). keys must already be sorted ascending.
func Build[P any](keys []rmkey.Key, payloads []P, dims int, opts ...Option) (*Node[P], error) {
	cfg := defaultBuildConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	n := len(keys)
	capacity := capacityFor(n, InitDensity)

	mb := model.NewModelBuilder(dims)
	for i, k := range keys {
		mb.Add(k, float64(i))
	}
	var m *model.LinearModel
	if n == 0 {
		m = model.NewIdentityModel(dims)
	} else {
		var err error
		m, err = mb.Build()
		if err != nil {
			return nil, err
		}
		if n > 1 {
			m.Expand(float64(capacity) / float64(n))
		}
	}

	node := &Node[P]{
		arr:                newPlainArray[P](capacity, dims),
		allowDuplicates:    cfg.allowDuplicates,
		expansionThreshold: int(float64(capacity) * cfg.expansionThreshold),
		costW1:             cfg.costW1,
		costW2:             cfg.costW2,
	}
	node.arr.model = m

	for i, k := range keys {
		if _, _, _, ok := node.arr.place(k, payloads[i], cfg.allowDuplicates); !ok {
			return nil, ErrFull
		}
	}
	node.arr.fillGaps()
	atomic.StoreInt64(&node.numKeys, int64(n))
	if n > 0 {
		node.pivot = keys[0].Clone()
	}
	return node, nil
}

// Find implements find_key (spec §4.2): a bounded binary search over the
// model-predicted error window, falling back to the whole array when the
// recorded error bounds have crossed (err_min > err_max). It only searches
// this node's main array; callers needing delta-buffer fallback use
// FindWithDelta.
func (n *Node[P]) Find(key rmkey.Key) (P, bool) {
	n.arrMu.RLock()
	defer n.arrMu.RUnlock()

	idx := n.arr.findIndex(key)
	var zero P
	if idx < 0 {
		return zero, false
	}
	return n.arr.payloads[idx], true
}
