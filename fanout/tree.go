package fanout

import (
	"sort"

	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/model"
	"github.com/katalvlaran/rmindex/rmkey"
)

// Node is one candidate partition of the bulk-loaded key run: the span
// [LeftBoundary, RightBoundary) it would cover as a data node, the model
// trained on just that span, and the estimated cost of serving that span as
// a single leaf (spec §4.4 FanoutTreeNode; original_source/alex/
// alex_fanout_tree.h's FTNode).
type Node struct {
	Level         int
	Index         int // position within its level, 0-based
	LeftBoundary  int
	RightBoundary int
	NumKeys       int
	Cost          float64
	Model         *model.LinearModel
	Use           bool
}

// costWeights bundles the EmpiricalCost weights used to judge a leaf
// candidate's expected gapped-array search/shift cost, matching the w1/w2
// terms gapped.Stats.EmpiricalCost compares against.
type costWeights struct {
	w1, w2          float64
	insertFraction  float64
}

func defaultCostWeights() costWeights {
	return costWeights{w1: 1.0, w2: 1.0, insertFraction: 0}
}

// expectedLeafCost estimates the gapped-array cost of serving keys[lo:hi]
// as a single data node: it trains a throwaway model on the span (exactly
// the model gapped.Build would train), then scores expected search
// iterations (log2 of the span, an exponential-search estimate) and
// expected shifts-per-insert (approximated as 1/(1-InitDensity))
// through the same weighted formula gapped.Stats.EmpiricalCost uses.
func expectedLeafCost(keys []rmkey.Key, lo, hi int, dims int, cw costWeights) (*model.LinearModel, float64) {
	n := hi - lo
	mb := model.NewModelBuilder(dims)
	for i := lo; i < hi; i++ {
		mb.Add(keys[i], float64(i-lo))
	}
	var m *model.LinearModel
	if n == 0 {
		m = model.NewIdentityModel(dims)
	} else {
		built, err := mb.Build()
		if err != nil {
			m = model.NewIdentityModel(dims)
		} else {
			m = built
		}
	}

	if n == 0 {
		return m, NodeLookupWeight
	}

	expectedSearchIters := log2Ceil(n)
	expectedShifts := 1.0 / (1.0 - gapped.InitDensity)

	stats := gapped.Stats{
		ExpectedSearchIters:     expectedSearchIters,
		ExpectedShiftsPerInsert: expectedShifts,
	}
	cost := cw.w1*stats.ExpectedSearchIters + cw.w2*stats.ExpectedShiftsPerInsert*cw.insertFraction
	return m, cost
}

func log2Ceil(n int) float64 {
	if n <= 1 {
		return 0
	}
	bits := 0
	v := n - 1
	for v > 0 {
		v >>= 1
		bits++
	}
	return float64(bits)
}

// boundaryForChild returns the smallest index >= lo such that the level
// model predicts a slot greater than target, used to carve the sorted key
// run into fanout contiguous spans the same way alex_fanout_tree.h's
// compute_level binary-searches for each child's right boundary.
func boundaryForChild(keys []rmkey.Key, lo, hi int, levelModel *model.LinearModel, target int) int {
	left, right := lo, hi
	for left < right {
		mid := left + (right-left)/2
		predicted := int(levelModel.Predict(keys[mid]))
		if predicted <= target {
			left = mid + 1
		} else {
			right = mid
		}
	}
	return left
}

// computeLevel partitions [0, len(keys)) into exactly `fanout` contiguous,
// non-empty spans using a model trained on the whole run and scaled to the
// fanout's output range, then costs each span as a standalone leaf plus one
// shared traversal-cost term (alex_fanout_tree.h's compute_level).
func computeLevel(keys []rmkey.Key, level, fanout, dims, totalKeys int, basicModel *model.LinearModel, cw costWeights) ([]Node, float64) {
	numKeys := len(keys)
	levelModel := basicModel.Clone()
	levelModel.Expand(float64(fanout))

	nodes := make([]Node, 0, fanout)
	totalCost := 0.0
	leftBoundary := 0

	for i := 0; i < fanout; i++ {
		var rightBoundary int
		if i == fanout-1 {
			rightBoundary = numKeys
		} else {
			rightBoundary = boundaryForChild(keys, leftBoundary, numKeys, levelModel, i)
		}
		if leftBoundary == rightBoundary {
			rightBoundary++
		}
		if numKeys-rightBoundary < fanout-i-1 {
			// Not enough keys left for one each in the remaining children;
			// give each remaining child exactly one key.
			rightBoundary = numKeys - (fanout - i - 1)
			m, cost := expectedLeafCost(keys, leftBoundary, rightBoundary, dims, cw)
			nodes = append(nodes, Node{Level: level, Index: i, LeftBoundary: leftBoundary, RightBoundary: rightBoundary, NumKeys: rightBoundary - leftBoundary, Cost: cost, Model: m})
			totalCost += cost * float64(rightBoundary-leftBoundary) / float64(numKeys)

			for j := i + 1; j < fanout; j++ {
				lb := rightBoundary
				rb := lb + 1
				m, cost := expectedLeafCost(keys, lb, rb, dims, cw)
				nodes = append(nodes, Node{Level: level, Index: j, LeftBoundary: lb, RightBoundary: rb, NumKeys: rb - lb, Cost: cost, Model: m})
				totalCost += cost * float64(rb-lb) / float64(numKeys)
				rightBoundary = rb
			}
			break
		}

		m, cost := expectedLeafCost(keys, leftBoundary, rightBoundary, dims, cw)
		nodes = append(nodes, Node{Level: level, Index: i, LeftBoundary: leftBoundary, RightBoundary: rightBoundary, NumKeys: rightBoundary - leftBoundary, Cost: cost, Model: m})
		totalCost += cost * float64(rightBoundary-leftBoundary) / float64(numKeys)
		leftBoundary = rightBoundary
	}

	traversalCost := NodeLookupWeight + ModelSizeWeight*float64(fanout)*EstimatedChildOverheadBytes*float64(totalKeys)/float64(numKeys)
	totalCost += traversalCost
	return nodes, totalCost
}

// FindBestFanout searches fanouts 2, 4, 8, ... up to maxFanout for the
// cheapest way to partition keys, stopping once cost has strictly
// increased MaxConsecutiveCostIncreases levels in a row and falling back to
// the best level seen (spec §4.4; alex_fanout_tree.h's
// find_best_fanout_bottom_up). minKeysPerLeaf bounds how small a fanout's
// per-child share may get before the search refuses to go deeper. Returns
// the winning level's nodes (each a contiguous leaf-sized span) after
// merging siblings back upward wherever that does not increase cost.
func FindBestFanout(keys []rmkey.Key, dims, maxFanout, minKeysPerLeaf int) ([]Node, float64) {
	cw := defaultCostWeights()
	numKeys := len(keys)

	basicModel := trainBasicModel(keys, dims)

	levels := make([][]Node, 1)
	rootCost := NodeLookupWeight
	levels[0] = []Node{{Level: 0, Index: 0, LeftBoundary: 0, RightBoundary: numKeys, NumKeys: numKeys, Cost: rootCost, Use: true, Model: basicModel}}

	costs := []float64{rootCost}
	bestLevel := 0
	bestCost := rootCost

	increasingStreak := 0
	for fanout, level := 2, 1; fanout <= maxFanout && numKeys/fanout > minKeysPerLeaf; fanout, level = fanout*2, level+1 {
		nodes, cost := computeLevel(keys, level, fanout, dims, numKeys, basicModel, cw)
		costs = append(costs, cost)
		levels = append(levels, nodes)

		if len(costs) >= 2 && costs[len(costs)-1] > costs[len(costs)-2] {
			increasingStreak++
			if increasingStreak >= MaxConsecutiveCostIncreases {
				break
			}
		} else {
			increasingStreak = 0
		}

		if cost < bestCost {
			bestCost = cost
			bestLevel = level
		}
	}

	if bestLevel > 0 {
		levels[0][0].Use = false
	}
	for i := range levels[bestLevel] {
		levels[bestLevel][i].Use = true
	}

	bestCost = mergeUpwards(bestLevel, bestCost, numKeys, numKeys, levels, cw)

	return collectUsed(levels, bestLevel), bestCost
}

func trainBasicModel(keys []rmkey.Key, dims int) *model.LinearModel {
	n := len(keys)
	if n == 0 {
		return model.NewIdentityModel(dims)
	}
	mb := model.NewModelBuilder(dims)
	denom := float64(n - 1)
	if denom <= 0 {
		denom = 1
	}
	for i, k := range keys {
		mb.Add(k, float64(i)/denom)
	}
	m, err := mb.Build()
	if err != nil {
		return model.NewIdentityModel(dims)
	}
	return m
}

// mergeUpwards collapses sibling pairs at a level back into their parent
// span whenever doing so would not increase total cost, walking from
// startLevel up to level 1 (alex_fanout_tree.h's merge_nodes_upwards).
func mergeUpwards(startLevel int, bestCost float64, numKeys, totalKeys int, levels [][]Node, cw costWeights) float64 {
	for level := startLevel; level >= 1; level-- {
		levelFanout := 1 << uint(level)
		mergedAny := false
		for i := 0; i < levelFanout/2; i++ {
			leftIdx, rightIdx := 2*i, 2*i+1
			if rightIdx >= len(levels[level]) || !levels[level][leftIdx].Use || !levels[level][rightIdx].Use {
				continue
			}
			parentIdx := i
			if parentIdx >= len(levels[level-1]) {
				continue
			}
			parent := &levels[level-1][parentIdx]
			left := &levels[level][leftIdx]
			right := &levels[level][rightIdx]

			if left.LeftBoundary != parent.LeftBoundary || right.RightBoundary != parent.RightBoundary {
				continue
			}
			numNodeKeys := parent.NumKeys
			if numNodeKeys == 0 {
				continue
			}
			savings := (left.Cost*float64(left.NumKeys)/float64(numNodeKeys) +
				right.Cost*float64(right.NumKeys)/float64(numNodeKeys) -
				parent.Cost +
				ModelSizeWeight*EstimatedChildOverheadBytes*float64(totalKeys)/float64(numNodeKeys))
			if savings >= 0 {
				left.Use = false
				right.Use = false
				parent.Use = true
				bestCost -= savings * float64(numNodeKeys) / float64(numKeys)
				mergedAny = true
			}
		}
		if !mergedAny {
			break
		}
	}
	return bestCost
}

func collectUsed(levels [][]Node, maxLevel int) []Node {
	if maxLevel >= len(levels) {
		maxLevel = len(levels) - 1
	}
	var used []Node
	for i := 0; i <= maxLevel; i++ {
		for _, n := range levels[i] {
			if n.Use {
				used = append(used, n)
			}
		}
	}
	sort.Slice(used, func(i, j int) bool { return used[i].LeftBoundary < used[j].LeftBoundary })
	return used
}
