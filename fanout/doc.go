// Package fanout implements the bottom-up fanout tree search used both at
// bulk-load time and when an existing leaf needs to split (spec §4.4). It
// decides how many children a new ModelNode should have — and which run of
// sorted keys each child covers — by costing out successive power-of-two
// fanouts and keeping the cheapest, then merging sibling pairs back upward
// wherever doing so does not increase cost.
//
// Weight constants and the node/traversal cost formula are grounded on
// original_source/alex/alex_base.h's kNodeLookupsWeight (20) and
// kModelSizeWeight (5e-7), and alex_fanout_tree.h's compute_level /
// find_best_fanout_bottom_up / merge_nodes_upwards.
package fanout

// NodeLookupWeight is the fixed cost charged for one extra tree-traversal
// hop (original_source/alex/alex_base.h's kNodeLookupsWeight).
const NodeLookupWeight = 20.0

// ModelSizeWeight scales the per-child in-memory model/pointer overhead
// against the total key count (original_source/alex/alex_base.h's
// kModelSizeWeight).
const ModelSizeWeight = 5e-7

// EstimatedChildOverheadBytes approximates the combined size of one
// ModelNode-held child pointer plus its LinearModel, standing in for the
// original's sizeof(AlexDataNode<T,P>) + sizeof(void*) in the traversal-cost
// term — this implementation does not track a node's true memory footprint,
// so a fixed estimate is used instead.
const EstimatedChildOverheadBytes = 64.0

// MaxConsecutiveCostIncreases is how many levels in a row may get strictly
// more expensive before the bottom-up search gives up and keeps the best
// level seen so far (alex_fanout_tree.h stops after two increases in a row).
const MaxConsecutiveCostIncreases = 2
