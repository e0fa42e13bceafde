package restructure

import (
	"github.com/katalvlaran/rmindex/gapped"
	"github.com/katalvlaran/rmindex/mnode"
)

// Kind tags the two background task shapes spec §3's TrainingJob admits.
type Kind int

const (
	// JobExpand builds a replacement leaf at MinDensity, retraining or
	// rescaling its model, and installs it over the same parent slot range,
	// leaving the parent's layout unchanged (spec §4.5 "Expand").
	JobExpand Kind = iota
	// JobRestructure runs the fanout-tree search over the leaf's merged
	// key stream and decides among expand-in-place, split-sideways, and
	// split-downwards (spec §4.5 "Restructure").
	JobRestructure
)

// String implements fmt.Stringer for diagnostics.
func (k Kind) String() string {
	if k == JobRestructure {
		return "restructure"
	}
	return "expand"
}

// Job is one TrainingJob: the background task a foreground insert enqueues
// when it observes InsertNeedsExpand or InsertNeedsRestructure
// (spec §3 TrainingJob: "enqueued only while holding the leaf's insert
// mutex"). The enqueuing side is responsible for holding that mutex at
// enqueue time; Job itself carries only the immutable addressing the
// worker needs to locate and replace the leaf.
type Job[P any] struct {
	Kind Kind

	Leaf   *gapped.Node[P]
	Parent *mnode.Node[P]
	Slot   int // Leaf's slot within Parent's children, at enqueue time

	Dims int
}
