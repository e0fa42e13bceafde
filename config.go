package rmindex

// Config bundles the tuning parameters spec §6 lists under "Parameters
// (configuration with enumerated effects)". It is built through functional
// options (Option), the same shape core.GraphOption and matrix's option
// constructors use in the teacher's own packages.
type Config struct {
	// ExpectedInsertFraction is stored in Config only: BulkLoad and
	// fanout.FindBestFanout do not read it, and the bulk-load cost search
	// always weighs shifts with an insert fraction of 0.
	ExpectedInsertFraction float64
	// MaxNodeSizeBytes derives MaxFanout and MaxDataNodeSlots.
	MaxNodeSizeBytes int
	// ApproximateModelComputation is stored in Config only: the index never
	// passes model.WithSampleThreshold to its model builders, so bulk load
	// and restructuring fit every model on all of its samples.
	ApproximateModelComputation bool
	// ApproximateCostComputation enables progressive sampling in the
	// fanout tree's cost estimator. Reserved for a future sampling-aware
	// fanout.FindBestFanout variant; recorded in Config today so callers
	// can already select the policy without an API break later.
	ApproximateCostComputation bool
	// SampleThreshold is the sampling threshold recorded alongside the two
	// approximate-computation flags; no model or cost computation in the
	// index reads it.
	SampleThreshold int
	// DeltaIndexCapacity sizes a leaf's delta buffers; 0 means auto-derive
	// from the leaf's own capacity (spec §6).
	DeltaIndexCapacity int

	// RootMemoryBudget, RootErrorBound, GroupErrorBound,
	// GroupErrorTolerance, BufferSizeBound, BufferCompactThreshold,
	// PartialLenBound, ForwardStep, BackwardStep are fanout-tree and
	// cost-model tuning knobs spec §6 lists by name without assigning CORE
	// behavior beyond "tuning"; they are threaded through to Config so a
	// caller embedding this index can record and report them;
	// fanout.FindBestFanout and the rest of the index read none of them.
	RootMemoryBudget       int
	RootErrorBound         float64
	GroupErrorBound        float64
	GroupErrorTolerance    float64
	BufferSizeBound        int
	BufferCompactThreshold float64
	PartialLenBound        int
	ForwardStep            int
	BackwardStep           int

	// DuplicatesAllowed permits repeated keys (spec §6 insert's
	// DuplicateKey error only fires when this is false).
	DuplicatesAllowed bool
	// WorkerPoolSize is the number of background restructuring goroutines
	// (spec §4.5/§5 background worker pool).
	WorkerPoolSize int
	// JobQueueDepth bounds the background job queue (spec §5 "bounded or
	// unbounded ... FIFO"); when the queue is full Insert submits no job,
	// the leaf goes back to WriteArray, and Insert does not block.
	JobQueueDepth int
	// CostWeightSearch/CostWeightShift are the w1/w2 terms copied into
	// every leaf for gapped.Stats.EmpiricalCost (spec §4.2);
	// fanout.FindBestFanout does not read them and uses fixed weights of 1.
	CostWeightSearch float64
	CostWeightShift  float64

	// metrics is the optional prometheus-backed counters attached via
	// WithMetrics; nil unless the caller opts in.
	metrics *Metrics
}

// DefaultConfig returns the Config NewIndex uses when no Option overrides a
// field — tuned for a moderate in-memory workload, not a specific
// benchmark.
func DefaultConfig() Config {
	return Config{
		ExpectedInsertFraction:      0.0,
		MaxNodeSizeBytes:            4096,
		ApproximateModelComputation: false,
		ApproximateCostComputation:  false,
		SampleThreshold:             100_000,
		DeltaIndexCapacity:          0,
		DuplicatesAllowed:           false,
		WorkerPoolSize:              2,
		JobQueueDepth:               64,
		CostWeightSearch:            1.0,
		CostWeightShift:             1.0,
	}
}

// MaxFanout derives the maximum power-of-two ModelNode fanout from
// MaxNodeSizeBytes: the fanout tree search is capped so a model node's
// children slice never exceeds the configured node size (spec §6
// "max_node_size_bytes derives max_fanout and max_data_node_slots").
func (c Config) MaxFanout() int {
	const childPointerBytes = 16 // interface header: type word + data word
	fanout := c.MaxNodeSizeBytes / childPointerBytes
	return clampPow2(fanout, 2, 1<<16)
}

// MaxDataNodeSlots derives a per-leaf slot budget from MaxNodeSizeBytes
// (spec §6). The index uses it only to set the fanout search's minimum
// keys per leaf (a quarter of it); leaf capacity is not capped by it, and a
// leaf that reaches its expansion threshold is expanded whatever its size.
func (c Config) MaxDataNodeSlots() int {
	const slotBytes = 24 // one Key header + payload + bitmap amortized
	slots := c.MaxNodeSizeBytes / slotBytes
	if slots < 16 {
		slots = 16
	}
	return slots
}

func clampPow2(v, lo, hi int) int {
	if v < lo {
		v = lo
	}
	if v > hi {
		v = hi
	}
	p := 1
	for p < v {
		p <<= 1
	}
	if p > hi {
		p >>= 1
	}
	return p
}

// Option configures a Config at Index construction time.
type Option func(*Config)

// WithExpectedInsertFraction sets ExpectedInsertFraction, which is stored
// but not read by bulk load.
func WithExpectedInsertFraction(f float64) Option {
	return func(c *Config) { c.ExpectedInsertFraction = f }
}

// WithMaxNodeSizeBytes sets the byte budget MaxFanout/MaxDataNodeSlots
// derive from.
func WithMaxNodeSizeBytes(n int) Option {
	return func(c *Config) { c.MaxNodeSizeBytes = n }
}

// WithApproximateModelComputation sets ApproximateModelComputation, which
// is stored but does not switch sampling on in the model builders.
func WithApproximateModelComputation(enabled bool) Option {
	return func(c *Config) { c.ApproximateModelComputation = enabled }
}

// WithApproximateCostComputation toggles progressive sampling in the cost
// estimator.
func WithApproximateCostComputation(enabled bool) Option {
	return func(c *Config) { c.ApproximateCostComputation = enabled }
}

// WithSampleThreshold sets SampleThreshold, which is stored but not read.
func WithSampleThreshold(n int) Option {
	return func(c *Config) { c.SampleThreshold = n }
}

// WithDeltaIndexCapacity sets a fixed delta-buffer capacity; 0 restores
// auto-derivation from the leaf's own capacity.
func WithDeltaIndexCapacity(n int) Option {
	return func(c *Config) { c.DeltaIndexCapacity = n }
}

// WithRootMemoryBudget sets the root-level memory budget tuning knob.
func WithRootMemoryBudget(n int) Option { return func(c *Config) { c.RootMemoryBudget = n } }

// WithRootErrorBound sets the root model's acceptable prediction error.
func WithRootErrorBound(v float64) Option { return func(c *Config) { c.RootErrorBound = v } }

// WithGroupErrorBound sets the intra-group acceptable prediction error.
func WithGroupErrorBound(v float64) Option { return func(c *Config) { c.GroupErrorBound = v } }

// WithGroupErrorTolerance sets how far empirical error may drift from
// GroupErrorBound before a group is rebuilt.
func WithGroupErrorTolerance(v float64) Option {
	return func(c *Config) { c.GroupErrorTolerance = v }
}

// WithBufferSizeBound sets the fanout-tree buffer size tuning knob.
func WithBufferSizeBound(n int) Option { return func(c *Config) { c.BufferSizeBound = n } }

// WithBufferCompactThreshold sets the fanout-tree buffer compaction
// threshold.
func WithBufferCompactThreshold(v float64) Option {
	return func(c *Config) { c.BufferCompactThreshold = v }
}

// WithPartialLenBound sets the fanout-tree partial-partition length bound.
func WithPartialLenBound(n int) Option { return func(c *Config) { c.PartialLenBound = n } }

// WithForwardStep sets the fanout-tree forward search step.
func WithForwardStep(n int) Option { return func(c *Config) { c.ForwardStep = n } }

// WithBackwardStep sets the fanout-tree backward search step.
func WithBackwardStep(n int) Option { return func(c *Config) { c.BackwardStep = n } }

// WithDuplicatesAllowed permits (or forbids) repeated keys.
func WithDuplicatesAllowed(allow bool) Option { return func(c *Config) { c.DuplicatesAllowed = allow } }

// WithWorkerPoolSize sets the number of background restructuring
// goroutines.
func WithWorkerPoolSize(n int) Option { return func(c *Config) { c.WorkerPoolSize = n } }

// WithJobQueueDepth bounds the background job queue.
func WithJobQueueDepth(n int) Option { return func(c *Config) { c.JobQueueDepth = n } }

// WithCostWeights sets the w1/w2 weights copied into each leaf's cost
// model; the fanout tree search does not use them.
func WithCostWeights(search, shift float64) Option {
	return func(c *Config) { c.CostWeightSearch, c.CostWeightShift = search, shift }
}
