package rmindex

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the index's internal counters (spec §4.2/§4.5 per-node
// stats, aggregated) through prometheus.Collector, the same instrumentation
// approach the rest of the domain stack's services use. It is optional: an
// Index built without WithMetrics leaves this nil and every method below is
// a no-op guarded by a nil receiver check.
type Metrics struct {
	lookups    prometheus.Counter
	inserts    prometheus.Counter
	erases     prometheus.Counter
	retryLater prometheus.Counter
	jobsRun    prometheus.Gauge
	jobsFailed prometheus.Gauge
	keyCount   prometheus.Gauge
}

// NewMetrics builds a Metrics registered under the given namespace. Pass
// the result to WithMetrics; register it with a prometheus.Registerer
// separately (the caller owns the registry, matching how a service
// embedding this index already manages its own metrics server).
func NewMetrics(namespace string) *Metrics {
	mk := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Subsystem: "rmindex", Name: name, Help: help})
	}
	mg := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Subsystem: "rmindex", Name: name, Help: help})
	}
	return &Metrics{
		lookups:    mk("lookups_total", "Completed Get calls."),
		inserts:    mk("inserts_total", "Completed Insert calls that stored a key."),
		erases:     mk("erases_total", "Completed Erase calls that removed a key."),
		retryLater: mk("retry_later_total", "Calls that returned ErrRetryLater."),
		jobsRun:    mg("jobs_run", "Cumulative background jobs run, as of the last Stats() call."),
		jobsFailed: mg("jobs_failed", "Cumulative background jobs that returned an error, as of the last Stats() call."),
		keyCount:   mg("keys", "Approximate number of keys currently stored."),
	}
}

// Collectors returns every metric so a caller can register them with a
// prometheus.Registerer in one call: registry.MustRegister(m.Collectors()...).
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.lookups, m.inserts, m.erases, m.retryLater,
		m.jobsRun, m.jobsFailed, m.keyCount,
	}
}

func (m *Metrics) observeLookup() {
	if m != nil {
		m.lookups.Inc()
	}
}

func (m *Metrics) observeInsert() {
	if m != nil {
		m.inserts.Inc()
	}
}

func (m *Metrics) observeErase() {
	if m != nil {
		m.erases.Inc()
	}
}

func (m *Metrics) observeRetryLater() {
	if m != nil {
		m.retryLater.Inc()
	}
}

func (m *Metrics) observeJobs(ran, failed int64) {
	if m == nil {
		return
	}
	m.jobsRun.Set(float64(ran))
	m.jobsFailed.Set(float64(failed))
}

func (m *Metrics) setKeyCount(n int64) {
	if m != nil {
		m.keyCount.Set(float64(n))
	}
}

// WithMetrics attaches a Metrics instance the index updates on every
// operation.
func WithMetrics(m *Metrics) Option {
	return func(c *Config) { c.metrics = m }
}
