package reasoner

import "github.com/prometheus/client_golang/prometheus"

// Metrics wraps the Prometheus collectors the reasoner exposes (spec
// Section 4.9 / C10). A nil-safe no-op instance (noopMetrics) is used when
// no metrics are wired, so call sites never need a nil check.
type Metrics struct {
	nodesCreated *prometheus.CounterVec
	answers      prometheus.Counter
	terminations *prometheus.CounterVec
	aborts       prometheus.Counter
	poolInFlight prometheus.Gauge
}

// NewMetrics registers a fresh set of collectors on reg and returns a
// Metrics ready to pass to WithMetrics. Panics if reg already has
// collectors under the same names, matching client_golang's own
// registration semantics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		nodesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reasoner",
			Name:      "nodes_created_total",
			Help:      "Nodes created in the actor graph, by kind.",
		}, []string{"kind"}),
		answers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reasoner",
			Name:      "answers_produced_total",
			Help:      "Answer and Conclusion records appended across all nodes.",
		}),
		terminations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reasoner",
			Name:      "node_terminations_total",
			Help:      "Node completions, partitioned by how the node ended.",
		}, []string{"reason"}),
		aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reasoner",
			Name:      "aborts_total",
			Help:      "Times a registry recorded a fatal error and stopped the graph.",
		}),
		poolInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "reasoner",
			Name:      "pool_in_flight",
			Help:      "Tasks currently executing on the actor pool.",
		}),
	}
	reg.MustRegister(m.nodesCreated, m.answers, m.terminations, m.aborts, m.poolInFlight)
	return m
}

func (m *Metrics) nodeCreated(kind string) {
	if m == nil {
		return
	}
	m.nodesCreated.WithLabelValues(kind).Inc()
}

func (m *Metrics) answerProduced() {
	if m == nil {
		return
	}
	m.answers.Inc()
}

func (m *Metrics) nodeTerminated(reason string) {
	if m == nil {
		return
	}
	m.terminations.WithLabelValues(reason).Inc()
}

func (m *Metrics) abort() {
	if m == nil {
		return
	}
	m.aborts.Inc()
}

// setPoolInFlight reports the actor pool's current in-flight task count.
// NodeRegistry.ReportPoolStats forwards actorpool.Pool.Stats().InFlight
// here; the reasoner package never polls it on a schedule of its own.
func (m *Metrics) setPoolInFlight(n int64) {
	if m == nil {
		return
	}
	m.poolInFlight.Set(float64(n))
}

func noopMetrics() *Metrics { return nil }
