package reasoner

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrii-ubskii/typedb/internal/actorpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.nodeCreated("retrievable")
		m.answerProduced()
		m.nodeTerminated("done")
		m.abort()
		m.setPoolInFlight(3)
	})
}

func TestMetricsNodeTerminatedCountsByReason(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.nodeTerminated("done")
	m.nodeTerminated("done")
	m.nodeTerminated("terminate_scc")

	require.Equal(t, float64(2), testutil.ToFloat64(m.terminations.WithLabelValues("done")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.terminations.WithLabelValues("terminate_scc")))
}

func TestOnTerminationReportsNodeTerminated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	pool := actorpool.NewPool(4)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	registry := NewNodeRegistry(pool, WithMetrics(m))
	node := newTestNode(t, registry, "retrievable")

	node.Driver().Execute(node.onTermination)
	eventually(t, func() bool {
		return testutil.ToFloat64(m.terminations.WithLabelValues("done")) == 1
	})
}

func TestReportPoolStatsFeedsGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	pool := actorpool.NewPool(2)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(ctx)
	})
	registry := NewNodeRegistry(pool, WithMetrics(m))

	registry.ReportPoolStats()
	require.Equal(t, float64(0), testutil.ToFloat64(m.poolInFlight), "idle pool reports zero in-flight")
}
