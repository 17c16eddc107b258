package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/goodnatureofminers/txancestry-backend/internal/ancestry/graph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	traversalTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "traversal",
		Name:      "builds_total",
		Help:      "Count of ancestry graph builds.",
	}, []string{"status"})

	traversalDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "traversal",
		Name:      "build_duration_seconds",
		Help:      "Duration of ancestry graph builds.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms..~80s
	}, []string{"status"})

	traversalNodes = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "traversal",
		Name:      "nodes",
		Help:      "Number of nodes in successfully built graphs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14), // 1..8192
	})

	traversalEdges = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "traversal",
		Name:      "edges",
		Help:      "Number of edges in successfully built graphs.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})

	traversalSkippedEdges = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "traversal",
		Name:      "skipped_edges_total",
		Help:      "Count of inputs that did not produce an edge.",
	})
)

// Traversal tracks metrics for the graph builder.
type Traversal struct{}

// NewTraversal constructs a metrics collector for graph builds.
func NewTraversal() *Traversal {
	return &Traversal{}
}

// ObserveBuild records one build outcome with the size of the resulting graph.
func (Traversal) ObserveBuild(err error, nodes, edges, notices int, started time.Time) {
	status := traversalStatus(err)
	traversalTotal.WithLabelValues(status).Inc()
	traversalDuration.WithLabelValues(status).Observe(time.Since(started).Seconds())
	if err != nil {
		return
	}
	traversalNodes.Observe(float64(nodes))
	traversalEdges.Observe(float64(edges))
	traversalSkippedEdges.Add(float64(notices))
}

func traversalStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, graph.ErrRootNotFound):
		return "root_not_found"
	case errors.Is(err, graph.ErrBudgetExceeded):
		return "budget_exceeded"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
