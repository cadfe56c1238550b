package transitgraph

import (
	"context"
	"errors"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// loggingRunner logs every query sent through the wrapped runner.
type loggingRunner struct {
	next   DBRunner
	mode   Mode
	logger *zap.Logger
}

// WithLogging decorates runner so each query is logged with its name,
// duration and row count. Query parameters are not logged.
func WithLogging(runner DBRunner, mode Mode, logger *zap.Logger) DBRunner {
	return &loggingRunner{next: runner, mode: mode, logger: logger}
}

func (r *loggingRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	start := time.Now()
	result, err := r.next.Run(ctx, query, params)

	fields := []zap.Field{
		zap.String("mode", string(r.mode)),
		zap.String("query", QueryName(ctx)),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		r.logger.Error("Graph query failed", append(fields, zap.Error(err))...)
		return nil, err
	}
	r.logger.Debug("Graph query executed", append(fields, zap.Int("rows", len(result.Records)))...)
	return result, nil
}

// Metrics holds the prometheus collectors for graph queries.
type Metrics struct {
	Queries  *prometheus.CounterVec
	Duration *prometheus.HistogramVec
	Rows     *prometheus.HistogramVec
}

// NewMetrics creates the query collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	m := &Metrics{
		Queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "graph_queries_total",
				Help:      "Total number of graph queries by mode, query and outcome",
			},
			[]string{"mode", "query", "outcome"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_query_duration_seconds",
				Help:      "Graph query duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode", "query"},
		),
		Rows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "graph_query_rows",
				Help:      "Rows returned per graph query",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"mode", "query"},
		),
	}
	reg.MustRegister(m.Queries, m.Duration, m.Rows)
	return m
}

type metricsRunner struct {
	next    DBRunner
	mode    Mode
	metrics *Metrics
}

// WithMetrics decorates runner so each query is counted and timed.
func WithMetrics(runner DBRunner, mode Mode, metrics *Metrics) DBRunner {
	return &metricsRunner{next: runner, mode: mode, metrics: metrics}
}

func (r *metricsRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	name := QueryName(ctx)
	start := time.Now()
	result, err := r.next.Run(ctx, query, params)
	r.metrics.Duration.WithLabelValues(string(r.mode), name).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case err != nil && errors.Is(classify(name, err), ErrConnection):
		outcome = "connection_error"
	case err != nil:
		outcome = "query_error"
	case len(result.Records) == 0:
		outcome = "empty"
	}
	r.metrics.Queries.WithLabelValues(string(r.mode), name, outcome).Inc()
	if err == nil {
		r.metrics.Rows.WithLabelValues(string(r.mode), name).Observe(float64(len(result.Records)))
	}
	return result, err
}
