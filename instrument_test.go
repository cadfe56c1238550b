package transitgraph

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithMetricsCountsOutcomes(t *testing.T) {
	runner := newFakeRunner()
	runner.results["degree_centrality"] = rows(scoreKeys, []any{"A", int64(1)})
	runner.errs["fetch_ranked"] = errUnreachable

	metrics := NewMetrics(prometheus.NewRegistry(), "transit")
	adapter := NewAdapter(WithMetrics(runner, ModeBus, metrics))
	ctx := context.Background()

	_, err := adapter.DegreeCentrality(ctx, "BUS")
	require.NoError(t, err)
	_, err = adapter.ShortestPath(ctx, ModeBus, "A", "B")
	require.NoError(t, err)
	_, err = adapter.FetchRanked(ctx, LabelStation)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("BUS", "degree_centrality", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("BUS", "shortest_path_bus", "empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Queries.WithLabelValues("BUS", "fetch_ranked", "query_error")))
}

func TestWithLoggingRecordsQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	runner := newFakeRunner()
	runner.errs["fetch_ranked"] = errUnreachable
	adapter := NewAdapter(WithLogging(runner, ModeLUAS, zap.New(core)))
	ctx := context.Background()

	_, err := adapter.Stations(ctx, "LUAS")
	require.NoError(t, err)
	_, err = adapter.FetchRanked(ctx, LabelStation)
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "Graph query executed", entries[0].Message)
	assert.Equal(t, "stations", entries[0].ContextMap()["query"])
	assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
	assert.Equal(t, "fetch_ranked", entries[1].ContextMap()["query"])

	for _, e := range entries {
		assert.NotContains(t, e.ContextMap(), "params")
	}
}
