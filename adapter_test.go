package transitgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

var scoreKeys = []string{"name", "score"}

func TestDegreeCentralityOrdersByScore(t *testing.T) {
	runner := newFakeRunner()
	runner.results["degree_centrality"] = rows(scoreKeys,
		[]any{"A", int64(2)},
		[]any{"B", int64(5)},
	)
	adapter := NewAdapter(runner)

	got, err := adapter.DegreeCentrality(context.Background(), "BUS")
	require.NoError(t, err)
	assert.Equal(t, []models.ScoreRow{{Name: "B", Score: 5}, {Name: "A", Score: 2}}, got)

	call, ok := runner.lastCall("degree_centrality")
	require.True(t, ok)
	assert.Equal(t, "BUS", call.params["category"])
	assert.Contains(t, call.query, "CONNECTED_BY_ROUTE")
	assert.NotContains(t, call.query, "BUS")
}

func TestDegreeCentralityScoresAreWholeCounts(t *testing.T) {
	runner := newFakeRunner()
	runner.results["degree_centrality"] = rows(scoreKeys, []any{"Heuston", int64(1) << 40})
	adapter := NewAdapter(runner)

	got, err := adapter.DegreeCentrality(context.Background(), "BUS")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, float64(int64(1)<<40), got[0].Score)
	assert.Equal(t, int64(1)<<40, int64(got[0].Score))
}

func TestDegreeCentralityUnknownCategoryIsEmpty(t *testing.T) {
	adapter := NewAdapter(newFakeRunner())

	got, err := adapter.DegreeCentrality(context.Background(), "TRAM")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDegreeCentralityTieBreakAndOrdering(t *testing.T) {
	runner := newFakeRunner()
	runner.results["degree_centrality"] = rows(scoreKeys,
		[]any{"Tara Street", int64(3)},
		[]any{"Connolly", int64(7)},
		[]any{"Pearse", int64(3)},
		[]any{"Howth", int64(1)},
	)
	adapter := NewAdapter(runner)

	got, err := adapter.DegreeCentralityBy(context.Background(), "DART", RelConnectedByLine)
	require.NoError(t, err)

	names := make([]string, 0, len(got))
	for i, row := range got {
		names = append(names, row.Name)
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Score, row.Score)
		}
	}
	assert.Equal(t, []string{"Connolly", "Pearse", "Tara Street", "Howth"}, names)
}

func TestDegreeCentralityRejectsUnknownRelationship(t *testing.T) {
	runner := newFakeRunner()
	adapter := NewAdapter(runner)

	_, err := adapter.DegreeCentralityBy(context.Background(), "BUS", "KNOWS]->() DETACH DELETE s //")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, runner.callNames())
}

var hostileNames = []string{
	`Connolly"}) DETACH DELETE n //`,
	`Pearse'}) RETURN 1 AS path, 0 AS totalDistance //`,
	"{name: 'x'}",
}

func TestShortestPathBindsStationNames(t *testing.T) {
	for _, mode := range Modes {
		for _, name := range hostileNames {
			runner := newFakeRunner()
			adapter := NewAdapter(runner)

			_, err := adapter.ShortestPath(context.Background(), mode, name, "Bray")
			require.NoError(t, err)

			call, ok := runner.lastCall("shortest_path_" + lower(mode))
			require.True(t, ok, "mode %s", mode)
			assert.NotContains(t, call.query, name)
			assert.Equal(t, name, call.params["start"])
			assert.Equal(t, "Bray", call.params["end"])
		}
	}
}

func TestSameStationLookupsBindNames(t *testing.T) {
	for _, name := range hostileNames {
		runner := newFakeRunner()
		adapter := NewAdapter(runner)

		_, err := adapter.ShortestPath(context.Background(), ModeLUAS, name, name)
		require.NoError(t, err)
		call, ok := runner.lastCall("station_in_category")
		require.True(t, ok)
		assert.NotContains(t, call.query, name)
		assert.Equal(t, name, call.params["name"])

		_, err = adapter.FindStation(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound)
		call, ok = runner.lastCall("find_Station")
		require.True(t, ok)
		assert.NotContains(t, call.query, name)
		assert.Contains(t, paramValues(call.params), name)
	}
}

func paramValues(params map[string]any) []any {
	values := make([]any, 0, len(params))
	for _, v := range params {
		values = append(values, v)
	}
	return values
}

func TestShortestPathModeSpecificQueries(t *testing.T) {
	tests := []struct {
		mode Mode
		rel  string
		algo string
	}{
		{ModeBus, RelConnectedByRoute, "shortestPath("},
		{ModeDART, RelConnectedByLine, "LIMIT $limit"},
		{ModeLUAS, RelConnectedTo, "allShortestPaths("},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			q, err := ShortestPathQuery(tt.mode, "a", "b", DefaultPathSearch)
			require.NoError(t, err)
			assert.Contains(t, q.Text, tt.rel)
			assert.Contains(t, q.Text, tt.algo)
			assert.Contains(t, q.Text, "AS path")
			assert.Contains(t, q.Text, "AS totalDistance")
		})
	}
}

func TestShortestPathDecodesCandidates(t *testing.T) {
	runner := newFakeRunner()
	runner.results["shortest_path_dart"] = rows([]string{"path", "totalDistance"},
		[]any{[]any{"Pearse", "Tara Street", "Connolly"}, 2.4},
		[]any{[]any{"Pearse", "Grand Canal Dock", "Lansdowne Road", "Connolly"}, 5.0},
	)
	adapter := NewAdapter(runner, WithPathSearch(PathSearch{MaxDepth: 6, Limit: 2}))

	got, err := adapter.ShortestPath(context.Background(), ModeDART, "Pearse", "Connolly")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Pearse", "Tara Street", "Connolly"}, got[0].Path)
	assert.Equal(t, 2.4, got[0].TotalDistance)
	assert.Equal(t, 2, got[0].Hops())

	call, _ := runner.lastCall("shortest_path_dart")
	assert.Contains(t, call.query, "*1..6]")
	assert.Equal(t, int64(2), call.params["limit"])
}

func TestShortestPathSameStationIsZeroLengthPath(t *testing.T) {
	runner := newFakeRunner()
	runner.results["station_in_category"] = rows([]string{"name"}, []any{"Connolly"})
	adapter := NewAdapter(runner)

	got, err := adapter.ShortestPath(context.Background(), ModeDART, "Connolly", "Connolly")
	require.NoError(t, err)
	assert.Equal(t, []models.PathRow{{Path: []string{"Connolly"}, TotalDistance: 0}}, got)
	assert.Equal(t, []string{"station_in_category"}, runner.callNames())

	call, _ := runner.lastCall("station_in_category")
	assert.Equal(t, "DART", call.params["category"])
	assert.Equal(t, "Connolly", call.params["name"])
	assert.Contains(t, call.query, "HAS_STATION")
}

func TestShortestPathSameStationOfAnotherModeIsEmpty(t *testing.T) {
	// Abbey Street is a LUAS stop: the DART category does not own it, so
	// the lookup scoped to DART finds nothing.
	runner := newFakeRunner()
	runner.results["find_Station"] = rows([]string{"n"}, []any{stationNode("4:s:7", "Abbey Street")})
	adapter := NewAdapter(runner)

	got, err := adapter.ShortestPath(context.Background(), ModeDART, "Abbey Street", "Abbey Street")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{"station_in_category"}, runner.callNames())

	call, _ := runner.lastCall("station_in_category")
	assert.Equal(t, "DART", call.params["category"])
}

func TestShortestPathSameUnknownStationIsEmpty(t *testing.T) {
	runner := newFakeRunner()
	adapter := NewAdapter(runner)

	got, err := adapter.ShortestPath(context.Background(), ModeLUAS, "Nowhere", "Nowhere")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestShortestPathUnknownStationIsEmpty(t *testing.T) {
	adapter := NewAdapter(newFakeRunner())

	got, err := adapter.ShortestPath(context.Background(), ModeBus, "Nonexistent Station", "Heuston")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPageRankWritesThenDropsProjection(t *testing.T) {
	runner := newFakeRunner()
	runner.results["pagerank_write"] = rows([]string{"nodePropertiesWritten", "ranIterations", "didConverge"},
		[]any{int64(3), int64(14), true},
	)
	adapter := NewAdapter(runner, WithPageRank(PageRankOptions{MaxIterations: 30, DampingFactor: 0.9}))

	summary, err := adapter.PageRank(context.Background(), LabelStation, RelConnectedTo)
	require.NoError(t, err)
	assert.Equal(t, models.PageRankSummary{NodesWritten: 3, Iterations: 14, Converged: true}, summary)
	assert.Equal(t, []string{"pagerank_drop", "pagerank_project", "pagerank_write", "pagerank_drop"}, runner.callNames())

	project, _ := runner.lastCall("pagerank_project")
	assert.Equal(t, "Station", project.params["nodeProjection"])
	assert.Equal(t, map[string]any{"CONNECTED_TO": map[string]any{"orientation": "UNDIRECTED"}}, project.params["relationshipProjection"])

	write, _ := runner.lastCall("pagerank_write")
	assert.Equal(t, int64(30), write.params["maxIterations"])
	assert.Equal(t, 0.9, write.params["dampingFactor"])
}

func TestPageRankDropsProjectionWhenWriteFails(t *testing.T) {
	runner := newFakeRunner()
	runner.errs["pagerank_write"] = &neo4j.Neo4jError{Code: "Neo.ClientError.Procedure.ProcedureCallFailed", Msg: "out of memory"}
	adapter := NewAdapter(runner)

	_, err := adapter.PageRank(context.Background(), LabelRoute, RelConnectedByRoute)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuery)

	names := runner.callNames()
	assert.Equal(t, "pagerank_drop", names[len(names)-1])
}

func TestPageRankReportsDropFailureAfterWrite(t *testing.T) {
	runner := newFakeRunner()
	runner.results["pagerank_write"] = rows([]string{"nodePropertiesWritten", "ranIterations", "didConverge"},
		[]any{int64(3), int64(14), true},
	)
	dropErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Procedure.ProcedureCallFailed", Msg: "graph is in use"}
	runner.nthErrs["pagerank_drop"] = map[int]error{2: dropErr}
	adapter := NewAdapter(runner)

	_, err := adapter.PageRank(context.Background(), LabelStation, RelConnectedTo)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuery)
	assert.ErrorIs(t, err, dropErr)
	assert.Equal(t, []string{"pagerank_drop", "pagerank_project", "pagerank_write", "pagerank_drop"}, runner.callNames())
}

func TestPageRankWriteFailureWinsOverDropFailure(t *testing.T) {
	runner := newFakeRunner()
	writeErr := &neo4j.Neo4jError{Code: "Neo.ClientError.Procedure.ProcedureCallFailed", Msg: "out of memory"}
	runner.errs["pagerank_write"] = writeErr
	runner.nthErrs["pagerank_drop"] = map[int]error{2: errors.New("drop failed")}
	adapter := NewAdapter(runner)

	_, err := adapter.PageRank(context.Background(), LabelStation, RelConnectedTo)
	assert.ErrorIs(t, err, writeErr)
}

func TestPageRankRejectsUnknownLabel(t *testing.T) {
	runner := newFakeRunner()
	adapter := NewAdapter(runner)

	_, err := adapter.PageRank(context.Background(), "Station) DETACH DELETE (n", RelConnectedTo)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, runner.callNames())
}

func TestPageRankThenFetchRankedReturnsEveryStation(t *testing.T) {
	runner := newFakeRunner()
	runner.results["pagerank_write"] = rows([]string{"nodePropertiesWritten", "ranIterations", "didConverge"},
		[]any{int64(3), int64(20), false},
	)
	runner.results["fetch_ranked"] = rows(scoreKeys,
		[]any{"Abbey Street", 0.41},
		[]any{"Busáras", 1.37},
		[]any{"Connolly", 0.95},
	)
	adapter := NewAdapter(runner)
	ctx := context.Background()

	_, err := adapter.PageRank(ctx, LabelStation, RelConnectedTo)
	require.NoError(t, err)

	ranked, err := adapter.FetchRanked(ctx, LabelStation)
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Busáras", ranked[0].Name)
	for _, row := range ranked {
		assert.NotZero(t, row.Score, row.Name)
	}

	call, _ := runner.lastCall("fetch_ranked")
	assert.Equal(t, "Station", call.params["label"])
}

func TestFetchRankedIsRepeatable(t *testing.T) {
	runner := newFakeRunner()
	runner.results["fetch_ranked"] = rows(scoreKeys,
		[]any{"Route 46A", 0.7},
		[]any{"Route 16", 0.7},
		[]any{"Route 39", 1.2},
	)
	adapter := NewAdapter(runner)
	ctx := context.Background()

	first, err := adapter.FetchRanked(ctx, LabelRoute)
	require.NoError(t, err)
	second, err := adapter.FetchRanked(ctx, LabelRoute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "Route 39", first[0].Name)
	assert.Equal(t, "Route 16", first[1].Name)
}

func TestExecuteClassifiesFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"bad credentials", &neo4j.Neo4jError{Code: "Neo.ClientError.Security.Unauthorized", Msg: "bad credentials"}, ErrConnection},
		{"syntax error", &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "invalid input"}, ErrQuery},
		{"cancelled", context.Canceled, ErrQuery},
		{"other", errors.New("boom"), ErrQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.errs["adhoc"] = tt.err
			adapter := NewAdapter(runner)

			_, err := adapter.Execute(context.Background(), "RETURN 1", nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)

			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, "adhoc", qe.Query)
		})
	}
}

func TestExecuteReturnsRecordsAsMaps(t *testing.T) {
	runner := newFakeRunner()
	runner.results["adhoc"] = rows([]string{"name", "zone"}, []any{"Ranelagh", "Zone 2"})
	adapter := NewAdapter(runner)

	got, err := adapter.Execute(context.Background(), "MATCH (s:Station) RETURN s.name AS name, s.zone AS zone", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []Record{{"name": "Ranelagh", "zone": "Zone 2"}}, got)
}

func TestStationNetworkDeduplicates(t *testing.T) {
	s := stationNode("4:s:1", "Connolly")
	t1 := stationNode("4:s:2", "Tara Street")
	t2 := stationNode("4:s:3", "Clontarf Road")
	r1 := neo4j.Relationship{ElementId: "5:r:1", StartElementId: s.ElementId, EndElementId: t1.ElementId, Type: RelConnectedByLine, Props: map[string]any{"distance": 1.1}}
	r2 := neo4j.Relationship{ElementId: "5:r:2", StartElementId: s.ElementId, EndElementId: t2.ElementId, Type: RelConnectedByLine, Props: map[string]any{}}

	runner := newFakeRunner()
	runner.results["station_network"] = rows([]string{"s", "r", "t"},
		[]any{s, r1, t1},
		[]any{s, r2, t2},
	)
	adapter := NewAdapter(runner)

	graph, err := adapter.StationNetwork(context.Background(), "Connolly", RelConnectedByLine)
	require.NoError(t, err)
	assert.Len(t, graph.Nodes, 3)
	assert.Len(t, graph.Edges, 2)
	assert.Equal(t, "Connolly", graph.Nodes[0].Name)
	assert.Equal(t, "4:s:2", graph.Edges[0].Target)
}

func TestStationNetworkFollowsIncomingEdges(t *testing.T) {
	terminus := stationNode("4:s:1", "Bray")
	prev := stationNode("4:s:2", "Shankill")
	in := neo4j.Relationship{ElementId: "5:r:1", StartElementId: prev.ElementId, EndElementId: terminus.ElementId, Type: RelConnectedByLine}

	runner := newFakeRunner()
	runner.results["station_network"] = rows([]string{"s", "r", "t"}, []any{terminus, in, prev})
	adapter := NewAdapter(runner)

	graph, err := adapter.StationNetwork(context.Background(), "Bray", RelConnectedByLine)
	require.NoError(t, err)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, prev.ElementId, graph.Edges[0].Source)
	assert.Equal(t, terminus.ElementId, graph.Edges[0].Target)

	call, _ := runner.lastCall("station_network")
	assert.Contains(t, call.query, "-[r:CONNECTED_BY_LINE]-(")
	assert.NotContains(t, call.query, "->")
	assert.NotContains(t, call.query, "<-")
}

func TestStationNetworkUnknownStation(t *testing.T) {
	adapter := NewAdapter(newFakeRunner())

	_, err := adapter.StationNetwork(context.Background(), "Atlantis", RelConnectedTo)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStationsListsNames(t *testing.T) {
	runner := newFakeRunner()
	runner.results["stations"] = rows([]string{"name"}, []any{"Bray"}, []any{"Greystones"})
	adapter := NewAdapter(runner)

	got, err := adapter.Stations(context.Background(), "DART")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bray", "Greystones"}, got)
}

func lower(m Mode) string {
	switch m {
	case ModeBus:
		return "bus"
	case ModeDART:
		return "dart"
	}
	return "luas"
}
