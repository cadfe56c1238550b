package transitgraph

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

// Record is one result row as a mapping from field name to value.
type Record map[string]any

// Adapter runs the analysis queries for one connection.
// Every operation is a pure query builder composed with Execute.
type Adapter struct {
	runner   DBRunner
	search   PathSearch
	pageRank PageRankOptions
	// metaCache stores parsed entityMetadata per row type.
	metaCache sync.Map
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithPathSearch bounds weighted shortest-path searches.
func WithPathSearch(search PathSearch) Option {
	return func(a *Adapter) { a.search = search }
}

// WithPageRank overrides the PageRank iteration count and damping factor.
func WithPageRank(opts PageRankOptions) Option {
	return func(a *Adapter) { a.pageRank = opts }
}

// NewAdapter creates an Adapter that executes through runner.
func NewAdapter(runner DBRunner, opts ...Option) *Adapter {
	a := &Adapter{
		runner:   runner,
		search:   DefaultPathSearch,
		pageRank: DefaultPageRankOptions,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// RepositoryFor creates a read-only repository for T on the adapter's connection.
func RepositoryFor[T any](a *Adapter) (*Repository[T], error) {
	return NewRepository[T](a.runner)
}

// Execute sends one query with its named parameters and returns the raw rows.
// It is the only method that talks to the engine.
func (a *Adapter) Execute(ctx context.Context, query string, params map[string]any) ([]Record, error) {
	return a.execute(ctx, Query{Name: QueryName(ctx), Text: query, Params: params})
}

func (a *Adapter) execute(ctx context.Context, q Query) ([]Record, error) {
	result, err := a.runner.Run(withQueryName(ctx, q.Name), q.Text, q.Params)
	if err != nil {
		return nil, classify(q.Name, err)
	}

	records := make([]Record, 0, len(result.Records))
	for _, rec := range result.Records {
		records = append(records, Record(rec.AsMap()))
	}
	return records, nil
}

// DegreeCentrality scores the stations of category by their incident
// CONNECTED_BY_ROUTE relationships. An unknown category gives an empty slice.
func (a *Adapter) DegreeCentrality(ctx context.Context, category string) ([]models.ScoreRow, error) {
	return a.DegreeCentralityBy(ctx, category, RelConnectedByRoute)
}

// DegreeCentralityBy is DegreeCentrality counting relationships of type rel.
// Rows are ordered by score descending, then by name.
func (a *Adapter) DegreeCentralityBy(ctx context.Context, category, rel string) ([]models.ScoreRow, error) {
	q, err := DegreeCentralityQuery(category, rel)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[models.ScoreRow](ctx, a, q)
	if err != nil {
		return nil, err
	}
	sortScores(rows)
	return rows, nil
}

// ShortestPath returns the candidate paths between two stations using the
// mode's own relationship type and weighting.
//
// When start and end name the same station the result is a single zero-length
// path of distance 0 if the mode owns that station, and empty otherwise. Unknown
// stations give an empty result, never an error.
func (a *Adapter) ShortestPath(ctx context.Context, mode Mode, start, end string) ([]models.PathRow, error) {
	if !mode.Valid() {
		return nil, invalidInput("unknown transport mode %q", mode)
	}

	if start == end {
		found, err := a.HasStation(ctx, mode.Category(), start)
		if err != nil {
			return nil, err
		}
		if !found {
			return []models.PathRow{}, nil
		}
		return []models.PathRow{{Path: []string{start}, TotalDistance: 0}}, nil
	}

	q, err := ShortestPathQuery(mode, start, end, a.search)
	if err != nil {
		return nil, err
	}
	return decodeRows[models.PathRow](ctx, a, q)
}

// PageRank ranks nodes with label over rel relationships and writes `rank`
// onto each of them. The projection is always dropped afterwards, even when
// the write fails. There is no rollback: a failed run can leave some nodes
// with fresh ranks and others with stale ones.
func (a *Adapter) PageRank(ctx context.Context, label, rel string) (summary models.PageRankSummary, err error) {
	project, err := ProjectQuery(label, rel)
	if err != nil {
		return summary, err
	}

	// A projection left behind by an interrupted run would make project fail.
	if _, err := a.execute(ctx, DropProjectionQuery(label, rel)); err != nil {
		return summary, err
	}
	if _, err := a.execute(ctx, project); err != nil {
		return summary, err
	}
	defer func() {
		// Dropping uses a fresh context so a cancelled request still cleans up.
		if _, dropErr := a.execute(context.WithoutCancel(ctx), DropProjectionQuery(label, rel)); dropErr != nil && err == nil {
			err = dropErr
		}
	}()

	rows, err := decodeRows[models.PageRankSummary](ctx, a, PageRankWriteQuery(label, rel, a.pageRank))
	if err != nil {
		return summary, err
	}
	if len(rows) == 0 {
		return summary, &QueryError{Query: "pagerank_write", kind: ErrQuery, Err: fmt.Errorf("no summary returned")}
	}
	return rows[0], nil
}

// FetchRanked reads (name, rank) for every node with label that has a rank,
// highest first. It is a separate read and may observe a partial write.
func (a *Adapter) FetchRanked(ctx context.Context, label string) ([]models.ScoreRow, error) {
	q, err := FetchRankedQuery(label)
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows[models.ScoreRow](ctx, a, q)
	if err != nil {
		return nil, err
	}
	sortScores(rows)
	return rows, nil
}

// FindStation looks a station up by name.
func (a *Adapter) FindStation(ctx context.Context, name string) (*models.Station, error) {
	repo, err := RepositoryFor[models.Station](a)
	if err != nil {
		return nil, err
	}
	return repo.FindByName(ctx, name)
}

// HasStation reports whether category owns a station called name.
func (a *Adapter) HasStation(ctx context.Context, category, name string) (bool, error) {
	records, err := a.execute(ctx, StationInCategoryQuery(category, name))
	if err != nil {
		return false, err
	}
	return len(records) > 0, nil
}

// Stations lists the names of the stations owned by category.
func (a *Adapter) Stations(ctx context.Context, category string) ([]string, error) {
	records, err := a.execute(ctx, StationsQuery(category))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(records))
	for _, rec := range records {
		if name, ok := rec["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// StationNetwork returns the station and its direct rel neighbours, in either
// direction, as a graph of de-duplicated nodes and edges in the shape graph
// widgets consume.
// ErrNotFound is returned when the station has no such neighbours.
func (a *Adapter) StationNetwork(ctx context.Context, name, rel string) (*models.GraphResult, error) {
	if err := validRelationship(rel); err != nil {
		return nil, err
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("s", LabelStation).WithProperties(map[string]interface{}{"name": name})).
		Match(
			gocypher.NRef("s"),
			gocypher.R("r", rel),
			gocypher.N("t", ""),
		).
		Return("s", "r", "t")

	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := a.runner.Run(withQueryName(ctx, "station_network"), query, params)
	if err != nil {
		return nil, classify("station_network", err)
	}
	if len(eagerResult.Records) == 0 {
		return nil, ErrNotFound
	}

	graph := &models.GraphResult{
		Nodes: make([]*models.GraphNode, 0),
		Edges: make([]*models.Edge, 0),
	}
	seenNodeIDs := make(map[string]bool)
	seenEdgeIDs := make(map[string]bool)

	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			switch v := value.(type) {
			case neo4j.Node:
				if !seenNodeIDs[v.ElementId] {
					name, _ := v.Props["name"].(string)
					graph.Nodes = append(graph.Nodes, &models.GraphNode{
						ID:         v.ElementId,
						Labels:     v.Labels,
						Name:       name,
						Properties: v.Props,
					})
					seenNodeIDs[v.ElementId] = true
				}

			case neo4j.Relationship:
				if !seenEdgeIDs[v.ElementId] {
					graph.Edges = append(graph.Edges, &models.Edge{
						ID:         v.ElementId,
						Source:     v.StartElementId,
						Target:     v.EndElementId,
						Type:       v.Type,
						Properties: v.Props,
					})
					seenEdgeIDs[v.ElementId] = true
				}
			}
		}
	}

	return graph, nil
}

// decodeRows executes q and maps each record onto a T using its graph tags.
func decodeRows[T any](ctx context.Context, a *Adapter, q Query) ([]T, error) {
	meta, err := a.metadataFor(reflect.TypeOf((*T)(nil)).Elem())
	if err != nil {
		return nil, err
	}

	records, err := a.execute(ctx, q)
	if err != nil {
		return nil, err
	}

	rows := make([]T, 0, len(records))
	for i, rec := range records {
		var row T
		if err := mapValues(rec, &row, meta); err != nil {
			return nil, fmt.Errorf("%s: record %d: %w", q.Name, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// metadataFor returns the cached tag metadata of typ, parsing it on first use.
func (a *Adapter) metadataFor(typ reflect.Type) (*entityMetadata, error) {
	if cached, ok := a.metaCache.Load(typ); ok {
		return cached.(*entityMetadata), nil
	}
	meta, err := parseTagsFromType(typ)
	if err != nil {
		return nil, err
	}
	a.metaCache.Store(typ, meta)
	return meta, nil
}

// sortScores orders rows by score descending and breaks ties by name so the
// display does not depend on the engine's return order.
func sortScores(rows []models.ScoreRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return strings.Compare(rows[i].Name, rows[j].Name) < 0
	})
}
