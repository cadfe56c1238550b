package transitgraph

import (
	"context"
	"fmt"
	"strings"
)

// Query is a Cypher statement with its bound parameters. Operator input only
// ever travels in Params; Text is assembled from constants and closed sets.
type Query struct {
	Name   string
	Text   string
	Params map[string]any
}

type queryNameKey struct{}

func withQueryName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, queryNameKey{}, name)
}

// QueryName returns the adapter query name carried by ctx, or "adhoc".
func QueryName(ctx context.Context) string {
	if name, ok := ctx.Value(queryNameKey{}).(string); ok {
		return name
	}
	return "adhoc"
}

// DegreeCentralityQuery counts, for every station owned by category, the
// incident relationships of type rel.
func DegreeCentralityQuery(category, rel string) (Query, error) {
	if err := validRelationship(rel); err != nil {
		return Query{}, err
	}
	text := fmt.Sprintf(`MATCH (c:Category {name: $category})-[:%s]->(s:Station)
OPTIONAL MATCH (s)-[r:%s]-()
RETURN s.name AS name, count(r) AS score
ORDER BY score DESC, name ASC`, RelHasStation, rel)

	return Query{
		Name:   "degree_centrality",
		Text:   text,
		Params: map[string]any{"category": category},
	}, nil
}

// PathSearch bounds the variable-length searches used by weighted modes.
type PathSearch struct {
	// MaxDepth is the largest number of hops a candidate path may have.
	MaxDepth int
	// Limit is the number of candidate paths returned.
	Limit int
}

// DefaultPathSearch is used when the adapter is not given one.
var DefaultPathSearch = PathSearch{MaxDepth: 12, Limit: 3}

// ShortestPathQuery builds the mode-specific path query. Every variant returns
// `path` (station names in order) and `totalDistance` (float).
func ShortestPathQuery(mode Mode, start, end string, search PathSearch) (Query, error) {
	params := map[string]any{"start": start, "end": end}

	var text string
	switch mode {
	case ModeBus:
		// Unweighted: the distance is the hop count.
		text = fmt.Sprintf(`MATCH (a:Station {name: $start}), (b:Station {name: $end})
MATCH p = shortestPath((a)-[:%s*]-(b))
RETURN [n IN nodes(p) | n.name] AS path, toFloat(length(p)) AS totalDistance`, RelConnectedByRoute)

	case ModeDART:
		if search.MaxDepth <= 0 || search.Limit <= 0 {
			return Query{}, invalidInput("path search needs a positive depth and limit, got %+v", search)
		}
		// Variable-length bounds cannot be parameters; MaxDepth is an int from config.
		text = fmt.Sprintf(`MATCH (a:Station {name: $start}), (b:Station {name: $end})
MATCH p = (a)-[:%s*1..%d]-(b)
WHERE all(n IN nodes(p) WHERE single(m IN nodes(p) WHERE m = n))
WITH p, reduce(d = 0.0, r IN relationships(p) | d + coalesce(toFloat(r.distance), 1.0)) AS totalDistance
RETURN [n IN nodes(p) | n.name] AS path, totalDistance
ORDER BY totalDistance ASC, length(p) ASC
LIMIT $limit`, RelConnectedByLine, search.MaxDepth)
		params["limit"] = int64(search.Limit)

	case ModeLUAS:
		text = fmt.Sprintf(`MATCH (a:Station {name: $start}), (b:Station {name: $end})
MATCH p = allShortestPaths((a)-[:%s*]-(b))
WITH p, reduce(d = 0.0, r IN relationships(p) | d + coalesce(toFloat(r.distance), 1.0)) AS totalDistance
RETURN [n IN nodes(p) | n.name] AS path, totalDistance
ORDER BY totalDistance ASC`, RelConnectedTo)

	default:
		return Query{}, invalidInput("unknown transport mode %q", mode)
	}

	return Query{
		Name:   "shortest_path_" + strings.ToLower(string(mode)),
		Text:   text,
		Params: params,
	}, nil
}

// PageRankOptions tunes the engine's PageRank run.
type PageRankOptions struct {
	MaxIterations int
	DampingFactor float64
}

// DefaultPageRankOptions mirrors the engine defaults.
var DefaultPageRankOptions = PageRankOptions{MaxIterations: 20, DampingFactor: 0.85}

// projectionName is the in-memory graph name used while ranking label over rel.
func projectionName(label, rel string) string {
	return "transit-" + strings.ToLower(label) + "-" + strings.ToLower(rel)
}

// DropProjectionQuery removes a projected graph if it exists.
func DropProjectionQuery(label, rel string) Query {
	return Query{
		Name: "pagerank_drop",
		Text: `CALL gds.graph.drop($graphName, false) YIELD graphName
RETURN graphName`,
		Params: map[string]any{"graphName": projectionName(label, rel)},
	}
}

// ProjectQuery projects nodes with label and undirected rel relationships into
// a named in-memory graph. The procedure takes both as plain values, so they
// are bound rather than written into the text.
func ProjectQuery(label, rel string) (Query, error) {
	if err := validRankLabel(label); err != nil {
		return Query{}, err
	}
	if err := validRelationship(rel); err != nil {
		return Query{}, err
	}
	return Query{
		Name: "pagerank_project",
		Text: `CALL gds.graph.project($graphName, $nodeProjection, $relationshipProjection)
YIELD graphName, nodeCount, relationshipCount
RETURN graphName, nodeCount, relationshipCount`,
		Params: map[string]any{
			"graphName":      projectionName(label, rel),
			"nodeProjection": label,
			"relationshipProjection": map[string]any{
				rel: map[string]any{"orientation": "UNDIRECTED"},
			},
		},
	}, nil
}

// PageRankWriteQuery runs PageRank on the projection and writes `rank` back
// onto the ranked nodes.
func PageRankWriteQuery(label, rel string, opts PageRankOptions) Query {
	return Query{
		Name: "pagerank_write",
		Text: `CALL gds.pageRank.write($graphName, {writeProperty: 'rank', maxIterations: $maxIterations, dampingFactor: $dampingFactor})
YIELD nodePropertiesWritten, ranIterations, didConverge
RETURN nodePropertiesWritten, ranIterations, didConverge`,
		Params: map[string]any{
			"graphName":     projectionName(label, rel),
			"maxIterations": int64(opts.MaxIterations),
			"dampingFactor": opts.DampingFactor,
		},
	}
}

// FetchRankedQuery reads back (name, rank) for every ranked node with label.
func FetchRankedQuery(label string) (Query, error) {
	if err := validRankLabel(label); err != nil {
		return Query{}, err
	}
	return Query{
		Name: "fetch_ranked",
		Text: `MATCH (n)
WHERE $label IN labels(n) AND n.rank IS NOT NULL
RETURN n.name AS name, n.rank AS score
ORDER BY score DESC, name ASC`,
		Params: map[string]any{"label": label},
	}, nil
}

// StationsQuery lists the station names owned by category.
func StationsQuery(category string) Query {
	return Query{
		Name: "stations",
		Text: fmt.Sprintf(`MATCH (:Category {name: $category})-[:%s]->(s:Station)
RETURN s.name AS name
ORDER BY name`, RelHasStation),
		Params: map[string]any{"category": category},
	}
}

// StationInCategoryQuery looks up one station by name among those owned by
// category.
func StationInCategoryQuery(category, name string) Query {
	return Query{
		Name: "station_in_category",
		Text: fmt.Sprintf(`MATCH (:Category {name: $category})-[:%s]->(s:Station {name: $name})
RETURN s.name AS name
LIMIT 1`, RelHasStation),
		Params: map[string]any{"category": category, "name": name},
	}
}
