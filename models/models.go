package models

// Station is a named stop of one transport mode.
// The `graph` struct tags tell the transitgraph decoder which node property or
// record field feeds each struct field.
type Station struct {
	// Name is unique within a category and is the lookup key.
	Name string `graph:"key,property:name"`

	// Rank is written by PageRank; zero until the algorithm has run.
	Rank float64 `graph:"property:rank"`
}

// Route is a bus route node; BUS mode ranks routes as well as stations.
type Route struct {
	Name string  `graph:"key,property:name"`
	Rank float64 `graph:"property:rank"`
}

// Category groups the stations of one transport mode through HAS_STATION.
type Category struct {
	Name string `graph:"key,property:name"`
}

// ScoreRow is one (name, score) record produced by degree centrality or by
// reading back PageRank ranks. For centrality Score holds the integer degree.
type ScoreRow struct {
	Name  string  `graph:"property:name" json:"name"`
	Score float64 `graph:"property:score" json:"score"`
}

// PathRow is one candidate path returned by a shortest-path query.
type PathRow struct {
	Path          []string `graph:"property:path" json:"path"`
	TotalDistance float64  `graph:"property:totalDistance" json:"totalDistance"`
}

// Hops is the number of connections traversed by the path.
func (p PathRow) Hops() int {
	if len(p.Path) == 0 {
		return 0
	}
	return len(p.Path) - 1
}

// PageRankSummary reports what a PageRank write did on the engine.
type PageRankSummary struct {
	NodesWritten int64 `graph:"property:nodePropertiesWritten" json:"nodesWritten"`
	Iterations   int64 `graph:"property:ranIterations" json:"iterations"`
	Converged    bool  `graph:"property:didConverge" json:"converged"`
}
