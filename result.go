package transitgraph

import (
	"errors"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

// Analysis is the kind of graph analysis an operator asked for.
type Analysis string

const (
	AnalysisCentrality   Analysis = "centrality"
	AnalysisShortestPath Analysis = "shortest_path"
	AnalysisPageRank     Analysis = "pagerank"
)

// Title is the label shown in the shell.
func (a Analysis) Title() string {
	switch a {
	case AnalysisCentrality:
		return "Degree Centrality"
	case AnalysisShortestPath:
		return "Shortest Path"
	case AnalysisPageRank:
		return "PageRank"
	}
	return string(a)
}

// Analyses lists every analysis in menu order.
var Analyses = []Analysis{AnalysisCentrality, AnalysisShortestPath, AnalysisPageRank}

// Request is one operator action against the graph.
type Request struct {
	Mode     Mode
	Analysis Analysis
	// Start and End are free text and are only used by shortest path.
	Start string
	End   string
	// Label selects what PageRank ranks; empty means Station.
	Label string
}

// Result is the outcome of one Request. It is one of CentralityResult,
// ShortestPathResult, PageRankResult, EmptyResult or ErrorResult.
type Result interface {
	result()
}

type CentralityResult struct {
	Mode Mode
	Rows []models.ScoreRow
}

type ShortestPathResult struct {
	Mode  Mode
	Start string
	End   string
	Paths []models.PathRow
}

type PageRankResult struct {
	Mode    Mode
	Label   string
	Summary models.PageRankSummary
	Rows    []models.ScoreRow
}

// EmptyResult means the query ran and matched nothing: an unknown category or
// station, or no path between two stations. It is not a failure.
type EmptyResult struct {
	Mode     Mode
	Analysis Analysis
}

// Message is the "no data" text for the analysis.
func (r EmptyResult) Message() string {
	if r.Analysis == AnalysisShortestPath {
		return "No path found."
	}
	return "No data available."
}

// ErrorResult carries a failure converted at the adapter boundary.
type ErrorResult struct {
	Mode     Mode
	Analysis Analysis
	Err      error
}

// Kind is "connection", "query" or "input".
func (r ErrorResult) Kind() string {
	switch {
	case errors.Is(r.Err, ErrConnection):
		return "connection"
	case errors.Is(r.Err, ErrInvalidInput):
		return "input"
	default:
		return "query"
	}
}

// Message is the operator-facing description of the failure.
func (r ErrorResult) Message() string {
	switch r.Kind() {
	case "connection":
		return "Could not reach the " + string(r.Mode) + " graph database: " + r.Err.Error()
	case "input":
		return r.Err.Error()
	default:
		return "The " + r.Analysis.Title() + " query failed: " + r.Err.Error()
	}
}

func (CentralityResult) result()   {}
func (ShortestPathResult) result() {}
func (PageRankResult) result()     {}
func (EmptyResult) result()        {}
func (ErrorResult) result()        {}
