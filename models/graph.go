// Package models contains the transport graph entities and the result shapes
// returned by the transitgraph query adapter.
// The graph structs in this file describe a station neighbourhood so that it can
// be serialized to JSON for the dashboard's network view.
package models

// GraphNode is a station or route node taken from the transport graph.
type GraphNode struct {
	// ID is the engine-assigned element id of the node.
	ID string `json:"id"`

	// Labels holds every label on the node (e.g., ["Station"]).
	Labels []string `json:"labels"`

	// Name is copied out of the node's properties for display.
	Name string `json:"name,omitempty"`

	// Properties is a map containing the key-value properties of the node.
	Properties map[string]interface{} `json:"properties"`
}

// Edge is a connection between two nodes of the transport graph
// (CONNECTED_BY_ROUTE, CONNECTED_BY_LINE or CONNECTED_TO).
type Edge struct {
	ID string `json:"id"`

	// Source is the element id of the node where the relationship starts.
	Source string `json:"source"`

	// Target is the element id of the node where the relationship ends.
	Target string `json:"target"`

	Type string `json:"type"`

	// Properties may carry a "distance" used for weighted shortest paths.
	Properties map[string]interface{} `json:"properties"`
}

// GraphResult is the de-duplicated set of nodes and edges around a station.
type GraphResult struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*Edge      `json:"edges"`
}
