package transitgraph

import (
	"slices"
	"strings"
)

// Mode is one of the three transport networks. Its string value is also the
// name of the Category node that owns the mode's stations.
type Mode string

const (
	ModeBus  Mode = "BUS"
	ModeDART Mode = "DART"
	ModeLUAS Mode = "LUAS"
)

// Modes lists every transport mode in display order.
var Modes = []Mode{ModeDART, ModeLUAS, ModeBus}

// Relationship types of the transport graph. They cannot be bound as Cypher
// parameters, so only these values are ever written into query text.
const (
	RelConnectedByRoute = "CONNECTED_BY_ROUTE"
	RelConnectedByLine  = "CONNECTED_BY_LINE"
	RelConnectedTo      = "CONNECTED_TO"
	RelHasStation       = "HAS_STATION"
)

// Node labels that PageRank may rank.
const (
	LabelStation = "Station"
	LabelRoute   = "Route"
)

var relationshipTypes = map[string]bool{
	RelConnectedByRoute: true,
	RelConnectedByLine:  true,
	RelConnectedTo:      true,
}

var rankLabels = map[string]bool{
	LabelStation: true,
	LabelRoute:   true,
}

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", invalidInput("unknown transport mode %q", s)
	}
	return m, nil
}

func (m Mode) Valid() bool {
	switch m {
	case ModeBus, ModeDART, ModeLUAS:
		return true
	}
	return false
}

func (m Mode) String() string { return string(m) }

// Category is the name of the Category node scoping this mode's stations.
func (m Mode) Category() string { return string(m) }

// Relationship is the connection type between this mode's stations.
func (m Mode) Relationship() string {
	switch m {
	case ModeBus:
		return RelConnectedByRoute
	case ModeDART:
		return RelConnectedByLine
	default:
		return RelConnectedTo
	}
}

// RankLabels lists the node labels PageRank can be run on for this mode.
func (m Mode) RankLabels() []string {
	if m == ModeBus {
		return []string{LabelStation, LabelRoute}
	}
	return []string{LabelStation}
}

// CanRank reports whether PageRank may run on label for this mode.
func (m Mode) CanRank(label string) bool {
	return slices.Contains(m.RankLabels(), label)
}

// Description is the human name of the network.
func (m Mode) Description() string {
	switch m {
	case ModeBus:
		return "Dublin Bus"
	case ModeDART:
		return "DART commuter rail"
	case ModeLUAS:
		return "LUAS light rail"
	}
	return string(m)
}

func validRelationship(rel string) error {
	if !relationshipTypes[rel] {
		return invalidInput("unsupported relationship type %q", rel)
	}
	return nil
}

func validRankLabel(label string) error {
	if !rankLabels[label] {
		return invalidInput("unsupported node label %q", label)
	}
	return nil
}
