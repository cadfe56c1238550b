package transitgraph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

var (
	// ErrNotFound is returned by lookups when no node matches.
	ErrNotFound = errors.New("record not found")

	// ErrConnection means the engine is unreachable or rejected the credentials.
	// It is fatal for the mode it happened on and is never retried.
	ErrConnection = errors.New("graph engine connection failure")

	// ErrQuery means the engine rejected or failed a submitted query.
	ErrQuery = errors.New("graph query failure")

	// ErrInvalidInput is returned before any query is sent, for values outside
	// the closed sets of modes, labels and relationship types.
	ErrInvalidInput = errors.New("invalid input")
)

// QueryError records which adapter query failed and how it was classified.
// errors.Is matches both the classification sentinel and the driver error.
type QueryError struct {
	Query string
	Err   error
	kind  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.kind, e.Query, e.Err)
}

func (e *QueryError) Unwrap() []error {
	return []error{e.kind, e.Err}
}

// Kind returns ErrConnection or ErrQuery.
func (e *QueryError) Kind() error {
	return e.kind
}

// classify wraps a driver error into a QueryError.
func classify(query string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Query: query, kind: kindOf(err), Err: err}
}

func kindOf(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrQuery
	}
	var connErr *neo4j.ConnectivityError
	if errors.As(err, &connErr) {
		return ErrConnection
	}
	var neoErr *neo4j.Neo4jError
	if errors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return ErrConnection
	}
	return ErrQuery
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
