// Package transitgraph is the graph-analytics layer of the Irish transport
// dashboard. It wraps the official Neo4j Go driver and turns three analysis
// intents (degree centrality, shortest path and PageRank) into parameterised
// Cypher queries whose rows are adapted into presentation-ready values.
package transitgraph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

// Conn is a long-lived connection to the graph engine for one transport mode.
type Conn interface {
	DBRunner
	Verify(ctx context.Context) error
	Close(ctx context.Context) error
}

//---

// Neo4jExecutor is a concrete implementation of the Conn interface that uses the
// official Neo4j Go driver. It manages the driver instance and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// The driver is created lazily by the Neo4j library, so no network traffic
// happens until Verify or Run is called.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "bolt://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to connect to (e.g., "neo4j").
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks that the engine is reachable and accepts the credentials.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver and every pooled connection it holds.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query using ExecuteQuery, which handles session and
// transaction management automatically. It serves both reads and the PageRank
// write-back.
//
// Returns:
//
//	An EagerResult containing all buffered records from the query, or an error if
//	the execution fails.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(
		ctx,
		e.Driver,
		query,
		params,
		neo4j.EagerResultTransformer, // Buffers all results in memory before returning.
		neo4j.ExecuteQueryWithDatabase(e.DBName),
	)

	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result, nil
}

// Target holds the connection settings for one transport mode.
type Target struct {
	URI      string
	Username string
	Password string
	Database string
}

// DialFunc opens and verifies a connection for a target.
type DialFunc func(ctx context.Context, target Target) (Conn, error)

// DialNeo4j is the production DialFunc. A connection that fails verification is
// closed before the error is returned so nothing leaks.
func DialNeo4j(ctx context.Context, target Target) (Conn, error) {
	exec, err := NewNeo4jExecutor(target.URI, target.Username, target.Password, target.Database)
	if err != nil {
		return nil, &QueryError{Query: "connect", kind: ErrConnection, Err: err}
	}
	if err := exec.Verify(ctx); err != nil {
		_ = exec.Close(ctx)
		return nil, &QueryError{Query: "connect", kind: ErrConnection, Err: err}
	}
	return exec, nil
}
