package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "bolt://localhost:7687", cfg.Neo4j.URI)
	assert.Equal(t, 20, cfg.PageRank.MaxIterations)
	assert.Equal(t, 0.85, cfg.PageRank.DampingFactor)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transitdash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
dataDir: /srv/transit
server:
  address: ":9090"
  queryTimeout: 5s
neo4j:
  uri: neo4j://graph:7687
  username: reader
  database: transport
  modes:
    DART:
      database: dart
pageRank:
  maxIterations: 40
pathSearch:
  maxDepth: 8
  limit: 5
`), 0o600))

	t.Setenv("NEO4J_PASSWORD", "s3cret")
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("NEO4J_LUAS_URI", "bolt://luas:7687")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/srv/transit", cfg.DataDir)
	assert.Equal(t, ":7070", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.QueryTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 40, cfg.PageRank.MaxIterations)
	assert.Equal(t, 0.85, cfg.PageRank.DampingFactor)

	targets := cfg.Targets()
	require.Len(t, targets, 3)
	assert.Equal(t, transitgraph.Target{URI: "neo4j://graph:7687", Username: "reader", Password: "s3cret", Database: "transport"}, targets[transitgraph.ModeBus])
	assert.Equal(t, "dart", targets[transitgraph.ModeDART].Database)
	assert.Equal(t, "neo4j://graph:7687", targets[transitgraph.ModeDART].URI)
	assert.Equal(t, "bolt://luas:7687", targets[transitgraph.ModeLUAS].URI)
	assert.Equal(t, "transport", targets[transitgraph.ModeLUAS].Database)

	assert.Len(t, cfg.AdapterOptions(), 2)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		yaml string
	}{
		{name: "unknown environment", env: map[string]string{"ENVIRONMENT": "staging"}},
		{name: "unknown log level", env: map[string]string{"LOG_LEVEL": "verbose"}},
		{name: "bad damping factor", env: map[string]string{"PAGERANK_DAMPING_FACTOR": "1.5"}},
		{name: "unparseable iterations", env: map[string]string{"PAGERANK_MAX_ITERATIONS": "many"}},
		{name: "unknown mode override", yaml: "neo4j:\n  modes:\n    TRAM:\n      database: x\n"},
		{name: "zero path depth", yaml: "pathSearch:\n  maxDepth: 0\n"},
		{name: "malformed yaml", yaml: "server: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			path := ""
			if tc.yaml != "" {
				path = filepath.Join(t.TempDir(), "c.yaml")
				require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o600))
			}
			_, err := config.Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "warn"
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
	assert.True(t, logger.Core().Enabled(zap.ErrorLevel))
}
