// Package config loads the dashboard configuration from an optional YAML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
)

// Config holds all application configuration.
type Config struct {
	Environment string `yaml:"environment" validate:"oneof=development production test"`
	LogLevel    string `yaml:"logLevel" validate:"oneof=debug info warn error"`
	// DataDir holds BUS_Dataset.csv, DART_Dataset.csv and LUAS_Dataset.csv.
	DataDir string `yaml:"dataDir" validate:"required"`

	Server     Server     `yaml:"server"`
	Neo4j      Neo4j      `yaml:"neo4j"`
	PageRank   PageRank   `yaml:"pageRank"`
	PathSearch PathSearch `yaml:"pathSearch"`
}

type Server struct {
	Address         string        `yaml:"address" validate:"required"`
	ReadTimeout     time.Duration `yaml:"readTimeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"writeTimeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" validate:"gt=0"`
	// QueryTimeout bounds a single analysis request.
	QueryTimeout time.Duration `yaml:"queryTimeout" validate:"gt=0"`
	CORSOrigins  []string      `yaml:"corsOrigins"`
}

// Neo4j is the shared connection; Modes overrides it per transport mode.
type Neo4j struct {
	URI      string                  `yaml:"uri" validate:"required,uri"`
	Username string                  `yaml:"username" validate:"required"`
	Password string                  `yaml:"password"`
	Database string                  `yaml:"database" validate:"required"`
	Modes    map[string]ModeOverride `yaml:"modes" validate:"omitempty,dive,keys,oneof=BUS DART LUAS,endkeys"`
}

// ModeOverride replaces the shared URI or database for one mode. Empty
// fields keep the shared value.
type ModeOverride struct {
	URI      string `yaml:"uri" validate:"omitempty,uri"`
	Database string `yaml:"database"`
}

type PageRank struct {
	MaxIterations int     `yaml:"maxIterations" validate:"min=1,max=1000"`
	DampingFactor float64 `yaml:"dampingFactor" validate:"gt=0,lt=1"`
}

type PathSearch struct {
	MaxDepth int `yaml:"maxDepth" validate:"min=1,max=50"`
	Limit    int `yaml:"limit" validate:"min=1,max=100"`
}

// Default returns the configuration used when neither file nor environment
// say otherwise.
func Default() *Config {
	return &Config{
		Environment: "development",
		LogLevel:    "info",
		DataDir:     "data",
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			QueryTimeout:    30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Neo4j: Neo4j{
			URI:      "bolt://localhost:7687",
			Username: "neo4j",
			Database: "neo4j",
		},
		PageRank: PageRank{
			MaxIterations: transitgraph.DefaultPageRankOptions.MaxIterations,
			DampingFactor: transitgraph.DefaultPageRankOptions.DampingFactor,
		},
		PathSearch: PathSearch{
			MaxDepth: transitgraph.DefaultPathSearch.MaxDepth,
			Limit:    transitgraph.DefaultPathSearch.Limit,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Neo4j.URI, "NEO4J_URI")
	setString(&c.Neo4j.Username, "NEO4J_USERNAME")
	setString(&c.Neo4j.Password, "NEO4J_PASSWORD")
	setString(&c.Neo4j.Database, "NEO4J_DATABASE")
	setString(&c.DataDir, "TRANSIT_DATA_DIR")
	setString(&c.Server.Address, "SERVER_ADDRESS")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Environment, "ENVIRONMENT")

	if val := os.Getenv("PAGERANK_MAX_ITERATIONS"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PAGERANK_MAX_ITERATIONS: %w", err)
		}
		c.PageRank.MaxIterations = n
	}
	if val := os.Getenv("PAGERANK_DAMPING_FACTOR"); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("PAGERANK_DAMPING_FACTOR: %w", err)
		}
		c.PageRank.DampingFactor = f
	}

	for _, mode := range transitgraph.Modes {
		uri := os.Getenv("NEO4J_" + string(mode) + "_URI")
		db := os.Getenv("NEO4J_" + string(mode) + "_DATABASE")
		if uri == "" && db == "" {
			continue
		}
		if c.Neo4j.Modes == nil {
			c.Neo4j.Modes = make(map[string]ModeOverride)
		}
		o := c.Neo4j.Modes[string(mode)]
		if uri != "" {
			o.URI = uri
		}
		if db != "" {
			o.Database = db
		}
		c.Neo4j.Modes[string(mode)] = o
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	c.Environment = strings.ToLower(c.Environment)
	return nil
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

var validate = validator.New()

// Validate checks the struct tags and returns one readable error per field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	errs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s fails %q (%v)", fe.Namespace(), fe.ActualTag(), fe.Value()))
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool { return c.Environment == "development" }

// Targets resolves the connection of every transport mode.
func (c *Config) Targets() map[transitgraph.Mode]transitgraph.Target {
	out := make(map[transitgraph.Mode]transitgraph.Target, len(transitgraph.Modes))
	for _, mode := range transitgraph.Modes {
		t := transitgraph.Target{
			URI:      c.Neo4j.URI,
			Username: c.Neo4j.Username,
			Password: c.Neo4j.Password,
			Database: c.Neo4j.Database,
		}
		if o, ok := c.Neo4j.Modes[string(mode)]; ok {
			if o.URI != "" {
				t.URI = o.URI
			}
			if o.Database != "" {
				t.Database = o.Database
			}
		}
		out[mode] = t
	}
	return out
}

// AdapterOptions carries the PageRank and path search settings into each adapter.
func (c *Config) AdapterOptions() []transitgraph.Option {
	return []transitgraph.Option{
		transitgraph.WithPageRank(transitgraph.PageRankOptions{
			MaxIterations: c.PageRank.MaxIterations,
			DampingFactor: c.PageRank.DampingFactor,
		}),
		transitgraph.WithPathSearch(transitgraph.PathSearch{
			MaxDepth: c.PathSearch.MaxDepth,
			Limit:    c.PathSearch.Limit,
		}),
	}
}

// NewLogger builds a production JSON logger, or a development console logger
// in development, at the configured level.
func (c *Config) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if c.IsDevelopment() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
