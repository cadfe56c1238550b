// Package shell is the HTTP front end of the dashboard: a mode selector, the
// per-mode chart gallery, the graph analysis form and its JSON twin.
package shell

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/dataset"
	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

// Analyzer runs graph analyses for the shell. *transitgraph.Session
// satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req transitgraph.Request) transitgraph.Result
	Stations(ctx context.Context, mode transitgraph.Mode) ([]string, error)
	Network(ctx context.Context, mode transitgraph.Mode, station string) (*models.GraphResult, error)
}

// Options configures a Server.
type Options struct {
	Analyzer Analyzer
	Datasets dataset.Datasets
	Logger   *zap.Logger
	// Gatherer backs /metrics; nil uses the default registry.
	Gatherer     prometheus.Gatherer
	CORSOrigins  []string
	QueryTimeout time.Duration
}

// Server holds the shell's collaborators. It keeps no per-operator state.
type Server struct {
	analyzer     Analyzer
	data         dataset.Datasets
	logger       *zap.Logger
	gatherer     prometheus.Gatherer
	corsOrigins  []string
	queryTimeout time.Duration
}

func NewServer(opts Options) *Server {
	s := &Server{
		analyzer:     opts.Analyzer,
		data:         opts.Datasets,
		logger:       opts.Logger,
		gatherer:     opts.Gatherer,
		corsOrigins:  opts.CORSOrigins,
		queryTimeout: opts.QueryTimeout,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if len(s.corsOrigins) == 0 {
		s.corsOrigins = []string{"*"}
	}
	if s.queryTimeout <= 0 {
		s.queryTimeout = 30 * time.Second
	}
	return s
}

// Handler builds the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(s.logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.health)
	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	router.Get("/", s.home)
	router.Get("/modes/{mode}", s.modePage)
	router.Route("/charts/{mode}", func(r chi.Router) {
		r.Get("/{view}.png", s.chartImage)
		r.Get("/{view}/data", s.chartData)
	})
	router.Get("/analysis", s.analysisPage)

	router.Route("/api", func(r chi.Router) {
		r.Get("/analysis", s.analysisAPI)
		r.Get("/summary/{mode}", s.summaryAPI)
		r.Get("/stations/{mode}", s.stations)
		r.Get("/network/{mode}/{station}", s.network)
	})

	return router
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
