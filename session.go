package transitgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/saulfrancisco-ruizacevedo/transitgraph/models"
)

// SessionConfig describes the connections a Session opens.
type SessionConfig struct {
	// Targets holds one connection target per mode; modes without one are
	// reported as connection failures.
	Targets map[Mode]Target
	// Wrap, when set, decorates each connection's runner (logging, metrics).
	Wrap func(Mode, DBRunner) DBRunner
	// Options are applied to every mode's Adapter.
	Options []Option
	Logger  *zap.Logger
}

// Session owns one connection per transport mode for the lifetime of the
// dashboard. Queries are issued one at a time; Close releases everything.
type Session struct {
	mu       sync.Mutex
	logger   *zap.Logger
	conns    map[Mode]Conn
	adapters map[Mode]*Adapter
	failures map[Mode]error
	closed   bool
}

// OpenSession dials every mode. A mode that cannot connect is recorded as a
// connection failure and is not retried; the other modes stay usable.
func OpenSession(ctx context.Context, cfg SessionConfig, dial DialFunc) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		logger:   logger,
		conns:    make(map[Mode]Conn, len(Modes)),
		adapters: make(map[Mode]*Adapter, len(Modes)),
		failures: make(map[Mode]error),
	}

	for _, mode := range Modes {
		target, ok := cfg.Targets[mode]
		if !ok {
			s.failures[mode] = &QueryError{Query: "connect", kind: ErrConnection, Err: fmt.Errorf("no connection configured for %s", mode)}
			continue
		}

		conn, err := dial(ctx, target)
		if err != nil {
			if !errors.Is(err, ErrConnection) {
				err = &QueryError{Query: "connect", kind: ErrConnection, Err: err}
			}
			s.failures[mode] = err
			logger.Error("Graph connection failed",
				zap.String("mode", string(mode)),
				zap.String("uri", target.URI),
				zap.Error(err),
			)
			continue
		}

		var runner DBRunner = conn
		if cfg.Wrap != nil {
			runner = cfg.Wrap(mode, runner)
		}
		s.conns[mode] = conn
		s.adapters[mode] = NewAdapter(runner, cfg.Options...)
		logger.Info("Graph connection opened",
			zap.String("mode", string(mode)),
			zap.String("uri", target.URI),
			zap.String("database", target.Database),
		)
	}

	return s
}

// Adapter returns the mode's adapter, or the connection failure recorded for it.
func (s *Session) Adapter(mode Mode) (*Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adapterFor(mode)
}

func (s *Session) adapterFor(mode Mode) (*Adapter, error) {
	if !mode.Valid() {
		return nil, invalidInput("unknown transport mode %q", mode)
	}
	if err, failed := s.failures[mode]; failed {
		return nil, err
	}
	if s.closed {
		return nil, &QueryError{Query: "session", kind: ErrConnection, Err: errors.New("session is closed")}
	}
	return s.adapters[mode], nil
}

// Failure reports the connection failure of mode, if any.
func (s *Session) Failure(mode Mode) error {
	return s.failures[mode]
}

// Analyze runs one request and converts every outcome, including failures,
// into a Result. It never panics on engine errors and never retries.
func (s *Session) Analyze(ctx context.Context, req Request) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapter, err := s.adapterFor(req.Mode)
	if err != nil {
		return ErrorResult{Mode: req.Mode, Analysis: req.Analysis, Err: err}
	}

	res := s.analyze(ctx, adapter, req)
	if e, ok := res.(ErrorResult); ok {
		s.logger.Warn("Analysis failed",
			zap.String("mode", string(req.Mode)),
			zap.String("analysis", string(req.Analysis)),
			zap.String("kind", e.Kind()),
			zap.Error(e.Err),
		)
	}
	return res
}

func (s *Session) analyze(ctx context.Context, adapter *Adapter, req Request) Result {
	fail := func(err error) Result {
		return ErrorResult{Mode: req.Mode, Analysis: req.Analysis, Err: err}
	}
	empty := EmptyResult{Mode: req.Mode, Analysis: req.Analysis}

	switch req.Analysis {
	case AnalysisCentrality:
		rows, err := adapter.DegreeCentralityBy(ctx, req.Mode.Category(), req.Mode.Relationship())
		if err != nil {
			return fail(err)
		}
		if len(rows) == 0 {
			return empty
		}
		return CentralityResult{Mode: req.Mode, Rows: rows}

	case AnalysisShortestPath:
		if req.Start == "" || req.End == "" {
			return fail(invalidInput("start and end stations are required"))
		}
		paths, err := adapter.ShortestPath(ctx, req.Mode, req.Start, req.End)
		if err != nil {
			return fail(err)
		}
		if len(paths) == 0 {
			return empty
		}
		return ShortestPathResult{Mode: req.Mode, Start: req.Start, End: req.End, Paths: paths}

	case AnalysisPageRank:
		label := req.Label
		if label == "" {
			label = LabelStation
		}
		// A mode only ranks the node labels it owns.
		if !req.Mode.CanRank(label) {
			return fail(invalidInput("PageRank on %s nodes is not available for %s", label, req.Mode))
		}
		summary, err := adapter.PageRank(ctx, label, req.Mode.Relationship())
		if err != nil {
			return fail(err)
		}
		rows, err := adapter.FetchRanked(ctx, label)
		if err != nil {
			return fail(err)
		}
		if len(rows) == 0 {
			return empty
		}
		return PageRankResult{Mode: req.Mode, Label: label, Summary: summary, Rows: rows}
	}

	return fail(invalidInput("unknown analysis %q", req.Analysis))
}

// Stations lists the station names of mode, for the shell's pickers.
func (s *Session) Stations(ctx context.Context, mode Mode) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapter, err := s.adapterFor(mode)
	if err != nil {
		return nil, err
	}
	return adapter.Stations(ctx, mode.Category())
}

// Network returns the neighbourhood graph of a station in mode.
func (s *Session) Network(ctx context.Context, mode Mode, station string) (*models.GraphResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	adapter, err := s.adapterFor(mode)
	if err != nil {
		return nil, err
	}
	return adapter.StationNetwork(ctx, station, mode.Relationship())
}

// Close releases every open connection and reports all close errors joined.
// Calling it again is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, mode := range Modes {
		conn, ok := s.conns[mode]
		if !ok {
			continue
		}
		if err := conn.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("closing %s connection: %w", mode, err))
		}
		s.logger.Info("Graph connection closed", zap.String("mode", string(mode)))
	}
	return errors.Join(errs...)
}

// Closed reports whether Close has run.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
