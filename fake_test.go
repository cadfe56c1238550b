package transitgraph

import (
	"context"
	"errors"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

type runCall struct {
	name   string
	query  string
	params map[string]interface{}
}

// fakeRunner answers queries by adapter query name.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []runCall
	results map[string]*neo4j.EagerResult
	errs    map[string]error
	// nthErrs fails only the nth call (1-based) of a query name.
	nthErrs map[string]map[int]error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		results: make(map[string]*neo4j.EagerResult),
		errs:    make(map[string]error),
		nthErrs: make(map[string]map[int]error),
	}
}

func (f *fakeRunner) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	name := QueryName(ctx)
	f.calls = append(f.calls, runCall{name: name, query: query, params: params})
	if err := f.nthErrs[name][f.countLocked(name)]; err != nil {
		return nil, err
	}
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if res, ok := f.results[name]; ok {
		return res, nil
	}
	return &neo4j.EagerResult{}, nil
}

func (f *fakeRunner) countLocked(name string) int {
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func (f *fakeRunner) callNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		names = append(names, c.name)
	}
	return names
}

func (f *fakeRunner) lastCall(name string) (runCall, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].name == name {
			return f.calls[i], true
		}
	}
	return runCall{}, false
}

// rows builds an EagerResult whose records all share keys.
func rows(keys []string, values ...[]any) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: keys}
	for _, v := range values {
		res.Records = append(res.Records, &neo4j.Record{Keys: keys, Values: v})
	}
	return res
}

func stationNode(id, name string) neo4j.Node {
	return neo4j.Node{
		ElementId: id,
		Labels:    []string{"Station"},
		Props:     map[string]any{"name": name},
	}
}

// fakeConn is a Conn that remembers whether it was closed.
type fakeConn struct {
	*fakeRunner
	closed   bool
	closeErr error
}

func (c *fakeConn) Verify(context.Context) error { return nil }

func (c *fakeConn) Close(context.Context) error {
	c.closed = true
	return c.closeErr
}

var errUnreachable = errors.New("dial tcp 127.0.0.1:7687: connect: connection refused")
