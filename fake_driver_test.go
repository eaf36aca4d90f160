/*
Copyright 2024 eatmoreapple

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// testing fake driver

package fluentdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	fdriver "github.com/eatmoreapple/fluentdb/driver"
)

func init() {
	sql.Register("fake", &fakeDriver{})
}

// fakeStates maps a data source name to the state shared by its connections.
var fakeStates sync.Map

// fakeCall is one statement received by the driver.
type fakeCall struct {
	query string
	args  []driver.NamedValue
}

// fakeResultSet is one result set returned by a query.
type fakeResultSet struct {
	columns []string
	rows    [][]driver.Value
}

// fakeCounts is what the driver was asked to do.
type fakeCounts struct {
	opens, closes, pings   int
	begins, commits, rolls int
	rowsClosed             int
	execs, queries         []fakeCall
}

// fakeState counts driver calls and decides how the driver answers.
type fakeState struct {
	mu sync.Mutex
	fakeCounts

	pingErr, beginErr, execErr, queryErr error

	// block makes statements wait for their context to end.
	block    bool
	affected int64
	sets     []fakeResultSet
}

func (s *fakeState) count(field *int) {
	s.mu.Lock()
	*field++
	s.mu.Unlock()
}

func (s *fakeState) snapshot() fakeCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.fakeCounts
	counts.execs = append([]fakeCall(nil), s.execs...)
	counts.queries = append([]fakeCall(nil), s.queries...)
	return counts
}

// newFakeState registers a state under a data source name unique to the test.
func newFakeState(t *testing.T) (*fakeState, string) {
	t.Helper()
	dsn := "fake:" + t.Name()
	state := &fakeState{affected: 1}
	fakeStates.Store(dsn, state)
	t.Cleanup(func() { fakeStates.Delete(dsn) })
	return state, dsn
}

// fakeDriver is a fake database driver for testing.
type fakeDriver struct{}

// Open returns a new fake connection.
func (d *fakeDriver) Open(name string) (driver.Conn, error) {
	v, ok := fakeStates.Load(name)
	if !ok {
		return nil, errors.New("fake: unknown data source " + name)
	}
	state := v.(*fakeState)
	state.count(&state.opens)
	return &fakeConn{state: state}, nil
}

// fakeConn is a fake database connection.
type fakeConn struct {
	state  *fakeState
	closed bool
}

func (c *fakeConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("fake: prepare is not supported")
}

func (c *fakeConn) Close() error {
	if !c.closed {
		c.closed = true
		c.state.count(&c.state.closes)
	}
	return nil
}

func (c *fakeConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *fakeConn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	if c.state.beginErr != nil {
		return nil, c.state.beginErr
	}
	c.state.count(&c.state.begins)
	return &fakeTx{state: c.state}, nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.state.count(&c.state.pings)
	return c.state.pingErr
}

// CheckNamedValue accepts every argument, sql.Out included.
func (c *fakeConn) CheckNamedValue(*driver.NamedValue) error { return nil }

func (c *fakeConn) wait(ctx context.Context) error {
	if c.state.block {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (c *fakeConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.state.mu.Lock()
	c.state.execs = append(c.state.execs, fakeCall{query: query, args: args})
	c.state.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.state.execErr != nil {
		return nil, c.state.execErr
	}
	for _, arg := range args {
		out, ok := arg.Value.(sql.Out)
		if !ok || out.In {
			continue
		}
		*out.Dest.(*any) = "out" + strconv.Itoa(arg.Ordinal)
	}
	return fakeResult{affected: c.state.affected}, nil
}

func (c *fakeConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	c.state.mu.Lock()
	c.state.queries = append(c.state.queries, fakeCall{query: query, args: args})
	c.state.mu.Unlock()
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	if c.state.queryErr != nil {
		return nil, c.state.queryErr
	}
	sets := c.state.sets
	if len(sets) == 0 {
		sets = []fakeResultSet{{columns: []string{"value"}}}
	}
	return &fakeRows{state: c.state, sets: sets}, nil
}

// fakeTx is a fake transaction.
type fakeTx struct {
	state *fakeState
}

func (t *fakeTx) Commit() error {
	t.state.count(&t.state.commits)
	return nil
}

func (t *fakeTx) Rollback() error {
	t.state.count(&t.state.rolls)
	return nil
}

// fakeResult is a fake result.
type fakeResult struct {
	affected int64
}

func (r fakeResult) LastInsertId() (int64, error) { return 1, nil }

func (r fakeResult) RowsAffected() (int64, error) { return r.affected, nil }

// fakeRows walks the configured result sets.
type fakeRows struct {
	state  *fakeState
	sets   []fakeResultSet
	set    int
	row    int
	closed bool
}

func (r *fakeRows) Columns() []string { return r.sets[r.set].columns }

func (r *fakeRows) Close() error {
	if !r.closed {
		r.closed = true
		r.state.count(&r.state.rowsClosed)
	}
	return nil
}

func (r *fakeRows) Next(dest []driver.Value) error {
	rows := r.sets[r.set].rows
	if r.row >= len(rows) {
		return io.EOF
	}
	copy(dest, rows[r.row])
	r.row++
	return nil
}

func (r *fakeRows) HasNextResultSet() bool { return r.set+1 < len(r.sets) }

func (r *fakeRows) NextResultSet() error {
	if !r.HasNextResultSet() {
		return io.EOF
	}
	r.set++
	r.row = 0
	return nil
}

// fakeProvider is a provider over the fake driver with "?" placeholders.
type fakeProvider struct{}

func (fakeProvider) Name() string       { return "fake" }
func (fakeProvider) DriverName() string { return "fake" }
func (fakeProvider) ConnectionString(params ConnectionParameters) (string, error) {
	return params.ConnectionString, nil
}
func (fakeProvider) ParameterPrefix() string              { return "@" }
func (fakeProvider) DecorateCommand(*fdriver.CommandSpec) {}
func (fakeProvider) Translator() fdriver.Translator       { return fdriver.QuestionTranslator() }

// namedFakeProvider binds parameters by name.
type namedFakeProvider struct{ fakeProvider }

func (namedFakeProvider) Name() string { return "fake-named" }
func (namedFakeProvider) DecorateCommand(cmd *fdriver.CommandSpec) {
	cmd.BindByName = true
}

// mappingFakeProvider maps parameter types and refuses GUIDs.
type mappingFakeProvider struct{ fakeProvider }

var errNoGuid = errors.New("fake: guid is not supported")

func (mappingFakeProvider) Name() string { return "fake-mapping" }
func (mappingFakeProvider) MapParameterType(t fdriver.DbType) (any, error) {
	switch t {
	case fdriver.TypeGuid:
		return nil, errNoGuid
	case fdriver.TypeInt32:
		return driver.Int32, nil
	default:
		return nil, nil
	}
}

// callFakeProvider calls procedures with EXEC.
type callFakeProvider struct{ fakeProvider }

func (callFakeProvider) Name() string { return "fake-exec" }
func (callFakeProvider) CallText(name string, placeholders []string) string {
	return "EXEC " + name + " " + strings.Join(placeholders, ", ")
}

// newTestEngine returns an engine over the fake driver that keeps no idle
// connections, so every released connection is closed in the driver.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeState, ConnectionParameters) {
	t.Helper()
	state, dsn := newFakeState(t)
	registry := fdriver.New()
	registry.Register(fakeProvider{})
	registry.Register(namedFakeProvider{})
	registry.Register(mappingFakeProvider{})
	registry.Register(callFakeProvider{})
	noIdle := 0
	opts = append([]Option{WithPoolOptions(fdriver.PoolOptions{MaxIdleConns: &noIdle})}, opts...)
	engine := New(registry, opts...)
	t.Cleanup(func() { _ = engine.Close() })
	return engine, state, ConnectionParameters{Name: "test", Provider: "fake", ConnectionString: dsn}
}

func newTestSession(t *testing.T, opts ...Option) (*Session, *fakeState) {
	t.Helper()
	engine, state, params := newTestEngine(t, opts...)
	s, err := engine.CreateSession(params)
	if err != nil {
		t.Fatal(err)
	}
	return s, state
}
