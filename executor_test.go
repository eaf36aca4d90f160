package fluentdb

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

func usersResult() []fakeResultSet {
	return []fakeResultSet{{
		columns: []string{"id", "name"},
		rows: [][]sqldriver.Value{
			{int64(1), "ann"},
			{int64(2), nil},
			{int64(3), "cid"},
		},
	}}
}

func projectUser(rec Record) (user, error) {
	id, err := GetValue[int64](rec, "id")
	if err != nil {
		return user{}, err
	}
	name, err := GetValue[string](rec, "NAME")
	if err != nil {
		return user{}, err
	}
	return user{ID: id, Name: name}, nil
}

func TestExecuteScalar(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = []fakeResultSet{{columns: []string{"count", "extra"}, rows: [][]sqldriver.Value{{int64(3), "x"}}}}
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT COUNT(*), 'x' FROM t WHERE a = @a")
	require.NoError(t, err)
	n, err := ExecuteScalar[int](ctx, cmd.AddParameter("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	counts := state.snapshot()
	assert.Equal(t, "SELECT COUNT(*), 'x' FROM t WHERE a = ?", counts.queries[0].query)
	assert.Equal(t, 1, counts.rowsClosed)
	assert.Equal(t, 1, counts.closes)
}

func TestExecuteScalarNoRows(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = []fakeResultSet{{columns: []string{"id"}}}
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id FROM t")
	require.NoError(t, err)
	_, err = ExecuteScalar[int64](ctx, cmd)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestExecuteScalarConversionFailure(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = []fakeResultSet{{columns: []string{"v"}, rows: [][]sqldriver.Value{{"abc"}}}}
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT v FROM t")
	require.NoError(t, err)
	_, err = ExecuteScalar[int](ctx, cmd)
	assert.ErrorIs(t, err, ErrExecution)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestExecuteDataReader(t *testing.T) {
	var messages []string
	s, state := newTestSession(t)
	s.WithLog(func(m string) { messages = append(messages, m) })
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	users, err := ExecuteDataReader(ctx, cmd, projectUser)
	require.NoError(t, err)
	assert.Equal(t, []user{{1, "ann"}, {2, ""}, {3, "cid"}}, users)
	assert.Equal(t, []string{" - SELECT id, name FROM users"}, messages)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestExecuteDataReaderScanStruct(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = []fakeResultSet{{
		columns: []string{"id", "name"},
		rows:    [][]sqldriver.Value{{int64(1), "ann"}, {int64(2), "bob"}},
	}}
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	users, err := ExecuteDataReader(ctx, cmd, ScanStruct[user])
	require.NoError(t, err)
	assert.Equal(t, []user{{1, "ann"}, {2, "bob"}}, users)
}

func TestExecuteDataReaderScanMap(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	rows, err := ExecuteDataReader(ctx, cmd, ScanMap)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, map[string]any{"id": int64(1), "name": "ann"}, rows[0])
	assert.Nil(t, rows[1]["name"])
}

func TestExecuteDataReaderProjectionFailure(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	boom := errors.New("boom")
	_, err = ExecuteDataReader(ctx, cmd, func(Record) (user, error) { return user{}, boom })
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, boom)
	counts := state.snapshot()
	assert.Equal(t, 1, counts.rowsClosed)
	assert.Equal(t, 1, counts.closes)
}

func TestExecuteDataReaderNilProjection(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT 1")
	require.NoError(t, err)
	_, err = ExecuteDataReader[user](ctx, cmd, nil)
	assert.ErrorIs(t, err, ErrSessionState)
	counts := state.snapshot()
	assert.Equal(t, 1, counts.closes)
	assert.Empty(t, counts.queries)
}

func TestGetValueMissingColumn(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	_, err = ExecuteDataReader(ctx, cmd, func(rec Record) (string, error) {
		return GetValue[string](rec, "email")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "email" not found`)
}

func TestExecuteDataReaderStream(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, projectUser)
	require.NoError(t, err)
	assert.Zero(t, state.snapshot().closes, "nothing is released before the stream is read")

	var ids []int64
	for stream.Next() {
		ids = append(ids, stream.Value().ID)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []int64{1, 2, 3}, ids)

	counts := state.snapshot()
	assert.Equal(t, 1, counts.rowsClosed)
	assert.Equal(t, 1, counts.closes)

	require.NoError(t, stream.Close())
	assert.False(t, stream.Next())
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestExecuteDataReaderStreamEarlyBreak(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, projectUser)
	require.NoError(t, err)

	var first user
	for u, err := range stream.All() {
		require.NoError(t, err)
		first = u
		break
	}
	assert.Equal(t, user{1, "ann"}, first)

	counts := state.snapshot()
	assert.Equal(t, 1, counts.rowsClosed)
	assert.Equal(t, 1, counts.closes)
}

func TestExecuteDataReaderStreamError(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, func(rec Record) (int64, error) {
		id, err := GetValue[int64](rec, "id")
		if id == 2 {
			return 0, errors.New("bad row")
		}
		return id, err
	})
	require.NoError(t, err)

	var got []int64
	var last error
	for id, err := range stream.All() {
		if err != nil {
			last = err
			continue
		}
		got = append(got, id)
	}
	assert.Equal(t, []int64{1}, got)
	assert.ErrorIs(t, last, ErrExecution)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestExecuteDataReaderStreamQueryFailure(t *testing.T) {
	s, state := newTestSession(t)
	state.queryErr = errors.New("no such table")
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT * FROM nope")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, ScanMap)
	assert.Nil(t, stream)
	assert.ErrorIs(t, err, ErrExecution)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestGetDataSet(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = append(usersResult(), fakeResultSet{
		columns: []string{"total"},
		rows:    [][]sqldriver.Value{{int64(3)}},
	})
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users; SELECT COUNT(*) AS total FROM users")
	require.NoError(t, err)
	ds, err := cmd.GetDataSet(ctx)
	require.NoError(t, err)

	require.Len(t, ds.Tables, 2)
	assert.Equal(t, "Table", ds.Table(0).Name)
	assert.Equal(t, "Table1", ds.Table(1).Name)
	assert.Nil(t, ds.Table(2))
	assert.Equal(t, []string{"id", "name"}, ds.Table(0).Columns)
	assert.Len(t, ds.Table(0).Rows, 3)

	v, ok := ds.Table(1).Value(0, "TOTAL")
	assert.True(t, ok)
	assert.Equal(t, int64(3), v)
	_, ok = ds.Table(1).Value(1, "total")
	assert.False(t, ok)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestDataAdapterOverride(t *testing.T) {
	called := false
	adapter := DataAdapterFunc(func(ctx context.Context, rows *sql.Rows) (*DataSet, error) {
		called = true
		return &DataSet{}, nil
	})
	s, _ := newTestSession(t, WithDataAdapter("fake", adapter))
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT 1")
	require.NoError(t, err)
	ds, err := cmd.GetDataSet(ctx)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, ds.Tables)
}

func TestExecuteStoredProcedure(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "update_stock")
	require.NoError(t, err)
	cmd.AddParameterSpec(ParameterSpec{Name: "sku", Value: "A-1", Unprefixed: true}).
		AddParameterSpec(ParameterSpec{Name: "total", Direction: DirectionOutput, Unprefixed: true}).
		AddParameterSpec(ParameterSpec{Name: "qty", Value: 10, Direction: DirectionInputOutput, Unprefixed: true}).
		AddParameterSpec(ParameterSpec{Name: "status", Direction: DirectionReturnValue, Unprefixed: true})

	outputs, err := cmd.ExecuteStoredProcedure(ctx)
	require.NoError(t, err)

	var names []string
	values := map[string]any{}
	for _, p := range outputs {
		names = append(names, p.Name())
		values[p.Name()] = p.Value()
	}
	assert.Equal(t, []string{"total", "qty", "status"}, names)
	assert.Equal(t, "out2", values["total"])
	assert.Equal(t, 10, values["qty"])
	assert.Equal(t, "out4", values["status"])

	counts := state.snapshot()
	require.Len(t, counts.execs, 1)
	assert.Equal(t, "CALL update_stock(?, ?, ?, ?)", counts.execs[0].query)
	assert.Equal(t, 1, counts.closes)
}

func TestExecuteStoredProcedureCallText(t *testing.T) {
	engine, state, params := newTestEngine(t)
	params.Provider = "fake-exec"
	s, err := engine.CreateSession(params)
	require.NoError(t, err)
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "purge")
	require.NoError(t, err)
	state.affected = 4
	n, err := cmd.AddParameter("days", 30).ExecuteStoredProcedureRowCount(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Equal(t, "EXEC purge ?", state.snapshot().execs[0].query)
}

func TestTranslateLongestMatch(t *testing.T) {
	s, state := newTestSession(t)
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "UPDATE t SET b=@id10, c=@id_x WHERE a=@id AND d=@id")
	require.NoError(t, err)
	_, err = cmd.AddParameter("id", 7).AddParameter("id10", 42).ExecuteUpdate(ctx)
	require.NoError(t, err)

	call := state.snapshot().execs[0]
	assert.Equal(t, "UPDATE t SET b=?, c=@id_x WHERE a=? AND d=?", call.query)
	var args []any
	for _, arg := range call.args {
		args = append(args, arg.Value)
	}
	assert.Equal(t, []any{42, 7, 7}, args)
}

func TestBindByName(t *testing.T) {
	engine, state, params := newTestEngine(t)
	params.Provider = "fake-named"
	s, err := engine.CreateSession(params)
	require.NoError(t, err)
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "DELETE FROM t WHERE a=@a AND b=@b")
	require.NoError(t, err)
	_, err = cmd.AddParameter("a", 1).AddParameter("b", "x").ExecuteDelete(ctx)
	require.NoError(t, err)

	call := state.snapshot().execs[0]
	assert.Equal(t, "DELETE FROM t WHERE a=@a AND b=@b", call.query)
	require.Len(t, call.args, 2)
	assert.Equal(t, "a", call.args[0].Name)
	assert.Equal(t, "b", call.args[1].Name)
	assert.Equal(t, "x", call.args[1].Value)
}

func TestSetCommandTimeout(t *testing.T) {
	s, _ := newTestSession(t, WithCommandTimeout(30*time.Second))
	cmd, err := s.CreateCommand(context.Background(), "SELECT 1")
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, 30*time.Second, cmd.Timeout())
	assert.Equal(t, 30*time.Second, cmd.SetCommandTimeout(-1).Timeout())
	assert.Equal(t, 5*time.Second, cmd.SetCommandTimeout(5).Timeout())
	assert.Equal(t, 5*time.Second, cmd.SetCommandTimeout(-7).Timeout())
	assert.Equal(t, time.Duration(0), cmd.SetCommandTimeout(0).Timeout())
}

func TestCommandTimeoutIsApplied(t *testing.T) {
	s, state := newTestSession(t, WithCommandTimeout(20*time.Millisecond))
	state.block = true
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "UPDATE t SET x = 1")
	require.NoError(t, err)
	_, err = cmd.ExecuteUpdate(ctx)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestCallerCancellation(t *testing.T) {
	s, state := newTestSession(t)
	ctx, cancel := context.WithCancel(context.Background())

	cmd, err := s.CreateCommand(ctx, "UPDATE t SET x = 1")
	require.NoError(t, err)
	cancel()
	_, err = cmd.ExecuteUpdate(ctx)
	assert.ErrorIs(t, err, ErrExecution)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, state.snapshot().closes)
}

func TestStreamCloseKeepsLaterCommand(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	cmd, err := s.CreateCommand(ctx, "SELECT id, name FROM users")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, projectUser)
	require.NoError(t, err)
	assert.Nil(t, cmd.Parameters())

	update, err := s.CreateCommand(ctx, "UPDATE users SET name = @name")
	require.NoError(t, err)
	update.AddParameter("name", "ann")
	assert.Equal(t, 2, state.snapshot().opens, "the stream keeps its own connection")

	require.True(t, stream.Next())
	require.NoError(t, stream.Close())
	counts := state.snapshot()
	assert.Equal(t, 1, counts.closes)
	assert.Equal(t, 1, counts.rowsClosed)

	affected, err := update.ExecuteUpdate(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
	assert.Equal(t, 2, state.snapshot().closes)
}

func TestStreamInTransactionLeavesConnection(t *testing.T) {
	s, state := newTestSession(t)
	state.sets = usersResult()
	ctx := context.Background()

	tx, err := s.CreateTransaction(ctx, nil)
	require.NoError(t, err)
	cmd, err := s.CreateTxCommand(ctx, tx, "SELECT id, name FROM users")
	require.NoError(t, err)
	stream, err := ExecuteDataReaderStream(ctx, cmd, projectUser)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
	assert.Zero(t, state.snapshot().closes, "the transaction still owns the connection")

	update, err := s.CreateTxCommand(ctx, tx, "UPDATE users SET name = 'x'")
	require.NoError(t, err)
	_, err = update.ExecuteUpdate(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Complete())

	counts := state.snapshot()
	assert.Equal(t, 1, counts.opens)
	assert.Equal(t, 1, counts.commits)
	assert.Equal(t, 1, counts.closes)
}
