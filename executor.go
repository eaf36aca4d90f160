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

package fluentdb

import (
	"context"
	"database/sql"

	"github.com/eatmoreapple/fluentdb/driver"
)

// run executes fn with the command timeout applied. The command is rendered
// before execution, logged on success and wrapped into the error on
// failure. The session is closed when run returns.
func (c *Command) run(ctx context.Context, op string, fn func(ctx context.Context, query string, args []any) error) error {
	if err := c.ready(op); err != nil {
		return err
	}
	defer func() { _ = c.session.Close() }()
	rendered := c.String()
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	query, args := c.compile()
	if err := fn(ctx, query, args); err != nil {
		return newError(KindExecution, op, rendered, err)
	}
	c.session.logCommand(c.tx, rendered)
	return nil
}

func (c *Command) nonQuery(ctx context.Context, op string) (int64, error) {
	var affected int64
	err := c.run(ctx, op, func(ctx context.Context, query string, args []any) error {
		result, err := c.exec(ctx, query, args)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	return affected, err
}

// ExecuteUpdate runs the command and returns the number of affected rows.
func (c *Command) ExecuteUpdate(ctx context.Context) (int64, error) {
	return c.nonQuery(ctx, "execute update")
}

// ExecuteInsert runs the command and returns the number of affected rows.
func (c *Command) ExecuteInsert(ctx context.Context) (int64, error) {
	return c.nonQuery(ctx, "execute insert")
}

// ExecuteDelete runs the command and returns the number of affected rows.
func (c *Command) ExecuteDelete(ctx context.Context) (int64, error) {
	return c.nonQuery(ctx, "execute delete")
}

// ExecuteStoredProcedureRowCount calls the procedure named by the command
// text and returns the number of affected rows.
func (c *Command) ExecuteStoredProcedureRowCount(ctx context.Context) (int64, error) {
	if c.ready("execute stored procedure") == nil {
		c.spec.Kind = driver.StoredProcedure
	}
	return c.nonQuery(ctx, "execute stored procedure")
}

// ExecuteStoredProcedure calls the procedure named by the command text and
// returns the parameters the database wrote back: those with direction
// Output, InputOutput or ReturnValue.
func (c *Command) ExecuteStoredProcedure(ctx context.Context) ([]*Parameter, error) {
	const op = "execute stored procedure"
	if c.ready(op) == nil {
		c.spec.Kind = driver.StoredProcedure
	}
	var outputs []*Parameter
	err := c.run(ctx, op, func(ctx context.Context, query string, args []any) error {
		if _, err := c.exec(ctx, query, args); err != nil {
			return err
		}
		for _, p := range c.params {
			if p.direction.IsOutput() {
				outputs = append(outputs, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outputs, nil
}

// GetDataSet runs the command and buffers every result set.
func (c *Command) GetDataSet(ctx context.Context) (*DataSet, error) {
	var ds *DataSet
	err := c.run(ctx, "get data set", func(ctx context.Context, query string, args []any) error {
		rows, err := c.query(ctx, query, args)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		ds, err = c.session.engine.dataAdapter(c.session.provider.Name()).Fill(ctx, rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// ExecuteScalar runs the command and returns the first column of the first
// row converted to T. No row at all is an error wrapping sql.ErrNoRows.
func ExecuteScalar[T any](ctx context.Context, cmd *Command) (T, error) {
	var result T
	err := cmd.run(ctx, "execute scalar", func(ctx context.Context, query string, args []any) error {
		rows, err := cmd.query(ctx, query, args)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err = rows.Err(); err != nil {
				return err
			}
			return sql.ErrNoRows
		}
		columns, err := rows.Columns()
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			return errNoColumns
		}
		dest := make([]any, len(columns))
		dest[0] = &result
		for i := 1; i < len(dest); i++ {
			dest[i] = new(any)
		}
		if err = rows.Scan(dest...); err != nil {
			return err
		}
		return rows.Close()
	})
	return result, err
}

// ExecuteDataReader runs the command and projects every row with project.
func ExecuteDataReader[T any](ctx context.Context, cmd *Command, project func(Record) (T, error)) ([]T, error) {
	const op = "execute data reader"
	if err := cmd.ready(op); err != nil {
		return nil, err
	}
	if project == nil {
		_ = cmd.session.Close()
		return nil, newError(KindSessionState, op, "", errNilProjection)
	}
	var items []T
	err := cmd.run(ctx, op, func(ctx context.Context, query string, args []any) error {
		rows, err := cmd.query(ctx, query, args)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			item, err := project(rows)
			if err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ExecuteDataReaderStream runs the command and returns a forward-only
// stream projecting one row at a time. The stream takes over the session's
// connection and releases it when it is exhausted, fails or is closed, so the
// session can create new commands while the stream is open.
func ExecuteDataReaderStream[T any](ctx context.Context, cmd *Command, project func(Record) (T, error)) (*Stream[T], error) {
	const op = "execute data reader"
	if err := cmd.ready(op); err != nil {
		return nil, err
	}
	if project == nil {
		_ = cmd.session.Close()
		return nil, newError(KindSessionState, op, "", errNilProjection)
	}
	rendered := cmd.String()
	ctx, cancel := cmd.withTimeout(ctx)
	query, args := cmd.compile()
	rows, err := cmd.query(ctx, query, args)
	if err != nil {
		cancel()
		_ = cmd.session.Close()
		return nil, newError(KindExecution, op, rendered, err)
	}
	cmd.session.logCommand(cmd.tx, rendered)
	closeConn := cmd.session.handOver()
	return &Stream[T]{
		rows:     rows,
		project:  project,
		rendered: rendered,
		release: func() error {
			cancel()
			return closeConn()
		},
	}, nil
}
