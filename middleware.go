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
	"time"

	"go.uber.org/zap"
)

// QueryHandler runs a query on the command's connection or transaction.
type QueryHandler func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

// ExecHandler runs a statement on the command's connection or transaction.
type ExecHandler func(ctx context.Context, query string, args ...any) (sql.Result, error)

// Middleware is a wrapper of QueryHandler and ExecHandler.
type Middleware interface {
	// QueryContext wraps the QueryHandler.
	QueryContext(cmd *Command, next QueryHandler) QueryHandler
	// ExecContext wraps the ExecHandler.
	ExecContext(cmd *Command, next ExecHandler) ExecHandler
}

// ensure MiddlewareGroup implements Middleware.
var _ Middleware = MiddlewareGroup(nil) // compile time check

// MiddlewareGroup is a group of Middleware.
type MiddlewareGroup []Middleware

// QueryContext implements Middleware.
// Call QueryContext will call all the QueryContext of the middlewares in the group.
func (m MiddlewareGroup) QueryContext(cmd *Command, next QueryHandler) QueryHandler {
	for _, middleware := range m {
		next = middleware.QueryContext(cmd, next)
	}
	return next
}

// ExecContext implements Middleware.
// Call ExecContext will call all the ExecContext of the middlewares in the group.
func (m MiddlewareGroup) ExecContext(cmd *Command, next ExecHandler) ExecHandler {
	for _, middleware := range m {
		next = middleware.ExecContext(cmd, next)
	}
	return next
}

// ensure DebugMiddleware implements Middleware.
var _ Middleware = (*DebugMiddleware)(nil) // compile time check

// DebugMiddleware logs the statement as sent to the driver, its arguments
// and the execution time at debug level.
type DebugMiddleware struct {
	Logger *zap.Logger
}

// QueryContext implements Middleware.
func (m *DebugMiddleware) QueryContext(cmd *Command, next QueryHandler) QueryHandler {
	if !m.enabled() {
		return next
	}
	return func(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
		start := time.Now()
		rows, err := next(ctx, query, args...)
		m.log(cmd, query, args, time.Since(start), err)
		return rows, err
	}
}

// ExecContext implements Middleware.
func (m *DebugMiddleware) ExecContext(cmd *Command, next ExecHandler) ExecHandler {
	if !m.enabled() {
		return next
	}
	return func(ctx context.Context, query string, args ...any) (sql.Result, error) {
		start := time.Now()
		result, err := next(ctx, query, args...)
		m.log(cmd, query, args, time.Since(start), err)
		return result, err
	}
}

func (m *DebugMiddleware) enabled() bool {
	return m.Logger != nil && m.Logger.Core().Enabled(zap.DebugLevel)
}

func (m *DebugMiddleware) log(cmd *Command, query string, args []any, spent time.Duration, err error) {
	fields := []zap.Field{
		zap.String("provider", cmd.session.provider.Name()),
		zap.Stringer("kind", cmd.spec.Kind),
		zap.String("query", query),
		zap.Any("args", args),
		zap.Duration("spent", spent),
	}
	if cmd.tx != nil {
		fields = append(fields, zap.String("transaction", cmd.tx.ID()))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	m.Logger.Debug("execute", fields...)
}
