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
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eatmoreapple/fluentdb/driver"
)

// ConnectionParameters describes where a session connects to.
type ConnectionParameters = driver.ConnectionParameters

// Engine resolves providers and owns one *sql.DB pool per driver and data
// source. Sessions take dedicated connections from those pools.
type Engine struct {
	registry    *driver.Registry
	logger      *zap.Logger
	middlewares MiddlewareGroup
	adapters    map[string]DataAdapter
	pool        driver.PoolOptions

	// commandTimeout is applied to every new command, zero means none.
	commandTimeout time.Duration

	// log is the default LogFunc of new sessions.
	log LogFunc

	mu  sync.Mutex
	dbs map[poolKey]*sql.DB
}

type poolKey struct {
	driverName string
	dsn        string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the zap logger used by the debug middleware.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMiddlewares appends middlewares around every driver call.
func WithMiddlewares(middlewares ...Middleware) Option {
	return func(e *Engine) { e.middlewares = append(e.middlewares, middlewares...) }
}

// WithPoolOptions sets the limits of every opened *sql.DB.
func WithPoolOptions(opts driver.PoolOptions) Option {
	return func(e *Engine) { e.pool = opts }
}

// WithCommandTimeout sets the default timeout of new commands.
func WithCommandTimeout(timeout time.Duration) Option {
	return func(e *Engine) { e.commandTimeout = timeout }
}

// WithDataAdapter overrides how data sets are filled for one provider.
func WithDataAdapter(provider string, adapter DataAdapter) Option {
	return func(e *Engine) { e.adapters[provider] = adapter }
}

// WithLog sets the LogFunc new sessions start with.
func WithLog(log LogFunc) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an Engine on top of a provider registry.
func New(registry *driver.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   zap.NewNop(),
		adapters: make(map[string]DataAdapter),
		dbs:      make(map[poolKey]*sql.DB),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.middlewares = append(MiddlewareGroup{&DebugMiddleware{Logger: e.logger}}, e.middlewares...)
	return e
}

// Registry returns the provider registry.
func (e *Engine) Registry() *driver.Registry { return e.registry }

// Logger returns the engine logger.
func (e *Engine) Logger() *zap.Logger { return e.logger }

// CreateSession resolves the provider and builds the connection string.
// No connection is opened until the first command or transaction.
func (e *Engine) CreateSession(params ConnectionParameters) (*Session, error) {
	provider, err := e.registry.Resolve(params.Provider)
	if err != nil {
		return nil, newError(KindProviderResolution, "create session", "", err)
	}
	dsn, err := provider.ConnectionString(params)
	if err != nil {
		return nil, newError(KindConnection, "create session", "", err)
	}
	return &Session{
		engine:   e,
		provider: provider,
		name:     params.Name,
		dsn:      dsn,
		log:      e.log,
	}, nil
}

// conn takes a dedicated connection from the pool and checks it is alive.
func (e *Engine) conn(ctx context.Context, driverName, dsn string) (*sql.Conn, error) {
	db, err := e.db(driverName, dsn)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	if err = conn.PingContext(ctx); err != nil {
		return nil, errors.Join(err, conn.Close())
	}
	return conn, nil
}

func (e *Engine) db(driverName, dsn string) (*sql.DB, error) {
	key := poolKey{driverName: driverName, dsn: dsn}
	e.mu.Lock()
	defer e.mu.Unlock()
	if db, ok := e.dbs[key]; ok {
		return db, nil
	}
	db, err := driver.Open(driverName, dsn, e.pool)
	if err != nil {
		return nil, err
	}
	e.dbs[key] = db
	e.logger.Debug("pool opened", zap.String("driver", driverName))
	return db, nil
}

func (e *Engine) dataAdapter(provider string) DataAdapter {
	if adapter, ok := e.adapters[provider]; ok {
		return adapter
	}
	return defaultDataAdapter
}

// Close closes every pool the engine opened.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for key, db := range e.dbs {
		errs = append(errs, db.Close())
		delete(e.dbs, key)
	}
	return errors.Join(errs...)
}
