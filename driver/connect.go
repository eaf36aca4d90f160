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

package driver

import (
	"database/sql"
	"time"
)

// PoolOptions limits the *sql.DB opened for a provider and data source.
// Zero fields keep the database/sql defaults.
type PoolOptions struct {
	// MaxIdleConns caps idle connections when set. Zero keeps none idle.
	MaxIdleConns    *int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Open opens the pool of driverName for dsn and applies opts.
// No connection is made until the pool is used.
func Open(driverName, dsn string, opts PoolOptions) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	opts.apply(db)
	return db, nil
}

func (o PoolOptions) apply(db *sql.DB) {
	if o.MaxIdleConns != nil {
		db.SetMaxIdleConns(*o.MaxIdleConns)
	}
	if o.MaxOpenConns > 0 {
		db.SetMaxOpenConns(o.MaxOpenConns)
	}
	if o.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(o.ConnMaxLifetime)
	}
	if o.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(o.ConnMaxIdleTime)
	}
}
