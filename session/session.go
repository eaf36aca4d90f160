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

package session

import (
	"context"
	"database/sql"
)

// Session is what a command runs on: either a dedicated connection
// or the transaction that owns it.
type Session interface {
	// QueryContext executes the query and returns the direct result.
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)

	// ExecContext executes a query without returning any rows.
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

var (
	// ensure that the sql.Conn implements the Session interface.
	_ Session = (*sql.Conn)(nil)

	// ensure that the sql.Tx implements the Session interface.
	_ Session = (*sql.Tx)(nil)
)
