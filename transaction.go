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
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// TransactionState is the state of a TransactionContext.
type TransactionState int

const (
	TransactionActive TransactionState = iota
	TransactionCompleted
	TransactionRolledBack
)

func (s TransactionState) String() string {
	switch s {
	case TransactionActive:
		return "Active"
	case TransactionCompleted:
		return "Completed"
	default:
		return "RolledBack"
	}
}

// TransactionContext owns a database transaction and the connection it
// runs on. It ends either with Complete, which commits, or with Close
// without Complete, which rolls back. Either way the connection is
// released exactly once. A TransactionContext is not safe for concurrent use.
type TransactionContext struct {
	id    string
	conn  *sql.Conn
	tx    *sql.Tx
	state TransactionState
	log   LogFunc
}

func newTransactionContext(conn *sql.Conn, tx *sql.Tx, log LogFunc) *TransactionContext {
	t := &TransactionContext{
		id:   uuid.NewString(),
		conn: conn,
		tx:   tx,
		log:  log,
	}
	t.logEvent("Begin")
	return t
}

// ID identifies the transaction in log output.
func (t *TransactionContext) ID() string { return t.id }

// State returns the current state.
func (t *TransactionContext) State() TransactionState { return t.state }

// live reports whether commands may still run on the transaction.
func (t *TransactionContext) live() bool {
	return t != nil && t.state == TransactionActive
}

// Complete commits the transaction and releases the connection.
// A failed commit leaves the transaction rolled back.
func (t *TransactionContext) Complete() error {
	if t.state != TransactionActive {
		return newError(KindTransactionState, "complete transaction", "", errTransactionFinished)
	}
	if err := t.tx.Commit(); err != nil {
		t.state = TransactionRolledBack
		return errors.Join(newError(KindExecution, "commit transaction", "", err), t.release())
	}
	t.state = TransactionCompleted
	t.logEvent("Commit")
	return t.release()
}

// Close rolls back the transaction unless it was completed, then releases
// the connection. Calling Close after Complete, or twice, does nothing.
func (t *TransactionContext) Close() error {
	if t.state != TransactionActive {
		return nil
	}
	t.state = TransactionRolledBack
	var rollbackErr error
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		rollbackErr = newError(KindExecution, "rollback transaction", "", err)
	} else {
		t.logEvent("Rollback")
	}
	return errors.Join(rollbackErr, t.release())
}

func (t *TransactionContext) release() error {
	if t.conn == nil {
		return nil
	}
	conn := t.conn
	t.conn = nil
	if err := conn.Close(); err != nil {
		return newError(KindConnection, "release connection", "", err)
	}
	return nil
}

func (t *TransactionContext) logEvent(event string) {
	if t.log != nil {
		t.log("Transaction: " + t.id + " - " + event)
	}
}
