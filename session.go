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

// Session sequences connection acquisition, command creation and teardown
// for one provider. It holds at most one connection and one command.
// Terminal operations on the command close the session, which can then be
// used again: the next command opens a fresh connection.
//
// A Session is not safe for concurrent use.
type Session struct {
	engine   *Engine
	provider driver.Provider
	name     string
	dsn      string

	// conn is either owned by the session or borrowed from borrowed.
	conn     *sql.Conn
	borrowed *TransactionContext

	cmd *Command
	log LogFunc
}

// Provider returns the provider the session was created for.
func (s *Session) Provider() driver.Provider { return s.provider }

// Name returns the connection name the session was created with.
func (s *Session) Name() string { return s.name }

// WithLog sets the callback receiving every successful command.
func (s *Session) WithLog(log LogFunc) *Session {
	s.log = log
	return s
}

// CreateCommand creates a command that runs on the session's own connection.
// A previously created command is disposed.
func (s *Session) CreateCommand(ctx context.Context, text string) (*Command, error) {
	return s.createCommand(ctx, nil, text)
}

// CreateTxCommand creates a command that runs inside tx. The connection
// stays owned by tx, closing the session does not close it.
// If tx is no longer active the command runs on a connection of its own.
func (s *Session) CreateTxCommand(ctx context.Context, tx *TransactionContext, text string) (*Command, error) {
	return s.createCommand(ctx, tx, text)
}

func (s *Session) createCommand(ctx context.Context, tx *TransactionContext, text string) (*Command, error) {
	if err := s.connect(ctx, tx); err != nil {
		return nil, err
	}
	s.disposeCommand()
	cmd := &Command{
		session: s,
		spec: driver.CommandSpec{
			Text:    text,
			Kind:    driver.Text,
			Timeout: s.engine.commandTimeout,
		},
	}
	s.provider.DecorateCommand(&cmd.spec)
	if tx.live() {
		cmd.tx = tx
	}
	s.cmd = cmd
	return cmd, nil
}

// CreateTransaction begins a transaction and hands the connection over to
// the returned context. The caller must Close it, after Complete on success.
func (s *Session) CreateTransaction(ctx context.Context, opts *sql.TxOptions) (*TransactionContext, error) {
	if err := s.connect(ctx, nil); err != nil {
		return nil, err
	}
	s.disposeCommand()
	tx, err := s.conn.BeginTx(ctx, opts)
	if err != nil {
		_ = s.Close()
		return nil, newError(KindConnection, "begin transaction", "", err)
	}
	t := newTransactionContext(s.conn, tx, s.log)
	s.conn = nil
	return t, nil
}

// connect makes sure the session has an open connection, borrowing the one
// of tx when tx is active.
func (s *Session) connect(ctx context.Context, tx *TransactionContext) error {
	if tx.live() {
		if s.borrowed == tx {
			return nil
		}
		_ = s.releaseConn()
		s.conn, s.borrowed = tx.conn, tx
		return nil
	}
	if s.conn != nil && s.borrowed == nil {
		return nil
	}
	s.conn, s.borrowed = nil, nil
	conn, err := s.engine.conn(ctx, s.provider.DriverName(), s.dsn)
	if err != nil {
		_ = s.Close()
		return newError(KindConnection, "open connection", "", err)
	}
	s.conn = conn
	return nil
}

// Close disposes the command and closes the connection unless it belongs
// to a transaction. Close is idempotent.
func (s *Session) Close() error {
	s.disposeCommand()
	return s.releaseConn()
}

func (s *Session) releaseConn() error {
	conn, borrowed := s.conn, s.borrowed
	s.conn, s.borrowed = nil, nil
	if conn == nil || borrowed != nil {
		return nil
	}
	if err := conn.Close(); err != nil {
		return newError(KindConnection, "close connection", "", err)
	}
	return nil
}

// handOver disposes the current command and detaches the connection from
// the session. The returned function closes that connection unless it
// belongs to a transaction. The session opens a new connection for its next
// command.
func (s *Session) handOver() func() error {
	conn, borrowed := s.conn, s.borrowed
	s.disposeCommand()
	s.conn, s.borrowed = nil, nil
	return func() error {
		if conn == nil || borrowed != nil {
			return nil
		}
		if err := conn.Close(); err != nil {
			return newError(KindConnection, "close connection", "", err)
		}
		return nil
	}
}

func (s *Session) disposeCommand() {
	if s.cmd == nil {
		return
	}
	s.cmd.disposed = true
	s.cmd.params = nil
	s.cmd = nil
}

func (s *Session) logCommand(tx *TransactionContext, rendered string) {
	if s.log != nil {
		s.log(commandLogMessage(tx, rendered))
	}
}
