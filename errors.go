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
	"errors"
	"strings"
)

// Kind classifies an Error.
type Kind uint8

const (
	// KindProviderResolution means no provider matched the identifier.
	KindProviderResolution Kind = iota + 1
	// KindConnection means the connection could not be created, opened or started.
	KindConnection
	// KindSessionState means an operation was called out of order.
	KindSessionState
	// KindParameterCreation means a parameter could not be built.
	KindParameterCreation
	// KindExecution means the driver failed while running a command.
	KindExecution
	// KindTransactionState means a transaction was completed twice or after rollback.
	KindTransactionState
)

func (k Kind) String() string {
	switch k {
	case KindProviderResolution:
		return "provider resolution"
	case KindConnection:
		return "connection"
	case KindSessionState:
		return "session state"
	case KindParameterCreation:
		return "parameter creation"
	case KindExecution:
		return "execution"
	case KindTransactionState:
		return "transaction state"
	default:
		return "unknown"
	}
}

// Kind sentinels, for use with errors.Is.
var (
	ErrProviderResolution = &Error{Kind: KindProviderResolution}
	ErrConnection         = &Error{Kind: KindConnection}
	ErrSessionState       = &Error{Kind: KindSessionState}
	ErrParameterCreation  = &Error{Kind: KindParameterCreation}
	ErrExecution          = &Error{Kind: KindExecution}
	ErrTransactionState   = &Error{Kind: KindTransactionState}
)

var (
	errNoCommand           = errors.New("no command is bound to the session")
	errNilProjection       = errors.New("projection is nil")
	errNoColumns           = errors.New("query returned no columns")
	errTransactionFinished = errors.New("transaction has already been completed or rolled back")
)

// Error is the error type returned by every operation of this package.
type Error struct {
	Kind Kind

	// Op is the operation that failed, e.g. "execute insert".
	Op string

	// Command is the rendered command text, if a command was involved.
	Command string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("fluentdb: ")
	if e.Op != "" {
		sb.WriteString(e.Op)
	} else {
		sb.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if e.Command != "" {
		sb.WriteString(" [command: ")
		sb.WriteString(e.Command)
		sb.WriteString("]")
	}
	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches kind sentinels: an Error with only Kind set matches every
// Error of that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op == "" && t.Command == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// IsKind reports whether any error in err's chain is an Error of kind k.
func IsKind(err error, k Kind) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Kind == k {
			return true
		}
		err = e.Err
	}
	return false
}

func newError(kind Kind, op, command string, err error) *Error {
	return &Error{Kind: kind, Op: op, Command: command, Err: err}
}
