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
	"iter"
)

// Stream is a forward-only sequence of projected rows.
// It holds the session's connection until it is exhausted, fails or is
// closed. Close is safe to call more than once.
type Stream[T any] struct {
	rows     *sql.Rows
	project  func(Record) (T, error)
	rendered string
	release  func() error

	current T
	err     error
	closed  bool
}

// Next advances to the next row. It returns false at the end of the
// stream or on error, and the stream is closed in both cases.
func (s *Stream[T]) Next() bool {
	if s.closed {
		return false
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			s.err = newError(KindExecution, "read data reader", s.rendered, err)
		}
		_ = s.Close()
		return false
	}
	item, err := s.project(s.rows)
	if err != nil {
		s.err = newError(KindExecution, "read data reader", s.rendered, err)
		_ = s.Close()
		return false
	}
	s.current = item
	return true
}

// Value returns the row read by the last successful Next.
func (s *Stream[T]) Value() T { return s.current }

// Err returns the error that ended the stream, if any.
func (s *Stream[T]) Err() error { return s.err }

// Close releases the rows and the connection.
func (s *Stream[T]) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.Join(s.rows.Close(), s.release())
}

// All returns the remaining rows as an iterator. Breaking out of the loop
// closes the stream. An error is yielded once, as the last element.
func (s *Stream[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer func() { _ = s.Close() }()
		for s.Next() {
			if !yield(s.current, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}
