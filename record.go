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
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/reflectx"
)

// Record is the current row of a data reader. *sql.Rows satisfies it, and
// so does any sqlx.ColScanner.
type Record interface {
	Columns() ([]string, error)
	Scan(dest ...any) error
	Err() error
}

var _ sqlx.ColScanner = Record(nil)

// structMapper maps columns to struct fields the way sqlx does by default:
// the "db" tag, or else the lower-cased field name.
var structMapper = reflectx.NewMapperFunc("db", strings.ToLower)

var errNotRows = errors.New("record is not backed by *sql.Rows")

// GetValue reads one column of the current row converted to T.
// NULL yields the zero value of T. The column is looked up by exact name
// first and case-insensitively after that.
func GetValue[T any](rec Record, column string) (T, error) {
	var zero T
	columns, err := rec.Columns()
	if err != nil {
		return zero, err
	}
	index := columnIndex(columns, column)
	if index < 0 {
		return zero, fmt.Errorf("column %q not found", column)
	}
	dest := make([]any, len(columns))
	for i := range dest {
		dest[i] = new(any)
	}
	var value sql.Null[T]
	dest[index] = &value
	if err = rec.Scan(dest...); err != nil {
		return zero, fmt.Errorf("column %q: %w", column, err)
	}
	return value.V, nil
}

func columnIndex(columns []string, column string) int {
	for i, name := range columns {
		if name == column {
			return i
		}
	}
	for i, name := range columns {
		if strings.EqualFold(name, column) {
			return i
		}
	}
	return -1
}

// ScanStruct projects the current row onto a struct, matching columns to
// fields by "db" tag or lower-cased field name. Every column needs a field.
func ScanStruct[T any](rec Record) (T, error) {
	var value T
	rows, ok := rec.(*sql.Rows)
	if !ok {
		return value, errNotRows
	}
	r := &sqlx.Rows{Rows: rows, Mapper: structMapper}
	err := r.StructScan(&value)
	return value, err
}

// ScanMap projects the current row onto a map keyed by column name.
func ScanMap(rec Record) (map[string]any, error) {
	row := make(map[string]any)
	if err := sqlx.MapScan(rec, row); err != nil {
		return nil, err
	}
	return row, nil
}
