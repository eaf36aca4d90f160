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
	"strconv"

	"github.com/jmoiron/sqlx"
)

// DataSet holds every result set of a command, buffered in memory.
type DataSet struct {
	Tables []*DataTable
}

// Table returns the table at index i, or nil.
func (d *DataSet) Table(i int) *DataTable {
	if i < 0 || i >= len(d.Tables) {
		return nil
	}
	return d.Tables[i]
}

// DataTable is one buffered result set. Tables are named Table, Table1,
// Table2 and so on in the order the database returned them.
type DataTable struct {
	Name    string
	Columns []string
	Rows    [][]any
}

// Value returns the value of column in row, and whether both exist.
func (t *DataTable) Value(row int, column string) (any, bool) {
	if row < 0 || row >= len(t.Rows) {
		return nil, false
	}
	index := columnIndex(t.Columns, column)
	if index < 0 {
		return nil, false
	}
	return t.Rows[row][index], true
}

// DataAdapter fills a DataSet from open rows.
type DataAdapter interface {
	Fill(ctx context.Context, rows *sql.Rows) (*DataSet, error)
}

// DataAdapterFunc is a function type of DataAdapter.
type DataAdapterFunc func(ctx context.Context, rows *sql.Rows) (*DataSet, error)

// Fill implements DataAdapter.
func (f DataAdapterFunc) Fill(ctx context.Context, rows *sql.Rows) (*DataSet, error) {
	return f(ctx, rows)
}

var defaultDataAdapter DataAdapter = DataAdapterFunc(fillDataSet)

func fillDataSet(ctx context.Context, rows *sql.Rows) (*DataSet, error) {
	ds := &DataSet{}
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		columns, err := rows.Columns()
		if err != nil {
			return nil, err
		}
		table := &DataTable{Name: tableName(i), Columns: columns}
		for rows.Next() {
			values, err := sqlx.SliceScan(rows)
			if err != nil {
				return nil, err
			}
			table.Rows = append(table.Rows, values)
		}
		if err = rows.Err(); err != nil {
			return nil, err
		}
		ds.Tables = append(ds.Tables, table)
		if !rows.NextResultSet() {
			break
		}
	}
	return ds, rows.Err()
}

func tableName(i int) string {
	if i == 0 {
		return "Table"
	}
	return "Table" + strconv.Itoa(i)
}
