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

package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/eatmoreapple/fluentdb"
	"github.com/eatmoreapple/fluentdb/config"
)

// formatValue prints a database value the way a terminal user expects.
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(x)
	}
}

// writeTables prints each table as aligned columns, tables separated by a blank line.
func writeTables(w io.Writer, ds *fluentdb.DataSet) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, table := range ds.Tables {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		for j, column := range table.Columns {
			if j > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, column)
		}
		fmt.Fprintln(tw)
		for _, row := range table.Rows {
			for j, v := range row {
				if j > 0 {
					fmt.Fprint(tw, "\t")
				}
				fmt.Fprint(tw, formatValue(v))
			}
			fmt.Fprintln(tw)
		}
	}
	return tw.Flush()
}

// writeWorkbook stores every table on its own sheet, header row first.
func writeWorkbook(ds *fluentdb.DataSet, path string) (err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	for i, table := range ds.Tables {
		if i == 0 {
			if err = f.SetSheetName("Sheet1", table.Name); err != nil {
				return err
			}
		} else if _, err = f.NewSheet(table.Name); err != nil {
			return err
		}
		header := make([]any, len(table.Columns))
		for j, column := range table.Columns {
			header[j] = column
		}
		if err = f.SetSheetRow(table.Name, "A1", &header); err != nil {
			return err
		}
		for r, row := range table.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			values := make([]any, len(row))
			for j, v := range row {
				if b, ok := v.([]byte); ok {
					v = string(b)
				}
				values[j] = v
			}
			if err = f.SetSheetRow(table.Name, cell, &values); err != nil {
				return err
			}
		}
	}
	return f.SaveAs(path)
}

// newLogger logs to stderr and, when a file is configured, to a rotated file.
func newLogger(cfg config.Log, verbose bool) (*zap.Logger, error) {
	level := zapcore.WarnLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, err
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(os.Stderr), level),
	}
	if cfg.File != "" {
		fileSyncer := zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    orDefault(cfg.MaxSize, 10), // megabytes
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAge, 7), // days
			Compress:   true,
		})
		fileEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(fileEncoder, fileSyncer, level))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
