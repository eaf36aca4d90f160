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
	// sqlite registers itself as "sqlite".
	_ "modernc.org/sqlite"
)

// SQLiteProvider is the provider of SQLite, backed by modernc.org/sqlite.
// Parameters are passed by name, the driver resolves "@name" itself.
type SQLiteProvider struct{}

// Name implements Provider.
func (SQLiteProvider) Name() string { return "sqlite" }

// DriverName implements Provider.
func (SQLiteProvider) DriverName() string { return "sqlite" }

// ConnectionString returns the file name or URI unchanged.
func (SQLiteProvider) ConnectionString(params ConnectionParameters) (string, error) {
	return params.ConnectionString, nil
}

// ParameterPrefix implements Provider.
func (SQLiteProvider) ParameterPrefix() string { return "@" }

// DecorateCommand turns on binding by name.
func (SQLiteProvider) DecorateCommand(cmd *CommandSpec) {
	cmd.BindByName = true
}

// Translator returns a translator of SQL.
func (SQLiteProvider) Translator() Translator { return NamedTranslator("@") }

func (SQLiteProvider) String() string { return "sqlite" }
