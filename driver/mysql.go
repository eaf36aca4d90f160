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
	"github.com/go-sql-driver/mysql"
)

// MySQLProvider is the provider of MySQL, backed by go-sql-driver/mysql.
type MySQLProvider struct{}

// Name implements Provider.
func (MySQLProvider) Name() string { return "mysql" }

// DriverName implements Provider.
func (MySQLProvider) DriverName() string { return "mysql" }

// ConnectionString parses the DSN and decrypts its password.
func (MySQLProvider) ConnectionString(params ConnectionParameters) (string, error) {
	cfg, err := mysql.ParseDSN(params.ConnectionString)
	if err != nil {
		return "", err
	}
	if cfg.Passwd, err = params.DecryptSecret(cfg.Passwd); err != nil {
		return "", err
	}
	return cfg.FormatDSN(), nil
}

// ParameterPrefix implements Provider.
func (MySQLProvider) ParameterPrefix() string { return "@" }

// DecorateCommand implements Provider.
func (MySQLProvider) DecorateCommand(*CommandSpec) {}

// Translator returns a translator of SQL.
func (MySQLProvider) Translator() Translator { return QuestionTranslator() }

func (MySQLProvider) String() string { return "mysql" }
