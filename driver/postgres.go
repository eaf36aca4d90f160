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
	sqldriver "database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// ErrUnsupportedType is returned when a provider cannot map a DbType.
var ErrUnsupportedType = errors.New("unsupported parameter type")

// PostgresProvider is the provider of PostgreSQL, backed by lib/pq.
type PostgresProvider struct{}

// Name implements Provider.
func (PostgresProvider) Name() string { return "postgres" }

// DriverName implements Provider.
func (PostgresProvider) DriverName() string { return "postgres" }

// ConnectionString accepts either a postgres:// URL or a key=value list and
// returns a key=value list with the password decrypted.
func (PostgresProvider) ConnectionString(params ConnectionParameters) (string, error) {
	dsn := params.ConnectionString
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		var err error
		if dsn, err = pq.ParseURL(dsn); err != nil {
			return "", err
		}
	}
	pairs, err := parseConnInfo(dsn)
	if err != nil {
		return "", err
	}
	for i, kv := range pairs {
		if kv.key != "password" {
			continue
		}
		if pairs[i].value, err = params.DecryptSecret(kv.value); err != nil {
			return "", err
		}
	}
	return formatConnInfo(pairs), nil
}

// ParameterPrefix implements Provider.
func (PostgresProvider) ParameterPrefix() string { return "@" }

// DecorateCommand implements Provider.
func (PostgresProvider) DecorateCommand(*CommandSpec) {}

// Translator returns a translator of SQL.
func (PostgresProvider) Translator() Translator { return OrdinalTranslator("$") }

// MapParameterType returns the converter lib/pq expects for t.
func (PostgresProvider) MapParameterType(t DbType) (any, error) {
	switch t {
	case TypeAnsiString, TypeString, TypeAnsiStringFixedLength, TypeStringFixedLength, TypeGuid:
		return sqldriver.String, nil
	case TypeBoolean:
		return sqldriver.Bool, nil
	case TypeByte, TypeInt16, TypeInt32:
		return sqldriver.Int32, nil
	case TypeInt64, TypeSingle, TypeDouble, TypeDecimal, TypeCurrency,
		TypeDate, TypeDateTime, TypeTime, TypeBinary:
		return sqldriver.DefaultParameterConverter, nil
	case TypeUnspecified, TypeObject:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %s for postgres", ErrUnsupportedType, t)
	}
}

func (PostgresProvider) String() string { return "postgres" }

type connInfoPair struct {
	key, value string
}

// parseConnInfo splits a libpq key=value connection string.
// Values may be single quoted, with backslash escapes inside.
func parseConnInfo(s string) ([]connInfoPair, error) {
	var pairs []connInfoPair
	for i := 0; i < len(s); {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		if i == len(s) {
			break
		}
		eq := strings.IndexByte(s[i:], '=')
		if eq < 0 {
			return nil, fmt.Errorf("missing \"=\" after %q in connection info string", s[i:])
		}
		key := strings.TrimSpace(s[i : i+eq])
		i += eq + 1
		for i < len(s) && s[i] == ' ' {
			i++
		}
		var value strings.Builder
		if i < len(s) && s[i] == '\'' {
			i++
			closed := false
			for i < len(s) {
				c := s[i]
				if c == '\\' && i+1 < len(s) {
					value.WriteByte(s[i+1])
					i += 2
					continue
				}
				if c == '\'' {
					closed = true
					i++
					break
				}
				value.WriteByte(c)
				i++
			}
			if !closed {
				return nil, errors.New("unterminated quoted string in connection info string")
			}
		} else {
			for i < len(s) && s[i] != ' ' {
				value.WriteByte(s[i])
				i++
			}
		}
		pairs = append(pairs, connInfoPair{key: key, value: value.String()})
	}
	return pairs, nil
}

var connInfoEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func formatConnInfo(pairs []connInfoPair) string {
	parts := make([]string, 0, len(pairs))
	for _, kv := range pairs {
		parts = append(parts, kv.key+"='"+connInfoEscaper.Replace(kv.value)+"'")
	}
	return strings.Join(parts, " ")
}
