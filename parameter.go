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
	sqldriver "database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eatmoreapple/fluentdb/driver"
)

// Direction is the direction of a parameter relative to the command.
type Direction int

const (
	DirectionInput Direction = iota
	DirectionOutput
	DirectionInputOutput
	DirectionReturnValue
)

func (d Direction) String() string {
	switch d {
	case DirectionOutput:
		return "Output"
	case DirectionInputOutput:
		return "InputOutput"
	case DirectionReturnValue:
		return "ReturnValue"
	default:
		return "Input"
	}
}

// IsOutput reports whether the database writes a value back.
func (d Direction) IsOutput() bool {
	return d == DirectionOutput || d == DirectionInputOutput || d == DirectionReturnValue
}

type dbNull struct{}

func (dbNull) String() string { return "NULL" }

// Value implements driver.Valuer.
func (dbNull) Value() (sqldriver.Value, error) { return nil, nil }

// DBNull is the value of a parameter bound with nil.
var DBNull = dbNull{}

// ParameterSpec describes a parameter to add to a command.
type ParameterSpec struct {
	Name  string
	Value any

	// Type is mapped through the provider when it implements
	// driver.ParameterTypeMapper. Unspecified types are inferred from Value.
	Type      driver.DbType
	Direction Direction
	Size      int

	// Unprefixed keeps Name as written instead of adding the provider prefix.
	// Stored procedure parameters are usually unprefixed.
	Unprefixed bool
}

// Parameter is a bound command parameter. It is not changed after binding,
// except that output parameters receive their value during execution.
type Parameter struct {
	name         string
	value        any
	dbType       driver.DbType
	providerType any
	direction    Direction
	size         int

	// out is the destination of sql.Out for output parameters.
	out any
}

// Name returns the effective name, prefix included if one was applied.
func (p *Parameter) Name() string { return p.name }

// Value returns the bound value, or the value written back by the
// database for output parameters.
func (p *Parameter) Value() any {
	if p.direction.IsOutput() {
		if p.out == nil {
			return DBNull
		}
		return p.out
	}
	return p.value
}

// DbType returns the declared type, or the one inferred from the value.
func (p *Parameter) DbType() driver.DbType { return p.dbType }

// ProviderType returns what the provider mapped DbType to, if anything.
func (p *Parameter) ProviderType() any { return p.providerType }

func (p *Parameter) Direction() Direction { return p.direction }

func (p *Parameter) Size() int { return p.size }

// arg returns the value handed to database/sql.
func (p *Parameter) arg() any {
	if p.direction.IsOutput() {
		return sql.Out{Dest: &p.out, In: p.direction == DirectionInputOutput}
	}
	if p.value == DBNull {
		return nil
	}
	return p.value
}

var errEmptyParameterName = errors.New("parameter name is empty")

// parameterName applies the prefix policy: a name that already carries the
// prefix is kept, otherwise the prefix is added when prefixed is true.
func parameterName(prefix, name string, prefixed bool) string {
	if !prefixed || strings.HasPrefix(name, prefix) {
		return name
	}
	return prefix + name
}

func bindParameter(provider driver.Provider, spec ParameterSpec) (*Parameter, error) {
	if spec.Name == "" {
		return nil, errEmptyParameterName
	}
	p := &Parameter{
		name:      parameterName(provider.ParameterPrefix(), spec.Name, !spec.Unprefixed),
		value:     spec.Value,
		dbType:    spec.Type,
		direction: spec.Direction,
		size:      spec.Size,
	}
	if p.value == nil {
		p.value = DBNull
	}
	if p.dbType != driver.TypeUnspecified {
		if mapper, ok := provider.(driver.ParameterTypeMapper); ok {
			providerType, err := mapper.MapParameterType(p.dbType)
			if err != nil {
				return nil, err
			}
			p.providerType = providerType
			if conv, ok := providerType.(sqldriver.ValueConverter); ok && p.value != DBNull {
				if p.value, err = conv.ConvertValue(p.value); err != nil {
					return nil, err
				}
			}
		}
	} else {
		p.dbType = InferDbType(p.value)
	}
	if p.direction == DirectionInputOutput && p.value != DBNull {
		p.out = p.value
	}
	return p, nil
}

// InferDbType returns the DbType a value would be bound as.
func InferDbType(v any) driver.DbType {
	switch v.(type) {
	case string, *string, sql.NullString:
		return driver.TypeString
	case bool, sql.NullBool:
		return driver.TypeBoolean
	case uint8, int8:
		return driver.TypeByte
	case int16, uint16, sql.NullInt16:
		return driver.TypeInt16
	case int32, uint32, sql.NullInt32:
		return driver.TypeInt32
	case int, int64, uint, uint64, sql.NullInt64:
		return driver.TypeInt64
	case float32:
		return driver.TypeSingle
	case float64, sql.NullFloat64:
		return driver.TypeDouble
	case time.Time, *time.Time, sql.NullTime:
		return driver.TypeDateTime
	case uuid.UUID, uuid.NullUUID:
		return driver.TypeGuid
	case []byte:
		return driver.TypeBinary
	default:
		return driver.TypeObject
	}
}
