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
	"strconv"
	"time"
)

// CommandKind tells how the command text is interpreted.
type CommandKind int

const (
	// Text is a plain SQL statement.
	Text CommandKind = iota
	// StoredProcedure means the command text is a procedure name.
	StoredProcedure
)

func (k CommandKind) String() string {
	if k == StoredProcedure {
		return "StoredProcedure"
	}
	return "Text"
}

// CommandSpec is the part of a command a provider may decorate.
type CommandSpec struct {
	Text    string
	Kind    CommandKind
	Timeout time.Duration

	// BindByName passes parameters as sql.Named arguments and leaves the
	// placeholders in the text alone.
	BindByName bool
}

// DbType is a vendor-neutral parameter type.
type DbType int

const (
	// TypeUnspecified lets the value decide its type.
	TypeUnspecified DbType = iota
	TypeAnsiString
	TypeString
	TypeAnsiStringFixedLength
	TypeStringFixedLength
	TypeBoolean
	TypeByte
	TypeInt16
	TypeInt32
	TypeInt64
	TypeSingle
	TypeDouble
	TypeDecimal
	TypeCurrency
	TypeDate
	TypeDateTime
	TypeTime
	TypeGuid
	TypeBinary
	TypeObject
)

var dbTypeNames = [...]string{
	TypeUnspecified:           "Unspecified",
	TypeAnsiString:            "AnsiString",
	TypeString:                "String",
	TypeAnsiStringFixedLength: "AnsiStringFixedLength",
	TypeStringFixedLength:     "StringFixedLength",
	TypeBoolean:               "Boolean",
	TypeByte:                  "Byte",
	TypeInt16:                 "Int16",
	TypeInt32:                 "Int32",
	TypeInt64:                 "Int64",
	TypeSingle:                "Single",
	TypeDouble:                "Double",
	TypeDecimal:               "Decimal",
	TypeCurrency:              "Currency",
	TypeDate:                  "Date",
	TypeDateTime:              "DateTime",
	TypeTime:                  "Time",
	TypeGuid:                  "Guid",
	TypeBinary:                "Binary",
	TypeObject:                "Object",
}

func (t DbType) String() string {
	if t >= 0 && int(t) < len(dbTypeNames) {
		return dbTypeNames[t]
	}
	return "DbType(" + strconv.Itoa(int(t)) + ")"
}

// Quoted reports whether literals of this type are written between quotes.
func (t DbType) Quoted() bool {
	switch t {
	case TypeAnsiString, TypeString, TypeAnsiStringFixedLength, TypeStringFixedLength,
		TypeDate, TypeDateTime, TypeTime, TypeGuid:
		return true
	default:
		return false
	}
}
