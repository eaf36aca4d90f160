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
	sqldriver "database/sql/driver"
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/eatmoreapple/fluentdb/driver"
)

// renderTimeLayout is how time values appear in rendered commands.
const renderTimeLayout = "2006-01-02 15:04:05.999999999"

// Render replaces every parameter name in text with the parameter's
// literal value, scanning left to right the way commands are compiled: the
// longest name wins at each position, a name must end at an identifier
// boundary, and rendered literals are never scanned again. The result is
// meant for logs and error messages, it is never executed.
func Render(text string, params []*Parameter) string {
	if len(params) == 0 {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		if i == 0 || !isIdentByte(text[i-1]) || !isIdentByte(text[i]) {
			if p := matchParameter(text[i:], params); p != nil {
				sb.WriteString(literal(p))
				i += len(p.name)
				continue
			}
		}
		sb.WriteByte(text[i])
		i++
	}
	return sb.String()
}

// literal returns the SQL literal of the parameter's current value.
func literal(p *Parameter) string {
	v := indirect(p.Value())
	if v == nil || v == DBNull {
		return "NULL"
	}
	quoted := p.dbType.Quoted()
	if p.dbType == driver.TypeObject || p.dbType == driver.TypeUnspecified {
		quoted = InferDbType(v).Quoted()
	}
	var s string
	switch x := v.(type) {
	case []byte:
		if !quoted {
			return "0x" + hex.EncodeToString(x)
		}
		s = string(x)
	case time.Time:
		s = x.Format(renderTimeLayout)
	case sqldriver.Valuer:
		dv, err := x.Value()
		if err != nil {
			s = fmt.Sprint(x)
			break
		}
		if dv == nil {
			return "NULL"
		}
		if t, ok := dv.(time.Time); ok {
			s = t.Format(renderTimeLayout)
		} else {
			s = fmt.Sprint(dv)
		}
	default:
		s = fmt.Sprint(x)
	}
	if !quoted {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// indirect dereferences pointers, returning nil for nil pointers.
func indirect(v any) any {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return nil
	}
	return rv.Interface()
}
