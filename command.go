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
	"strings"
	"time"

	"github.com/eatmoreapple/fluentdb/driver"
	"github.com/eatmoreapple/fluentdb/session"
)

// Command is a command bound to a session. Parameter methods chain; the
// first failure is kept and returned by the terminal operation, which
// always leaves the session closed.
type Command struct {
	session  *Session
	spec     driver.CommandSpec
	params   []*Parameter
	tx       *TransactionContext
	err      error
	disposed bool
}

// Text returns the command text as created.
func (c *Command) Text() string { return c.spec.Text }

// Kind returns how the command text is interpreted.
func (c *Command) Kind() driver.CommandKind { return c.spec.Kind }

// Timeout returns the command timeout, zero means none.
func (c *Command) Timeout() time.Duration { return c.spec.Timeout }

// Transaction returns the transaction the command runs in, if any.
func (c *Command) Transaction() *TransactionContext { return c.tx }

// Session returns the owning session.
func (c *Command) Session() *Session { return c.session }

// Parameters returns the bound parameters, or nil once the command is disposed.
func (c *Command) Parameters() []*Parameter {
	if c.disposed {
		return nil
	}
	return c.params
}

// Err returns the first error met while building the command.
func (c *Command) Err() error { return c.err }

// String returns the command rendered with literal parameter values.
func (c *Command) String() string { return Render(c.spec.Text, c.params) }

// SetCommandTimeout sets the timeout in seconds. -1 keeps the current
// timeout and 0 disables it.
func (c *Command) SetCommandTimeout(seconds int) *Command {
	if seconds >= 0 {
		c.spec.Timeout = time.Duration(seconds) * time.Second
	}
	return c
}

// AddParameter binds a value under name, adding the provider prefix if the
// name does not carry it yet. A nil value is bound as DBNull.
func (c *Command) AddParameter(name string, value any) *Command {
	return c.AddParameterSpec(ParameterSpec{Name: name, Value: value})
}

// AddParameterIf binds the value only when cond is true.
func (c *Command) AddParameterIf(cond bool, name string, value any) *Command {
	if !cond {
		return c
	}
	return c.AddParameter(name, value)
}

// AddTypedParameter binds a value with an explicit type, direction and size.
func (c *Command) AddTypedParameter(name string, value any, dbType driver.DbType, direction Direction, size int) *Command {
	return c.AddParameterSpec(ParameterSpec{
		Name:      name,
		Value:     value,
		Type:      dbType,
		Direction: direction,
		Size:      size,
	})
}

// AddParameterSpec binds a parameter described by spec.
// On failure the session is closed and the error is kept for the terminal operation.
func (c *Command) AddParameterSpec(spec ParameterSpec) *Command {
	const op = "add parameter"
	if c.err != nil {
		return c
	}
	if c.disposed {
		c.err = newError(KindSessionState, op, "", errNoCommand)
		return c
	}
	p, err := bindParameter(c.session.provider, spec)
	if err != nil {
		c.err = newError(KindParameterCreation, op+" "+spec.Name, c.String(), err)
		_ = c.session.Close()
		return c
	}
	c.params = append(c.params, p)
	return c
}

// ready reports why the command cannot be executed, if it cannot.
func (c *Command) ready(op string) error {
	if c.err != nil {
		return c.err
	}
	if c.disposed {
		return newError(KindSessionState, op, "", errNoCommand)
	}
	return nil
}

// executor returns what the command runs on.
func (c *Command) executor() session.Session {
	if c.tx != nil {
		return c.tx.tx
	}
	return c.session.conn
}

func (c *Command) query(ctx context.Context, query string, args []any) (*sql.Rows, error) {
	exe := c.executor()
	handler := c.session.engine.middlewares.QueryContext(c, exe.QueryContext)
	return handler(ctx, query, args...)
}

func (c *Command) exec(ctx context.Context, query string, args []any) (sql.Result, error) {
	exe := c.executor()
	handler := c.session.engine.middlewares.ExecContext(c, exe.ExecContext)
	return handler(ctx, query, args...)
}

// withTimeout bounds ctx by the command timeout.
func (c *Command) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.spec.Timeout > 0 {
		return context.WithTimeout(ctx, c.spec.Timeout)
	}
	return ctx, func() {}
}

// compile turns the command into the text and arguments handed to the driver.
func (c *Command) compile() (string, []any) {
	translator := c.session.provider.Translator()
	if c.spec.Kind == driver.StoredProcedure {
		return c.procedureCall(translator)
	}
	if c.spec.BindByName {
		args := make([]any, 0, len(c.params))
		for _, p := range c.params {
			args = append(args, c.namedArg(p))
		}
		return c.spec.Text, args
	}
	return c.translate(translator)
}

// translate replaces every bound parameter name in the text with the
// driver placeholder and collects the arguments in order of appearance.
// At each position the longest matching name wins.
func (c *Command) translate(translator driver.Translator) (string, []any) {
	prefix := c.session.provider.ParameterPrefix()
	text := c.spec.Text
	if len(c.params) == 0 || prefix == "" || !strings.Contains(text, prefix) {
		return text, nil
	}
	builder := getStringBuilder()
	defer putStringBuilder(builder)
	args := make([]any, 0, len(c.params))
	for i := 0; i < len(text); {
		if strings.HasPrefix(text[i:], prefix) {
			if p := matchParameter(text[i:], c.params); p != nil {
				builder.WriteString(translator.Translate(p.name))
				args = append(args, p.arg())
				i += len(p.name)
				continue
			}
		}
		builder.WriteByte(text[i])
		i++
	}
	return builder.String(), args
}

func matchParameter(text string, params []*Parameter) *Parameter {
	var found *Parameter
	for _, p := range params {
		if p.name == "" || !strings.HasPrefix(text, p.name) {
			continue
		}
		if len(text) > len(p.name) && isIdentByte(text[len(p.name)]) {
			continue
		}
		if found == nil || len(p.name) > len(found.name) {
			found = p
		}
	}
	return found
}

func isIdentByte(b byte) bool {
	return b == '_' || '0' <= b && b <= '9' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func (c *Command) namedArg(p *Parameter) any {
	name := strings.TrimPrefix(p.name, c.session.provider.ParameterPrefix())
	return sql.Named(name, p.arg())
}

// procedureCall builds the call of a stored procedure, passing every
// parameter in the order it was added.
func (c *Command) procedureCall(translator driver.Translator) (string, []any) {
	provider := c.session.provider
	placeholders := make([]string, 0, len(c.params))
	args := make([]any, 0, len(c.params))
	for _, p := range c.params {
		placeholders = append(placeholders, translator.Translate(parameterName(provider.ParameterPrefix(), p.name, true)))
		if c.spec.BindByName {
			args = append(args, c.namedArg(p))
		} else {
			args = append(args, p.arg())
		}
	}
	if caller, ok := provider.(driver.ProcedureCaller); ok {
		return caller.CallText(c.spec.Text, placeholders), args
	}
	return "CALL " + c.spec.Text + "(" + strings.Join(placeholders, ", ") + ")", args
}
