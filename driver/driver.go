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
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// ErrProviderNotFound is returned by Registry.Resolve when no provider
// is registered under the requested identifier.
var ErrProviderNotFound = errors.New("provider not found")

// ConnectionParameters describes where a session connects to.
type ConnectionParameters struct {
	// Name is the logical name of the connection, used by configuration.
	Name string

	// Provider is the provider identifier, e.g. "mysql".
	Provider string

	// ConnectionString is the raw, possibly encrypted, connection string.
	ConnectionString string

	// Decrypt turns an encrypted secret into plain text.
	// A nil Decrypt leaves secrets untouched.
	Decrypt func(secret string) (string, error)
}

// DecryptSecret runs the secret through Decrypt when one is configured.
func (p ConnectionParameters) DecryptSecret(secret string) (string, error) {
	if p.Decrypt == nil || secret == "" {
		return secret, nil
	}
	plain, err := p.Decrypt(secret)
	if err != nil {
		return "", fmt.Errorf("decrypt secret: %w", err)
	}
	return plain, nil
}

// Provider describes everything the engine needs to know about a vendor.
type Provider interface {
	// Name returns the provider identifier sessions are resolved by.
	Name() string

	// DriverName returns the database/sql driver name passed to sql.Open.
	DriverName() string

	// ConnectionString builds the data source name from the parameters.
	ConnectionString(params ConnectionParameters) (string, error)

	// ParameterPrefix returns the prefix placed in front of parameter names.
	ParameterPrefix() string

	// DecorateCommand applies vendor flags to a freshly created command.
	DecorateCommand(cmd *CommandSpec)

	// Translator returns a fresh placeholder translator.
	Translator() Translator
}

// ParameterTypeMapper is implemented by providers that need a vendor type
// for a generic DbType. When the returned value is a
// database/sql/driver.ValueConverter it is applied to the parameter value.
type ParameterTypeMapper interface {
	MapParameterType(t DbType) (any, error)
}

// ProcedureCaller is implemented by providers that call stored procedures
// with something other than "CALL name(args)".
type ProcedureCaller interface {
	CallText(name string, placeholders []string) string
}

// Registry maps provider identifiers to providers.
// Registration is expected at startup, lookups are lock-free.
type Registry struct {
	mu        sync.Mutex
	providers atomic.Pointer[map[string]Provider]
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.providers.Store(&map[string]Provider{})
	return r
}

// Default returns a registry holding the built-in providers.
func Default() *Registry {
	r := New()
	r.Register(MySQLProvider{})
	r.Register(PostgresProvider{})
	r.Register(SQLiteProvider{})
	return r
}

// Register adds a provider. Registering the same identifier again
// replaces the earlier provider.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current := *r.providers.Load()
	next := make(map[string]Provider, len(current)+1)
	for name, p := range current {
		next[name] = p
	}
	next[provider.Name()] = provider
	r.providers.Store(&next)
}

// Resolve returns the provider registered under name.
func (r *Registry) Resolve(name string) (Provider, error) {
	provider, ok := (*r.providers.Load())[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrProviderNotFound, name)
	}
	return provider, nil
}

// Names returns the registered identifiers in sorted order.
func (r *Registry) Names() []string {
	providers := *r.providers.Load()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
