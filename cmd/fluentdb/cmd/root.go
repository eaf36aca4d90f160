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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eatmoreapple/fluentdb"
	"github.com/eatmoreapple/fluentdb/config"
	"github.com/eatmoreapple/fluentdb/driver"
)

// options are the flags shared by every command.
type options struct {
	configPath string
	connection string
	provider   string
	dsn        string
	params     []string
	timeout    int
	verbose    bool
}

// app is what a command needs to run a statement.
type app struct {
	opts     options
	registry *driver.Registry
	logger   *zap.Logger
	engine   *fluentdb.Engine
	params   fluentdb.ConnectionParameters
}

// NewRootCmd builds the top-level `fluentdb` command.
func NewRootCmd() *cobra.Command {
	a := &app{registry: driver.Default()}
	root := &cobra.Command{
		Use:           "fluentdb",
		Short:         "Run SQL against any registered provider",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags := root.PersistentFlags()
	flags.StringVarP(&a.opts.configPath, "config", "c", "fluentdb.yaml", "configuration file")
	flags.StringVarP(&a.opts.connection, "connection", "n", "", "named connection, the configured default when empty")
	flags.StringVar(&a.opts.provider, "provider", "", "provider of --dsn, bypasses the configuration file")
	flags.StringVar(&a.opts.dsn, "dsn", "", "connection string, bypasses the configuration file")
	flags.StringArrayVarP(&a.opts.params, "param", "p", nil, "parameter as name=value, repeatable")
	flags.IntVar(&a.opts.timeout, "timeout", -1, "command timeout in seconds, -1 keeps the configured one")
	flags.BoolVarP(&a.opts.verbose, "verbose", "v", false, "log statements at debug level")

	root.AddCommand(
		newProvidersCmd(a),
		newQueryCmd(a),
		newExecCmd(a),
		newScalarCmd(a),
		newCallCmd(a),
	)
	return root
}

// setup loads the configuration and builds the engine.
func (a *app) setup() error {
	cfg := &config.Config{}
	if a.opts.dsn != "" {
		if a.opts.provider == "" {
			return errors.New("--provider is required with --dsn")
		}
		a.params = fluentdb.ConnectionParameters{Provider: a.opts.provider, ConnectionString: a.opts.dsn}
	} else {
		var err error
		if cfg, err = config.Load(a.opts.configPath); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("no configuration at %s, pass --provider and --dsn instead", a.opts.configPath)
			}
			return err
		}
		if a.params, err = cfg.ConnectionParameters(a.opts.connection, nil); err != nil {
			return err
		}
	}
	logger, err := newLogger(cfg.Log, a.opts.verbose)
	if err != nil {
		return err
	}
	a.logger = logger
	a.engine = fluentdb.New(a.registry,
		fluentdb.WithLogger(logger),
		fluentdb.WithPoolOptions(cfg.PoolOptions()),
		fluentdb.WithCommandTimeout(cfg.CommandTimeout),
		fluentdb.WithLog(fluentdb.ZapLog(logger)),
	)
	return nil
}

func (a *app) close() {
	if a.engine != nil {
		_ = a.engine.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// command creates a command with the --param values bound.
func (a *app) command(ctx context.Context, text string) (*fluentdb.Command, error) {
	session, err := a.engine.CreateSession(a.params)
	if err != nil {
		return nil, err
	}
	cmd, err := session.CreateCommand(ctx, text)
	if err != nil {
		return nil, err
	}
	params, err := parseParams(a.opts.params)
	if err != nil {
		_ = session.Close()
		return nil, err
	}
	for _, p := range params {
		cmd.AddParameter(p.name, p.value)
	}
	return cmd.SetCommandTimeout(a.opts.timeout), nil
}

// run wraps a command body with setup and teardown.
func (a *app) run(fn func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.setup(); err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args)
	}
}

type param struct {
	name  string
	value any
}

// parseParams splits name=value pairs. A value of NULL binds NULL.
func parseParams(raw []string) ([]param, error) {
	params := make([]param, 0, len(raw))
	for _, r := range raw {
		name, value, ok := strings.Cut(r, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid parameter %q, want name=value", r)
		}
		p := param{name: name, value: value}
		if value == "NULL" {
			p.value = nil
		}
		params = append(params, p)
	}
	return params, nil
}
