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

// Package config loads named connections, pool limits and logging options
// from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/eatmoreapple/fluentdb/driver"
)

// Config is the root of a configuration file.
//
//	default: main
//	commandTimeout: 30s
//	connections:
//	  main:
//	    provider: mysql
//	    connectionString: root:${DB_PASSWORD}@tcp(127.0.0.1:3306)/shop
//	pool:
//	  maxOpenConns: 10
//	log:
//	  level: debug
//	  file: logs/fluentdb.log
type Config struct {
	Default        string                `yaml:"default"`
	CommandTimeout time.Duration         `yaml:"commandTimeout"`
	Connections    map[string]Connection `yaml:"connections"`
	Pool           Pool                  `yaml:"pool"`
	Log            Log                   `yaml:"log"`
}

// Connection is a named connection.
type Connection struct {
	Provider         string `yaml:"provider"`
	ConnectionString string `yaml:"connectionString"`
}

// Pool holds the limits of every *sql.DB opened by the engine.
// Its fields mirror driver.PoolOptions.
type Pool struct {
	MaxIdleConns    *int          `yaml:"maxIdleConns"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

// Log configures the command line logger.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`

	// MaxSize is the size in megabytes at which the log file rotates.
	MaxSize    int `yaml:"maxSize"`
	MaxBackups int `yaml:"maxBackups"`
	MaxAge     int `yaml:"maxAge"`
}

// ErrConnectionNotFound is returned when no connection has the requested name.
var ErrConnectionNotFound = errors.New("connection not found")

// formatRegexp matches ${NAME} placeholders.
var formatRegexp = regexp.MustCompile(`\$\{ *?([a-zA-Z0-9_\.]+) *?\}`)

// Load reads the .env file next to the process, if there is one, and then
// the YAML file at path.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a configuration and expands ${NAME} placeholders in
// connection strings from the process environment.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for name, conn := range cfg.Connections {
		expanded, err := expandEnv(conn.ConnectionString)
		if err != nil {
			return nil, fmt.Errorf("connection %s: %w", name, err)
		}
		conn.ConnectionString = expanded
		cfg.Connections[name] = conn
	}
	return &cfg, nil
}

// expandEnv replaces ${NAME} with the value of the environment variable.
// Unset or empty variables are an error.
func expandEnv(s string) (string, error) {
	var err error
	s = formatRegexp.ReplaceAllStringFunc(s, func(find string) string {
		value := os.Getenv(formatRegexp.FindStringSubmatch(find)[1])
		if len(value) == 0 && err == nil {
			err = fmt.Errorf("environment variable %s not found", find)
		}
		return value
	})
	return s, err
}

// ConnectionParameters resolves a named connection. An empty name selects
// the default connection.
func (c *Config) ConnectionParameters(name string, decrypt func(string) (string, error)) (driver.ConnectionParameters, error) {
	if name == "" {
		name = c.Default
	}
	conn, ok := c.Connections[name]
	if !ok {
		return driver.ConnectionParameters{}, fmt.Errorf("%w: unable to locate connection string settings with name %q", ErrConnectionNotFound, name)
	}
	return driver.ConnectionParameters{
		Name:             name,
		Provider:         conn.Provider,
		ConnectionString: conn.ConnectionString,
		Decrypt:          decrypt,
	}, nil
}

// PoolOptions returns the pool settings for the engine.
func (c *Config) PoolOptions() driver.PoolOptions {
	return driver.PoolOptions(c.Pool)
}
