// Copyright 2025 The EduFlow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import "fmt"

// DatabaseConfig configures persistent storage for users, activity and
// leaderboards. SQLite is the only supported driver.
type DatabaseConfig struct {
	// Driver is the database driver. Default: "sqlite"
	Driver string `yaml:"driver,omitempty"`

	// Path is the SQLite database file path.
	// Default: ./.eduflow/eduflow.db
	Path string `yaml:"path,omitempty"`

	// MaxConns is the maximum number of open connections.
	MaxConns int `yaml:"max_conns,omitempty"`

	// MaxIdle is the maximum number of idle connections.
	MaxIdle int `yaml:"max_idle,omitempty"`
}

// SetDefaults applies default values to DatabaseConfig.
func (c *DatabaseConfig) SetDefaults() {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	if c.Path == "" {
		c.Path = "./.eduflow/eduflow.db"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 25
	}
	if c.MaxIdle == 0 {
		c.MaxIdle = 5
	}
}

// Validate checks the DatabaseConfig for errors.
func (c *DatabaseConfig) Validate() error {
	if c.Driver != "" && c.Driver != "sqlite" && c.Driver != "sqlite3" {
		return fmt.Errorf("unsupported driver %q (supported: sqlite)", c.Driver)
	}
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	if c.MaxConns < 0 || c.MaxIdle < 0 {
		return fmt.Errorf("connection limits cannot be negative")
	}
	return nil
}

// DSN returns the driver connection string.
func (c *DatabaseConfig) DSN() string {
	// Shared cache keeps the pool usable with a file-backed SQLite db.
	return fmt.Sprintf("file:%s?cache=shared&_foreign_keys=on", c.Path)
}
