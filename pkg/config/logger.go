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

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	// Default: info
	Level string `yaml:"level,omitempty"`

	// Format is "simple" or "verbose". Default: simple
	Format string `yaml:"format,omitempty"`

	// File is an optional log file path. Empty logs to stderr.
	File string `yaml:"file,omitempty"`
}

// SetDefaults applies default values to LoggingConfig.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// Validate checks the LoggingConfig for errors.
func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level %q (valid: debug, info, warn, error)", c.Level)
	}

	switch c.Format {
	case "", "simple", "verbose":
	default:
		return fmt.Errorf("invalid format %q (valid: simple, verbose)", c.Format)
	}

	return nil
}
