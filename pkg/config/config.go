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

// Package config defines the EduFlow configuration model: a yaml file with
// per-concern sections, environment variable expansion (${VAR:-default}),
// defaults applied via SetDefaults and structural checks via Validate.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the EduFlow server.
type Config struct {
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server,omitempty"`

	// RateLimit configures request rate limiting.
	RateLimit *RateLimitConfig `yaml:"rate_limit,omitempty"`

	// LLM configures the language model providers.
	LLM LLMConfig `yaml:"llm,omitempty"`

	// Auth configures user accounts and JWT issuance.
	Auth *AuthConfig `yaml:"auth,omitempty"`

	// Database configures persistent storage for users and activity.
	Database *DatabaseConfig `yaml:"database,omitempty"`

	// Upload configures file upload handling and text extraction.
	Upload UploadConfig `yaml:"upload,omitempty"`

	// Logging configures log level and format.
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// BoolPtr returns a pointer to the given bool.
func BoolPtr(b bool) *bool {
	return &b
}

// BoolValue returns the value of a *bool, or def when nil.
func BoolValue(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}

// SetDefaults applies default values to the whole configuration tree.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()

	if c.RateLimit == nil {
		c.RateLimit = &RateLimitConfig{}
	}
	c.RateLimit.SetDefaults()

	c.LLM.SetDefaults()

	if c.Auth != nil {
		c.Auth.SetDefaults()
	}

	if c.Database == nil {
		c.Database = &DatabaseConfig{}
	}
	c.Database.SetDefaults()

	c.Upload.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks the whole configuration tree.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.RateLimit.Validate(); err != nil {
		return fmt.Errorf("rate_limit: %w", err)
	}
	if err := c.LLM.Validate(); err != nil {
		return fmt.Errorf("llm: %w", err)
	}
	if c.Auth != nil {
		if err := c.Auth.Validate(); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Upload.Validate(); err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}

// Default returns a ready-to-run configuration built entirely from defaults
// and environment variables. Used when no config file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// Load reads a yaml config file, expands environment variable references,
// applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes yaml config bytes, expanding ${VAR} and ${VAR:-default}
// references against the process environment before unmarshalling.
func Parse(data []byte) (*Config, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	normalized, err := yaml.Marshal(expanded)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(normalized, cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
