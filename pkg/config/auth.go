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

import (
	"fmt"
	"os"
	"time"
)

// AuthConfig configures user accounts and JWT issuance.
//
// Tokens are self-issued and HS256-signed with a shared secret. The
// authenticated API surface (/api/v3) requires a valid token; the anonymous
// endpoints keep working without one.
//
// Example configuration:
//
//	auth:
//	  enabled: true
//	  secret: ${JWT_SECRET}
//	  token_ttl: 168h
type AuthConfig struct {
	// Enabled controls whether account endpoints and token checks are
	// active. Default: false
	Enabled *bool `yaml:"enabled,omitempty"`

	// Secret is the HS256 signing secret. Required when Enabled is true.
	// Defaults to the JWT_SECRET environment variable.
	Secret string `yaml:"secret,omitempty"`

	// Issuer is the token issuer (iss claim). Default: "eduflow"
	Issuer string `yaml:"issuer,omitempty"`

	// TokenTTL is the token lifetime. Default: 168h (7 days)
	TokenTTL time.Duration `yaml:"token_ttl,omitempty"`

	// BcryptCost is the bcrypt work factor for password hashing.
	// Default: 10
	BcryptCost int `yaml:"bcrypt_cost,omitempty"`
}

// SetDefaults applies default values to AuthConfig.
func (c *AuthConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(false)
	}
	if c.Secret == "" {
		c.Secret = os.Getenv("JWT_SECRET")
	}
	if c.Issuer == "" {
		c.Issuer = "eduflow"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 7 * 24 * time.Hour
	}
	if c.BcryptCost == 0 {
		c.BcryptCost = 10
	}
}

// Validate checks the AuthConfig for errors.
func (c *AuthConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}

	if c.Secret == "" {
		return fmt.Errorf("secret is required when auth is enabled (set JWT_SECRET)")
	}
	if len(c.Secret) < 16 {
		return fmt.Errorf("secret must be at least 16 bytes")
	}
	if c.TokenTTL < time.Minute {
		return fmt.Errorf("token_ttl must be at least 1 minute")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("bcrypt_cost must be between 4 and 31")
	}

	return nil
}

// IsEnabled returns true if authentication is enabled.
func (c *AuthConfig) IsEnabled() bool {
	return c != nil && BoolValue(c.Enabled, false)
}
