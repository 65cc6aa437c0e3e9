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
	"time"
)

// RateLimitConfig defines request rate limiting configuration.
//
// Two token buckets are maintained per client: one refilling at
// requests_per_minute per minute, one at requests_per_hour per hour. A
// request must pass both. State is in-memory only and reclaimed for idle
// clients.
//
// Example:
//
//	rate_limit:
//	  requests_per_minute: ${RATE_LIMIT_PER_MINUTE:-60}
//	  requests_per_hour: ${RATE_LIMIT_PER_HOUR:-1000}
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active.
	// Default: true
	Enabled *bool `yaml:"enabled,omitempty"`

	// RequestsPerMinute is the minute window capacity and refill rate.
	RequestsPerMinute int `yaml:"requests_per_minute,omitempty"`

	// RequestsPerHour is the hour window capacity and refill rate.
	RequestsPerHour int `yaml:"requests_per_hour,omitempty"`

	// CleanupInterval is the minimum spacing between idle-client sweeps.
	CleanupInterval time.Duration `yaml:"cleanup_interval,omitempty"`

	// Retention is how long an idle client's buckets are kept before a
	// sweep may evict them.
	Retention time.Duration `yaml:"retention,omitempty"`

	// TrustedProxies lists proxy addresses whose X-Forwarded-For header is
	// honored. Empty means the header is trusted from any peer.
	TrustedProxies []string `yaml:"trusted_proxies,omitempty"`

	// ExemptPaths are request paths that bypass rate limiting entirely.
	// Default: /health, /readiness
	ExemptPaths []string `yaml:"exempt_paths,omitempty"`
}

// IsEnabled returns true if rate limiting is enabled.
func (c *RateLimitConfig) IsEnabled() bool {
	return c != nil && BoolValue(c.Enabled, true)
}

// SetDefaults sets default values for RateLimitConfig.
func (c *RateLimitConfig) SetDefaults() {
	if c.Enabled == nil {
		c.Enabled = BoolPtr(true)
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = 60
	}
	if c.RequestsPerHour == 0 {
		c.RequestsPerHour = 1000
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = time.Hour
	}
	if c.Retention == 0 {
		c.Retention = 2 * time.Hour
	}
	if len(c.ExemptPaths) == 0 {
		c.ExemptPaths = []string{"/health", "/readiness"}
	}
}

// Validate validates the RateLimitConfig.
func (c *RateLimitConfig) Validate() error {
	if !c.IsEnabled() {
		return nil
	}

	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative, got %d", c.RequestsPerMinute)
	}
	if c.RequestsPerHour < 0 {
		return fmt.Errorf("requests_per_hour cannot be negative, got %d", c.RequestsPerHour)
	}
	if c.CleanupInterval < 0 {
		return fmt.Errorf("cleanup_interval must be non-negative")
	}
	if c.Retention < 0 {
		return fmt.Errorf("retention must be non-negative")
	}

	return nil
}
