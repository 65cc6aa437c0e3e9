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

package ratelimit

import (
	"net/http"

	"github.com/eduflow/eduflow/pkg/config"
)

// NewFromConfig creates a Limiter from configuration.
// Returns nil when rate limiting is disabled; Middleware treats a nil
// limiter as pass-through.
func NewFromConfig(cfg *config.RateLimitConfig) *Limiter {
	if !cfg.IsEnabled() {
		return nil
	}

	return New(Options{
		RequestsPerMinute: cfg.RequestsPerMinute,
		RequestsPerHour:   cfg.RequestsPerHour,
		CleanupInterval:   cfg.CleanupInterval,
		Retention:         cfg.Retention,
	})
}

// MiddlewareFromConfig builds the rate limiting middleware directly from
// configuration.
func MiddlewareFromConfig(cfg *config.RateLimitConfig) func(http.Handler) http.Handler {
	if !cfg.IsEnabled() {
		return Middleware(MiddlewareConfig{})
	}
	return Middleware(MiddlewareConfig{
		Limiter:     NewFromConfig(cfg),
		Resolver:    NewIdentityResolver(cfg.TrustedProxies),
		ExemptPaths: cfg.ExemptPaths,
	})
}
