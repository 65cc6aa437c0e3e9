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
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// MiddlewareConfig configures the rate limiting middleware.
type MiddlewareConfig struct {
	// Limiter is the rate limiter to use. Nil disables limiting and the
	// middleware passes every request through untouched.
	Limiter *Limiter

	// Resolver extracts client identities from requests.
	// If nil, a resolver trusting X-Forwarded-For from any peer is used.
	Resolver *IdentityResolver

	// ExemptPaths are request paths that bypass rate limiting.
	ExemptPaths []string

	// OnLimited is called when a request is denied.
	// If nil, a default JSON error response is sent.
	OnLimited func(w http.ResponseWriter, r *http.Request, decision *Decision)
}

// Middleware creates an HTTP middleware that enforces rate limits.
//
// Admitted requests carry X-RateLimit-Remaining-Minute and
// X-RateLimit-Remaining-Hour response headers and the Decision in the
// request context. Denied requests receive 429 with Retry-After. Exempt
// paths bypass the limiter entirely and carry no headers.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	if cfg.Resolver == nil {
		cfg.Resolver = NewIdentityResolver(nil)
	}

	if cfg.OnLimited == nil {
		cfg.OnLimited = DefaultOnLimited
	}

	// Exempt paths map for fast lookup
	exempt := make(map[string]bool, len(cfg.ExemptPaths))
	for _, path := range cfg.ExemptPaths {
		exempt[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			identity := cfg.Resolver.Resolve(r)

			ctx := r.Context()
			decision, err := cfg.Limiter.Allow(ctx, identity)
			if err != nil {
				slog.Error("Rate limit check failed", "error", err, "identity", identity)
				// On internal error, allow the request (fail open)
				next.ServeHTTP(w, r)
				return
			}

			if !decision.Allowed {
				slog.Warn("Rate limit exceeded",
					"identity", decision.Identity,
					"window", decision.DeniedWindow,
					"retry_after", decision.RetryAfter)
				cfg.OnLimited(w, r, decision)
				return
			}

			// Headers go on before the downstream handler writes anything,
			// so they are present whatever status it produces.
			w.Header().Set("X-RateLimit-Remaining-Minute", strconv.FormatInt(decision.RemainingMinute, 10))
			w.Header().Set("X-RateLimit-Remaining-Hour", strconv.FormatInt(decision.RemainingHour, 10))

			ctx = context.WithValue(ctx, decisionKey{}, decision)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// decisionKey is the context key for the rate limit decision.
type decisionKey struct{}

// DecisionFromContext extracts the rate limit decision from the request
// context. Returns nil for exempt or unlimited requests.
func DecisionFromContext(ctx context.Context) *Decision {
	if d, ok := ctx.Value(decisionKey{}).(*Decision); ok {
		return d
	}
	return nil
}

// DefaultOnLimited sends the standard 429 response. Custom OnLimited
// hooks can delegate to it after recording their own signals.
func DefaultOnLimited(w http.ResponseWriter, r *http.Request, decision *Decision) {
	retryAfter := int64(decision.RetryAfter.Seconds())

	w.Header().Set("Content-Type", "application/json")
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	}
	w.WriteHeader(http.StatusTooManyRequests)

	response := map[string]interface{}{
		"error":       "Rate limit exceeded",
		"limit":       strconv.Itoa(decision.Limit) + " requests per " + string(decision.DeniedWindow),
		"retry_after": retryAfter,
	}

	_ = json.NewEncoder(w).Encode(response)
}
