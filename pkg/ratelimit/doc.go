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

// Package ratelimit implements per-client request rate limiting using
// continuously refilling token buckets.
//
// Every client identity carries two independent buckets: a minute bucket
// and an hour bucket. A request is admitted only when both hold at least
// one token, and admission costs one token from each. Buckets refill
// lazily on access at a constant fractional rate, so no background timers
// are needed and burst capacity equals the configured per-window limit.
//
// Identities are resolved from the X-Forwarded-For header when present
// (first entry), falling back to the connection's remote address. State
// lives in process memory; buckets idle past the retention period are
// reclaimed by an opportunistic sweep that piggybacks on request handling.
//
// Typical use:
//
//	limiter := ratelimit.NewFromConfig(cfg.RateLimit)
//	handler := ratelimit.Middleware(ratelimit.MiddlewareConfig{Limiter: limiter})(mux)
//
// Denied requests receive 429 with a Retry-After header; admitted requests
// carry X-RateLimit-Remaining-Minute and X-RateLimit-Remaining-Hour.
package ratelimit
