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
	"log/slog"
	"time"
)

// Limiter enforces the dual-window token bucket policy for all client
// identities. It is safe for concurrent use.
type Limiter struct {
	store *store

	perMinute       int
	perHour         int
	cleanupInterval time.Duration
	retention       time.Duration

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// Options configures a Limiter.
type Options struct {
	// RequestsPerMinute is the minute window capacity. Default: 60
	RequestsPerMinute int

	// RequestsPerHour is the hour window capacity. Default: 1000
	RequestsPerHour int

	// CleanupInterval is the minimum spacing between idle sweeps.
	// Default: 1h
	CleanupInterval time.Duration

	// Retention is how long idle identities are kept. Default: 2h
	Retention time.Duration

	// Now overrides the clock source. Default: time.Now
	Now func() time.Time
}

// New creates a Limiter.
func New(opts Options) *Limiter {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 60
	}
	if opts.RequestsPerHour <= 0 {
		opts.RequestsPerHour = 1000
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Hour
	}
	if opts.Retention <= 0 {
		opts.Retention = 2 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Limiter{
		store:           newStore(opts.Now()),
		perMinute:       opts.RequestsPerMinute,
		perHour:         opts.RequestsPerHour,
		cleanupInterval: opts.CleanupInterval,
		retention:       opts.Retention,
		now:             opts.Now,
	}
}

// Allow decides whether one request from the given identity may proceed,
// consuming one token from each window on admission. A denied request
// consumes nothing, so denial is idempotent: repeated checks while
// exhausted return the same outcome apart from refill progress.
func (l *Limiter) Allow(ctx context.Context, identity string) (*Decision, error) {
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	now := l.now()

	if evicted := l.store.maybeSweep(now, l.cleanupInterval, l.retention); evicted > 0 {
		slog.Debug("Evicted idle rate limit entries", "count", evicted, "tracked", l.store.size())
	}

	e := l.store.getOrCreate(identity, l.perMinute, l.perHour, now)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.minute.refill(now)
	e.hour.refill(now)

	if !e.minute.hasToken() {
		return l.deny(identity, e, WindowMinute), nil
	}
	if !e.hour.hasToken() {
		return l.deny(identity, e, WindowHour), nil
	}

	e.minute.consume()
	e.hour.consume()

	return &Decision{
		Allowed:         true,
		Identity:        identity,
		RemainingMinute: e.minute.remaining(),
		RemainingHour:   e.hour.remaining(),
	}, nil
}

// deny builds the denial decision for the exhausted window. Callers hold
// the entry lock.
func (l *Limiter) deny(identity string, e *entry, window Window) *Decision {
	d := &Decision{
		Identity:        identity,
		RemainingMinute: e.minute.remaining(),
		RemainingHour:   e.hour.remaining(),
		DeniedWindow:    window,
	}
	switch window {
	case WindowMinute:
		d.Limit = l.perMinute
		d.RetryAfter = e.minute.retryAfter()
	case WindowHour:
		d.Limit = l.perHour
		d.RetryAfter = e.hour.retryAfter()
	}
	return d
}

// Size returns the number of identities currently tracked.
func (l *Limiter) Size() int {
	return l.store.size()
}
