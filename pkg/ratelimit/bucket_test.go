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
	"math"
	"testing"
	"time"
)

func TestBucketStartsFull(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(60, WindowMinute, now)

	if b.tokens != 60 {
		t.Errorf("tokens = %f, want 60", b.tokens)
	}
	if b.rate != 1 {
		t.Errorf("rate = %f, want 1 token/s", b.rate)
	}
	if !b.hasToken() {
		t.Error("full bucket should have a token")
	}
}

func TestBucketRefillIsContinuous(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(60, WindowMinute, now)

	for i := 0; i < 60; i++ {
		b.consume()
	}
	if b.hasToken() {
		t.Fatal("drained bucket should not have a token")
	}

	// Half a second refills half a token; still not admissible.
	b.refill(now.Add(500 * time.Millisecond))
	if b.hasToken() {
		t.Error("half a token should not admit")
	}
	if math.Abs(b.tokens-0.5) > 1e-9 {
		t.Errorf("tokens = %f, want 0.5", b.tokens)
	}

	// Another half second completes the token.
	b.refill(now.Add(time.Second))
	if !b.hasToken() {
		t.Error("one full second should admit one request")
	}
}

func TestBucketRefillCapsAtCapacity(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(10, WindowMinute, now)

	b.consume()
	b.refill(now.Add(time.Hour))

	if b.tokens != 10 {
		t.Errorf("tokens = %f, want capped at 10", b.tokens)
	}
}

func TestBucketNegativeElapsedClamped(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(60, WindowMinute, now)

	b.consume()
	before := b.tokens
	b.refill(now.Add(-time.Minute))

	if b.tokens != before {
		t.Errorf("tokens = %f, want unchanged %f", b.tokens, before)
	}
	if !b.lastRefill.Equal(now.Add(-time.Minute)) {
		t.Error("lastRefill should track the observed clock")
	}
}

func TestBucketRemainingFloors(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(60, WindowMinute, now)

	for i := 0; i < 60; i++ {
		b.consume()
	}
	b.refill(now.Add(2500 * time.Millisecond))

	if got := b.remaining(); got != 2 {
		t.Errorf("remaining = %d, want 2 (2.5 tokens floored)", got)
	}
}

func TestBucketRetryAfter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	b := newBucket(60, WindowMinute, now)

	if b.retryAfter() != 0 {
		t.Error("full bucket should not suggest a wait")
	}

	for i := 0; i < 60; i++ {
		b.consume()
	}
	// Empty at 1 token/s: one second to a token, plus the padding second.
	if got := b.retryAfter(); got != 2*time.Second {
		t.Errorf("retryAfter = %v, want 2s", got)
	}
}
