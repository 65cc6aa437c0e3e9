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

import "time"

// bucket is a single token bucket. Tokens are fractional: capacity N over
// window W refills at N/W.Seconds() tokens per second, so waiting exactly
// one window refills the bucket completely regardless of when it drained.
// Access must be serialized by the owning entry's lock.
type bucket struct {
	tokens     float64
	lastRefill time.Time
	capacity   float64
	rate       float64 // tokens per second
}

func newBucket(capacity int, window Window, now time.Time) *bucket {
	return &bucket{
		tokens:     float64(capacity),
		lastRefill: now,
		capacity:   float64(capacity),
		rate:       float64(capacity) / window.Duration().Seconds(),
	}
}

// refill credits tokens for the time elapsed since the last refill and
// advances the refill timestamp. A clock step backwards credits nothing
// rather than debiting the bucket.
func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens += elapsed * b.rate
	if b.tokens > b.capacity {
		b.tokens = b.capacity
	}
	b.lastRefill = now
}

// hasToken reports whether one full token is available.
func (b *bucket) hasToken() bool {
	return b.tokens >= 1
}

// consume removes one token. Callers must have checked hasToken.
func (b *bucket) consume() {
	b.tokens--
}

// remaining is the whole number of requests currently available.
func (b *bucket) remaining() int64 {
	if b.tokens < 0 {
		return 0
	}
	return int64(b.tokens)
}

// retryAfter is the suggested client wait until a token is available,
// padded by one second so a prompt retry lands after the refill.
func (b *bucket) retryAfter() time.Duration {
	if b.tokens >= 1 || b.rate <= 0 {
		return 0
	}
	deficit := 1 - b.tokens
	secs := int64(deficit/b.rate) + 1
	return time.Duration(secs) * time.Second
}
