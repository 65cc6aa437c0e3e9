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
	"sync"
	"time"
)

// entry holds the bucket pair for one client identity. The entry mutex
// serializes refill and consume so the dual-window check is atomic.
type entry struct {
	mu     sync.Mutex
	minute *bucket
	hour   *bucket
}

// store is the in-memory bucket registry. The map lock only guards lookup,
// insertion and eviction; per-client token accounting happens under the
// entry lock.
type store struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	lastSweep time.Time
}

func newStore(now time.Time) *store {
	return &store{
		entries:   make(map[string]*entry),
		lastSweep: now,
	}
}

// getOrCreate returns the entry for an identity, creating it with full
// buckets on first sight.
func (s *store) getOrCreate(identity string, perMinute, perHour int, now time.Time) *entry {
	s.mu.RLock()
	e, ok := s.entries[identity]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[identity]; ok {
		return e
	}
	e = &entry{
		minute: newBucket(perMinute, WindowMinute, now),
		hour:   newBucket(perHour, WindowHour, now),
	}
	s.entries[identity] = e
	return e
}

// size returns the number of tracked identities.
func (s *store) size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// maybeSweep evicts idle entries, at most once per interval. An entry is
// idle when its hour bucket has not been touched within the retention
// period. Returns the number of evicted identities, or -1 when the sweep
// was skipped because one ran recently.
func (s *store) maybeSweep(now time.Time, interval, retention time.Duration) int {
	s.mu.RLock()
	due := now.Sub(s.lastSweep) >= interval
	s.mu.RUnlock()
	if !due {
		return -1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSweep) < interval {
		return -1
	}
	s.lastSweep = now

	evicted := 0
	for identity, e := range s.entries {
		e.mu.Lock()
		idle := now.Sub(e.hour.lastRefill) > retention
		e.mu.Unlock()
		if idle {
			delete(s.entries, identity)
			evicted++
		}
	}
	return evicted
}
