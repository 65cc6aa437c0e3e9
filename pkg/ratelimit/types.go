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

// Window identifies a rate limit time window.
type Window string

const (
	// WindowMinute is the one-minute window.
	WindowMinute Window = "minute"

	// WindowHour is the one-hour window.
	WindowHour Window = "hour"
)

// Duration returns the window length.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	default:
		return 0
	}
}

// Decision is the outcome of a rate limit check for one request.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Identity is the client identity the decision applies to.
	Identity string

	// RemainingMinute is the whole number of requests left in the minute
	// window after this decision.
	RemainingMinute int64

	// RemainingHour is the whole number of requests left in the hour
	// window after this decision.
	RemainingHour int64

	// DeniedWindow names the window that rejected the request. Empty when
	// Allowed is true. The minute window is checked first, so it is
	// reported even when both windows are exhausted.
	DeniedWindow Window

	// Limit is the capacity of the denied window.
	Limit int

	// RetryAfter is how long the client should wait before retrying.
	// Zero when Allowed is true.
	RetryAfter time.Duration
}
