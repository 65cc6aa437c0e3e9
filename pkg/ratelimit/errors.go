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
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrRateLimited is returned when a request exceeds a rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidIdentity is returned when a client identity is empty.
	ErrInvalidIdentity = errors.New("invalid client identity")
)

// LimitExceededError carries the denial decision for callers that enforce
// limits outside the HTTP middleware.
type LimitExceededError struct {
	// Decision is the denial decision.
	Decision *Decision
}

// Error returns the error message.
func (e *LimitExceededError) Error() string {
	if e.Decision == nil {
		return "rate limit exceeded"
	}
	return fmt.Sprintf("rate limit exceeded for %s: %d requests per %s",
		e.Decision.Identity, e.Decision.Limit, e.Decision.DeniedWindow)
}

// Unwrap returns ErrRateLimited so errors.Is matching works.
func (e *LimitExceededError) Unwrap() error {
	return ErrRateLimited
}

// NewLimitExceededError creates a LimitExceededError from a denial decision.
func NewLimitExceededError(decision *Decision) *LimitExceededError {
	return &LimitExceededError{Decision: decision}
}

// IsLimitExceeded checks whether an error signals a denied request.
func IsLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// DecisionFromError extracts the Decision from a LimitExceededError.
// Returns nil for other errors.
func DecisionFromError(err error) *Decision {
	var lee *LimitExceededError
	if errors.As(err, &lee) {
		return lee.Decision
	}
	return nil
}
