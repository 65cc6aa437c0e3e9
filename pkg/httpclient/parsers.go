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

package httpclient

import (
	"net/http"
	"strconv"
	"time"
)

func parseRetryAfter(headers http.Header) time.Duration {
	if retryAfter := headers.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}

// ParseAnthropicHeaders extracts rate limit info from Anthropic API headers.
func ParseAnthropicHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: parseRetryAfter(headers)}

	// Reset time headers (RFC3339 format)
	resetHeaders := []string{
		"anthropic-ratelimit-requests-reset",
		"anthropic-ratelimit-input-tokens-reset",
		"anthropic-ratelimit-output-tokens-reset",
	}
	for _, header := range resetHeaders {
		if resetStr := headers.Get(header); resetStr != "" {
			if resetTime, err := time.Parse(time.RFC3339, resetStr); err == nil {
				info.ResetTime = resetTime.Unix()
				break
			}
		}
	}

	return info
}

// ParseOpenAIHeaders extracts rate limit info from OpenAI API headers.
// OpenAI reset headers are durations like "1s" or "6m0s".
func ParseOpenAIHeaders(headers http.Header) RateLimitInfo {
	info := RateLimitInfo{RetryAfter: parseRetryAfter(headers)}

	resetHeaders := []string{
		"x-ratelimit-reset-requests",
		"x-ratelimit-reset-tokens",
	}
	for _, header := range resetHeaders {
		if resetStr := headers.Get(header); resetStr != "" {
			if d, err := time.ParseDuration(resetStr); err == nil {
				info.ResetTime = time.Now().Add(d).Unix()
				break
			}
		}
	}

	return info
}

// ParseGenericHeaders extracts only the standard Retry-After header.
// Used for providers without documented rate limit headers.
func ParseGenericHeaders(headers http.Header) RateLimitInfo {
	return RateLimitInfo{RetryAfter: parseRetryAfter(headers)}
}
