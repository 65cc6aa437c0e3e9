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
	"net/http/httptest"
	"testing"
)

func TestResolveIdentity(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		trusted    []string
		want       string
	}{
		{
			name:       "forwarded header single entry",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "203.0.113.7",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header takes first entry",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "203.0.113.7, 70.41.3.18, 150.172.238.178",
			want:       "203.0.113.7",
		},
		{
			name:       "forwarded header entry is trimmed",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "  203.0.113.7  , 70.41.3.18",
			want:       "203.0.113.7",
		},
		{
			name:       "no header falls back to peer host",
			remoteAddr: "198.51.100.9:52701",
			want:       "198.51.100.9",
		},
		{
			name: "no origin at all",
			want: UnknownIdentity,
		},
		{
			name:       "header honored from trusted proxy",
			remoteAddr: "10.0.0.1:443",
			forwarded:  "203.0.113.7",
			trusted:    []string{"10.0.0.1"},
			want:       "203.0.113.7",
		},
		{
			name:       "header ignored from untrusted peer",
			remoteAddr: "198.51.100.9:443",
			forwarded:  "203.0.113.7",
			trusted:    []string{"10.0.0.1"},
			want:       "198.51.100.9",
		},
		{
			name:       "blank forwarded entry falls back",
			remoteAddr: "198.51.100.9:443",
			forwarded:  "  ,203.0.113.7",
			want:       "198.51.100.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/qa", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			resolver := NewIdentityResolver(tt.trusted)
			if got := resolver.Resolve(r); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}
