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
	"net"
	"net/http"
	"strings"
)

// UnknownIdentity is the shared identity assigned to requests whose origin
// cannot be determined. Such requests pool into a single pair of buckets.
const UnknownIdentity = "unknown"

// IdentityResolver extracts a client identity from an HTTP request.
type IdentityResolver struct {
	// trustedProxies restricts X-Forwarded-For handling. When non-empty,
	// the header is only honored if the direct peer is a listed proxy.
	// When empty, the header is trusted from any peer.
	trustedProxies map[string]bool
}

// NewIdentityResolver creates a resolver with the given trusted proxy
// addresses (hosts without ports).
func NewIdentityResolver(trustedProxies []string) *IdentityResolver {
	trusted := make(map[string]bool, len(trustedProxies))
	for _, p := range trustedProxies {
		trusted[p] = true
	}
	return &IdentityResolver{trustedProxies: trusted}
}

// Resolve returns the client identity for a request: the first entry of
// X-Forwarded-For when the header is present and trusted, otherwise the
// peer host, otherwise UnknownIdentity.
func (ir *IdentityResolver) Resolve(r *http.Request) string {
	peer := peerHost(r)

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" && ir.headerTrusted(peer) {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}

	if peer != "" {
		return peer
	}
	return UnknownIdentity
}

func (ir *IdentityResolver) headerTrusted(peer string) bool {
	if len(ir.trustedProxies) == 0 {
		return true
	}
	return ir.trustedProxies[peer]
}

// peerHost returns the host portion of the request's remote address.
func peerHost(r *http.Request) string {
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port (e.g. from tests)
		return r.RemoteAddr
	}
	return host
}
