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

// Package auth provides user accounts, password hashing and JWT-based
// authentication.
package auth

import (
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Claims represents the claims carried by an access token.
type Claims struct {
	Subject string // User ID
	Email   string
	Name    string
}

// TokenManager issues and verifies HMAC-signed access tokens.
type TokenManager struct {
	secret   []byte
	issuer   string
	tokenTTL time.Duration
}

// NewTokenManager creates a TokenManager signing with the given secret.
func NewTokenManager(secret []byte, issuer string, tokenTTL time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}
	return &TokenManager{
		secret:   secret,
		issuer:   issuer,
		tokenTTL: tokenTTL,
	}, nil
}

// Issue signs a token for the given user.
func (m *TokenManager) Issue(userID, email, name string) (string, error) {
	now := time.Now()

	token, err := jwt.NewBuilder().
		Subject(userID).
		Issuer(m.issuer).
		IssuedAt(now).
		Expiration(now.Add(m.tokenTTL)).
		Claim("email", email).
		Claim("name", name).
		Build()
	if err != nil {
		return "", fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, m.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return string(signed), nil
}

// Verify validates a token's signature, expiration and issuer, and
// extracts its claims.
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
		jwt.WithIssuer(m.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims := &Claims{Subject: token.Subject()}

	if email, ok := token.Get("email"); ok {
		if emailStr, ok := email.(string); ok {
			claims.Email = emailStr
		}
	}
	if name, ok := token.Get("name"); ok {
		if nameStr, ok := name.(string); ok {
			claims.Name = nameStr
		}
	}

	return claims, nil
}
