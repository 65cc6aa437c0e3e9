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

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduflow/eduflow/pkg/config"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Service registers users and authenticates logins.
type Service struct {
	store      *Store
	tokens     *TokenManager
	bcryptCost int
}

// NewService wires the user store and token manager from configuration.
func NewService(db *sql.DB, cfg *config.AuthConfig) (*Service, error) {
	tokens, err := NewTokenManager([]byte(cfg.Secret), cfg.Issuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      NewStore(db),
		tokens:     tokens,
		bcryptCost: cfg.BcryptCost,
	}, nil
}

// Tokens exposes the token manager for middleware wiring.
func (s *Service) Tokens() *TokenManager {
	return s.tokens
}

// Register creates an account and returns the user with a signed token.
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("invalid email address")
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates a user and returns a signed token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}

	if !CheckPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// GetUser returns the account for a verified token subject.
func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.store.GetUserByID(ctx, id)
}
