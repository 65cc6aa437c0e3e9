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

// Package server wires the HTTP API: LLM-backed study endpoints, file
// upload variants, authentication, gamification and the operational
// endpoints, all behind the per-client rate limiter.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/eduflow/eduflow/pkg/auth"
	"github.com/eduflow/eduflow/pkg/config"
	"github.com/eduflow/eduflow/pkg/extract"
	"github.com/eduflow/eduflow/pkg/gamification"
	"github.com/eduflow/eduflow/pkg/llms"
	"github.com/eduflow/eduflow/pkg/observability"
	"github.com/eduflow/eduflow/pkg/ratelimit"
	"github.com/eduflow/eduflow/pkg/utils"
)

// promptCounter reports how many tokens a prompt will consume.
type promptCounter interface {
	Count(text string) int
}

// Server is the EduFlow HTTP server.
type Server struct {
	cfg       *config.Config
	provider  llms.Provider
	extractor *extract.Extractor
	auth      *auth.Service
	game      *gamification.Service
	db        *sql.DB
	tokens    promptCounter

	metrics        *observability.Metrics
	metricsHandler http.Handler

	server *http.Server
}

// Option customizes the server.
type Option func(*Server)

// WithProvider sets the LLM provider. Without one the study endpoints
// report 503 and /readiness reports degraded.
func WithProvider(p llms.Provider) Option {
	return func(s *Server) { s.provider = p }
}

// WithDatabase sets the SQLite handle used by readiness checks.
func WithDatabase(db *sql.DB) Option {
	return func(s *Server) { s.db = db }
}

// WithAuth enables the account endpoints.
func WithAuth(svc *auth.Service) Option {
	return func(s *Server) { s.auth = svc }
}

// WithGamification enables activity tracking and its endpoints.
func WithGamification(svc *gamification.Service) Option {
	return func(s *Server) { s.game = svc }
}

// WithTokenCounter overrides the counter used to budget prompt sizes.
func WithTokenCounter(c promptCounter) Option {
	return func(s *Server) { s.tokens = c }
}

// WithMetrics installs the metrics recorder and scrape handler.
func WithMetrics(m *observability.Metrics, handler http.Handler) Option {
	return func(s *Server) {
		s.metrics = m
		s.metricsHandler = handler
	}
}

// New creates a Server from configuration.
func New(cfg *config.Config, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		extractor: extract.New(cfg.Upload),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.provider != nil && s.tokens == nil {
		counter, err := utils.NewTokenCounter(s.provider.ModelName())
		if err != nil {
			// Prompts still go out unbudgeted; only the size guard is lost.
			slog.Warn("Token counting unavailable", "model", s.provider.ModelName(), "error", err)
		} else {
			s.tokens = counter
		}
	}
	return s
}

// Handler builds the full route tree with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Metrics sits outermost so every request is measured, including
	// the ones the rate limiter turns away.
	r.Use(observability.MetricsMiddleware(s.metrics))
	r.Use(chimw.RequestID)
	r.Use(s.requestLogging)
	r.Use(s.corsMiddleware)
	r.Use(chimw.Compress(5))
	r.Use(s.rateLimitMiddleware())

	r.Get("/health", s.handleHealth)
	r.Get("/readiness", s.handleReadiness)
	if s.metricsHandler != nil {
		r.Method(http.MethodGet, s.cfg.Server.Metrics.Path, s.metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		// Claims are attached when a valid token is present so activity
		// can be credited, but the study endpoints stay public.
		r.Use(s.optionalAuth)

		r.Get("/", s.handleIndex)
		r.Post("/qa", s.handleQA)
		r.Post("/summarize", s.handleSummarize)
		r.Post("/mcq", s.handleMCQ)
		r.Post("/explain-code", s.handleExplainCode)
		r.Post("/status", s.handleStatusCreate)
		r.Get("/status", s.handleStatusList)

		r.Route("/v2", func(r chi.Router) {
			r.Post("/summarize", s.handleSummarizeV2)
			r.Post("/mcq", s.handleMCQV2)
		})

		if s.auth != nil {
			r.Route("/v3", func(r chi.Router) {
				r.Post("/auth/signup", s.handleSignup)
				r.Post("/auth/login", s.handleLogin)
				r.Post("/code/analyze", s.handleCodeAnalyze)
				r.Post("/code/quick-check", s.handleQuickCheck)

				r.Group(func(r chi.Router) {
					r.Use(s.auth.Tokens().HTTPMiddleware)
					r.Get("/auth/me", s.handleMe)
					r.Get("/gamification/stats", s.handleStats)
					r.Get("/gamification/leaderboard", s.handleLeaderboard)
				})
			})
		}
	})

	return r
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.WriteTimeout,
	}

	slog.Info("HTTP server starting", "address", s.cfg.Server.Address())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("HTTP server shutting down")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown error: %w", err)
	}
	return nil
}

// rateLimitMiddleware wires the limiter with the denial metric attached.
func (s *Server) rateLimitMiddleware() func(http.Handler) http.Handler {
	cfg := s.cfg.RateLimit
	if !cfg.IsEnabled() {
		return ratelimit.Middleware(ratelimit.MiddlewareConfig{})
	}

	exempt := append([]string{}, cfg.ExemptPaths...)
	if s.metricsHandler != nil {
		exempt = append(exempt, s.cfg.Server.Metrics.Path)
	}

	return ratelimit.Middleware(ratelimit.MiddlewareConfig{
		Limiter:     ratelimit.NewFromConfig(cfg),
		Resolver:    ratelimit.NewIdentityResolver(cfg.TrustedProxies),
		ExemptPaths: exempt,
		OnLimited: func(w http.ResponseWriter, r *http.Request, decision *ratelimit.Decision) {
			s.metrics.RecordRateLimitDenial(r.Context(), string(decision.DeniedWindow))
			ratelimit.DefaultOnLimited(w, r, decision)
		},
	})
}

// recordActivity credits a gamification activity to the authenticated
// user, if any. Failures are logged, never surfaced.
func (s *Server) recordActivity(r *http.Request, activity gamification.ActivityType) {
	if s.game == nil {
		return
	}
	claims := auth.GetClaims(r)
	if claims == nil {
		return
	}
	if _, err := s.game.RecordActivity(r.Context(), claims.Subject, activity); err != nil {
		slog.Warn("Failed to record activity", "activity", activity, "user", claims.Subject, "error", err)
	}
}
