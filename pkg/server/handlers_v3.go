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

package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eduflow/eduflow/pkg/auth"
	"github.com/eduflow/eduflow/pkg/gamification"
)

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func tokenResponse(user *auth.User, token string) map[string]interface{} {
	return map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.game != nil {
		if _, err := s.game.RecordActivity(r.Context(), user.ID, gamification.ActivityDailyLogin); err != nil {
			slog.Warn("Failed to record signup login activity", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, tokenResponse(user, token))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		slog.Error("Login error", "error", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if s.game != nil {
		if _, err := s.game.RecordActivity(r.Context(), user.ID, gamification.ActivityDailyLogin); err != nil {
			slog.Warn("Failed to record login activity", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, tokenResponse(user, token))
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaims(r)

	user, err := s.auth.GetUser(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("Get user error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.game == nil {
		writeError(w, http.StatusServiceUnavailable, "Gamification is not available")
		return
	}

	claims := auth.GetClaims(r)
	stats, err := s.game.Stats(r.Context(), claims.Subject)
	if err != nil {
		slog.Error("Get stats error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.game == nil {
		writeError(w, http.StatusServiceUnavailable, "Gamification is not available")
		return
	}

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "monthly"
	}

	const v3LeaderboardMaxLimit = 100

	var since time.Time
	switch period {
	case "monthly":
		now := time.Now().UTC()
		since = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	case "all_time":
		// zero since counts everything
	default:
		writeError(w, http.StatusBadRequest, "Period must be 'monthly' or 'all_time'")
		return
	}

	limit := formInt(r, "limit", 10)
	if limit > v3LeaderboardMaxLimit {
		limit = v3LeaderboardMaxLimit
	}

	entries, err := s.game.Leaderboard(r.Context(), since, limit)
	if err != nil {
		slog.Error("Leaderboard error", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"period":      period,
		"leaderboard": entries,
	})
}
