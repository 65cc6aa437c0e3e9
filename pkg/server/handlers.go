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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eduflow/eduflow/pkg/gamification"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// maxPromptTokens bounds a single prompt. The limiter governs request
// volume; this guards cost per request.
const maxPromptTokens = 12000

// generate runs one LLM request, enforcing the prompt budget and
// recording metrics.
func (s *Server) generate(r *http.Request, prompt string) (string, error) {
	if s.provider == nil {
		return "", errNoProvider
	}

	promptTokens := 0
	if s.tokens != nil {
		promptTokens = s.tokens.Count(prompt)
		if promptTokens > maxPromptTokens {
			return "", fmt.Errorf("prompt too large: %d tokens (limit %d)", promptTokens, maxPromptTokens)
		}
	}

	start := time.Now()
	result, err := s.provider.Generate(r.Context(), "", prompt)

	var inputTokens, outputTokens int
	if result != nil {
		inputTokens, outputTokens = result.InputTokens, result.OutputTokens
	}
	if inputTokens == 0 {
		// Providers that omit usage still feed the token metrics.
		inputTokens = promptTokens
	}
	s.metrics.RecordLLMCall(r.Context(), s.provider.Name(), s.provider.ModelName(),
		time.Since(start), inputTokens, outputTokens, err)

	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result.Text), nil
}

var errNoProvider = fmt.Errorf("no LLM provider configured (set GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY)")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReadiness(w http.ResponseWriter, r *http.Request) {
	dbStatus := "not_configured"
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			dbStatus = "unavailable"
		} else {
			dbStatus = "connected"
		}
	}

	llmStatus := "not_configured"
	status := "degraded"
	if s.provider != nil {
		llmStatus = s.provider.Name()
		status = "ready"
	}

	// Always 200: the database is optional and a missing provider is a
	// configuration problem, not a crash.
	writeJSON(w, http.StatusOK, map[string]string{
		"status":       status,
		"database":     dbStatus,
		"llm_provider": llmStatus,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	llmProvider := "not_configured"
	if s.provider != nil {
		llmProvider = s.provider.Name()
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "EduFlow API",
		"version":      "1.0.0",
		"status":       "operational",
		"llm_provider": llmProvider,
		"endpoints": map[string]string{
			"qa":             "POST /api/qa - Ask questions and get AI answers",
			"summarizer":     "POST /api/summarize - Summarize text passages",
			"mcq":            "POST /api/mcq - Generate multiple choice questions",
			"code_explainer": "POST /api/explain-code - Explain code snippets",
		},
	})
}

type statusCheckRequest struct {
	ClientName string `json:"client_name"`
}

// handleStatusCreate records a client status ping. The check is
// answered even when persistence is unavailable.
func (s *Server) handleStatusCreate(w http.ResponseWriter, r *http.Request) {
	var req statusCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ClientName = strings.TrimSpace(req.ClientName)
	if req.ClientName == "" {
		writeError(w, http.StatusBadRequest, "client_name cannot be empty")
		return
	}

	check := map[string]interface{}{
		"id":          uuid.NewString(),
		"client_name": req.ClientName,
		"timestamp":   time.Now().UTC(),
	}
	if s.db != nil {
		if _, err := s.db.ExecContext(r.Context(),
			`INSERT INTO status_checks (id, client_name, created_at) VALUES (?, ?, ?)`,
			check["id"], req.ClientName, check["timestamp"]); err != nil {
			slog.Warn("Failed to persist status check", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, check)
}

// handleStatusList returns recent status checks, newest first. Without
// a database the list is empty rather than an error.
func (s *Server) handleStatusList(w http.ResponseWriter, r *http.Request) {
	checks := []map[string]interface{}{}
	if s.db == nil {
		writeJSON(w, http.StatusOK, checks)
		return
	}

	rows, err := s.db.QueryContext(r.Context(),
		`SELECT id, client_name, created_at FROM status_checks ORDER BY created_at DESC LIMIT 1000`)
	if err != nil {
		slog.Warn("Failed to fetch status checks", "error", err)
		writeJSON(w, http.StatusOK, checks)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		var created time.Time
		if err := rows.Scan(&id, &name, &created); err != nil {
			slog.Warn("Failed to scan status check", "error", err)
			continue
		}
		checks = append(checks, map[string]interface{}{
			"id": id, "client_name": name, "timestamp": created,
		})
	}
	writeJSON(w, http.StatusOK, checks)
}

type qaRequest struct {
	Question string `json:"question"`
	Depth    string `json:"depth"`
}

func (q *qaRequest) validate() error {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if len(q.Question) > 1000 {
		return fmt.Errorf("question must be at most 1000 characters")
	}
	if q.Depth == "" {
		q.Depth = "balanced"
	}
	if _, ok := depthInstructions[q.Depth]; !ok {
		return fmt.Errorf("depth must be one of: concise, balanced, detailed")
	}
	return nil
}

func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	var req qaRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer, err := s.generate(r, qaPrompt(req.Question, req.Depth))
	if err != nil {
		slog.Error("QA endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, gamification.ActivityQA)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        uuid.NewString(),
		"question":  req.Question,
		"answer":    answer,
		"depth":     req.Depth,
		"timestamp": time.Now().UTC(),
	})
}

type summarizeRequest struct {
	Text      string `json:"text"`
	MaxPoints int    `json:"max_points"`
}

func (q *summarizeRequest) validate() error {
	q.Text = strings.TrimSpace(q.Text)
	if len(q.Text) < 10 {
		return fmt.Errorf("text must be at least 10 characters")
	}
	if len(q.Text) > 10000 {
		return fmt.Errorf("text must be at most 10000 characters")
	}
	if q.MaxPoints == 0 {
		q.MaxPoints = 5
	}
	if q.MaxPoints < 1 || q.MaxPoints > 20 {
		return fmt.Errorf("max_points must be between 1 and 20")
	}
	return nil
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := s.generate(r, summarizePrompt(req.Text, req.MaxPoints))
	if err != nil {
		slog.Error("Summarizer endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, gamification.ActivitySummarize)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            uuid.NewString(),
		"original_text": req.Text,
		"summary":       parseBullets(response, req.MaxPoints),
		"timestamp":     time.Now().UTC(),
	})
}

type mcqRequest struct {
	Topic        string `json:"topic"`
	NumQuestions int    `json:"num_questions"`
}

func (q *mcqRequest) validate() error {
	q.Topic = strings.TrimSpace(q.Topic)
	if q.Topic == "" {
		return fmt.Errorf("topic cannot be empty")
	}
	if len(q.Topic) > 200 {
		return fmt.Errorf("topic must be at most 200 characters")
	}
	if q.NumQuestions == 0 {
		q.NumQuestions = 5
	}
	if q.NumQuestions < 1 || q.NumQuestions > 20 {
		return fmt.Errorf("num_questions must be between 1 and 20")
	}
	return nil
}

func (s *Server) handleMCQ(w http.ResponseWriter, r *http.Request) {
	var req mcqRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	response, err := s.generate(r, mcqPrompt(req.Topic, req.NumQuestions))
	if err != nil {
		slog.Error("MCQ endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	questions, err := parseMCQJSON(response, req.NumQuestions)
	if err != nil {
		slog.Error("Failed to parse MCQ response", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate valid questions")
		return
	}

	s.recordActivity(r, gamification.ActivityMCQ)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":        uuid.NewString(),
		"topic":     req.Topic,
		"questions": questions,
		"timestamp": time.Now().UTC(),
	})
}

var allowedLanguages = map[string]bool{
	"python": true, "javascript": true, "java": true, "cpp": true,
	"csharp": true, "go": true, "rust": true, "typescript": true,
}

type explainCodeRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

func (q *explainCodeRequest) validate() error {
	q.Code = strings.TrimSpace(q.Code)
	if q.Code == "" {
		return fmt.Errorf("code cannot be empty")
	}
	if len(q.Code) > 5000 {
		return fmt.Errorf("code must be at most 5000 characters")
	}
	if q.Language == "" {
		q.Language = "python"
	}
	q.Language = strings.ToLower(q.Language)
	if !allowedLanguages[q.Language] {
		return fmt.Errorf("language must be one of: python, javascript, java, cpp, csharp, go, rust, typescript")
	}
	return nil
}

func (s *Server) handleExplainCode(w http.ResponseWriter, r *http.Request) {
	var req explainCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	explanation, err := s.generate(r, explainCodePrompt(req.Code, req.Language))
	if err != nil {
		slog.Error("Code explainer endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, gamification.ActivityCodeExplain)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":          uuid.NewString(),
		"code":        req.Code,
		"language":    req.Language,
		"explanation": explanation,
		"timestamp":   time.Now().UTC(),
	})
}
