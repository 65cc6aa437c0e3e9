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
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduflow/eduflow/pkg/auth"
	"github.com/eduflow/eduflow/pkg/config"
	"github.com/eduflow/eduflow/pkg/database"
	"github.com/eduflow/eduflow/pkg/gamification"
	"github.com/eduflow/eduflow/pkg/llms"
)

type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Generate(ctx context.Context, system, prompt string) (*llms.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &llms.Result{Text: f.response, InputTokens: 5, OutputTokens: 10}, nil
}

func (f *fakeProvider) Name() string      { return "fake" }
func (f *fakeProvider) ModelName() string { return "fake-model" }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	// Generous limits so ordinary tests never trip the limiter.
	cfg.RateLimit.RequestsPerMinute = 10000
	cfg.RateLimit.RequestsPerHour = 100000
	return cfg
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	s := New(testConfig(t))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestReadiness(t *testing.T) {
	t.Run("degraded without provider", func(t *testing.T) {
		s := New(testConfig(t))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readiness", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body := decodeBody(t, rec)
		assert.Equal(t, "degraded", body["status"])
		assert.Equal(t, "not_configured", body["llm_provider"])
	})

	t.Run("ready with provider", func(t *testing.T) {
		s := New(testConfig(t), WithProvider(&fakeProvider{response: "ok"}))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/readiness", nil))

		body := decodeBody(t, rec)
		assert.Equal(t, "ready", body["status"])
		assert.Equal(t, "fake", body["llm_provider"])
	})
}

func TestIndex(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "EduFlow API", body["message"])
	assert.Equal(t, "fake", body["llm_provider"])
}

func TestQA(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "Photosynthesis converts light to energy."}))
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/qa", map[string]interface{}{
		"question": "What is photosynthesis?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "Photosynthesis converts light to energy.", body["answer"])
	assert.Equal(t, "balanced", body["depth"], "depth should default to balanced")
	assert.NotEmpty(t, body["id"])
}

func TestQAValidation(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "x"}))
	handler := s.Handler()

	tests := []struct {
		name string
		req  map[string]interface{}
	}{
		{"empty question", map[string]interface{}{"question": "   "}},
		{"overlong question", map[string]interface{}{"question": strings.Repeat("q", 1001)}},
		{"bad depth", map[string]interface{}{"question": "hi?", "depth": "exhaustive"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, handler, "/api/qa", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSummarizeParsesBullets(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{
		response: "1. First point\n2. Second point\n3. Third point",
	}))

	rec := postJSON(t, s.Handler(), "/api/summarize", map[string]interface{}{
		"text":       "The mitochondria is the powerhouse of the cell and produces ATP.",
		"max_points": 2,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	summary := body["summary"].([]interface{})
	require.Len(t, summary, 2, "summary should be capped at max_points")
	assert.Equal(t, "First point", summary[0])
	assert.Equal(t, "Second point", summary[1])
}

func TestMCQParsesQuestions(t *testing.T) {
	mcqJSON := `Here are your questions:
[{"question": "What is 2+2?", "options": [{"letter": "A", "text": "3"}, {"letter": "B", "text": "4"}], "correct_answer": "B", "explanation": "Basic arithmetic"}]`

	s := New(testConfig(t), WithProvider(&fakeProvider{response: mcqJSON}))

	rec := postJSON(t, s.Handler(), "/api/mcq", map[string]interface{}{
		"topic": "arithmetic",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	questions := body["questions"].([]interface{})
	require.Len(t, questions, 1)
	q := questions[0].(map[string]interface{})
	assert.Equal(t, "What is 2+2?", q["question"])
	assert.Equal(t, "B", q["correct_answer"])
}

func TestMCQRejectsGarbageModelOutput(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "sorry, I cannot do that"}))

	rec := postJSON(t, s.Handler(), "/api/mcq", map[string]interface{}{"topic": "x"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestExplainCodeValidation(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "This code prints hello."}))
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/explain-code", map[string]interface{}{
		"code": "print('hello')", "language": "brainfuck",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postJSON(t, handler, "/api/explain-code", map[string]interface{}{
		"code": "print('hello')",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "python", decodeBody(t, rec)["language"], "language should default to python")
}

func TestRateLimitHeadersAndDenial(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerMinute = 2
	cfg.RateLimit.RequestsPerHour = 100
	s := New(cfg, WithProvider(&fakeProvider{response: "ok"}))
	handler := s.Handler()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/", nil)
	req.RemoteAddr = "10.1.1.1:5000"
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining-Minute"))
	assert.Equal(t, "99", rec.Header().Get("X-RateLimit-Remaining-Hour"))

	// Exhaust and expect 429 with Retry-After.
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		req = httptest.NewRequest("GET", "/api/", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		handler.ServeHTTP(rec, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	body := decodeBody(t, rec)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.Equal(t, "2 requests per minute", body["limit"])
}

func TestHealthIsExemptFromRateLimiting(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimit.RequestsPerMinute = 1
	s := New(cfg)
	handler := s.Handler()

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/health", nil)
		req.RemoteAddr = "10.1.1.1:5000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining-Minute"))
	}
}

func TestSummarizeV2WithTextForm(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{
		response: "1. Point one\n2. Point two",
	}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("text", "Cell biology is the study of cells, their structure and function."))
	require.NoError(t, mw.WriteField("style", "short_notes"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v2/summarize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "short_notes", body["style"])
	assert.Equal(t, "text", body["source"])
}

func TestSummarizeV2WithFileUpload(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "1. Uploaded point"}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Notes about osmosis and diffusion across membranes."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v2/summarize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "file (txt)", decodeBody(t, rec)["source"])
}

func TestSummarizeV2RequiresInput(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{response: "x"}))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v2/summarize", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func authTestServer(t *testing.T, extra ...Option) *Server {
	t.Helper()
	cfg := testConfig(t)
	cfg.Database = &config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")}
	cfg.Database.SetDefaults()

	db, err := database.Open(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	authCfg := &config.AuthConfig{
		Secret:     "test-secret-at-least-16-bytes",
		Issuer:     "eduflow",
		TokenTTL:   time.Hour,
		BcryptCost: 4,
	}
	authSvc, err := auth.NewService(db, authCfg)
	require.NoError(t, err)

	opts := []Option{
		WithProvider(&fakeProvider{response: "answer"}),
		WithDatabase(db),
		WithAuth(authSvc),
		WithGamification(gamification.New(db)),
	}
	return New(cfg, append(opts, extra...)...)
}

func TestAuthFlow(t *testing.T) {
	s := authTestServer(t)
	handler := s.Handler()

	// Signup returns a usable token.
	rec := postJSON(t, handler, "/api/v3/auth/signup", map[string]string{
		"email": "ada@example.com", "password": "lovelace1815", "name": "Ada",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	token := body["access_token"].(string)
	require.NotEmpty(t, token)
	assert.Equal(t, "bearer", body["token_type"])

	// Duplicate signup conflicts.
	rec = postJSON(t, handler, "/api/v3/auth/signup", map[string]string{
		"email": "ada@example.com", "password": "lovelace1815", "name": "Ada",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login works and /me returns the account.
	rec = postJSON(t, handler, "/api/v3/auth/login", map[string]string{
		"email": "ada@example.com", "password": "lovelace1815",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest("GET", "/api/v3/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", decodeBody(t, rec)["email"])

	// Without a token /me is rejected.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v3/auth/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong password is rejected.
	rec = postJSON(t, handler, "/api/v3/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGamificationEndpoints(t *testing.T) {
	s := authTestServer(t)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/v3/auth/signup", map[string]string{
		"email": "ada@example.com", "password": "lovelace1815", "name": "Ada",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["access_token"].(string)

	// Authenticated study activity earns points.
	req := httptest.NewRequest("POST", "/api/qa", strings.NewReader(`{"question":"why?"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/api/v3/gamification/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	// 10 for the signup daily login + 5 for the question.
	assert.Equal(t, float64(15), body["total_points"])

	req = httptest.NewRequest("GET", "/api/v3/gamification/leaderboard?period=all_time", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body = decodeBody(t, rec)
	assert.Equal(t, "all_time", body["period"])
	entries := body["leaderboard"].([]interface{})
	require.Len(t, entries, 1)

	req = httptest.NewRequest("GET", "/api/v3/gamification/leaderboard?period=weekly", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProviderErrorSurfacesAs500(t *testing.T) {
	s := New(testConfig(t), WithProvider(&fakeProvider{err: context.DeadlineExceeded}))

	rec := postJSON(t, s.Handler(), "/api/qa", map[string]interface{}{"question": "hi?"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNoProviderConfigured(t *testing.T) {
	s := New(testConfig(t))

	rec := postJSON(t, s.Handler(), "/api/qa", map[string]interface{}{"question": "hi?"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "no LLM provider configured")
}

// fixedCounter reports the same token count for any prompt.
type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func TestPromptBudget(t *testing.T) {
	t.Run("oversized prompt is rejected before the provider call", func(t *testing.T) {
		s := New(testConfig(t),
			WithProvider(&fakeProvider{response: "unreachable"}),
			WithTokenCounter(fixedCounter(maxPromptTokens+1)),
		)

		rec := postJSON(t, s.Handler(), "/api/qa", map[string]interface{}{"question": "hi?"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "prompt too large")
	})

	t.Run("prompt within budget goes through", func(t *testing.T) {
		s := New(testConfig(t),
			WithProvider(&fakeProvider{response: "fine"}),
			WithTokenCounter(fixedCounter(100)),
		)

		rec := postJSON(t, s.Handler(), "/api/qa", map[string]interface{}{"question": "hi?"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "fine", decodeBody(t, rec)["answer"])
	})
}

func TestTruncateCharsKeepsRuneBoundary(t *testing.T) {
	text := strings.Repeat("é", 10)

	got := truncateChars(text, 4)
	assert.Equal(t, "éééé", got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "abc", truncateChars("abc", 10), "short input passes through")
}

func TestStatusChecks(t *testing.T) {
	s := authTestServer(t)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/status", map[string]string{"client_name": "monitor-1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, "monitor-1", body["client_name"])
	assert.NotEmpty(t, body["id"])

	rec = postJSON(t, handler, "/api/status", map[string]string{"client_name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var checks []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checks))
	require.Len(t, checks, 1)
	assert.Equal(t, "monitor-1", checks[0]["client_name"])
}

func TestStatusListWithoutDatabase(t *testing.T) {
	s := New(testConfig(t))

	req := httptest.NewRequest("GET", "/api/status", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rec.Body.String()))
}
