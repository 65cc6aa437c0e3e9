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
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analysisJSON = `{
  "errors": [
    {"type": "syntax_error", "line": 2, "message": "missing closing parenthesis", "severity": "high", "suggestion": "add )"}
  ],
  "line_corrections": [
    {"line": 2, "original": "print('hi'", "corrected": "print('hi')", "reason": "unbalanced parenthesis"}
  ],
  "quality_score": 62,
  "score_breakdown": {"syntax": 10, "logic": 18, "style": 14, "security": 20, "performance": 0},
  "corrected_code": "def hello():\n    print('hi')",
  "explanation": "The function never closes its call.",
  "suggestions": ["Add a docstring"],
  "performance_tips": [],
  "security_issues": []
}`

func postCodeForm(t *testing.T, handler http.Handler, fields map[string]string, filename, fileContent string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(fileContent))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v3/code/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCodeAnalyzeParsesResponse(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{response: "Here is the analysis:\n" + analysisJSON}))
	rec := postCodeForm(t, s.Handler(), map[string]string{
		"code":     "def hello():\n    print('hi'",
		"language": "python",
	}, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, "python", body["language"])
	assert.Equal(t, true, body["has_errors"])
	assert.Equal(t, float64(1), body["error_count"])
	assert.Equal(t, float64(62), body["quality_score"])
	assert.Equal(t, "def hello():\n    print('hi')", body["corrected_code"])

	corrections := body["line_corrections"].([]interface{})
	require.Len(t, corrections, 1)
	first := corrections[0].(map[string]interface{})
	assert.Equal(t, "print('hi')", first["corrected"])
}

func TestCodeAnalyzeDetectsLanguageFromFilename(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{response: analysisJSON}))
	rec := postCodeForm(t, s.Handler(), nil, "fib.go", "func fib(n int) int { return n }")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "go", decodeBody(t, rec)["language"])
}

func TestCodeAnalyzeFallsBackOnProse(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{
		response: "This code looks good overall, just one minor issue with naming.",
	}))
	rec := postCodeForm(t, s.Handler(), map[string]string{"code": "x = 1"}, "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["has_errors"], "prose mentioning an issue should flag errors")
	assert.Equal(t, float64(75), body["quality_score"])
	assert.NotEmpty(t, body["explanation"])
	assert.Equal(t, []interface{}{}, body["errors"])
}

func TestCodeAnalyzeValidation(t *testing.T) {
	s := authTestServer(t)
	handler := s.Handler()

	t.Run("no input", func(t *testing.T) {
		rec := postCodeForm(t, handler, nil, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("code too long", func(t *testing.T) {
		rec := postCodeForm(t, handler, map[string]string{
			"code": strings.Repeat("x", maxAnalyzeChars+1),
		}, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unsupported language becomes unknown", func(t *testing.T) {
		s := authTestServer(t, WithProvider(&fakeProvider{response: analysisJSON}))
		rec := postCodeForm(t, s.Handler(), map[string]string{
			"code": "x = 1", "language": "brainfuck",
		}, "", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "unknown", decodeBody(t, rec)["language"])
	})
}

func TestCodeAnalyzeCreditsAuthenticatedUser(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{response: analysisJSON}))
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/v3/auth/signup", map[string]string{
		"email": "grace@example.com", "password": "hopper1906", "name": "Grace",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	token := decodeBody(t, rec)["access_token"].(string)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("code", "def f(:"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest("POST", "/api/v3/code/analyze", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decodeBody(t, rec)["user_id"])

	req = httptest.NewRequest("GET", "/api/v3/gamification/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	// 10 for the signup daily login + 20 for the analyzed fix.
	assert.Equal(t, float64(30), body["total_points"])
	counts := body["activity_counts"].(map[string]interface{})
	assert.Equal(t, float64(1), counts["code_fix"])
}

func TestQuickCheck(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{
		response: `Sure: {"has_errors": true, "error_count": 2, "errors": ["missing colon", "undefined name"]}`,
	}))
	rec := postJSON(t, s.Handler(), "/api/v3/code/quick-check", map[string]string{
		"code": "def f()\n    return x",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["has_errors"])
	assert.Equal(t, float64(2), body["error_count"])
	assert.Len(t, body["errors"].([]interface{}), 2)
}

func TestQuickCheckToleratesGarbageOutput(t *testing.T) {
	s := authTestServer(t, WithProvider(&fakeProvider{response: "I could not check that."}))
	rec := postJSON(t, s.Handler(), "/api/v3/code/quick-check", map[string]string{"code": "x = 1"})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, false, body["has_errors"])
	assert.Equal(t, []interface{}{}, body["errors"])
}

func TestQuickCheckRequiresCode(t *testing.T) {
	s := authTestServer(t)
	rec := postJSON(t, s.Handler(), "/api/v3/code/quick-check", map[string]string{"code": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"main.py", "python"},
		{"app.jsx", "javascript"},
		{"Widget.TSX", "typescript"},
		{"query.sql", "sql"},
		{"notes.txt", "unknown"},
		{"Makefile", "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, detectLanguage(tt.filename), tt.filename)
	}
}
