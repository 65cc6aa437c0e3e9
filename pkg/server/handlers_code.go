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
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/eduflow/eduflow/pkg/auth"
	"github.com/eduflow/eduflow/pkg/gamification"
)

// maxAnalyzeChars caps how much source code one analysis accepts.
const maxAnalyzeChars = 10000

// codeLanguages maps a language identifier to its display name and the
// file extensions it is detected from.
var codeLanguages = map[string]struct {
	name       string
	extensions []string
}{
	"python":     {"Python", []string{".py"}},
	"javascript": {"JavaScript", []string{".js", ".jsx"}},
	"typescript": {"TypeScript", []string{".ts", ".tsx"}},
	"java":       {"Java", []string{".java"}},
	"cpp":        {"C++", []string{".cpp", ".cc", ".cxx"}},
	"c":          {"C", []string{".c", ".h"}},
	"csharp":     {"C#", []string{".cs"}},
	"go":         {"Go", []string{".go"}},
	"rust":       {"Rust", []string{".rs"}},
	"php":        {"PHP", []string{".php"}},
	"ruby":       {"Ruby", []string{".rb"}},
	"swift":      {"Swift", []string{".swift"}},
	"kotlin":     {"Kotlin", []string{".kt"}},
	"scala":      {"Scala", []string{".scala"}},
	"r":          {"R", []string{".r"}},
	"sql":        {"SQL", []string{".sql"}},
	"html":       {"HTML", []string{".html", ".htm"}},
	"css":        {"CSS", []string{".css"}},
}

// detectLanguage maps a filename extension to a language identifier,
// or "unknown".
func detectLanguage(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return "unknown"
	}
	for lang, data := range codeLanguages {
		for _, e := range data.extensions {
			if e == ext {
				return lang
			}
		}
	}
	return "unknown"
}

func languageName(language string) string {
	if data, ok := codeLanguages[language]; ok {
		return data.name
	}
	return language
}

// CodeIssue is one detected problem in analyzed code.
type CodeIssue struct {
	Type       string `json:"type"`
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
	Suggestion string `json:"suggestion,omitempty"`
}

// LineCorrection is a single-line fix with its rationale.
type LineCorrection struct {
	Line      int    `json:"line"`
	Original  string `json:"original"`
	Corrected string `json:"corrected"`
	Reason    string `json:"reason"`
}

// codeAnalysis is the payload the model returns for a full analysis.
type codeAnalysis struct {
	Errors          []CodeIssue      `json:"errors"`
	LineCorrections []LineCorrection `json:"line_corrections"`
	QualityScore    int              `json:"quality_score"`
	ScoreBreakdown  map[string]int   `json:"score_breakdown"`
	CorrectedCode   string           `json:"corrected_code"`
	Explanation     string           `json:"explanation"`
	Suggestions     []string         `json:"suggestions"`
	PerformanceTips []string         `json:"performance_tips"`
	SecurityIssues  []string         `json:"security_issues"`

	hasErrors  bool
	errorCount int
}

func (a *codeAnalysis) normalize() {
	if a.Errors == nil {
		a.Errors = []CodeIssue{}
	}
	if a.LineCorrections == nil {
		a.LineCorrections = []LineCorrection{}
	}
	if a.Suggestions == nil {
		a.Suggestions = []string{}
	}
	if a.PerformanceTips == nil {
		a.PerformanceTips = []string{}
	}
	if a.SecurityIssues == nil {
		a.SecurityIssues = []string{}
	}
	if a.ScoreBreakdown == nil {
		a.ScoreBreakdown = map[string]int{
			"syntax": 0, "logic": 0, "style": 0, "security": 0, "performance": 0,
		}
	}
}

// parseCodeAnalysis extracts the JSON analysis object from the model
// output, tolerating prose around it.
func parseCodeAnalysis(response string) (*codeAnalysis, error) {
	jsonStr := response
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		jsonStr = response[start : end+1]
	}

	var analysis codeAnalysis
	if err := json.Unmarshal([]byte(jsonStr), &analysis); err != nil {
		return nil, fmt.Errorf("failed to parse code analysis: %w", err)
	}

	analysis.normalize()
	analysis.hasErrors = len(analysis.Errors) > 0
	analysis.errorCount = len(analysis.Errors)
	return &analysis, nil
}

// fallbackAnalysis salvages a rough result when the model answered in
// prose instead of JSON.
func fallbackAnalysis(response string) *codeAnalysis {
	lower := strings.ToLower(response)

	score := 70
	switch {
	case strings.Contains(lower, "excellent") || strings.Contains(lower, "perfect"):
		score = 90
	case strings.Contains(lower, "good"):
		score = 75
	case strings.Contains(lower, "poor") || strings.Contains(lower, "bad"):
		score = 40
	}

	hasErrors := false
	for _, keyword := range []string{"error", "issue", "problem", "bug", "incorrect"} {
		if strings.Contains(lower, keyword) {
			hasErrors = true
			break
		}
	}

	analysis := &codeAnalysis{
		QualityScore: score,
		Explanation:  truncateChars(response, 1000),
		ScoreBreakdown: map[string]int{
			"syntax":      score / 5,
			"logic":       score / 5,
			"style":       score / 5,
			"security":    score / 5,
			"performance": score / 5,
		},
		hasErrors:  hasErrors,
		errorCount: strings.Count(lower, "error"),
	}
	analysis.normalize()
	return analysis
}

// decodeSource interprets uploaded bytes as UTF-8, falling back to
// Latin-1 so legacy-encoded files still analyze.
func decodeSource(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}

// handleCodeAnalyze runs a full analysis: error detection, quality
// scoring, line corrections and a corrected version. Code arrives as a
// form field or an uploaded source file.
func (s *Server) handleCodeAnalyze(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	code := r.FormValue("code")
	language := r.FormValue("language")
	if language == "" {
		language = "python"
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()

		if header.Filename == "" {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		code = decodeSource(data)

		if detected := detectLanguage(header.Filename); detected != "unknown" {
			language = detected
		}
		slog.Info("Analyzing code file", "filename", header.Filename, "language", language)
	}

	if code == "" {
		writeError(w, http.StatusBadRequest, "Either code or file must be provided")
		return
	}
	if chars := len([]rune(code)); chars > maxAnalyzeChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("code too long (%d chars, max %d)", chars, maxAnalyzeChars))
		return
	}
	if _, ok := codeLanguages[language]; !ok {
		language = "unknown"
	}

	response, err := s.generate(r, analyzeCodePrompt(code, language))
	if err != nil {
		slog.Error("Code analysis error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	analysis, err := parseCodeAnalysis(response)
	if err != nil {
		slog.Warn("Falling back to heuristic code analysis", "error", err)
		analysis = fallbackAnalysis(response)
	}

	s.recordActivity(r, gamification.ActivityCodeFix)

	result := map[string]interface{}{
		"id":               uuid.NewString(),
		"language":         language,
		"has_errors":       analysis.hasErrors,
		"error_count":      analysis.errorCount,
		"errors":           analysis.Errors,
		"quality_score":    analysis.QualityScore,
		"score_breakdown":  analysis.ScoreBreakdown,
		"explanation":      analysis.Explanation,
		"corrected_code":   analysis.CorrectedCode,
		"line_corrections": analysis.LineCorrections,
		"suggestions":      analysis.Suggestions,
		"performance_tips": analysis.PerformanceTips,
		"security_issues":  analysis.SecurityIssues,
		"timestamp":        time.Now().UTC(),
	}
	if claims := auth.GetClaims(r); claims != nil {
		result["user_id"] = claims.Subject
	}

	slog.Info("Code analyzed", "language", language,
		"score", analysis.QualityScore, "errors", analysis.errorCount)
	writeJSON(w, http.StatusOK, result)
}

type quickCheckRequest struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// quickCheckResult is the lightweight error report of a quick check.
type quickCheckResult struct {
	HasErrors  bool     `json:"has_errors"`
	ErrorCount int      `json:"error_count"`
	Errors     []string `json:"errors"`
}

// parseQuickCheck extracts the result object from the model output; an
// unparseable answer degrades to a clean report.
func parseQuickCheck(response string) quickCheckResult {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start != -1 && end > start {
		var out quickCheckResult
		if err := json.Unmarshal([]byte(response[start:end+1]), &out); err == nil {
			if out.Errors == nil {
				out.Errors = []string{}
			}
			return out
		}
	}
	return quickCheckResult{Errors: []string{}}
}

// handleQuickCheck runs a fast error-only scan without the full
// scoring pass.
func (s *Server) handleQuickCheck(w http.ResponseWriter, r *http.Request) {
	var req quickCheckRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code cannot be empty")
		return
	}
	if chars := len([]rune(req.Code)); chars > maxAnalyzeChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("code too long (%d chars, max %d)", chars, maxAnalyzeChars))
		return
	}
	if req.Language == "" {
		req.Language = "python"
	}

	response, err := s.generate(r, quickCheckPrompt(req.Code, req.Language))
	if err != nil {
		slog.Error("Quick check error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, parseQuickCheck(response))
}
