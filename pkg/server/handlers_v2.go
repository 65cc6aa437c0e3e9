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
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eduflow/eduflow/pkg/extract"
	"github.com/eduflow/eduflow/pkg/gamification"
)

// Long inputs are chunk-summarized before the final pass.
const longTextThreshold = 8000

// MCQ generation only ever uses a prefix of the document.
const mcqTextLimit = 5000

// uploadInput is the common text-or-file input of the v2 endpoints.
type uploadInput struct {
	text     string
	source   string // "text" or "file (<ext>)"
	fromFile bool
}

// readUploadInput pulls text from the form's text field or an uploaded
// file, extracting file content by format.
func (s *Server) readUploadInput(w http.ResponseWriter, r *http.Request) (*uploadInput, bool) {
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return nil, false
	}

	in := &uploadInput{text: r.FormValue("text"), source: "text"}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()

		if header.Filename == "" {
			writeError(w, http.StatusBadRequest, "No file provided")
			return nil, false
		}

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return nil, false
		}

		text, err := s.extractor.Extract(header.Filename, data)
		if err != nil {
			status := http.StatusBadRequest
			if !isExtractionError(err) {
				status = http.StatusInternalServerError
			}
			writeError(w, status, err.Error())
			return nil, false
		}

		ext := strings.TrimPrefix(filepath.Ext(header.Filename), ".")
		in.text = text
		in.source = fmt.Sprintf("file (%s)", ext)
		in.fromFile = true
		slog.Info("Processed uploaded file", "filename", header.Filename, "chars", len(text))
	}

	if in.text == "" {
		writeError(w, http.StatusBadRequest, "Either text or file must be provided")
		return nil, false
	}
	if s.cfg.Upload.MaxTextChars > 0 && len(in.text) > s.cfg.Upload.MaxTextChars {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("text must be at most %d characters", s.cfg.Upload.MaxTextChars))
		return nil, false
	}
	return in, true
}

func isExtractionError(err error) bool {
	return errors.Is(err, extract.ErrUnsupportedFormat) ||
		errors.Is(err, extract.ErrFileTooLarge) ||
		errors.Is(err, extract.ErrTextTooLong) ||
		errors.Is(err, extract.ErrEmptyDocument)
}

func formInt(r *http.Request, key string, def int) int {
	v := r.FormValue(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func (s *Server) handleSummarizeV2(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readUploadInput(w, r)
	if !ok {
		return
	}

	style := r.FormValue("style")
	if style == "" {
		style = "balanced"
	}
	if _, ok := styleInstructions[style]; !ok {
		writeError(w, http.StatusBadRequest,
			"style must be one of: short_notes, long_notes, balanced, bullet_points, detailed")
		return
	}
	maxPoints := formInt(r, "max_points", 5)
	if maxPoints < 1 || maxPoints > 20 {
		writeError(w, http.StatusBadRequest, "max_points must be between 1 and 20")
		return
	}

	summary, err := s.summarizeText(r, in.text, style, maxPoints)
	if err != nil {
		slog.Error("Summarizer v2 endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.recordActivity(r, gamification.ActivitySummarize)
	if in.fromFile {
		s.recordActivity(r, gamification.ActivityFileUpload)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":              uuid.NewString(),
		"original_length": len(in.text),
		"summary":         summary,
		"style":           style,
		"timestamp":       time.Now().UTC(),
		"source":          in.source,
	})
}

// summarizeText summarizes directly, or for long documents summarizes
// each chunk and then summarizes the combined chunk summaries.
func (s *Server) summarizeText(r *http.Request, text, style string, maxPoints int) ([]string, error) {
	if len(text) <= longTextThreshold {
		response, err := s.generate(r, summarizeStyledPrompt(text, style, maxPoints))
		if err != nil {
			return nil, err
		}
		return parseBullets(response, maxPoints), nil
	}

	chunks := s.extractor.Chunk(text)
	slog.Info("Summarizing long text in chunks", "chunks", len(chunks))

	perChunk := maxPoints / len(chunks)
	if perChunk < 3 {
		perChunk = 3
	}

	// Chunks are independent, so summarize a few at a time.
	chunkBullets := make([][]string, len(chunks))
	g, _ := errgroup.WithContext(r.Context())
	g.SetLimit(4)
	for i, chunk := range chunks {
		g.Go(func() error {
			response, err := s.generate(r, summarizeStyledPrompt(chunk, style, perChunk))
			if err != nil {
				return err
			}
			chunkBullets[i] = parseBullets(response, perChunk)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var combined []string
	for _, bullets := range chunkBullets {
		combined = append(combined, bullets...)
	}

	response, err := s.generate(r, summarizeStyledPrompt(strings.Join(combined, "\n"), style, maxPoints))
	if err != nil {
		return nil, err
	}
	return parseBullets(response, maxPoints), nil
}

func (s *Server) handleMCQV2(w http.ResponseWriter, r *http.Request) {
	in, ok := s.readUploadInput(w, r)
	if !ok {
		return
	}

	numQuestions := formInt(r, "num_questions", 5)
	if numQuestions < 1 || numQuestions > 20 {
		writeError(w, http.StatusBadRequest, "num_questions must be between 1 and 20")
		return
	}
	difficulty := r.FormValue("difficulty")
	if difficulty == "" {
		difficulty = "medium"
	}
	if _, ok := difficultyInstructions[difficulty]; !ok {
		writeError(w, http.StatusBadRequest, "difficulty must be one of: easy, medium, hard")
		return
	}
	questionType := r.FormValue("question_type")
	if questionType == "" {
		questionType = "mixed"
	}
	if _, ok := questionTypeInstructions[questionType]; !ok {
		writeError(w, http.StatusBadRequest,
			"question_type must be one of: factual, conceptual, application, mixed")
		return
	}

	text := truncateChars(in.text, mcqTextLimit)
	if len(text) < len(in.text) {
		slog.Info("Text truncated for MCQ generation", "limit", mcqTextLimit)
	}

	response, err := s.generate(r, mcqFromTextPrompt(text, numQuestions, difficulty, questionType))
	if err != nil {
		slog.Error("MCQ v2 endpoint error", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	questions, err := parseMCQJSON(response, numQuestions)
	if err != nil {
		slog.Error("Failed to parse MCQ response", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to generate valid questions")
		return
	}

	s.recordActivity(r, gamification.ActivityMCQ)
	if in.fromFile {
		s.recordActivity(r, gamification.ActivityFileUpload)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            uuid.NewString(),
		"source_length": len(text),
		"questions":     questions,
		"difficulty":    difficulty,
		"question_type": questionType,
		"timestamp":     time.Now().UTC(),
		"source":        in.source,
	})
}
