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

// Package extract turns uploaded study material (PDF, DOCX, plain text,
// markdown) into clean text suitable for prompting, with length validation
// and sentence-aware chunking.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/eduflow/eduflow/pkg/config"
)

// Extractor extracts text from uploaded documents.
type Extractor struct {
	cfg config.UploadConfig
}

// New creates an Extractor with the given upload limits.
func New(cfg config.UploadConfig) *Extractor {
	return &Extractor{cfg: cfg}
}

// Extract returns the text content of an uploaded file. The format is
// chosen by file extension.
func (e *Extractor) Extract(filename string, data []byte) (string, error) {
	if e.cfg.MaxFileBytes > 0 && int64(len(data)) > e.cfg.MaxFileBytes {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, len(data), e.cfg.MaxFileBytes)
	}

	var (
		text string
		err  error
	)

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".doc":
		return "", fmt.Errorf("%w: legacy .doc is not supported, convert to .docx", ErrUnsupportedFormat)
	case ".txt", ".md":
		text = extractPlainText(data)
	default:
		return "", fmt.Errorf("%w: %s (supported: .pdf, .docx, .txt, .md)", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	if e.cfg.MaxTextChars > 0 && len([]rune(text)) > e.cfg.MaxTextChars {
		return "", fmt.Errorf("%w: %d characters (max %d)", ErrTextTooLong, len([]rune(text)), e.cfg.MaxTextChars)
	}

	return text, nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w", err)
	}

	var parts []string
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Keep going; a single broken page should not sink the upload.
			continue
		}
		if strings.TrimSpace(text) != "" {
			parts = append(parts, text)
		}
	}

	return strings.Join(parts, "\n\n"), nil
}

var xmlTagPattern = regexp.MustCompile(`<[^>]*>`)

func extractDOCX(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse DOCX: %w", err)
	}
	defer doc.Close()

	content := doc.Editable().GetContent()

	// GetContent returns the raw document XML; turn paragraph ends into
	// newlines before stripping the remaining markup.
	content = strings.ReplaceAll(content, "</w:p>", "</w:p>\n")
	content = xmlTagPattern.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "&amp;", "&")
	content = strings.ReplaceAll(content, "&lt;", "<")
	content = strings.ReplaceAll(content, "&gt;", ">")

	return content, nil
}

// extractPlainText decodes text uploads as UTF-8, falling back to Latin-1
// for legacy files.
func extractPlainText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	runes := make([]rune, len(data))
	for i, b := range data {
		runes[i] = rune(b)
	}
	return string(runes)
}
