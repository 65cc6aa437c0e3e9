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

package config

import "fmt"

// UploadConfig configures file upload handling and text extraction.
type UploadConfig struct {
	// MaxFileBytes is the maximum accepted upload size.
	// Default: 10 MiB
	MaxFileBytes int64 `yaml:"max_file_bytes,omitempty"`

	// MaxTextChars is the maximum extracted text length processed per
	// document. Default: 50000
	MaxTextChars int `yaml:"max_text_chars,omitempty"`

	// ChunkSize is the target chunk length in characters. Default: 1000
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// ChunkOverlap is the number of characters repeated between adjacent
	// chunks. Default: 200
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`
}

// SetDefaults applies default values to UploadConfig.
func (c *UploadConfig) SetDefaults() {
	if c.MaxFileBytes == 0 {
		c.MaxFileBytes = 10 << 20
	}
	if c.MaxTextChars == 0 {
		c.MaxTextChars = 50000
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.ChunkOverlap == 0 {
		c.ChunkOverlap = 200
	}
}

// Validate checks the UploadConfig for errors.
func (c *UploadConfig) Validate() error {
	if c.MaxFileBytes < 0 {
		return fmt.Errorf("max_file_bytes cannot be negative")
	}
	if c.MaxTextChars < 0 {
		return fmt.Errorf("max_text_chars cannot be negative")
	}
	if c.ChunkSize < 0 || c.ChunkOverlap < 0 {
		return fmt.Errorf("chunk sizes cannot be negative")
	}
	if c.ChunkSize > 0 && c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size")
	}
	return nil
}
