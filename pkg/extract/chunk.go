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

package extract

// sentence boundary lookback when splitting chunks
const boundaryLookback = 100

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?', '\n':
		return true
	}
	return false
}

// Chunk splits text into overlapping chunks of roughly the configured
// size, preferring to break just after a sentence end within the last
// hundred characters of each chunk.
func (e *Extractor) Chunk(text string) []string {
	size := e.cfg.ChunkSize
	overlap := e.cfg.ChunkOverlap

	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		if len(runes) == 0 {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		// Prefer a sentence boundary near the cut, but never shrink a
		// chunk below half size or progress can stall.
		limit := end - boundaryLookback
		if limit < start+size/2 {
			limit = start + size/2
		}
		for i := end - 1; i > limit; i-- {
			if isSentenceEnd(runes[i]) {
				end = i + 1
				break
			}
		}

		chunks = append(chunks, string(runes[start:end]))

		next := end - overlap
		if next <= start {
			// Guard against overlap swallowing all progress.
			next = start + 1
		}
		start = next
	}

	return chunks
}
