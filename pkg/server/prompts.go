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
	"strings"
)

var depthInstructions = map[string]string{
	"concise":  "Provide a short, concise answer (1-2 sentences)",
	"balanced": "Provide a balanced answer with key details (3-4 sentences)",
	"detailed": "Provide a detailed, comprehensive answer with examples (5-7 sentences)",
}

func qaPrompt(question, depth string) string {
	return fmt.Sprintf(`Answer the following question with clarity and accuracy.

Depth level: %s - %s

Question: %s

Provide a clear, structured answer:`, depth, depthInstructions[depth], question)
}

func summarizePrompt(text string, maxPoints int) string {
	return fmt.Sprintf(`Summarize the following text into %d key bullet points.
Keep each point concise and clear. Focus on the most important information.

Text:
%s

Provide the summary as a numbered list of bullet points:`, maxPoints, text)
}

var styleInstructions = map[string]string{
	"short_notes":   "Create %d very concise bullet point notes (5-10 words each). Focus on key facts only.",
	"long_notes":    "Create %d comprehensive detailed notes (2-3 sentences each). Include context and explanations.",
	"balanced":      "Create %d balanced bullet points (1-2 sentences each). Include main ideas and key details.",
	"bullet_points": "Create %d clear bullet points highlighting the main topics.",
	"detailed":      "Create %d detailed points with examples and explanations.",
}

func summarizeStyledPrompt(text, style string, maxPoints int) string {
	instruction, ok := styleInstructions[style]
	if !ok {
		instruction = styleInstructions["balanced"]
	}

	return fmt.Sprintf(`Summarize the following text.

%s

Text:
%s

Provide ONLY the bullet points, numbered 1-%d. No introduction or conclusion.`,
		fmt.Sprintf(instruction, maxPoints), text, maxPoints)
}

func mcqPrompt(topic string, numQuestions int) string {
	return fmt.Sprintf(`Generate %d multiple choice questions on the topic: %s

For each question, provide:
1. The question text
2. Four options (A, B, C, D)
3. The correct answer letter
4. A brief explanation

Format your response as JSON array with objects containing: "question", "options" (array of {letter, text}), "correct_answer", "explanation"

Example format:
[{"question": "...", "options": [{"letter": "A", "text": "..."}, ...], "correct_answer": "A", "explanation": "..."}]

Generate the questions now:`, numQuestions, topic)
}

var difficultyInstructions = map[string]string{
	"easy":   "straightforward questions about basic facts and definitions",
	"medium": "questions requiring understanding and interpretation",
	"hard":   "complex questions requiring analysis and application",
}

var questionTypeInstructions = map[string]string{
	"factual":     "questions about specific facts, dates, names, and definitions",
	"conceptual":  "questions about concepts, relationships, and understanding",
	"application": "questions requiring application of knowledge to scenarios",
	"mixed":       "a mix of factual, conceptual, and application questions",
}

// mcqPromptSourceLimit caps how much source text rides in the prompt.
const mcqPromptSourceLimit = 3000

// truncateChars cuts s to at most limit characters, never splitting a
// multi-byte rune.
func truncateChars(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func mcqFromTextPrompt(text string, numQuestions int, difficulty, questionType string) string {
	text = truncateChars(text, mcqPromptSourceLimit)

	return fmt.Sprintf(`Generate %d multiple choice questions based on the following text.

Requirements:
- Difficulty: %s - %s
- Type: %s - %s
- Each question must have exactly 4 options (A, B, C, D)
- Clearly indicate the correct answer
- Provide a brief explanation for the correct answer

Text:
%s

Format your response as JSON array:
[
  {
    "question": "Question text here?",
    "options": [
      {"letter": "A", "text": "Option A"},
      {"letter": "B", "text": "Option B"},
      {"letter": "C", "text": "Option C"},
      {"letter": "D", "text": "Option D"}
    ],
    "correct_answer": "A",
    "explanation": "Explanation here"
  }
]

Generate the questions now:`,
		numQuestions,
		difficulty, difficultyInstructions[difficulty],
		questionType, questionTypeInstructions[questionType],
		text)
}

func analyzeCodePrompt(code, language string) string {
	return fmt.Sprintf(`Analyze this %s code comprehensively and provide:

1. **Errors & Issues**: List all syntax errors, logic errors, style issues, security vulnerabilities, and performance problems
2. **Line-by-line corrections**: For each error, provide the corrected line
3. **Quality Score**: Rate the code 0-100 based on:
   - Syntax correctness (20 points)
   - Logic correctness (20 points)
   - Code style & readability (20 points)
   - Security (20 points)
   - Performance (20 points)
4. **Corrected Code**: Provide the fully corrected version
5. **Suggestions**: List improvements and best practices
6. **Performance Tips**: Specific optimization suggestions

CODE:
`+"```%s\n%s\n```"+`

Respond in this exact JSON format:
{
  "errors": [
    {"type": "syntax_error|logic_error|style|security|performance", "line": 5, "column": 10, "message": "Error description", "severity": "high|medium|low", "suggestion": "How to fix"}
  ],
  "line_corrections": [
    {"line": 5, "original": "bad code", "corrected": "good code", "reason": "Why this is better"}
  ],
  "quality_score": 75,
  "score_breakdown": {
    "syntax": 18,
    "logic": 20,
    "style": 15,
    "security": 20,
    "performance": 12
  },
  "corrected_code": "Full corrected code here",
  "explanation": "Overall explanation of the code and its issues",
  "suggestions": ["Suggestion 1", "Suggestion 2"],
  "performance_tips": ["Tip 1", "Tip 2"],
  "security_issues": ["Issue 1", "Issue 2"]
}

Provide ONLY the JSON response, no markdown formatting.`,
		languageName(language), language, code)
}

func quickCheckPrompt(code, language string) string {
	return fmt.Sprintf(`Quickly check this %s code for errors.
List up to 5 critical issues only.

CODE:
`+"```%s\n%s\n```"+`

Respond in JSON format:
{"has_errors": true/false, "error_count": 3, "errors": ["error 1", "error 2"]}`,
		language, language, code)
}

func explainCodePrompt(code, language string) string {
	return fmt.Sprintf("Explain the following %s code in detail.\n"+
		"Include:\n"+
		"1. What the code does at a high level\n"+
		"2. Explanation of key variables and functions\n"+
		"3. Step-by-step breakdown of logic\n"+
		"4. Any important patterns or concepts used\n"+
		"5. Potential improvements or edge cases to consider\n\n"+
		"Code:\n```%s\n%s\n```\n\n"+
		"Provide a clear, educational explanation:", language, language, code)
}

// parseBullets strips numbering and bullet markers from the model's
// summary output and caps the list at maxPoints.
func parseBullets(response string, maxPoints int) []string {
	var bullets []string
	for _, line := range strings.Split(response, "\n") {
		cleaned := strings.TrimLeft(strings.TrimSpace(line), "0123456789.-*•) ")
		cleaned = strings.TrimSpace(cleaned)
		if cleaned != "" {
			bullets = append(bullets, cleaned)
		}
		if len(bullets) == maxPoints {
			break
		}
	}
	return bullets
}

// MCQOption is one answer choice.
type MCQOption struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

// MCQuestion is one generated question.
type MCQuestion struct {
	Question      string      `json:"question"`
	Options       []MCQOption `json:"options"`
	CorrectAnswer string      `json:"correct_answer"`
	Explanation   string      `json:"explanation"`
}

// parseMCQJSON extracts the JSON question array from the model output,
// tolerating prose around it.
func parseMCQJSON(response string, numQuestions int) ([]MCQuestion, error) {
	jsonStr := response
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start != -1 && end > start {
		jsonStr = response[start : end+1]
	}

	var questions []MCQuestion
	if err := json.Unmarshal([]byte(jsonStr), &questions); err != nil {
		return nil, fmt.Errorf("failed to parse generated questions: %w", err)
	}

	if len(questions) > numQuestions {
		questions = questions[:numQuestions]
	}
	return questions, nil
}
