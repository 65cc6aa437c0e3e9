package llms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eduflow/eduflow/pkg/config"
)

func TestSelectPrefersGemini(t *testing.T) {
	cfg := &config.LLMConfig{
		Providers: map[string]*config.LLMProviderConfig{
			"openai": {Type: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"},
			"gemini": {Type: "gemini", APIKey: "g-test", Model: "gemini-2.0-flash"},
		},
	}

	p, err := Select(cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if p.Name() != "gemini" {
		t.Errorf("selected %s, want gemini", p.Name())
	}
}

func TestSelectFallsBackInPreferenceOrder(t *testing.T) {
	cfg := &config.LLMConfig{
		Providers: map[string]*config.LLMProviderConfig{
			"anthropic": {Type: "anthropic", APIKey: "a-test", Model: "claude-3-5-haiku-20241022"},
			"openai":    {Type: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"},
		},
	}

	p, err := Select(cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("selected %s, want openai", p.Name())
	}
}

func TestSelectHonorsForcedProvider(t *testing.T) {
	cfg := &config.LLMConfig{
		Provider: "anthropic",
		Providers: map[string]*config.LLMProviderConfig{
			"anthropic": {Type: "anthropic", APIKey: "a-test", Model: "claude-3-5-haiku-20241022"},
			"gemini":    {Type: "gemini", APIKey: "g-test", Model: "gemini-2.0-flash"},
		},
	}

	p, err := Select(cfg)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("selected %s, want anthropic", p.Name())
	}
}

func TestSelectWithNothingConfigured(t *testing.T) {
	cfg := &config.LLMConfig{Providers: map[string]*config.LLMProviderConfig{}}
	if _, err := Select(cfg); err == nil {
		t.Fatal("expected error when no provider is configured")
	}
}

func TestOpenAIGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}

		var req openAIRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("expected system+user messages, got %+v", req.Messages)
		}

		resp := openAIResponse{}
		resp.Choices = append(resp.Choices, struct {
			Message      openAIMessage `json:"message"`
			FinishReason string        `json:"finish_reason"`
		}{Message: openAIMessage{Role: "assistant", Content: "Photosynthesis converts light to chemical energy."}})
		resp.Usage.PromptTokens = 42
		resp.Usage.CompletionTokens = 9
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenAIProviderFromConfig(&config.LLMProviderConfig{
		Type:   "openai",
		APIKey: "sk-test",
		Model:  "gpt-4o-mini",
		Host:   server.URL,
	})
	if err != nil {
		t.Fatalf("NewOpenAIProviderFromConfig() error = %v", err)
	}

	result, err := p.Generate(context.Background(), "You are a tutor.", "What is photosynthesis?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text == "" {
		t.Error("expected non-empty completion")
	}
	if result.InputTokens != 42 || result.OutputTokens != 9 {
		t.Errorf("tokens = %d/%d, want 42/9", result.InputTokens, result.OutputTokens)
	}
}

func TestAnthropicGenerateSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	p, err := NewAnthropicProviderFromConfig(&config.LLMProviderConfig{
		Type:   "anthropic",
		APIKey: "bad-key",
		Model:  "claude-3-5-haiku-20241022",
		Host:   server.URL,
	})
	if err != nil {
		t.Fatalf("NewAnthropicProviderFromConfig() error = %v", err)
	}

	_, err = p.Generate(context.Background(), "", "hello")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
}

func TestGeminiGenerate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-goog-api-key"); got != "g-test" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		resp := geminiResponse{}
		resp.Candidates = append(resp.Candidates, struct {
			Content      geminiContent `json:"content"`
			FinishReason string        `json:"finishReason"`
		}{Content: geminiContent{Role: "model", Parts: []geminiPart{{Text: "Short answer."}}}})
		resp.UsageMetadata.PromptTokenCount = 10
		resp.UsageMetadata.CandidatesTokenCount = 3
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewGeminiProviderFromConfig(&config.LLMProviderConfig{
		Type:   "gemini",
		APIKey: "g-test",
		Model:  "gemini-2.0-flash",
		Host:   server.URL,
	})
	if err != nil {
		t.Fatalf("NewGeminiProviderFromConfig() error = %v", err)
	}

	result, err := p.Generate(context.Background(), "", "Explain briefly.")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "Short answer." {
		t.Errorf("text = %q", result.Text)
	}
}
