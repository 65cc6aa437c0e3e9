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

import (
	"fmt"
	"os"
)

// ProviderPreference is the order in which configured providers are tried
// when no provider is forced explicitly.
var ProviderPreference = []string{"gemini", "openai", "anthropic"}

// LLMConfig configures the language model providers.
//
// Providers that have an API key available (inline or via OPENAI_API_KEY,
// ANTHROPIC_API_KEY, GEMINI_API_KEY) are configured automatically with
// default models, so a bare environment-driven deployment needs no llm
// section at all.
type LLMConfig struct {
	// Provider forces a specific provider ("openai", "anthropic", "gemini").
	// Empty selects the first configured one in preference order.
	Provider string `yaml:"provider,omitempty"`

	// Providers holds per-provider settings keyed by provider type.
	Providers map[string]*LLMProviderConfig `yaml:"providers,omitempty"`
}

// LLMProviderConfig configures a single LLM provider.
type LLMProviderConfig struct {
	// Type is the provider type ("openai", "anthropic", "gemini").
	// Filled from the map key when omitted.
	Type string `yaml:"type,omitempty"`

	// Model is the model name.
	Model string `yaml:"model,omitempty"`

	// APIKey authenticates requests. Defaults to the provider's
	// conventional environment variable.
	APIKey string `yaml:"api_key,omitempty"`

	// Host overrides the API base URL.
	Host string `yaml:"host,omitempty"`

	// MaxTokens caps the response length.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Temperature controls sampling randomness.
	Temperature float64 `yaml:"temperature,omitempty"`

	// Timeout is the request timeout in seconds.
	Timeout int `yaml:"timeout,omitempty"`
}

// GetProviderAPIKey returns the conventional environment API key for a
// provider type, or "" when unset.
func GetProviderAPIKey(providerType string) string {
	switch providerType {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return ""
	}
}

func defaultModel(providerType string) string {
	switch providerType {
	case "openai":
		return "gpt-4o-mini"
	case "anthropic":
		return "claude-3-5-haiku-20241022"
	case "gemini":
		return "gemini-2.0-flash"
	default:
		return ""
	}
}

// SetDefaults applies default values to LLMConfig, auto-configuring any
// provider whose API key is present in the environment.
func (c *LLMConfig) SetDefaults() {
	if c.Providers == nil {
		c.Providers = make(map[string]*LLMProviderConfig)
	}

	for _, providerType := range ProviderPreference {
		if _, ok := c.Providers[providerType]; !ok {
			if key := GetProviderAPIKey(providerType); key != "" {
				c.Providers[providerType] = &LLMProviderConfig{APIKey: key}
			}
		}
	}

	for providerType, pc := range c.Providers {
		if pc == nil {
			pc = &LLMProviderConfig{}
			c.Providers[providerType] = pc
		}
		if pc.Type == "" {
			pc.Type = providerType
		}
		pc.SetDefaults()
	}
}

// SetDefaults applies default values to a single provider config.
func (c *LLMProviderConfig) SetDefaults() {
	if c.Model == "" {
		c.Model = defaultModel(c.Type)
	}
	if c.APIKey == "" {
		c.APIKey = GetProviderAPIKey(c.Type)
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.Timeout == 0 {
		c.Timeout = 60
	}
}

// Validate validates the LLMConfig.
func (c *LLMConfig) Validate() error {
	if c.Provider != "" {
		if !isKnownProvider(c.Provider) {
			return fmt.Errorf("unsupported provider: %s (supported: openai, anthropic, gemini)", c.Provider)
		}
		if _, ok := c.Providers[c.Provider]; !ok {
			return fmt.Errorf("provider %s is forced but not configured", c.Provider)
		}
	}

	for providerType, pc := range c.Providers {
		if err := pc.Validate(); err != nil {
			return fmt.Errorf("providers.%s: %w", providerType, err)
		}
	}

	return nil
}

// Validate validates a single provider config.
func (c *LLMProviderConfig) Validate() error {
	if !isKnownProvider(c.Type) {
		return fmt.Errorf("unsupported type: %s (supported: openai, anthropic, gemini)", c.Type)
	}
	if c.MaxTokens < 0 {
		return fmt.Errorf("max_tokens cannot be negative")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}
	return nil
}

func isKnownProvider(providerType string) bool {
	switch providerType {
	case "openai", "anthropic", "gemini":
		return true
	}
	return false
}
