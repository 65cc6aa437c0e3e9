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
	"strings"
	"testing"
	"time"
)

func TestRateLimitConfigDefaults(t *testing.T) {
	cfg := &RateLimitConfig{}
	cfg.SetDefaults()

	if !cfg.IsEnabled() {
		t.Error("expected rate limiting enabled by default")
	}
	if cfg.RequestsPerMinute != 60 {
		t.Errorf("expected requests_per_minute 60, got %d", cfg.RequestsPerMinute)
	}
	if cfg.RequestsPerHour != 1000 {
		t.Errorf("expected requests_per_hour 1000, got %d", cfg.RequestsPerHour)
	}
	if cfg.CleanupInterval != time.Hour {
		t.Errorf("expected cleanup_interval 1h, got %v", cfg.CleanupInterval)
	}
	if cfg.Retention != 2*time.Hour {
		t.Errorf("expected retention 2h, got %v", cfg.Retention)
	}
	if len(cfg.ExemptPaths) != 2 {
		t.Errorf("expected default exempt paths, got %v", cfg.ExemptPaths)
	}
}

func TestRateLimitConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *RateLimitConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: &RateLimitConfig{
				Enabled:           BoolPtr(true),
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				CleanupInterval:   time.Hour,
				Retention:         2 * time.Hour,
			},
			wantErr: false,
		},
		{
			name: "negative minute limit",
			config: &RateLimitConfig{
				Enabled:           BoolPtr(true),
				RequestsPerMinute: -1,
				RequestsPerHour:   1000,
			},
			wantErr: true,
		},
		{
			name: "negative hour limit",
			config: &RateLimitConfig{
				Enabled:           BoolPtr(true),
				RequestsPerMinute: 60,
				RequestsPerHour:   -5,
			},
			wantErr: true,
		},
		{
			name: "disabled skips validation",
			config: &RateLimitConfig{
				Enabled:           BoolPtr(false),
				RequestsPerMinute: -1,
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *AuthConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: &AuthConfig{
				Enabled:    BoolPtr(true),
				Secret:     "0123456789abcdef0123456789abcdef",
				TokenTTL:   7 * 24 * time.Hour,
				BcryptCost: 10,
			},
			wantErr: false,
		},
		{
			name: "missing secret",
			config: &AuthConfig{
				Enabled:    BoolPtr(true),
				TokenTTL:   time.Hour,
				BcryptCost: 10,
			},
			wantErr: true,
		},
		{
			name: "short secret",
			config: &AuthConfig{
				Enabled:    BoolPtr(true),
				Secret:     "short",
				TokenTTL:   time.Hour,
				BcryptCost: 10,
			},
			wantErr: true,
		},
		{
			name:    "disabled skips validation",
			config:  &AuthConfig{Enabled: BoolPtr(false)},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseExpandsEnvVars(t *testing.T) {
	t.Setenv("EDUFLOW_TEST_RPM", "30")

	yaml := `
rate_limit:
  requests_per_minute: ${EDUFLOW_TEST_RPM:-60}
  requests_per_hour: ${EDUFLOW_TEST_RPH:-500}
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("expected env override 30, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.RateLimit.RequestsPerHour != 500 {
		t.Errorf("expected default fallback 500, got %d", cfg.RateLimit.RequestsPerHour)
	}
}

func TestParseRejectsInvalidConfig(t *testing.T) {
	yaml := `
server:
  port: 99999
`
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("expected port error, got %v", err)
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
	if cfg.Server.Address() != "0.0.0.0:8000" {
		t.Errorf("unexpected default address %s", cfg.Server.Address())
	}
}

func TestUploadConfigValidation(t *testing.T) {
	cfg := &UploadConfig{ChunkSize: 100, ChunkOverlap: 100}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when overlap >= chunk size")
	}

	cfg = &UploadConfig{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default upload config should validate, got %v", err)
	}
}
