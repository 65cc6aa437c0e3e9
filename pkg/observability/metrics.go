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

// Package observability exposes Prometheus metrics through the
// OpenTelemetry metrics SDK.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/eduflow/eduflow/pkg/config"
)

// Metrics holds the application's instruments. A nil *Metrics is a
// valid no-op recorder, so callers never need to branch on whether
// metrics are enabled.
type Metrics struct {
	httpRequests    metric.Int64Counter
	httpDuration    metric.Float64Histogram
	rateLimitDenies metric.Int64Counter
	llmCalls        metric.Int64Counter
	llmDuration     metric.Float64Histogram
	llmInputTokens  metric.Int64Counter
	llmOutputTokens metric.Int64Counter
	llmErrors       metric.Int64Counter
}

// InitMetrics creates the Prometheus exporter and instruments. The
// returned handler serves the scrape endpoint. Both are nil when
// metrics are disabled.
func InitMetrics(cfg *config.MetricsConfig) (*Metrics, http.Handler, error) {
	if cfg == nil || !cfg.IsEnabled() {
		return nil, nil, nil
	}

	// A dedicated registry keeps re-initialization (config reload) from
	// tripping duplicate-registration errors on the global one.
	registry := promclient.NewRegistry()
	promExporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(promExporter),
	)

	meter := meterProvider.Meter("eduflow")

	httpRequests, err := meter.Int64Counter(
		"eduflow_http_requests_total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}

	httpDuration, err := meter.Float64Histogram(
		"eduflow_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}

	rateLimitDenies, err := meter.Int64Counter(
		"eduflow_rate_limit_denials_total",
		metric.WithDescription("Total requests denied by the rate limiter"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create rate limit denials counter: %w", err)
	}

	llmCalls, err := meter.Int64Counter(
		"eduflow_llm_requests_total",
		metric.WithDescription("Total LLM requests"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm requests counter: %w", err)
	}

	llmDuration, err := meter.Float64Histogram(
		"eduflow_llm_request_duration_seconds",
		metric.WithDescription("LLM request duration in seconds"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm duration histogram: %w", err)
	}

	llmInputTokens, err := meter.Int64Counter(
		"eduflow_llm_tokens_input_total",
		metric.WithDescription("Total input tokens sent to the LLM"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm input tokens counter: %w", err)
	}

	llmOutputTokens, err := meter.Int64Counter(
		"eduflow_llm_tokens_output_total",
		metric.WithDescription("Total output tokens from the LLM"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm output tokens counter: %w", err)
	}

	llmErrors, err := meter.Int64Counter(
		"eduflow_llm_errors_total",
		metric.WithDescription("Total LLM request errors"),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create llm errors counter: %w", err)
	}

	m := &Metrics{
		httpRequests:    httpRequests,
		httpDuration:    httpDuration,
		rateLimitDenies: rateLimitDenies,
		llmCalls:        llmCalls,
		llmDuration:     llmDuration,
		llmInputTokens:  llmInputTokens,
		llmOutputTokens: llmOutputTokens,
		llmErrors:       llmErrors,
	}
	return m, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), nil
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRateLimitDenial records one denied request.
func (m *Metrics) RecordRateLimitDenial(ctx context.Context, window string) {
	if m == nil {
		return
	}
	m.rateLimitDenies.Add(ctx, 1, metric.WithAttributes(attribute.String("window", window)))
}

// RecordLLMCall records one LLM request with its token usage.
func (m *Metrics) RecordLLMCall(ctx context.Context, provider, model string, duration time.Duration, inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	m.llmCalls.Add(ctx, 1, attrs)
	m.llmDuration.Record(ctx, duration.Seconds(), attrs)
	m.llmInputTokens.Add(ctx, int64(inputTokens), attrs)
	m.llmOutputTokens.Add(ctx, int64(outputTokens), attrs)
	if err != nil {
		m.llmErrors.Add(ctx, 1, attrs)
	}
}
