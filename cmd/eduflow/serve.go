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

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/eduflow/eduflow/pkg/auth"
	"github.com/eduflow/eduflow/pkg/config"
	"github.com/eduflow/eduflow/pkg/database"
	"github.com/eduflow/eduflow/pkg/gamification"
	"github.com/eduflow/eduflow/pkg/llms"
	"github.com/eduflow/eduflow/pkg/observability"
	"github.com/eduflow/eduflow/pkg/server"
)

// ServeCmd starts the API server.
type ServeCmd struct {
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch config file for changes and restart the server."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	for {
		cfg, err := loadConfig(cli.Config)
		if err != nil {
			return err
		}
		if c.Port != 0 {
			cfg.Server.Port = c.Port
		}

		restarted, err := c.runOnce(ctx, cli, cfg)
		if err != nil || !restarted {
			return err
		}
		slog.Info("Config changed, restarting server")
	}
}

// runOnce builds and runs the server until shutdown or, with --watch, a
// config change. Returns true when a restart is wanted.
func (c *ServeCmd) runOnce(ctx context.Context, cli *CLI, cfg *config.Config) (bool, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	if c.Watch && cli.Config != "" {
		changes, err := config.Watch(runCtx, cli.Config)
		if err != nil {
			return false, fmt.Errorf("failed to watch config: %w", err)
		}
		go func() {
			select {
			case <-runCtx.Done():
			case <-changes:
				cancelRun()
			}
		}()
	}

	srv, db, err := buildServer(cfg)
	if err != nil {
		return false, err
	}
	if db != nil {
		defer db.Close()
	}

	fmt.Printf("EduFlow server ready on http://%s\n", cfg.Server.Address())
	fmt.Printf("  API:     http://%s/api/\n", cfg.Server.Address())
	fmt.Printf("  Health:  http://%s/health\n", cfg.Server.Address())
	if cfg.Server.Metrics.IsEnabled() {
		fmt.Printf("  Metrics: http://%s%s\n", cfg.Server.Address(), cfg.Server.Metrics.Path)
	}

	if err := srv.Start(runCtx); err != nil {
		return false, err
	}
	// A canceled run context with a live parent means the watcher fired.
	return runCtx.Err() != nil && ctx.Err() == nil, nil
}

// buildServer assembles the server and its collaborators from config.
func buildServer(cfg *config.Config) (*server.Server, *sql.DB, error) {
	opts := []server.Option{}

	provider, err := llms.Select(&cfg.LLM)
	if err != nil {
		// The server still runs; study endpoints report the problem.
		slog.Warn("No LLM provider available", "error", err)
	} else {
		slog.Info("LLM provider selected", "provider", provider.Name(), "model", provider.ModelName())
		opts = append(opts, server.WithProvider(provider))
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	opts = append(opts, server.WithDatabase(db))
	opts = append(opts, server.WithGamification(gamification.New(db)))

	if cfg.Auth.IsEnabled() {
		authSvc, err := auth.NewService(db, cfg.Auth)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to create auth service: %w", err)
		}
		opts = append(opts, server.WithAuth(authSvc))
		slog.Info("Authentication enabled", "issuer", cfg.Auth.Issuer)
	}

	metrics, metricsHandler, err := observability.InitMetrics(cfg.Server.Metrics)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	if metricsHandler != nil {
		opts = append(opts, server.WithMetrics(metrics, metricsHandler))
	}

	return server.New(cfg, opts...), db, nil
}
