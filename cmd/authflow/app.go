// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/config"
	"github.com/holomush/authflow/internal/logging"
	"github.com/holomush/authflow/internal/session"
)

// app bundles what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	client *authclient.Client
}

func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup("authflow", version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	}, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	client, err := authclient.New(cfg.API.BaseURL,
		authclient.WithTimeout(cfg.API.Timeout),
		authclient.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, client: client}, nil
}

// openSessions opens the configured session backend. Callers close it.
func (a *app) openSessions(ctx context.Context) (session.Backend, error) {
	return session.Open(ctx, a.cfg.Session, a.logger)
}
