// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/authflow/internal/observability"
	"github.com/holomush/authflow/internal/web"
	"github.com/holomush/authflow/pkg/errutil"
)

// serveConfig holds flag overrides for the serve command.
type serveConfig struct {
	addr        string
	metricsAddr string
}

func newServeCmd() *cobra.Command {
	cfg := &serveConfig{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the signup and login forms over HTTP",
		Long: `Serve the signup, login and user list pages. Sessions are kept in
HTTP-only cookies. Metrics and health probes are served on a separate
address unless it is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&cfg.addr, "addr", "", "listen address (overrides web.addr)")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "metrics address (overrides web.metrics_addr)")
	return cmd
}

func runServe(cmd *cobra.Command, cfg *serveConfig) error {
	ctx := cmd.Context()
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	addr := a.cfg.Web.Addr
	if cmd.Flags().Changed("addr") {
		addr = cfg.addr
	}
	metricsAddr := a.cfg.Web.MetricsAddr
	if cmd.Flags().Changed("metrics-addr") {
		metricsAddr = cfg.metricsAddr
	}

	opts := []web.Option{
		web.WithLogger(a.logger),
		web.WithSecureCookies(a.cfg.Web.SecureCookies),
	}

	var ready atomic.Bool
	if metricsAddr != "" {
		obs := observability.NewServer(metricsAddr, ready.Load, a.logger)
		errCh, err := obs.Start()
		if err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := obs.Stop(stopCtx); err != nil {
				errutil.LogError(ctx, a.logger, "stop observability server", err)
			}
		}()
		go func() {
			for err := range errCh {
				errutil.LogError(ctx, a.logger, "observability server failed", err)
			}
		}()
		opts = append(opts, web.WithMetrics(obs.Metrics()))
	}

	srv, err := web.New(a.client, opts...)
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx, addr, func(bound net.Addr) {
		ready.Store(true)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", bound)
	})
}
