// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/authflow/internal/config"
	"github.com/holomush/authflow/internal/xdg"
)

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.SessionConfig, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	switch cfg.Backend {
	case config.BackendMemory:
		logger.Debug("session backend", "backend", cfg.Backend)
		return NewMemoryStore(), nil

	case config.BackendFile, "":
		path := cfg.File
		if path == "" {
			p, err := xdg.SessionFile()
			if err != nil {
				return nil, err
			}
			path = p
		}
		logger.Debug("session backend", "backend", config.BackendFile, "path", path)
		fs, err := NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return fs, nil

	case config.BackendRedis:
		logger.Debug("session backend", "backend", cfg.Backend, "addr", cfg.Redis.Addr)
		rs, err := OpenRedis(ctx, RedisOptions{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return nil, err
		}
		return rs, nil

	case config.BackendSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			p, err := xdg.SessionDB()
			if err != nil {
				return nil, err
			}
			path = p
		}
		logger.Debug("session backend", "backend", cfg.Backend, "path", path)
		ss, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return ss, nil

	default:
		return nil, oops.Code("SESSION_BACKEND_UNKNOWN").In("session").
			With("backend", cfg.Backend).
			Errorf("unknown session backend %q", cfg.Backend)
	}
}

// Describe returns a short human-readable location for the backend selected
// by cfg, for status output.
func Describe(cfg config.SessionConfig) string {
	switch cfg.Backend {
	case config.BackendMemory:
		return "memory"
	case config.BackendRedis:
		return "redis://" + cfg.Redis.Addr + "/" + cfg.Redis.KeyPrefix
	case config.BackendSQLite:
		if cfg.SQLite.Path != "" {
			return "sqlite:" + cfg.SQLite.Path
		}
		if p, err := xdg.SessionDB(); err == nil {
			return "sqlite:" + p
		}
		return "sqlite"
	default:
		if cfg.File != "" {
			return "file:" + cfg.File
		}
		if p, err := xdg.SessionFile(); err == nil {
			return "file:" + p
		}
		return "file"
	}
}
