// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads authflow configuration from defaults, an optional
// YAML file, AUTHFLOW_* environment variables and command-line flags, in
// that order of precedence.
package config

import (
	"net/url"
	"time"

	"github.com/samber/oops"
)

// Session backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the full authflow configuration.
type Config struct {
	API     APIConfig     `koanf:"api" json:"api,omitempty"`
	Session SessionConfig `koanf:"session" json:"session,omitempty"`
	Log     LogConfig     `koanf:"log" json:"log,omitempty"`
	Web     WebConfig     `koanf:"web" json:"web,omitempty"`
}

// APIConfig locates the remote identity service.
type APIConfig struct {
	BaseURL string        `koanf:"base_url" json:"base_url,omitempty" jsonschema:"description=Identity service base URL; /signup and /login are appended"`
	Timeout time.Duration `koanf:"timeout" json:"timeout,omitempty" jsonschema:"description=Per-request timeout such as 10s"`
}

// SessionConfig selects where the session token is persisted.
type SessionConfig struct {
	Backend string       `koanf:"backend" json:"backend,omitempty" jsonschema:"enum=file,enum=memory,enum=redis,enum=sqlite"`
	File    string       `koanf:"file" json:"file,omitempty" jsonschema:"description=Session file path (file backend)"`
	Redis   RedisConfig  `koanf:"redis" json:"redis,omitempty"`
	SQLite  SQLiteConfig `koanf:"sqlite" json:"sqlite,omitempty"`
}

// RedisConfig configures the redis session backend.
type RedisConfig struct {
	Addr      string `koanf:"addr" json:"addr,omitempty"`
	Password  string `koanf:"password" json:"password,omitempty"`
	DB        int    `koanf:"db" json:"db,omitempty" jsonschema:"minimum=0"`
	KeyPrefix string `koanf:"key_prefix" json:"key_prefix,omitempty"`
}

// SQLiteConfig configures the sqlite session backend.
type SQLiteConfig struct {
	Path string `koanf:"path" json:"path,omitempty"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=text,enum=json"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// WebConfig configures the `serve` front end.
type WebConfig struct {
	Addr          string `koanf:"addr" json:"addr,omitempty"`
	MetricsAddr   string `koanf:"metrics_addr" json:"metrics_addr,omitempty" jsonschema:"description=Metrics and health listener; empty disables it"`
	SecureCookies bool   `koanf:"secure_cookies" json:"secure_cookies,omitempty"`
}

// Default values.
const (
	DefaultBaseURL     = "http://localhost:5000/api"
	DefaultTimeout     = 10 * time.Second
	DefaultWebAddr     = "127.0.0.1:3000"
	DefaultMetricsAddr = "127.0.0.1:9102"
	DefaultRedisAddr   = "127.0.0.1:6379"
	DefaultKeyPrefix   = "authflow:session:"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
			Timeout: DefaultTimeout,
		},
		Session: SessionConfig{
			Backend: BackendFile,
			Redis: RedisConfig{
				Addr:      DefaultRedisAddr,
				KeyPrefix: DefaultKeyPrefix,
			},
		},
		Log: LogConfig{
			Format: "text",
			Level:  "warn",
		},
		Web: WebConfig{
			Addr:        DefaultWebAddr,
			MetricsAddr: DefaultMetricsAddr,
		},
	}
}

// Validate checks the merged configuration. File contents are also checked
// against the JSON Schema at load time; this covers env and flag input.
func (c *Config) Validate() error {
	errb := oops.Code("CONFIG_INVALID").In("config")

	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return errb.With("api.base_url", c.API.BaseURL).Wrapf(err, "parse api.base_url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errb.With("api.base_url", c.API.BaseURL).Errorf("api.base_url must be an http or https URL")
	}
	if u.Host == "" {
		return errb.With("api.base_url", c.API.BaseURL).Errorf("api.base_url has no host")
	}
	if c.API.Timeout <= 0 {
		return errb.With("api.timeout", c.API.Timeout.String()).Errorf("api.timeout must be positive")
	}

	switch c.Session.Backend {
	case BackendFile, BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Session.Redis.Addr == "" {
			return errb.Errorf("session.redis.addr is required for the redis backend")
		}
	default:
		return errb.With("session.backend", c.Session.Backend).
			Errorf("unknown session backend %q", c.Session.Backend)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return errb.With("log.format", c.Log.Format).Errorf("log.format must be 'text' or 'json'")
	}

	return nil
}
