// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/authflow/internal/xdg"
)

// EnvPrefix prefixes every environment override. Nested keys are separated
// by a double underscore: AUTHFLOW_API__BASE_URL sets api.base_url.
const EnvPrefix = "AUTHFLOW_"

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"api-url":         "api.base_url",
	"api-timeout":     "api.timeout",
	"session-backend": "session.backend",
	"session-file":    "session.file",
	"redis-addr":      "session.redis.addr",
	"sqlite-path":     "session.sqlite.path",
	"log-format":      "log.format",
	"log-level":       "log.level",
}

// BindFlags registers the global configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("api-url", d.API.BaseURL, "identity service base URL")
	fs.Duration("api-timeout", d.API.Timeout, "identity service request timeout")
	fs.String("session-backend", d.Session.Backend, "session store backend (file, memory, redis, sqlite)")
	fs.String("session-file", "", "session file path (file backend)")
	fs.String("redis-addr", d.Session.Redis.Addr, "redis address (redis backend)")
	fs.String("sqlite-path", "", "sqlite database path (sqlite backend)")
	fs.String("log-format", d.Log.Format, "log format (json or text)")
	fs.String("log-level", d.Log.Level, "log level (debug, info, warn, error)")
}

// Load merges defaults, the config file, the environment and flags.
// An explicit path must exist; with an empty path the XDG config file is
// used when present. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").In("config").Wrapf(err, "load defaults")
	}

	filePath, err := resolveFile(path)
	if err != nil {
		return nil, err
	}
	if filePath != "" {
		if err := loadFile(k, filePath); err != nil {
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").In("config").Wrapf(err, "load environment")
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").In("config").Wrapf(err, "load flags")
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").In("config").Wrapf(err, "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func resolveFile(path string) (string, error) {
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", oops.Code("CONFIG_NOT_FOUND").In("config").With("path", path).Wrapf(err, "stat config file")
		}
		return path, nil
	}

	def, err := xdg.ConfigFile()
	if err != nil {
		// No resolvable home: run on defaults, env and flags.
		return "", nil //nolint:nilerr // a missing default file is not an error
	}
	if _, err := os.Stat(def); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", oops.Code("CONFIG_LOAD_FAILED").In("config").With("path", def).Wrapf(err, "stat config file")
	}
	return def, nil
}

func loadFile(k *koanf.Koanf, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").In("config").With("path", path).Wrapf(err, "read config file")
	}
	if err := ValidateSchema(data); err != nil {
		return oops.Code("CONFIG_INVALID").In("config").With("path", path).
			Errorf("%s: %s", path, FormatSchemaError(err))
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").In("config").With("path", path).Wrapf(err, "parse config file")
	}
	return nil
}

// envKey turns AUTHFLOW_SESSION__REDIS__ADDR into session.redis.addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

func defaultMap() map[string]interface{} {
	d := Default()
	return map[string]interface{}{
		"api.base_url":             d.API.BaseURL,
		"api.timeout":              d.API.Timeout,
		"session.backend":          d.Session.Backend,
		"session.file":             d.Session.File,
		"session.redis.addr":       d.Session.Redis.Addr,
		"session.redis.password":   d.Session.Redis.Password,
		"session.redis.db":         d.Session.Redis.DB,
		"session.redis.key_prefix": d.Session.Redis.KeyPrefix,
		"session.sqlite.path":      d.Session.SQLite.Path,
		"log.format":               d.Log.Format,
		"log.level":                d.Log.Level,
		"web.addr":                 d.Web.Addr,
		"web.metrics_addr":         d.Web.MetricsAddr,
		"web.secure_cookies":       d.Web.SecureCookies,
	}
}
