// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/holomush/authflow/internal/xdg"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS session_values (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLiteStore keeps values in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path. The file is
// kept owner-only (0600) like the file store. The special path ":memory:"
// gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, oops.Code("SESSION_SQLITE_CONFIG").In("session").Errorf("sqlite path is empty")
	}
	if path != ":memory:" {
		if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		if err := restrictFile(path); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, oops.Code("SESSION_SQLITE_OPEN").In("session").With("path", path).Wrapf(err, "open sqlite")
	}
	// One connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, oops.Code("SESSION_SQLITE_OPEN").In("session").With("path", path).Wrapf(err, "create schema")
	}
	return &SQLiteStore{db: db}, nil
}

// restrictFile creates path at 0600 if missing and narrows an existing file
// to 0600, before the driver writes the token into it.
func restrictFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return oops.Code("SESSION_SQLITE_OPEN").In("session").With("path", path).Wrapf(err, "create database file")
	}
	_ = f.Close()
	if err := os.Chmod(path, 0o600); err != nil {
		return oops.Code("SESSION_SQLITE_OPEN").In("session").With("path", path).Wrapf(err, "restrict database file")
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_values WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("sqlite", key)
	}
	if err != nil {
		return "", oops.Code("SESSION_READ_FAILED").In("session").With("backend", "sqlite").With("key", key).
			Wrapf(err, "select value")
	}
	return v, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session_values (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("backend", "sqlite").With("key", key).
			Wrapf(err, "upsert value")
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE key = ?`, key); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("backend", "sqlite").With("key", key).
			Wrapf(err, "delete value")
	}
	return nil
}

// Close implements io.Closer.
func (s *SQLiteStore) Close() error {
	//nolint:wrapcheck // close error is passed through unchanged
	return s.db.Close()
}
