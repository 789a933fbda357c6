// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package session persists the opaque session token between runs.
package session

import (
	"context"
	"errors"
	"io"

	"github.com/samber/oops"
)

// TokenKey is the key the session token is stored under.
const TokenKey = "token"

// ErrNotFound is returned by Get when no value is stored under a key.
var ErrNotFound = errors.New("session: key not found")

// Store is a string key/value store for session state.
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Backend is a Store that holds resources until closed.
type Backend interface {
	Store
	io.Closer
}

// IsNotFound reports whether err means the key is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func notFound(backend, key string) error {
	return oops.Code("SESSION_NOT_FOUND").In("session").
		With("backend", backend).
		With("key", key).
		Wrap(ErrNotFound)
}

// HasToken reports whether store holds a non-empty session token.
func HasToken(ctx context.Context, store Store) (bool, error) {
	token, err := store.Get(ctx, TokenKey)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return token != "", nil
}
