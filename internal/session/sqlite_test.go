// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authflow/pkg/errutil"
)

func TestSQLiteStore_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "db", "session.db")

	first, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, TokenKey, "tok123"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	got, err := second.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok123", got)
}

func TestSQLiteStore_FileIsOwnerOnly(t *testing.T) {
	tests := []struct {
		name     string
		existing bool
	}{
		{"new file", false},
		{"existing world-readable file", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), "session.db")
			if tt.existing {
				require.NoError(t, os.WriteFile(path, nil, 0o644))
				require.NoError(t, os.Chmod(path, 0o644))
			}

			store, err := OpenSQLite(ctx, path)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			require.NoError(t, store.Set(ctx, TokenKey, "secret"))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		})
	}
}

func TestSQLiteStore_InMemory(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Set(ctx, TokenKey, "tok"))
	got, err := store.Get(ctx, TokenKey)
	require.NoError(t, err)
	assert.Equal(t, "tok", got)
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	_, err := OpenSQLite(context.Background(), "")
	errutil.AssertErrorCode(t, err, "SESSION_SQLITE_CONFIG")
}

func TestSQLiteStore_Closed(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.Set(ctx, TokenKey, "tok")
	errutil.AssertErrorCode(t, err, "SESSION_WRITE_FAILED")
}
