// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/authflow/internal/xdg"
)

// FileStore keeps values in a YAML file readable only by the owner.
// Writes replace the file atomically.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created on the
// first write; its directory is created if missing.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, oops.Code("SESSION_FILE_INVALID").In("session").Errorf("session file path is empty")
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (f *FileStore) Path() string { return f.path }

// Get implements Store.
func (f *FileStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return "", err
	}
	v, ok := values[key]
	if !ok {
		return "", notFound("file", key)
	}
	return v, nil
}

// Set implements Store.
func (f *FileStore) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	values[key] = value
	return f.write(values)
}

// Delete implements Store.
func (f *FileStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.write(values)
}

// Close implements io.Closer.
func (f *FileStore) Close() error { return nil }

func (f *FileStore) read() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, oops.Code("SESSION_READ_FAILED").In("session").With("path", f.path).Wrapf(err, "read session file")
	}

	values := make(map[string]string)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, oops.Code("SESSION_READ_FAILED").In("session").With("path", f.path).Wrapf(err, "parse session file")
	}
	if values == nil {
		values = make(map[string]string)
	}
	return values, nil
}

func (f *FileStore) write(values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").Wrapf(err, "encode session file")
	}

	dir := filepath.Dir(f.path)
	if err := xdg.EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("path", f.path).Wrapf(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("path", f.path).Wrapf(err, "chmod temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("path", f.path).Wrapf(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("path", f.path).Wrapf(err, "close temp file")
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return oops.Code("SESSION_WRITE_FAILED").In("session").With("path", f.path).Wrapf(err, "replace session file")
	}
	return nil
}
