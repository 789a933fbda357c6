// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package navigate moves the user between screens after an auth action.
package navigate

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/oops"
)

// Screen paths.
const (
	PathLogin     = "/login"
	PathSignup    = "/signup"
	PathListUsers = "/list-users"
)

// Navigator performs a transition to another screen.
type Navigator interface {
	GoTo(ctx context.Context, path string) error
}

// Func adapts a function to Navigator.
type Func func(ctx context.Context, path string) error

// GoTo implements Navigator.
func (f Func) GoTo(ctx context.Context, path string) error { return f(ctx, path) }

// Screen renders one destination.
type Screen func(ctx context.Context) error

// Router dispatches paths to registered screens.
type Router struct {
	mu      sync.RWMutex
	screens map[string]Screen
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{screens: make(map[string]Screen)}
}

// Handle registers screen for path, replacing any previous one.
func (r *Router) Handle(path string, screen Screen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.screens[path] = screen
}

// Paths returns the registered paths in sorted order.
func (r *Router) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.screens))
	for p := range r.screens {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// GoTo implements Navigator.
func (r *Router) GoTo(ctx context.Context, path string) error {
	r.mu.RLock()
	screen, ok := r.screens[path]
	r.mu.RUnlock()
	if !ok {
		return oops.Code("NAV_UNKNOWN_PATH").In("navigate").With("path", path).
			Errorf("no screen for %q", path)
	}
	return screen(ctx)
}

// Recorder remembers every path it is sent to.
type Recorder struct {
	mu    sync.Mutex
	paths []string
	// Err, when set, is returned from GoTo after recording.
	Err error
}

// GoTo implements Navigator.
func (r *Recorder) GoTo(_ context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	return r.Err
}

// Paths returns the recorded paths in order.
func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the most recent path, or "" if none.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}
