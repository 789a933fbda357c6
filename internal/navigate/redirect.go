// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package navigate

import (
	"context"
	"net/http"
	"sync"
)

// Redirect navigates by answering an HTTP request with 303 See Other.
// It fires at most once; later calls are ignored.
type Redirect struct {
	w    http.ResponseWriter
	r    *http.Request
	once sync.Once
	to   string
}

// NewRedirect binds a navigator to one request.
func NewRedirect(w http.ResponseWriter, r *http.Request) *Redirect {
	return &Redirect{w: w, r: r}
}

// GoTo implements Navigator.
func (n *Redirect) GoTo(_ context.Context, path string) error {
	n.once.Do(func() {
		n.to = path
		http.Redirect(n.w, n.r, path, http.StatusSeeOther)
	})
	return nil
}

// Location returns the path redirected to, or "" if GoTo was never called.
func (n *Redirect) Location() string {
	return n.to
}
