// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package session

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/samber/oops"
)

// DefaultCookiePrefix namespaces the cookies written by CookieStore.
const DefaultCookiePrefix = "authflow_"

// CookieOptions configures a CookieStore.
type CookieOptions struct {
	Prefix string
	Path   string
	Secure bool
	// MaxAge in seconds; zero makes session cookies.
	MaxAge int
}

// CookieStore keeps values in HTTP cookies for the lifetime of one request.
// Reads see values written earlier in the same request.
type CookieStore struct {
	w    http.ResponseWriter
	r    *http.Request
	opts CookieOptions

	mu      sync.Mutex
	pending map[string]*string
}

// NewCookieStore creates a store bound to one request/response pair.
func NewCookieStore(w http.ResponseWriter, r *http.Request, opts CookieOptions) *CookieStore {
	if opts.Prefix == "" {
		opts.Prefix = DefaultCookiePrefix
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	return &CookieStore{w: w, r: r, opts: opts, pending: make(map[string]*string)}
}

// CookieName returns the cookie that holds key.
func (c *CookieStore) CookieName(key string) string {
	return c.opts.Prefix + key
}

// Get implements Store.
func (c *CookieStore) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	if v, ok := c.pending[key]; ok {
		c.mu.Unlock()
		if v == nil {
			return "", notFound("cookie", key)
		}
		return *v, nil
	}
	c.mu.Unlock()

	ck, err := c.r.Cookie(c.CookieName(key))
	if err != nil {
		return "", notFound("cookie", key)
	}
	raw, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return "", oops.Code("SESSION_READ_FAILED").In("session").With("backend", "cookie").With("key", key).
			Wrapf(err, "decode cookie")
	}
	return string(raw), nil
}

// Set implements Store.
func (c *CookieStore) Set(_ context.Context, key, value string) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.CookieName(key),
		Value:    base64.RawURLEncoding.EncodeToString([]byte(value)),
		Path:     c.opts.Path,
		MaxAge:   c.opts.MaxAge,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	c.mu.Lock()
	c.pending[key] = &value
	c.mu.Unlock()
	return nil
}

// Delete implements Store.
func (c *CookieStore) Delete(_ context.Context, key string) error {
	http.SetCookie(c.w, &http.Cookie{
		Name:     c.CookieName(key),
		Value:    "",
		Path:     c.opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	c.mu.Lock()
	c.pending[key] = nil
	c.mu.Unlock()
	return nil
}
