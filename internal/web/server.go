// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web serves the signup and login forms as server-rendered pages.
// The session token lives in an HTTP-only cookie and navigation is a 303
// redirect.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/flow"
)

// API is the identity service as seen by the web front end.
type API interface {
	authclient.Submitter
	ListUsers(ctx context.Context, token string) ([]authclient.User, error)
}

// Metrics receives submission and request observations.
type Metrics interface {
	flow.Metrics
	ObserveRequest(route string, status int)
}

// Server is the web front end.
type Server struct {
	api           API
	logger        *slog.Logger
	metrics       Metrics
	secureCookies bool
	pages         *pages
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithSecureCookies marks session cookies Secure, for deployments behind TLS.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) {
		s.secureCookies = secure
	}
}

// New creates the web front end.
func New(api API, opts ...Option) (*Server, error) {
	if api == nil {
		return nil, oops.Code("WEB_CONFIG_INVALID").In("web").Errorf("identity API is required")
	}
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	s := &Server{
		api:    api,
		logger: slog.New(slog.DiscardHandler),
		pages:  p,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Routes returns the HTTP handler for the front end.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})

	r.Group(func(r chi.Router) {
		r.Get("/signup", s.showForm(flow.Signup))
		r.Post("/signup", s.submitForm(flow.Signup))
		r.Get("/login", s.showForm(flow.Login))
		r.Post("/login", s.submitForm(flow.Login))
		r.Post("/logout", s.logout)
	})

	r.Get("/list-users", s.listUsers)

	return r
}

// ListenAndServe serves Routes on addr until ctx is cancelled, then shuts
// down gracefully. ready, if non-nil, receives the bound address.
func (s *Server) ListenAndServe(ctx context.Context, addr string, ready func(net.Addr)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return oops.Code("WEB_LISTEN_FAILED").In("web").With("addr", addr).Wrap(err)
	}

	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
	}()

	s.logger.Info("web front end listening", "addr", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr())
	}

	select {
	case <-ctx.Done():
	case serveErr := <-errCh:
		return oops.Code("WEB_SERVE_FAILED").In("web").Wrap(serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("WEB_SHUTDOWN_FAILED").In("web").Wrap(err)
	}
	s.logger.Info("web front end stopped")
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, status)
		}
		s.logger.DebugContext(r.Context(), "request",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
