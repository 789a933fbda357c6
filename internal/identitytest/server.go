// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package identitytest provides an in-process fake of the identity service
// for tests: signup, login and the bearer-protected user listing.
package identitytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
)

// Request is a request the fake received on a credential endpoint.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        map[string]any
	RawBody     string
}

type account struct {
	id        string
	userID    string
	password  string
	createdAt time.Time
}

type injected struct {
	status int
	body   string
	drop   bool
	hold   chan struct{}
}

// Server is a fake identity service. The zero value is not usable; call New.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	accounts map[string]*account
	tokens   map[string]string
	requests []Request
	next     []injected
}

// New starts a fake identity service. Close it when done.
func New() *Server {
	s := &Server{
		accounts: make(map[string]*account),
		tokens:   make(map[string]string),
	}

	r := chi.NewRouter()
	r.Post("/signup", s.record(s.handleSignup))
	r.Post("/login", s.record(s.handleLogin))
	r.Get("/users", s.record(s.handleUsers))

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to hand to clients.
func (s *Server) BaseURL() string {
	return s.URL
}

// AddUser registers an account directly.
func (s *Server) AddUser(userID, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(userID, password)
}

// IssueToken returns a valid bearer token for userID without a login request.
func (s *Server) IssueToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := ulid.Make().String()
	s.tokens[token] = userID
	return token
}

// HasUser reports whether userID is registered.
func (s *Server) HasUser(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.accounts[userID]
	return ok
}

// Requests returns the requests received so far, oldest first.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns how many requests were received.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// FailNext makes the next request answer with status and a raw body.
func (s *Server) FailNext(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = append(s.next, injected{status: status, body: body})
}

// DropNext makes the next request lose its connection without a response.
func (s *Server) DropNext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = append(s.next, injected{drop: true})
}

// HoldNext blocks the next request until release is called, then serves it
// normally.
func (s *Server) HoldNext() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.next = append(s.next, injected{hold: ch})
	s.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *Server) addLocked(userID, password string) *account {
	a := &account{
		id:        ulid.Make().String(),
		userID:    userID,
		password:  password,
		createdAt: time.Now().UTC(),
	}
	s.accounts[userID] = a
	return a
}

func (s *Server) record(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		req := Request{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			RawBody:     string(raw),
		}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &req.Body)
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		var inj *injected
		if len(s.next) > 0 {
			inj = &s.next[0]
			s.next = s.next[1:]
		}
		s.mu.Unlock()

		if inj != nil {
			switch {
			case inj.hold != nil:
				select {
				case <-inj.hold:
				case <-r.Context().Done():
					return
				}
			case inj.drop:
				dropConnection(w)
				return
			default:
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(inj.status)
				_, _ = io.WriteString(w, inj.body)
				return
			}
		}

		r.Body = io.NopCloser(strings.NewReader(string(raw)))
		next(w, r)
	}
}

func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		panic("identitytest: response writer cannot be hijacked")
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}

type credentials struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[c.UserID]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "User already exists"})
		return
	}
	s.addLocked(c.UserID, c.Password)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created successfully"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[c.UserID]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
		return
	}
	if a.password != c.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	token := ulid.Make().String()
	s.tokens[token] = a.userID
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if header == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is missing!"})
		return
	}
	token, ok := strings.CutPrefix(header, "Bearer ")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, valid := s.tokens[token]; !ok || !valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Token is invalid!"})
		return
	}

	out := make([]map[string]string, 0, len(s.accounts))
	for _, a := range s.accounts {
		ts := a.createdAt.Format(time.RFC3339)
		out = append(out, map[string]string{
			"_id":       a.id,
			"user_id":   a.userID,
			"createdAt": ts,
			"updatedAt": ts,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["user_id"] < out[j]["user_id"] })
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
