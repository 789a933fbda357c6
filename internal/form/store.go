// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package form holds the input state of one authentication form: the
// current field values and the single error slot the form renders.
package form

import (
	"sync"

	"github.com/samber/oops"
)

// Field names a form input.
type Field string

// Form fields.
const (
	FieldIdentifier      Field = "identifier"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
)

// Input is the credential input collected by a form.
// ConfirmPassword is only collected by the signup form.
type Input struct {
	Identifier      string
	Password        string
	ConfirmPassword string
}

// Snapshot is an immutable view of the store handed to renderers.
type Snapshot struct {
	Input    Input
	Error    string
	HasError bool
}

// Listener is notified after every change to the store.
type Listener func(Snapshot)

// Store is the single source of truth a form renders from.
// It is safe for concurrent use; listeners run outside the lock.
type Store struct {
	mu        sync.RWMutex
	input     Input
	errMsg    string
	hasErr    bool
	listeners []Listener
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// NewStoreWith creates a store pre-filled with input, as when a posted form
// is rebuilt on the server.
func NewStoreWith(input Input) *Store {
	return &Store{input: input}
}

// Subscribe registers l to run after each change.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// SetField replaces one field's value. No validation is performed.
func (s *Store) SetField(name Field, value string) error {
	s.mu.Lock()
	switch name {
	case FieldIdentifier:
		s.input.Identifier = value
	case FieldPassword:
		s.input.Password = value
	case FieldConfirmPassword:
		s.input.ConfirmPassword = value
	default:
		s.mu.Unlock()
		return oops.Code("FORM_UNKNOWN_FIELD").In("form").With("field", string(name)).
			Errorf("unknown form field %q", name)
	}
	snap := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
	return nil
}

// SetError replaces the error slot with message.
func (s *Store) SetError(message string) {
	s.setError(message, true)
}

// ClearError empties the error slot.
func (s *Store) ClearError() {
	s.setError("", false)
}

func (s *Store) setError(message string, present bool) {
	s.mu.Lock()
	s.errMsg = message
	s.hasErr = present
	snap := s.snapshotLocked()
	listeners := s.listeners
	s.mu.Unlock()

	notify(listeners, snap)
}

// Input returns the current field values.
func (s *Store) Input() Input {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.input
}

// Error returns the error slot and whether it is set.
func (s *Store) Error() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg, s.hasErr
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{Input: s.input, Error: s.errMsg, HasError: s.hasErr}
}

func notify(listeners []Listener, snap Snapshot) {
	for _, l := range listeners {
		l(snap)
	}
}
