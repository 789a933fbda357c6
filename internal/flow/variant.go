// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package flow

import (
	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/navigate"
)

// Variant is what distinguishes one form from another. Controllers of
// every variant share the same state machine.
type Variant struct {
	Name        string
	Endpoint    authclient.Endpoint
	Validator   Validator
	SuccessPath string
	// PersistToken stores the returned token under session.TokenKey
	// before navigating.
	PersistToken bool
	// Confirm reports whether the form collects a password confirmation.
	Confirm bool
}

// Signup registers a new account and sends the user to the login screen.
var Signup = Variant{
	Name:        "signup",
	Endpoint:    authclient.EndpointSignup,
	Validator:   Rules{PasswordsMatch},
	SuccessPath: navigate.PathLogin,
	Confirm:     true,
}

// Login authenticates, keeps the session token and opens the user list.
var Login = Variant{
	Name:         "login",
	Endpoint:     authclient.EndpointLogin,
	Validator:    Rules{},
	SuccessPath:  navigate.PathListUsers,
	PersistToken: true,
}
