// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package flow

import "github.com/holomush/authflow/internal/form"

// MsgPasswordsMismatch is shown when the signup confirmation differs.
const MsgPasswordsMismatch = "Passwords do not match"

// Outcome is the result of local validation.
type Outcome struct {
	Valid  bool
	Reason string
}

// Valid is the passing outcome.
func Valid() Outcome { return Outcome{Valid: true} }

// Invalid is a failing outcome with the user-visible reason.
func Invalid(reason string) Outcome { return Outcome{Reason: reason} }

// Validator checks input before it leaves the process. Implementations
// must be deterministic.
type Validator interface {
	Validate(in form.Input) Outcome
}

// Rule is a single check.
type Rule func(in form.Input) Outcome

// Validate implements Validator.
func (r Rule) Validate(in form.Input) Outcome { return r(in) }

// Rules runs validators in order and returns the first failure.
// An empty Rules always passes.
type Rules []Validator

// Validate implements Validator.
func (rs Rules) Validate(in form.Input) Outcome {
	for _, r := range rs {
		if out := r.Validate(in); !out.Valid {
			return out
		}
	}
	return Valid()
}

// PasswordsMatch requires the confirmation to equal the password exactly.
var PasswordsMatch Rule = func(in form.Input) Outcome {
	if in.Password != in.ConfirmPassword {
		return Invalid(MsgPasswordsMismatch)
	}
	return Valid()
}
