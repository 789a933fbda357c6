// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package form

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type loginFields struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required"`
}

type signupFields struct {
	Identifier      string `validate:"required"`
	Password        string `validate:"required"`
	ConfirmPassword string `validate:"required"`
}

// Complete reports whether every required field is filled in. Forms call it
// before handing control to the flow controller; the controller itself
// assumes complete input. withConfirm selects the signup field set.
func Complete(in Input, withConfirm bool) error {
	var target any = loginFields{Identifier: in.Identifier, Password: in.Password}
	if withConfirm {
		target = signupFields{
			Identifier:      in.Identifier,
			Password:        in.Password,
			ConfirmPassword: in.ConfirmPassword,
		}
	}

	err := validate.Struct(target)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return oops.Code("FORM_INCOMPLETE").In("form").Wrap(err)
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fieldName(fe.StructField()))
	}
	return oops.Code("FORM_INCOMPLETE").In("form").
		With("missing", missing).
		Public("Please fill in all fields.").
		Errorf("missing required fields: %s", strings.Join(missing, ", "))
}

// Missing returns the field names reported by a FORM_INCOMPLETE error.
func Missing(err error) []Field {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}
	names, _ := oopsErr.Context()["missing"].([]string)
	out := make([]Field, 0, len(names))
	for _, n := range names {
		out = append(out, Field(n))
	}
	return out
}

func fieldName(structField string) string {
	switch structField {
	case "Identifier":
		return string(FieldIdentifier)
	case "Password":
		return string(FieldPassword)
	case "ConfirmPassword":
		return string(FieldConfirmPassword)
	default:
		return structField
	}
}
