// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"html/template"
	"net/http"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/flow"
	"github.com/holomush/authflow/internal/form"
	"github.com/holomush/authflow/internal/navigate"
	"github.com/holomush/authflow/internal/session"
	"github.com/holomush/authflow/pkg/errutil"
)

func (s *Server) cookies(w http.ResponseWriter, r *http.Request) *session.CookieStore {
	return session.NewCookieStore(w, r, session.CookieOptions{Secure: s.secureCookies})
}

func newFormPage(v flow.Variant) formPage {
	if v.Confirm {
		return formPage{
			Title:      "Sign Up",
			Action:     navigate.PathSignup,
			Submit:     "Sign Up",
			Confirm:    true,
			SwitchHref: navigate.PathLogin,
			SwitchText: "Already have an account? Log in",
		}
	}
	return formPage{
		Title:      "Login",
		Action:     navigate.PathLogin,
		Submit:     "Login",
		SwitchHref: navigate.PathSignup,
		SwitchText: "Need an account? Sign up",
	}
}

func (s *Server) showForm(v flow.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, s.pages.form, http.StatusOK, newFormPage(v))
	}
}

func (s *Server) submitForm(v flow.Variant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := newFormPage(v)
		if err := r.ParseForm(); err != nil {
			page.Error = authclient.GenericErrorMessage
			s.render(w, r, s.pages.form, http.StatusBadRequest, page)
			return
		}

		input := form.Input{
			Identifier: r.PostForm.Get(string(form.FieldIdentifier)),
			Password:   r.PostForm.Get(string(form.FieldPassword)),
		}
		if v.Confirm {
			input.ConfirmPassword = r.PostForm.Get(string(form.FieldConfirmPassword))
		}
		page.Identifier = input.Identifier

		if err := form.Complete(input, v.Confirm); err != nil {
			page.Error = errutil.PublicMessage(err, authclient.GenericErrorMessage)
			s.render(w, r, s.pages.form, http.StatusUnprocessableEntity, page)
			return
		}

		store := form.NewStoreWith(input)
		nav := navigate.NewRedirect(w, r)
		opts := []flow.Option{flow.WithLogger(s.logger)}
		if s.metrics != nil {
			opts = append(opts, flow.WithMetrics(s.metrics))
		}
		ctrl, err := flow.New(v, store, s.api, s.cookies(w, r), nav, opts...)
		if err != nil {
			errutil.LogError(r.Context(), s.logger, "create flow controller", err)
			page.Error = authclient.GenericErrorMessage
			s.render(w, r, s.pages.form, http.StatusInternalServerError, page)
			return
		}

		// The controller lives for this request only, so overlapping
		// submissions never trip its in-progress guard.
		att, err := ctrl.Submit(r.Context())
		if err != nil {
			errutil.LogError(r.Context(), s.logger, "submit form", err)
			page.Error = authclient.GenericErrorMessage
			s.render(w, r, s.pages.form, http.StatusInternalServerError, page)
			return
		}
		if att.Succeeded() {
			return
		}

		msg, _ := store.Error()
		page.Error = msg
		status := http.StatusUnprocessableEntity
		if att.Outcome == flow.OutcomeTransport || att.Outcome == flow.OutcomePersistFailed {
			status = http.StatusBadGateway
		}
		s.render(w, r, s.pages.form, status, page)
	}
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	cookies := s.cookies(w, r)
	token, err := cookies.Get(r.Context(), session.TokenKey)
	if err != nil || token == "" {
		http.Redirect(w, r, navigate.PathLogin, http.StatusSeeOther)
		return
	}

	users, err := s.api.ListUsers(r.Context(), token)
	switch {
	case errutil.Code(err) == "AUTH_SESSION_INVALID":
		_ = cookies.Delete(r.Context(), session.TokenKey)
		http.Redirect(w, r, navigate.PathLogin, http.StatusSeeOther)
		return
	case err != nil:
		errutil.LogError(r.Context(), s.logger, "list users", err)
		s.render(w, r, s.pages.users, http.StatusBadGateway, usersPage{
			Title: "Users",
			Error: errutil.PublicMessage(err, authclient.GenericErrorMessage),
		})
		return
	}

	s.render(w, r, s.pages.users, http.StatusOK, usersPage{Title: "Users", Users: users})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.cookies(w, r).Delete(r.Context(), session.TokenKey); err != nil {
		errutil.LogError(r.Context(), s.logger, "logout", err)
	}
	http.Redirect(w, r, navigate.PathLogin, http.StatusSeeOther)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		errutil.LogError(r.Context(), s.logger, "render page", err)
	}
}
