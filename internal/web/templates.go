// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"embed"
	"html/template"

	"github.com/samber/oops"

	"github.com/holomush/authflow/internal/authclient"
)

//go:embed templates/*.html
var templateFS embed.FS

type pages struct {
	form  *template.Template
	users *template.Template
}

func parsePages() (*pages, error) {
	form, err := template.ParseFS(templateFS, "templates/layout.html", "templates/form.html")
	if err != nil {
		return nil, oops.Code("WEB_TEMPLATE_INVALID").In("web").Wrapf(err, "parse form templates")
	}
	users, err := template.ParseFS(templateFS, "templates/layout.html", "templates/users.html")
	if err != nil {
		return nil, oops.Code("WEB_TEMPLATE_INVALID").In("web").Wrapf(err, "parse users templates")
	}
	return &pages{form: form, users: users}, nil
}

type formPage struct {
	Title      string
	Action     string
	Submit     string
	Identifier string
	Confirm    bool
	Error      string
	SwitchHref string
	SwitchText string
}

type usersPage struct {
	Title string
	Users []authclient.User
	Error string
}
