// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/session"
	"github.com/holomush/authflow/pkg/errutil"
)

func newUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with the stored session",
		Long:  `List the identity service's users using the session token stored by login.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sessions, err := a.openSessions(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = sessions.Close() }()

			return showUsers(ctx, a, sessions, cmd.OutOrStdout())
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			sessions, err := a.openSessions(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = sessions.Close() }()

			if err := sessions.Delete(ctx, session.TokenKey); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

// showUsers is the list-users screen.
func showUsers(ctx context.Context, a *app, sessions session.Store, out io.Writer) error {
	token, err := sessions.Get(ctx, session.TokenKey)
	if session.IsNotFound(err) || (err == nil && token == "") {
		return oops.Code("SESSION_NOT_FOUND").In("cli").
			Public("Not logged in. Run 'authflow login' first.").
			Errorf("no session token stored")
	}
	if err != nil {
		return err
	}

	users, err := a.client.ListUsers(ctx, token)
	if errutil.Code(err) == "AUTH_SESSION_INVALID" {
		if derr := sessions.Delete(ctx, session.TokenKey); derr != nil {
			errutil.Log(ctx, a.logger, slog.LevelWarn, "drop rejected session token", derr)
		}
		return err
	}
	if err != nil {
		return err
	}

	_, err = io.WriteString(out, formatUsersTable(users))
	return err
}

// formatUsersTable formats users as a human-readable table.
func formatUsersTable(users []authclient.User) string {
	var buf byteWriter
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "ID\tUSER ID\tCREATED\tUPDATED")
	_, _ = fmt.Fprintln(w, "--\t-------\t-------\t-------")
	for _, u := range users {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.UserID, dash(u.CreatedAt), dash(u.UpdatedAt))
	}

	_ = w.Flush()
	return string(buf)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
