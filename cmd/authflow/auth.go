// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/holomush/authflow/internal/flow"
	"github.com/holomush/authflow/internal/form"
	"github.com/holomush/authflow/internal/navigate"
	"github.com/holomush/authflow/internal/session"
	"github.com/holomush/authflow/pkg/errutil"
)

// formConfig holds flags shared by the signup and login commands.
type formConfig struct {
	user string
}

func newSignupCmd() *cobra.Command {
	cfg := &formConfig{}
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long: `Prompt for a user ID, a password and its confirmation, then register
the account with the identity service.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForm(cmd, flow.Signup, cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.user, "user", "u", "", "user ID (prompted when empty)")
	return cmd
}

func newLoginCmd() *cobra.Command {
	cfg := &formConfig{}
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Prompt for a user ID and password, log in, keep the returned session
token and show the user list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForm(cmd, flow.Login, cfg)
		},
	}
	cmd.Flags().StringVarP(&cfg.user, "user", "u", "", "user ID (prompted when empty)")
	return cmd
}

// runForm collects the form through prompts and runs one submission.
func runForm(cmd *cobra.Command, variant flow.Variant, cfg *formConfig) error {
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

	store := form.NewStore()
	if err := fillForm(store, newPrompter(cmd.InOrStdin(), cmd.OutOrStdout()), variant, cfg.user); err != nil {
		return err
	}
	if err := form.Complete(store.Input(), variant.Confirm); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	router := screens(a, sessions, out)
	ctrl, err := flow.New(variant, store, a.client, sessions, router, flow.WithLogger(a.logger))
	if err != nil {
		return err
	}

	att, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	if !att.Succeeded() {
		return att.Err
	}
	if att.NavErr != nil {
		errutil.Log(ctx, a.logger, slog.LevelWarn, "could not open next screen", att.NavErr)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s succeeded, but %s could not be shown.\n", variant.Name, att.Destination)
	}
	return nil
}

func fillForm(store *form.Store, p *prompter, variant flow.Variant, user string) error {
	if user == "" {
		v, err := p.Line("User ID")
		if err != nil {
			return err
		}
		user = v
	}
	if err := store.SetField(form.FieldIdentifier, user); err != nil {
		return err
	}

	pw, err := p.Secret("Password")
	if err != nil {
		return err
	}
	if err := store.SetField(form.FieldPassword, pw); err != nil {
		return err
	}

	if variant.Confirm {
		confirm, err := p.Secret("Confirm Password")
		if err != nil {
			return err
		}
		if err := store.SetField(form.FieldConfirmPassword, confirm); err != nil {
			return err
		}
	}
	return nil
}

// screens maps navigation targets to terminal output.
func screens(a *app, sessions session.Store, out io.Writer) *navigate.Router {
	r := navigate.NewRouter()
	r.Handle(navigate.PathLogin, func(context.Context) error {
		_, err := fmt.Fprintln(out, "Account created. Run 'authflow login' to sign in.")
		return err
	})
	r.Handle(navigate.PathListUsers, func(ctx context.Context) error {
		return showUsers(ctx, a, sessions, out)
	})
	return r
}
