// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authflow/internal/session"
)

// Status reports where authflow talks to and whether a session is stored.
type Status struct {
	APIBaseURL      string `json:"api_base_url"`
	SessionBackend  string `json:"session_backend"`
	SessionLocation string `json:"session_location"`
	LoggedIn        bool   `json:"logged_in"`
	Error           string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the configured identity service and session status",
		Long:  `Show the identity service URL, the session backend and whether a session token is stored.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}

	st := Status{
		APIBaseURL:      a.client.BaseURL(),
		SessionBackend:  a.cfg.Session.Backend,
		SessionLocation: session.Describe(a.cfg.Session),
	}

	sessions, err := a.openSessions(cmd.Context())
	if err != nil {
		st.Error = err.Error()
	} else {
		defer func() { _ = sessions.Close() }()
		st.LoggedIn, err = session.HasToken(cmd.Context(), sessions)
		if err != nil {
			st.Error = err.Error()
		}
	}

	var output string
	if cfg.jsonOutput {
		output, err = formatStatusJSON(st)
		if err != nil {
			return err
		}
	} else {
		output = formatStatusTable(st)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// formatStatusTable formats the status as a human-readable table.
func formatStatusTable(st Status) string {
	var buf byteWriter
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	state := "logged out"
	if st.LoggedIn {
		state = "logged in"
	}
	if st.Error != "" {
		state = "unknown (" + st.Error + ")"
	}

	_, _ = fmt.Fprintf(w, "API\t%s\n", st.APIBaseURL)
	_, _ = fmt.Fprintf(w, "BACKEND\t%s\n", st.SessionBackend)
	_, _ = fmt.Fprintf(w, "LOCATION\t%s\n", st.SessionLocation)
	_, _ = fmt.Fprintf(w, "SESSION\t%s\n", state)

	_ = w.Flush()
	return string(buf)
}

// formatStatusJSON formats the status as JSON.
func formatStatusJSON(st Status) (string, error) {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", oops.Code("STATUS_ENCODE_FAILED").Wrapf(err, "marshal status")
	}
	return string(data), nil
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
