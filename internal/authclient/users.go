// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// User is one entry of the identity service's user listing.
type User struct {
	ID        string `json:"_id"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// ListUsers fetches the user listing with token as bearer credential.
// A 401 response returns AUTH_SESSION_INVALID so callers can send the user
// back to the login screen.
func (c *Client) ListUsers(ctx context.Context, token string) (users []User, err error) {
	ctx, span := tracer.Start(ctx, "authclient.list_users",
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if token == "" {
		return nil, oops.Code("AUTH_SESSION_INVALID").In("authclient").
			Public("Please log in.").
			Errorf("no session token")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users", http.NoBody)
	if err != nil {
		return nil, oops.Code("AUTH_TRANSPORT").In("authclient").Wrapf(err, "build request")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, oops.Code("AUTH_TRANSPORT").In("authclient").
			Public(GenericErrorMessage).
			Wrapf(err, "get users")
	}
	defer closeBody(resp.Body)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, oops.Code("AUTH_TRANSPORT").In("authclient").
			Public(GenericErrorMessage).
			Wrapf(err, "read users response")
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		msg := "Please log in."
		var mb messageBody
		if json.Unmarshal(raw, &mb) == nil && mb.Message != nil && *mb.Message != "" {
			msg = *mb.Message
		}
		return nil, oops.Code("AUTH_SESSION_INVALID").In("authclient").
			With("status", resp.StatusCode).
			Public(msg).
			Errorf("session rejected: %s", msg)
	case !isSuccess(resp.StatusCode):
		return nil, oops.Code("AUTH_TRANSPORT").In("authclient").
			With("status", resp.StatusCode).
			Public(GenericErrorMessage).
			Errorf("list users: unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, oops.Code("AUTH_TRANSPORT").In("authclient").
			Public(GenericErrorMessage).
			Wrapf(err, "decode users response")
	}
	c.logger.DebugContext(ctx, "listed users", "count", len(users))
	return users, nil
}
