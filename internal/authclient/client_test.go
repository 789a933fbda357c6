// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package authclient_test

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/identitytest"
	"github.com/holomush/authflow/pkg/errutil"
)

func newClient(t *testing.T, srv *identitytest.Server, opts ...authclient.ClientOption) *authclient.Client {
	t.Helper()
	c, err := authclient.New(srv.BaseURL(), opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:5000", "ftp://example.com", "http://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := authclient.New(raw)
			errutil.AssertErrorCode(t, err, "AUTH_BASE_URL_INVALID")
		})
	}
}

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c, err := authclient.New("http://localhost:5000/api/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/api", c.BaseURL())
}

func TestSubmit_LoginPostsExactPayload(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()
	srv.AddUser("alice", "pw")

	res := newClient(t, srv).Submit(context.Background(), authclient.EndpointLogin,
		authclient.Payload{UserID: "alice", Password: "pw"})

	require.Equal(t, authclient.ResultSuccess, res.Kind)
	assert.NotEmpty(t, res.Token)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "/login", reqs[0].Path)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Equal(t, map[string]any{"user_id": "alice", "password": "pw"}, reqs[0].Body)
}

func TestSubmit_SignupSuccessIgnoresBody(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()

	res := newClient(t, srv).Submit(context.Background(), authclient.EndpointSignup,
		authclient.Payload{UserID: "bob", Password: "pw"})

	assert.Equal(t, authclient.Success(""), res)
	assert.True(t, srv.HasUser("bob"))
	assert.Equal(t, "/signup", srv.Requests()[0].Path)
}

func TestSubmit_Classification(t *testing.T) {
	tests := []struct {
		name     string
		endpoint authclient.Endpoint
		status   int
		body     string
		kind     authclient.ResultKind
		token    string
		message  string
	}{
		{
			name:     "login token",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusOK,
			body:     `{"token":"tok123"}`,
			kind:     authclient.ResultSuccess,
			token:    "tok123",
		},
		{
			name:     "login token with extra fields",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusOK,
			body:     `{"token":"tok123","expires":"soon"}`,
			kind:     authclient.ResultSuccess,
			token:    "tok123",
		},
		{
			name:     "login 2xx without token",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusOK,
			body:     `{}`,
			kind:     authclient.ResultTransport,
		},
		{
			name:     "login 2xx malformed",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusOK,
			body:     `not json`,
			kind:     authclient.ResultTransport,
		},
		{
			name:     "signup created with garbage body",
			endpoint: authclient.EndpointSignup,
			status:   http.StatusCreated,
			body:     `<<<`,
			kind:     authclient.ResultSuccess,
		},
		{
			name:     "user not found",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusNotFound,
			body:     `{"message":"User not found"}`,
			kind:     authclient.ResultFailure,
			message:  "User not found",
		},
		{
			name:     "invalid credentials",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusUnauthorized,
			body:     `{"message":"Invalid credentials"}`,
			kind:     authclient.ResultFailure,
			message:  "Invalid credentials",
		},
		{
			name:     "duplicate user",
			endpoint: authclient.EndpointSignup,
			status:   http.StatusBadRequest,
			body:     `{"message":"User already exists"}`,
			kind:     authclient.ResultFailure,
			message:  "User already exists",
		},
		{
			name:     "server message passed verbatim",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusTeapot,
			body:     `{"message":"<b>weird</b>   text"}`,
			kind:     authclient.ResultFailure,
			message:  "<b>weird</b>   text",
		},
		{
			name:     "rejection without message",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusForbidden,
			body:     `{"error":"nope"}`,
			kind:     authclient.ResultFailure,
			message:  authclient.GenericErrorMessage,
		},
		{
			name:     "rejection with empty message",
			endpoint: authclient.EndpointSignup,
			status:   http.StatusBadRequest,
			body:     `{"message":""}`,
			kind:     authclient.ResultFailure,
			message:  authclient.GenericErrorMessage,
		},
		{
			name:     "html error page",
			endpoint: authclient.EndpointLogin,
			status:   http.StatusBadGateway,
			body:     `<html>bad gateway</html>`,
			kind:     authclient.ResultTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := identitytest.New()
			defer srv.Close()
			srv.FailNext(tt.status, tt.body)

			res := newClient(t, srv).Submit(context.Background(), tt.endpoint,
				authclient.Payload{UserID: "alice", Password: "pw"})

			assert.Equal(t, tt.kind, res.Kind)
			assert.Equal(t, tt.token, res.Token)
			assert.Equal(t, tt.message, res.Message)
			if tt.kind == authclient.ResultTransport {
				errutil.AssertErrorCode(t, res.Err, "AUTH_TRANSPORT")
			} else {
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestSubmit_DroppedConnection(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()
	srv.DropNext()

	res := newClient(t, srv).Submit(context.Background(), authclient.EndpointLogin,
		authclient.Payload{UserID: "alice", Password: "pw"})

	assert.Equal(t, authclient.ResultTransport, res.Kind)
	errutil.AssertErrorCode(t, res.Err, "AUTH_TRANSPORT")
	errutil.AssertErrorContext(t, res.Err, "endpoint", "login")
}

func TestSubmit_Unreachable(t *testing.T) {
	srv := identitytest.New()
	base := srv.BaseURL()
	srv.Close()

	c, err := authclient.New(base)
	require.NoError(t, err)
	res := c.Submit(context.Background(), authclient.EndpointSignup,
		authclient.Payload{UserID: "alice", Password: "pw"})

	assert.Equal(t, authclient.ResultTransport, res.Kind)
	assert.Empty(t, res.Message)
}

func TestSubmit_ContextCancelled(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()
	release := srv.HoldNext()
	defer release()

	c := newClient(t, srv)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan authclient.Result, 1)
	go func() {
		done <- c.Submit(ctx, authclient.EndpointLogin,
			authclient.Payload{UserID: "alice", Password: "pw"})
	}()

	require.Eventually(t, func() bool { return srv.RequestCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case res := <-done:
		assert.Equal(t, authclient.ResultTransport, res.Kind)
		assert.True(t, authclient.IsCanceled(res.Err))
	case <-time.After(2 * time.Second):
		t.Fatal("submit did not return after cancellation")
	}
}

func TestSubmit_Timeout(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()
	release := srv.HoldNext()
	defer release()

	res := newClient(t, srv, authclient.WithTimeout(50*time.Millisecond)).Submit(context.Background(),
		authclient.EndpointLogin, authclient.Payload{UserID: "alice", Password: "pw"})

	assert.Equal(t, authclient.ResultTransport, res.Kind)
	require.Error(t, res.Err)
}

func TestWithTimeout_LeavesCallerClientAlone(t *testing.T) {
	shared := &http.Client{Timeout: 3 * time.Second}

	_, err := authclient.New("http://localhost:5000/api", authclient.WithHTTPClient(shared), authclient.WithTimeout(7*time.Second))
	require.NoError(t, err)
	_, err = authclient.New("http://localhost:5000/api", authclient.WithHTTPClient(http.DefaultClient), authclient.WithTimeout(7*time.Second))
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, shared.Timeout)
	assert.Zero(t, http.DefaultClient.Timeout)
}

func TestWithTimeout_AnyOptionOrder(t *testing.T) {
	tests := []struct {
		name string
		opts []authclient.ClientOption
	}{
		{"timeout after client", []authclient.ClientOption{
			authclient.WithHTTPClient(&http.Client{}), authclient.WithTimeout(50 * time.Millisecond),
		}},
		{"timeout before client", []authclient.ClientOption{
			authclient.WithTimeout(50 * time.Millisecond), authclient.WithHTTPClient(&http.Client{}),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := identitytest.New()
			defer srv.Close()
			release := srv.HoldNext()
			defer release()

			start := time.Now()
			res := newClient(t, srv, tt.opts...).Submit(context.Background(),
				authclient.EndpointLogin, authclient.Payload{UserID: "alice", Password: "pw"})

			assert.Equal(t, authclient.ResultTransport, res.Kind)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestSubmit_BodyLimit(t *testing.T) {
	srv := identitytest.New()
	defer srv.Close()
	srv.FailNext(http.StatusOK, `{"token":"`+strings.Repeat("a", 2<<20)+`"}`)

	res := newClient(t, srv).Submit(context.Background(), authclient.EndpointLogin,
		authclient.Payload{UserID: "alice", Password: "pw"})

	assert.Equal(t, authclient.ResultTransport, res.Kind, "truncated body does not decode")
}

func TestResultKind_String(t *testing.T) {
	assert.Equal(t, "success", authclient.ResultSuccess.String())
	assert.Equal(t, "failure", authclient.ResultFailure.String())
	assert.Equal(t, "transport", authclient.ResultTransport.String())
	assert.Equal(t, "unknown", authclient.ResultKind(42).String())
}
