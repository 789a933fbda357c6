// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/identitytest"
	"github.com/holomush/authflow/internal/web"
	"github.com/holomush/authflow/pkg/errutil"
)

type fakeMetrics struct {
	mu       sync.Mutex
	attempts []string
	requests []string
}

func (f *fakeMetrics) ObserveAttempt(form, outcome string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts = append(f.attempts, form+":"+outcome)
}

func (f *fakeMetrics) ObserveRequest(route string, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, route)
}

func (f *fakeMetrics) snapshot() (attempts, requests []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.attempts...), append([]string(nil), f.requests...)
}

type env struct {
	idp     *identitytest.Server
	site    *httptest.Server
	browser *http.Client
	metrics *fakeMetrics
}

func newEnv(t *testing.T) *env {
	t.Helper()
	idp := identitytest.New()
	t.Cleanup(idp.Close)

	api, err := authclient.New(idp.BaseURL())
	require.NoError(t, err)

	m := &fakeMetrics{}
	srv, err := web.New(api, web.WithMetrics(m))
	require.NoError(t, err)
	site := httptest.NewServer(srv.Routes())
	t.Cleanup(site.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &env{idp: idp, site: site, browser: browser, metrics: m}
}

func (e *env) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.browser.Get(e.site.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *env) post(t *testing.T, path string, values url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.browser.PostForm(e.site.URL+path, values)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func signupValues(id, pw, confirm string) url.Values {
	return url.Values{"identifier": {id}, "password": {pw}, "confirmPassword": {confirm}}
}

func loginValues(id, pw string) url.Values {
	return url.Values{"identifier": {id}, "password": {pw}}
}

func TestRoot_RedirectsToLogin(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.get(t, "/")

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestForms_Render(t *testing.T) {
	e := newEnv(t)

	resp, body := e.get(t, "/signup")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `name="confirmPassword"`)
	assert.Contains(t, body, `action="/signup"`)

	resp, body = e.get(t, "/login")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, `name="confirmPassword"`)
	assert.Contains(t, body, `action="/login"`)
}

func TestSignup_PasswordMismatchStaysLocal(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/signup", signupValues("alice", "pw1", "pw2"))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Passwords do not match")
	assert.Contains(t, body, `value="alice"`, "identifier is kept")
	assert.NotContains(t, body, "pw1", "passwords are not echoed")
	assert.Zero(t, e.idp.RequestCount())
}

func TestSignup_IncompleteForm(t *testing.T) {
	e := newEnv(t)

	resp, body := e.post(t, "/signup", signupValues("alice", "pw", ""))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please fill in all fields.")
	assert.Zero(t, e.idp.RequestCount())
}

func TestSignupThenLoginThenListUsers(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.post(t, "/signup", signupValues("alice", "pw", "pw"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.True(t, e.idp.HasUser("alice"))

	resp, _ = e.post(t, "/login", loginValues("alice", "pw"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/list-users", resp.Header.Get("Location"))

	var tokenCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "authflow_token" {
			tokenCookie = c
		}
	}
	require.NotNil(t, tokenCookie, "login sets the session cookie")
	assert.True(t, tokenCookie.HttpOnly)

	resp, body := e.get(t, "/list-users")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "alice")

	attempts, requests := e.metrics.snapshot()
	assert.Contains(t, attempts, "signup:success")
	assert.Contains(t, attempts, "login:success")
	assert.Contains(t, requests, "/list-users")
}

func TestLogin_RejectedShowsServerMessage(t *testing.T) {
	e := newEnv(t)
	e.idp.AddUser("alice", "pw")

	resp, body := e.post(t, "/login", loginValues("alice", "nope"))

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")
	assert.Empty(t, resp.Cookies())
}

func TestLogin_ServerMessageIsEscaped(t *testing.T) {
	e := newEnv(t)
	e.idp.FailNext(http.StatusUnauthorized, `{"message":"<script>alert(1)</script>"}`)

	_, body := e.post(t, "/login", loginValues("alice", "pw"))

	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestLogin_TransportError(t *testing.T) {
	e := newEnv(t)
	e.idp.DropNext()

	resp, body := e.post(t, "/login", loginValues("alice", "pw"))

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "An error occurred. Please try again.")
}

func TestLogin_OverlappingSubmissionsAreIndependent(t *testing.T) {
	e := newEnv(t)
	e.idp.AddUser("alice", "pw")
	release := e.idp.HoldNext()
	defer release()

	other := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	first := make(chan *http.Response, 1)
	go func() {
		resp, err := other.PostForm(e.site.URL+"/login", loginValues("alice", "pw"))
		if err != nil {
			first <- nil
			return
		}
		_ = resp.Body.Close()
		first <- resp
	}()
	require.Eventually(t, func() bool { return e.idp.RequestCount() == 1 }, 5*time.Second, 5*time.Millisecond)

	resp, body := e.post(t, "/login", loginValues("alice", "wrong"))
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Invalid credentials")

	release()
	held := <-first
	require.NotNil(t, held)
	assert.Equal(t, http.StatusSeeOther, held.StatusCode)
	assert.Equal(t, "/list-users", held.Header.Get("Location"))
}

func TestListUsers_RequiresSession(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.get(t, "/list-users")

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Zero(t, e.idp.RequestCount())
}

func TestListUsers_RejectedTokenLogsOut(t *testing.T) {
	e := newEnv(t)
	e.idp.AddUser("alice", "pw")
	resp, _ := e.post(t, "/login", loginValues("alice", "pw"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	e.idp.FailNext(http.StatusUnauthorized, `{"message":"Token is invalid!"}`)
	resp, _ = e.get(t, "/list-users")

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	siteURL, err := url.Parse(e.site.URL)
	require.NoError(t, err)
	assert.Empty(t, e.browser.Jar.Cookies(siteURL), "cookie is cleared")
}

func TestListUsers_BackendFailure(t *testing.T) {
	e := newEnv(t)
	e.idp.AddUser("alice", "pw")
	resp, _ := e.post(t, "/login", loginValues("alice", "pw"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	e.idp.FailNext(http.StatusInternalServerError, `oops`)
	resp, body := e.get(t, "/list-users")

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body, "An error occurred. Please try again.")
}

func TestLogout(t *testing.T) {
	e := newEnv(t)
	e.idp.AddUser("alice", "pw")
	resp, _ := e.post(t, "/login", loginValues("alice", "pw"))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, _ = e.post(t, "/logout", nil)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp, _ = e.get(t, "/list-users")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode, "session is gone")
}

func TestNew_RequiresAPI(t *testing.T) {
	_, err := web.New(nil)
	errutil.AssertErrorCode(t, err, "WEB_CONFIG_INVALID")
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	idp := identitytest.New()
	defer idp.Close()
	api, err := authclient.New(idp.BaseURL())
	require.NoError(t, err)
	srv, err := web.New(api)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	addr := <-addrCh
	resp, err := http.Get("http://" + addr.String() + "/login")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.True(t, strings.Contains(body, "<form"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
