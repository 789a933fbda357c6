// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package authclient talks to the remote identity service over JSON/HTTP.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("authflow/authclient")

// GenericErrorMessage is shown to the user for any failure that is not a
// server-provided rejection.
const GenericErrorMessage = "An error occurred. Please try again."

// DefaultTimeout bounds a single exchange with the identity service.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

// Endpoint names a credential endpoint of the identity service.
type Endpoint string

// Credential endpoints.
const (
	EndpointSignup Endpoint = "signup"
	EndpointLogin  Endpoint = "login"
)

// Payload is the credential body sent to the identity service.
// It deliberately has no confirmation field.
type Payload struct {
	UserID   string `json:"user_id"`
	Password string `json:"password"`
}

// ResultKind classifies the outcome of a submission.
type ResultKind int

// Result kinds.
const (
	ResultSuccess ResultKind = iota
	ResultFailure
	ResultTransport
)

// String returns the lowercase name used in logs and metrics.
func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Result is the outcome of one submission.
//
// Token is set only for a successful login. Message is the server's
// rejection text for ResultFailure. Err carries the underlying cause for
// ResultTransport and is never shown to the user.
type Result struct {
	Kind    ResultKind
	Token   string
	Message string
	Err     error
}

// Success reports a successful result carrying token.
func Success(token string) Result { return Result{Kind: ResultSuccess, Token: token} }

// Failure reports a server rejection with its message.
func Failure(message string) Result { return Result{Kind: ResultFailure, Message: message} }

// Transport reports a failure to complete the exchange.
func Transport(err error) Result { return Result{Kind: ResultTransport, Err: err} }

// Submitter sends credentials to the identity service.
type Submitter interface {
	Submit(ctx context.Context, endpoint Endpoint, payload Payload) Result
}

type tokenBody struct {
	Token string `json:"token"`
}

type messageBody struct {
	Message *string `json:"message"`
}

// Client is an identity service client. It performs a single attempt per
// call and never retries.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. The client is never
// modified; WithTimeout applies to a copy.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout, whichever HTTP client is used.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the API rooted at baseURL, e.g.
// "http://localhost:5000/api".
func New(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, oops.Code("AUTH_BASE_URL_INVALID").In("authclient").
			With("base_url", baseURL).
			Errorf("invalid API base URL %q", baseURL)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c, nil
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Submit posts payload to endpoint and classifies the response.
func (c *Client) Submit(ctx context.Context, endpoint Endpoint, payload Payload) (res Result) {
	ctx, span := tracer.Start(ctx, "authclient.submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("auth.endpoint", string(endpoint))),
	)
	defer func() {
		span.SetAttributes(attribute.String("auth.result", res.Kind.String()))
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").Wrapf(err, "encode payload"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+string(endpoint), bytes.NewReader(body))
	if err != nil {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").Wrapf(err, "build request"))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "identity service unreachable", "endpoint", endpoint, "error", err)
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").
			With("endpoint", string(endpoint)).
			Wrapf(err, "post %s", endpoint))
	}
	defer closeBody(resp.Body)
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").
			With("endpoint", string(endpoint)).
			With("status", resp.StatusCode).
			Wrapf(err, "read response"))
	}

	if isSuccess(resp.StatusCode) {
		return c.success(endpoint, resp.StatusCode, raw)
	}
	return c.rejection(endpoint, resp.StatusCode, raw)
}

func (c *Client) success(endpoint Endpoint, status int, raw []byte) Result {
	if endpoint != EndpointLogin {
		return Success("")
	}
	var tb tokenBody
	if err := json.Unmarshal(raw, &tb); err != nil {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").
			With("endpoint", string(endpoint)).
			With("status", status).
			Wrapf(err, "decode token response"))
	}
	if tb.Token == "" {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").
			With("endpoint", string(endpoint)).
			With("status", status).
			Errorf("login response carried no token"))
	}
	return Success(tb.Token)
}

func (c *Client) rejection(endpoint Endpoint, status int, raw []byte) Result {
	var mb messageBody
	if err := json.Unmarshal(raw, &mb); err != nil {
		return Transport(oops.Code("AUTH_TRANSPORT").In("authclient").
			With("endpoint", string(endpoint)).
			With("status", status).
			Wrapf(err, "decode error response"))
	}
	if mb.Message == nil || *mb.Message == "" {
		return Failure(GenericErrorMessage)
	}
	return Failure(*mb.Message)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func closeBody(body io.ReadCloser) {
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(body, maxBodyBytes))
	_ = body.Close()
}

// IsCanceled reports whether a transport error was caused by the caller's
// context rather than the network.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
