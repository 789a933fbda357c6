// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package flow drives one authentication form from submission to its
// outcome: local validation, the remote exchange, token persistence and
// navigation.
package flow

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authflow/internal/authclient"
	"github.com/holomush/authflow/internal/form"
	"github.com/holomush/authflow/internal/navigate"
	"github.com/holomush/authflow/internal/session"
	"github.com/holomush/authflow/pkg/errutil"
)

var tracer = otel.Tracer("authflow/flow")

// Outcome labels reported on attempts and metrics.
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid"
	OutcomeRejected      = "rejected"
	OutcomeTransport     = "transport"
	OutcomePersistFailed = "persist_failed"
)

// Metrics receives one observation per finished attempt.
type Metrics interface {
	ObserveAttempt(form, outcome string, elapsed time.Duration)
}

// Attempt describes a finished submission.
type Attempt struct {
	ID    ulid.ULID
	Form  string
	Phase Phase
	// Outcome is one of the Outcome* labels.
	Outcome string
	// Message is the text placed in the error slot; empty on success.
	Message string
	// Destination is the path navigated to on success.
	Destination string
	// Err carries the failure with its code and, as public message, the
	// text shown to the user. Nil on success.
	Err error
	// NavErr is set when the attempt succeeded but navigation failed.
	NavErr  error
	Elapsed time.Duration
}

// Succeeded reports whether the attempt reached PhaseSucceeded.
func (a Attempt) Succeeded() bool { return a.Phase == PhaseSucceeded }

// Controller runs submissions for one form. It is safe for concurrent use;
// at most one submission is in flight at a time.
type Controller struct {
	id       ulid.ULID
	variant  Variant
	store    *form.Store
	client   authclient.Submitter
	sessions session.Store
	nav      navigate.Navigator
	logger   *slog.Logger
	metrics  Metrics

	inFlight atomic.Bool

	mu    sync.Mutex
	phase Phase
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a controller for variant. sessions may be nil when the
// variant does not persist a token.
func New(variant Variant, store *form.Store, client authclient.Submitter, sessions session.Store, nav navigate.Navigator, opts ...Option) (*Controller, error) {
	errb := oops.Code("FLOW_CONFIG_INVALID").In("flow").With("form", variant.Name)
	switch {
	case variant.Name == "" || variant.Endpoint == "":
		return nil, errb.Errorf("variant must name a form and an endpoint")
	case store == nil:
		return nil, errb.Errorf("input store is required")
	case client == nil:
		return nil, errb.Errorf("auth client is required")
	case nav == nil:
		return nil, errb.Errorf("navigator is required")
	case variant.PersistToken && sessions == nil:
		return nil, errb.Errorf("session store is required to persist tokens")
	}
	if variant.Validator == nil {
		variant.Validator = Rules{}
	}

	c := &Controller{
		id:       ulid.Make(),
		variant:  variant,
		store:    store,
		client:   client,
		sessions: sessions,
		nav:      nav,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("form", variant.Name, "flow_id", c.id.String())
	return c, nil
}

// ID identifies the controller in logs.
func (c *Controller) ID() ulid.ULID { return c.id }

// Variant returns the form variant the controller drives.
func (c *Controller) Variant() Variant { return c.variant }

// Store returns the input store the controller reads and writes.
func (c *Controller) Store() *form.Store { return c.store }

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Submitting reports whether a submission is in flight.
func (c *Controller) Submitting() bool {
	return c.inFlight.Load()
}

// Submit runs one submission with the store's current input and returns
// how it ended. Failures of the attempt are reported on the Attempt and in
// the store's error slot. The returned error is non-nil only when the
// submission could not start: FLOW_SUBMIT_IN_PROGRESS if another one is
// running.
func (c *Controller) Submit(ctx context.Context) (Attempt, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return Attempt{}, oops.Code("FLOW_SUBMIT_IN_PROGRESS").In("flow").
			With("form", c.variant.Name).
			Errorf("a %s submission is already in progress", c.variant.Name)
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	att := Attempt{ID: ulid.Make(), Form: c.variant.Name}

	ctx, span := tracer.Start(ctx, "flow.submit", trace.WithAttributes(
		attribute.String("flow.form", c.variant.Name),
		attribute.String("flow.attempt_id", att.ID.String()),
	))
	defer span.End()

	att = c.run(ctx, att)
	att.Elapsed = time.Since(start)

	span.SetAttributes(attribute.String("flow.outcome", att.Outcome))
	if att.Err != nil {
		span.RecordError(att.Err)
		span.SetStatus(codes.Error, errutil.Code(att.Err))
	}
	if c.metrics != nil {
		c.metrics.ObserveAttempt(c.variant.Name, att.Outcome, att.Elapsed)
	}
	return att, nil
}

func (c *Controller) run(ctx context.Context, att Attempt) Attempt {
	c.store.ClearError()
	if err := c.apply(EventSubmit); err != nil {
		return c.abort(ctx, att, err)
	}

	input := c.store.Input()
	if out := c.variant.Validator.Validate(input); !out.Valid {
		err := oops.Code("AUTH_VALIDATION").In("flow").
			With("form", c.variant.Name).
			Public(out.Reason).
			Errorf("validation failed: %s", out.Reason)
		return c.fail(ctx, att, EventInvalid, OutcomeInvalid, out.Reason, err)
	}
	if err := c.apply(EventValid); err != nil {
		return c.abort(ctx, att, err)
	}

	c.logger.DebugContext(ctx, "submitting credentials", "attempt_id", att.ID.String())
	res := c.client.Submit(ctx, c.variant.Endpoint, authclient.Payload{
		UserID:   input.Identifier,
		Password: input.Password,
	})

	switch res.Kind {
	case authclient.ResultSuccess:
		return c.succeed(ctx, att, res.Token)
	case authclient.ResultFailure:
		err := oops.Code("AUTH_REJECTED").In("flow").
			With("form", c.variant.Name).
			Public(res.Message).
			Errorf("identity service rejected %s", c.variant.Name)
		return c.fail(ctx, att, EventRejected, OutcomeRejected, res.Message, err)
	default:
		errutil.Log(ctx, c.logger, slog.LevelWarn, "identity service exchange failed", res.Err)
		err := oops.Code("AUTH_TRANSPORT").In("flow").
			With("form", c.variant.Name).
			Public(authclient.GenericErrorMessage).
			Wrapf(transportCause(res.Err), "submit %s", c.variant.Name)
		return c.fail(ctx, att, EventTransportError, OutcomeTransport, authclient.GenericErrorMessage, err)
	}
}

func (c *Controller) succeed(ctx context.Context, att Attempt, token string) Attempt {
	if c.variant.PersistToken {
		if err := c.sessions.Set(ctx, session.TokenKey, token); err != nil {
			errutil.LogError(ctx, c.logger, "persist session token", err)
			perr := oops.Code("SESSION_PERSIST_FAILED").In("flow").
				With("form", c.variant.Name).
				With("cause", err.Error()).
				Public(authclient.GenericErrorMessage).
				Errorf("persist session token")
			return c.fail(ctx, att, EventPersistFailed, OutcomePersistFailed, authclient.GenericErrorMessage, perr)
		}
	}
	if err := c.apply(EventAccepted); err != nil {
		return c.abort(ctx, att, err)
	}

	att.Phase = PhaseSucceeded
	att.Outcome = OutcomeSuccess
	att.Destination = c.variant.SuccessPath
	c.logger.InfoContext(ctx, "authentication flow succeeded", "attempt_id", att.ID.String())

	if err := c.nav.GoTo(ctx, c.variant.SuccessPath); err != nil {
		att.NavErr = oops.Code("NAVIGATION_FAILED").In("flow").
			With("form", c.variant.Name).
			With("path", c.variant.SuccessPath).
			With("cause", err.Error()).
			Errorf("navigate to %s", c.variant.SuccessPath)
		errutil.Log(ctx, c.logger, slog.LevelWarn, "navigation failed", att.NavErr)
	}

	c.reset(ctx)
	return att
}

func (c *Controller) fail(ctx context.Context, att Attempt, ev Event, outcome, message string, err error) Attempt {
	if terr := c.apply(ev); terr != nil {
		return c.abort(ctx, att, terr)
	}
	c.store.SetError(message)

	att.Phase = PhaseFailed
	att.Outcome = outcome
	att.Message = message
	att.Err = err
	c.logger.InfoContext(ctx, "authentication flow failed",
		"attempt_id", att.ID.String(),
		"outcome", outcome,
		"code", errutil.Code(err),
	)

	c.reset(ctx)
	return att
}

// abort handles a broken state machine: the attempt fails with the
// generic message and the controller is forced back to idle.
func (c *Controller) abort(ctx context.Context, att Attempt, err error) Attempt {
	errutil.LogError(ctx, c.logger, "flow state machine rejected transition", err)
	c.store.SetError(authclient.GenericErrorMessage)

	c.mu.Lock()
	c.phase = PhaseIdle
	c.mu.Unlock()

	att.Phase = PhaseFailed
	att.Outcome = OutcomeTransport
	att.Message = authclient.GenericErrorMessage
	att.Err = err
	return att
}

func (c *Controller) reset(ctx context.Context) {
	if err := c.apply(EventReset); err != nil {
		errutil.LogError(ctx, c.logger, "reset flow", err)
	}
}

func (c *Controller) apply(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next, err := Transition(c.phase, ev)
	if err != nil {
		return err
	}
	c.phase = next
	return nil
}

func transportCause(err error) error {
	if err == nil {
		return oops.Errorf("transport failure")
	}
	return err
}
