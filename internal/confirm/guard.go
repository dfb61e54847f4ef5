package confirm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fsguard/internal/security"
	"github.com/GriffinCanCode/fsguard/internal/shared/fserrors"
)

// DefaultTimeout bounds how long the guard waits for an answer.
const DefaultTimeout = 2 * time.Minute

// Outcome labels recorded for each confirmation.
const (
	OutcomeAccepted    = "accepted"
	OutcomeDeclined    = "declined"
	OutcomeIncomplete  = "incomplete"
	OutcomeUnavailable = "unavailable"
	OutcomeTimeout     = "timeout"
	OutcomeError       = "error"
)

// Observer is notified of each confirmation outcome.
type Observer func(outcome string)

// Guard gates force-mode and overwrite operations behind an out-of-band confirmation.
// It fails closed: anything other than an explicit accept with every field true is a
// rejection.
type Guard struct {
	policy   *security.Policy
	provider Provider
	timeout  time.Duration
	logger   *zap.Logger
	observer Observer
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithTimeout bounds the wait for a response.
func WithTimeout(d time.Duration) GuardOption {
	return func(g *Guard) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithLogger sets the guard logger.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithObserver registers an outcome callback.
func WithObserver(fn Observer) GuardOption {
	return func(g *Guard) { g.observer = fn }
}

// NewGuard creates a guard. A nil provider behaves like FailClosed.
func NewGuard(policy *security.Policy, provider Provider, opts ...GuardOption) *Guard {
	if provider == nil {
		provider = FailClosed{}
	}
	g := &Guard{
		policy:   policy,
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequireConfirmation asks the provider to confirm description for paths and reports
// whether it was confirmed.
func (g *Guard) RequireConfirmation(ctx context.Context, description string, paths []string) bool {
	req := Request{
		ID:          "confirm-" + uuid.NewString(),
		Description: description,
		Paths:       paths,
		Fields:      DefaultFields,
	}

	outcome := g.elicit(ctx, req)
	g.logger.Info("Confirmation resolved",
		zap.String("id", req.ID),
		zap.String("description", description),
		zap.Strings("paths", paths),
		zap.String("outcome", outcome),
	)
	if g.observer != nil {
		g.observer(outcome)
	}
	return outcome == OutcomeAccepted
}

func (g *Guard) elicit(ctx context.Context, req Request) string {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	type answer struct {
		resp *Response
		err  error
	}
	done := make(chan answer, 1)
	go func() {
		resp, err := g.provider.Elicit(ctx, req)
		done <- answer{resp, err}
	}()

	select {
	case <-ctx.Done():
		return OutcomeTimeout
	case a := <-done:
		switch {
		case errors.Is(a.err, ErrUnavailable):
			return OutcomeUnavailable
		case errors.Is(a.err, context.DeadlineExceeded), ctx.Err() != nil:
			return OutcomeTimeout
		case a.err != nil:
			g.logger.Warn("Confirmation provider failed", zap.String("id", req.ID), zap.Error(a.err))
			return OutcomeError
		case a.resp == nil || a.resp.Action != ActionAccept:
			return OutcomeDeclined
		case !req.Confirms(a.resp):
			return OutcomeIncomplete
		default:
			return OutcomeAccepted
		}
	}
}

// AuthorizeForce checks that force mode is allowed by policy and, when the policy asks
// for it, confirmed out of band.
func (g *Guard) AuthorizeForce(ctx context.Context, description string, paths []string) error {
	if !g.policy.AllowForceDelete() {
		return fserrors.New(fserrors.KindPermissionDenied,
			"force mode is disabled by security policy").WithDetail("paths", paths)
	}
	return g.Confirm(ctx, description, paths)
}

// Confirm requires confirmation for a destructive action when the policy asks for it.
func (g *Guard) Confirm(ctx context.Context, description string, paths []string) error {
	if !g.policy.ForceDeleteRequiresConfirmation() {
		return nil
	}
	if !g.RequireConfirmation(ctx, description, paths) {
		return fserrors.New(fserrors.KindPermissionDenied,
			"operation cancelled: user did not confirm "+description).WithDetail("paths", paths)
	}
	return nil
}
