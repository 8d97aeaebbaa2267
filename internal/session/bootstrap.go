// Package session orchestrates the admission flow: obtain an external
// session, run the allowlist gate, reconcile bookkeeping, and publish the
// resolved session to the rest of the application.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/metrics"
	"github.com/gigmarket/portal-core/internal/provider"
	"github.com/gigmarket/portal-core/internal/reconcile"
)

// State of the admission machine.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_external_session"
	StateDenied   State = "denied"
	StateAdmitted State = "admitted"
)

// Resolved is the in-process record of who is currently admitted and under
// what role. It is derived from, but distinct from, the provider's session.
type Resolved struct {
	IdentityID uuid.UUID
	Email      string
	Role       authz.Role
	AdmittedAt time.Time
}

// Outcome pairs a resolved session with the provider session backing it.
type Outcome struct {
	Resolved Resolved
	Session  *provider.Session
}

// ErrNotAuthenticated is returned when no admitted session exists or can be
// recovered.
var ErrNotAuthenticated = errors.New("no admitted session")

// Bootstrap owns the published resolved session and drives every admission
// attempt through the same sequence: external session, allowlist gate,
// reconciliation, publish.
type Bootstrap struct {
	provider   provider.Provider
	gate       *admission.Gate
	reconciler *reconcile.Reconciler
	timeout    time.Duration

	mu      sync.Mutex
	state   State
	current *Resolved
	session *provider.Session
	// lastToken is the access token of the session most recently taken
	// through admit, whatever the verdict. Used to drop the provider's echo
	// of an explicit flow's own SIGNED_IN event.
	lastToken string
}

// NewBootstrap creates a Bootstrap. providerTimeout bounds the session
// recovery call on startup.
func NewBootstrap(p provider.Provider, gate *admission.Gate, reconciler *reconcile.Reconciler, providerTimeout time.Duration) *Bootstrap {
	return &Bootstrap{
		provider:   p,
		gate:       gate,
		reconciler: reconciler,
		timeout:    providerTimeout,
		state:      StateIdle,
	}
}

// State returns the current machine state.
func (b *Bootstrap) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Current returns the published resolved session, if any.
func (b *Bootstrap) Current() (Resolved, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Resolved{}, false
	}
	return *b.current, true
}

// SignIn authenticates the credential with the provider and admits the
// resulting identity. Provider errors are surfaced verbatim; denials arrive
// as *admission.DeniedError after the external session has been revoked.
func (b *Bootstrap) SignIn(ctx context.Context, email, password string) (*Outcome, error) {
	b.setState(StateAwaiting)

	sess, err := b.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		b.setState(StateIdle)
		return nil, err
	}

	return b.admit(ctx, sess)
}

// SignUp registers the credential with the provider. When the provider
// reports the identity as already registered, the flow falls back to sign-in
// with the same credential instead of surfacing a duplicate-account error.
func (b *Bootstrap) SignUp(ctx context.Context, email, password string) (*Outcome, error) {
	b.setState(StateAwaiting)

	sess, err := b.provider.SignUp(ctx, email, password)
	if err != nil {
		if errors.Is(err, provider.ErrIdentityExists) {
			return b.SignIn(ctx, email, password)
		}
		b.setState(StateIdle)
		return nil, err
	}

	return b.admit(ctx, sess)
}

// Recover restores an admitted session from a stored refresh token on
// startup. The provider call is bounded by the configured timeout; expiry
// lands in a definite unauthenticated state instead of hanging.
func (b *Bootstrap) Recover(ctx context.Context, refreshToken string) (*Outcome, error) {
	b.setState(StateAwaiting)

	rctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	sess, err := b.provider.CurrentSession(rctx, refreshToken)
	if err != nil {
		b.setState(StateIdle)
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			slog.Warn("identity provider timed out during session recovery", "timeout", b.timeout.String())
		case errors.Is(err, provider.ErrNoSession):
		default:
			slog.Warn("session recovery failed", "error", err)
		}
		return nil, ErrNotAuthenticated
	}
	if sess == nil {
		b.setState(StateIdle)
		return nil, ErrNotAuthenticated
	}

	return b.admit(ctx, sess)
}

func (b *Bootstrap) admit(ctx context.Context, sess *provider.Session) (*Outcome, error) {
	b.mu.Lock()
	b.lastToken = sess.AccessToken
	b.mu.Unlock()

	adm, err := b.gate.Check(ctx, sess.Identity.Email)
	if err != nil {
		// No authenticated-but-unadmitted state may outlive this call:
		// revoke the external session before surfacing the denial.
		if revokeErr := b.provider.SignOut(ctx, sess.AccessToken); revokeErr != nil {
			slog.Error("revoking external session after denial", "error", revokeErr)
		}
		if reason, ok := admission.Denied(err); ok {
			metrics.Admissions.WithLabelValues(string(reason)).Inc()
		}
		b.setState(StateDenied)
		return nil, err
	}

	if _, err := b.reconciler.LinkIdentity(ctx, sess.Identity); err != nil {
		// Bookkeeping only; the gate has already ruled.
		slog.Error("identity link failed", "identity", sess.Identity.ID, "error", err)
		metrics.ReconciliationFaults.WithLabelValues("link_identity").Inc()
	}
	b.reconciler.EnqueueBookkeeping(sess.Identity, adm.RecordID, adm.Role)

	resolved := Resolved{
		IdentityID: sess.Identity.ID,
		Email:      admission.NormalizeEmail(sess.Identity.Email),
		Role:       adm.Role,
		AdmittedAt: time.Now().UTC(),
	}

	b.mu.Lock()
	b.state = StateAdmitted
	b.current = &resolved
	b.session = sess
	b.mu.Unlock()

	metrics.Admissions.WithLabelValues("granted").Inc()

	return &Outcome{Resolved: resolved, Session: sess}, nil
}

// SignOut clears the published session first, so no consumer observes a
// stale authenticated state while the external revoke is in flight. The
// revoke itself is best-effort.
func (b *Bootstrap) SignOut(ctx context.Context) {
	b.mu.Lock()
	sess := b.session
	b.current, b.session, b.state = nil, nil, StateIdle
	b.mu.Unlock()

	if sess == nil {
		return
	}
	if err := b.provider.SignOut(ctx, sess.AccessToken); err != nil {
		slog.Error("external session revoke failed", "error", err)
	}
}

// Invalidate clears the published session when it is backed by the given
// access token. Used when a sign-out arrives over the API rather than through
// this process's own flow.
func (b *Bootstrap) Invalidate(accessToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil && b.session.AccessToken == accessToken {
		b.current, b.session, b.state = nil, nil, StateIdle
	}
}

// Run consumes the provider's session-state events until ctx is cancelled.
// It blocks; run it in its own goroutine.
func (b *Bootstrap) Run(ctx context.Context) {
	events := b.provider.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			b.handleEvent(ctx, ev)
		}
	}
}

func (b *Bootstrap) handleEvent(ctx context.Context, ev provider.Event) {
	switch ev.Type {
	case provider.EventSignedOut:
		b.mu.Lock()
		b.current, b.session, b.state = nil, nil, StateIdle
		b.mu.Unlock()
	case provider.EventSignedIn:
		if ev.Session == nil {
			return
		}
		// The provider emits SIGNED_IN for sessions this process obtained
		// through its own explicit flows too. Admitting such an echo here
		// would race the flow that produced it, double-counting the admission
		// or revoking twice on denial: skip the event while a flow is
		// mid-admission, and skip any session admit has already ruled on.
		b.mu.Lock()
		skip := b.state == StateAwaiting || b.current != nil || ev.Session.AccessToken == b.lastToken
		b.mu.Unlock()
		if skip {
			return
		}
		if _, err := b.admit(ctx, ev.Session); err != nil {
			slog.Warn("admission from provider event denied", "error", err)
		}
	}
}

func (b *Bootstrap) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}
