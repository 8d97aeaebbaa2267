// Package provider defines the external identity provider this service
// consumes. The provider verifies credentials and issues sessions; it knows
// nothing about portal admission.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Identity is an externally authenticated identity.
type Identity struct {
	ID    uuid.UUID
	Email string
}

// Session is an issued provider session.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}

// EventType classifies a session-state change.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is a session-state change notification.
type Event struct {
	Type    EventType
	Session *Session
}

// Provider is the identity provider contract.
type Provider interface {
	// CurrentSession exchanges a stored refresh token for a live session.
	// Returns ErrNoSession when there is nothing to recover.
	CurrentSession(ctx context.Context, refreshToken string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
	// Events streams session-state changes. The provider never closes the
	// channel while it is in use.
	Events() <-chan Event
}

// ErrIdentityExists is returned by SignUp when the email is already
// registered with the provider.
var ErrIdentityExists = errors.New("identity already registered")

// ErrNoSession is returned by CurrentSession when no session can be
// recovered.
var ErrNoSession = errors.New("no active session")

// Error carries an identity provider failure verbatim. Credential-level
// failures must reach the user unaltered.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity provider: %s (%s)", e.Message, e.Code)
	}
	return fmt.Sprintf("identity provider: %s", e.Message)
}
