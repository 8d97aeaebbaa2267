package admission

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/authz"
)

// Administrator represents a row in the administrators table: an allowlisted
// portal administrator, invited out-of-band. Rows are deactivated, never
// deleted.
type Administrator struct {
	ID               uuid.UUID
	Email            string // normalized: trimmed, lower-cased
	Role             authz.Role
	IsActive         bool
	LinkedIdentityID *uuid.UUID // set once, by the reconciler; nil until first sign-in
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NormalizeEmail canonicalizes an email for allowlist matching.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Admission is a granted admission decision.
type Admission struct {
	RecordID uuid.UUID
	Role     authz.Role
}

// Reason classifies a denied admission.
type Reason string

const (
	// ReasonNotInvited — no administrator record exists for the email.
	ReasonNotInvited Reason = "not_invited"
	// ReasonInactive — the record exists but has been deactivated.
	ReasonInactive Reason = "inactive"
	// ReasonStoreUnavailable — the record store could not answer, typically
	// because the schema is not provisioned. A deployment problem, not a
	// legitimate denial.
	ReasonStoreUnavailable Reason = "store_unavailable"
)

// DeniedError is returned when an authenticated identity is not admitted.
type DeniedError struct {
	Reason Reason
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("admission denied: %s", e.Reason)
}

// Denied extracts the denial reason from an error chain.
func Denied(err error) (Reason, bool) {
	var denied *DeniedError
	if errors.As(err, &denied) {
		return denied.Reason, true
	}
	return "", false
}
