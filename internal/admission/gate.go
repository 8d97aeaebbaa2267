package admission

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gigmarket/portal-core/internal/store"
)

// Gate decides whether an already-authenticated identity may use the portal.
// It is the sole authority on admission; it never verifies credentials.
type Gate struct {
	repo Repository
}

// NewGate creates a Gate backed by the given repository.
func NewGate(repo Repository) *Gate {
	return &Gate{repo: repo}
}

// Check looks up the allowlist record for the email and returns the granted
// admission, or a DeniedError. The email is normalized before lookup, so the
// check is invariant to case and surrounding whitespace.
//
// Callers must terminate the external session on denial; the gate itself has
// no handle on it.
func (g *Gate) Check(ctx context.Context, email string) (Admission, error) {
	email = NormalizeEmail(email)

	record, err := g.repo.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return Admission{}, &DeniedError{Reason: ReasonNotInvited}
	case errors.Is(err, store.ErrSchemaMissing):
		slog.Error("administrator store is not provisioned", "error", err)
		return Admission{}, &DeniedError{Reason: ReasonStoreUnavailable}
	case err != nil:
		slog.Error("administrator lookup failed", "error", err)
		return Admission{}, &DeniedError{Reason: ReasonStoreUnavailable}
	}

	if !record.IsActive {
		return Admission{}, &DeniedError{Reason: ReasonInactive}
	}

	return Admission{RecordID: record.ID, Role: record.Role}, nil
}
