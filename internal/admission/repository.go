package admission

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no administrator record matches.
var ErrNotFound = errors.New("administrator not found")

// ErrDuplicateEmail is returned when creating a record whose email is taken.
var ErrDuplicateEmail = errors.New("administrator email already exists")

// Repository provides operations on the administrators table.
type Repository interface {
	Create(ctx context.Context, a *Administrator) error
	GetByEmail(ctx context.Context, email string) (*Administrator, error)
	List(ctx context.Context) ([]Administrator, error)
	// Deactivate flips is_active off. Idempotent; deactivating an already
	// inactive record is not an error.
	Deactivate(ctx context.Context, id uuid.UUID) error
	// Link sets linked_identity_id if and only if it is currently NULL.
	// Reports whether a link was written.
	Link(ctx context.Context, id uuid.UUID, identityID uuid.UUID) (bool, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}
