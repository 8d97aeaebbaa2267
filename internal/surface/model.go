// Package surface tracks which role an external identity holds on each
// application surface (admin portal, companion app, ...). Tags are
// supplementary bookkeeping: the allowlist, not this table, decides admission.
package surface

import (
	"time"

	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/authz"
)

// RoleTag represents a row in the surface_role_tags table. At most one tag
// exists per (identity, surface) pair; tags are written once and never
// updated or deleted.
type RoleTag struct {
	IdentityID uuid.UUID
	Surface    string
	Role       authz.Role
	CreatedAt  time.Time
}
