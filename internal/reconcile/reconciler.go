// Package reconcile links authenticated external identities to their
// administrator records and maintains per-surface role bookkeeping. Every
// operation is idempotent and none of them is authoritative for admission:
// the allowlist gate has already ruled by the time the reconciler runs.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/metrics"
	"github.com/gigmarket/portal-core/internal/provider"
	"github.com/gigmarket/portal-core/internal/store"
	"github.com/gigmarket/portal-core/internal/surface"
)

// Reconciler performs post-admission bookkeeping.
type Reconciler struct {
	admins  admission.Repository
	tags    surface.Repository
	surface string
	queue   *Queue
}

// New creates a Reconciler for the given application surface.
func New(admins admission.Repository, tags surface.Repository, surfaceName string, queue *Queue) *Reconciler {
	return &Reconciler{
		admins:  admins,
		tags:    tags,
		surface: surfaceName,
		queue:   queue,
	}
}

// LinkIdentity sets the administrator record's identity link the first time
// the matching identity signs in. An existing link is never overwritten.
// Reports whether a link was newly written; callers use this for
// observability only.
func (r *Reconciler) LinkIdentity(ctx context.Context, identity provider.Identity) (bool, error) {
	record, err := r.admins.GetByEmail(ctx, admission.NormalizeEmail(identity.Email))
	if err != nil {
		return false, fmt.Errorf("matching administrator: %w", err)
	}

	if record.LinkedIdentityID != nil {
		if *record.LinkedIdentityID != identity.ID {
			// The provider issued a new identity for an email that is already
			// linked (e.g. the account was deleted and re-registered). What
			// to do with the stale link is an open product decision; keep it
			// and make the conflict visible.
			slog.Warn("identity mismatch on linked administrator",
				"administrator", record.ID,
				"linked", *record.LinkedIdentityID,
				"authenticated", identity.ID,
			)
			metrics.LinkConflicts.Inc()
		}
		return false, nil
	}

	linked, err := r.admins.Link(ctx, record.ID, identity.ID)
	if err != nil {
		return false, fmt.Errorf("linking identity: %w", err)
	}
	if linked {
		slog.Info("linked external identity to administrator",
			"administrator", record.ID,
			"identity", identity.ID,
		)
	}

	return linked, nil
}

// EnsureSurfaceRole records that the identity holds the role on this surface.
// A missing surface_role_tags table degrades to a no-op: the tag data is
// supplementary and must never block a sign-in.
func (r *Reconciler) EnsureSurfaceRole(ctx context.Context, identity provider.Identity, role authz.Role) error {
	err := r.tags.Ensure(ctx, surface.RoleTag{
		IdentityID: identity.ID,
		Surface:    r.surface,
		Role:       role,
	})
	if errors.Is(err, store.ErrSchemaMissing) {
		slog.Debug("surface role tags not provisioned, skipping", "surface", r.surface)
		return nil
	}
	if err != nil {
		return fmt.Errorf("ensuring surface role: %w", err)
	}

	return nil
}

// RecordLogin stamps last_login_at on the administrator record.
func (r *Reconciler) RecordLogin(ctx context.Context, recordID uuid.UUID) error {
	if err := r.admins.TouchLastLogin(ctx, recordID); err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	return nil
}

// EnqueueBookkeeping schedules the non-critical work that follows a granted
// admission. The caller does not wait on it.
func (r *Reconciler) EnqueueBookkeeping(identity provider.Identity, recordID uuid.UUID, role authz.Role) {
	r.queue.Submit(Task{Op: "ensure_surface_role", Run: func(ctx context.Context) error {
		return r.EnsureSurfaceRole(ctx, identity, role)
	}})
	r.queue.Submit(Task{Op: "record_login", Run: func(ctx context.Context) error {
		return r.RecordLogin(ctx, recordID)
	}})
}
