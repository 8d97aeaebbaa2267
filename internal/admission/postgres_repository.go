package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/store"
)

// PostgresRepository implements Repository using pgxpool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a Repository backed by the given connection pool.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a new administrator record. The email is normalized before
// insertion.
func (r *PostgresRepository) Create(ctx context.Context, a *Administrator) error {
	query := `
		INSERT INTO administrators (email, role)
		VALUES ($1, $2)
		RETURNING id, is_active, created_at, updated_at`

	a.Email = NormalizeEmail(a.Email)

	err := r.pool.QueryRow(ctx, query, a.Email, string(a.Role)).
		Scan(&a.ID, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		if store.IsUndefinedTable(err) {
			return fmt.Errorf("administrators table: %w", store.ErrSchemaMissing)
		}
		return fmt.Errorf("inserting administrator: %w", err)
	}

	return nil
}

// GetByEmail retrieves a single administrator by normalized email.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Administrator, error) {
	query := `
		SELECT id, email, role, is_active, linked_identity_id, last_login_at,
		       created_at, updated_at
		FROM administrators
		WHERE email = $1`

	var (
		a    Administrator
		role string
	)
	err := r.pool.QueryRow(ctx, query, NormalizeEmail(email)).Scan(
		&a.ID, &a.Email, &role, &a.IsActive,
		&a.LinkedIdentityID, &a.LastLoginAt,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if store.IsUndefinedTable(err) {
			return nil, fmt.Errorf("administrators table: %w", store.ErrSchemaMissing)
		}
		return nil, fmt.Errorf("querying administrator: %w", err)
	}
	a.Role = authz.Role(role)

	return &a, nil
}

// List retrieves all administrator records, ordered by creation time.
func (r *PostgresRepository) List(ctx context.Context) ([]Administrator, error) {
	query := `
		SELECT id, email, role, is_active, linked_identity_id, last_login_at,
		       created_at, updated_at
		FROM administrators
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		if store.IsUndefinedTable(err) {
			return nil, fmt.Errorf("administrators table: %w", store.ErrSchemaMissing)
		}
		return nil, fmt.Errorf("listing administrators: %w", err)
	}
	defer rows.Close()

	var admins []Administrator
	for rows.Next() {
		var (
			a    Administrator
			role string
		)
		err := rows.Scan(
			&a.ID, &a.Email, &role, &a.IsActive,
			&a.LinkedIdentityID, &a.LastLoginAt,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning administrator row: %w", err)
		}
		a.Role = authz.Role(role)
		admins = append(admins, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating administrator rows: %w", err)
	}

	if admins == nil {
		admins = []Administrator{}
	}

	return admins, nil
}

// Deactivate flips is_active off. Returns ErrNotFound when the record does
// not exist; deactivating an already inactive record is a no-op.
func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE administrators
		SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivating administrator: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM administrators WHERE id = $1)", id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking administrator existence: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
	}

	return nil
}

// Link sets linked_identity_id exactly once. The IS NULL guard makes the
// write race-safe: concurrent admissions of the same email cannot overwrite
// each other.
func (r *PostgresRepository) Link(ctx context.Context, id uuid.UUID, identityID uuid.UUID) (bool, error) {
	query := `
		UPDATE administrators
		SET linked_identity_id = $2, updated_at = now()
		WHERE id = $1 AND linked_identity_id IS NULL`

	result, err := r.pool.Exec(ctx, query, id, identityID)
	if err != nil {
		return false, fmt.Errorf("linking identity: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// TouchLastLogin stamps last_login_at on the record.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE administrators
		SET last_login_at = now(), updated_at = now()
		WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}

	return nil
}
