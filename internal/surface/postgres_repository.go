package surface

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

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

// Ensure inserts the tag with upsert-or-ignore semantics.
func (r *PostgresRepository) Ensure(ctx context.Context, tag RoleTag) error {
	query := `
		INSERT INTO surface_role_tags (identity_id, surface, role)
		VALUES ($1, $2, $3)
		ON CONFLICT (identity_id, surface) DO NOTHING`

	_, err := r.pool.Exec(ctx, query, tag.IdentityID, tag.Surface, string(tag.Role))
	if err != nil {
		if store.IsUndefinedTable(err) {
			return fmt.Errorf("surface_role_tags table: %w", store.ErrSchemaMissing)
		}
		return fmt.Errorf("inserting surface role tag: %w", err)
	}

	return nil
}
