package surface

import "context"

// Repository provides operations on the surface_role_tags table.
type Repository interface {
	// Ensure inserts the tag if no tag exists for its (identity, surface)
	// pair. A duplicate is success, not an error; the store enforces the
	// uniqueness atomically so concurrent admissions cannot create two tags.
	Ensure(ctx context.Context, tag RoleTag) error
}
