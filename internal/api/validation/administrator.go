package validation

import (
	"fmt"
	"strings"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/authz"
)

// CreateAdministratorRequest mirrors the fields needed for create validation.
type CreateAdministratorRequest struct {
	Email string
	Role  string
}

// ValidateCreateAdministratorRequest validates the fields of a create
// administrator request.
func ValidateCreateAdministratorRequest(req CreateAdministratorRequest) []FieldError {
	var errs []FieldError

	email := admission.NormalizeEmail(req.Email)
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if !validEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	}

	if req.Role == "" {
		errs = append(errs, FieldError{Field: "role", Message: "role is required"})
	} else if !authz.Role(req.Role).Valid() {
		errs = append(errs, FieldError{Field: "role", Message: fmt.Sprintf("role must be one of: %s", roleList())})
	}

	return errs
}

func roleList() string {
	roles := authz.Roles()
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return strings.Join(names, ", ")
}
