package validation

import "github.com/gigmarket/portal-core/internal/admission"

// CredentialsRequest mirrors the fields needed for sign-in and sign-up
// validation.
type CredentialsRequest struct {
	Email    string
	Password string
}

// ValidateCredentialsRequest validates a sign-in or sign-up request. Password
// policy belongs to the identity provider; only presence is checked here.
func ValidateCredentialsRequest(req CredentialsRequest) []FieldError {
	var errs []FieldError

	email := admission.NormalizeEmail(req.Email)
	if email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "email is required"})
	} else if !validEmail(email) {
		errs = append(errs, FieldError{Field: "email", Message: "email must be a valid address"})
	}

	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}

	return errs
}
