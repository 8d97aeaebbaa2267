package validation

import "regexp"

// FieldError describes a single invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// emailPattern is deliberately loose: the identity provider is the authority
// on deliverability, this only rejects obvious garbage.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validEmail(email string) bool {
	return len(email) <= 320 && emailPattern.MatchString(email)
}
