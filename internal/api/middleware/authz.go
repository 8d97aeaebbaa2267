package middleware

import (
	"net/http"

	"github.com/gigmarket/portal-core/internal/api/response"
	"github.com/gigmarket/portal-core/internal/authz"
)

// RequirePermission rejects callers whose role is not permitted the action on
// the resource. Runs after Authenticate; a request without a resolved Auth
// gets 401.
func RequirePermission(resource authz.Resource, action authz.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			auth := GetAuth(r.Context())
			if auth == nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
				return
			}

			if !authz.Permitted(auth.Role, resource, action) {
				response.Err(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
