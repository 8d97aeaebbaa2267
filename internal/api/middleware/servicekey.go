package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/gigmarket/portal-core/internal/api/response"
)

// ServiceKey guards operator endpoints with the configured service key,
// verified against its bcrypt hash. Missing or invalid keys return 401.
func ServiceKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			rawKey := r.Header.Get("X-Service-Key")
			if rawKey == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Service key is required", requestID)
				return
			}

			if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(rawKey)) != nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid service key", requestID)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
