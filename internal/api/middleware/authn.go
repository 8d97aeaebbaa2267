package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api/response"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/provider"
)

const authKey contextKey = "auth"

// Auth is the caller's admitted identity and role, resolved per request.
type Auth struct {
	Identity provider.Identity
	RecordID uuid.UUID
	Role     authz.Role
}

// Authenticate verifies the bearer access token against the provider's
// signing secret, then runs the allowlist gate on the token's identity.
// A verified-but-unadmitted caller gets 403 with the denial reason; an
// unavailable store gets 503 so operators can tell the two apart.
func Authenticate(jwtSecret string, gate *admission.Gate) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestID(r.Context())

			token := BearerToken(r)
			if token == "" {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
				return
			}

			identity, err := provider.ParseIdentity(token, jwtSecret)
			if err != nil {
				response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired access token", requestID)
				return
			}

			adm, err := gate.Check(r.Context(), identity.Email)
			if err != nil {
				reason, ok := admission.Denied(err)
				switch {
				case ok && reason == admission.ReasonStoreUnavailable:
					response.Err(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Administrator store is unavailable", requestID)
				case ok:
					response.Err(w, http.StatusForbidden, "ADMISSION_DENIED", string(reason), requestID)
				default:
					response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Authorization check failed", requestID)
				}
				return
			}

			ctx := WithAuth(r.Context(), &Auth{
				Identity: identity,
				RecordID: adm.RecordID,
				Role:     adm.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithAuth stores the resolved Auth in the context.
func WithAuth(ctx context.Context, a *Auth) context.Context {
	return context.WithValue(ctx, authKey, a)
}

// GetAuth retrieves the resolved Auth from the request context.
func GetAuth(ctx context.Context) *Auth {
	if a, ok := ctx.Value(authKey).(*Auth); ok {
		return a
	}
	return nil
}

// BearerToken extracts the bearer token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
