package handler

import (
	"net/http"

	"github.com/gigmarket/portal-core/internal/api/middleware"
	"github.com/gigmarket/portal-core/internal/api/response"
	"github.com/gigmarket/portal-core/internal/authz"
)

// AuthzHandler answers permission queries for the caller's resolved role.
type AuthzHandler struct{}

// NewAuthzHandler creates a new AuthzHandler.
func NewAuthzHandler() *AuthzHandler {
	return &AuthzHandler{}
}

type authzCheckResponse struct {
	Role     string `json:"role"`
	Resource string `json:"resource"`
	Action   string `json:"action"`
	Allowed  bool   `json:"allowed"`
}

// Check handles GET /v1/authz/check?resource=...&action=... Runs behind
// Authenticate. Unknown resources are answered, not rejected: the matrix is
// deny-by-default and callers probing a resource they invented get false.
func (h *AuthzHandler) Check(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
		return
	}

	resource := r.URL.Query().Get("resource")
	if resource == "" {
		response.Err(w, http.StatusBadRequest, "INVALID_QUERY", "resource query parameter is required", requestID)
		return
	}

	action := authz.ActionView
	if raw := r.URL.Query().Get("action"); raw != "" {
		action = authz.Action(raw)
		if !action.Valid() {
			response.Err(w, http.StatusBadRequest, "INVALID_QUERY", "action must be one of: view, create, edit, delete", requestID)
			return
		}
	}

	response.Success(w, http.StatusOK, authzCheckResponse{
		Role:     string(auth.Role),
		Resource: resource,
		Action:   string(action),
		Allowed:  authz.Permitted(auth.Role, authz.Resource(resource), action),
	}, requestID)
}
