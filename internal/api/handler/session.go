package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api/middleware"
	"github.com/gigmarket/portal-core/internal/api/response"
	"github.com/gigmarket/portal-core/internal/api/validation"
	"github.com/gigmarket/portal-core/internal/provider"
	"github.com/gigmarket/portal-core/internal/session"
)

// SessionHandler handles sign-in, sign-up, sign-out and session inspection.
type SessionHandler struct {
	bootstrap *session.Bootstrap
	provider  provider.Provider
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(bootstrap *session.Bootstrap, p provider.Provider) *SessionHandler {
	return &SessionHandler{bootstrap: bootstrap, provider: p}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	IdentityID   string `json:"identityId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	AdmittedAt   string `json:"admittedAt"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    string `json:"expiresAt"`
}

func toSessionResponse(o *session.Outcome) sessionResponse {
	return sessionResponse{
		IdentityID:   o.Resolved.IdentityID.String(),
		Email:        o.Resolved.Email,
		Role:         string(o.Resolved.Role),
		AdmittedAt:   o.Resolved.AdmittedAt.UTC().Format(time.RFC3339),
		AccessToken:  o.Session.AccessToken,
		RefreshToken: o.Session.RefreshToken,
		ExpiresAt:    o.Session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// SignIn handles POST /v1/session.
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	req, ok := h.decodeCredentials(w, r, requestID)
	if !ok {
		return
	}

	outcome, err := h.bootstrap.SignIn(r.Context(), req.Email, req.Password)
	h.respondAdmission(w, outcome, err, requestID)
}

// SignUp handles POST /v1/session/signup.
func (h *SessionHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	req, ok := h.decodeCredentials(w, r, requestID)
	if !ok {
		return
	}

	outcome, err := h.bootstrap.SignUp(r.Context(), req.Email, req.Password)
	h.respondAdmission(w, outcome, err, requestID)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /v1/session/refresh. The stored refresh token is
// exchanged for a live session, which then passes through the full admission
// flow: a revoked invitation denies the refresh even though the token itself
// is still good.
func (h *SessionHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}
	if req.RefreshToken == "" {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed",
			[]validation.FieldError{{Field: "refreshToken", Message: "refreshToken is required"}}, requestID)
		return
	}

	outcome, err := h.bootstrap.Recover(r.Context(), req.RefreshToken)
	h.respondAdmission(w, outcome, err, requestID)
}

// Current handles GET /v1/session. Runs behind Authenticate.
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	auth := middleware.GetAuth(r.Context())
	if auth == nil {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required", requestID)
		return
	}

	data := map[string]string{
		"identityId": auth.Identity.ID.String(),
		"email":      admission.NormalizeEmail(auth.Identity.Email),
		"role":       string(auth.Role),
	}
	// The admission timestamp is only known for the session this process
	// itself admitted.
	if current, ok := h.bootstrap.Current(); ok && current.IdentityID == auth.Identity.ID {
		data["admittedAt"] = current.AdmittedAt.UTC().Format(time.RFC3339)
	}

	response.Success(w, http.StatusOK, data, requestID)
}

// SignOut handles DELETE /v1/session. The published session is cleared before
// the external revoke is attempted; a failed revoke is logged, not surfaced.
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	token := middleware.BearerToken(r)
	if token == "" {
		response.Err(w, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token is required", requestID)
		return
	}

	h.bootstrap.Invalidate(token)
	if err := h.provider.SignOut(r.Context(), token); err != nil {
		slog.Error("external session revoke failed", "error", err, "requestId", requestID)
	}

	response.NoContent(w)
}

func (h *SessionHandler) decodeCredentials(w http.ResponseWriter, r *http.Request, requestID string) (credentialsRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return credentialsRequest{}, false
	}

	fieldErrors := validation.ValidateCredentialsRequest(validation.CredentialsRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return credentialsRequest{}, false
	}

	return req, true
}

func (h *SessionHandler) respondAdmission(w http.ResponseWriter, outcome *session.Outcome, err error, requestID string) {
	if err == nil {
		response.Success(w, http.StatusOK, toSessionResponse(outcome), requestID)
		return
	}

	if errors.Is(err, session.ErrNotAuthenticated) {
		response.Err(w, http.StatusUnauthorized, "NOT_AUTHENTICATED", "No session could be recovered", requestID)
		return
	}

	if reason, ok := admission.Denied(err); ok {
		if reason == admission.ReasonStoreUnavailable {
			response.Err(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Administrator store is unavailable", requestID)
			return
		}
		response.Err(w, http.StatusForbidden, "ADMISSION_DENIED", string(reason), requestID)
		return
	}

	var perr *provider.Error
	if errors.As(err, &perr) {
		status := http.StatusUnauthorized
		if perr.Status >= 500 {
			status = http.StatusBadGateway
		}
		response.Err(w, status, "PROVIDER_ERROR", perr.Message, requestID)
		return
	}

	slog.Error("admission flow failed", "error", err, "requestId", requestID)
	response.Err(w, http.StatusBadGateway, "PROVIDER_ERROR", "Identity provider request failed", requestID)
}
