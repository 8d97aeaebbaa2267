package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api/middleware"
	"github.com/gigmarket/portal-core/internal/api/response"
	"github.com/gigmarket/portal-core/internal/api/validation"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/store"
)

type createAdministratorRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type administratorResponse struct {
	ID               string  `json:"id"`
	Email            string  `json:"email"`
	Role             string  `json:"role"`
	IsActive         bool    `json:"isActive"`
	LinkedIdentityID *string `json:"linkedIdentityId"`
	LastLoginAt      *string `json:"lastLoginAt"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

func toAdministratorResponse(a *admission.Administrator) administratorResponse {
	resp := administratorResponse{
		ID:        a.ID.String(),
		Email:     a.Email,
		Role:      string(a.Role),
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if a.LinkedIdentityID != nil {
		linked := a.LinkedIdentityID.String()
		resp.LinkedIdentityID = &linked
	}
	if a.LastLoginAt != nil {
		lastLogin := a.LastLoginAt.UTC().Format(time.RFC3339)
		resp.LastLoginAt = &lastLogin
	}
	return resp
}

// AdministratorHandler handles allowlist management endpoints.
type AdministratorHandler struct {
	repo admission.Repository
}

// NewAdministratorHandler creates a new AdministratorHandler.
func NewAdministratorHandler(repo admission.Repository) *AdministratorHandler {
	return &AdministratorHandler{repo: repo}
}

// Create handles POST /v1/administrators.
func (h *AdministratorHandler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req createAdministratorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return
	}

	fieldErrors := validation.ValidateCreateAdministratorRequest(validation.CreateAdministratorRequest{
		Email: req.Email,
		Role:  req.Role,
	})
	if len(fieldErrors) > 0 {
		response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", fieldErrors, requestID)
		return
	}

	record := &admission.Administrator{
		Email: req.Email,
		Role:  authz.Role(req.Role),
	}

	if err := h.repo.Create(r.Context(), record); err != nil {
		switch {
		case errors.Is(err, admission.ErrDuplicateEmail):
			response.Err(w, http.StatusConflict, "DUPLICATE_EMAIL", fmt.Sprintf("An administrator with email %q already exists", record.Email), requestID)
		case errors.Is(err, store.ErrSchemaMissing):
			response.Err(w, http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Administrator store is unavailable", requestID)
		default:
			slog.Error("failed to create administrator", "error", err)
			response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create administrator", requestID)
		}
		return
	}

	response.Success(w, http.StatusCreated, toAdministratorResponse(record), requestID)
}

// List handles GET /v1/administrators.
func (h *AdministratorHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	admins, err := h.repo.List(r.Context())
	if err != nil {
		slog.Error("failed to list administrators", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list administrators", requestID)
		return
	}

	items := make([]administratorResponse, 0, len(admins))
	for i := range admins {
		items = append(items, toAdministratorResponse(&admins[i]))
	}

	response.Success(w, http.StatusOK, items, requestID)
}

// Deactivate handles DELETE /v1/administrators/{id}. Records are deactivated,
// never removed, so a returning identity is denied with "inactive" rather
// than "not_invited".
func (h *AdministratorHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return
	}

	if err := h.repo.Deactivate(r.Context(), id); err != nil {
		if errors.Is(err, admission.ErrNotFound) {
			response.Err(w, http.StatusNotFound, "NOT_FOUND", "Administrator not found", requestID)
			return
		}
		slog.Error("failed to deactivate administrator", "error", err)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to deactivate administrator", requestID)
		return
	}

	response.NoContent(w)
}
