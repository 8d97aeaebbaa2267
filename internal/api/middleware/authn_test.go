package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/portal-core/internal/admission"
	"github.com/gigmarket/portal-core/internal/api/middleware"
	"github.com/gigmarket/portal-core/internal/authz"
	"github.com/gigmarket/portal-core/internal/store"
)

const testSecret = "super-secret-signing-key"

type fakeAdminRepo struct {
	byEmail map[string]*admission.Administrator
	err     error
}

func (f *fakeAdminRepo) Create(_ context.Context, _ *admission.Administrator) error { return nil }

func (f *fakeAdminRepo) GetByEmail(_ context.Context, email string) (*admission.Administrator, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.byEmail[email]
	if !ok {
		return nil, admission.ErrNotFound
	}
	return a, nil
}

func (f *fakeAdminRepo) List(_ context.Context) ([]admission.Administrator, error) { return nil, nil }
func (f *fakeAdminRepo) Deactivate(_ context.Context, _ uuid.UUID) error           { return nil }
func (f *fakeAdminRepo) Link(_ context.Context, _ uuid.UUID, _ uuid.UUID) (bool, error) {
	return false, nil
}
func (f *fakeAdminRepo) TouchLastLogin(_ context.Context, _ uuid.UUID) error { return nil }

func signToken(t *testing.T, identityID uuid.UUID, email string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   identityID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code, env.Error.Message
}

func TestAuthenticate_MissingToken(t *testing.T) {
	gate := admission.NewGate(&fakeAdminRepo{})
	handler := middleware.Authenticate(testSecret, gate)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "UNAUTHORIZED", code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	gate := admission.NewGate(&fakeAdminRepo{})
	handler := middleware.Authenticate(testSecret, gate)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_WrongSigningKey(t *testing.T) {
	gate := admission.NewGate(&fakeAdminRepo{})
	handler := middleware.Authenticate("a-different-secret", gate)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), "ann@example.com"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticate_Admitted(t *testing.T) {
	recordID := uuid.New()
	repo := &fakeAdminRepo{byEmail: map[string]*admission.Administrator{
		"ann@example.com": {ID: recordID, Email: "ann@example.com", Role: authz.RoleManager, IsActive: true},
	}}
	gate := admission.NewGate(repo)

	var captured *middleware.Auth
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetAuth(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := middleware.Authenticate(testSecret, gate)(next)

	identityID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, identityID, "Ann@Example.com"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, captured)
	assert.Equal(t, identityID, captured.Identity.ID)
	assert.Equal(t, recordID, captured.RecordID)
	assert.Equal(t, authz.RoleManager, captured.Role)
}

func TestAuthenticate_NotInvited(t *testing.T) {
	gate := admission.NewGate(&fakeAdminRepo{byEmail: map[string]*admission.Administrator{}})
	handler := middleware.Authenticate(testSecret, gate)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), "stranger@example.com"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	code, msg := errorCode(t, w)
	assert.Equal(t, "ADMISSION_DENIED", code)
	assert.Equal(t, "not_invited", msg)
}

func TestAuthenticate_Inactive(t *testing.T) {
	repo := &fakeAdminRepo{byEmail: map[string]*admission.Administrator{
		"ann@example.com": {ID: uuid.New(), Email: "ann@example.com", Role: authz.RoleOwner, IsActive: false},
	}}
	handler := middleware.Authenticate(testSecret, admission.NewGate(repo))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), "ann@example.com"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	_, msg := errorCode(t, w)
	assert.Equal(t, "inactive", msg)
}

func TestAuthenticate_StoreUnavailable(t *testing.T) {
	repo := &fakeAdminRepo{err: store.ErrSchemaMissing}
	handler := middleware.Authenticate(testSecret, admission.NewGate(repo))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, uuid.New(), "ann@example.com"))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	code, _ := errorCode(t, w)
	assert.Equal(t, "STORE_UNAVAILABLE", code)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
