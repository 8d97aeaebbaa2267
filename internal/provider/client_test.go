package provider_test

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

	"github.com/gigmarket/portal-core/internal/provider"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, id uuid.UUID, email string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   id.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func tokenHandler(t *testing.T, id uuid.UUID, email string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  signToken(t, id, email),
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	}
}

func TestSignInWithPassword_Success(t *testing.T) {
	id := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		tokenHandler(t, id, "a@x.com")(w, r)
	}))
	defer srv.Close()

	client := provider.NewClient(srv.URL, testSecret)
	sess, err := client.SignInWithPassword(context.Background(), "a@x.com", "hunter22")
	require.NoError(t, err)

	assert.Equal(t, id, sess.Identity.ID)
	assert.Equal(t, "a@x.com", sess.Identity.Email)
	assert.Equal(t, "refresh-1", sess.RefreshToken)
	assert.NotEmpty(t, sess.AccessToken)
	assert.True(t, sess.ExpiresAt.After(time.Now()))
}

func TestSignInWithPassword_InvalidCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":"invalid_grant","msg":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	client := provider.NewClient(srv.URL, testSecret)
	_, err := client.SignInWithPassword(context.Background(), "a@x.com", "wrong")
	require.Error(t, err)

	var perr *provider.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusBadRequest, perr.Status)
	assert.Equal(t, "invalid_grant", perr.Code)
	assert.Equal(t, "Invalid login credentials", perr.Message)
}

func TestSignUp_IdentityExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/signup", r.URL.Path)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error_code":"user_already_exists","msg":"User already registered"}`))
	}))
	defer srv.Close()

	client := provider.NewClient(srv.URL, testSecret)
	_, err := client.SignUp(context.Background(), "a@x.com", "hunter22")
	assert.ErrorIs(t, err, provider.ErrIdentityExists)
}

func TestCurrentSession_EmptyToken(t *testing.T) {
	client := provider.NewClient("http://provider.invalid", testSecret)
	_, err := client.CurrentSession(context.Background(), "")
	assert.ErrorIs(t, err, provider.ErrNoSession)
}

func TestCurrentSession_RejectedToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"msg":"Invalid Refresh Token"}`))
	}))
	defer srv.Close()

	client := provider.NewClient(srv.URL, testSecret)
	_, err := client.CurrentSession(context.Background(), "stale")
	assert.ErrorIs(t, err, provider.ErrNoSession)
}

func TestSignOut_RevokesAndTreatsGoneAsSuccess(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/logout", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := provider.NewClient(srv.URL, testSecret)
	require.NoError(t, client.SignOut(context.Background(), "access-1"))
	assert.Equal(t, "Bearer access-1", gotAuth)

	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer gone.Close()

	client = provider.NewClient(gone.URL, testSecret)
	assert.NoError(t, client.SignOut(context.Background(), "expired"))
}

func TestParseIdentity(t *testing.T) {
	id := uuid.New()
	token := signToken(t, id, "a@x.com")

	identity, err := provider.ParseIdentity(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, id, identity.ID)
	assert.Equal(t, "a@x.com", identity.Email)
}

func TestParseIdentity_WrongSecret(t *testing.T) {
	token := signToken(t, uuid.New(), "a@x.com")

	_, err := provider.ParseIdentity(token, "other-secret")
	assert.Error(t, err)
}

func TestParseIdentity_NonUUIDSubject(t *testing.T) {
	claims := jwt.MapClaims{
		"sub":   "not-a-uuid",
		"email": "a@x.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = provider.ParseIdentity(token, testSecret)
	assert.Error(t, err)
}
