package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/portal-core/internal/api/response"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestSuccess(t *testing.T) {
	w := httptest.NewRecorder()
	response.Success(w, http.StatusOK, map[string]string{"hello": "world"}, "req-1")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	env := decode(t, w)
	assert.Nil(t, env.Error)
	assert.Equal(t, "req-1", env.Meta.RequestID)
	assert.NotEmpty(t, env.Meta.Timestamp)

	data, ok := env.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "world", data["hello"])
}

func TestErr(t *testing.T) {
	w := httptest.NewRecorder()
	response.Err(w, http.StatusForbidden, "ADMISSION_DENIED", "inactive", "req-2")

	assert.Equal(t, http.StatusForbidden, w.Code)

	env := decode(t, w)
	assert.Nil(t, env.Data)
	require.NotNil(t, env.Error)
	assert.Equal(t, "ADMISSION_DENIED", env.Error.Code)
	assert.Equal(t, "inactive", env.Error.Message)
}

func TestErrWithDetails(t *testing.T) {
	details := []map[string]string{{"field": "email", "message": "email is required"}}
	w := httptest.NewRecorder()
	response.ErrWithDetails(w, http.StatusBadRequest, "VALIDATION_ERROR", "Input validation failed", details, "req-3")

	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.NotNil(t, env.Error.Details)
}

func TestNewMeta_GeneratesRequestID(t *testing.T) {
	meta := response.NewMeta("")
	assert.NotEmpty(t, meta.RequestID)
}
