package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	bad := CheckFunc(func(context.Context) error { return errors.New("store down") })

	rec := httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"store": ok})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	HealthHandler(map[string]HealthChecker{"store": ok, "other": bad})(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var hs HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hs))
	assert.Equal(t, "unhealthy", hs.Status)
	assert.Equal(t, "store down", hs.Checks["other"].Message)
	assert.Equal(t, "healthy", hs.Checks["store"].Status)
}

func TestReadinessAndLiveness(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadinessHandler("llama-3.2-11b-vision-preview")(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ready"`)

	rec = httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
