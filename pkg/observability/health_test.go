package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthChecker_Liveness(t *testing.T) {
	h := NewHealthChecker(nil, nil)

	rec := httptest.NewRecorder()
	h.Liveness(rec, httptest.NewRequest("GET", "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusHealthy, body["status"])
}

func TestHealthChecker_ReadinessNoDependencies(t *testing.T) {
	h := NewHealthChecker(nil, nil)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest("GET", "/readyz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthChecker_ReadinessWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	h := NewHealthChecker(nil, client)

	rec := httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest("GET", "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, StatusHealthy, status.Dependencies["redis"].Status)

	// an unreachable dependency flips readiness to 503
	mr.Close()
	rec = httptest.NewRecorder()
	h.Readiness(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
