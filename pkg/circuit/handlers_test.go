package circuit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(r *Registry) *mux.Router {
	router := mux.NewRouter()
	NewHandlers(r).RegisterRoutes(router)
	return router
}

func TestHandlers_ListCircuits(t *testing.T) {
	r := NewRegistry(Config{})
	r.GetOrCreate("payments", nil)
	router := newTestRouter(r)

	req := httptest.NewRequest("GET", "/circuits", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
	assert.Equal(t, "payments", statuses[0].Name)
	assert.Equal(t, "closed", statuses[0].State)
}

func TestHandlers_GetCircuit(t *testing.T) {
	r := NewRegistry(Config{})
	r.GetOrCreate("payments", nil)
	router := newTestRouter(r)

	req := httptest.NewRequest("GET", "/circuits/payments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest("GET", "/circuits/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_ForceOpenCreatesBreaker(t *testing.T) {
	r := NewRegistry(Config{})
	router := newTestRouter(r)

	req := httptest.NewRequest("POST", "/circuits/maintenance/force-open", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	b, ok := r.Get("maintenance")
	require.True(t, ok)
	assert.Equal(t, StateOpen, b.State())
}

func TestHandlers_ForceClose(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1})
	b := r.GetOrCreate("payments", nil)
	require.Error(t, b.Execute(context.Background(), fail))
	router := newTestRouter(r)

	req := httptest.NewRequest("POST", "/circuits/payments/force-close", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateClosed, b.State())

	req = httptest.NewRequest("POST", "/circuits/missing/force-close", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_ResetAll(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1})
	b := r.GetOrCreate("payments", nil)
	require.Error(t, b.Execute(context.Background(), fail))
	router := newTestRouter(r)

	req := httptest.NewRequest("POST", "/circuits/reset", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, StateClosed, b.State())
}
