package health

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

func get(t *testing.T, h http.Handler, path string) (int, status) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var st status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	return rec.Code, st
}

func TestNotReadyUntilSet(t *testing.T) {
	s := New(0)
	h := s.Handler()

	code, st := get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", st.Status)

	s.SetReady(true)
	code, st = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", st.Status)

	code, _ = get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
}

func TestReadyzRunsChecks(t *testing.T) {
	s := New(0)
	s.SetReady(true)
	modelUp := true
	s.AddCheck("model", func(context.Context) error {
		if !modelUp {
			return errors.New("connection refused")
		}
		return nil
	})
	h := s.Handler()

	code, st := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]string{"model": "ok"}, st.Checks)

	modelUp = false
	code, st = get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", st.Status)
	assert.Equal(t, "connection refused", st.Checks["model"])

	// Liveness ignores dependency checks.
	code, _ = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
}
