package httptransport

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewServerAppliesDefaults(t *testing.T) {
	server := NewServer(ServerConfig{Address: ":8080"}, http.NewServeMux())

	require.Equal(t, ":8080", server.Addr)
	require.Equal(t, 10*time.Second, server.ReadTimeout)
	require.Equal(t, 15*time.Second, server.WriteTimeout)
	require.Equal(t, 60*time.Second, server.IdleTimeout)
}

func TestNewServerKeepsExplicitTimeouts(t *testing.T) {
	server := NewServer(ServerConfig{
		Address:      ":9000",
		ReadTimeout:  time.Second,
		WriteTimeout: 2 * time.Second,
		IdleTimeout:  3 * time.Second,
	}, http.NewServeMux())

	require.Equal(t, time.Second, server.ReadTimeout)
	require.Equal(t, 2*time.Second, server.WriteTimeout)
	require.Equal(t, 3*time.Second, server.IdleTimeout)
}

func TestRequestLoggerPassesThrough(t *testing.T) {
	handler := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workouts", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRecoverTurnsPanicsInto500(t *testing.T) {
	handler := Recover(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/workouts", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
