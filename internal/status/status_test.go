package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jroosing/charon/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "charon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return New("127.0.0.1:0", st, nil)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	router := gin.New()
	router.GET("/healthz", s.handleHealth)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
}

func TestHandleStats(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)

	router := gin.New()
	router.GET("/stats", s.handleStats)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 0, body.CacheCount)
	require.GreaterOrEqual(t, body.CPU.NumCPU, 1)
}
