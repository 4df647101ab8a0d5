package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/HSCode-Intelligence/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/handlers"
	"github.com/turtacn/HSCode-Intelligence/internal/interfaces/http/middleware"
	"github.com/turtacn/HSCode-Intelligence/internal/testutil"
)

func TestRouter_HealthAndMetricsEndpoints(t *testing.T) {
	m := prometheus.NewMetrics(prometheus.MetricsConfig{})
	h := NewRouter(RouterConfig{
		HealthHandler:  handlers.NewHealthHandler(nil),
		MetricsHandler: m.Handler(),
		HTTPMetrics:    m,
		Logger:         testutil.NewMockLogger(),
		Mode:           "test",
	})

	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// the health request above must show up on the metrics endpoint
	time.Sleep(10 * time.Millisecond)
	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_RequestIDPropagation(t *testing.T) {
	h := NewRouter(RouterConfig{
		HealthHandler: handlers.NewHealthHandler(nil),
		Logger:        testutil.NewMockLogger(),
		Mode:          "test",
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_UnknownRouteIs404(t *testing.T) {
	h := NewRouter(RouterConfig{Logger: testutil.NewMockLogger(), Mode: "test"})

	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
