package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	require.Contains(t, body, `rinde_http_requests_total{code="418",route="/test"} 1`)
	require.Contains(t, body, `rinde_http_request_duration_seconds_bucket{route="/test"`)
}

func TestCacheCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.CacheLookup("dashboard", true)
	metrics.CacheLookup("dashboard", false)
	metrics.CacheLookup("dashboard", false)
	metrics.CacheBumped("location:10")

	body := scrape(t, metrics)
	require.Contains(t, body, `rinde_cache_lookups_total{cache="dashboard",result="hit"} 1`)
	require.Contains(t, body, `rinde_cache_lookups_total{cache="dashboard",result="miss"} 2`)
	require.Contains(t, body, `rinde_cache_invalidations_total{kind="location"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.CacheLookup("dashboard", true)
	m.CacheBumped("location:1")
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	require.True(t, strings.Contains(rr.Body.String(), "Unavailable"))
}
