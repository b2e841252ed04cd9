package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.Decision(true)
	metrics.Decision(false)
	metrics.CacheHit()
	metrics.CacheMiss()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	metrics.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, "dealerdesk_authz_checks_total") {
		t.Fatalf("expected body to contain dealerdesk_authz_checks_total, got: %s", body)
	}
	if !strings.Contains(body, "dealerdesk_authz_cache_events_total") {
		t.Fatalf("expected body to contain dealerdesk_authz_cache_events_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/vehicles")

	req := httptest.NewRequest(http.MethodGet, "/vehicles", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("unexpected status: %d", rr.Code)
	}

	body := fetchMetrics(t, metrics)
	if !strings.Contains(body, `dealerdesk_http_requests_total{code="418",route="/vehicles"}`) {
		t.Fatalf("expected request counter for /vehicles, got: %s", body)
	}
}

func fetchMetrics(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	metrics.Handler().ServeHTTP(rr, req)
	return rr.Body.String()
}
