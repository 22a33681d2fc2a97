package health

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nadzzz/aidoctor/internal/metrics"
)

func TestReadiness(t *testing.T) {
	s := New(0, nil)
	h := s.Handler()

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s before ready: expected 503, got %d", path, rec.Code)
		}
	}

	s.SetReady(true)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s after ready: expected 200, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"ok"`) {
			t.Errorf("%s: unexpected body %q", path, rec.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Fallback("translate")

	rec := httptest.NewRecorder()
	New(0, reg).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `aidoctor_fallbacks_total{stage="translate"} 1`) {
		t.Errorf("Expected fallback counter in output, got:\n%s", rec.Body.String())
	}
}

func TestMetricsEndpointDisabled(t *testing.T) {
	rec := httptest.NewRecorder()
	New(0, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without gatherer, got %d", rec.Code)
	}
}
