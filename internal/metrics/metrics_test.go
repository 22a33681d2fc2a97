package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	done := m.Begin()
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Errorf("Expected 1 in flight, got %v", got)
	}
	done("ok")
	if got := testutil.ToFloat64(m.inFlight); got != 0 {
		t.Errorf("Expected 0 in flight, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("ok")); got != 1 {
		t.Errorf("Expected 1 ok consultation, got %v", got)
	}

	m.Fallback("translate")
	m.Fallback("translate")
	if got := testutil.ToFloat64(m.fallbacks.WithLabelValues("translate")); got != 2 {
		t.Errorf("Expected 2 translate fallbacks, got %v", got)
	}

	m.ObserveStage("transcribe", time.Second, nil)
	m.ObserveStage("transcribe", time.Second, errors.New("boom"))
	if n := testutil.CollectAndCount(m.stages); n != 2 {
		t.Errorf("Expected 2 stage series, got %d", n)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Begin()("error")
	m.ObserveStage("tts", time.Millisecond, nil)
	m.Fallback("tts")
}
