package obs_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"discount-strategy-api/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("discount", registry)

	r := chi.NewRouter()
	r.Use(obs.HTTPObs{Metrics: metrics}.Middleware)
	r.Get("/stores/{store_id}/rules", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stores/cu/rules", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/stores/{store_id}/rules", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}
	if testutil.CollectAndCount(metrics.ReqDur) == 0 {
		t.Fatalf("expected histogram sample")
	}
	if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
		t.Fatalf("expected no in-flight requests, got %v", val)
	}
}

func TestHTTPMetricsReuseRegistered(t *testing.T) {
	registry := prometheus.NewRegistry()
	first := obs.NewHTTPMetrics("discount", registry)
	second := obs.NewHTTPMetrics("discount", registry)
	if first.ReqTotal != second.ReqTotal {
		t.Fatal("expected already registered collector to be reused")
	}
}

func TestDomainMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := obs.NewDomainMetrics("discount", registry)

	m.ObserveEvaluation("cu", "ranked", "SKT 멤버십", 1000)
	m.ObserveEvaluation("nowhere", "no_rules", "", 0)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveReload("file", 6, nil)
	m.ObserveReload("file", 0, errors.New("boom"))

	if v := testutil.ToFloat64(m.EvaluationsTotal.WithLabelValues("cu", "ranked")); v != 1 {
		t.Errorf("expected 1 ranked evaluation, got %v", v)
	}
	if v := testutil.ToFloat64(m.BestMethodTotal.WithLabelValues("cu", "SKT 멤버십")); v != 1 {
		t.Errorf("expected 1 best method sample, got %v", v)
	}
	if n := testutil.CollectAndCount(m.BestMethodTotal); n != 1 {
		t.Errorf("sentinel outcomes must not record a best method, got %d series", n)
	}
	if v := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); v != 2 {
		t.Errorf("expected 2 misses, got %v", v)
	}
	if v := testutil.ToFloat64(m.RulesReloads.WithLabelValues("file", "error")); v != 1 {
		t.Errorf("expected 1 failed reload, got %v", v)
	}
	if v := testutil.ToFloat64(m.RulesStores); v != 6 {
		t.Errorf("failed reload must keep the store gauge, got %v", v)
	}

	var nilMetrics *obs.DomainMetrics
	nilMetrics.ObserveCache(true)
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "info")

	r := chi.NewRouter()
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Get("/stores/{store_id}/rules", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/stores/zz/rules", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if line["route"] != "/stores/{store_id}/rules" {
		t.Errorf("unexpected route %v", line["route"])
	}
	if line["level"] != "warn" {
		t.Errorf("expected 4xx to log at warn, got %v", line["level"])
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("unexpected status %v", line["status"])
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.NewLoggerTo(&buf, "json", "error")
	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	logger.Error().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("expected error line")
	}
}
