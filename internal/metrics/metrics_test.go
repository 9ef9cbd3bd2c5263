package metrics_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ErlanBelekov/ops-dashboard/internal/health"
	"github.com/ErlanBelekov/ops-dashboard/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func TestRegisterStoreGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	tokens, sessions := 3, 7
	metrics.RegisterStoreGauges(reg,
		func() int { return tokens },
		func() int { return sessions },
	)

	if n, err := testutil.GatherAndCount(reg, "dashboard_magic_tokens", "dashboard_sessions"); err != nil || n != 2 {
		t.Fatalf("GatherAndCount = %d, %v; want 2, nil", n, err)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		got := mf.GetMetric()[0].GetGauge().GetValue()
		switch mf.GetName() {
		case "dashboard_magic_tokens":
			if got != 3 {
				t.Errorf("magic_tokens = %f, want 3", got)
			}
		case "dashboard_sessions":
			if got != 7 {
				t.Errorf("sessions = %f, want 7", got)
			}
		}
	}
}

func TestServer_ReadyzReportsDown(t *testing.T) {
	checker := health.NewChecker(slog.Default(), prometheus.NewRegistry(), health.Dependency{
		Name:   "broadcaster",
		Pinger: &mockPinger{err: errors.New("closed")},
	})
	srv := metrics.NewServer(":0", checker)

	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}

	w = httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Errorf("liveness status = %d, want 200", w.Code)
	}
}
