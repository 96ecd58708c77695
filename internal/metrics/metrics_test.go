package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()
	m.ObserveDeposit(ResultAccepted)
	m.ObserveDeposit(ResultAccepted)
	m.ObserveDeposit(ResultInvalidToken)
	m.SetEpoch(42)
	m.ObserveRPC("staking_deposit")

	if got := testutil.ToFloat64(m.deposits.WithLabelValues(ResultAccepted)); got != 2 {
		t.Errorf("accepted deposits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.deposits.WithLabelValues(ResultInvalidToken)); got != 1 {
		t.Errorf("invalid_token deposits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.currentEpoch); got != 42 {
		t.Errorf("current_epoch = %v, want 42", got)
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveDeposit(ResultAccepted)
	m.SetEpoch(1)
	m.ObserveRPC("x")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Errorf("nil handler status = %d, want 404", rec.Code)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.SetEpoch(7)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "winter_staking_current_epoch 7") {
		t.Errorf("metrics output missing epoch gauge:\n%s", body)
	}
}
