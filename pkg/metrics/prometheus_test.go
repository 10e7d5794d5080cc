package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsMutations(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordMutation("add_tickers", true)
	r.RecordMutation("add_tickers", true)
	r.RecordMutation("add_tickers", false)

	if got := testutil.ToFloat64(r.mutations.WithLabelValues("add_tickers", "true")); got != 2 {
		t.Fatalf("expected 2 changed mutations, got %v", got)
	}
	if got := testutil.ToFloat64(r.mutations.WithLabelValues("add_tickers", "false")); got != 1 {
		t.Fatalf("expected 1 no-op mutation, got %v", got)
	}
}

func TestRecorderPersist(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())
	r.RecordPersist("error", 0.01)
	r.RecordError("persist")

	if got := testutil.ToFloat64(r.persists.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed write, got %v", got)
	}
	if got := testutil.ToFloat64(r.errorsTotal.WithLabelValues("persist")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
}

func TestNewIsShared(t *testing.T) {
	if New() != New() {
		t.Fatalf("expected a single default recorder")
	}
}
