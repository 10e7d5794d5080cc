package stockapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"TradeInfo/pkg/cache"
)

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/stocks/market", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"nikkei225":{"name":"日経平均","price":"38,000","change":"+120","change_percent":"0.32"},"topix":{"name":"TOPIX","price":"2,700","change":"-3","change_percent":"-0.11"},"futures":{"name":"日経先物","price":"38,050","change":"+90","change_percent":"0.24"}}`))
	})
	mux.HandleFunc("/stocks/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path != "/stocks/7203" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"7203","name":"トヨタ自動車","industry":"輸送用機器","current_price":"2,512.5","change":"+12.5","change_percent":"0.50","vwap":"2,498","news":[],"history":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetStock(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := New(srv.URL+"/", time.Second)

	d, err := c.GetStock(context.Background(), "7203")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "トヨタ自動車" || d.CurrentPrice != "2,512.5" || d.ChangePercent != "0.50" || d.VWAP != "2,498" {
		t.Fatalf("unexpected details %+v", d)
	}

	if _, err := c.GetStock(context.Background(), "9999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetMarket(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := New(srv.URL, time.Second)

	mi, err := c.GetMarket(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mi.Nikkei225.Price != "38,000" || mi.Topix.ChangePercent != "-0.11" || mi.Futures.Name != "日経先物" {
		t.Fatalf("unexpected indices %+v", mi)
	}
}

func TestCachedResponses(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	mem := cache.NewMemoryCache()
	defer mem.Close()
	c := New(srv.URL, time.Second, WithCache(mem, time.Minute))

	for i := 0; i < 3; i++ {
		if _, err := c.GetStock(context.Background(), "7203"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("expected one upstream call, got %d", got)
	}
}

func TestRateLimited(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)
	c := New(srv.URL, time.Second, WithRateLimit(1, 0.001))

	if _, err := c.GetStock(context.Background(), "7203"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.GetStock(context.Background(), "7203"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}
