package usecase

import (
	"context"
	"sort"
	"testing"
	"time"

	"TradeInfo/internal/domain/models"
)

func TestRefreshActivePatchesMissingItems(t *testing.T) {
	initial := docWith(
		models.Category{ID: "a", Items: []models.WatchlistItem{
			{Code: "7203", Name: "トヨタ", Price: "2500"},
			{Code: "9984"},
			{Code: "6758", Name: "ソニー"},
			{Code: "0000"},
		}},
		models.Category{ID: "b", Items: []models.WatchlistItem{{Code: "9984"}, {Code: "8306"}}},
	)
	store := NewWatchlistStore(initial)
	src := &fakeStocks{
		details: map[string]*models.StockDetails{
			"9984": {Code: "9984", Name: "ソフトバンクG", CurrentPrice: "9,012", Change: "+120", ChangePercent: "1.35", VWAP: "8,990", Industry: "情報・通信業"},
			"6758": {Code: "6758", Name: "ソニーG", CurrentPrice: "3,100", Change: "-5", ChangePercent: "-0.16"},
		},
		fail: map[string]bool{"0000": true},
	}
	m := newFakeMetrics()
	r := NewQuoteRefresher(store, src, m, nil, 0, time.Second)

	if n := r.RefreshActive(context.Background()); n != 3 {
		t.Fatalf("expected 3 fetches, got %d", n)
	}
	r.Wait()

	calls := src.called()
	sort.Strings(calls)
	if len(calls) != 3 || calls[0] != "0000" || calls[1] != "6758" || calls[2] != "9984" {
		t.Fatalf("unexpected fetches %v", calls)
	}
	if m.errorCount("stock_fetch") != 1 {
		t.Fatalf("expected one fetch failure recorded, got %+v", m.errors)
	}

	doc := store.Snapshot()
	sb := doc.Categories[0].Items[1]
	want := models.WatchlistItem{Code: "9984", Name: "ソフトバンクG", Price: "9,012", Change: "+120 (1.35%)", Industry: "情報・通信業", VWAP: "8,990"}
	if sb != want {
		t.Fatalf("unexpected patched item %+v", sb)
	}
	if doc.Categories[1].Items[0] != want {
		t.Fatalf("patch not applied across categories: %+v", doc.Categories[1].Items[0])
	}
	if got := doc.Categories[0].Items[2].Industry; got != DefaultIndustry {
		t.Fatalf("expected default industry, got %q", got)
	}
	if doc.Categories[0].Items[3] != (models.WatchlistItem{Code: "0000"}) {
		t.Fatalf("failed item modified: %+v", doc.Categories[0].Items[3])
	}
	if doc.Categories[1].Items[1] != (models.WatchlistItem{Code: "8306"}) {
		t.Fatalf("inactive category item fetched: %+v", doc.Categories[1].Items[1])
	}
}

func TestRefreshActiveWithoutActiveCategory(t *testing.T) {
	store := NewWatchlistStore(models.Document{})
	r := NewQuoteRefresher(store, &fakeStocks{}, nil, nil, 0, time.Second)
	if n := r.RefreshActive(context.Background()); n != 0 {
		t.Fatalf("expected no fetches, got %d", n)
	}
}

func TestRefreshMarket(t *testing.T) {
	store := NewWatchlistStore(models.DefaultDocument())
	mi := &models.MarketIndices{Nikkei225: models.IndexInfo{Name: "日経平均", Price: "38,000"}}
	r := NewQuoteRefresher(store, &fakeStocks{market: mi}, nil, nil, 0, time.Second)

	if err := r.RefreshMarket(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := store.Snapshot().MarketIndices
	if got == nil || got.Nikkei225.Price != "38,000" {
		t.Fatalf("market indices not stored: %+v", got)
	}

	failing := NewQuoteRefresher(store, &fakeStocks{}, nil, nil, 0, time.Second)
	if err := failing.RefreshMarket(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if store.Snapshot().MarketIndices == nil {
		t.Fatalf("failed refresh cleared indices")
	}
}

func TestRefresherFollowsWatchlistChanges(t *testing.T) {
	store := NewWatchlistStore(docWith(cat("a")))
	src := &fakeStocks{details: map[string]*models.StockDetails{
		"7203": {Code: "7203", Name: "トヨタ", CurrentPrice: "2,500"},
	}}
	r := NewQuoteRefresher(store, src, nil, nil, 0, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	store.AddToWatchlist("7203")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if active, _ := store.ActiveCategory(); len(active.Items) == 1 && active.Items[0].Name == "トヨタ" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	r.Wait()

	active, _ := store.ActiveCategory()
	if active.Items[0].Price != "2,500" {
		t.Fatalf("added ticker not refreshed: %+v", active.Items[0])
	}
}
