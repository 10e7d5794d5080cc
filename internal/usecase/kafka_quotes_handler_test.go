package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"TradeInfo/internal/domain/models"
	pkgkafka "TradeInfo/pkg/kafka"
)

func TestFormatPrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"999", "999"},
		{"1000", "1,000"},
		{"12345.5", "12,345.5"},
		{"1234567.891", "1,234,567.89"},
		{"-2500.25", "-2,500.25"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			if got := FormatPrice(decimal.RequireFromString(tc.in)); got != tc.want {
				t.Fatalf("FormatPrice(%s) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestPatchFromQuote(t *testing.T) {
	vwap := 2498.123
	p := PatchFromQuote(models.Quote{Code: "7203", Price: 2512.5, Change: 12.5, ChangePercent: 0.5, VWAP: &vwap})

	if *p.Price != "2,512.5" || *p.Change != "+12.5 (+0.5%)" || *p.VWAP != "2,498.12" {
		t.Fatalf("unexpected patch price=%q change=%q vwap=%q", *p.Price, *p.Change, *p.VWAP)
	}
	if p.Name != nil || p.Industry != nil {
		t.Fatalf("quote must not touch name or industry")
	}

	down := PatchFromQuote(models.Quote{Code: "7203", Price: 100, Change: -3, ChangePercent: -2.91})
	if *down.Change != "-3 (-2.91%)" || down.VWAP != nil {
		t.Fatalf("unexpected patch change=%q vwap=%v", *down.Change, down.VWAP)
	}
}

func TestKafkaQuotesHandler(t *testing.T) {
	store := NewWatchlistStore(docWith(cat("a", "7203"), cat("b", "7203", "9984")))
	h := NewKafkaQuotesHandler("quotes", store, newFakeMetrics())

	if h.Topic() != "quotes" {
		t.Fatalf("unexpected topic %q", h.Topic())
	}
	if err := h.Handle(context.Background(), []byte(`{"code":"7203","price":2500,"change":-10,"change_percent":-0.4}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc := store.Snapshot()
	for _, c := range doc.Categories {
		if c.Items[0].Price != "2,500" || c.Items[0].Change != "-10 (-0.4%)" {
			t.Fatalf("quote not applied in %s: %+v", c.ID, c.Items[0])
		}
	}
	if doc.Categories[1].Items[1].Price != "" {
		t.Fatalf("other ticker modified")
	}
}

func TestKafkaQuotesHandlerRejects(t *testing.T) {
	store := NewWatchlistStore(docWith(cat("a", "7203")))
	m := newFakeMetrics()
	h := NewKafkaQuotesHandler("quotes", store, m)

	if err := h.Handle(context.Background(), []byte(`{bad`)); err == nil || errors.Is(err, pkgkafka.ErrSkip) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if err := h.Handle(context.Background(), []byte(`{"code":"toyota","price":1}`)); !errors.Is(err, pkgkafka.ErrSkip) {
		t.Fatalf("expected skip for invalid code, got %v", err)
	}
	if m.errorCount("quote_unmarshal") != 1 || m.errorCount("quote_invalid") != 1 {
		t.Fatalf("unexpected errors %+v", m.errors)
	}
	if store.Snapshot().Categories[0].Items[0].Price != "" {
		t.Fatalf("rejected quote applied")
	}
}
