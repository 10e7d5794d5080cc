package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
	pkgkafka "TradeInfo/pkg/kafka"
	"TradeInfo/pkg/util"
)

// KafkaQuotesHandler applies streamed quotes to the watchlist display cache.
type KafkaQuotesHandler struct {
	topic   string
	store   *WatchlistStore
	metrics drepo.Metrics
}

func NewKafkaQuotesHandler(topic string, store *WatchlistStore, metrics drepo.Metrics) *KafkaQuotesHandler {
	return &KafkaQuotesHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaQuotesHandler) Topic() string { return h.topic }

// incoming message schema: {code, price, change, change_percent, vwap?, t}
func (h *KafkaQuotesHandler) Handle(_ context.Context, b []byte) error {
	var q models.Quote
	if err := json.Unmarshal(b, &q); err != nil {
		h.recordError("quote_unmarshal")
		return fmt.Errorf("decode quote: %w", err)
	}
	if !drepo.IsValidTicker(q.Code) {
		h.recordError("quote_invalid")
		return fmt.Errorf("quote for invalid code %q: %w", q.Code, pkgkafka.ErrSkip)
	}

	if q.Timestamp > 0 && h.metrics != nil {
		h.metrics.RecordLatency("quote_e2e", time.Since(util.FromUnixAuto(q.Timestamp)).Seconds())
	}

	h.store.UpdateWatchlistItem(q.Code, PatchFromQuote(q))
	return nil
}

func (h *KafkaQuotesHandler) recordError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordError(kind)
	}
}

// PatchFromQuote renders a numeric quote in the same display form the stock
// API uses: grouped price, signed change and a two-decimal percentage.
func PatchFromQuote(q models.Quote) models.ItemPatch {
	price := FormatPrice(decimal.NewFromFloat(q.Price))
	change := fmt.Sprintf("%s (%s%%)",
		signed(decimal.NewFromFloat(q.Change).Round(2)),
		signed(decimal.NewFromFloat(q.ChangePercent).Round(2)))
	p := models.ItemPatch{Price: &price, Change: &change}
	if q.VWAP != nil {
		vwap := FormatPrice(decimal.NewFromFloat(*q.VWAP))
		p.VWAP = &vwap
	}
	return p
}

// FormatPrice renders d with thousands separators and at most two decimals,
// e.g. 12345.5 -> "12,345.5".
func FormatPrice(d decimal.Decimal) string {
	d = d.Round(2)
	neg := d.IsNegative()
	intPart := d.Abs().Truncate(0)
	frac := d.Abs().Sub(intPart)

	digits := intPart.String()
	out := make([]byte, 0, len(digits)+len(digits)/3)
	for i := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i])
	}
	s := string(out)
	if !frac.IsZero() {
		// frac.String() is "0.xx"
		s += frac.String()[1:]
	}
	if neg {
		s = "-" + s
	}
	return s
}

func signed(d decimal.Decimal) string {
	if d.IsPositive() {
		return "+" + d.String()
	}
	return d.String()
}

var _ pkgkafka.MessageHandler = (*KafkaQuotesHandler)(nil)
