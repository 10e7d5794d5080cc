package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
	applogger "TradeInfo/pkg/logger"
)

// DefaultIndustry is shown when the stock API reports no industry.
const DefaultIndustry = "市場情報"

// QuoteRefresher fills the display cache of watchlist items from the stock API.
// Each item is fetched by its own goroutine; a failure is logged and counted
// and the item is simply tried again on the next refresh.
type QuoteRefresher struct {
	store    *WatchlistStore
	src      drepo.StockSource
	metrics  drepo.Metrics
	log      *applogger.Logger
	interval time.Duration
	timeout  time.Duration

	trigger chan struct{}
	wg      sync.WaitGroup
	fetches sync.WaitGroup
}

// NewQuoteRefresher creates a refresher. interval <= 0 disables the periodic refresh.
func NewQuoteRefresher(store *WatchlistStore, src drepo.StockSource, metrics drepo.Metrics, log *applogger.Logger, interval, timeout time.Duration) *QuoteRefresher {
	if log == nil {
		log = applogger.Nop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteRefresher{
		store:    store,
		src:      src,
		metrics:  metrics,
		log:      log,
		interval: interval,
		timeout:  timeout,
		trigger:  make(chan struct{}, 1),
	}
}

// Start refreshes the market and the active category once, then the category again whenever the active category's codes change
// and on every interval tick, until ctx is done.
func (r *QuoteRefresher) Start(ctx context.Context) {
	unsubscribe := r.store.Subscribe(func(prev, next models.Document) {
		if activeCodes(prev) != activeCodes(next) {
			r.Trigger()
		}
	})
	r.Trigger()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unsubscribe()

		var tick <-chan time.Time
		if r.interval > 0 {
			t := time.NewTicker(r.interval)
			defer t.Stop()
			tick = t.C
		}
		r.refreshMarketLogged(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.trigger:
				r.RefreshActive(ctx)
			case <-tick:
				r.RefreshActive(ctx)
				r.refreshMarketLogged(ctx)
			}
		}
	}()
}

// Trigger schedules a refresh of the active category without blocking.
func (r *QuoteRefresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Wait blocks until the refresh loop and every in-flight fetch have finished.
func (r *QuoteRefresher) Wait() {
	r.wg.Wait()
	r.fetches.Wait()
}

// RefreshActive starts a fetch for every item of the active category that is
// missing its name or price, and returns how many were started.
func (r *QuoteRefresher) RefreshActive(ctx context.Context) int {
	active, ok := r.store.ActiveCategory()
	if !ok {
		return 0
	}
	started := 0
	for _, it := range active.Items {
		if it.Code == "" || (it.Name != "" && it.Price != "") {
			continue
		}
		started++
		r.fetches.Add(1)
		go r.refreshItem(ctx, it.Code)
	}
	return started
}

func (r *QuoteRefresher) refreshItem(ctx context.Context, code string) {
	defer r.fetches.Done()
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	details, err := r.src.GetStock(ctx, code)
	if err != nil {
		r.recordError("stock_fetch")
		r.log.Warn("fetch stock metadata", applogger.String("code", code), applogger.Error(err))
		return
	}
	if r.metrics != nil {
		r.metrics.RecordLatency("stock_fetch", time.Since(start).Seconds())
	}
	r.store.UpdateWatchlistItem(code, PatchFromDetails(details))
}

// RefreshMarket replaces the cached market indices with the API's snapshot.
func (r *QuoteRefresher) RefreshMarket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	mi, err := r.src.GetMarket(ctx)
	if err != nil {
		r.recordError("market_fetch")
		return fmt.Errorf("fetch market indices: %w", err)
	}
	r.store.UpdateMarketIndices(mi)
	return nil
}

func (r *QuoteRefresher) refreshMarketLogged(ctx context.Context) {
	if err := r.RefreshMarket(ctx); err != nil {
		r.log.Warn("refresh market indices", applogger.Error(err))
	}
}

func (r *QuoteRefresher) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}

// PatchFromDetails maps an API response onto the item display fields.
func PatchFromDetails(d *models.StockDetails) models.ItemPatch {
	industry := d.Industry
	if industry == "" {
		industry = DefaultIndustry
	}
	name, price, vwap := d.Name, d.CurrentPrice, d.VWAP
	change := fmt.Sprintf("%s (%s%%)", d.Change, d.ChangePercent)
	return models.ItemPatch{
		Name:     &name,
		Price:    &price,
		Change:   &change,
		Industry: &industry,
		VWAP:     &vwap,
	}
}

func activeCodes(d models.Document) string {
	idx := d.CategoryIndex(d.ActiveCategoryID)
	if idx < 0 {
		return ""
	}
	codes := make([]string, len(d.Categories[idx].Items))
	for i, it := range d.Categories[idx].Items {
		codes[i] = it.Code
	}
	return d.ActiveCategoryID + ":" + strings.Join(codes, ",")
}
