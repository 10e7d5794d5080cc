package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	drepo "TradeInfo/internal/domain/repository"
	"TradeInfo/internal/usecase"
	pkgch "TradeInfo/pkg/clickhouse"
	"TradeInfo/pkg/config"
	xhttp "TradeInfo/pkg/http"
	pkgkafka "TradeInfo/pkg/kafka"
	applogger "TradeInfo/pkg/logger"
)

// App encapsulates the entire application lifecycle. feed, consumer and
// chClient are nil when their backend is not configured.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	kv        drepo.KVStore
	store     *usecase.WatchlistStore
	persister *usecase.Persister
	feed      *usecase.ChangeFeed
	refresher *usecase.QuoteRefresher
	consumer  *pkgkafka.Consumer
	chClient  *pkgch.Client
	handler   xhttp.Handler

	httpServer *xhttp.Server
	cancel     context.CancelFunc
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	kv drepo.KVStore,
	store *usecase.WatchlistStore,
	persister *usecase.Persister,
	feed *usecase.ChangeFeed,
	refresher *usecase.QuoteRefresher,
	consumer *pkgkafka.Consumer,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:       cfg,
		log:       log,
		kv:        kv,
		store:     store,
		persister: persister,
		feed:      feed,
		refresher: refresher,
		consumer:  consumer,
		chClient:  chClient,
		handler:   handler,
	}
}

// Store exposes the watchlist container.
func (a *App) Store() *usecase.WatchlistStore { return a.store }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(context.Background()); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	return a.Shutdown(ctx)
}

// Start launches the background workers and the HTTP server.
func (a *App) Start(parent context.Context) error {
	// writers outlive the cancellable context so Shutdown can flush them last
	a.persister.Start(parent)
	if a.feed != nil {
		a.feed.Start(parent)
		a.log.Info("change feed started", applogger.String("backend", a.cfg.ChangeFeed.Backend))
	}
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel
	if a.refresher != nil {
		a.refresher.Start(ctx)
	}
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			cancel()
			return fmt.Errorf("start kafka consumer: %w", err)
		}
	}

	a.httpServer = xhttp.NewServer(a.handler, a.log, a.health,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(a.cfg.Server.CORSOrigins),
		xhttp.WithMetrics(!a.cfg.Metrics.Disabled),
	)
	if err := a.httpServer.Start(); err != nil {
		cancel()
		return fmt.Errorf("start http server: %w", err)
	}

	active, _ := a.store.ActiveCategory()
	a.log.Info("tradeinfo started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("storage", a.cfg.Storage.Type),
		applogger.String("active_category", active.ID),
		applogger.Int("items", len(active.Items)),
	)
	return nil
}

// Shutdown stops intake first, then flushes the change feed and the last
// document snapshot before closing the backends.
func (a *App) Shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.refresher != nil {
		a.refresher.Wait()
	}
	if a.feed != nil {
		a.feed.Close()
	}
	a.persister.Close()

	if err := a.kv.Close(); err != nil {
		a.log.Warn("storage close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}

func (a *App) health(ctx context.Context) (map[string]interface{}, error) {
	doc := a.store.Snapshot()
	details := map[string]interface{}{
		"storage":    a.cfg.Storage.Type,
		"changefeed": a.cfg.ChangeFeed.Backend,
		"categories": len(doc.Categories),
	}
	if a.chClient != nil {
		if err := a.chClient.Health(ctx); err != nil {
			return details, fmt.Errorf("clickhouse: %w", err)
		}
	}
	return details, nil
}
