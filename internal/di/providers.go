package di

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"TradeInfo/internal/domain/repository"
	"TradeInfo/internal/handler/api"
	internalrepo "TradeInfo/internal/repository"
	"TradeInfo/internal/service/stockapi"
	"TradeInfo/internal/usecase"
	"TradeInfo/pkg/cache"
	pkgch "TradeInfo/pkg/clickhouse"
	"TradeInfo/pkg/config"
	xhttp "TradeInfo/pkg/http"
	pkgkafka "TradeInfo/pkg/kafka"
	applogger "TradeInfo/pkg/logger"
	"TradeInfo/pkg/metrics"
	"TradeInfo/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideKVStore opens the document store selected by storage.type.
func ProvideKVStore(cfg *config.Config) (repository.KVStore, error) {
	if cfg.Storage.Type == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite storage dir: %w", err)
		}
		kv, err := internalrepo.NewSQLiteKVStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite storage: %w", err)
		}
		return kv, nil
	}
	svc, err := openStorageCache(cfg)
	if err != nil {
		return nil, err
	}
	return internalrepo.NewCacheKVStore(svc), nil
}

func openStorageCache(cfg *config.Config) (cache.Service, error) {
	s := cfg.Storage
	switch s.Type {
	case "memory":
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(s.MemoryMaxSize)), nil
	case "file":
		fc, err := cache.NewFileCache(cache.WithFileDir(s.Dir))
		if err != nil {
			return nil, fmt.Errorf("file storage: %w", err)
		}
		return fc, nil
	case "redis", "layered":
		rc, err := cache.NewRedisCache(
			cache.WithRedisHost(s.Redis.Host),
			cache.WithRedisPort(s.Redis.Port),
			cache.WithRedisPassword(s.Redis.Password),
			cache.WithRedisDB(s.Redis.DB),
			cache.WithRedisPool(s.Redis.PoolSize, 2, 30*time.Second),
			cache.WithRedisPrefix(s.Redis.Prefix),
		)
		if err != nil {
			return nil, fmt.Errorf("redis storage: %w", err)
		}
		if s.Type == "redis" {
			return rc, nil
		}
		return cache.NewLayeredCache(rc, cache.WithLayeredMemorySize(s.MemoryMaxSize)), nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", s.Type)
	}
}

// ProvidePersister creates the persistence adapter.
func ProvidePersister(kv repository.KVStore, log *applogger.Logger, m repository.Metrics, cfg *config.Config) *usecase.Persister {
	return usecase.NewPersister(kv,
		usecase.WithStorageKey(cfg.Storage.Key),
		usecase.WithPersistTimeout(cfg.Storage.Timeout),
		usecase.WithPersisterLogger(log.Component("persister")),
		usecase.WithPersisterMetrics(m),
	)
}

// ProvideClickHouseClient connects only when ClickHouse is the change feed backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.ChangeFeed.Backend != "clickhouse" {
		return nil, nil
	}
	ch := cfg.ClickHouse
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddress(ch.Host, ch.Port),
		pkgch.WithDatabase(ch.Database),
		pkgch.WithCredentials(ch.User, ch.Password),
		pkgch.WithHTTP(ch.UseHTTP),
		pkgch.WithAsyncInsert(ch.AsyncInsert, ch.WaitForAsync),
		pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout),
		pkgch.WithMaxExecutionTime(ch.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	if err := client.EnsureSchema(ctx, internalrepo.ChangeTableDDL(client.Table(ch.Table))); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a producer only when Kafka is the change feed backend.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.ChangeFeed.Backend != "kafka" {
		return nil, nil
	}
	k := cfg.Kafka
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.Producer.MaxAttempts),
		pkgkafka.WithBatching(k.Producer.BatchSize, k.Producer.Linger),
		pkgkafka.WithWriteTimeout(k.Producer.WriteTimeout),
		pkgkafka.WithAsync(k.Producer.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideChangeSink picks the sink for changefeed.backend; nil for "none".
func ProvideChangeSink(cfg *config.Config, producer *pkgkafka.Producer, ch *pkgch.Client) repository.ChangeSink {
	switch {
	case producer != nil:
		return internalrepo.NewKafkaChangePublisher(producer, cfg.Kafka.Topic, cfg.ChangeFeed.ClientID)
	case ch != nil:
		return internalrepo.NewClickHouseChangeSink(ch.DB(), ch.Table(cfg.ClickHouse.Table), cfg.ChangeFeed.ClientID)
	default:
		return nil
	}
}

// ProvideChangeFeed wraps the sink in a batching feed; nil without a sink.
func ProvideChangeFeed(sink repository.ChangeSink, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.ChangeFeed {
	if sink == nil {
		return nil
	}
	return usecase.NewChangeFeed(sink, cfg.ChangeFeed.Backend, m,
		log.Component("changefeed"),
		cfg.ChangeFeed.BatchSize, cfg.ChangeFeed.BatchTimeout)
}

// ProvideWatchlistStore rehydrates the document and builds the container.
func ProvideWatchlistStore(p *usecase.Persister, feed *usecase.ChangeFeed, m repository.Metrics, cfg *config.Config) *usecase.WatchlistStore {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Storage.Timeout)
	defer cancel()

	opts := []usecase.StoreOption{usecase.WithSaver(p), usecase.WithStoreMetrics(m)}
	if feed != nil {
		opts = append(opts, usecase.WithChangeEmitter(feed))
	}
	return usecase.NewWatchlistStore(p.Load(ctx), opts...)
}

// ProvideStockSource creates the stock API client with a private response cache.
func ProvideStockSource(cfg *config.Config) repository.StockSource {
	s := cfg.StockAPI
	return stockapi.New(s.BaseURL, s.Timeout,
		stockapi.WithCache(cache.NewMemoryCache(cache.WithMemoryMaxSize(512)), s.CacheTTL),
		stockapi.WithRateLimit(s.RateBurst, s.RatePerSec),
	)
}

// ProvideQuoteRefresher creates the background display-field refresher.
func ProvideQuoteRefresher(store *usecase.WatchlistStore, src repository.StockSource, m repository.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.QuoteRefresher {
	return usecase.NewQuoteRefresher(store, src, m,
		log.Component("refresher"),
		cfg.StockAPI.RefreshInterval, cfg.StockAPI.Timeout)
}

// ProvideKafkaConsumer subscribes to the quotes topic; nil when none is configured.
func ProvideKafkaConsumer(cfg *config.Config, store *usecase.WatchlistStore, m repository.Metrics, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	k := cfg.Kafka
	if k.QuotesTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(log.Component("quotes"),
		pkgkafka.WithConsumerBrokers(k.Brokers),
		pkgkafka.WithConsumerGroupID(k.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(k.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(k.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(k.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(k.Consumer.RetryMax, k.Consumer.BackoffMin, k.Consumer.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaQuotesHandler(k.QuotesTopic, store, m))
	consumer.WithHook(pkgkafka.NewHookChain(pkgkafka.MaxAgeHook(k.QuoteMaxAge, nil)))
	return consumer, nil
}

// ProvideHTTPHandler exposes the store over Echo and the websocket stream.
func ProvideHTTPHandler(store *usecase.WatchlistStore, refresher *usecase.QuoteRefresher, log *applogger.Logger, cfg *config.Config) xhttp.Handler {
	httpLog := log.Component("http")
	ws := api.NewSnapshotStream(httpLog, store, cfg.Server.CORSOrigins)
	return api.NewWatchlistEchoHandler(httpLog, store, refresher, ws)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	kv repository.KVStore,
	store *usecase.WatchlistStore,
	persister *usecase.Persister,
	feed *usecase.ChangeFeed,
	refresher *usecase.QuoteRefresher,
	consumer *pkgkafka.Consumer,
	ch *pkgch.Client,
	handler xhttp.Handler,
) *server.App {
	return server.New(cfg, log, kv, store, persister, feed, refresher, consumer, ch, handler)
}
