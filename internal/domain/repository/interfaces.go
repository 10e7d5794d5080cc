package repository

import (
	"context"

	"TradeInfo/internal/domain/models"
)

// KVStore is the durable key-value primitive the document is persisted through.
// Get reports ok=false when the key has never been written.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// ChangeSink receives applied mutations (Kafka topic or ClickHouse audit table).
type ChangeSink interface {
	Publish(ctx context.Context, ev models.ChangeEvent) error
	PublishBatch(ctx context.Context, evs []models.ChangeEvent) error
	Close() error
}

// StockSource is the read-only ticker API.
type StockSource interface {
	GetStock(ctx context.Context, code string) (*models.StockDetails, error)
	GetMarket(ctx context.Context) (*models.MarketIndices, error)
}

type Metrics interface {
	RecordMutation(op string, changed bool)
	RecordPersist(result string, seconds float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
