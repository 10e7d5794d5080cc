package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"TradeInfo/internal/domain/models"
	"TradeInfo/internal/domain/repository"
	pkgkafka "TradeInfo/pkg/kafka"
)

// changeMessage is the wire form of a ChangeEvent on the change topic.
type changeMessage struct {
	Op         string   `json:"op"`
	CategoryID string   `json:"category_id,omitempty"`
	Codes      []string `json:"codes,omitempty"`
	T          int64    `json:"t"` // ms
}

func toMessage(ev models.ChangeEvent) changeMessage {
	return changeMessage{
		Op:         string(ev.Op),
		CategoryID: ev.CategoryID,
		Codes:      ev.Codes,
		T:          ev.At.UnixMilli(),
	}
}

// ClickHouseChangeSink appends change events to an audit table.
type ClickHouseChangeSink struct {
	db     *sql.DB
	table  string
	client string
}

// NewClickHouseChangeSink creates a ClickHouse change sink. client tags every row.
func NewClickHouseChangeSink(db *sql.DB, table, client string) repository.ChangeSink {
	return &ClickHouseChangeSink{db: db, table: table, client: client}
}

// ChangeTableDDL returns the statement creating the audit table.
func ChangeTableDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (ts DateTime64(3), client String, op LowCardinality(String), category_id String, codes Array(String)) ENGINE=MergeTree ORDER BY (client, ts)", table)
}

func (s *ClickHouseChangeSink) Publish(ctx context.Context, ev models.ChangeEvent) error {
	return s.PublishBatch(ctx, []models.ChangeEvent{ev})
}

func (s *ClickHouseChangeSink) PublishBatch(ctx context.Context, evs []models.ChangeEvent) error {
	if len(evs) == 0 {
		return nil
	}
	values := make([]string, 0, len(evs))
	args := make([]interface{}, 0, len(evs)*5)
	for _, ev := range evs {
		if ev.Op == "" {
			continue
		}
		codes := ev.Codes
		if codes == nil {
			codes = []string{}
		}
		values = append(values, "(?, ?, ?, ?, ?)")
		args = append(args, ev.At, s.client, string(ev.Op), ev.CategoryID, codes)
	}
	if len(values) == 0 {
		return nil
	}
	q := fmt.Sprintf("INSERT INTO %s (ts, client, op, category_id, codes) VALUES %s", s.table, strings.Join(values, ","))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert change events: %w", err)
	}
	return nil
}

func (s *ClickHouseChangeSink) Close() error {
	return nil // connection owned by pkg/clickhouse
}

// KafkaChangePublisher ships change events to a Kafka topic keyed by client.
type KafkaChangePublisher struct {
	producer *pkgkafka.Producer
	topic    string
	client   string
}

// NewKafkaChangePublisher creates a Kafka change sink.
func NewKafkaChangePublisher(producer *pkgkafka.Producer, topic, client string) repository.ChangeSink {
	return &KafkaChangePublisher{producer: producer, topic: topic, client: client}
}

func (p *KafkaChangePublisher) Publish(ctx context.Context, ev models.ChangeEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(p.client), toMessage(ev))
}

func (p *KafkaChangePublisher) PublishBatch(ctx context.Context, evs []models.ChangeEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(evs))
	for i, ev := range evs {
		msgs[i] = pkgkafka.Message{Key: []byte(p.client), Value: toMessage(ev)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaChangePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
