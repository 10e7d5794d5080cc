package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradeInfo/internal/domain/models"
)

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.ChangeEvent
	err     error
	closed  bool
}

func (r *recordingSink) Publish(ctx context.Context, ev models.ChangeEvent) error {
	return r.PublishBatch(ctx, []models.ChangeEvent{ev})
}

func (r *recordingSink) PublishBatch(_ context.Context, evs []models.ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, append([]models.ChangeEvent(nil), evs...))
	return r.err
}

func (r *recordingSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *recordingSink) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.batches {
		n += len(b)
	}
	return n
}

func TestChangeFeedFlushesOnClose(t *testing.T) {
	sink := &recordingSink{}
	feed := NewChangeFeed(sink, "kafka", nil, nil, 50, time.Hour)
	feed.Start(context.Background())

	s := NewWatchlistStore(models.DefaultDocument(), WithChangeEmitter(feed))
	s.AddToWatchlist("6758")
	s.AddToWatchlist("6758")
	s.SetSelectedTicker("6758")
	feed.Close()

	if sink.total() != 2 {
		t.Fatalf("expected 2 events, got %d", sink.total())
	}
	if !sink.closed {
		t.Fatalf("sink not closed")
	}
	first := sink.batches[0][0]
	if first.Op != models.OpAddToWatchlist || first.CategoryID != "cat-1" || len(first.Codes) != 1 || first.Codes[0] != "6758" {
		t.Fatalf("unexpected event %+v", first)
	}
}

func TestChangeFeedBatchesBySize(t *testing.T) {
	sink := &recordingSink{}
	feed := NewChangeFeed(sink, "clickhouse", nil, nil, 2, time.Hour)
	feed.Start(context.Background())

	for i := 0; i < 5; i++ {
		feed.Emit(models.ChangeEvent{Op: models.OpClearWatchlist})
	}
	feed.Close()

	if sink.total() != 5 {
		t.Fatalf("expected 5 events, got %d", sink.total())
	}
	// only the final drain on close may exceed the batch size
	for _, b := range sink.batches[:len(sink.batches)-1] {
		if len(b) > 2 {
			t.Fatalf("batch over size: %d", len(b))
		}
	}
}

func TestChangeFeedPublishErrorsCounted(t *testing.T) {
	sink := &recordingSink{err: errBoom}
	m := newFakeMetrics()
	feed := NewChangeFeed(sink, "kafka", m, nil, 10, time.Hour)
	feed.Start(context.Background())

	feed.Emit(models.ChangeEvent{Op: models.OpAddCategory})
	feed.Close()

	if m.errorCount("changefeed_publish") != 1 {
		t.Fatalf("expected publish error recorded, got %+v", m.errors)
	}
}

func TestChangeFeedDropsWhenFull(t *testing.T) {
	m := newFakeMetrics()
	feed := NewChangeFeed(&recordingSink{}, "kafka", m, nil, 1, time.Hour)

	// not started: buffer holds batchSz*4 events
	for i := 0; i < 6; i++ {
		feed.Emit(models.ChangeEvent{Op: models.OpAddCategory})
	}
	if m.errorCount("changefeed_dropped") != 2 {
		t.Fatalf("expected 2 drops, got %d", m.errorCount("changefeed_dropped"))
	}
}
