package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
	applogger "TradeInfo/pkg/logger"
)

// ChangeFeed ships store change events to a sink (Kafka topic or ClickHouse
// table) in batches. Emit never blocks the store; when the buffer is full the
// event is dropped and counted.
type ChangeFeed struct {
	sink    drepo.ChangeSink
	backend string
	metrics drepo.Metrics
	log     *applogger.Logger
	batchSz int
	batchTO time.Duration

	events chan models.ChangeEvent
	done   chan struct{}
	wg     sync.WaitGroup
	start  sync.Once
	stop   sync.Once
}

// NewChangeFeed creates a feed publishing to sink. backend only labels logs and metrics.
func NewChangeFeed(
	sink drepo.ChangeSink,
	backend string,
	metrics drepo.Metrics,
	log *applogger.Logger,
	batchSz int,
	batchTO time.Duration,
) *ChangeFeed {
	if batchSz <= 0 {
		batchSz = 100
	}
	if batchTO <= 0 {
		batchTO = time.Second
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &ChangeFeed{
		sink:    sink,
		backend: backend,
		metrics: metrics,
		log:     log,
		batchSz: batchSz,
		batchTO: batchTO,
		events:  make(chan models.ChangeEvent, batchSz*4),
		done:    make(chan struct{}),
	}
}

// Emit queues ev for publishing.
func (f *ChangeFeed) Emit(ev models.ChangeEvent) {
	select {
	case f.events <- ev:
	default:
		f.recordError("changefeed_dropped")
	}
}

// Start launches the batching goroutine.
func (f *ChangeFeed) Start(ctx context.Context) {
	f.start.Do(func() {
		f.wg.Add(1)
		go f.run(ctx)
	})
}

// Close publishes what is buffered and releases the sink.
func (f *ChangeFeed) Close() {
	f.stop.Do(func() { close(f.done) })
	f.wg.Wait()
	if f.sink != nil {
		if err := f.sink.Close(); err != nil {
			f.log.Warn("close change sink", applogger.String("backend", f.backend), applogger.Error(err))
		}
	}
}

func (f *ChangeFeed) run(ctx context.Context) {
	defer f.wg.Done()
	ticker := time.NewTicker(f.batchTO)
	defer ticker.Stop()

	batch := make([]models.ChangeEvent, 0, f.batchSz)
	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		_ = f.publish(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-f.events:
			batch = append(batch, ev)
			if len(batch) >= f.batchSz {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
			f.drain(&batch)
			flush(context.Background())
			return
		case <-f.done:
			f.drain(&batch)
			flush(context.Background())
			return
		}
	}
}

func (f *ChangeFeed) drain(batch *[]models.ChangeEvent) {
	for {
		select {
		case ev := <-f.events:
			*batch = append(*batch, ev)
		default:
			return
		}
	}
}

func (f *ChangeFeed) publish(ctx context.Context, evs []models.ChangeEvent) error {
	if f.sink == nil {
		return nil
	}
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := f.sink.PublishBatch(ctx, evs); err != nil {
		f.recordError("changefeed_publish")
		f.log.Error("publish change events",
			applogger.String("backend", f.backend),
			applogger.Int("count", len(evs)),
			applogger.Error(err),
		)
		return fmt.Errorf("publish change events: %w", err)
	}
	if f.metrics != nil {
		f.metrics.RecordLatency("changefeed_"+f.backend, time.Since(start).Seconds())
	}
	return nil
}

func (f *ChangeFeed) recordError(kind string) {
	if f.metrics != nil {
		f.metrics.RecordError(kind)
	}
}

var _ ChangeEmitter = (*ChangeFeed)(nil)
