package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
	"TradeInfo/internal/migration"
	applogger "TradeInfo/pkg/logger"
)

// StorageKey is the key the document has always been persisted under.
const StorageKey = "trade-info-v3-storage"

type envelope struct {
	State   json.RawMessage `json:"state"`
	Version int             `json:"version"`
}

// PersisterOption configures Persister.
type PersisterOption func(*Persister)

func WithStorageKey(key string) PersisterOption {
	return func(p *Persister) {
		if key != "" {
			p.key = key
		}
	}
}

func WithPersistTimeout(d time.Duration) PersisterOption {
	return func(p *Persister) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithPersisterLogger(l *applogger.Logger) PersisterOption {
	return func(p *Persister) {
		if l != nil {
			p.log = l
		}
	}
}

func WithPersisterMetrics(m drepo.Metrics) PersisterOption {
	return func(p *Persister) { p.metrics = m }
}

// Persister loads the document at startup and writes every saved snapshot in
// the background. Only the newest unwritten snapshot is kept; older ones are
// overwritten before they reach the store.
type Persister struct {
	kv      drepo.KVStore
	key     string
	timeout time.Duration
	log     *applogger.Logger
	metrics drepo.Metrics

	pending chan models.Document
	done    chan struct{}
	wg      sync.WaitGroup
	started sync.Once
	closed  sync.Once
}

// NewPersister creates a persister over kv. Call Start before saving.
func NewPersister(kv drepo.KVStore, opts ...PersisterOption) *Persister {
	p := &Persister{
		kv:      kv,
		key:     StorageKey,
		timeout: 5 * time.Second,
		log:     applogger.Nop(),
		pending: make(chan models.Document, 1),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load returns the stored document upgraded to the current schema. A missing
// key, a read error or undecodable bytes all yield the default document.
func (p *Persister) Load(ctx context.Context) models.Document {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	raw, ok, err := p.kv.Get(ctx, p.key)
	if err != nil {
		p.recordError("persist_read")
		p.log.Warn("load stored document, using defaults", applogger.String("key", p.key), applogger.Error(err))
		return models.DefaultDocument()
	}
	if !ok {
		p.log.Info("no stored document, using defaults", applogger.String("key", p.key))
		return models.DefaultDocument()
	}

	res, err := DecodeStored(raw)
	if err != nil {
		p.recordError("persist_decode")
		p.log.Warn("decode stored document, using defaults", applogger.String("key", p.key), applogger.Error(err))
		return models.DefaultDocument()
	}
	p.log.Info("stored document loaded",
		applogger.Int("version", res.Version),
		applogger.String("shape", res.Shape.String()),
		applogger.Strings("steps", res.Applied),
		applogger.Int("categories", len(res.Document.Categories)),
	)
	return res.Document
}

// DecodeStored reads a persisted envelope and migrates its state to the current schema.
func DecodeStored(raw []byte) (migration.Result, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return migration.Result{}, fmt.Errorf("decode envelope: %w", err)
	}
	return migration.Run(env.State, env.Version), nil
}

// Save queues doc for writing and returns immediately, replacing any snapshot
// still waiting in the queue.
func (p *Persister) Save(doc models.Document) {
	for {
		select {
		case p.pending <- doc:
			return
		default:
		}
		select {
		case <-p.pending:
		default:
		}
	}
}

// Start launches the writer goroutine. It stops when ctx is cancelled or Close
// is called, writing any queued snapshot first.
func (p *Persister) Start(ctx context.Context) {
	p.started.Do(func() {
		p.wg.Add(1)
		go p.run(ctx)
	})
}

// Close stops the writer and waits for the final flush.
func (p *Persister) Close() {
	p.closed.Do(func() { close(p.done) })
	p.wg.Wait()
}

func (p *Persister) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case doc := <-p.pending:
			_ = p.write(ctx, doc)
		case <-ctx.Done():
			p.flush()
			return
		case <-p.done:
			p.flush()
			return
		}
	}
}

// flush writes the queued snapshot, if any, with a fresh context.
func (p *Persister) flush() {
	select {
	case doc := <-p.pending:
		_ = p.write(context.Background(), doc)
	default:
	}
}

// Write stores doc synchronously, bypassing the queue, and reports the error.
func (p *Persister) Write(ctx context.Context, doc models.Document) error {
	return p.write(ctx, doc)
}

func (p *Persister) write(ctx context.Context, doc models.Document) error {
	start := time.Now()
	b, err := EncodeDocument(doc)
	if err == nil {
		wctx, cancel := context.WithTimeout(ctx, p.timeout)
		err = p.kv.Set(wctx, p.key, b)
		cancel()
	}
	elapsed := time.Since(start).Seconds()

	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordPersist("error", elapsed)
		}
		p.recordError("persist_write")
		p.log.Error("persist document", applogger.String("key", p.key), applogger.Error(err))
		return err
	}
	if p.metrics != nil {
		p.metrics.RecordPersist("ok", elapsed)
	}
	p.log.Debug("document persisted", applogger.String("key", p.key), applogger.Int("bytes", len(b)))
	return nil
}

func (p *Persister) recordError(kind string) {
	if p.metrics != nil {
		p.metrics.RecordError(kind)
	}
}

// EncodeDocument renders doc in the persisted envelope at the current version.
func EncodeDocument(doc models.Document) ([]byte, error) {
	state, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	b, err := json.Marshal(envelope{State: state, Version: migration.CurrentVersion})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

var _ DocumentSaver = (*Persister)(nil)
