package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"TradeInfo/internal/domain/models"
)

var errBoom = errors.New("boom")

type mapKV struct {
	mu     sync.Mutex
	data   map[string][]byte
	sets   int
	getErr error
	setErr error
}

func newMapKV() *mapKV { return &mapKV{data: make(map[string][]byte)} }

func (m *mapKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *mapKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *mapKV) Close() error { return nil }

func (m *mapKV) setCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sets
}

type fakeMetrics struct {
	mu        sync.Mutex
	mutations map[string]int
	persists  map[string]int
	errors    map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		mutations: make(map[string]int),
		persists:  make(map[string]int),
		errors:    make(map[string]int),
	}
}

func (f *fakeMetrics) RecordMutation(op string, changed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutations[fmt.Sprintf("%s/%t", op, changed)]++
}

func (f *fakeMetrics) RecordPersist(result string, _ float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persists[result]++
}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[kind]++
}

func (f *fakeMetrics) RecordLatency(string, float64) {}

func (f *fakeMetrics) errorCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[kind]
}

// fakeStocks serves StockDetails from a map; codes in fail return errBoom.
type fakeStocks struct {
	mu      sync.Mutex
	details map[string]*models.StockDetails
	fail    map[string]bool
	calls   []string
	market  *models.MarketIndices
}

func (f *fakeStocks) GetStock(_ context.Context, code string) (*models.StockDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, code)
	if f.fail[code] {
		return nil, errBoom
	}
	d, ok := f.details[code]
	if !ok {
		return nil, fmt.Errorf("stock %s: not found", code)
	}
	return d, nil
}

func (f *fakeStocks) GetMarket(context.Context) (*models.MarketIndices, error) {
	if f.market == nil {
		return nil, errBoom
	}
	return f.market, nil
}

func (f *fakeStocks) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}
