package usecase

import (
	"fmt"
	"reflect"
	"sync"
	"time"

	"TradeInfo/internal/domain/models"
	drepo "TradeInfo/internal/domain/repository"
)

// DocumentSaver receives every new document snapshot. Save must not block.
type DocumentSaver interface {
	Save(doc models.Document)
}

// ChangeEmitter receives an event for every mutation that changed the document.
type ChangeEmitter interface {
	Emit(ev models.ChangeEvent)
}

// Subscriber is called with the previous and the new snapshot after a change.
// It runs while the store is locked and must not call back into the store.
type Subscriber func(prev, next models.Document)

// StoreOption configures WatchlistStore.
type StoreOption func(*WatchlistStore)

// WithSaver attaches the persistence adapter.
func WithSaver(s DocumentSaver) StoreOption {
	return func(w *WatchlistStore) { w.saver = s }
}

// WithChangeEmitter attaches the change feed.
func WithChangeEmitter(e ChangeEmitter) StoreOption {
	return func(w *WatchlistStore) { w.feed = e }
}

// WithStoreMetrics attaches a metrics recorder.
func WithStoreMetrics(m drepo.Metrics) StoreOption {
	return func(w *WatchlistStore) { w.metrics = m }
}

// WithIDGenerator replaces the category id generator.
func WithIDGenerator(gen func() string) StoreOption {
	return func(w *WatchlistStore) { w.newID = gen }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) StoreOption {
	return func(w *WatchlistStore) { w.now = now }
}

// WatchlistStore owns the watchlist document. Mutations are serialized and never
// fail: invalid input resolves to a silent no-op or truncation. Every change
// produces a new document; earlier snapshots are never modified.
type WatchlistStore struct {
	mu      sync.Mutex
	doc     models.Document
	saver   DocumentSaver
	feed    ChangeEmitter
	metrics drepo.Metrics
	newID   func() string
	now     func() time.Time
	subs    map[int]Subscriber
	nextSub int
}

// NewWatchlistStore creates a store holding initial.
func NewWatchlistStore(initial models.Document, opts ...StoreOption) *WatchlistStore {
	s := &WatchlistStore{
		doc:  initial.Clone(),
		now:  time.Now,
		subs: make(map[int]Subscriber),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newID == nil {
		s.newID = newMillisIDGenerator(s.now)
	}
	return s
}

// Snapshot returns a deep copy of the current document.
func (s *WatchlistStore) Snapshot() models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// ActiveCategory returns the active category. ok is false when the active id
// names no category, which happens only after every category was deleted or a
// caller set an unknown id.
func (s *WatchlistStore) ActiveCategory() (models.Category, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.doc.CategoryIndex(s.doc.ActiveCategoryID)
	if idx < 0 {
		return models.Category{}, false
	}
	return s.doc.Clone().Categories[idx], true
}

// Subscribe registers fn and returns a function removing it.
func (s *WatchlistStore) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribeLocked(fn)
}

// Watch hands fn the current snapshot, then every later one. Both happen under
// the store lock, so no change can fall between the two.
func (s *WatchlistStore) Watch(fn func(models.Document)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.doc.Clone())
	return s.subscribeLocked(func(_, next models.Document) { fn(next) })
}

func (s *WatchlistStore) subscribeLocked(fn Subscriber) func() {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// SetSelectedTicker focuses code and clears the cached current price.
func (s *WatchlistStore) SetSelectedTicker(code string) {
	s.apply(&mutation{op: models.OpSetSelectedTicker, codes: []string{code}}, func(d models.Document) models.Document {
		d.SelectedTicker = code
		d.CurrentPrice = ""
		return d
	})
}

func (s *WatchlistStore) SetCurrentPrice(price string) {
	s.apply(&mutation{op: models.OpSetCurrentPrice}, func(d models.Document) models.Document {
		d.CurrentPrice = price
		return d
	})
}

// SetActiveCategory does not check that id exists; that is the caller's contract.
func (s *WatchlistStore) SetActiveCategory(id string) {
	s.apply(&mutation{op: models.OpSetActiveCategory, categoryID: id}, func(d models.Document) models.Document {
		d.ActiveCategoryID = id
		return d
	})
}

// UpdateMarketIndices replaces the cached market snapshot wholesale.
func (s *WatchlistStore) UpdateMarketIndices(mi *models.MarketIndices) {
	s.apply(&mutation{op: models.OpUpdateMarketIndices}, func(d models.Document) models.Document {
		if mi == nil {
			d.MarketIndices = nil
			return d
		}
		cp := *mi
		d.MarketIndices = &cp
		return d
	})
}

// AddCategory appends an empty category and returns its id. The active category
// is unchanged unless none is active, in which case the new category becomes active.
func (s *WatchlistStore) AddCategory(name string) string {
	var id string
	m := &mutation{op: models.OpAddCategory}
	s.apply(m, func(d models.Document) models.Document {
		id = s.uniqueID(d)
		m.categoryID = id
		cats := make([]models.Category, 0, len(d.Categories)+1)
		cats = append(cats, d.Categories...)
		d.Categories = append(cats, models.Category{ID: id, Name: name, Items: []models.WatchlistItem{}})
		if d.CategoryIndex(d.ActiveCategoryID) < 0 {
			d.ActiveCategoryID = id
		}
		return d
	})
	return id
}

func (s *WatchlistStore) RenameCategory(id, name string) {
	s.apply(&mutation{op: models.OpRenameCategory, categoryID: id}, func(d models.Document) models.Document {
		idx := d.CategoryIndex(id)
		if idx < 0 {
			return d
		}
		c := d.Categories[idx]
		c.Name = name
		return replaceCategory(d, idx, c)
	})
}

// DeleteCategory removes id. If it was active, the first remaining category
// becomes active, or the active id is cleared when none remain.
func (s *WatchlistStore) DeleteCategory(id string) {
	s.apply(&mutation{op: models.OpDeleteCategory, categoryID: id}, func(d models.Document) models.Document {
		idx := d.CategoryIndex(id)
		if idx < 0 {
			return d
		}
		cats := make([]models.Category, 0, len(d.Categories)-1)
		for _, c := range d.Categories {
			if c.ID != id {
				cats = append(cats, c)
			}
		}
		d.Categories = cats
		if d.ActiveCategoryID == id {
			d.ActiveCategoryID = ""
			if len(cats) > 0 {
				d.ActiveCategoryID = cats[0].ID
			}
		}
		return d
	})
}

// AddToWatchlist appends {code} to the active category unless it is present or full.
func (s *WatchlistStore) AddToWatchlist(code string) {
	s.applyActive(models.OpAddToWatchlist, []string{code}, func(c models.Category) models.Category {
		if code == "" || c.HasCode(code) || len(c.Items) >= models.MaxCategoryItems {
			return c
		}
		c.Items = appendItems(c.Items, models.WatchlistItem{Code: code})
		return c
	})
}

// AddTickers admits new codes into the active category in input order until it
// is full. Codes already present, repeated or empty are skipped; overflow is dropped.
func (s *WatchlistStore) AddTickers(codes []string) {
	s.applyActive(models.OpAddTickers, codes, func(c models.Category) models.Category {
		free := models.MaxCategoryItems - len(c.Items)
		if free <= 0 {
			return c
		}
		seen := make(map[string]bool, len(c.Items)+len(codes))
		for _, it := range c.Items {
			seen[it.Code] = true
		}
		add := make([]models.WatchlistItem, 0, free)
		for _, code := range codes {
			if len(add) == free {
				break
			}
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			add = append(add, models.WatchlistItem{Code: code})
		}
		if len(add) == 0 {
			return c
		}
		c.Items = appendItems(c.Items, add...)
		return c
	})
}

func (s *WatchlistStore) RemoveFromWatchlist(code string) {
	s.applyActive(models.OpRemoveFromWatchlist, []string{code}, func(c models.Category) models.Category {
		if !c.HasCode(code) {
			return c
		}
		items := make([]models.WatchlistItem, 0, len(c.Items)-1)
		for _, it := range c.Items {
			if it.Code != code {
				items = append(items, it)
			}
		}
		c.Items = items
		return c
	})
}

// UpdateWatchlistItem merges patch into every item with code, in every category.
func (s *WatchlistStore) UpdateWatchlistItem(code string, patch models.ItemPatch) {
	s.apply(&mutation{op: models.OpUpdateWatchlistItem, codes: []string{code}}, func(d models.Document) models.Document {
		if patch.IsEmpty() {
			return d
		}
		for idx, c := range d.Categories {
			if !c.HasCode(code) {
				continue
			}
			items := make([]models.WatchlistItem, len(c.Items))
			for i, it := range c.Items {
				if it.Code == code {
					it = patch.Apply(it)
				}
				items[i] = it
			}
			c.Items = items
			d = replaceCategory(d, idx, c)
		}
		return d
	})
}

// ReorderWatchlist moves the item at from to position to within categoryID.
// An unknown category or a from index outside the list is a no-op; to is
// clamped to the last position.
func (s *WatchlistStore) ReorderWatchlist(categoryID string, from, to int) {
	s.apply(&mutation{op: models.OpReorderWatchlist, categoryID: categoryID}, func(d models.Document) models.Document {
		idx := d.CategoryIndex(categoryID)
		if idx < 0 {
			return d
		}
		c := d.Categories[idx]
		n := len(c.Items)
		if from < 0 || from >= n || to < 0 {
			return d
		}
		if to > n-1 {
			to = n - 1
		}
		if from == to {
			return d
		}
		moved := c.Items[from]
		items := make([]models.WatchlistItem, 0, n)
		items = append(items, c.Items[:from]...)
		items = append(items, c.Items[from+1:]...)
		items = append(items[:to], append([]models.WatchlistItem{moved}, items[to:]...)...)
		c.Items = items
		return replaceCategory(d, idx, c)
	})
}

// ClearWatchlist empties the active category.
func (s *WatchlistStore) ClearWatchlist() {
	s.applyActive(models.OpClearWatchlist, nil, func(c models.Category) models.Category {
		if len(c.Items) == 0 {
			return c
		}
		c.Items = []models.WatchlistItem{}
		return c
	})
}

// applyActive runs fn on the active category; without one it is a no-op.
func (s *WatchlistStore) applyActive(op models.Op, codes []string, fn func(models.Category) models.Category) {
	m := &mutation{op: op, codes: codes}
	s.apply(m, func(d models.Document) models.Document {
		m.categoryID = d.ActiveCategoryID
		idx := d.CategoryIndex(d.ActiveCategoryID)
		if idx < 0 {
			return d
		}
		return replaceCategory(d, idx, fn(d.Categories[idx]))
	})
}

// mutation describes the operation being applied. fn may fill categoryID when
// the target is only known under the lock.
type mutation struct {
	op         models.Op
	categoryID string
	codes      []string
}

// apply computes the next document under the lock, publishes it if it differs
// from the current one, and records the mutation.
func (s *WatchlistStore) apply(m *mutation, fn func(models.Document) models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.now()
	prev := s.doc
	next := fn(prev)
	changed := !reflect.DeepEqual(prev, next)

	if s.metrics != nil {
		s.metrics.RecordMutation(string(m.op), changed)
	}
	if !changed {
		return
	}

	s.doc = next
	if s.saver != nil {
		s.saver.Save(next.Clone())
	}
	for _, sub := range s.subs {
		sub(prev.Clone(), next.Clone())
	}
	if s.feed != nil {
		s.feed.Emit(models.ChangeEvent{
			Op:         m.op,
			CategoryID: m.categoryID,
			Codes:      append([]string(nil), m.codes...),
			At:         start,
		})
	}
	if s.metrics != nil {
		s.metrics.RecordLatency("store_"+string(m.op), s.now().Sub(start).Seconds())
	}
}

func (s *WatchlistStore) uniqueID(d models.Document) string {
	for {
		id := s.newID()
		if d.CategoryIndex(id) < 0 {
			return id
		}
	}
}

// replaceCategory returns d with a fresh categories slice holding c at idx.
func replaceCategory(d models.Document, idx int, c models.Category) models.Document {
	cats := make([]models.Category, len(d.Categories))
	copy(cats, d.Categories)
	cats[idx] = c
	d.Categories = cats
	return d
}

// appendItems never writes into the backing array of an existing snapshot.
func appendItems(items []models.WatchlistItem, add ...models.WatchlistItem) []models.WatchlistItem {
	out := make([]models.WatchlistItem, 0, len(items)+len(add))
	out = append(out, items...)
	return append(out, add...)
}

// newMillisIDGenerator yields "cat-<unix millis>", bumped so ids are strictly
// increasing within the process even when called twice in one millisecond.
func newMillisIDGenerator(now func() time.Time) func() string {
	var mu sync.Mutex
	var last int64
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		ms := now().UnixMilli()
		if ms <= last {
			ms = last + 1
		}
		last = ms
		return fmt.Sprintf("cat-%d", ms)
	}
}
