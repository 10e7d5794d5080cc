package models

// MaxCategoryItems is the capacity of a single watch category.
const MaxCategoryItems = 10

// WatchlistItem is a ticker entry inside a category. Everything except Code is a
// display cache filled lazily from the stock API.
type WatchlistItem struct {
	Code           string `json:"code"`
	Name           string `json:"name,omitempty"`
	Price          string `json:"price,omitempty"`
	Change         string `json:"change,omitempty"`
	Industry       string `json:"industry,omitempty"`
	VWAP           string `json:"vwap,omitempty"`
	MA25Diff       string `json:"ma25_diff,omitempty"`
	SettlementDate string `json:"settlement_date,omitempty"`
	ExDividendDate string `json:"ex_dividend_date,omitempty"`
	BenefitDate    string `json:"benefit_date,omitempty"`
}

// ItemPatch carries the display fields to merge into an item. Nil fields are left untouched.
type ItemPatch struct {
	Name           *string `json:"name,omitempty"`
	Price          *string `json:"price,omitempty"`
	Change         *string `json:"change,omitempty"`
	Industry       *string `json:"industry,omitempty"`
	VWAP           *string `json:"vwap,omitempty"`
	MA25Diff       *string `json:"ma25_diff,omitempty"`
	SettlementDate *string `json:"settlement_date,omitempty"`
	ExDividendDate *string `json:"ex_dividend_date,omitempty"`
	BenefitDate    *string `json:"benefit_date,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p ItemPatch) IsEmpty() bool {
	return p == ItemPatch{}
}

// Apply returns a copy of item with the patch merged in.
func (p ItemPatch) Apply(item WatchlistItem) WatchlistItem {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&item.Name, p.Name)
	set(&item.Price, p.Price)
	set(&item.Change, p.Change)
	set(&item.Industry, p.Industry)
	set(&item.VWAP, p.VWAP)
	set(&item.MA25Diff, p.MA25Diff)
	set(&item.SettlementDate, p.SettlementDate)
	set(&item.ExDividendDate, p.ExDividendDate)
	set(&item.BenefitDate, p.BenefitDate)
	return item
}

// Category is a user-named, ordered and bounded group of items.
type Category struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []WatchlistItem `json:"items"`
}

// HasCode reports whether the category already holds code.
func (c Category) HasCode(code string) bool {
	for _, it := range c.Items {
		if it.Code == code {
			return true
		}
	}
	return false
}

// Document is the persisted root of one client's state.
type Document struct {
	SelectedTicker   string         `json:"selectedTicker"`
	CurrentPrice     string         `json:"currentPrice"`
	Categories       []Category     `json:"categories"`
	ActiveCategoryID string         `json:"activeCategoryId"`
	MarketIndices    *MarketIndices `json:"marketIndices"`
}

// Clone returns a deep copy so callers can never alias store internals.
func (d Document) Clone() Document {
	out := d
	if d.Categories != nil {
		out.Categories = make([]Category, len(d.Categories))
		for i, c := range d.Categories {
			out.Categories[i] = c.clone()
		}
	}
	if d.MarketIndices != nil {
		mi := *d.MarketIndices
		out.MarketIndices = &mi
	}
	return out
}

// CategoryIndex returns the position of the category with id, or -1.
func (d Document) CategoryIndex(id string) int {
	for i, c := range d.Categories {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (c Category) clone() Category {
	items := make([]WatchlistItem, len(c.Items))
	copy(items, c.Items)
	c.Items = items
	return c
}

// DefaultCategories is the category set of a first-run client.
func DefaultCategories() []Category {
	return []Category{
		{ID: "cat-1", Name: "主要銘柄", Items: []WatchlistItem{
			{Code: "7203", Name: "トヨタ", Industry: "輸送用機器"},
			{Code: "9434", Name: "ソフトバンク", Industry: "情報・通信業"},
		}},
		{ID: "cat-2", Name: "監視銘柄A", Items: []WatchlistItem{}},
		{ID: "cat-3", Name: "監視銘柄B", Items: []WatchlistItem{}},
		{ID: "cat-4", Name: "高配当銘柄", Items: []WatchlistItem{}},
		{ID: "cat-5", Name: "グロース", Items: []WatchlistItem{}},
		{ID: "cat-6", Name: "カテゴリ6", Items: []WatchlistItem{}},
		{ID: "cat-7", Name: "カテゴリ7", Items: []WatchlistItem{}},
		{ID: "cat-8", Name: "カテゴリ8", Items: []WatchlistItem{}},
		{ID: "cat-9", Name: "カテゴリ9", Items: []WatchlistItem{}},
		{ID: "cat-10", Name: "カテゴリ10", Items: []WatchlistItem{}},
	}
}

// DefaultDocument is the document used when nothing has been persisted yet.
func DefaultDocument() Document {
	return Document{
		SelectedTicker:   "7203",
		CurrentPrice:     "",
		Categories:       DefaultCategories(),
		ActiveCategoryID: "cat-1",
		MarketIndices:    nil,
	}
}
