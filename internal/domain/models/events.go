package models

import "time"

// Op names a State Container mutation.
type Op string

const (
	OpSetSelectedTicker   Op = "set_selected_ticker"
	OpSetCurrentPrice     Op = "set_current_price"
	OpSetActiveCategory   Op = "set_active_category"
	OpUpdateMarketIndices Op = "update_market_indices"
	OpAddCategory         Op = "add_category"
	OpRenameCategory      Op = "rename_category"
	OpDeleteCategory      Op = "delete_category"
	OpAddToWatchlist      Op = "add_to_watchlist"
	OpAddTickers          Op = "add_tickers"
	OpRemoveFromWatchlist Op = "remove_from_watchlist"
	OpUpdateWatchlistItem Op = "update_watchlist_item"
	OpReorderWatchlist    Op = "reorder_watchlist"
	OpClearWatchlist      Op = "clear_watchlist"
)

// ChangeEvent describes one applied mutation. It is what the change feed ships.
// Note: no transport concerns here; adapters choose their own encoding.
type ChangeEvent struct {
	Op         Op
	CategoryID string
	Codes      []string
	At         time.Time
}
