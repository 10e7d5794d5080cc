package models

// Requests for the watchlist HTTP endpoints. Ticker codes are validated here, at
// the caller boundary; the store itself trusts its input.

type SelectTickerRequest struct {
	Code string `json:"code" validate:"required,ticker"`
}

type CurrentPriceRequest struct {
	Price string `json:"price"`
}

type ActiveCategoryRequest struct {
	ID string `json:"id" validate:"required"`
}

type CategoryNameRequest struct {
	Name string `json:"name" default:"新規カテゴリ" validate:"max=40"`
}

type AddTickerRequest struct {
	Code string `json:"code" validate:"required,ticker"`
}

// BulkAddRequest accepts either free text (split like the bulk-add box) or a code list.
type BulkAddRequest struct {
	Text  string   `json:"text"`
	Codes []string `json:"codes" validate:"omitempty,max=100,dive,ticker"`
}

type ReorderRequest struct {
	From int `json:"from" validate:"gte=0"`
	To   int `json:"to" validate:"gte=0"`
}
