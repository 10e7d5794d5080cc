package models

// IndexInfo is one cached market index quote. Values are display strings.
type IndexInfo struct {
	Name          string `json:"name"`
	Price         string `json:"price"`
	Change        string `json:"change"`
	ChangePercent string `json:"change_percent"`
}

// MarketIndices is the market snapshot shown in the header ticker.
type MarketIndices struct {
	Nikkei225 IndexInfo `json:"nikkei225"`
	Topix     IndexInfo `json:"topix"`
	Futures   IndexInfo `json:"futures"`
}

type NewsItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type OHLCV struct {
	Date   string   `json:"date"`
	Open   float64  `json:"open"`
	High   float64  `json:"high"`
	Low    float64  `json:"low"`
	Close  float64  `json:"close"`
	Volume int64    `json:"volume"`
	VWAP   *float64 `json:"vwap,omitempty"`
}

// StockDetails is the ticker detail payload served by the stock API.
// It is consumed read-only; the store only keeps a few display fields from it.
type StockDetails struct {
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Industry       string     `json:"industry,omitempty"`
	CurrentPrice   string     `json:"current_price,omitempty"`
	Change         string     `json:"change,omitempty"`
	ChangePercent  string     `json:"change_percent,omitempty"`
	VWAP           string     `json:"vwap,omitempty"`
	Volume         string     `json:"volume,omitempty"`
	MarginBuy      string     `json:"margin_buy,omitempty"`
	MarginSell     string     `json:"margin_sell,omitempty"`
	MarginRatio    string     `json:"margin_ratio,omitempty"`
	MA25Diff       string     `json:"ma25_diff,omitempty"`
	MA75Diff       string     `json:"ma75_diff,omitempty"`
	DividendYield  string     `json:"dividend_yield,omitempty"`
	ExDividendDate string     `json:"ex_dividend_date,omitempty"`
	BenefitDate    string     `json:"benefit_date,omitempty"`
	SettlementDate string     `json:"settlement_date,omitempty"`
	News           []NewsItem `json:"news"`
	History        []OHLCV    `json:"history"`
}

// Quote is a streamed price update for one ticker (Kafka quotes topic).
type Quote struct {
	Code          string   `json:"code"`
	Price         float64  `json:"price"`
	Change        float64  `json:"change"`
	ChangePercent float64  `json:"change_percent"`
	VWAP          *float64 `json:"vwap,omitempty"`
	Timestamp     int64    `json:"t"`
}
