package models

// KlineQuery selects candles from the exchange.
type KlineQuery struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Limit    int    `json:"limit"`
}

// CollectRequest triggers a collection over HTTP. Zero keeps the configured
// limit.
type CollectRequest struct {
	Limit int `query:"limit" json:"limit" validate:"gte=0,lte=1500"`
}
