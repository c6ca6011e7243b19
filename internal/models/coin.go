package models

import "strings"

const (
	ExchangeBinance = "binance"
	ExchangeBybit   = "bybit"
)

// Coin is one perpetual symbol and the venues listing it. Identity is Symbol.
type Coin struct {
	Symbol    string   `json:"symbol"`
	Exchanges []string `json:"exchanges"`
	Category  int      `json:"category"`
}

// Supports reports whether the coin is listed on exchange.
func (c Coin) Supports(exchange string) bool {
	for _, e := range c.Exchanges {
		if strings.EqualFold(e, exchange) {
			return true
		}
	}
	return false
}
