package models

// Kline is one OHLCV candle. Prices and volumes are parsed from the exchange's
// decimal strings.
type Kline struct {
	OpenTime    int64   `json:"openTime"`
	CloseTime   int64   `json:"closeTime"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      float64 `json:"volume"`
	QuoteVolume float64 `json:"quoteVolume"`
}

func (k Kline) Time() int64 { return k.OpenTime }

// EnrichedCandle is a kline joined with the open interest and funding rate
// observed for its window. Missing values stay nil.
type EnrichedCandle struct {
	Kline
	OpenInterest *float64 `json:"openInterest"`
	FundingRate  *float64 `json:"fundingRate"`
}

// Timed is implemented by every per-symbol series element.
type Timed interface {
	Time() int64
}
