package models

// MarketSnapshot is the full set of enriched per-symbol records for one
// timeframe. The store keeps only the latest one per timeframe.
type MarketSnapshot struct {
	Timeframe   Timeframe                        `json:"timeframe"`
	OpenTime    int64                            `json:"openTime"`
	UpdatedAt   int64                            `json:"updatedAt"`
	CoinsNumber int                              `json:"coinsNumber"`
	Data        []CoinMarketData[EnrichedCandle] `json:"data"`
}

// JobResult is the terminal report of one job run.
type JobResult struct {
	Success         bool      `json:"success"`
	Timeframe       Timeframe `json:"timeframe"`
	TotalCoins      int       `json:"totalCoins"`
	SuccessfulCoins int       `json:"successfulCoins"`
	FailedCoins     int       `json:"failedCoins"`
	Errors          []string  `json:"errors"`
	ExecutionTime   int64     `json:"executionTime"` // ms
}
